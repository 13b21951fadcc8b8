// Package schema describes the type model that the parser engine builds
// against: what shape of value lives at a given tag, what its fields are
// called on the wire versus in the target type, and how union members are
// told apart.
package schema

import "strings"

// Kind is the structural category of a type Node.
type Kind int

const (
	KindAny Kind = iota
	KindScalar
	KindSequence
	KindMapping
	KindSet
	KindTuple
	KindOptional
	KindUnion
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindSet:
		return "set"
	case KindTuple:
		return "tuple"
	case KindOptional:
		return "optional"
	case KindUnion:
		return "union"
	case KindRecord:
		return "record"
	default:
		return "any"
	}
}

// ScalarKind refines KindScalar into its primitive wire representation.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarInteger
	ScalarFloat
	ScalarBool
	ScalarNull
)

func (s ScalarKind) String() string {
	switch s {
	case ScalarInteger:
		return "integer"
	case ScalarFloat:
		return "float"
	case ScalarBool:
		return "bool"
	case ScalarNull:
		return "null"
	default:
		return "string"
	}
}

// Field describes one named member of a Record, including the split
// between its declared (target-type) name and its wire (tag) name. The two
// differ whenever the declared name collides with a reserved tag-shape
// word, or an explicit wire tag overrides it.
type Field struct {
	Declared    string
	Wire        string
	Type        *Node
	Optional    bool
	GoFieldName string // Go struct field name backing this field, when known
}

// reservedWireNames are words that, if used verbatim as a wire tag name,
// would collide with the generic container-item/key/union-discriminator
// vocabulary the parser reserves for itself.
var reservedWireNames = map[string]bool{
	"item": true,
	"key":  true,
	"type": true,
}

// WireName computes the wire-safe name for a declared field name: if the
// declared name collides with a reserved word, it is prefixed with '_' so
// it can still appear as a literal tag without being mistaken for the
// reserved construct it shadows.
func WireName(declared string) string {
	if reservedWireNames[strings.ToLower(declared)] {
		return "_" + declared
	}
	return declared
}

// Node is one type in the model: a scalar, a container of some shape, a
// union of alternatives, or a record with named fields.
type Node struct {
	Kind   Kind
	Name   string // nominal type name, used for tag-name union discrimination
	Scalar ScalarKind

	// GoType carries the reflect.Type a Provider built this Node from, for
	// Provider/Builder pairs that need it (e.g. ReflectBuilder). Nil for
	// Nodes from a non-reflective Provider such as a JSON Schema source.
	GoType any

	// Sequence, Set, Optional
	Elem *Node

	// Mapping
	Key   *Node
	Value *Node

	// Tuple
	Items []*Node

	// Record
	Fields []Field

	// Union
	Variants []*Node
}

// FieldByWire looks up a Record field by its wire (tag) name.
func (n *Node) FieldByWire(wire string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Wire == wire {
			return f, true
		}
	}
	return Field{}, false
}

// Provider resolves a schema Node for a target Go type, and resolves union
// variants and type aliases against it. The default implementation,
// ReflectProvider, derives everything from Go reflection; a schema can also
// be supplied by hand, or from an external format like JSON Schema.
type Provider interface {
	// Describe returns the Node describing the shape of target.
	Describe(target any) (*Node, error)

	// ResolveVariant picks the union member whose nominal Name matches
	// tagName, if any. Used for the nominal tag-name discriminator level.
	ResolveVariant(union *Node, tagName string) (*Node, bool)

	// ResolveAlias follows a type-attribute alias name (e.g. a `type="..."`
	// value, or a name used inside a `|`-joined type expression) back to
	// the Node it names, if the provider knows one.
	ResolveAlias(name string) (*Node, bool)
}
