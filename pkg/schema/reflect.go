package schema

import (
	"fmt"
	"reflect"
	"sync"
)

// ReflectProvider derives Node descriptions from Go reflection. Struct
// fields are read via the `tag:"name"` struct tag when present, falling
// back to the Go field name; a `tag:"-"` field is skipped entirely. Union
// alternatives are registered explicitly with RegisterUnion, since Go has
// no runtime concept of a closed sum type to reflect on.
type ReflectProvider struct {
	mu      sync.RWMutex
	cache   map[reflect.Type]*Node
	unions  map[reflect.Type][]reflect.Type
	aliases map[string]*Node
	tagKey  string
}

// NewReflectProvider creates a ReflectProvider that reads struct field
// names from the given struct tag key (commonly "tag" or "xml").
func NewReflectProvider(tagKey string) *ReflectProvider {
	if tagKey == "" {
		tagKey = "tag"
	}
	return &ReflectProvider{
		cache:   make(map[reflect.Type]*Node),
		unions:  make(map[reflect.Type][]reflect.Type),
		aliases: make(map[string]*Node),
		tagKey:  tagKey,
	}
}

// RegisterUnion declares that ifaceValue (a nil pointer to an interface
// type, e.g. (*MyInterface)(nil)) may be satisfied by any of variants at
// parse time. Call before the first Describe that reaches this interface.
func (p *ReflectProvider) RegisterUnion(ifaceValue any, variants ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ifaceType := reflect.TypeOf(ifaceValue).Elem()
	var variantTypes []reflect.Type
	for _, v := range variants {
		variantTypes = append(variantTypes, reflect.TypeOf(v))
	}
	p.unions[ifaceType] = variantTypes
}

// Describe implements Provider.
func (p *ReflectProvider) Describe(target any) (*Node, error) {
	t := reflect.TypeOf(target)
	if t == nil {
		return nil, fmt.Errorf("schema: cannot describe untyped nil")
	}
	return p.describeType(t)
}

// describeType resolves t to a Node, caching by reflect.Type so a
// self-referential type (directly, like "type N []N", or through a
// struct field, like a tree node holding a slice of pointers to itself)
// terminates instead of recursing forever. The cache is seeded with an
// empty placeholder before buildNode descends into t's fields/elements,
// so a cycle back to t resolves to that same placeholder pointer; once
// buildNode returns, the placeholder is filled in place rather than
// replaced, so every reference anyone already holds to it (including
// ones inside the cyclic graph itself) sees the completed Node.
func (p *ReflectProvider) describeType(t reflect.Type) (*Node, error) {
	p.mu.Lock()
	if n, ok := p.cache[t]; ok {
		p.mu.Unlock()
		return n, nil
	}
	placeholder := &Node{}
	p.cache[t] = placeholder
	p.mu.Unlock()

	n, err := p.buildNode(t)
	if err != nil {
		p.mu.Lock()
		delete(p.cache, t)
		p.mu.Unlock()
		return nil, err
	}

	*placeholder = *n
	p.mu.Lock()
	if placeholder.Name != "" {
		p.aliases[placeholder.Name] = placeholder
	}
	p.mu.Unlock()
	return placeholder, nil
}

func (p *ReflectProvider) buildNode(t reflect.Type) (n *Node, err error) {
	defer func() {
		if n != nil {
			n.GoType = t
		}
	}()

	switch t.Kind() {
	case reflect.Ptr:
		elem, err := p.describeType(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindOptional, Elem: elem}, nil

	case reflect.Slice, reflect.Array:
		elem, err := p.describeType(t.Elem())
		if err != nil {
			return nil, err
		}
		n := &Node{Kind: KindSequence, Elem: elem}
		if t.Kind() == reflect.Array {
			n.Kind = KindTuple
			n.Items = make([]*Node, t.Len())
			for i := range n.Items {
				n.Items[i] = elem
			}
		}
		return n, nil

	case reflect.Map:
		keyNode, err := p.describeType(t.Key())
		if err != nil {
			return nil, err
		}
		valNode, err := p.describeType(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindMapping, Key: keyNode, Value: valNode}, nil

	case reflect.Struct:
		return p.buildRecord(t)

	case reflect.Interface:
		p.mu.RLock()
		variantTypes := p.unions[t]
		p.mu.RUnlock()
		if len(variantTypes) == 0 {
			return &Node{Kind: KindAny, Name: t.Name()}, nil
		}
		u := &Node{Kind: KindUnion, Name: t.Name()}
		for _, vt := range variantTypes {
			vn, err := p.describeType(vt)
			if err != nil {
				return nil, err
			}
			u.Variants = append(u.Variants, vn)
		}
		return u, nil

	case reflect.String:
		return &Node{Kind: KindScalar, Scalar: ScalarString, Name: t.Name()}, nil
	case reflect.Bool:
		return &Node{Kind: KindScalar, Scalar: ScalarBool, Name: t.Name()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Node{Kind: KindScalar, Scalar: ScalarInteger, Name: t.Name()}, nil
	case reflect.Float32, reflect.Float64:
		return &Node{Kind: KindScalar, Scalar: ScalarFloat, Name: t.Name()}, nil

	default:
		return nil, fmt.Errorf("schema: unsupported reflect kind %s for %s", t.Kind(), t)
	}
}

func (p *ReflectProvider) buildRecord(t reflect.Type) (*Node, error) {
	rec := &Node{Kind: KindRecord, Name: t.Name()}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tagName, skip := fieldTagName(sf, p.tagKey)
		if skip {
			continue
		}

		fieldType := sf.Type
		optional := false
		if fieldType.Kind() == reflect.Ptr {
			optional = true
		}
		fn, err := p.describeType(fieldType)
		if err != nil {
			return nil, fmt.Errorf("schema: field %s.%s: %w", t.Name(), sf.Name, err)
		}
		if fn.Kind == KindOptional {
			optional = true
		}

		declared := tagName
		if declared == "" {
			declared = sf.Name
		}
		rec.Fields = append(rec.Fields, Field{
			Declared:    declared,
			Wire:        WireName(declared),
			Type:        fn,
			Optional:    optional,
			GoFieldName: sf.Name,
		})
	}
	return rec, nil
}

// fieldTagName reads the declared wire name for a struct field from its
// struct tag, returning skip=true for an explicit "-".
func fieldTagName(sf reflect.StructField, tagKey string) (name string, skip bool) {
	raw, ok := sf.Tag.Lookup(tagKey)
	if !ok {
		return "", false
	}
	name, _, _ = cutComma(raw)
	if name == "-" {
		return "", true
	}
	return name, false
}

func cutComma(s string) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// ResolveVariant implements Provider: matches a union member by its
// nominal Name against tagName, case-sensitively.
func (p *ReflectProvider) ResolveVariant(union *Node, tagName string) (*Node, bool) {
	if union == nil {
		return nil, false
	}
	for _, v := range union.Variants {
		if v.Name == tagName {
			return v, true
		}
	}
	return nil, false
}

// ResolveAlias implements Provider by looking up a previously-described
// named type.
func (p *ReflectProvider) ResolveAlias(name string) (*Node, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.aliases[name]
	return n, ok
}
