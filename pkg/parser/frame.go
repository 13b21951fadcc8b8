package parser

import (
	"strings"

	"github.com/parsehive/tagstream/pkg/builder"
	"github.com/parsehive/tagstream/pkg/schema"
)

// rawField is one buffered child value collected under a frame whose union
// type hasn't resolved yet.
type rawField struct {
	wire       string
	value      any
	assignable bool
}

// frame is one level of the push-down automaton: the live state for a
// single open tag. Most frames resolve their concrete type the moment they
// open (via an explicit type attribute, a nominal tag match, or simply
// because their declared type isn't a union); frames that can't resolve
// immediately go into pendingUnion mode and buffer their children's values
// until enough wire names have been seen to pick a variant structurally.
type frame struct {
	tagName  string
	resolved *schema.Node // nil while pendingUnion and still unresolved
	handle   builder.Handle
	discard  bool // tag didn't map to any field/item/variant; swallow its subtree

	// Record bookkeeping: which wire names have already claimed their one
	// sticky write. Checked when a child frame opens (a duplicate start
	// tag is dropped outright) but only set when that child actually
	// closes with an assignable value, so a failed first attempt doesn't
	// block a later valid one.
	populated map[string]bool

	// Where this frame's value is assigned once it closes.
	parentField    schema.Field
	hasParentField bool
	isContainerItem bool // append to parent's sequence/set
	isTupleItem     bool
	tupleIndex      int
	isMapEntry      bool
	mapKey          string

	// Scalar/Any text accumulation. sawCData/sawPlainText track which kind
	// of text event(s) contributed, so a scalar's trim decision can honor
	// "trimmed unless the enclosing element was CData".
	text         strings.Builder
	sawCData     bool
	sawPlainText bool

	// Union resolution state.
	pendingUnion bool
	unionTarget  *schema.Node
	seenWire     map[string]bool
	rawFields    []rawField
	rawOrder     []string
}

func (f *frame) markSeen(wire string, value any, assignable bool) {
	if f.seenWire == nil {
		f.seenWire = make(map[string]bool)
	}
	if f.seenWire[wire] {
		return
	}
	f.seenWire[wire] = true
	f.rawOrder = append(f.rawOrder, wire)
	f.rawFields = append(f.rawFields, rawField{wire: wire, value: value, assignable: assignable})
}

// dottedPath renders a frame-context path like "outer.middles.inner" for
// diagnostics, given the chain of frames from root to this one.
func dottedPath(stack []*frame) string {
	var b strings.Builder
	for i, f := range stack {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(f.tagName)
	}
	return b.String()
}
