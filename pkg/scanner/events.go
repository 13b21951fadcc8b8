// Package scanner implements a chunk-safe character scanner and tag-event
// stream: it turns a sequence of arbitrarily-split byte chunks into an
// ordered stream of high-level StartTag/EndTag/Text/CData events,
// recognizing self-closing tags, CDATA, comments, declarations, entities,
// and an ignored-tag skip region.
package scanner

import (
	"fmt"

	"github.com/parsehive/tagstream/pkg/diag"
)

// Kind identifies the category of a scanned Event.
type Kind int

const (
	Start Kind = iota
	End
	Text
	CData
	ScannerError
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "Start"
	case End:
		return "End"
	case Text:
		return "Text"
	case CData:
		return "CData"
	case ScannerError:
		return "ScannerError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Attr is one attribute on a start tag, in source order.
type Attr struct {
	Name  string
	Value string
}

// Event is one item of the tag-event stream produced by Scanner.Feed.
type Event struct {
	Kind        Kind
	Name        string // tag name, Start/End only
	Attrs       []Attr // Start only; insertion order, duplicates already resolved last-wins
	SelfClosing bool   // Start only
	Text        string // Text/CData payload
	Span        diag.Span
	Diagnostic  *diag.Diagnostic // set when Kind == ScannerError
}

// Attr looks up the value of an attribute by name. Duplicate attribute
// names are already resolved last-wins when the event was built, so this
// is just a convenience accessor.
func (e Event) Attr(name string) (string, bool) {
	for i := len(e.Attrs) - 1; i >= 0; i-- {
		if e.Attrs[i].Name == name {
			return e.Attrs[i].Value, true
		}
	}
	return "", false
}
