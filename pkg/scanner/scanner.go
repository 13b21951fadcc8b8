package scanner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/parsehive/tagstream/pkg/diag"
)

// Scanner is a chunk-safe character scanner. Feed may be
// called repeatedly with chunks that split anywhere — mid-tag,
// mid-attribute-value, mid-entity, mid-CDATA-marker, or between '<' and the
// following name character — and resumes correctly using an internal carry
// buffer of unconsumed tail bytes.
type Scanner struct {
	ignoredTags map[string]bool

	carry      []byte
	baseOffset int64

	inCData bool

	ignoredName  string
	ignoredDepth int
}

// New creates a Scanner. ignoredTags names the tags whose subtrees (content
// and nested structure) are silently discarded without ever producing an
// event.
func New(ignoredTags []string) *Scanner {
	s := &Scanner{ignoredTags: make(map[string]bool, len(ignoredTags))}
	for _, t := range ignoredTags {
		s.ignoredTags[t] = true
	}
	return s
}

func (s *Scanner) span(start, end int) diag.Span {
	return diag.Span{Start: s.baseOffset + int64(start), End: s.baseOffset + int64(end)}
}

// Feed consumes chunk and returns every event that became determinable.
// Bytes that don't yet resolve to a complete token are retained internally
// and combined with the next call's chunk.
func (s *Scanner) Feed(chunk []byte) []Event {
	data := make([]byte, 0, len(s.carry)+len(chunk))
	data = append(data, s.carry...)
	data = append(data, chunk...)

	var events []Event
	i := 0
	resume := len(data)

outer:
	for i < len(data) {
		if s.inCData {
			ev, ni, done := s.scanCDataBody(data, i)
			if ev != nil {
				s.emit(&events, *ev)
			}
			if !done {
				resume = ni
				break outer
			}
			i = ni
			continue
		}

		if data[i] != '<' {
			ni, ok := s.scanText(data, i, &events)
			if !ok {
				resume = ni
				break outer
			}
			i = ni
			continue
		}

		kind, need := classifyPrefix(data, i)
		if need > 0 && len(data)-i < need {
			resume = i
			break outer
		}

		switch kind {
		case prefixCData:
			s.inCData = true
			i += len("<![CDATA[")
		case prefixComment:
			end, found := findMarkerEnd(data, i, "-->")
			if !found {
				resume = i
				break outer
			}
			i = end
		case prefixDecl:
			end, found := findMarkerEnd(data, i, "?>")
			if !found {
				resume = i
				break outer
			}
			i = end
		case prefixDoctype:
			end, found := findTagEnd(data, i)
			if !found {
				resume = i
				break outer
			}
			i = end + 1
		default:
			end, found := findTagEnd(data, i)
			if !found {
				resume = i
				break outer
			}
			ev, diagEv := s.parseTag(data, i, end)
			i = end + 1
			if diagEv != nil {
				s.emit(&events, *diagEv)
			}
			if ev != nil {
				s.route(ev, &events)
			}
		}
	}

	s.carry = append(s.carry[:0:0], data[resume:]...)
	s.baseOffset += int64(resume)
	return events
}

// emit appends ev unless an ignored-tag subtree is currently being
// discarded.
func (s *Scanner) emit(events *[]Event, ev Event) {
	if s.ignoredDepth > 0 {
		return
	}
	*events = append(*events, ev)
}

// route applies ignored-tag tracking to a freshly parsed Start/End event,
// then emits it unless it is inside (or itself opens) an ignored subtree.
func (s *Scanner) route(ev *Event, events *[]Event) {
	if s.ignoredDepth > 0 {
		if ev.Kind == Start && ev.Name == s.ignoredName && !ev.SelfClosing {
			s.ignoredDepth++
		} else if ev.Kind == End && ev.Name == s.ignoredName {
			s.ignoredDepth--
			if s.ignoredDepth == 0 {
				s.ignoredName = ""
			}
		}
		return
	}
	if ev.Kind == Start && s.ignoredTags[ev.Name] {
		if ev.SelfClosing {
			return
		}
		s.ignoredName = ev.Name
		s.ignoredDepth = 1
		return
	}
	*events = append(*events, *ev)
}

// scanText consumes plain text from data[i:], decoding entities, and stops
// at the next '<'. If it stops on an entity that isn't terminated yet within
// data, ok is false and the caller must carry from the returned index. A
// malformed or unrecognized entity is passed through literally and reported
// as a ScannerError diagnostic event.
func (s *Scanner) scanText(data []byte, i int, out *[]Event) (newI int, ok bool) {
	var buf strings.Builder
	start := i

	flush := func(upTo int) {
		if buf.Len() > 0 {
			s.emit(out, Event{Kind: Text, Text: buf.String(), Span: s.span(start, upTo)})
			buf.Reset()
		}
		start = upTo
	}

	for i < len(data) {
		c := data[i]
		if c == '<' {
			break
		}
		if c == '&' {
			text, next, done, malformed := decodeEntity(data, i)
			if !done {
				flush(i)
				return i, false
			}
			if malformed {
				flush(i)
				s.emit(out, *scannerErrorEvent(s.span(i, next), "unrecognized entity reference"))
			}
			buf.WriteString(text)
			i = next
			continue
		}
		buf.WriteByte(c)
		i++
	}
	flush(i)
	return i, true
}

// scanCDataBody emits CDATA content as it becomes available, holding back
// only the trailing bytes that might be the start of the "]]>" terminator so
// a terminator split across chunks is never misdetected.
func (s *Scanner) scanCDataBody(data []byte, i int) (ev *Event, newI int, done bool) {
	if idx := bytes.Index(data[i:], []byte("]]>")); idx >= 0 {
		end := i + idx
		if end > i {
			ev = &Event{Kind: CData, Text: string(data[i:end]), Span: s.span(i, end)}
		}
		s.inCData = false
		return ev, end + 3, true
	}

	safeEnd := len(data)
	for overlap := 1; overlap <= 2 && safeEnd-overlap >= i; overlap++ {
		tail := data[safeEnd-overlap : safeEnd]
		if bytes.Equal(tail, bytes.Repeat([]byte("]"), overlap)) {
			safeEnd -= overlap
		}
	}
	if safeEnd > i {
		ev = &Event{Kind: CData, Text: string(data[i:safeEnd]), Span: s.span(i, safeEnd)}
	}
	return ev, safeEnd, false
}

type prefixKind int

const (
	prefixTag prefixKind = iota
	prefixComment
	prefixCData
	prefixDecl
	prefixDoctype
)

// classifyPrefix inspects data[i:] (data[i] == '<') and decides which kind
// of markup follows. If there isn't yet enough data to decide, need > 0
// reports how many bytes (from i) are required before retrying.
func classifyPrefix(data []byte, i int) (kind prefixKind, need int) {
	rest := data[i:]
	if len(rest) < 2 {
		return prefixTag, 2
	}
	switch rest[1] {
	case '?':
		return prefixDecl, 0
	case '!':
		const cdataPrefix = "![CDATA["
		if len(rest) < len(cdataPrefix)+1 {
			n := len(rest) - 1
			if n > len(cdataPrefix) {
				n = len(cdataPrefix)
			}
			if string(rest[1:1+n]) == cdataPrefix[:n] {
				return prefixCData, len(cdataPrefix) + 1
			}
			if len(rest) < 4 {
				return prefixTag, 4
			}
			if rest[2] == '-' && rest[3] == '-' {
				return prefixComment, 0
			}
			return prefixDoctype, 0
		}
		if rest[1:1+len(cdataPrefix)] == cdataPrefix {
			return prefixCData, 0
		}
		if rest[2] == '-' && rest[3] == '-' {
			return prefixComment, 0
		}
		return prefixDoctype, 0
	default:
		return prefixTag, 0
	}
}

// findMarkerEnd searches data[i:] for marker and returns the index just
// past it.
func findMarkerEnd(data []byte, i int, marker string) (end int, found bool) {
	idx := bytes.Index(data[i:], []byte(marker))
	if idx < 0 {
		return 0, false
	}
	return i + idx + len(marker), true
}

// findTagEnd scans a <...> tag honoring quoted attribute values so a '>'
// inside a quoted value doesn't terminate the tag early. Returns the index
// of the closing '>'.
func findTagEnd(data []byte, i int) (end int, found bool) {
	var quote byte
	for j := i + 1; j < len(data); j++ {
		c := data[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			return j, true
		}
	}
	return 0, false
}

// parseTag parses the fully-buffered tag data[i:end+1] (inclusive of the
// enclosing '<' '>') into a Start or End event. A malformed tag is reported
// as a ScannerError diagnostic event and a nil tag event; the scanner
// advances past the offending byte and resumes in Text state.
func (s *Scanner) parseTag(data []byte, i, end int) (ev *Event, diagEv *Event) {
	content := string(data[i+1 : end])
	span := s.span(i, end+1)

	if strings.HasPrefix(content, "/") {
		name := strings.TrimSpace(content[1:])
		if name == "" {
			return nil, scannerErrorEvent(span, "empty end tag name")
		}
		return &Event{Kind: End, Name: name, Span: span}, nil
	}

	trimmed := strings.TrimRight(content, " \t\r\n")
	selfClosing := strings.HasSuffix(trimmed, "/")
	if selfClosing {
		trimmed = strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n")
	}

	name, rest := splitName(trimmed)
	if name == "" {
		return nil, scannerErrorEvent(span, "tag with no name")
	}

	ordered, err := parseAttrs(rest)
	if err != nil {
		ev := &Event{Kind: Start, Name: name, Attrs: ordered, SelfClosing: selfClosing, Span: span}
		return ev, scannerErrorEvent(span, err.Error())
	}
	return &Event{Kind: Start, Name: name, Attrs: ordered, SelfClosing: selfClosing, Span: span}, nil
}

func scannerErrorEvent(span diag.Span, message string) *Event {
	return &Event{
		Kind:       ScannerError,
		Span:       span,
		Diagnostic: diag.ScannerError(span, message),
	}
}

func splitName(s string) (name, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	j := 0
	for j < len(s) && !isSpace(s[j]) {
		j++
	}
	return s[:j], s[j:]
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

// parseAttrs parses "name=\"value\" name2='value2'" into an ordered,
// de-duplicated attribute list; a later occurrence of the same name
// overwrites the earlier value in place: duplicate attribute names take
// the last value.
func parseAttrs(s string) ([]Attr, error) {
	var ordered []Attr
	index := make(map[string]int)

	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		nameStart := i
		for i < len(s) && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		name := s[nameStart:i]
		if name == "" {
			return ordered, fmt.Errorf("malformed attribute near %q", s[i:])
		}
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) || s[i] != '=' {
			// bare attribute name with no value: tolerate, value "".
			setAttr(&ordered, index, name, "")
			continue
		}
		i++ // consume '='
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) || (s[i] != '"' && s[i] != '\'') {
			return ordered, fmt.Errorf("attribute %q missing quoted value", name)
		}
		quote := s[i]
		i++
		valStart := i
		for i < len(s) && s[i] != quote {
			i++
		}
		if i >= len(s) {
			return ordered, fmt.Errorf("attribute %q has unterminated value", name)
		}
		raw := s[valStart:i]
		i++ // consume closing quote
		setAttr(&ordered, index, name, decodeAttrValue(raw))
	}
	return ordered, nil
}

func setAttr(ordered *[]Attr, index map[string]int, name, value string) {
	if pos, exists := index[name]; exists {
		(*ordered)[pos].Value = value
		return
	}
	index[name] = len(*ordered)
	*ordered = append(*ordered, Attr{Name: name, Value: value})
}

// decodeAttrValue decodes entities in a fully-buffered attribute value.
func decodeAttrValue(raw string) string {
	data := []byte(raw)
	var buf strings.Builder
	i := 0
	for i < len(data) {
		if data[i] == '&' {
			text, next, done, _ := decodeEntity(data, i)
			if done {
				buf.WriteString(text)
				i = next
				continue
			}
		}
		buf.WriteByte(data[i])
		i++
	}
	return buf.String()
}
