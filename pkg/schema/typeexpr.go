package schema

import "strings"

// TypeExpr is a parsed `type="..."` attribute value: either a bare name
// ("Cat"), a parameterized name ("List[Cat]"), or a set of alternatives
// joined by '|' ("Cat|Dog"). It exists independently of any Provider so the
// parser can inspect it before deciding how to resolve it.
type TypeExpr struct {
	Alternatives []TypeRef
}

// TypeRef is one alternative within a TypeExpr: a name plus optional
// bracketed type arguments.
type TypeRef struct {
	Name string
	Args []TypeRef
}

// ParseTypeExpr parses a type-attribute expression. It never errors: any
// text it cannot make sense of becomes a single-alternative TypeRef whose
// Name is the trimmed original text, so resolution can still fall through
// to a not-found outcome rather than aborting the parse.
func ParseTypeExpr(s string) TypeExpr {
	parts := splitTop(s, '|')
	var alts []TypeRef
	for _, p := range parts {
		alts = append(alts, parseTypeRef(strings.TrimSpace(p)))
	}
	return TypeExpr{Alternatives: alts}
}

func parseTypeRef(s string) TypeRef {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return TypeRef{Name: strings.TrimSpace(s)}
	}
	name := strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	var args []TypeRef
	for _, part := range splitTop(inner, ',') {
		args = append(args, parseTypeRef(strings.TrimSpace(part)))
	}
	return TypeRef{Name: name, Args: args}
}

// splitTop splits s on sep at bracket depth zero, so "List[A,B]|C" split on
// '|' yields ["List[A,B]", "C"] rather than breaking inside the brackets.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// Names returns the bare top-level alternative names, ignoring any type
// arguments — the common case for union discrimination.
func (e TypeExpr) Names() []string {
	names := make([]string, len(e.Alternatives))
	for i, a := range e.Alternatives {
		names[i] = a.Name
	}
	return names
}
