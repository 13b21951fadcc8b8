package parser

import (
	"strconv"
	"strings"

	"github.com/parsehive/tagstream/pkg/diag"
	"github.com/parsehive/tagstream/pkg/schema"
)

// coerceScalar converts text into the Go value a ScalarKind expects: int64
// for integers, float64 for floats, bool for booleans, nil for the null
// sentinel, and the text itself for strings. text is taken as given — the
// caller decides whether to trim surrounding whitespace before calling
// this (the scanner's CData-vs-plain-text origin of the text determines
// that, not the scalar kind). On failure it returns a CoercionError
// diagnostic, the zero value for the target kind, and ok=false: the field
// is left unassigned rather than being written with a bogus zero value.
func coerceScalar(kind schema.ScalarKind, text string, span diag.Span, frame string) (value any, d *diag.Diagnostic, ok bool) {
	switch kind {
	case schema.ScalarString:
		return text, nil, true

	case schema.ScalarInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return int64(0), diag.CoercionError(span, frame, "integer", text, err), false
		}
		return n, nil, true

	case schema.ScalarFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return float64(0), diag.CoercionError(span, frame, "float", text, err), false
		}
		return f, nil, true

	case schema.ScalarBool:
		switch strings.ToLower(text) {
		case "true", "1", "yes":
			return true, nil, true
		case "false", "0", "no", "":
			return false, nil, true
		default:
			return false, diag.CoercionError(span, frame, "bool", text, nil), false
		}

	case schema.ScalarNull:
		return nil, nil, true

	default:
		return text, nil, true
	}
}
