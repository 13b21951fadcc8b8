package scanner

import "strconv"

var namedEntities = map[string]rune{
	"lt":   '<',
	"gt":   '>',
	"amp":  '&',
	"quot": '"',
	"apos": '\'',
}

// decodeEntity decodes one entity starting at data[i] (data[i] == '&').
//
// done reports whether a verdict could be reached at all: if the entity
// isn't yet terminated within data, done is false and the caller must carry
// the bytes from i onward and retry once more data arrives. When done is
// true, text and next are always valid (next is where the caller resumes),
// and malformed distinguishes a successfully recognized entity (malformed
// false) from a terminated-but-unrecognized one (malformed true), where
// text is just the literal '&' passed through and next advances by one byte.
func decodeEntity(data []byte, i int) (text string, next int, done bool, malformed bool) {
	if i >= len(data) || data[i] != '&' {
		return "", i, false, false
	}
	j := i + 1
	for j < len(data) && data[j] != ';' && j-i < 32 {
		j++
	}
	if j >= len(data) {
		if j-i < 32 {
			return "", i, false, false
		}
		// Too long to plausibly be an entity; treat '&' as literal.
		return "&", i + 1, true, true
	}
	if data[j] != ';' {
		// Hit the 32-byte bail-out without finding ';': not an entity.
		return "&", i + 1, true, true
	}
	name := string(data[i+1 : j])
	if len(name) == 0 {
		return "&", i + 1, true, true
	}
	if name[0] == '#' {
		var codepoint int64
		var err error
		if len(name) > 1 && (name[1] == 'x' || name[1] == 'X') {
			codepoint, err = strconv.ParseInt(name[2:], 16, 32)
		} else {
			codepoint, err = strconv.ParseInt(name[1:], 10, 32)
		}
		if err != nil || codepoint < 0 || codepoint > 0x10FFFF {
			return "&", i + 1, true, true
		}
		return string(rune(codepoint)), j + 1, true, false
	}
	if r, found := namedEntities[name]; found {
		return string(r), j + 1, true, false
	}
	// Unknown named entity: pass the '&' through literally rather than
	// consuming the whole run, so "a & b" style text survives unscathed.
	return "&", i + 1, true, true
}
