package scanner

import "testing"

func TestDecodeEntity(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		start         int
		wantText      string
		wantNext      int
		wantDone      bool
		wantMalformed bool
	}{
		{"named lt", "&lt;rest", 0, "<", 4, true, false},
		{"named amp", "&amp;", 0, "&", 5, true, false},
		{"decimal", "&#65;", 0, "A", 5, true, false},
		{"hex lower", "&#x41;", 0, "A", 6, true, false},
		{"hex upper", "&#X41;", 0, "A", 6, true, false},
		{"unterminated within 32 bytes", "&amp", 0, "", 0, false, false},
		{"unknown named", "&foo;", 0, "&", 1, true, true},
		{"empty name", "&;", 0, "&", 1, true, true},
		{"out of range codepoint", "&#99999999;", 0, "&", 1, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, next, done, malformed := decodeEntity([]byte(tt.input), tt.start)
			if done != tt.wantDone {
				t.Fatalf("done = %v, want %v", done, tt.wantDone)
			}
			if !done {
				return
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if next != tt.wantNext {
				t.Errorf("next = %d, want %d", next, tt.wantNext)
			}
			if malformed != tt.wantMalformed {
				t.Errorf("malformed = %v, want %v", malformed, tt.wantMalformed)
			}
		})
	}
}

func TestDecodeEntity_LongRunWithNoSemicolon(t *testing.T) {
	input := "&" + string(make([]byte, 40)) + ";"
	text, next, done, malformed := decodeEntity([]byte(input), 0)
	if !done || next != 1 || text != "&" || !malformed {
		t.Fatalf("got text=%q next=%d done=%v malformed=%v", text, next, done, malformed)
	}
}

func TestDecodeEntity_NotAnEntity(t *testing.T) {
	_, _, done, _ := decodeEntity([]byte("x"), 0)
	if done {
		t.Fatal("expected done=false when data[i] is not '&'")
	}
}
