package scanner

import (
	"testing"
)

func collectText(events []Event) string {
	out := ""
	for _, e := range events {
		if e.Kind == Text || e.Kind == CData {
			out += e.Text
		}
	}
	return out
}

func TestScanner_SimpleStartEndText(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<outer><name>hi</name></outer>`))

	want := []Kind{Start, Start, Text, End, End}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d: kind = %v, want %v", i, events[i].Kind, k)
		}
	}
	if events[0].Name != "outer" || events[1].Name != "name" {
		t.Errorf("unexpected tag names: %+v %+v", events[0], events[1])
	}
	if events[2].Text != "hi" {
		t.Errorf("text = %q, want %q", events[2].Text, "hi")
	}
}

func TestScanner_SelfClosing(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<br/><img src="x.png" />`))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	for _, e := range events {
		if e.Kind != Start || !e.SelfClosing {
			t.Errorf("expected self-closing Start, got %+v", e)
		}
	}
	if v, ok := events[1].Attr("src"); !ok || v != "x.png" {
		t.Errorf("attr src = %q, %v", v, ok)
	}
}

func TestScanner_SplitMidTag(t *testing.T) {
	full := `<outer attr="value">body</outer>`
	for i := 1; i < len(full); i++ {
		s := New(nil)
		var all []Event
		all = append(all, s.Feed([]byte(full[:i]))...)
		all = append(all, s.Feed([]byte(full[i:]))...)

		if len(all) != 3 {
			t.Fatalf("split at %d: got %d events, want 3: %+v", i, len(all), all)
		}
		if all[0].Kind != Start || all[0].Name != "outer" {
			t.Fatalf("split at %d: first event = %+v", i, all[0])
		}
		if v, _ := all[0].Attr("attr"); v != "value" {
			t.Fatalf("split at %d: attr = %q", i, v)
		}
		if all[1].Kind != Text || all[1].Text != "body" {
			t.Fatalf("split at %d: text event = %+v", i, all[1])
		}
		if all[2].Kind != End || all[2].Name != "outer" {
			t.Fatalf("split at %d: end event = %+v", i, all[2])
		}
	}
}

func TestScanner_SplitMidEntity(t *testing.T) {
	s := New(nil)
	var all []Event
	all = append(all, s.Feed([]byte("a &am"))...)
	all = append(all, s.Feed([]byte("p; b"))...)

	got := collectText(all)
	if got != "a & b" {
		t.Fatalf("collected text = %q, want %q (events: %+v)", got, "a & b", all)
	}
}

func TestScanner_SplitMidEntity_ByteAtATime(t *testing.T) {
	s := New(nil)
	input := "x&amp;y"
	var all []Event
	for i := 0; i < len(input); i++ {
		all = append(all, s.Feed([]byte{input[i]})...)
	}
	got := collectText(all)
	if got != "x&y" {
		t.Fatalf("collected text = %q, want %q", got, "x&y")
	}
}

func TestScanner_UnknownEntityEmitsDiagnosticAndLiteral(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte("hello &bogus; world"))

	var sawDiag bool
	for _, e := range events {
		if e.Kind == ScannerError {
			sawDiag = true
			if e.Diagnostic == nil {
				t.Errorf("ScannerError event missing Diagnostic")
			}
		}
	}
	if !sawDiag {
		t.Fatalf("expected a ScannerError diagnostic event, got %+v", events)
	}
	if collectText(events) != "hello & world" {
		t.Errorf("collected text = %q", collectText(events))
	}
}

func TestScanner_CData(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<code><![CDATA[if (a < b) { return "ok"; }]]></code>`))

	var cdata string
	for _, e := range events {
		if e.Kind == CData {
			cdata += e.Text
		}
	}
	want := `if (a < b) { return "ok"; }`
	if cdata != want {
		t.Errorf("cdata = %q, want %q", cdata, want)
	}
}

func TestScanner_CDataSplitMidMarker(t *testing.T) {
	full := `<code><![CDATA[payload]]></code>`
	splitPoints := []int{len("<code><![CD"), len("<code><![CDATA[payload]"), len("<code><![CDATA[payload]]")}
	for _, i := range splitPoints {
		s := New(nil)
		var all []Event
		all = append(all, s.Feed([]byte(full[:i]))...)
		all = append(all, s.Feed([]byte(full[i:]))...)

		cdata := ""
		for _, e := range all {
			if e.Kind == CData {
				cdata += e.Text
			}
		}
		if cdata != "payload" {
			t.Errorf("split at %d: cdata = %q, want %q (events: %+v)", i, cdata, "payload", all)
		}
	}
}

func TestScanner_IgnoredTagSameNameNesting(t *testing.T) {
	s := New([]string{"think"})
	events := s.Feed([]byte(`<a>before</a><think>outer<think>inner</think>still ignored</think><a>after</a>`))

	var names []string
	var texts []string
	for _, e := range events {
		switch e.Kind {
		case Start, End:
			names = append(names, e.Name)
		case Text:
			texts = append(texts, e.Text)
		}
	}
	wantNames := []string{"a", "a", "a", "a"}
	if len(names) != len(wantNames) {
		t.Fatalf("names = %v, want %v", names, wantNames)
	}
	wantTexts := []string{"before", "after"}
	if len(texts) != len(wantTexts) || texts[0] != "before" || texts[1] != "after" {
		t.Fatalf("texts = %v, want %v", texts, wantTexts)
	}
}

func TestScanner_IgnoredTagSelfClosingNeverOpensRegion(t *testing.T) {
	s := New([]string{"think"})
	events := s.Feed([]byte(`<a><think/>body</a>`))

	var texts []string
	for _, e := range events {
		if e.Kind == Text {
			texts = append(texts, e.Text)
		}
	}
	if len(texts) != 1 || texts[0] != "body" {
		t.Fatalf("texts = %v, want [body]", texts)
	}
}

func TestScanner_ByteAtATimeEquivalence(t *testing.T) {
	full := `<root><item id="1">one</item><item id="2">two</item></root>`

	whole := New(nil).Feed([]byte(full))

	s := New(nil)
	var piecewise []Event
	for i := 0; i < len(full); i++ {
		piecewise = append(piecewise, s.Feed([]byte{full[i]})...)
	}

	if len(whole) != len(piecewise) {
		t.Fatalf("whole produced %d events, piecewise produced %d", len(whole), len(piecewise))
	}
	for i := range whole {
		if whole[i].Kind != piecewise[i].Kind || whole[i].Name != piecewise[i].Name || whole[i].Text != piecewise[i].Text {
			t.Errorf("event %d differs: whole=%+v piecewise=%+v", i, whole[i], piecewise[i])
		}
	}
}

func TestScanner_DuplicateAttributeLastWins(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<item key="a" key="b"/>`))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	v, ok := events[0].Attr("key")
	if !ok || v != "b" {
		t.Errorf("attr key = %q, %v, want %q", v, ok, "b")
	}
	if len(events[0].Attrs) != 1 {
		t.Errorf("expected deduplicated attrs, got %+v", events[0].Attrs)
	}
}

func TestScanner_Comment(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<a>before<!-- a <b>fake</b> comment -->after</a>`))
	if collectText(events) != "beforeafter" {
		t.Errorf("text = %q", collectText(events))
	}
}

func TestScanner_Declaration(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<?xml version="1.0"?><root>hi</root>`))
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Kind != Start || events[0].Name != "root" {
		t.Errorf("first event should be Start root, got %+v", events[0])
	}
}

func TestScanner_MalformedTagAdvancesAndRecovers(t *testing.T) {
	s := New(nil)
	events := s.Feed([]byte(`<></root>text`))

	var sawDiag bool
	for _, e := range events {
		if e.Kind == ScannerError {
			sawDiag = true
		}
	}
	if !sawDiag {
		t.Fatalf("expected a ScannerError diagnostic, got %+v", events)
	}
}
