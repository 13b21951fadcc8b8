package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parsehive/tagstream/pkg/builder"
	"github.com/parsehive/tagstream/pkg/diag"
	"github.com/parsehive/tagstream/pkg/schema"
)

func newEngine(t *testing.T, target any, register func(p *schema.ReflectProvider)) *Engine {
	t.Helper()
	p := schema.NewReflectProvider("tag")
	if register != nil {
		register(p)
	}
	e, err := New(target, p, builder.NewReflectBuilder(), DefaultOptions())
	require.NoError(t, err)
	return e
}

type report struct {
	Title string   `tag:"title"`
	Count int      `tag:"count"`
	Tags  []string `tag:"tags"`
}

func TestEngine_BasicFields(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<title>Q3 results</title><count>42</count>`)))
	require.NoError(t, e.Feed([]byte(`<tags><item>red</item><item>blue</item></tags>`)))

	_, err := e.Finalize()
	require.NoError(t, err)
	require.True(t, e.IsComplete())
	require.Empty(t, e.Diagnostics())

	require.Equal(t, "Q3 results", out.Title)
	require.Equal(t, 42, out.Count)
	require.Equal(t, []string{"red", "blue"}, out.Tags)
}

func TestEngine_ByteAtATime(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	full := `<title>hi</title><count>7</count><tags><item>a</item></tags>`
	for i := 0; i < len(full); i++ {
		require.NoError(t, e.Feed([]byte{full[i]}))
	}
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "hi", out.Title)
	require.Equal(t, 7, out.Count)
	require.Equal(t, []string{"a"}, out.Tags)
}

func TestEngine_StickyFieldInvariant(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<title>first</title><title>second</title>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "first", out.Title)
}

func TestEngine_PartialViewIsLive(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<title>partial</title>`)))
	partial := e.Partial().(*report)
	require.Equal(t, "partial", partial.Title)
	require.Equal(t, 0, partial.Count) // not yet fed, valid zero shape

	require.NoError(t, e.Feed([]byte(`<count>9</count>`)))
	require.Equal(t, 9, partial.Count) // same pointer, now updated
}

func TestEngine_UnexpectedTagRecordsDiagnosticNonStrict(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<bogus>ignored</bogus><title>kept</title>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "kept", out.Title)
	require.NotEmpty(t, e.Diagnostics())
}

func TestEngine_UnexpectedTagFailsStrict(t *testing.T) {
	var out report
	p := schema.NewReflectProvider("tag")
	e, err := New(&out, p, builder.NewReflectBuilder(), DefaultOptions().WithStrictMode(true))
	require.NoError(t, err)

	err = e.Feed([]byte(`<bogus>x</bogus>`))
	require.ErrorIs(t, err, diag.ErrUnexpectedTag)
}

type inner struct {
	V string `tag:"v"`
}

type withOptional struct {
	Inner *inner `tag:"inner"`
}

func TestEngine_OptionalContainerFieldOmitted(t *testing.T) {
	var out withOptional
	e := newEngine(t, &out, nil)
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Nil(t, out.Inner)
}

func TestEngine_OptionalContainerFieldPresent(t *testing.T) {
	var out withOptional
	e := newEngine(t, &out, nil)
	require.NoError(t, e.Feed([]byte(`<inner><v>hi</v></inner>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.NotNil(t, out.Inner)
	require.Equal(t, "hi", out.Inner.V)
}

func TestEngine_IncompleteInputFailsFinalize(t *testing.T) {
	var out withOptional
	e := newEngine(t, &out, nil)
	require.NoError(t, e.Feed([]byte(`<inner><v>hi</v>`))) // never closed
	_, err := e.Finalize()
	require.Error(t, err)
}

type shapeIface interface{ isShape() }

type circle struct {
	Radius float64 `tag:"radius"`
}

func (circle) isShape() {}

type square struct {
	Side float64 `tag:"side"`
}

func (square) isShape() {}

type shapeHolder struct {
	Shape shapeIface `tag:"shape"`
}

func newShapeEngine(t *testing.T, out *shapeHolder) *Engine {
	t.Helper()
	p := schema.NewReflectProvider("tag")
	p.RegisterUnion((*shapeIface)(nil), circle{}, square{})
	e, err := New(out, p, builder.NewReflectBuilder(), DefaultOptions())
	require.NoError(t, err)
	return e
}

func TestEngine_UnionExplicitTypeAttribute(t *testing.T) {
	var out shapeHolder
	e := newShapeEngine(t, &out)

	require.NoError(t, e.Feed([]byte(`<shape type="circle"><radius>2.5</radius></shape>`)))
	_, err := e.Finalize()
	require.NoError(t, err)

	c, ok := out.Shape.(circle)
	require.True(t, ok)
	require.Equal(t, 2.5, c.Radius)
}

func TestEngine_UnionNominalTagMatch(t *testing.T) {
	var out shapeHolder
	e := newShapeEngine(t, &out)

	require.NoError(t, e.Feed([]byte(`<circle><radius>3</radius></circle>`)))
	_, err := e.Finalize()
	require.NoError(t, err)

	c, ok := out.Shape.(circle)
	require.True(t, ok)
	require.Equal(t, float64(3), c.Radius)
}

func TestEngine_SelfClosingScalarFieldIsEmpty(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<title/><count>5</count>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "", out.Title)
	require.Equal(t, 5, out.Count)
}

func TestEngine_SelfClosingContainerFieldDoesNotSwallowSiblings(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<tags/><title>after</title>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Empty(t, out.Tags)
	require.Equal(t, "after", out.Title)
}

func TestEngine_SelfClosingContainerItemAppendsEmptyValue(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<tags><item/><item>b</item></tags>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, []string{"", "b"}, out.Tags)
}

func TestEngine_ScalarTrimsWhitespaceByDefault(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<title>  hi  </title>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "hi", out.Title)
}

func TestEngine_ScalarPreservesWhitespaceInCData(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<title><![CDATA[  hi  ]]></title>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "  hi  ", out.Title)
}

func TestEngine_CoercionFailureLeavesFieldUnsetForLaterValidWrite(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<count>not-a-number</count><count>9</count>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, 9, out.Count)
	require.NotEmpty(t, e.Diagnostics())
}

func TestEngine_ChangedReportsMutationsAndResets(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.False(t, e.Changed())
	require.NoError(t, e.Feed([]byte(`<title>hi</title>`)))
	require.True(t, e.Changed())
	require.False(t, e.Changed()) // consumed; no new mutation since

	require.NoError(t, e.Feed([]byte(`<count>1</count>`)))
	require.True(t, e.Changed())
}

func TestEngine_ChangedRespectsThrottle(t *testing.T) {
	var out report
	p := schema.NewReflectProvider("tag")
	e, err := New(&out, p, builder.NewReflectBuilder(), DefaultOptions())
	require.NoError(t, err)
	e.WithThrottle(NewChangeThrottle(time.Hour))

	require.NoError(t, e.Feed([]byte(`<title>hi</title>`)))
	require.True(t, e.Changed()) // first notification always allowed (burst of 1)

	require.NoError(t, e.Feed([]byte(`<count>1</count>`)))
	require.False(t, e.Changed()) // throttled, but stays pending
}

func TestEngine_DefaultMaxDepthIsEnforced(t *testing.T) {
	var out withOptional
	p := schema.NewReflectProvider("tag")
	e, err := New(&out, p, builder.NewReflectBuilder(), DefaultOptions())
	require.NoError(t, err)

	var open strings.Builder
	for i := 0; i < 130; i++ {
		open.WriteString(`<inner>`)
	}
	err = e.Feed([]byte(open.String()))
	require.ErrorIs(t, err, diag.ErrDepthExceeded)
}

func TestEngine_DefaultIgnoredTagsSkipReasoningPreamble(t *testing.T) {
	var out report
	e := newEngine(t, &out, nil)

	require.NoError(t, e.Feed([]byte(`<think>ignore <think>nested</think> me</think><title>kept</title>`)))
	_, err := e.Finalize()
	require.NoError(t, err)
	require.Equal(t, "kept", out.Title)
	require.Empty(t, e.Diagnostics())
}

func TestEngine_UnionStructuralMatch(t *testing.T) {
	var out shapeHolder
	e := newShapeEngine(t, &out)

	// Wrapper tag name "shape" matches neither variant's name, and there's
	// no explicit type attribute: resolution falls through to the
	// structural match once "radius" is seen as a child wire name.
	require.NoError(t, e.Feed([]byte(`<shape><radius>1.5</radius></shape>`)))
	_, err := e.Finalize()
	require.NoError(t, err)

	c, ok := out.Shape.(circle)
	require.True(t, ok)
	require.Equal(t, 1.5, c.Radius)
}
