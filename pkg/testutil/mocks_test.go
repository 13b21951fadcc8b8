package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parsehive/tagstream/pkg/builder"
	"github.com/parsehive/tagstream/pkg/schema"
)

func TestMockBuilder_RecordAndContainerRoundTrip(t *testing.T) {
	b := &MockBuilder{}
	rec := &schema.Node{Kind: schema.KindRecord, Name: "widget"}
	field := schema.Field{Declared: "name", Wire: "name"}

	h, err := b.NewRecord(rec)
	require.NoError(t, err)
	require.NoError(t, b.SetField(h, field, "gizmo"))

	rh := h.(*recordHandle)
	require.Equal(t, "gizmo", rh.fields["name"])
	require.Len(t, b.NewRecordCalls, 1)
	require.Len(t, b.SetFieldCalls, 1)
	require.Equal(t, "gizmo", b.SetFieldCalls[0].Value)

	seq := &schema.Node{Kind: schema.KindSequence, Elem: &schema.Node{Kind: schema.KindScalar, Scalar: schema.ScalarString}}
	ch, err := b.NewContainer(seq)
	require.NoError(t, err)
	require.NoError(t, b.Append(ch, "a"))
	require.NoError(t, b.Append(ch, "b"))

	out, err := b.Finalize(ch)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, out.(*containerHandle).items)
}

func TestMockBuilder_TupleSetOutOfRange(t *testing.T) {
	b := &MockBuilder{}
	tup := &schema.Node{Kind: schema.KindTuple, Items: []*schema.Node{{Kind: schema.KindScalar}}}
	h, err := b.NewContainer(tup)
	require.NoError(t, err)
	require.Error(t, b.TupleSet(h, 5, "x"))
}

func TestMockProvider_DelegatesAndTracksCalls(t *testing.T) {
	called := &schema.Node{Kind: schema.KindRecord, Name: "widget"}
	p := &MockProvider{
		DescribeFunc: func(target any) (*schema.Node, error) { return called, nil },
		ResolveVariantFunc: func(union *schema.Node, tagName string) (*schema.Node, bool) {
			return nil, tagName == "known"
		},
	}

	n, err := p.Describe(struct{}{})
	require.NoError(t, err)
	require.Same(t, called, n)

	_, ok := p.ResolveVariant(nil, "known")
	require.True(t, ok)
	_, ok = p.ResolveVariant(nil, "unknown")
	require.False(t, ok)

	require.Equal(t, []string{"known", "unknown"}, p.ResolveVariantCalls)

	var _ builder.Builder = &MockBuilder{}
}
