package jsonschemaprovider

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsehive/tagstream/pkg/schema"
)

func TestProvider_BuildRecord(t *testing.T) {
	s := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"title": {Type: "string"},
			"count": {Type: "integer"},
		},
		Required: []string{"title"},
	}

	p := New()
	n, err := p.Describe(s)
	require.NoError(t, err)
	require.Equal(t, schema.KindRecord, n.Kind)
	require.Len(t, n.Fields, 2)

	title, ok := n.FieldByWire("title")
	require.True(t, ok)
	assert.False(t, title.Optional)
	assert.Equal(t, schema.KindScalar, title.Type.Kind)

	count, ok := n.FieldByWire("count")
	require.True(t, ok)
	assert.True(t, count.Optional)
}

func TestProvider_BuildSequence(t *testing.T) {
	s := &jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Type: "string"},
	}
	p := New()
	n, err := p.Describe(s)
	require.NoError(t, err)
	assert.Equal(t, schema.KindSequence, n.Kind)
	assert.Equal(t, schema.ScalarString, n.Elem.Scalar)
}

func TestProvider_BuildUnion(t *testing.T) {
	s := &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "object", Title: "circle", Properties: map[string]*jsonschema.Schema{"radius": {Type: "number"}}},
			{Type: "object", Title: "square", Properties: map[string]*jsonschema.Schema{"side": {Type: "number"}}},
		},
	}
	p := New()
	n, err := p.Describe(s)
	require.NoError(t, err)
	require.Equal(t, schema.KindUnion, n.Kind)
	require.Len(t, n.Variants, 2)

	v, ok := p.ResolveVariant(n, "circle")
	require.True(t, ok)
	assert.Equal(t, "circle", v.Name)
}

func TestProvider_RegisterAndResolveAlias(t *testing.T) {
	p := New()
	_, err := p.Register("widget", &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
		"name": {Type: "string"},
	}})
	require.NoError(t, err)

	n, ok := p.ResolveAlias("widget")
	require.True(t, ok)
	assert.Equal(t, schema.KindRecord, n.Kind)
}

func TestProvider_DescribeRejectsNonSchema(t *testing.T) {
	p := New()
	_, err := p.Describe("not a schema")
	assert.Error(t, err)
}
