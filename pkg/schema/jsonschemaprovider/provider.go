// Package jsonschemaprovider implements schema.Provider over a JSON Schema
// document instead of Go reflection, for callers whose type model comes
// from a tool/function-call schema rather than a Go struct.
package jsonschemaprovider

import (
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/parsehive/tagstream/pkg/schema"
)

// Provider derives schema.Node descriptions from *jsonschema.Schema
// documents. Unlike ReflectProvider it carries no backing Go type, so
// Node.GoType is left nil throughout: callers pairing this with
// builder.ReflectBuilder need a builder that doesn't depend on it (a
// builder.Builder implementation the caller supplies for dynamic targets,
// e.g. map[string]any).
type Provider struct {
	named map[string]*schema.Node
}

// New creates an empty Provider. Named root schemas are added with Register.
func New() *Provider {
	return &Provider{named: make(map[string]*schema.Node)}
}

// Register describes root and makes it resolvable by name (for
// ResolveAlias and as a union variant target). name is typically the
// schema's own Title, or a caller-chosen discriminator tag.
func (p *Provider) Register(name string, root *jsonschema.Schema) (*schema.Node, error) {
	n, err := p.build(root, name)
	if err != nil {
		return nil, fmt.Errorf("jsonschemaprovider: registering %q: %w", name, err)
	}
	p.named[name] = n
	return n, nil
}

// Describe implements schema.Provider. target must be a *jsonschema.Schema
// (Register handles the named-root case; this handles ad hoc ones, e.g.
// the engine's root type).
func (p *Provider) Describe(target any) (*schema.Node, error) {
	s, ok := target.(*jsonschema.Schema)
	if !ok {
		return nil, fmt.Errorf("jsonschemaprovider: Describe expects *jsonschema.Schema, got %T", target)
	}
	return p.build(s, "")
}

// ResolveVariant implements schema.Provider: matches a union member by its
// nominal Name (the variant's Title, or its Register name) against tagName.
func (p *Provider) ResolveVariant(union *schema.Node, tagName string) (*schema.Node, bool) {
	if union == nil {
		return nil, false
	}
	for _, v := range union.Variants {
		if v.Name == tagName {
			return v, true
		}
	}
	return nil, false
}

// ResolveAlias implements schema.Provider by looking up a name passed to
// Register.
func (p *Provider) ResolveAlias(name string) (*schema.Node, bool) {
	n, ok := p.named[name]
	return n, ok
}

func (p *Provider) build(s *jsonschema.Schema, name string) (*schema.Node, error) {
	if s == nil {
		return &schema.Node{Kind: schema.KindAny}, nil
	}

	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 {
		return p.buildUnion(s, name)
	}

	switch s.Type {
	case "object":
		return p.buildRecord(s, name)
	case "array":
		elem, err := p.build(s.Items, "")
		if err != nil {
			return nil, err
		}
		return &schema.Node{Kind: schema.KindSequence, Name: name, Elem: elem}, nil
	case "string":
		return &schema.Node{Kind: schema.KindScalar, Name: name, Scalar: schema.ScalarString}, nil
	case "integer":
		return &schema.Node{Kind: schema.KindScalar, Name: name, Scalar: schema.ScalarInteger}, nil
	case "number":
		return &schema.Node{Kind: schema.KindScalar, Name: name, Scalar: schema.ScalarFloat}, nil
	case "boolean":
		return &schema.Node{Kind: schema.KindScalar, Name: name, Scalar: schema.ScalarBool}, nil
	case "":
		return &schema.Node{Kind: schema.KindAny, Name: name}, nil
	default:
		return nil, fmt.Errorf("jsonschemaprovider: unsupported schema type %q", s.Type)
	}
}

func (p *Provider) buildUnion(s *jsonschema.Schema, name string) (*schema.Node, error) {
	alts := s.OneOf
	if len(alts) == 0 {
		alts = s.AnyOf
	}
	u := &schema.Node{Kind: schema.KindUnion, Name: name}
	for i, alt := range alts {
		variantName := alt.Title
		if variantName == "" {
			variantName = fmt.Sprintf("%s#%d", name, i)
		}
		vn, err := p.build(alt, variantName)
		if err != nil {
			return nil, err
		}
		u.Variants = append(u.Variants, vn)
	}
	return u, nil
}

func (p *Provider) buildRecord(s *jsonschema.Schema, name string) (*schema.Node, error) {
	if name == "" {
		name = s.Title
	}
	rec := &schema.Node{Kind: schema.KindRecord, Name: name}

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}

	declared := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		declared = append(declared, k)
	}
	sort.Strings(declared)

	for _, k := range declared {
		fn, err := p.build(s.Properties[k], "")
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		rec.Fields = append(rec.Fields, schema.Field{
			Declared: k,
			Wire:     schema.WireName(k),
			Type:     fn,
			Optional: !required[k],
		})
	}
	return rec, nil
}
