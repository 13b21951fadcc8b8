package parser

import (
	"github.com/parsehive/tagstream/pkg/diag"
	"github.com/parsehive/tagstream/pkg/schema"
)

// unwrapOptional strips a single layer of KindOptional, returning the
// element type and whether one was present.
func unwrapOptional(n *schema.Node) (*schema.Node, bool) {
	if n != nil && n.Kind == schema.KindOptional {
		return n.Elem, true
	}
	return n, false
}

// resolveUnion picks the concrete variant of a union at the three
// discriminator levels, in priority order:
//
//  1. an explicit `type="..."` attribute, resolved through the provider's
//     alias table and matched against the union's own variants;
//  2. a nominal match between the opening tag's name and a variant's name;
//  3. a structural match: the variant whose field set is a superset of the
//     wire names observed so far on this frame.
//
// It never fails outright: when nothing matches it returns (nil, nil) and
// lets the caller decide (strict-mode error vs. best-effort Any).
func resolveUnion(provider schema.Provider, union *schema.Node, explicitType, tagName string, seenWireNames []string, selector Selector) (*schema.Node, *diag.Diagnostic) {
	if explicitType != "" {
		expr := schema.ParseTypeExpr(explicitType)
		for _, name := range expr.Names() {
			if v, ok := provider.ResolveVariant(union, name); ok {
				return v, nil
			}
			if v, ok := provider.ResolveAlias(name); ok && variantOf(union, v) {
				return v, nil
			}
		}
	}

	if v, ok := provider.ResolveVariant(union, tagName); ok {
		return v, nil
	}

	if len(seenWireNames) == 0 {
		// No children observed yet: every record variant matches an empty
		// field set vacuously, so resolving now would just be an
		// arbitrary pick. Wait for at least one child wire name.
		return nil, nil
	}

	candidates := structuralCandidates(union, seenWireNames)
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		chosen := names[0]
		if selector != nil {
			if picked := selector(names); picked != "" {
				chosen = picked
			}
		}
		for _, c := range candidates {
			if c.Name == chosen {
				return c, diag.AmbiguousVariant(diag.Span{}, "", chosen)
			}
		}
		return candidates[0], diag.AmbiguousVariant(diag.Span{}, "", chosen)
	}
}

func variantOf(union *schema.Node, candidate *schema.Node) bool {
	for _, v := range union.Variants {
		if v == candidate {
			return true
		}
	}
	return false
}

// structuralCandidates returns every Record variant whose field set is a
// superset of seenWireNames, preserving the union's declared variant order.
func structuralCandidates(union *schema.Node, seenWireNames []string) []*schema.Node {
	var out []*schema.Node
	for _, v := range union.Variants {
		if v.Kind != schema.KindRecord {
			continue
		}
		if coversAll(v, seenWireNames) {
			out = append(out, v)
		}
	}
	return out
}

// findUnionFieldByVariantName looks for a not-yet-populated field on record
// whose (optional-unwrapped) type is a union with a variant named tagName.
// This is what lets a union-typed field be written without any wrapper
// tag of its own: the variant's own name serves as both the field
// selector and the discriminator, e.g. <circle><radius>3</radius></circle>
// filling a field declared as `Shape Shape`.
func findUnionFieldByVariantName(record *schema.Node, tagName string, populated map[string]bool) (schema.Field, *schema.Node, bool) {
	for _, f := range record.Fields {
		if populated[f.Wire] {
			continue
		}
		target, _ := unwrapOptional(f.Type)
		if target.Kind != schema.KindUnion {
			continue
		}
		for _, v := range target.Variants {
			if v.Name == tagName {
				return f, v, true
			}
		}
	}
	return schema.Field{}, nil, false
}

func coversAll(record *schema.Node, wireNames []string) bool {
	for _, name := range wireNames {
		if _, ok := record.FieldByWire(name); !ok {
			return false
		}
	}
	return true
}
