package resolve

import (
	"sort"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/rmannibucau/therian/typeexpr"
)

// SubstitutionMap records, for every placeholder reachable in a type's
// ancestor hierarchy, the type expression assigned to it at the point the
// declaring entity is referenced. A placeholder assigned another placeholder
// is an alias that must be unrolled to reach a concrete type.
type SubstitutionMap map[*typeexpr.Placeholder]typeexpr.Type

// SubstitutionsFor walks t's full ancestor hierarchy (supertype chain and
// interfaces, each interface visited at most once per walk) and collects the
// assignment of every ancestor entity's declared placeholders to the type
// arguments supplied at that point in the hierarchy. Raw references
// contribute no assignments for their own parameters.
func SubstitutionsFor(t typeexpr.Type) SubstitutionMap {
	result := SubstitutionMap{}
	spider(result, map[*typeexpr.Entity]bool{}, t)

	return result
}

func spider(result SubstitutionMap, seenIfaces map[*typeexpr.Entity]bool, t typeexpr.Type) {
	named, ok := t.(*typeexpr.Named)
	if !ok || named == nil {
		return
	}
	entity := named.Entity
	if len(named.Args) > 0 {
		for i, p := range entity.Params() {
			result[p] = named.Args[i]
		}
	}
	if entity.IsInterface() {
		if seenIfaces[entity] {
			return
		}
		seenIfaces[entity] = true
	}
	for _, iface := range entity.Interfaces() {
		spider(result, seenIfaces, iface)
	}
	if super := entity.Super(); super != nil {
		spider(result, seenIfaces, super)
	}
}

// Inverse returns the placeholder-to-placeholder alias map: for every entry
// whose value is itself a placeholder, the inverse entry. It is used to
// propagate explicit bindings found at a descendant placeholder up to
// ancestor placeholders that merely forward it.
func (m SubstitutionMap) Inverse() SubstitutionMap {
	result := SubstitutionMap{}
	for p, t := range m {
		if alias, ok := t.(*typeexpr.Placeholder); ok {
			result[alias] = p
		}
	}

	return result
}

// Unroll follows substitutions from p until a non-placeholder expression is
// reached. It returns nil when the chain ends at an unbound placeholder: an
// entity may legitimately leave a parameter unbound, and the caller must
// treat the type as unknown rather than as an error. Placeholders nested in
// the arguments of the final expression are substituted where a mapping
// exists and kept as-is otherwise.
func (m SubstitutionMap) Unroll(p *typeexpr.Placeholder) typeexpr.Type {
	seen := map[*typeexpr.Placeholder]bool{}
	cur := p
	for {
		if seen[cur] {
			return nil
		}
		seen[cur] = true
		t, ok := m[cur]
		if !ok {
			return nil
		}
		next, isPlaceholder := t.(*typeexpr.Placeholder)
		if !isPlaceholder {
			return m.apply(t, seen)
		}
		cur = next
	}
}

// apply substitutes placeholders nested inside t, leaving unmapped ones
// untouched. seen guards against substitution cycles.
func (m SubstitutionMap) apply(t typeexpr.Type, seen map[*typeexpr.Placeholder]bool) typeexpr.Type {
	switch tt := t.(type) {
	case *typeexpr.Placeholder:
		if seen[tt] {
			return tt
		}
		seen[tt] = true
		if next, ok := m[tt]; ok {
			return m.apply(next, seen)
		}

		return tt
	case *typeexpr.Named:
		if len(tt.Args) == 0 {
			return tt
		}
		args := make([]typeexpr.Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = m.apply(a, seen)
		}

		return &typeexpr.Named{Entity: tt.Entity, Args: args}
	case *typeexpr.Wildcard:
		return &typeexpr.Wildcard{
			Upper: m.applySlice(tt.Upper, seen),
			Lower: m.applySlice(tt.Lower, seen),
		}
	case *typeexpr.ArrayOf:
		return &typeexpr.ArrayOf{Component: m.apply(tt.Component, seen)}
	default:
		return t
	}
}

func (m SubstitutionMap) applySlice(ts []typeexpr.Type, seen map[*typeexpr.Placeholder]bool) []typeexpr.Type {
	if ts == nil {
		return nil
	}
	out := make([]typeexpr.Type, len(ts))
	for i, t := range ts {
		out[i] = m.apply(t, seen)
	}

	return out
}

// String renders the map deterministically, for logging.
func (m SubstitutionMap) String() string {
	keys := maps.Keys(m)
	sort.Slice(keys, func(i, j int) bool {
		return keyString(keys[i]) < keyString(keys[j])
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = keyString(k) + "=" + m[k].String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func keyString(p *typeexpr.Placeholder) string {
	declarer := "?"
	if p.Declarer != nil {
		declarer = p.Declarer.Name()
	}

	return declarer + "." + p.Name
}
