package resolve

import (
	"github.com/rmannibucau/therian/typeexpr"
)

// Refine normalizes a declared type to a concrete one: a placeholder or a
// wildcard becomes its first upper bound, or the unbounded root type when it
// declares none. Other expressions are returned unchanged.
func Refine(t typeexpr.Type) typeexpr.Type {
	switch tt := t.(type) {
	case *typeexpr.Placeholder:
		return firstBound(tt.Bounds)
	case *typeexpr.Wildcard:
		return firstBound(tt.Upper)
	default:
		return t
	}
}

func firstBound(bounds []typeexpr.Type) typeexpr.Type {
	for _, b := range bounds {
		if b != nil {
			// a bound may itself need normalization
			return Refine(b)
		}
	}

	return typeexpr.Any()
}

// Assignable reports whether a value of type from can be used where type to
// is expected, walking the entity hierarchy and honoring wildcard bounds.
// Raw generic references are permissive: a raw List is assignable to
// Collection<X> for any X, mirroring unchecked assignment semantics.
func Assignable(from, to typeexpr.Type) bool {
	if from == nil || to == nil {
		return false
	}
	if typeexpr.IsAny(to) {
		return true
	}
	if typeexpr.Equal(from, to) {
		return true
	}

	switch target := to.(type) {
	case *typeexpr.Wildcard:
		for _, u := range target.Upper {
			if !Assignable(from, u) {
				return false
			}
		}
		for _, l := range target.Lower {
			if !Assignable(l, from) {
				return false
			}
		}

		return true
	case *typeexpr.Placeholder:
		// a distinct placeholder accepts only types within its bounds
		return Assignable(from, Refine(target))
	case *typeexpr.ArrayOf:
		source, ok := normalize(from).(*typeexpr.ArrayOf)

		return ok && Assignable(source.Component, target.Component)
	case *typeexpr.Named:
		return assignableToNamed(normalize(from), target)
	default:
		return false
	}
}

// normalize refines placeholders and wildcards appearing in source position.
func normalize(t typeexpr.Type) typeexpr.Type {
	switch t.(type) {
	case *typeexpr.Placeholder, *typeexpr.Wildcard:
		return Refine(t)
	default:
		return t
	}
}

func assignableToNamed(from typeexpr.Type, to *typeexpr.Named) bool {
	source, ok := from.(*typeexpr.Named)
	if !ok {
		return false
	}

	if !descendsFrom(source.Entity, to.Entity) {
		return false
	}
	if len(to.Args) == 0 {
		// raw or non-generic target: hierarchy membership is enough
		return true
	}
	if source.Raw() {
		// raw source assigned to a parameterized target: unchecked, allowed
		return true
	}

	subst := SubstitutionsFor(source)
	toParams := to.Entity.Params()
	for i, want := range to.Args {
		actual := subst.Unroll(toParams[i])
		if actual == nil {
			// unbound along this path: unknown, treated permissively
			continue
		}
		if !argCompatible(actual, want) {
			return false
		}
	}

	return true
}

// argCompatible checks a type argument against the one the target declares:
// a wildcard contains any type within its bounds, any other argument accepts
// by assignability. Argument positions are deliberately covariant here —
// dispatch asks "can a value of the actual type be handled where the
// declared type is expected", not whether the parameterized types are
// interchangeable.
func argCompatible(actual, want typeexpr.Type) bool {
	if w, ok := want.(*typeexpr.Wildcard); ok {
		for _, u := range w.Upper {
			if !Assignable(actual, u) {
				return false
			}
		}
		for _, l := range w.Lower {
			if !Assignable(l, actual) {
				return false
			}
		}

		return true
	}

	return Assignable(actual, want)
}

// descendsFrom reports whether entity is, or has among its ancestors, target.
func descendsFrom(entity, target *typeexpr.Entity) bool {
	if entity == nil || target == nil {
		return false
	}
	seen := map[*typeexpr.Entity]bool{}
	var walk func(e *typeexpr.Entity) bool
	walk = func(e *typeexpr.Entity) bool {
		if e == nil || seen[e] {
			return false
		}
		seen[e] = true
		if e == target {
			return true
		}
		for _, iface := range e.Interfaces() {
			if walk(iface.Entity) {
				return true
			}
		}
		if super := e.Super(); super != nil {
			return walk(super.Entity)
		}

		return false
	}

	return walk(entity)
}

// NarrowestParameterized returns the most specific Named expression that
// matches concrete and is parameterized consistently with ancestor, which
// must reference concrete itself or one of its ancestors. It is used to
// re-parameterize a raw runtime entity before resolving placeholders against
// it. A nil concrete returns ancestor unchanged.
func NarrowestParameterized(concrete *typeexpr.Entity, ancestor *typeexpr.Named) *typeexpr.Named {
	if concrete == nil {
		return ancestor
	}
	params := concrete.Params()
	if len(params) == 0 {
		return &typeexpr.Named{Entity: concrete}
	}

	// Parameterize concrete by its own placeholders and spider the
	// hierarchy: every ancestor placeholder then maps, directly or through
	// alias chains, to an expression in terms of concrete's placeholders.
	self := make([]typeexpr.Type, len(params))
	for i, p := range params {
		self[i] = p
	}
	subst := SubstitutionsFor(&typeexpr.Named{Entity: concrete, Args: self})

	determined := map[*typeexpr.Placeholder]typeexpr.Type{}
	for i, ap := range ancestor.Entity.Params() {
		if i >= len(ancestor.Args) {
			break
		}
		seen := map[*typeexpr.Placeholder]bool{}
		cur := ap
		for cur != nil && !seen[cur] {
			seen[cur] = true
			if cur.Declarer == concrete {
				determined[cur] = ancestor.Args[i]

				break
			}
			next, _ := subst[cur].(*typeexpr.Placeholder)
			cur = next
		}
	}

	args := make([]typeexpr.Type, len(params))
	for i, p := range params {
		if t, ok := determined[p]; ok {
			args[i] = t
		} else {
			// leave undetermined parameters as the placeholder itself
			args[i] = p
		}
	}

	return &typeexpr.Named{Entity: concrete, Args: args}
}
