// Package typeexpr models types as used throughout the library: concrete
// named types with optional type arguments, generic parameter placeholders,
// bounded wildcards, and array types. Expressions are immutable and compared
// structurally with Equal.
package typeexpr

import (
	"fmt"
	"strings"
)

// Type is the closed set of type expressions. Implementations are *Named,
// *Placeholder, *Wildcard and *ArrayOf.
type Type interface {
	fmt.Stringer

	// isType seals the interface to the variants declared in this package.
	isType()
}

// Named is a concrete or generic-raw type: an entity plus the type arguments
// supplied at the point of use. Args is empty for a non-generic entity or a
// raw usage of a generic one.
type Named struct {
	Entity *Entity
	Args   []Type
}

func (*Named) isType() {}

// Raw reports whether this usage supplies no type arguments even though the
// entity declares parameters.
func (n *Named) Raw() bool {
	return len(n.Args) == 0 && len(n.Entity.params) > 0
}

func (n *Named) String() string {
	if len(n.Args) == 0 {
		return n.Entity.name
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}

	return n.Entity.name + "<" + strings.Join(args, ", ") + ">"
}

// Placeholder is a generic parameter as declared by an entity. Two
// placeholders are equal only if they have the same name and the same
// declaring entity. Declarer is nil for placeholders that do not belong to an
// entity (e.g. a function-scoped parameter); the resolver rejects those.
type Placeholder struct {
	Name     string
	Declarer *Entity
	Bounds   []Type
}

func (*Placeholder) isType() {}

func (p *Placeholder) String() string {
	if len(p.Bounds) == 0 || (len(p.Bounds) == 1 && IsAny(p.Bounds[0])) {
		return p.Name
	}
	bounds := make([]string, len(p.Bounds))
	for i, b := range p.Bounds {
		bounds[i] = b.String()
	}

	return p.Name + " extends " + strings.Join(bounds, " & ")
}

// Wildcard is a bounded unknown type. An empty Upper slice means unbounded.
type Wildcard struct {
	Upper []Type
	Lower []Type
}

func (*Wildcard) isType() {}

func (w *Wildcard) String() string {
	buf := strings.Builder{}
	buf.WriteByte('?')
	if len(w.Lower) > 0 {
		buf.WriteString(" super ")
		buf.WriteString(joinTypes(w.Lower, " & "))
	} else if len(w.Upper) > 0 && !(len(w.Upper) == 1 && IsAny(w.Upper[0])) {
		buf.WriteString(" extends ")
		buf.WriteString(joinTypes(w.Upper, " & "))
	}

	return buf.String()
}

// Unbounded returns the unbounded wildcard "?".
func Unbounded() *Wildcard {
	return &Wildcard{}
}

// Extends returns a wildcard upper-bounded by the given types.
func Extends(upper ...Type) *Wildcard {
	return &Wildcard{Upper: upper}
}

// ArrayOf is an array of a component type.
type ArrayOf struct {
	Component Type
}

func (*ArrayOf) isType() {}

func (a *ArrayOf) String() string {
	return a.Component.String() + "[]"
}

func joinTypes(ts []Type, sep string) string {
	ss := make([]string, len(ts))
	for i, t := range ts {
		ss[i] = t.String()
	}

	return strings.Join(ss, sep)
}

// Equal compares two type expressions structurally. Named types are equal if
// they reference the same entity with pairwise-equal arguments; placeholders
// are equal only on same name and same declaring entity.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch at := a.(type) {
	case *Named:
		bt, ok := b.(*Named)
		if !ok || at.Entity != bt.Entity || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !Equal(at.Args[i], bt.Args[i]) {
				return false
			}
		}

		return true
	case *Placeholder:
		bt, ok := b.(*Placeholder)

		return ok && at.Name == bt.Name && at.Declarer == bt.Declarer
	case *Wildcard:
		bt, ok := b.(*Wildcard)

		return ok && equalSlices(at.Upper, bt.Upper) && equalSlices(at.Lower, bt.Lower)
	case *ArrayOf:
		bt, ok := b.(*ArrayOf)

		return ok && Equal(at.Component, bt.Component)
	default:
		return false
	}
}

func equalSlices(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

// anyEntity is the built-in unbounded root. Everything is assignable to it
// and it is the fallback for boundless placeholders and wildcards.
var anyEntity = &Entity{name: "any", kind: KindInterface}

var anyType = &Named{Entity: anyEntity}

// Any returns the built-in unbounded root type.
func Any() *Named { return anyType }

// IsAny reports whether t is the built-in root type.
func IsAny(t Type) bool {
	n, ok := t.(*Named)

	return ok && n.Entity == anyEntity
}
