// Package position defines the contract for typed holders of values read or
// written by operations, plus simple in-memory implementations. The resolver
// and dispatch engine depend only on these interfaces.
package position

import (
	"errors"
	"fmt"

	"github.com/rmannibucau/therian/typeexpr"
)

// Position is a typed location. Implementations must be pointer types: the
// dispatch engine compares positions by identity when fingerprinting
// in-flight operations.
type Position interface {
	Type() typeexpr.Type
}

// Readable is a position whose value can be read.
type Readable interface {
	Position
	Value() any
}

// Writable is a position whose value can be written.
type Writable interface {
	Position
	SetValue(v any) error
}

// ReadWrite is a position that is both readable and writable.
type ReadWrite interface {
	Readable
	Writable
}

// Ref is an immutable readable position holding a value of a declared type.
type Ref struct {
	t typeexpr.Type
	v any
}

// Of returns a read-only position holding v with declared type t.
func Of(t typeexpr.Type, v any) *Ref {
	return &Ref{t: t, v: v}
}

func (r *Ref) Type() typeexpr.Type { return r.t }
func (r *Ref) Value() any          { return r.v }

func (r *Ref) String() string {
	return fmt.Sprintf("%v [%s]", r.v, r.t)
}

// Var is an in-memory read-write position.
type Var struct {
	t typeexpr.Type
	v any
}

// NewVar returns a read-write position of declared type t with an initial
// value.
func NewVar(t typeexpr.Type, initial any) *Var {
	return &Var{t: t, v: initial}
}

func (p *Var) Type() typeexpr.Type { return p.t }
func (p *Var) Value() any          { return p.v }

func (p *Var) SetValue(v any) error {
	p.v = v

	return nil
}

func (p *Var) String() string {
	return fmt.Sprintf("%v [%s]", p.v, p.t)
}

// WriteInto adapts a setter function into a writable position, for callers
// that want operation results delivered to their own structures.
func WriteInto(t typeexpr.Type, set func(v any) error) Writable {
	return &funcWritable{t: t, set: set}
}

type funcWritable struct {
	t   typeexpr.Type
	set func(v any) error
}

func (p *funcWritable) Type() typeexpr.Type { return p.t }

func (p *funcWritable) SetValue(v any) error {
	if p.set == nil {
		return errors.New("position is not writable")
	}

	return p.set(v)
}
