package operations

import (
	"strings"

	"github.com/rmannibucau/therian/position"
	"github.com/rmannibucau/therian/typeexpr"
)

// Aggregation selects how an operation combines its candidates' results.
type Aggregation int

const (
	// FirstSuccess invokes candidates in precedence order and stops at the
	// first one whose Perform reports success.
	FirstSuccess Aggregation = iota

	// AggregateAny invokes every candidate; the operation succeeds if at
	// least one reported success.
	AggregateAny
)

// State is the lifecycle of one operation evaluation. Terminal states are
// immutable: a terminal operation cannot be evaluated again.
type State int

const (
	StateCreated State = iota
	StateMatching
	StateExecuting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateMatching:
		return "matching"
	case StateExecuting:
		return "executing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Operation is a unit of dispatchable work: a shape (the operation entity
// parameterized with its actual type arguments, resolved once at
// construction and immutable thereafter) plus the positions it reads or
// writes. Concrete operations embed *Base to satisfy the interface.
type Operation interface {
	// Shape returns the operation entity with its actual type arguments.
	Shape() *typeexpr.Named

	// Positions returns the data positions the operation reads or writes,
	// in a fixed order. Position identity participates in the re-entrancy
	// fingerprint.
	Positions() []position.Position

	// Aggregation returns the candidate aggregation policy.
	Aggregation() Aggregation

	base() *Base
}

// Base carries the shape, positions and evaluation state shared by all
// operations. Embed a value obtained from NewBase.
type Base struct {
	shape     *typeexpr.Named
	positions []position.Position
	mode      Aggregation
	state     State
}

// NewBase builds the common part of an operation.
func NewBase(shape *typeexpr.Named, mode Aggregation, positions ...position.Position) Base {
	return Base{shape: shape, positions: positions, mode: mode}
}

func (b *Base) Shape() *typeexpr.Named { return b.shape }

func (b *Base) Positions() []position.Position {
	out := make([]position.Position, len(b.positions))
	copy(out, b.positions)

	return out
}

func (b *Base) Aggregation() Aggregation { return b.mode }

// State returns the current evaluation state.
func (b *Base) State() State { return b.state }

// Succeeded reports whether the operation reached StateSucceeded.
func (b *Base) Succeeded() bool { return b.state == StateSucceeded }

func (b *Base) base() *Base { return b }

// fingerprint identifies an in-flight operation structurally: same shape and
// the same positions mean the same operation. Positions are compared as
// interface values, so implementations must be pointer types (the position
// package's all are); a value type carrying a map or slice would panic on
// comparison.
type fingerprint struct {
	shape     string
	positions []position.Position
}

func fingerprintOf(op Operation) fingerprint {
	return fingerprint{shape: op.Shape().String(), positions: op.Positions()}
}

func (f fingerprint) equal(other fingerprint) bool {
	if f.shape != other.shape || len(f.positions) != len(other.positions) {
		return false
	}
	for i := range f.positions {
		if f.positions[i] != other.positions[i] {
			return false
		}
	}

	return true
}

func (f fingerprint) String() string {
	b := strings.Builder{}
	b.WriteString(f.shape)
	for _, p := range f.positions {
		b.WriteString("@")
		if s, ok := p.(interface{ String() string }); ok {
			b.WriteString(s.String())
		} else {
			b.WriteString(p.Type().String())
		}
	}

	return b.String()
}
