// Package optest provides shared fixtures for engine testing: a small entity
// hierarchy modeled on collection types, sample operations, and operators
// over them.
package optest

import (
	"fmt"

	"github.com/rmannibucau/therian/operations"
	"github.com/rmannibucau/therian/position"
	"github.com/rmannibucau/therian/typeexpr"
)

// Collection-style hierarchy:
//
//	Iterator<E>
//	Iterable<E>
//	Collection<E> extends Iterable<E>
//	List<E> extends Collection<E>
//	AbstractList<E> implements List<E>
//	ArrayList<E> extends AbstractList<E>
//	String
var (
	String = typeexpr.MustEntity("String", typeexpr.KindClass)

	Iterator = typeexpr.MustEntity("Iterator", typeexpr.KindInterface,
		typeexpr.WithTypeParams("E"))
	Iterable = typeexpr.MustEntity("Iterable", typeexpr.KindInterface,
		typeexpr.WithTypeParams("E"))
	Collection = typeexpr.MustEntity("Collection", typeexpr.KindInterface,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithInterface(Iterable, typeexpr.OwnParam("E")))
	List = typeexpr.MustEntity("List", typeexpr.KindInterface,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithInterface(Collection, typeexpr.OwnParam("E")))
	AbstractList = typeexpr.MustEntity("AbstractList", typeexpr.KindClass,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithInterface(List, typeexpr.OwnParam("E")))
	ArrayList = typeexpr.MustEntity("ArrayList", typeexpr.KindClass,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithSuper(AbstractList, typeexpr.OwnParam("E")))
)

// StringType returns the Named expression for String.
func StringType() *typeexpr.Named { return typeexpr.MustParameterize(String) }

// ListOfStrings returns List<String>.
func ListOfStrings() *typeexpr.Named {
	return typeexpr.MustParameterize(List, StringType())
}

// sizeEntity is the "size of X" operation entity.
var sizeEntity = typeexpr.MustEntity("Size", typeexpr.KindClass,
	typeexpr.WithTypeParams("T"))

// SizeEntity returns the Size operation entity.
func SizeEntity() *typeexpr.Entity { return sizeEntity }

// Size is the "size of X" operation: reads one position, stores the element
// count.
type Size struct {
	operations.Base

	Position position.Readable
	Result   int
}

// NewSize builds a Size operation over a readable position; the operation's
// actual type argument is the position's declared type, and the position
// participates in the re-entrancy fingerprint.
func NewSize(pos position.Readable) *Size {
	shape := typeexpr.MustParameterize(sizeEntity, pos.Type())

	return &Size{
		Base:     operations.NewBase(shape, operations.FirstSuccess, pos),
		Position: pos,
	}
}

// NewAggregateSize is NewSize under the AggregateAny policy.
func NewAggregateSize(pos position.Readable) *Size {
	shape := typeexpr.MustParameterize(sizeEntity, pos.Type())

	return &Size{
		Base:     operations.NewBase(shape, operations.AggregateAny, pos),
		Position: pos,
	}
}

// SizeOperator measures values of one accepted position type by delegating
// to a measure function. Accepts is e.g. Size<Collection<?>>.
type SizeOperator struct {
	entity  *typeexpr.Entity
	measure func(v any) (int, bool)
}

// NewSizeOperator builds an operator accepting Size<accepts>.
func NewSizeOperator(name string, accepts typeexpr.Type, measure func(v any) (int, bool)) *SizeOperator {
	return &SizeOperator{
		entity:  operations.MustOperatorEntityFor(name, typeexpr.MustParameterize(sizeEntity, accepts)),
		measure: measure,
	}
}

func (o *SizeOperator) Entity() *typeexpr.Entity { return o.entity }

func (o *SizeOperator) Supports(_ *operations.Context, op operations.Operation) bool {
	_, ok := op.(*Size)

	return ok
}

func (o *SizeOperator) Perform(_ *operations.Context, op operations.Operation) (bool, error) {
	size := op.(*Size)
	n, ok := o.measure(size.Position.Value())
	if !ok {
		return false, nil
	}
	size.Result = n

	return true, nil
}

// SliceLen measures []any values.
func SliceLen(v any) (int, bool) {
	if v == nil {
		return 0, true
	}
	s, ok := v.([]any)
	if !ok {
		return 0, false
	}

	return len(s), true
}

// FuncOperator adapts plain functions into an Operator, for tests that only
// care about dispatch mechanics.
type FuncOperator struct {
	entity   *typeexpr.Entity
	supports func(c *operations.Context, op operations.Operation) bool
	perform  func(c *operations.Context, op operations.Operation) (bool, error)
}

// NewFuncOperator builds an operator with the given entity and behavior. A
// nil supports accepts everything the signature accepts; a nil perform
// succeeds without effect.
func NewFuncOperator(
	entity *typeexpr.Entity,
	supports func(c *operations.Context, op operations.Operation) bool,
	perform func(c *operations.Context, op operations.Operation) (bool, error),
) *FuncOperator {
	return &FuncOperator{entity: entity, supports: supports, perform: perform}
}

func (o *FuncOperator) Entity() *typeexpr.Entity { return o.entity }

func (o *FuncOperator) Supports(c *operations.Context, op operations.Operation) bool {
	if o.supports == nil {
		return true
	}

	return o.supports(c, op)
}

func (o *FuncOperator) Perform(c *operations.Context, op operations.Operation) (bool, error) {
	if o.perform == nil {
		return true, nil
	}

	return o.perform(c, op)
}

// Definition gives tests a stable operator definition for an ID.
func Definition(id string) operations.Definition {
	return operations.NewDefinition(id, "1.0.0", fmt.Sprintf("test operator %s", id))
}
