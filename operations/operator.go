package operations

import (
	"github.com/Masterminds/semver/v3"

	"github.com/rmannibucau/therian/typeexpr"
)

// Definition is the metadata for a registered operator: its identity for the
// depends-on precedence relation, a semantic version, and a description.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// NewDefinition builds a Definition from an ID and semver string, panicking
// on a malformed version. Intended for statically known registrations.
func NewDefinition(id, version, description string) Definition {
	return Definition{ID: id, Version: semver.MustParse(version), Description: description}
}

// Operator is a candidate handler for some operation shape. Its entity
// declares, through the type-expression model, exactly one generic operation
// shape it accepts: the type argument bound to the OPERATION parameter of
// the base operator entity, either structurally (OperatorEntityFor) or
// through an explicit per-instance binding (DynamicOperatorEntity).
type Operator interface {
	// Entity returns the operator's entity descriptor; the engine resolves
	// the accepted operation shape against it.
	Entity() *typeexpr.Entity

	// Supports is the operator's custom predicate, consulted after the
	// signature check passes. It may re-enter the engine through the
	// Context for nested, hypothetical operations.
	Supports(c *Context, op Operation) bool

	// Perform executes the operation. Returning (false, nil) means the
	// operator declined and the next candidate may run; a non-nil error
	// aborts the whole evaluation.
	Perform(c *Context, op Operation) (bool, error)
}

// operatorEntity is the base entity every operator entity descends from. Its
// OPERATION parameter carries the accepted operation shape.
var operatorEntity = typeexpr.MustEntity("Operator", typeexpr.KindInterface,
	typeexpr.WithTypeParams("OPERATION"))

// OperatorEntity returns the base operator entity.
func OperatorEntity() *typeexpr.Entity { return operatorEntity }

// OperationParam returns the placeholder the engine resolves against each
// operator instance to discover the operation shape it accepts.
func OperationParam() *typeexpr.Placeholder { return operatorEntity.Param("OPERATION") }

// OperatorEntityFor builds an operator entity accepting the given operation
// shape through structural substitution, e.g. Size<Iterable<?>>.
func OperatorEntityFor(name string, accepts typeexpr.Type) (*typeexpr.Entity, error) {
	return typeexpr.NewEntity(name, typeexpr.KindClass,
		typeexpr.WithInterface(operatorEntity, accepts))
}

// MustOperatorEntityFor is OperatorEntityFor, panicking on definition errors.
func MustOperatorEntityFor(name string, accepts typeexpr.Type) *typeexpr.Entity {
	e, err := OperatorEntityFor(name, accepts)
	if err != nil {
		panic(err)
	}

	return e
}

// DynamicOperatorEntity builds an operator entity whose accepted operation
// shape is supplied per instance by an explicit binding accessor, for
// operators whose contract depends on construction arguments rather than on
// their static type.
func DynamicOperatorEntity(name string, accessor typeexpr.BindingAccessor) (*typeexpr.Entity, error) {
	return typeexpr.NewEntity(name, typeexpr.KindClass,
		typeexpr.WithTypeParams("OPERATION"),
		typeexpr.WithInterface(operatorEntity, typeexpr.OwnParam("OPERATION")),
		typeexpr.WithBinding("OPERATION", accessor))
}
