package typeexpr

import (
	"errors"
	"fmt"
)

// Kind distinguishes class-like entities, which have a single supertype
// chain, from interface-like entities.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
)

// BindingAccessor reads, from a runtime instance, the concrete type bound to
// one of the entity's placeholders. It is invoked by the resolver when an
// explicit binding takes precedence over structural substitution.
type BindingAccessor func(instance any) (Type, error)

// Entity identifies a class- or interface-like declaration: its declared
// generic parameter placeholders, its direct supertype (possibly
// parameterized), its directly implemented interfaces, and any explicit
// per-instance type bindings. Entities are immutable once built and compared
// by identity.
type Entity struct {
	name     string
	kind     Kind
	params   []*Placeholder
	super    *Named
	ifaces   []*Named
	bindings map[*Placeholder]BindingAccessor
}

func (e *Entity) Name() string { return e.name }
func (e *Entity) Kind() Kind   { return e.kind }

func (e *Entity) IsInterface() bool { return e.kind == KindInterface }

// Params returns the entity's declared placeholders in declaration order.
func (e *Entity) Params() []*Placeholder {
	out := make([]*Placeholder, len(e.params))
	copy(out, e.params)

	return out
}

// Param returns the declared placeholder with the given name, or nil.
func (e *Entity) Param(name string) *Placeholder {
	for _, p := range e.params {
		if p.Name == name {
			return p
		}
	}

	return nil
}

// Super returns the direct supertype reference as declared, or nil for a
// root entity.
func (e *Entity) Super() *Named { return e.super }

// Interfaces returns the directly implemented or extended interface
// references as declared.
func (e *Entity) Interfaces() []*Named {
	out := make([]*Named, len(e.ifaces))
	copy(out, e.ifaces)

	return out
}

// Bindings returns the entity's declared explicit bindings. The returned map
// must not be mutated.
func (e *Entity) Bindings() map[*Placeholder]BindingAccessor { return e.bindings }

// ownParamRef is a lazy reference to one of the entity's own parameters. It
// only exists between option evaluation and the end of NewEntity, where it is
// replaced with the real placeholder.
type ownParamRef struct {
	name string
}

func (*ownParamRef) isType() {}

func (r *ownParamRef) String() string { return r.name }

// OwnParam references, inside a supertype or interface argument, a type
// parameter declared by the entity currently under construction. It is
// resolved to the real placeholder during NewEntity; using it anywhere else
// is a definition error.
func OwnParam(name string) Type { return &ownParamRef{name: name} }

type entityConfig struct {
	params   []paramDecl
	super    *superDecl
	ifaces   []superDecl
	bindings []bindingDecl
}

type paramDecl struct {
	name   string
	bounds []Type
}

type superDecl struct {
	entity *Entity
	args   []Type
}

type bindingDecl struct {
	param    string
	accessor BindingAccessor
}

// EntityOption configures NewEntity.
type EntityOption func(*entityConfig)

// WithTypeParams declares unbounded type parameters, in order.
func WithTypeParams(names ...string) EntityOption {
	return func(c *entityConfig) {
		for _, n := range names {
			c.params = append(c.params, paramDecl{name: n})
		}
	}
}

// WithBoundedTypeParam declares a type parameter with upper bounds.
func WithBoundedTypeParam(name string, bounds ...Type) EntityOption {
	return func(c *entityConfig) {
		c.params = append(c.params, paramDecl{name: name, bounds: bounds})
	}
}

// WithSuper declares the direct supertype, parameterized with the given
// arguments. Arguments may use OwnParam to reference the new entity's own
// parameters.
func WithSuper(entity *Entity, args ...Type) EntityOption {
	return func(c *entityConfig) {
		c.super = &superDecl{entity: entity, args: args}
	}
}

// WithInterface declares a directly implemented or extended interface.
func WithInterface(entity *Entity, args ...Type) EntityOption {
	return func(c *entityConfig) {
		c.ifaces = append(c.ifaces, superDecl{entity: entity, args: args})
	}
}

// WithBinding declares an explicit per-instance binding for one of the new
// entity's own type parameters. The accessor takes the instance and returns
// the concrete type bound to the parameter for that instance.
func WithBinding(param string, accessor BindingAccessor) EntityOption {
	return func(c *entityConfig) {
		c.bindings = append(c.bindings, bindingDecl{param: param, accessor: accessor})
	}
}

// NewEntity builds an immutable entity descriptor. It validates that every
// parameterized supertype or interface reference supplies exactly as many
// arguments as the referenced entity declares parameters (or zero for raw
// usage), and that every explicit binding names a parameter declared by this
// entity with a non-nil accessor. Violations are definition errors.
func NewEntity(name string, kind Kind, opts ...EntityOption) (*Entity, error) {
	if name == "" {
		return nil, errors.New("entity name must not be empty")
	}

	cfg := &entityConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	e := &Entity{name: name, kind: kind}

	seen := map[string]bool{}
	for _, pd := range cfg.params {
		if seen[pd.name] {
			return nil, fmt.Errorf("entity %s declares type parameter %s twice", name, pd.name)
		}
		seen[pd.name] = true
		e.params = append(e.params, &Placeholder{Name: pd.name, Declarer: e, Bounds: pd.bounds})
	}

	if cfg.super != nil {
		if cfg.super.entity.IsInterface() && kind == KindClass {
			return nil, fmt.Errorf("entity %s: supertype %s is an interface", name, cfg.super.entity.name)
		}
		super, err := e.resolveRef(*cfg.super)
		if err != nil {
			return nil, err
		}
		e.super = super
	}
	for _, id := range cfg.ifaces {
		if !id.entity.IsInterface() {
			return nil, fmt.Errorf("entity %s: %s is not an interface", name, id.entity.name)
		}
		iface, err := e.resolveRef(id)
		if err != nil {
			return nil, err
		}
		e.ifaces = append(e.ifaces, iface)
	}

	for _, bd := range cfg.bindings {
		p := e.Param(bd.param)
		if p == nil {
			return nil, fmt.Errorf("entity %s binds unknown type parameter %s", name, bd.param)
		}
		if bd.accessor == nil {
			return nil, fmt.Errorf("entity %s: binding accessor for %s is nil", name, bd.param)
		}
		if e.bindings == nil {
			e.bindings = map[*Placeholder]BindingAccessor{}
		}
		if _, dup := e.bindings[p]; dup {
			return nil, fmt.Errorf("entity %s binds type parameter %s twice", name, bd.param)
		}
		e.bindings[p] = bd.accessor
	}

	return e, nil
}

// MustEntity is NewEntity, panicking on definition errors. Intended for
// statically known declarations and tests.
func MustEntity(name string, kind Kind, opts ...EntityOption) *Entity {
	e, err := NewEntity(name, kind, opts...)
	if err != nil {
		panic(err)
	}

	return e
}

func (e *Entity) resolveRef(decl superDecl) (*Named, error) {
	args := make([]Type, len(decl.args))
	for i, a := range decl.args {
		resolved, err := e.resolveOwnParams(a)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}

	return Parameterize(decl.entity, args...)
}

func (e *Entity) resolveOwnParams(t Type) (Type, error) {
	switch tt := t.(type) {
	case *ownParamRef:
		p := e.Param(tt.name)
		if p == nil {
			return nil, fmt.Errorf("entity %s references undeclared own parameter %s", e.name, tt.name)
		}

		return p, nil
	case *Named:
		if len(tt.Args) == 0 {
			return tt, nil
		}
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			resolved, err := e.resolveOwnParams(a)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}

		return Parameterize(tt.Entity, args...)
	case *Wildcard:
		upper, err := e.resolveOwnParamsSlice(tt.Upper)
		if err != nil {
			return nil, err
		}
		lower, err := e.resolveOwnParamsSlice(tt.Lower)
		if err != nil {
			return nil, err
		}

		return &Wildcard{Upper: upper, Lower: lower}, nil
	case *ArrayOf:
		component, err := e.resolveOwnParams(tt.Component)
		if err != nil {
			return nil, err
		}

		return &ArrayOf{Component: component}, nil
	default:
		return t, nil
	}
}

func (e *Entity) resolveOwnParamsSlice(ts []Type) ([]Type, error) {
	if ts == nil {
		return nil, nil
	}
	out := make([]Type, len(ts))
	for i, t := range ts {
		resolved, err := e.resolveOwnParams(t)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}

	return out, nil
}

// Parameterize builds a Named reference to an entity, validating argument
// arity: either exactly as many arguments as the entity declares parameters,
// or zero for a raw reference.
func Parameterize(entity *Entity, args ...Type) (*Named, error) {
	if entity == nil {
		return nil, errors.New("parameterize: nil entity")
	}
	if len(args) != 0 && len(args) != len(entity.params) {
		return nil, fmt.Errorf("parameterize %s: got %d type arguments, want %d",
			entity.name, len(args), len(entity.params))
	}
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("parameterize %s: nil type argument at %d", entity.name, i)
		}
		if _, lazy := a.(*ownParamRef); lazy {
			return nil, fmt.Errorf("parameterize %s: OwnParam used outside entity construction", entity.name)
		}
	}

	return &Named{Entity: entity, Args: args}, nil
}

// MustParameterize is Parameterize, panicking on arity errors.
func MustParameterize(entity *Entity, args ...Type) *Named {
	n, err := Parameterize(entity, args...)
	if err != nil {
		panic(err)
	}

	return n
}
