// Package resolve computes the concrete type expression bound to a generic
// placeholder for a specific runtime instance. Explicit per-instance bindings
// declared on an entity take precedence over structural substitution through
// the ancestor hierarchy; a placeholder bound by neither is reported as
// unresolved, not as an error.
package resolve

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rmannibucau/therian/pkg/logger"
	"github.com/rmannibucau/therian/typeexpr"
)

var (
	// ErrInvalidPlaceholderKind is returned when the placeholder is not
	// declared by an entity (e.g. a function-scoped type parameter).
	ErrInvalidPlaceholderKind = errors.New("placeholder is not declared by an entity")

	// ErrPlaceholderNotOwned is returned when the placeholder's declaring
	// entity is not an ancestor of the instance's entity.
	ErrPlaceholderNotOwned = errors.New("placeholder is not owned by the instance's entity")
)

// Instance is any runtime value that knows its entity descriptor.
type Instance interface {
	Entity() *typeexpr.Entity
}

// Resolver resolves placeholders against runtime instances. The per-entity
// explicit-binding tables and substitution maps are memoized: population
// happens at most once per entity under a mutex and entries are immutable
// afterwards, so a Resolver is safe for concurrent use.
type Resolver struct {
	lggr logger.Logger

	mu       sync.Mutex
	bindings map[*typeexpr.Entity]bindingTable
	substs   map[*typeexpr.Entity]SubstitutionMap
}

// bindingTable is the flattened, alias-expanded explicit-binding table for
// one runtime entity: every placeholder that an explicit accessor can serve,
// whether declared directly or reached through substitution or inverse-alias
// chains.
type bindingTable map[*typeexpr.Placeholder]typeexpr.BindingAccessor

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for resolution tracing.
func WithLogger(lggr logger.Logger) ResolverOption {
	return func(r *Resolver) {
		r.lggr = lggr
	}
}

// New returns an empty Resolver.
func New(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lggr:     logger.Nop(),
		bindings: map[*typeexpr.Entity]bindingTable{},
		substs:   map[*typeexpr.Entity]SubstitutionMap{},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve computes the concrete type bound to placeholder p for instance.
// Explicit bindings anywhere in the instance's hierarchy win over structural
// substitution. A (nil, nil) return means the placeholder is unbound for
// this instance; callers must treat the type as unknown.
func (r *Resolver) Resolve(instance Instance, p *typeexpr.Placeholder) (typeexpr.Type, error) {
	if instance == nil || instance.Entity() == nil {
		return nil, errors.New("resolve: nil instance")
	}

	return r.ResolveWith(instance, p, r.substitutionsFor(instance.Entity()))
}

// ResolveWith is Resolve with a precomputed substitution map, for callers
// resolving several placeholders against the same instance.
func (r *Resolver) ResolveWith(instance Instance, p *typeexpr.Placeholder, subst SubstitutionMap) (typeexpr.Type, error) {
	if instance == nil || instance.Entity() == nil {
		return nil, errors.New("resolve: nil instance")
	}
	if p == nil {
		return nil, errors.New("resolve: nil placeholder")
	}
	if p.Declarer == nil {
		return nil, fmt.Errorf("resolve %s: %w", p.Name, ErrInvalidPlaceholderKind)
	}

	entity := instance.Entity()
	if !descendsFrom(entity, p.Declarer) {
		return nil, fmt.Errorf("resolve %s declared by %s against %s: %w",
			p.Name, p.Declarer.Name(), entity.Name(), ErrPlaceholderNotOwned)
	}

	if accessor, ok := r.bindingTable(entity)[p]; ok {
		t, err := accessor(instance)
		if err != nil {
			return nil, fmt.Errorf("explicit binding for %s on %s: %w", p.Name, entity.Name(), err)
		}
		if t == nil {
			return nil, fmt.Errorf("explicit binding for %s on %s returned no type", p.Name, entity.Name())
		}
		r.lggr.Debugw("Resolved placeholder through explicit binding",
			"placeholder", p.Name, "declarer", p.Declarer.Name(), "entity", entity.Name(), "type", t.String())

		return t, nil
	}

	t := subst.Unroll(p)
	if t == nil {
		r.lggr.Debugw("Placeholder unresolved",
			"placeholder", p.Name, "declarer", p.Declarer.Name(), "entity", entity.Name())

		return nil, nil
	}
	r.lggr.Debugw("Resolved placeholder through substitution",
		"placeholder", p.Name, "declarer", p.Declarer.Name(), "entity", entity.Name(), "type", t.String())

	return t, nil
}

// SubstitutionsFor returns the memoized structural substitution map for raw
// instances of entity.
func (r *Resolver) SubstitutionsFor(entity *typeexpr.Entity) SubstitutionMap {
	return r.substitutionsFor(entity)
}

func (r *Resolver) substitutionsFor(entity *typeexpr.Entity) SubstitutionMap {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.substs[entity]; ok {
		return m
	}
	m := SubstitutionsFor(&typeexpr.Named{Entity: entity})
	r.substs[entity] = m

	return m
}

// bindingTable returns the flattened explicit-binding table for entity,
// populating it on first use. Each entity in the hierarchy contributes its
// declared bindings, in hierarchy order (the entity itself, its supertype
// chain, then interfaces); the first contributor of a placeholder wins. Each
// binding is then expanded along the forward substitution chain and the
// inverse alias chain, so an explicit override declared on a descendant is
// found from any placeholder that merely forwards it.
func (r *Resolver) bindingTable(entity *typeexpr.Entity) bindingTable {
	r.mu.Lock()
	defer r.mu.Unlock()

	if table, ok := r.bindings[entity]; ok {
		return table
	}

	subst, ok := r.substs[entity]
	if !ok {
		subst = SubstitutionsFor(&typeexpr.Named{Entity: entity})
		r.substs[entity] = subst
	}
	inverse := subst.Inverse()

	table := bindingTable{}
	for _, e := range hierarchy(entity) {
		for p, accessor := range e.Bindings() {
			addBinding(table, p, accessor)
			expandBinding(table, p, accessor, subst)
			expandBinding(table, p, accessor, inverse)
		}
	}
	r.bindings[entity] = table

	return table
}

func addBinding(table bindingTable, p *typeexpr.Placeholder, accessor typeexpr.BindingAccessor) {
	if _, exists := table[p]; !exists {
		table[p] = accessor
	}
}

// expandBinding follows placeholder-to-placeholder links in chain from p,
// registering the accessor for every alias visited.
func expandBinding(table bindingTable, p *typeexpr.Placeholder, accessor typeexpr.BindingAccessor, chain SubstitutionMap) {
	seen := map[*typeexpr.Placeholder]bool{p: true}
	t := chain[p]
	for {
		alias, ok := t.(*typeexpr.Placeholder)
		if !ok || seen[alias] {
			return
		}
		seen[alias] = true
		addBinding(table, alias, accessor)
		t = chain[alias]
	}
}

// hierarchy returns entity followed by its supertype chain, then all
// reachable interfaces, each listed once.
func hierarchy(entity *typeexpr.Entity) []*typeexpr.Entity {
	var classes []*typeexpr.Entity
	for e := entity; e != nil; {
		classes = append(classes, e)
		if super := e.Super(); super != nil {
			e = super.Entity
		} else {
			e = nil
		}
	}

	seen := map[*typeexpr.Entity]bool{}
	var ifaces []*typeexpr.Entity
	var collect func(refs []*typeexpr.Named)
	collect = func(refs []*typeexpr.Named) {
		for _, ref := range refs {
			e := ref.Entity
			if seen[e] {
				continue
			}
			seen[e] = true
			ifaces = append(ifaces, e)
			collect(e.Interfaces())
		}
	}
	for _, c := range classes {
		collect(c.Interfaces())
	}

	return append(classes, ifaces...)
}
