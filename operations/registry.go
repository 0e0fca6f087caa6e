package operations

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// Registry collects operators before engine assembly. Operators are kept in
// registration order; the depends-on relation is a partial order resolved to
// a total one when the engine is built. A Registry is not safe for
// concurrent mutation and is no longer consulted once the engine is
// assembled.
type Registry struct {
	entries []entry
	byID    map[string]int
}

type entry struct {
	def       Definition
	op        Operator
	dependsOn []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]int{}}
}

// Register adds an operator under its definition. dependsOn lists definition
// IDs of operators that must be matched and executed before this one.
func (r *Registry) Register(def Definition, op Operator, dependsOn ...string) error {
	if def.ID == "" {
		return fmt.Errorf("register operator: empty definition ID")
	}
	if op == nil {
		return fmt.Errorf("register operator %s: nil operator", def.ID)
	}
	if op.Entity() == nil {
		return fmt.Errorf("register operator %s: operator has no entity", def.ID)
	}
	if _, dup := r.byID[def.ID]; dup {
		return fmt.Errorf("register operator %s: %w", def.ID, ErrDuplicateDefinition)
	}
	r.byID[def.ID] = len(r.entries)
	r.entries = append(r.entries, entry{def: def, op: op, dependsOn: dependsOn})

	return nil
}

// MustRegister is Register, panicking on definition errors.
func (r *Registry) MustRegister(def Definition, op Operator, dependsOn ...string) {
	if err := r.Register(def, op, dependsOn...); err != nil {
		panic(err)
	}
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.def
	}

	return out
}

// sorted resolves the depends-on relation to a total order: a stable
// topological sort that preserves registration order among operators with no
// mutual constraint. extra contributes additional edges (from configuration)
// on top of those declared at registration. Cycles and unknown IDs are
// configuration errors.
func (r *Registry) sorted(disabled map[string]bool, extra map[string][]string) ([]entry, error) {
	kept := make([]entry, 0, len(r.entries))
	index := map[string]int{}
	for _, e := range r.entries {
		if disabled[e.def.ID] {
			continue
		}
		index[e.def.ID] = len(kept)
		kept = append(kept, e)
	}

	deps := make([][]int, len(kept))
	addEdge := func(id, before string) error {
		to, ok := index[id]
		if !ok {
			// disabled or never registered target of a config edge
			if _, registered := r.byID[id]; registered || disabled[id] {
				return nil
			}

			return fmt.Errorf("operator %s: %w", id, ErrUnknownDependency)
		}
		from, ok := index[before]
		if !ok {
			if _, registered := r.byID[before]; registered || disabled[before] {
				return nil
			}

			return fmt.Errorf("operator %s depends on %s: %w", id, before, ErrUnknownDependency)
		}
		deps[to] = append(deps[to], from)

		return nil
	}
	for _, e := range kept {
		for _, before := range e.dependsOn {
			if err := addEdge(e.def.ID, before); err != nil {
				return nil, err
			}
		}
	}
	for id, befores := range extra {
		for _, before := range befores {
			if err := addEdge(id, before); err != nil {
				return nil, err
			}
		}
	}

	return toposort(kept, deps)
}

// toposort is Kahn's algorithm with a registration-order ready queue, so the
// result is deterministic and unconstrained operators keep their relative
// registration order.
func toposort(entries []entry, deps [][]int) ([]entry, error) {
	n := len(entries)
	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i, ds := range deps {
		for _, d := range ds {
			indegree[i]++
			dependents[d] = append(dependents[d], i)
		}
	}

	ready := make([]int, 0, n)
	for i := range entries {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]entry, 0, n)
	for len(ready) > 0 {
		// take the lowest registration index among ready nodes
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		out = append(out, entries[i])
		for _, d := range dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(out) != n {
		remaining := map[string]bool{}
		for i := range entries {
			if indegree[i] > 0 {
				remaining[entries[i].def.ID] = true
			}
		}
		ids := maps.Keys(remaining)
		sort.Strings(ids)

		return nil, fmt.Errorf("%w: %v", ErrPrecedenceCycle, ids)
	}

	return out, nil
}
