package position

import (
	"errors"
	"fmt"

	"github.com/rmannibucau/therian/typeexpr"
)

// ErrNoSuchProperty is returned when an introspector does not know the named
// property of a position. A chain uses it to fall through to the next link.
var ErrNoSuchProperty = errors.New("no such property")

// PropertyInfo describes one named sub-property of a readable position.
type PropertyInfo struct {
	Type     typeexpr.Type
	Writable bool
}

// Introspector is the pluggable property-resolution contract: given a
// readable position it lists the named sub-properties, and for a given name
// reports the declared type and writability. It is consulted by
// property-oriented operators, never by the core resolver or engine.
type Introspector interface {
	Properties(p Readable) ([]string, error)
	Property(p Readable, name string) (PropertyInfo, error)
}

// MapIntrospector is a static Introspector backed by a property table, keyed
// by the position's declared entity name. Intended for tests and simple
// value models.
type MapIntrospector struct {
	props map[string]map[string]PropertyInfo
}

// NewMapIntrospector returns an empty MapIntrospector.
func NewMapIntrospector() *MapIntrospector {
	return &MapIntrospector{props: map[string]map[string]PropertyInfo{}}
}

// Define registers a property of the named entity.
func (m *MapIntrospector) Define(entity, property string, info PropertyInfo) *MapIntrospector {
	byName, ok := m.props[entity]
	if !ok {
		byName = map[string]PropertyInfo{}
		m.props[entity] = byName
	}
	byName[property] = info

	return m
}

func (m *MapIntrospector) Properties(p Readable) ([]string, error) {
	byName, ok := m.props[entityName(p)]
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}

	return names, nil
}

func (m *MapIntrospector) Property(p Readable, name string) (PropertyInfo, error) {
	if byName, ok := m.props[entityName(p)]; ok {
		if info, ok := byName[name]; ok {
			return info, nil
		}
	}

	return PropertyInfo{}, fmt.Errorf("%s: %w", name, ErrNoSuchProperty)
}

// Chain consults introspectors in order, falling through on
// ErrNoSuchProperty. Properties unions all links.
type Chain []Introspector

func (c Chain) Properties(p Readable) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, in := range c {
		got, err := in.Properties(p)
		if err != nil {
			return nil, err
		}
		for _, name := range got {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names, nil
}

func (c Chain) Property(p Readable, name string) (PropertyInfo, error) {
	for _, in := range c {
		info, err := in.Property(p, name)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrNoSuchProperty) {
			return PropertyInfo{}, err
		}
	}

	return PropertyInfo{}, fmt.Errorf("%s: %w", name, ErrNoSuchProperty)
}

func entityName(p Readable) string {
	if named, ok := p.Type().(*typeexpr.Named); ok {
		return named.Entity.Name()
	}

	return ""
}
