package resolve

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmannibucau/therian/typeexpr"
)

// inst is a minimal runtime instance for resolution tests.
type inst struct {
	entity *typeexpr.Entity
}

func (i inst) Entity() *typeexpr.Entity { return i.entity }

func Test_Resolve_StructuralSubstitution(t *testing.T) {
	t.Parallel()

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T"))
	stringBox := typeexpr.MustEntity("StringBox", typeexpr.KindClass,
		typeexpr.WithSuper(box, typeexpr.MustParameterize(str)))

	r := New()
	got, err := r.Resolve(inst{stringBox}, box.Param("T"))
	require.NoError(t, err)
	assert.True(t, typeexpr.Equal(typeexpr.MustParameterize(str), got))
}

func Test_Resolve_UnrollsAliasChains(t *testing.T) {
	t.Parallel()

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	iterable := typeexpr.MustEntity("Iterable", typeexpr.KindInterface, typeexpr.WithTypeParams("E"))
	collection := typeexpr.MustEntity("Collection", typeexpr.KindInterface,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithInterface(iterable, typeexpr.OwnParam("E")))
	stringBag := typeexpr.MustEntity("StringBag", typeexpr.KindClass,
		typeexpr.WithInterface(collection, typeexpr.MustParameterize(str)))

	r := New()
	got, err := r.Resolve(inst{stringBag}, iterable.Param("E"))
	require.NoError(t, err)
	assert.True(t, typeexpr.Equal(typeexpr.MustParameterize(str), got))
}

func Test_Resolve_Unresolved_IsNotAnError(t *testing.T) {
	t.Parallel()

	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T"))

	r := New()
	got, err := r.Resolve(inst{box}, box.Param("T"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func Test_Resolve_PlaceholderNotOwned(t *testing.T) {
	t.Parallel()

	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T"))
	other := typeexpr.MustEntity("Other", typeexpr.KindClass, typeexpr.WithTypeParams("T"))

	r := New()
	_, err := r.Resolve(inst{box}, other.Param("T"))
	require.ErrorIs(t, err, ErrPlaceholderNotOwned)
}

func Test_Resolve_InvalidPlaceholderKind(t *testing.T) {
	t.Parallel()

	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T"))

	r := New()
	_, err := r.Resolve(inst{box}, &typeexpr.Placeholder{Name: "F"})
	require.ErrorIs(t, err, ErrInvalidPlaceholderKind)
}

func Test_Resolve_ExplicitBindingWins(t *testing.T) {
	t.Parallel()

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	number := typeexpr.MustEntity("Number", typeexpr.KindClass)

	// Box declares an explicit binding for T; StringBox also provides a
	// structural substitution. The accessor must win.
	box := typeexpr.MustEntity("Box", typeexpr.KindClass,
		typeexpr.WithTypeParams("T"),
		typeexpr.WithBinding("T", func(instance any) (typeexpr.Type, error) {
			return instance.(*typedBox).contentType, nil
		}))
	stringBox := typeexpr.MustEntity("StringBox", typeexpr.KindClass,
		typeexpr.WithSuper(box, typeexpr.MustParameterize(str)))

	instance := &typedBox{entity: stringBox, contentType: typeexpr.MustParameterize(number)}

	r := New()
	got, err := r.Resolve(instance, box.Param("T"))
	require.NoError(t, err)
	assert.True(t, typeexpr.Equal(typeexpr.MustParameterize(number), got))
}

type typedBox struct {
	entity      *typeexpr.Entity
	contentType typeexpr.Type
}

func (b *typedBox) Entity() *typeexpr.Entity { return b.entity }

func Test_Resolve_ExplicitBinding_PropagatesThroughAliases(t *testing.T) {
	t.Parallel()

	// Container<A> <- Middle<B> <- Leaf<C>, each level forwarding the
	// placeholder without renaming it meaningfully. Leaf declares the
	// explicit binding; resolving Container's placeholder must find it.
	container := typeexpr.MustEntity("Container", typeexpr.KindInterface,
		typeexpr.WithTypeParams("A"))
	middle := typeexpr.MustEntity("Middle", typeexpr.KindClass,
		typeexpr.WithTypeParams("B"),
		typeexpr.WithInterface(container, typeexpr.OwnParam("B")))
	leaf := typeexpr.MustEntity("Leaf", typeexpr.KindClass,
		typeexpr.WithTypeParams("C"),
		typeexpr.WithSuper(middle, typeexpr.OwnParam("C")),
		typeexpr.WithBinding("C", func(instance any) (typeexpr.Type, error) {
			return instance.(*typedBox).contentType, nil
		}))

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	instance := &typedBox{entity: leaf, contentType: typeexpr.MustParameterize(str)}

	r := New()
	for _, p := range []*typeexpr.Placeholder{container.Param("A"), middle.Param("B"), leaf.Param("C")} {
		got, err := r.Resolve(instance, p)
		require.NoError(t, err)
		assert.True(t, typeexpr.Equal(typeexpr.MustParameterize(str), got), "placeholder %s", p.Name)
	}
}

func Test_Resolve_ExplicitBindingAccessorFailure(t *testing.T) {
	t.Parallel()

	box := typeexpr.MustEntity("Box", typeexpr.KindClass,
		typeexpr.WithTypeParams("T"),
		typeexpr.WithBinding("T", func(any) (typeexpr.Type, error) {
			return nil, errors.New("boom")
		}))

	r := New()
	_, err := r.Resolve(inst{box}, box.Param("T"))
	require.ErrorContains(t, err, "boom")

	nilBox := typeexpr.MustEntity("NilBox", typeexpr.KindClass,
		typeexpr.WithTypeParams("T"),
		typeexpr.WithBinding("T", func(any) (typeexpr.Type, error) {
			return nil, nil
		}))
	_, err = r.Resolve(inst{nilBox}, nilBox.Param("T"))
	require.ErrorContains(t, err, "returned no type")
}

func Test_Resolve_DeterministicAcrossCalls(t *testing.T) {
	t.Parallel()

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T"))
	stringBox := typeexpr.MustEntity("StringBox", typeexpr.KindClass,
		typeexpr.WithSuper(box, typeexpr.MustParameterize(str)))

	r := New()
	first, err := r.Resolve(inst{stringBox}, box.Param("T"))
	require.NoError(t, err)
	// repeated resolutions hit the memoized caches and must not drift
	for i := 0; i < 10; i++ {
		got, err := r.Resolve(inst{stringBox}, box.Param("T"))
		require.NoError(t, err)
		assert.True(t, typeexpr.Equal(first, got))
	}
}

func Test_Resolve_ConcurrentUse(t *testing.T) {
	t.Parallel()

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T"))
	stringBox := typeexpr.MustEntity("StringBox", typeexpr.KindClass,
		typeexpr.WithSuper(box, typeexpr.MustParameterize(str)))
	boundBox := typeexpr.MustEntity("BoundBox", typeexpr.KindClass,
		typeexpr.WithTypeParams("T"),
		typeexpr.WithBinding("T", func(any) (typeexpr.Type, error) {
			return typeexpr.MustParameterize(str), nil
		}))

	// one shared resolver: the lazy caches populate under concurrent first
	// use and every goroutine sees the same result
	r := New()

	const goroutines = 16
	structural := make([]typeexpr.Type, goroutines)
	bound := make([]typeexpr.Type, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Resolve(inst{stringBox}, box.Param("T"))
			if err != nil {
				errs[i] = err

				return
			}
			structural[i] = got
			bound[i], errs[i] = r.Resolve(inst{boundBox}, boundBox.Param("T"))
		}()
	}
	wg.Wait()

	want := typeexpr.MustParameterize(str)
	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
		assert.True(t, typeexpr.Equal(want, structural[i]))
		assert.True(t, typeexpr.Equal(want, bound[i]))
	}
}

func Test_Resolve_DiamondHierarchy(t *testing.T) {
	t.Parallel()

	// List is re-implemented at two hierarchy levels; the walk must visit
	// it once and still resolve consistently.
	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	list := typeexpr.MustEntity("List", typeexpr.KindInterface, typeexpr.WithTypeParams("E"))
	abstract := typeexpr.MustEntity("AbstractList", typeexpr.KindClass,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithInterface(list, typeexpr.OwnParam("E")))
	concrete := typeexpr.MustEntity("StringList", typeexpr.KindClass,
		typeexpr.WithSuper(abstract, typeexpr.MustParameterize(str)),
		typeexpr.WithInterface(list, typeexpr.MustParameterize(str)))

	r := New()
	got, err := r.Resolve(inst{concrete}, list.Param("E"))
	require.NoError(t, err)
	assert.True(t, typeexpr.Equal(typeexpr.MustParameterize(str), got))
}

func Test_ResolveWith_PrecomputedMap(t *testing.T) {
	t.Parallel()

	str := typeexpr.MustEntity("String", typeexpr.KindClass)
	box := typeexpr.MustEntity("Box", typeexpr.KindClass, typeexpr.WithTypeParams("T", "U"))
	pair := typeexpr.MustEntity("Pair", typeexpr.KindClass,
		typeexpr.WithSuper(box, typeexpr.MustParameterize(str), typeexpr.Any()))

	r := New()
	subst := r.SubstitutionsFor(pair)

	got, err := r.ResolveWith(inst{pair}, box.Param("T"), subst)
	require.NoError(t, err)
	assert.True(t, typeexpr.Equal(typeexpr.MustParameterize(str), got))

	got, err = r.ResolveWith(inst{pair}, box.Param("U"), subst)
	require.NoError(t, err)
	assert.True(t, typeexpr.IsAny(got))
}

func Test_SubstitutionMap_Inverse(t *testing.T) {
	t.Parallel()

	iterable := typeexpr.MustEntity("Iterable", typeexpr.KindInterface, typeexpr.WithTypeParams("E"))
	collection := typeexpr.MustEntity("Collection", typeexpr.KindInterface,
		typeexpr.WithTypeParams("E"),
		typeexpr.WithInterface(iterable, typeexpr.OwnParam("E")))

	m := SubstitutionsFor(typeexpr.MustParameterize(collection))
	inverse := m.Inverse()

	assert.Same(t, collection.Param("E"), m[iterable.Param("E")])
	assert.Same(t, iterable.Param("E"), inverse[collection.Param("E")])
}
