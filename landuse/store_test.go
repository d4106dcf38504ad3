package landuse

import (
	"testing"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FeaturesSortedByID(t *testing.T) {
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	ids := []FeatureID{}
	for i := 0; i < 5; i++ {
		ids = append(ids, st.Insert(Consolidated, square(0, float64(i)/10, 0.1, float64(i+1)/10), Created).ID)
	}

	var got []FeatureID
	for _, f := range st.Features(Consolidated) {
		got = append(got, f.ID)
	}
	assert.Equal(t, ids, got)
}

func TestStore_ReturnsCopies(t *testing.T) {
	st := NewStore()
	ch := st.Insert(PropertyBoundary, unitSquare(), Created)

	f, ok := st.Get(PropertyBoundary, ch.ID)
	require.True(t, ok)
	f.Geometry.(orb.Polygon)[0][0] = orb.Point{9, 9}

	again, _ := st.Get(PropertyBoundary, ch.ID)
	assert.Equal(t, unitSquare(), again.Geometry)
}

func TestStore_ClearAllRemovesDependentsFirst(t *testing.T) {
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	st.Insert(Headquarters, orb.Point{0.5, 0.5}, Created)
	st.Insert(Anthropized, square(0, 0, 0.5, 0.5), Created)

	cs := st.ClearAll()
	require.Len(t, cs, 3)
	assert.Equal(t, PropertyBoundary, cs[len(cs)-1].Category)
	for _, ch := range cs {
		assert.Equal(t, ChangeRemoved, ch.Kind)
		assert.Equal(t, Removed, ch.State)
	}
	assert.False(t, st.HasDependents())
	_, ok := st.Boundary()
	assert.False(t, ok)
}

func TestStore_LoadKeepsIDs(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Load([]Feature{
		{ID: 7, Category: PropertyBoundary, Geometry: unitSquare()},
		{ID: 3, Category: Fallow, Geometry: square(0, 0, 0.5, 0.5), State: Clipped},
	}))
	next := st.Insert(Consolidated, square(0.5, 0.5, 1, 1), Created)
	assert.Equal(t, FeatureID(8), next.ID)

	f, ok := st.Get(Fallow, 3)
	require.True(t, ok)
	assert.Equal(t, Clipped, f.State)

	err := st.Load([]Feature{{ID: 3, Category: Fallow, Geometry: unitSquare()}})
	assert.Error(t, err)
	err = st.Load([]Feature{{ID: 20, Category: Headquarters, Geometry: unitSquare()}})
	assert.ErrorIs(t, err, ErrGeometryKind)
}

func TestStore_AnthropizedAlwaysVisible(t *testing.T) {
	st := NewStore()
	require.ErrorIs(t, st.SetVisible(Anthropized, false), ErrAlwaysVisible)
	assert.True(t, st.Visible(Anthropized))

	require.NoError(t, st.SetVisible(Fallow, false))
	assert.False(t, st.Visible(Fallow))
	require.NoError(t, st.SetVisible(Anthropized, true))
}

func TestStore_CheckInvariants(t *testing.T) {
	k := geokernel.NewGeosKernel()

	t.Run("dependents without boundary", func(t *testing.T) {
		st := NewStore()
		st.Insert(Fallow, unitSquare(), Created)
		var ie *InvariantError
		require.ErrorAs(t, st.CheckInvariants(k), &ie)
		assert.Equal(t, PropertyBoundary, ie.Category)
	})

	t.Run("headquarters outside", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		hq := st.Insert(Headquarters, orb.Point{3, 3}, Created)
		var ie *InvariantError
		require.ErrorAs(t, st.CheckInvariants(k), &ie)
		assert.Equal(t, hq.ID, ie.ID)
	})

	t.Run("overlap with native vegetation", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		st.Insert(NativeVegetation, square(0, 0, 0.5, 0.5), Created)
		c := st.Insert(Consolidated, square(0.25, 0.25, 0.75, 0.75), Created)
		var ie *InvariantError
		require.ErrorAs(t, st.CheckInvariants(k), &ie)
		assert.Equal(t, Consolidated, ie.Category)
		assert.Equal(t, c.ID, ie.ID)
	})

	t.Run("land cover outside boundary", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		st.Insert(Fallow, square(0.5, 0.5, 2, 2), Created)
		var ie *InvariantError
		require.ErrorAs(t, st.CheckInvariants(k), &ie)
		assert.Equal(t, Fallow, ie.Category)
	})

	t.Run("rounding slivers tolerated", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		st.Insert(NativeVegetation, square(0.5, 0, 1, 0.5), Created)
		st.Insert(Fallow, square(0, 0, 0.5+1e-13, 0.5), Created)
		st.Insert(Consolidated, square(0, 0.6, 1+1e-13, 0.8), Created)
		assert.NoError(t, st.CheckInvariants(k))
	})

	t.Run("narrow but real overhang", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		c := st.Insert(Consolidated, square(0, 0.6, 1.0001, 0.8), Created)
		var ie *InvariantError
		require.ErrorAs(t, st.CheckInvariants(k), &ie)
		assert.Equal(t, c.ID, ie.ID)
	})

	t.Run("second headquarters", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		st.Insert(Headquarters, orb.Point{0.2, 0.2}, Created)
		st.Insert(Headquarters, orb.Point{0.8, 0.8}, Created)
		var ie *InvariantError
		require.ErrorAs(t, st.CheckInvariants(k), &ie)
		assert.Equal(t, Headquarters, ie.Category)
	})

	t.Run("consistent", func(t *testing.T) {
		st := NewStore()
		st.Insert(PropertyBoundary, unitSquare(), Created)
		st.Insert(NativeVegetation, square(0, 0, 0.5, 0.5), Created)
		st.Insert(Consolidated, square(0.5, 0, 1, 0.5), Created)
		st.Insert(Headquarters, orb.Point{0.9, 0.9}, Created)
		assert.NoError(t, st.CheckInvariants(k))
	})
}

func TestCategory_PrecedenceTable(t *testing.T) {
	assert.Equal(t, NativeVegetation, TopLandCover())
	assert.Equal(t, []Category{Consolidated, Fallow, Anthropized}, LowerPrecedence(NativeVegetation))
	assert.Equal(t, []Category{NativeVegetation}, HigherPrecedence(Fallow))
	assert.Empty(t, HigherPrecedence(NativeVegetation))

	c, err := ParseCategory("fallow-area")
	require.NoError(t, err)
	assert.Equal(t, Fallow, c)
	_, err = ParseCategory("hydrology")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	text, err := Anthropized.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "anthropized-area", string(text))
}
