package landuse

import (
	"testing"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArea_PointLayerIsZero(t *testing.T) {
	a := NewAreaAggregator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	st.Insert(Headquarters, orb.Point{0.5, 0.5}, Created)

	ha, err := a.Recompute(Headquarters, st)
	require.NoError(t, err)
	assert.Zero(t, ha)
}

func TestArea_NoBoundaryIsZero(t *testing.T) {
	a := NewAreaAggregator(geokernel.NewGeosKernel())
	totals, err := a.Totals(NewStore())
	require.NoError(t, err)
	for c, ha := range totals {
		assert.Zero(t, ha, c.String())
	}
}

func TestArea_OnlyCountsInsideBoundary(t *testing.T) {
	k := geokernel.NewGeosKernel()
	a := NewAreaAggregator(k)
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	// loaded directly, bypassing the validator, to exercise the intersection
	require.NoError(t, st.Load([]Feature{{ID: 10, Category: Fallow, Geometry: square(0.5, 0, 1.5, 1)}}))

	boundary, err := a.Area(PropertyBoundary, st)
	require.NoError(t, err)
	fallow, err := a.Area(Fallow, st)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fallow/boundary, 1e-3)
}

func TestArea_CacheInvalidatedOnEdit(t *testing.T) {
	a := NewAreaAggregator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	ch := st.Insert(Consolidated, square(0, 0, 0.5, 0.5), Created)

	before, err := a.Area(Consolidated, st)
	require.NoError(t, err)
	assert.True(t, st.layer(Consolidated).areaValid)

	_, err = st.Replace(Consolidated, ch.ID, square(0, 0, 1, 0.5), Clipped)
	require.NoError(t, err)
	assert.False(t, st.layer(Consolidated).areaValid)

	after, err := a.Area(Consolidated, st)
	require.NoError(t, err)
	assert.InDelta(t, 2*before, after, before*1e-3)
}

func TestArea_BoundaryEditInvalidatesEveryLayer(t *testing.T) {
	a := NewAreaAggregator(geokernel.NewGeosKernel())
	st := NewStore()
	b := st.Insert(PropertyBoundary, unitSquare(), Created)
	_, err := a.Totals(st)
	require.NoError(t, err)

	_, err = st.Replace(PropertyBoundary, b.ID, square(0, 0, 2, 2), Created)
	require.NoError(t, err)
	for _, c := range Categories() {
		assert.False(t, st.layer(c).areaValid, c.String())
	}
}
