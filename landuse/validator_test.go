package landuse

import (
	"context"
	"testing"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_NoBoundary(t *testing.T) {
	v := NewValidator(geokernel.NewGeosKernel())
	st := NewStore()

	for _, c := range []Category{Headquarters, Consolidated, NativeVegetation, Fallow, Anthropized} {
		var g orb.Geometry = unitSquare()
		if c.IsPoint() {
			g = orb.Point{0.5, 0.5}
		}
		verdict, err := v.Validate(c, g, st)
		require.NoError(t, err)
		assert.False(t, verdict.Accepted, c.String())
		assert.Equal(t, NoBoundary, verdict.Reason, c.String())
	}
}

func TestValidate_BoundaryAcceptedAsIs(t *testing.T) {
	k := geokernel.NewGeosKernel()
	v := NewValidator(k)
	st := NewStore()

	verdict, err := v.Validate(PropertyBoundary, square(0, 0, 2, 2), st)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.False(t, verdict.Clipped)
	requireSameShape(t, k, square(0, 0, 2, 2), verdict.Geometry)
}

func TestValidate_BoundaryReplacementWithDependents(t *testing.T) {
	v := NewValidator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)

	verdict, err := v.Validate(PropertyBoundary, square(0, 0, 2, 2), st)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted, "replacement allowed while no dependents exist")

	st.Insert(Fallow, square(0, 0, 0.5, 0.5), Created)
	verdict, err = v.Validate(PropertyBoundary, square(0, 0, 2, 2), st)
	require.NoError(t, err)
	assert.False(t, verdict.Accepted)
	assert.Equal(t, BoundaryHasDependents, verdict.Reason)
}

func TestValidate_HeadquartersInside(t *testing.T) {
	v := NewValidator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)

	verdict, err := v.Validate(Headquarters, orb.Point{0.3, 0.6}, st)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, orb.Point{0.3, 0.6}, verdict.Geometry)
}

func TestValidate_OutsideBoundary(t *testing.T) {
	v := NewValidator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)

	for _, c := range []Category{Consolidated, NativeVegetation, Fallow, Anthropized} {
		verdict, err := v.Validate(c, square(2, 2, 3, 3), st)
		require.NoError(t, err)
		assert.False(t, verdict.Accepted, c.String())
		assert.Equal(t, OutsideBoundary, verdict.Reason, c.String())
	}
}

func TestValidate_FallowFullyConsumed(t *testing.T) {
	v := NewValidator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	st.Insert(NativeVegetation, square(0, 0, 0.5, 1), Created)
	st.Insert(NativeVegetation, square(0.5, 0, 1, 1), Created)

	verdict, err := v.Validate(Fallow, square(0.2, 0.2, 0.8, 0.8), st)
	require.NoError(t, err)
	assert.False(t, verdict.Accepted)
	assert.Equal(t, FullyConsumedByHigherPrecedence, verdict.Reason)
	assert.Nil(t, verdict.Geometry)
}

func TestValidate_NativeVegetationClippedToBoundary(t *testing.T) {
	k := geokernel.NewGeosKernel()
	v := NewValidator(k)
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	st.Insert(Consolidated, unitSquare(), Created)

	verdict, err := v.Validate(NativeVegetation, square(0.5, -1, 2, 0.5), st)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.True(t, verdict.Clipped)
	requireSameShape(t, k, square(0.5, 0, 1, 0.5), verdict.Geometry)
}

func TestValidate_AnthropizedInsideIsUnchanged(t *testing.T) {
	k := geokernel.NewGeosKernel()
	v := NewValidator(k)
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)

	candidate := square(0.1, 0.1, 0.4, 0.4)
	verdict, err := v.Validate(Anthropized, candidate, st)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.False(t, verdict.Clipped)
	assert.Empty(t, verdict.Message)
	assert.Equal(t, candidate, verdict.Geometry)
}

func TestValidate_AnthropizedDefersToNativeVegetation(t *testing.T) {
	k := geokernel.NewGeosKernel()
	v := NewValidator(k)
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	st.Insert(NativeVegetation, square(0, 0, 0.5, 1), Created)

	verdict, err := v.Validate(Anthropized, unitSquare(), st)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.True(t, verdict.Clipped)
	requireSameShape(t, k, square(0.5, 0, 1, 1), verdict.Geometry)
}

func TestValidate_GeometryKindMismatch(t *testing.T) {
	v := NewValidator(geokernel.NewGeosKernel())
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)

	_, err := v.Validate(Headquarters, unitSquare(), st)
	require.ErrorIs(t, err, ErrGeometryKind)

	_, err = v.Validate(Consolidated, orb.Point{0.5, 0.5}, st)
	require.ErrorIs(t, err, ErrGeometryKind)

	_, err = v.Validate(Category(42), unitSquare(), st)
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestValidate_KernelFailureLeavesSessionUntouched(t *testing.T) {
	poison := square(0.1, 0.1, 0.9, 0.9)
	k := &faultyKernel{Kernel: geokernel.NewGeosKernel(), poison: poison.Bound()}
	s := NewSession("faulty", k)
	ctx := context.Background()
	submit(t, s, PropertyBoundary, unitSquare())

	_, err := s.SubmitFeature(ctx, Consolidated, poison)
	var failure *geokernel.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "intersect", failure.Op)

	layers, err := s.Snapshot(ctx)
	require.NoError(t, err)
	for _, l := range layers {
		if l.Spec.Category != PropertyBoundary {
			assert.Empty(t, l.Features, l.Spec.Key)
		}
	}
}
