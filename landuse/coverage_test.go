package landuse

import (
	"context"
	"testing"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudit_NoBoundary(t *testing.T) {
	a := NewCoverageAuditor(geokernel.NewGeosKernel())
	_, err := a.Audit(NewStore())
	require.ErrorIs(t, err, ErrNoBoundary)
}

func TestAudit_NoLandCoverLeavesWholeBoundary(t *testing.T) {
	k := geokernel.NewGeosKernel()
	st := NewStore()
	st.Insert(PropertyBoundary, unitSquare(), Created)
	st.Insert(Headquarters, orb.Point{0.5, 0.5}, Created)

	report, err := NewCoverageAuditor(k).Audit(st)
	require.NoError(t, err)
	assert.False(t, report.FullyCovered)
	requireSameShape(t, k, unitSquare(), report.Uncovered)

	whole, err := k.GeodesicArea(unitSquare(), geokernel.Hectares)
	require.NoError(t, err)
	assert.InDelta(t, whole, report.UncoveredHectares, 1e-6)
	assert.Equal(t, "No land cover areas found.", report.Message)
}

func TestAudit_PartialCoverage(t *testing.T) {
	s, k := newTestSession(t)
	ctx := context.Background()
	submit(t, s, PropertyBoundary, unitSquare())
	submit(t, s, Fallow, square(0, 0, 1, 0.5))
	submit(t, s, Anthropized, square(0, 0.5, 0.5, 1))

	first, err := s.AuditCoverage(ctx)
	require.NoError(t, err)
	assert.False(t, first.FullyCovered)
	requireSameShape(t, k, square(0.5, 0.5, 1, 1), first.Uncovered)
	assert.Contains(t, first.Message, "hectares remain uncovered")

	second, err := s.AuditCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "audit is idempotent")
}
