package landuse

import (
	"context"
	"testing"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

// square builds an axis-aligned polygon from (x0,y0) to (x1,y1).
func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func unitSquare() orb.Polygon {
	return square(0, 0, 1, 1)
}

func newTestSession(t *testing.T) (*Session, geokernel.Kernel) {
	t.Helper()
	k := geokernel.NewGeosKernel()
	return NewSession("test", k, WithStrictInvariants(true)), k
}

// submit submits a feature and requires it to be accepted.
func submit(t *testing.T, s *Session, c Category, g orb.Geometry) Outcome {
	t.Helper()
	out, err := s.SubmitFeature(context.Background(), c, g)
	require.NoError(t, err)
	require.True(t, out.Accepted, "submit %s rejected: %s %s", c, out.Reason, out.Message)
	require.NotNil(t, out.Feature)
	return out
}

func requireSameShape(t *testing.T, k geokernel.Kernel, want, got orb.Geometry) {
	t.Helper()
	same, err := k.Equals(want, got)
	require.NoError(t, err)
	require.True(t, same, "geometries differ")
}

// faultyKernel wraps a kernel and fails Difference or Intersect whenever one of the
// inputs matches the poisoned bound.
type faultyKernel struct {
	geokernel.Kernel
	poison orb.Bound
}

func (k *faultyKernel) poisoned(gs ...orb.Geometry) bool {
	for _, g := range gs {
		if g != nil && g.Bound() == k.poison {
			return true
		}
	}
	return false
}

func (k *faultyKernel) Difference(a, b orb.Geometry) (orb.Geometry, error) {
	if k.poisoned(a, b) {
		return nil, &geokernel.Failure{Op: "difference", Diagnostic: "injected failure"}
	}
	return k.Kernel.Difference(a, b)
}

func (k *faultyKernel) Intersect(a, b orb.Geometry) (orb.Geometry, error) {
	if k.poisoned(a) {
		return nil, &geokernel.Failure{Op: "intersect", Diagnostic: "injected failure"}
	}
	return k.Kernel.Intersect(a, b)
}
