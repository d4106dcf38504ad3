package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/GrainArc/LandMap/landuse"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyService_RestoresObliqueGeometry(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewPropertyService(db, nil, WithStrictInvariants(true))

	p, err := s.CreateProperty(ctx, "Sítio Inclinado")
	require.NoError(t, err)
	submit(t, s, p.ID, landuse.PropertyBoundary, orb.Polygon{orb.Ring{{0, 0}, {1, 3}, {3, 0}, {0, 0}}})
	submit(t, s, p.ID, landuse.Consolidated, square(-1, 0.1, 4, 0.2))
	submit(t, s, p.ID, landuse.Fallow, orb.Polygon{orb.Ring{{-1, 0.5}, {4, 1.4}, {4, 1.6}, {-1, 0.7}, {-1, 0.5}}})
	out := submit(t, s, p.ID, landuse.NativeVegetation, orb.Polygon{orb.Ring{{0.2, 0.05}, {1.1, 2.2}, {1.6, 0.05}, {0.2, 0.05}}})
	require.Empty(t, out.CascadeFailed)

	want, err := s.Areas(ctx, p.ID)
	require.NoError(t, err)

	restored := NewPropertyService(db, nil, WithStrictInvariants(true))
	got, err := restored.Areas(ctx, p.ID)
	require.NoError(t, err)
	for c, ha := range want {
		assert.InDelta(t, ha, got[c], 1e-6, c.String())
	}
}

func TestPropertyService_SlowRestoreDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var armed atomic.Bool
	var once sync.Once
	blocked := make(chan struct{})
	release := make(chan struct{})
	s := NewPropertyService(db, nil, WithKernelFactory(func() geokernel.Kernel {
		if armed.Load() {
			first := false
			once.Do(func() { first = true })
			if first {
				close(blocked)
				<-release
			}
		}
		return geokernel.NewGeosKernel()
	}))

	a, err := s.CreateProperty(ctx, "Fazenda A")
	require.NoError(t, err)
	b, err := s.CreateProperty(ctx, "Fazenda B")
	require.NoError(t, err)
	submit(t, s, a.ID, landuse.PropertyBoundary, square(0, 0, 1, 1))
	submit(t, s, b.ID, landuse.PropertyBoundary, square(0, 0, 1, 1))
	s.evict(a.ID)
	s.evict(b.ID)
	armed.Store(true)

	slow := make(chan error, 1)
	go func() {
		_, err := s.Areas(ctx, a.ID)
		slow <- err
	}()
	<-blocked

	done := make(chan error, 1)
	go func() {
		totals, err := s.Areas(ctx, b.ID)
		if err == nil && totals[landuse.PropertyBoundary] <= 0 {
			err = assert.AnError
		}
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("property B waited on the restore of property A")
	}

	close(release)
	require.NoError(t, <-slow)
}
