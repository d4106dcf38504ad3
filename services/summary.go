package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/GrainArc/LandMap/landuse"
	"golang.org/x/sync/errgroup"
)

// summaryWorkers 同时汇总的地产数
const summaryWorkers = 4

// PropertySummary 地产汇总：各图层面积和覆盖情况
type PropertySummary struct {
	ID       string                       `json:"id"`
	Name     string                       `json:"name"`
	Areas    map[landuse.Category]float64 `json:"areas"`
	Coverage *landuse.CoverageReport      `json:"coverage,omitempty"`
}

// Summaries 并发汇总多个地产，任一地产失败时整体返回错误
func (s *PropertyService) Summaries(ctx context.Context, ids []string) ([]PropertySummary, error) {
	out := make([]PropertySummary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryWorkers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := s.GetProperty(gctx, id)
			if err != nil {
				return err
			}
			areas, err := s.Areas(gctx, id)
			if err != nil {
				return fmt.Errorf("property %s: %w", id, err)
			}
			summary := PropertySummary{ID: id, Name: p.Name, Areas: areas}

			report, err := s.Coverage(gctx, id)
			switch {
			case err == nil:
				summary.Coverage = &report
			case !errors.Is(err, landuse.ErrNoBoundary):
				return fmt.Errorf("property %s: %w", id, err)
			}
			out[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
