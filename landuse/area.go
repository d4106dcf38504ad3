package landuse

import (
	"github.com/GrainArc/LandMap/geokernel"
)

// AreaAggregator 各图层面积统计（公顷），只计红线内部分
type AreaAggregator struct {
	kernel geokernel.Kernel
}

// NewAreaAggregator 创建面积统计器
func NewAreaAggregator(k geokernel.Kernel) *AreaAggregator {
	return &AreaAggregator{kernel: k}
}

// Recompute 重新计算单个图层面积并写入缓存
func (a *AreaAggregator) Recompute(c Category, st *Store) (float64, error) {
	l := st.layer(c)
	total, err := a.compute(c, st)
	if err != nil {
		return 0, err
	}
	l.area, l.areaValid = total, true
	return total, nil
}

func (a *AreaAggregator) compute(c Category, st *Store) (float64, error) {
	if c.IsPoint() {
		return 0, nil
	}
	b := st.boundary()
	if b == nil {
		return 0, nil
	}
	if c == PropertyBoundary {
		return a.kernel.GeodesicArea(b.Geometry, geokernel.Hectares)
	}

	var total float64
	for _, f := range st.sorted(c) {
		inside, err := a.kernel.Intersect(f.Geometry, b.Geometry)
		if err != nil {
			return 0, err
		}
		if geokernel.IsEmpty(inside) {
			continue
		}
		ha, err := a.kernel.GeodesicArea(inside, geokernel.Hectares)
		if err != nil {
			return 0, err
		}
		total += ha
	}
	return total, nil
}

// Area 返回图层面积，缓存失效时重算
func (a *AreaAggregator) Area(c Category, st *Store) (float64, error) {
	l := st.layer(c)
	if l.areaValid {
		return l.area, nil
	}
	return a.Recompute(c, st)
}

// Totals 返回全部图层面积
func (a *AreaAggregator) Totals(st *Store) (map[Category]float64, error) {
	out := make(map[Category]float64, len(Layers))
	for _, c := range Categories() {
		ha, err := a.Area(c, st)
		if err != nil {
			return nil, err
		}
		out[c] = ha
	}
	return out, nil
}
