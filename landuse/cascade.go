package landuse

import (
	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
)

// CascadeChange 级联裁剪对单个要素的结果，Geometry 为 nil 表示要素被移除
type CascadeChange struct {
	Category Category     `json:"category"`
	ID       FeatureID    `json:"id"`
	Geometry orb.Geometry `json:"-"`
}

// Removed 要素是否被完全扣除
func (c CascadeChange) Removed() bool {
	return geokernel.IsEmpty(c.Geometry)
}

// CascadeFailure 单个要素级联失败，不影响其他要素
type CascadeFailure struct {
	Category Category  `json:"category"`
	ID       FeatureID `json:"id"`
	Err      error     `json:"-"`
}

// CascadeResult 级联结果。Failed 中的要素保持原样，其余变更照常应用。
type CascadeResult struct {
	Changes []CascadeChange
	Failed  []CascadeFailure
}

// Propagator 高优先级地类提交后，对低优先级地类做扣除
type Propagator struct {
	kernel geokernel.Kernel
}

// NewPropagator 创建级联处理器
func NewPropagator(k geokernel.Kernel) *Propagator {
	return &Propagator{kernel: k}
}

// Propagate 计算 geom（属于类别 from）对所有低优先级地类的扣除结果，不修改存储
func (p *Propagator) Propagate(from Category, geom orb.Geometry, st *Store) CascadeResult {
	var res CascadeResult
	for _, c := range LowerPrecedence(from) {
		for _, f := range st.sorted(c) {
			overlaps, err := p.kernel.Overlaps(f.Geometry, geom)
			if err != nil {
				res.Failed = append(res.Failed, CascadeFailure{Category: c, ID: f.ID, Err: err})
				continue
			}
			if !overlaps {
				continue
			}
			rest, err := p.kernel.Difference(f.Geometry, geom)
			if err != nil {
				res.Failed = append(res.Failed, CascadeFailure{Category: c, ID: f.ID, Err: err})
				continue
			}
			res.Changes = append(res.Changes, CascadeChange{Category: c, ID: f.ID, Geometry: rest})
		}
	}
	return res
}

// Apply 将级联结果写入存储
func (r CascadeResult) Apply(st *Store) (ChangeSet, error) {
	var cs ChangeSet
	for _, ch := range r.Changes {
		if ch.Removed() {
			change, err := st.Delete(ch.Category, ch.ID)
			if err != nil {
				return cs, err
			}
			cs = append(cs, change)
			continue
		}
		change, err := st.Replace(ch.Category, ch.ID, ch.Geometry, Clipped)
		if err != nil {
			return cs, err
		}
		cs = append(cs, change)
	}
	return cs, nil
}
