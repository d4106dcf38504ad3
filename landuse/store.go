package landuse

import (
	"fmt"
	"math"
	"sort"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
)

// Layer 单个类别的要素集合及其面积缓存
type Layer struct {
	Spec      LayerSpec
	features  map[FeatureID]*Feature
	visible   bool
	area      float64
	areaValid bool
}

// Store 一个地产的全部图层，是会话唯一的可变状态
type Store struct {
	layers map[Category]*Layer
	nextID FeatureID
}

// NewStore 创建空图层存储
func NewStore() *Store {
	s := &Store{layers: make(map[Category]*Layer, len(Layers)), nextID: 1}
	for _, spec := range Layers {
		s.layers[spec.Category] = &Layer{Spec: spec, features: make(map[FeatureID]*Feature), visible: true}
	}
	return s
}

func (s *Store) layer(c Category) *Layer {
	l, ok := s.layers[c]
	if !ok {
		panic(fmt.Sprintf("landuse: no layer for %s", c))
	}
	return l
}

// sorted 按id排序的内部要素，调用方不得修改
func (s *Store) sorted(c Category) []*Feature {
	l := s.layer(c)
	out := make([]*Feature, 0, len(l.features))
	for _, f := range l.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(f *Feature) Feature {
	cp := *f
	if f.Geometry != nil {
		cp.Geometry = orb.Clone(f.Geometry)
	}
	return cp
}

// Features 返回类别下全部要素的副本，按id排序
func (s *Store) Features(c Category) []Feature {
	internal := s.sorted(c)
	out := make([]Feature, 0, len(internal))
	for _, f := range internal {
		out = append(out, clone(f))
	}
	return out
}

// Get 获取单个要素副本
func (s *Store) Get(c Category, id FeatureID) (Feature, bool) {
	f, ok := s.layer(c).features[id]
	if !ok {
		return Feature{}, false
	}
	return clone(f), true
}

// Count 类别下要素数量
func (s *Store) Count(c Category) int {
	return len(s.layer(c).features)
}

// boundary 红线要素，不存在时返回nil
func (s *Store) boundary() *Feature {
	for _, f := range s.layer(PropertyBoundary).features {
		return f
	}
	return nil
}

// Boundary 返回红线要素副本
func (s *Store) Boundary() (Feature, bool) {
	b := s.boundary()
	if b == nil {
		return Feature{}, false
	}
	return clone(b), true
}

// HasDependents 除红线外是否还有其他要素
func (s *Store) HasDependents() bool {
	for c, l := range s.layers {
		if c != PropertyBoundary && len(l.features) > 0 {
			return true
		}
	}
	return false
}

// invalidate 使面积缓存失效，红线变化时所有图层失效
func (s *Store) invalidate(c Category) {
	if c == PropertyBoundary {
		for _, l := range s.layers {
			l.areaValid = false
		}
		return
	}
	s.layer(c).areaValid = false
}

// Insert 新增要素并分配id
func (s *Store) Insert(c Category, g orb.Geometry, state Lifecycle) Change {
	id := s.nextID
	s.nextID++
	f := &Feature{ID: id, Category: c, Geometry: orb.Clone(g), State: state}
	s.layer(c).features[id] = f
	s.invalidate(c)
	return Change{Kind: ChangeAdded, Category: c, ID: id, State: state, New: f.Geometry}
}

// Replace 整体替换要素几何
func (s *Store) Replace(c Category, id FeatureID, g orb.Geometry, state Lifecycle) (Change, error) {
	f, ok := s.layer(c).features[id]
	if !ok {
		return Change{}, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, c, id)
	}
	old := f.Geometry
	s.layer(c).features[id] = &Feature{ID: id, Category: c, Geometry: orb.Clone(g), State: state}
	s.invalidate(c)
	return Change{Kind: ChangeModified, Category: c, ID: id, State: state, Old: old, New: g}, nil
}

// Delete 删除单个要素
func (s *Store) Delete(c Category, id FeatureID) (Change, error) {
	l := s.layer(c)
	f, ok := l.features[id]
	if !ok {
		return Change{}, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, c, id)
	}
	delete(l.features, id)
	s.invalidate(c)
	return Change{Kind: ChangeRemoved, Category: c, ID: id, State: Removed, Old: f.Geometry}, nil
}

// Clear 清空单个类别
func (s *Store) Clear(c Category) ChangeSet {
	var cs ChangeSet
	for _, f := range s.sorted(c) {
		cs = append(cs, Change{Kind: ChangeRemoved, Category: c, ID: f.ID, State: Removed, Old: f.Geometry})
	}
	s.layer(c).features = make(map[FeatureID]*Feature)
	s.invalidate(c)
	return cs
}

// ClearAll 清空全部图层，依赖图层先于红线
func (s *Store) ClearAll() ChangeSet {
	var cs ChangeSet
	for _, c := range Categories() {
		if c != PropertyBoundary {
			cs = append(cs, s.Clear(c)...)
		}
	}
	return append(cs, s.Clear(PropertyBoundary)...)
}

// Load 从持久化数据恢复要素，保留原id
func (s *Store) Load(features []Feature) error {
	for _, f := range features {
		if err := checkKind(f.Category, f.Geometry); err != nil {
			return fmt.Errorf("load feature %s: %w", f.ID, err)
		}
		l := s.layer(f.Category)
		if _, dup := l.features[f.ID]; dup {
			return fmt.Errorf("load feature %s: duplicate id", f.ID)
		}
		state := f.State
		if state == "" {
			state = Created
		}
		l.features[f.ID] = &Feature{ID: f.ID, Category: f.Category, Geometry: orb.Clone(f.Geometry), State: state}
		if f.ID >= s.nextID {
			s.nextID = f.ID + 1
		}
		s.invalidate(f.Category)
	}
	return nil
}

// Visible 图层是否可见
func (s *Store) Visible(c Category) bool {
	return s.layer(c).visible
}

// SetVisible 设置图层可见性，不可隐藏的图层拒绝隐藏
func (s *Store) SetVisible(c Category, visible bool) error {
	l := s.layer(c)
	if !visible && !l.Spec.Hideable {
		return fmt.Errorf("%w: %s", ErrAlwaysVisible, c)
	}
	l.visible = visible
	return nil
}

// 一致性检查的面积容差：交点舍入会在边界两侧留下极细的碎片，
// 面积不超过要素面积的 relativeTolerance 倍（且至少 minTolerance 平方米）时视为重合
const (
	relativeTolerance = 1e-9
	minTolerance      = 1e-3
)

// exceeds part 的面积是否超过 whole 的容差
func exceeds(k geokernel.Kernel, part, whole orb.Geometry) (bool, error) {
	if geokernel.IsEmpty(part) {
		return false, nil
	}
	area, err := k.GeodesicArea(part, geokernel.SquareMeters)
	if err != nil {
		return false, err
	}
	total, err := k.GeodesicArea(whole, geokernel.SquareMeters)
	if err != nil {
		return false, err
	}
	return area > math.Max(total*relativeTolerance, minTolerance), nil
}

// outside 面要素是否有超出容差的部分位于 boundary 之外
func outside(k geokernel.Kernel, boundary, g orb.Geometry) (bool, error) {
	inside, err := k.Contains(boundary, g)
	if err != nil || inside {
		return false, err
	}
	rest, err := k.Difference(g, boundary)
	if err != nil {
		return false, err
	}
	return exceeds(k, rest, g)
}

// overlapping 两个面要素的重叠面积是否超出容差
func overlapping(k geokernel.Kernel, a, b orb.Geometry) (bool, error) {
	overlaps, err := k.Overlaps(a, b)
	if err != nil || !overlaps {
		return false, err
	}
	shared, err := k.Intersect(a, b)
	if err != nil {
		return false, err
	}
	return exceeds(k, shared, a)
}

// CheckInvariants 检查图层一致性
func (s *Store) CheckInvariants(k geokernel.Kernel) error {
	for _, spec := range Layers {
		if n := len(s.layer(spec.Category).features); n > 1 && !spec.AllowMultiple {
			return &InvariantError{Category: spec.Category, Problem: fmt.Sprintf("%d features present in a single-feature layer", n)}
		}
	}
	boundaries := s.sorted(PropertyBoundary)
	if len(boundaries) == 0 {
		if s.HasDependents() {
			return &InvariantError{Category: PropertyBoundary, Problem: "dependent layers populated without a boundary"}
		}
		return nil
	}
	boundary := boundaries[0].Geometry

	for _, hq := range s.sorted(Headquarters) {
		inside, err := k.Contains(boundary, hq.Geometry)
		if err != nil {
			return err
		}
		if !inside {
			return &InvariantError{Category: Headquarters, ID: hq.ID, Problem: "outside the property boundary"}
		}
	}

	for _, c := range LandCoverCategories() {
		for _, f := range s.sorted(c) {
			out, err := outside(k, boundary, f.Geometry)
			if err != nil {
				return err
			}
			if out {
				return &InvariantError{Category: c, ID: f.ID, Problem: "not contained by the property boundary"}
			}
			for _, hc := range HigherPrecedence(c) {
				for _, h := range s.sorted(hc) {
					overlaps, err := overlapping(k, f.Geometry, h.Geometry)
					if err != nil {
						return err
					}
					if overlaps {
						return &InvariantError{Category: c, ID: f.ID, Problem: fmt.Sprintf("overlaps %s feature %s", hc, h.ID)}
					}
				}
			}
		}
	}

	for _, spec := range Layers {
		if !spec.Hideable && !s.Visible(spec.Category) {
			return &InvariantError{Category: spec.Category, Problem: "hidden although it must stay visible"}
		}
	}
	return nil
}
