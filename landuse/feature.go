package landuse

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// FeatureID 要素标识，会话内单调递增，编辑时保持不变
type FeatureID int64

func (id FeatureID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Lifecycle 要素生命周期标记
type Lifecycle string

const (
	Created Lifecycle = "created"
	Clipped Lifecycle = "clipped"
	Removed Lifecycle = "removed"
)

// Feature 已提交的要素。Geometry 视为不可变，修改时整体替换。
type Feature struct {
	ID       FeatureID    `json:"id"`
	Category Category     `json:"category"`
	Geometry orb.Geometry `json:"-"`
	State    Lifecycle    `json:"state"`
}

// FeatureRef 要素引用
type FeatureRef struct {
	Category Category  `json:"category"`
	ID       FeatureID `json:"id"`
}

// ChangeKind 变更类型
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change 一次存储变更，Old/New 为变更前后的几何
type Change struct {
	Kind     ChangeKind   `json:"kind"`
	Category Category     `json:"category"`
	ID       FeatureID    `json:"id"`
	State    Lifecycle    `json:"state"`
	Old      orb.Geometry `json:"-"`
	New      orb.Geometry `json:"-"`
}

// ChangeSet 一次编辑产生的全部变更
type ChangeSet []Change

// Touches 变更是否涉及该类别
func (cs ChangeSet) Touches(c Category) bool {
	for _, ch := range cs {
		if ch.Category == c {
			return true
		}
	}
	return false
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// checkKind 检查几何类型与图层是否匹配
func checkKind(c Category, g orb.Geometry) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	if g == nil {
		return fmt.Errorf("%w: empty geometry for %s", ErrGeometryKind, c)
	}
	switch g.(type) {
	case orb.Point:
		if c.IsPoint() {
			return nil
		}
	case orb.Polygon, orb.MultiPolygon:
		if !c.IsPoint() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s given for %s", ErrGeometryKind, g.GeoJSONType(), c)
}
