package landuse

import (
	"fmt"
	"sort"
)

// Category 图层类别
type Category int

const (
	PropertyBoundary Category = iota
	Headquarters
	Consolidated
	NativeVegetation
	Fallow
	Anthropized
)

// GeometryKind 图层几何类型
type GeometryKind string

const (
	KindPoint   GeometryKind = "point"
	KindPolygon GeometryKind = "multipolygon"
)

// Style 图层样式，RGBA
type Style struct {
	FillColor    [4]float64 `json:"fillColor,omitempty"`
	Color        [4]float64 `json:"color,omitempty"`
	Size         float64    `json:"size,omitempty"`
	OutlineColor [4]float64 `json:"outlineColor"`
	OutlineWidth float64    `json:"outlineWidth"`
}

// LayerSpec 图层定义。Rank 为地类优先级，数值越大优先级越高。
type LayerSpec struct {
	Category      Category     `json:"-"`
	Key           string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Geometry      GeometryKind `json:"geometryType"`
	AllowMultiple bool         `json:"allowMultiple"`
	Required      bool         `json:"required"`
	Rank          int          `json:"rank"`
	LandCover     bool         `json:"landCover"`
	Hideable      bool         `json:"hideable"`
	Order         int          `json:"order"`
	Style         Style        `json:"style"`
	Rules         []string     `json:"rules"`
}

// Layers 图层定义表，新增类别只需在此增加一行
var Layers = []LayerSpec{
	{
		Category:    PropertyBoundary,
		Key:         "property-area",
		Name:        "Property Area",
		Description: "The boundary of the property",
		Geometry:    KindPolygon,
		Required:    true,
		Rank:        0,
		Hideable:    true,
		Order:       0,
		Style:       Style{FillColor: [4]float64{0, 0, 0, 0.1}, OutlineColor: [4]float64{0, 0, 0, 0.7}, OutlineWidth: 2},
		Rules: []string{
			"Other layers cannot be drawn until the Property Area is defined.",
			"If deleted, all other layers will also be deleted.",
		},
	},
	{
		Category:    Headquarters,
		Key:         "property-headquarters",
		Name:        "Property Headquarters",
		Description: "The main building or administrative center of the property",
		Geometry:    KindPoint,
		Rank:        1,
		Hideable:    true,
		Order:       1,
		Style:       Style{Color: [4]float64{255, 0, 0, 1}, Size: 10, OutlineColor: [4]float64{255, 255, 255, 0.7}, OutlineWidth: 1},
		Rules: []string{
			"Must be located inside the Property Area.",
		},
	},
	{
		Category:      Consolidated,
		Key:           "consolidated-area",
		Name:          "Consolidated Area",
		Description:   "Areas used for agricultural or other productive activities",
		Geometry:      KindPolygon,
		AllowMultiple: true,
		Rank:          2,
		LandCover:     true,
		Hideable:      true,
		Order:         2,
		Style:         Style{FillColor: [4]float64{255, 165, 0, 0.5}, OutlineColor: [4]float64{255, 165, 0, 0.8}, OutlineWidth: 1},
		Rules: []string{
			"Only counted within the Property Area.",
			"Cannot overlap Native Vegetation.",
			"When overlapping Native Vegetation, the Consolidated Area is clipped.",
		},
	},
	{
		Category:      NativeVegetation,
		Key:           "native-vegetation",
		Name:          "Native Vegetation",
		Description:   "Areas with original or regenerated native vegetation",
		Geometry:      KindPolygon,
		AllowMultiple: true,
		Rank:          3,
		LandCover:     true,
		Hideable:      true,
		Order:         3,
		Style:         Style{FillColor: [4]float64{0, 128, 0, 0.5}, OutlineColor: [4]float64{0, 128, 0, 0.8}, OutlineWidth: 1},
		Rules: []string{
			"Only counted within the Property Area.",
			"Prevails when overlapping Consolidated, Anthropized or Fallow Areas.",
		},
	},
	{
		Category:      Fallow,
		Key:           "fallow-area",
		Name:          "Fallow Area",
		Description:   "Previously cultivated land left to recover",
		Geometry:      KindPolygon,
		AllowMultiple: true,
		Rank:          2,
		LandCover:     true,
		Hideable:      true,
		Order:         4,
		Style:         Style{FillColor: [4]float64{210, 180, 140, 0.5}, OutlineColor: [4]float64{210, 180, 140, 0.8}, OutlineWidth: 1},
		Rules: []string{
			"Only counted within the Property Area.",
			"When overlapping Native Vegetation, the Fallow Area is clipped.",
		},
	},
	{
		Category:      Anthropized,
		Key:           "anthropized-area",
		Name:          "Anthropized Area 2018",
		Description:   "Areas altered by human activity after 2018",
		Geometry:      KindPolygon,
		AllowMultiple: true,
		Rank:          2,
		LandCover:     true,
		Hideable:      false,
		Order:         5,
		Style:         Style{FillColor: [4]float64{255, 0, 0, 0.5}, OutlineColor: [4]float64{255, 0, 0, 0.8}, OutlineWidth: 1},
		Rules: []string{
			"Only counted within the Property Area.",
			"Must remain visible to the user at all times on the map.",
		},
	},
}

var specByCategory = func() map[Category]LayerSpec {
	m := make(map[Category]LayerSpec, len(Layers))
	for _, l := range Layers {
		m[l.Category] = l
	}
	return m
}()

// Spec 返回类别定义
func (c Category) Spec() (LayerSpec, bool) {
	s, ok := specByCategory[c]
	return s, ok
}

func (c Category) String() string {
	if s, ok := specByCategory[c]; ok {
		return s.Key
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c Category) Valid() bool {
	_, ok := specByCategory[c]
	return ok
}

// IsLandCover 是否为地类图层
func (c Category) IsLandCover() bool {
	return specByCategory[c].LandCover
}

// IsPoint 是否为点图层
func (c Category) IsPoint() bool {
	return specByCategory[c].Geometry == KindPoint
}

// ParseCategory 按图层标识解析类别
func ParseCategory(key string) (Category, error) {
	for _, l := range Layers {
		if l.Key == key {
			return l.Category, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
}

// Categories 按显示顺序返回全部类别
func Categories() []Category {
	specs := append([]LayerSpec(nil), Layers...)
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Order < specs[j].Order })
	out := make([]Category, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Category)
	}
	return out
}

// LandCoverCategories 按显示顺序返回地类图层
func LandCoverCategories() []Category {
	var out []Category
	for _, c := range Categories() {
		if c.IsLandCover() {
			out = append(out, c)
		}
	}
	return out
}

// TopLandCover 优先级最高的地类
func TopLandCover() Category {
	top, best := Category(-1), -1
	for _, c := range LandCoverCategories() {
		if r := specByCategory[c].Rank; r > best {
			top, best = c, r
		}
	}
	return top
}

// HigherPrecedence 优先级高于 c 的地类，按显示顺序
func HigherPrecedence(c Category) []Category {
	var out []Category
	rank := specByCategory[c].Rank
	for _, lc := range LandCoverCategories() {
		if specByCategory[lc].Rank > rank {
			out = append(out, lc)
		}
	}
	return out
}

// LowerPrecedence 优先级低于 c 的地类，按显示顺序，即级联裁剪的处理顺序
func LowerPrecedence(c Category) []Category {
	var out []Category
	rank := specByCategory[c].Rank
	for _, lc := range LandCoverCategories() {
		if specByCategory[lc].Rank < rank {
			out = append(out, lc)
		}
	}
	return out
}
