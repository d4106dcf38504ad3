package geokernel

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// AreaUnit 面积单位
type AreaUnit string

const (
	SquareMeters AreaUnit = "square-meters"
	Hectares     AreaUnit = "hectares"
	Acres        AreaUnit = "acres"
)

// LengthUnit 长度单位
type LengthUnit string

const (
	Meters     LengthUnit = "meters"
	Kilometers LengthUnit = "kilometers"
)

// Kernel 几何内核接口
//
// 所有几何值视为不可变。返回 nil 几何表示结果为空（没有剩余面积），这是正常结果而非错误。
// 内核内部错误统一以 *Failure 返回。
type Kernel interface {
	// Clip 将 geom 裁剪到 boundary 内
	Clip(geom, boundary orb.Geometry) (orb.Geometry, error)
	Intersect(a, b orb.Geometry) (orb.Geometry, error)
	Difference(a, b orb.Geometry) (orb.Geometry, error)
	Union(geoms []orb.Geometry) (orb.Geometry, error)
	Contains(container, contained orb.Geometry) (bool, error)
	// Overlaps 两个几何的内部是否相交（仅边界接触不算）
	Overlaps(a, b orb.Geometry) (bool, error)
	Equals(a, b orb.Geometry) (bool, error)
	GeodesicArea(geom orb.Geometry, unit AreaUnit) (float64, error)
	GeodesicLength(line orb.Geometry, unit LengthUnit) (float64, error)
}

// Failure 内核调用失败，记录失败的操作和输入
type Failure struct {
	Op         string
	Inputs     []string
	Diagnostic string
}

func (f *Failure) Error() string {
	if len(f.Inputs) == 0 {
		return fmt.Sprintf("geometry kernel %s failed: %s", f.Op, f.Diagnostic)
	}
	return fmt.Sprintf("geometry kernel %s failed: %s (inputs: %s)", f.Op, f.Diagnostic, strings.Join(f.Inputs, "; "))
}

// maxInputLen WKT诊断信息截断长度
const maxInputLen = 256

func newFailure(op string, diagnostic string, inputs ...orb.Geometry) *Failure {
	f := &Failure{Op: op, Diagnostic: diagnostic}
	for _, g := range inputs {
		f.Inputs = append(f.Inputs, describe(g))
	}
	return f
}

func describe(g orb.Geometry) string {
	if g == nil {
		return "EMPTY"
	}
	s := wkt.MarshalString(g)
	if len(s) > maxInputLen {
		s = s[:maxInputLen] + "..."
	}
	return s
}

// IsEmpty 判断几何是否为空
func IsEmpty(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case orb.Point:
		return false
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range v {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, l := range v {
			if len(l) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPoint:
		return len(v) == 0
	case orb.Ring:
		return len(v) == 0
	}
	return false
}

// IsPolygonal 判断是否为面几何
func IsPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// ConvertArea 将平方米换算为目标单位
func ConvertArea(squareMeters float64, unit AreaUnit) (float64, error) {
	switch unit {
	case SquareMeters, "":
		return squareMeters, nil
	case Hectares:
		return squareMeters / 10000, nil
	case Acres:
		return squareMeters / 10000 * 2.47105, nil
	}
	return 0, fmt.Errorf("unknown area unit %q", unit)
}

// ConvertLength 将米换算为目标单位
func ConvertLength(meters float64, unit LengthUnit) (float64, error) {
	switch unit {
	case Meters, "":
		return meters, nil
	case Kilometers:
		return meters / 1000, nil
	}
	return 0, fmt.Errorf("unknown length unit %q", unit)
}
