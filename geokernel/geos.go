package geokernel

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geo"
	"github.com/twpayne/go-geos"
)

// GeosKernel 基于GEOS的几何内核
//
// 一个 GeosKernel 持有独立的 GEOS 上下文，不应在多个会话之间共享。
type GeosKernel struct {
	mu  sync.Mutex
	ctx *geos.Context
}

// NewGeosKernel 创建GEOS内核
func NewGeosKernel() *GeosKernel {
	return &GeosKernel{ctx: geos.NewContext()}
}

// run 串行执行一次内核调用，并将 go-geos 的 panic 转换为 *Failure
func (k *GeosKernel) run(op string, inputs []orb.Geometry, fn func() error) (err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = newFailure(op, fmt.Sprint(r), inputs...)
		}
	}()
	if err := fn(); err != nil {
		if _, ok := err.(*Failure); ok {
			return err
		}
		return newFailure(op, err.Error(), inputs...)
	}
	return nil
}

// toGeos orb几何经WKB转换为GEOS几何，并检查有效性
func (k *GeosKernel) toGeos(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	gg, err := k.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	if !gg.IsValid() {
		return nil, fmt.Errorf("invalid geometry: %s", gg.IsValidReason())
	}
	return gg, nil
}

// fromGeos GEOS结果转回orb，只保留面部分；空结果返回nil
func fromGeos(gg *geos.Geom) (orb.Geometry, error) {
	if gg == nil || gg.IsEmpty() {
		return nil, nil
	}
	g, err := wkb.Unmarshal(gg.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode result wkb: %w", err)
	}
	return polygonal(g), nil
}

// polygonal 提取几何中的面要素，线、点等退化结果被丢弃
func polygonal(g orb.Geometry) orb.Geometry {
	var polys orb.MultiPolygon
	var collect func(orb.Geometry)
	collect = func(g orb.Geometry) {
		switch v := g.(type) {
		case orb.Polygon:
			if !IsEmpty(v) {
				polys = append(polys, v)
			}
		case orb.MultiPolygon:
			for _, p := range v {
				collect(p)
			}
		case orb.Collection:
			for _, c := range v {
				collect(c)
			}
		}
	}
	collect(g)
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	}
	return polys
}

func (k *GeosKernel) binary(op string, a, b orb.Geometry, fn func(x, y *geos.Geom) *geos.Geom) (orb.Geometry, error) {
	if IsEmpty(a) {
		return nil, nil
	}
	var out orb.Geometry
	err := k.run(op, []orb.Geometry{a, b}, func() error {
		x, err := k.toGeos(a)
		if err != nil {
			return err
		}
		y, err := k.toGeos(b)
		if err != nil {
			return err
		}
		out, err = fromGeos(fn(x, y))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clip 面几何裁剪到边界；点几何在边界内时原样返回
func (k *GeosKernel) Clip(geom, boundary orb.Geometry) (orb.Geometry, error) {
	if IsEmpty(boundary) {
		return nil, nil
	}
	if p, ok := geom.(orb.Point); ok {
		inside, err := k.Contains(boundary, p)
		if err != nil || !inside {
			return nil, err
		}
		return p, nil
	}
	return k.binary("clip", geom, boundary, func(x, y *geos.Geom) *geos.Geom {
		return x.Intersection(y)
	})
}

func (k *GeosKernel) Intersect(a, b orb.Geometry) (orb.Geometry, error) {
	if IsEmpty(b) {
		return nil, nil
	}
	return k.binary("intersect", a, b, func(x, y *geos.Geom) *geos.Geom {
		return x.Intersection(y)
	})
}

func (k *GeosKernel) Difference(a, b orb.Geometry) (orb.Geometry, error) {
	if IsEmpty(b) {
		return a, nil
	}
	return k.binary("difference", a, b, func(x, y *geos.Geom) *geos.Geom {
		return x.Difference(y)
	})
}

// Union 合并多个几何，空输入返回nil
func (k *GeosKernel) Union(geoms []orb.Geometry) (orb.Geometry, error) {
	var parts []orb.Geometry
	for _, g := range geoms {
		if !IsEmpty(g) {
			parts = append(parts, g)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	var out orb.Geometry
	err := k.run("union", parts, func() error {
		acc, err := k.toGeos(parts[0])
		if err != nil {
			return err
		}
		for _, g := range parts[1:] {
			next, err := k.toGeos(g)
			if err != nil {
				return err
			}
			acc = acc.Union(next)
		}
		out, err = fromGeos(acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (k *GeosKernel) predicate(op string, a, b orb.Geometry, fn func(x, y *geos.Geom) bool) (bool, error) {
	if IsEmpty(a) || IsEmpty(b) {
		return false, nil
	}
	var out bool
	err := k.run(op, []orb.Geometry{a, b}, func() error {
		x, err := k.toGeos(a)
		if err != nil {
			return err
		}
		y, err := k.toGeos(b)
		if err != nil {
			return err
		}
		out = fn(x, y)
		return nil
	})
	return out, err
}

func (k *GeosKernel) Contains(container, contained orb.Geometry) (bool, error) {
	return k.predicate("contains", container, contained, func(x, y *geos.Geom) bool {
		return x.Contains(y)
	})
}

func (k *GeosKernel) Overlaps(a, b orb.Geometry) (bool, error) {
	return k.predicate("overlaps", a, b, func(x, y *geos.Geom) bool {
		return x.Intersects(y) && !x.Touches(y)
	})
}

func (k *GeosKernel) Equals(a, b orb.Geometry) (bool, error) {
	if IsEmpty(a) || IsEmpty(b) {
		return IsEmpty(a) && IsEmpty(b), nil
	}
	return k.predicate("equals", a, b, func(x, y *geos.Geom) bool {
		return x.Equals(y)
	})
}

// GeodesicArea 球面面积，只对面几何有意义
func (k *GeosKernel) GeodesicArea(geom orb.Geometry, unit AreaUnit) (float64, error) {
	if IsEmpty(geom) || !IsPolygonal(geom) {
		return 0, nil
	}
	area, err := ConvertArea(geo.Area(geom), unit)
	if err != nil {
		return 0, newFailure("geodesicArea", err.Error(), geom)
	}
	return area, nil
}

// GeodesicLength 球面长度
func (k *GeosKernel) GeodesicLength(line orb.Geometry, unit LengthUnit) (float64, error) {
	if IsEmpty(line) {
		return 0, nil
	}
	switch line.(type) {
	case orb.LineString, orb.MultiLineString, orb.Ring:
	default:
		return 0, newFailure("geodesicLength", fmt.Sprintf("unsupported geometry %s", line.GeoJSONType()), line)
	}
	length, err := ConvertLength(geo.Length(line), unit)
	if err != nil {
		return 0, newFailure("geodesicLength", err.Error(), line)
	}
	return length, nil
}
