package methods

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GrainArc/LandMap/landuse"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"gorm.io/datatypes"
)

// GeoJsonToWKB 几何转 WKB 十六进制
func GeoJsonToWKB(g orb.Geometry) (string, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// WKBToGeometry WKB 十六进制转几何
func WKBToGeometry(s string) (orb.Geometry, error) {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return wkb.Unmarshal(data)
}

// ParseGeometry 解析 GeoJSON，可以是 Geometry 或 Feature
func ParseGeometry(raw json.RawMessage) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid geojson: %w", err)
	}
	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid geojson feature: %w", err)
		}
		if f.Geometry == nil {
			return nil, fmt.Errorf("geojson feature has no geometry")
		}
		return f.Geometry, nil
	case "Point", "MultiPoint", "LineString", "MultiLineString", "Polygon", "MultiPolygon":
	case "":
		return nil, fmt.Errorf("geojson type missing")
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", probe.Type)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid geojson geometry: %w", err)
	}
	return g.Geometry(), nil
}

// GeometryJSON 几何转 GeoJSON，用于编辑记录；nil 几何返回 nil
func GeometryJSON(g orb.Geometry) datatypes.JSON {
	if g == nil {
		return nil
	}
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// FeatureToGeoJSON 单个要素转 GeoJSON Feature
func FeatureToGeoJSON(f landuse.Feature) *geojson.Feature {
	feature := geojson.NewFeature(f.Geometry)
	feature.ID = int64(f.ID)
	feature.Properties = geojson.Properties{
		"id":       int64(f.ID),
		"category": f.Category.String(),
		"state":    string(f.State),
	}
	// 点要素附带度分秒坐标
	if pt, ok := f.Geometry.(orb.Point); ok {
		feature.Properties["lat"] = ToDMS(pt.Lat(), true)
		feature.Properties["lon"] = ToDMS(pt.Lon(), false)
	}
	return feature
}

// MakeLayerGeoJSON 图层快照转 FeatureCollection
func MakeLayerGeoJSON(layer landuse.LayerSnapshot) *geojson.FeatureCollection {
	features := geojson.NewFeatureCollection()
	for _, f := range layer.Features {
		features.Append(FeatureToGeoJSON(f))
	}
	features.ExtraMembers = geojson.Properties{
		"layer":   layer.Spec.Key,
		"name":    layer.Spec.Name,
		"visible": layer.Visible,
	}
	return features
}
