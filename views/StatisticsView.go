package views

import (
	"fmt"
	"net/http"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/GrainArc/LandMap/landuse"
	"github.com/GrainArc/LandMap/methods"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// resolveUnit 请求中的单位，为空时使用配置的默认单位
func (h *LandHandler) resolveUnit(unit string) (geokernel.AreaUnit, error) {
	if unit == "" {
		return h.areaUnit, nil
	}
	u := geokernel.AreaUnit(unit)
	if _, ok := methods.UnitSymbols[u]; !ok {
		return "", fmt.Errorf("unknown area unit %q", unit)
	}
	return u, nil
}

// buildAreas 公顷面积表转换为响应，按图层显示顺序
func (h *LandHandler) buildAreas(totals map[landuse.Category]float64, unit geokernel.AreaUnit) ([]AreaResponse, error) {
	property := totals[landuse.PropertyBoundary]
	out := make([]AreaResponse, 0, len(totals))
	for _, cat := range landuse.Categories() {
		spec, _ := cat.Spec()
		if spec.Geometry == landuse.KindPoint {
			continue
		}
		ha := totals[cat]
		value, err := methods.HectaresTo(ha, unit)
		if err != nil {
			return nil, err
		}
		value = methods.Round2(value)
		out = append(out, AreaResponse{
			Layer:     spec.Key,
			Name:      spec.Name,
			Value:     value,
			Unit:      string(unit),
			Formatted: methods.FormatArea(value, unit, h.locale),
			Percent:   methods.Percentage(ha, property),
		})
	}
	return out, nil
}

// Areas 各图层面积
func (h *LandHandler) Areas(c *gin.Context) {
	unit, err := h.resolveUnit(c.Query("unit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	totals, err := h.service.Areas(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	areas, err := h.buildAreas(totals, unit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": areas})
}

// Coverage 覆盖检查，返回未覆盖部分的 GeoJSON
func (h *LandHandler) Coverage(c *gin.Context) {
	report, err := h.service.Coverage(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "message": report.Message})
		return
	}
	resp := gin.H{
		"fullyCovered":      report.FullyCovered,
		"uncoveredHectares": methods.Round2(report.UncoveredHectares),
		"formatted":         methods.FormatArea(methods.Round2(report.UncoveredHectares), geokernel.Hectares, h.locale),
		"message":           report.Message,
	}
	if report.Uncovered != nil {
		resp["uncovered"] = geojson.NewFeature(report.Uncovered)
	}
	c.JSON(http.StatusOK, resp)
}

// Summary 多个地产的面积和覆盖汇总
func (h *LandHandler) Summary(c *gin.Context) {
	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	unit, err := h.resolveUnit(req.Unit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summaries, err := h.service.Summaries(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		areas, err := h.buildAreas(s.Areas, unit)
		if err != nil {
			writeError(c, err)
			return
		}
		item := gin.H{"id": s.ID, "name": s.Name, "areas": areas}
		if s.Coverage != nil {
			item["fullyCovered"] = s.Coverage.FullyCovered
			item["coverageMessage"] = s.Coverage.Message
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// MeasureLength 测量线长度
func (h *LandHandler) MeasureLength(c *gin.Context) {
	var req MeasureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	g, err := methods.ParseGeometry(req.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "geometry must be a LineString"})
		return
	}

	unit := geokernel.LengthUnit(req.Unit)
	switch unit {
	case "":
		unit = geokernel.Meters
	case geokernel.Meters, geokernel.Kilometers:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown length unit %q", req.Unit)})
		return
	}
	length, err := h.service.MeasureLength(g, unit)
	if err != nil {
		writeError(c, err)
		return
	}
	meters, _ := h.service.MeasureLength(g, geokernel.Meters)
	c.JSON(http.StatusOK, gin.H{
		"value":     methods.Round2(length),
		"unit":      unit,
		"formatted": methods.FormatLength(meters, h.locale),
	})
}

// MeasureArea 测量面面积，默认使用配置的面积单位
func (h *LandHandler) MeasureArea(c *gin.Context) {
	var req MeasureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	g, err := methods.ParseGeometry(req.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !geokernel.IsPolygonal(g) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geometry must be a Polygon"})
		return
	}
	unit, err := h.resolveUnit(req.Unit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	area, err := h.service.MeasureArea(g, unit)
	if err != nil {
		writeError(c, err)
		return
	}
	value := methods.Round2(area)
	c.JSON(http.StatusOK, gin.H{
		"value":     value,
		"unit":      unit,
		"formatted": methods.FormatArea(value, unit, h.locale),
	})
}
