package views

import (
	"net/http"
	"strconv"

	"github.com/GrainArc/LandMap/config"
	"github.com/GrainArc/LandMap/geokernel"
	"github.com/GrainArc/LandMap/landuse"
	"github.com/GrainArc/LandMap/methods"
	"github.com/GrainArc/LandMap/services"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

// LandHandler 地产编辑接口
type LandHandler struct {
	service  *services.PropertyService
	areaUnit geokernel.AreaUnit
	locale   string
}

func NewLandHandler(service *services.PropertyService, cfg config.Config) *LandHandler {
	return &LandHandler{
		service:  service,
		areaUnit: geokernel.AreaUnit(cfg.AreaUnit),
		locale:   cfg.Locale,
	}
}

// Layers 图层定义表
func (h *LandHandler) Layers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"layers": landuse.Layers})
}

// CreateProperty 创建地产
func (h *LandHandler) CreateProperty(c *gin.Context) {
	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	p, err := h.service.CreateProperty(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "name": p.Name, "ws_url": "/land/property/" + p.ID + "/ws"})
}

// ListProperty 地产列表
func (h *LandHandler) ListProperty(c *gin.Context) {
	list, err := h.service.ListProperties(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, p := range list {
		out = append(out, gin.H{"id": p.ID, "name": p.Name, "created_at": p.CreatedAt, "updated_at": p.UpdatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// DeleteProperty 删除地产，需要 confirm=true
func (h *LandHandler) DeleteProperty(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.service.DeleteProperty(c.Request.Context(), c.Param("id"), confirmed); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GetProperty 地产快照，每个图层一个 FeatureCollection
func (h *LandHandler) GetProperty(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	p, err := h.service.GetProperty(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	layers, err := h.service.Snapshot(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	collections := make([]*geojson.FeatureCollection, 0, len(layers))
	for _, l := range layers {
		collections = append(collections, methods.MakeLayerGeoJSON(l))
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "name": p.Name, "layers": collections})
}

// SubmitFeature 提交新要素
func (h *LandHandler) SubmitFeature(c *gin.Context) {
	var req FeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	cat, err := landuse.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	g, err := methods.ParseGeometry(req.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.service.Submit(c.Request.Context(), c.Param("id"), username(req.Username), cat, g)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeResponse(out))
}

// UpdateFeature 编辑要素
func (h *LandHandler) UpdateFeature(c *gin.Context) {
	var req FeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	cat, fid, ok := featureParams(c, req.Category)
	if !ok {
		return
	}
	g, err := methods.ParseGeometry(req.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.service.Update(c.Request.Context(), c.Param("id"), username(req.Username), cat, fid, g)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeResponse(out))
}

// RemoveFeature 删除要素，删除红线需要 confirm=true
func (h *LandHandler) RemoveFeature(c *gin.Context) {
	cat, fid, ok := featureParams(c, c.Query("category"))
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	cs, err := h.service.Remove(c.Request.Context(), c.Param("id"), username(c.Query("username")), cat, fid, confirmed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changesResponse(cs)})
}

// ClearLayer 清空图层
func (h *LandHandler) ClearLayer(c *gin.Context) {
	var req ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	cat, err := landuse.ParseCategory(c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	cs, err := h.service.Clear(c.Request.Context(), c.Param("id"), username(req.Username), cat, req.Confirm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changesResponse(cs)})
}

// SetVisibility 图层显隐，人为干扰区不能隐藏
func (h *LandHandler) SetVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	cat, err := landuse.ParseCategory(c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.service.SetVisibility(c.Request.Context(), c.Param("id"), cat, *req.Visible); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"layer": cat, "visible": *req.Visible})
}

// Records 编辑记录
func (h *LandHandler) Records(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records, err := h.service.Records(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
