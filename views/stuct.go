package views

import (
	"encoding/json"

	"github.com/GrainArc/LandMap/landuse"
	"github.com/paulmach/orb/geojson"
)

// CreatePropertyRequest 创建地产
type CreatePropertyRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// FeatureRequest 提交或编辑要素，geometry 可以是 GeoJSON Geometry 或 Feature
type FeatureRequest struct {
	Category string          `json:"category" binding:"required"`
	Geometry json.RawMessage `json:"geometry" binding:"required"`
	Username string          `json:"username"`
}

// ClearRequest 清空图层
type ClearRequest struct {
	Confirm  bool   `json:"confirm"`
	Username string `json:"username"`
}

// VisibilityRequest 图层显隐
type VisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SummaryRequest 多地产汇总
type SummaryRequest struct {
	IDs  []string `json:"ids" binding:"required,min=1,max=100,dive,uuid"`
	Unit string   `json:"unit"`
}

// MeasureRequest 测量线长度
type MeasureRequest struct {
	Geometry json.RawMessage `json:"geometry" binding:"required"`
	Unit     string          `json:"unit"`
}

// OutcomeResponse 提交结果
type OutcomeResponse struct {
	Accepted      bool                     `json:"accepted"`
	Clipped       bool                     `json:"clipped"`
	Reason        landuse.RejectionReason  `json:"reason,omitempty"`
	Message       string                   `json:"message,omitempty"`
	Feature       *geojson.Feature         `json:"feature,omitempty"`
	Changes       []ChangeResponse         `json:"changes,omitempty"`
	CascadeFailed []CascadeFailureResponse `json:"cascadeFailed,omitempty"`
}

// ChangeResponse 单个存储变更
type ChangeResponse struct {
	Kind     landuse.ChangeKind `json:"kind"`
	Category landuse.Category   `json:"category"`
	ID       landuse.FeatureID  `json:"id"`
	State    landuse.Lifecycle  `json:"state"`
}

// CascadeFailureResponse 级联时未能处理的要素
type CascadeFailureResponse struct {
	Category landuse.Category  `json:"category"`
	ID       landuse.FeatureID `json:"id"`
	Error    string            `json:"error"`
}

// AreaResponse 单个图层面积
type AreaResponse struct {
	Layer     string  `json:"layer"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Formatted string  `json:"formatted"`
	Percent   float64 `json:"percent"`
}
