package models

import (
	"time"

	"gorm.io/datatypes"
)

// Property 地产，一个地产对应一个编辑会话
type Property struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
	UpdatedAt time.Time
	// Visibility 图层可见性 {"fallow-area": false}
	Visibility datatypes.JSON
}

// LandFeature 地产中的一个要素，几何以 WKB 十六进制保存
type LandFeature struct {
	PropertyID string `gorm:"type:varchar(36);primaryKey"`
	FeatureID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Category   string `gorm:"type:varchar(64);index"`
	State      string `gorm:"type:varchar(32)"`
	Geom       string `gorm:"type:text"`
	UpdatedAt  time.Time
}
