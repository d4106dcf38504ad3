package models

import "gorm.io/datatypes"

// GeoRecord 要素编辑记录，每个已提交的变更一条
type GeoRecord struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	PropertyID string `gorm:"type:varchar(36);index"`
	Category   string `gorm:"type:varchar(64)"`
	FeatureID  int64
	Username   string `gorm:"type:varchar(255)"`
	// Type added / modified / removed
	Type       string `gorm:"type:varchar(32)"`
	State      string `gorm:"type:varchar(32)"`
	Date       string `gorm:"type:varchar(255)"`
	BZ         string `gorm:"type:varchar(255)"`
	OldGeojson datatypes.JSON
	NewGeojson datatypes.JSON
}
