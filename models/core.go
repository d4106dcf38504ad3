package models

import (
	"log"

	"gorm.io/gorm"
)

// MigrateAll 批量迁移所有表
func MigrateAll(db *gorm.DB) error {
	models := []interface{}{
		&Property{},
		&LandFeature{},
		&GeoRecord{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Printf("Failed to migrate tables: %v", err)
		return err
	}
	return nil
}
