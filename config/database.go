package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// OpenDatabase 按配置打开数据库
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBType {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "sqlite":
		if cfg.SqlitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SqlitePath), os.ModePerm); err != nil {
				log.Printf("创建存储目录失败: %v", err)
				return nil, err
			}
		}
		log.Printf("数据库路径: %s", cfg.SqlitePath)
		dialector = sqlite.Open(cfg.SqlitePath)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}

	level := logger.Silent
	if cfg.GinMode == "debug" {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		log.Printf("连接数据库失败: %v", err)
		return nil, err
	}
	return db, nil
}
