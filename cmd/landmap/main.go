package main

import (
	"fmt"
	"log"

	"github.com/GrainArc/LandMap/config"
	"github.com/GrainArc/LandMap/models"
	"github.com/GrainArc/LandMap/routers"
	"github.com/GrainArc/LandMap/services"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "landmap",
		Short: "农村地产土地利用图层服务",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据表",
		RunE:  runMigrate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.xml", "配置文件路径 (xml 或 yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("landmap: %v", err)
	}
}

// openDB 读取配置并连接数据库、迁移表结构
func openDB() (config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("open database: %w", err)
	}
	if err := models.MigrateAll(db); err != nil {
		return cfg, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, _, err := openDB()
	if err != nil {
		return err
	}
	log.Printf("数据表已就绪 (%s)", cfg.DBType)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := openDB()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	service := services.NewPropertyService(db, services.NewFeedHub(), services.WithStrictInvariants(cfg.StrictInvariants))
	r := gin.Default()
	routers.LandRouters(r, service, cfg)
	routers.MetricsRouters(r)

	log.Printf("landmap listening on %s", cfg.MainRouter)
	return r.Run(cfg.MainRouter)
}
