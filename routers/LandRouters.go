package routers

import (
	"github.com/GrainArc/LandMap/config"
	"github.com/GrainArc/LandMap/services"
	"github.com/GrainArc/LandMap/views"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func LandRouters(r *gin.Engine, service *services.PropertyService, cfg config.Config) {
	handler := views.NewLandHandler(service, cfg)
	landRouter := r.Group("/land")
	{
		landRouter.GET("/layers", handler.Layers)
		landRouter.POST("/summary", handler.Summary)
		landRouter.POST("/measure/length", handler.MeasureLength)
		landRouter.POST("/measure/area", handler.MeasureArea)
	}
	{
		landRouter.POST("/property", handler.CreateProperty)
		landRouter.GET("/property", handler.ListProperty)
		landRouter.GET("/property/:id", handler.GetProperty)
		// 需要 confirm=true
		landRouter.DELETE("/property/:id", handler.DeleteProperty)
		landRouter.GET("/property/:id/records", handler.Records)
		// WebSocket 变更推送
		landRouter.GET("/property/:id/ws", handler.Feed)
	}
	{
		landRouter.POST("/property/:id/features", handler.SubmitFeature)
		landRouter.PUT("/property/:id/features/:fid", handler.UpdateFeature)
		landRouter.DELETE("/property/:id/features/:fid", handler.RemoveFeature)
		landRouter.POST("/property/:id/layers/:category/clear", handler.ClearLayer)
		landRouter.POST("/property/:id/layers/:category/visibility", handler.SetVisibility)
	}
	{
		landRouter.GET("/property/:id/coverage", handler.Coverage)
		landRouter.GET("/property/:id/areas", handler.Areas)
	}
}

// MetricsRouters Prometheus 指标
func MetricsRouters(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
