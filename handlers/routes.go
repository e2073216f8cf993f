package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter builds the gin engine with every route
func SetupRouter(h *Handlers, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{"^/ws/", "^/media/", "^/api/v1/markers/"})))

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Submission-Key"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api/v1")
	{
		api.POST("/reports", h.SubmitReport)
		api.GET("/reports", h.ListReports)
		api.GET("/reports.geojson", h.ReportsGeoJSON)
		api.GET("/reports/:id", h.GetReport)
		api.POST("/reports/:id/advance", h.AdvanceStatus)

		api.GET("/poi", h.ListPOIs)
		api.GET("/poi.geojson", h.POIGeoJSON)

		api.GET("/search", h.Search)
		api.GET("/stats", h.GetStats)
		api.GET("/points", h.GetPoints)
		api.GET("/markers/:name", h.MarkerIcon)
	}

	router.GET("/ws/map", h.ListenMap)
	router.GET("/media/:name", h.ServeMedia)
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
