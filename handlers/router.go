package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"
	"github.com/m4cd4r4/SwanFlow/middleware"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Reader storage.Reader
	Sink   storage.Sink
	Cache  *services.CacheService
	Auth   middleware.KeyAuthenticator
	Logger *zap.Logger
	CORS   config.CORSConfig
	// DB reports database health; nil means the in-memory store.
	DB               Pinger
	CongestionWindow time.Duration
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Cache == nil {
		d.Cache = &services.CacheService{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(middleware.SetupCORS(d.CORS))

	router.GET("/health", healthHandler(d.DB))

	detections := NewDetectionsHandler(d.Reader, d.Sink, d.Logger)
	sites := NewSitesHandler(d.Reader, d.Cache)
	stats := NewStatsHandler(d.Reader, d.Cache)
	traffic := NewTrafficHandler(d.Reader, d.Cache, d.CongestionWindow)

	api := router.Group("/api")
	api.POST("/detections", middleware.RequireAPIKey(d.Auth), detections.CreateDetection)
	api.GET("/detections", detections.ListDetections)
	api.GET("/sites", sites.GetSites)
	api.GET("/stats/:site", stats.GetStats)
	api.GET("/stats/:site/hourly", stats.GetHourly)
	api.GET("/traffic/:site", traffic.GetSiteTraffic)
	api.GET("/congestion", traffic.GetCongestion)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := "in-memory"
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			state = "connected"
			if err := db.Ping(ctx); err != nil {
				state = "disconnected"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
			"database":  state,
		})
	}
}
