package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"

	"github.com/gin-gonic/gin"
)

const defaultWindowMin = 60

type TrafficHandler struct {
	reader storage.Reader
	cache  *services.CacheService
	window time.Duration
}

func NewTrafficHandler(reader storage.Reader, cache *services.CacheService, window time.Duration) *TrafficHandler {
	if window <= 0 {
		window = defaultWindowMin * time.Minute
	}
	return &TrafficHandler{reader: reader, cache: cache, window: window}
}

// GetSiteTraffic estimates speed and congestion level for one site from its
// average hourly flow over the last window minutes.
func (h *TrafficHandler) GetSiteTraffic(c *gin.Context) {
	site := c.Param("site")
	windowMin, err := strconv.Atoi(c.DefaultQuery("window", strconv.Itoa(defaultWindowMin)))
	if err != nil || windowMin <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window parameter, must be a positive integer"})
		return
	}

	since := time.Now().Add(-time.Duration(windowMin) * time.Minute).UnixMilli()
	stats, err := h.reader.SiteStats(c.Request.Context(), site, since)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data found for site"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"window_min":  windowMin,
		"data_points": stats.DataPoints,
		"traffic":     models.NewSiteCongestion(site, stats.AvgHourly),
	})
}

// GetCongestion returns the latest network snapshot, computing one when none
// is cached.
func (h *TrafficHandler) GetCongestion(c *gin.Context) {
	ctx := c.Request.Context()

	var snap models.CongestionSnapshot
	if hit, err := h.cache.Get(ctx, services.CongestionCacheKey, &snap); err == nil && hit {
		c.JSON(http.StatusOK, gin.H{"success": true, "source": "cache", "snapshot": snap})
		return
	}

	snap, err := services.BuildCongestionSnapshot(ctx, h.reader, h.window, time.Now())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "source": "computed", "snapshot": snap})
}
