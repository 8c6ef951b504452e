package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"

	"github.com/gin-gonic/gin"
)

const (
	defaultPeriod = "24h"
	statsCacheTTL = 30 * time.Second
)

var periods = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ParsePeriod maps a period name to its look-back. Unknown names mean 24h.
func ParsePeriod(name string) (string, time.Duration) {
	if d, ok := periods[name]; ok {
		return name, d
	}
	return defaultPeriod, periods[defaultPeriod]
}

type StatsHandler struct {
	reader storage.Reader
	cache  *services.CacheService
}

func NewStatsHandler(reader storage.Reader, cache *services.CacheService) *StatsHandler {
	return &StatsHandler{reader: reader, cache: cache}
}

type statsResponse struct {
	Success bool             `json:"success"`
	Site    string           `json:"site"`
	Period  string           `json:"period"`
	Stats   models.SiteStats `json:"stats"`
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	site := c.Param("site")
	period, lookback := ParsePeriod(c.DefaultQuery("period", defaultPeriod))
	cacheKey := fmt.Sprintf("stats:%s:%s", site, period)

	var cached statsResponse
	if hit, err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	since := time.Now().Add(-lookback).UnixMilli()
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

	resp := statsResponse{Success: true, Site: site, Period: period, Stats: stats}
	go h.cache.Set(context.Background(), cacheKey, resp, statsCacheTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *StatsHandler) GetHourly(c *gin.Context) {
	site := c.Param("site")
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours parameter, must be a positive integer"})
		return
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	buckets, err := h.reader.HourlyBuckets(c.Request.Context(), site, since)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"site":    site,
		"hours":   hours,
		"data":    buckets,
	})
}
