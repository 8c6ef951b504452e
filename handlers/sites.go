package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/services"
	"github.com/m4cd4r4/SwanFlow/storage"

	"github.com/gin-gonic/gin"
)

const sitesCacheTTL = 60 * time.Second

type SitesHandler struct {
	reader storage.Reader
	cache  *services.CacheService
}

func NewSitesHandler(reader storage.Reader, cache *services.CacheService) *SitesHandler {
	return &SitesHandler{reader: reader, cache: cache}
}

type sitesResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Sites   []models.Site `json:"sites"`
}

func (h *SitesHandler) GetSites(c *gin.Context) {
	const cacheKey = "sites:all"

	var cached sitesResponse
	if hit, err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	sites, err := h.reader.ListSites(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	resp := sitesResponse{Success: true, Count: len(sites), Sites: sites}
	go h.cache.Set(context.Background(), cacheKey, resp, sitesCacheTTL)

	c.JSON(http.StatusOK, resp)
}
