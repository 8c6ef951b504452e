package handlers

import (
	"net/http"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	detectionsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_api_detections_ingested_total",
		Help: "Total number of detections accepted over HTTP.",
	})
	detectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swanflow_api_detections_rejected_total",
		Help: "Total number of invalid detection reports over HTTP.",
	})
)

type DetectionsHandler struct {
	reader storage.Reader
	sink   storage.Sink
	logger *zap.Logger
}

func NewDetectionsHandler(reader storage.Reader, sink storage.Sink, logger *zap.Logger) *DetectionsHandler {
	return &DetectionsHandler{reader: reader, sink: sink, logger: logger}
}

func (h *DetectionsHandler) CreateDetection(c *gin.Context) {
	var report models.DetectionReport
	if err := c.ShouldBindJSON(&report); err != nil {
		detectionsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := report.Validate(); err != nil {
		detectionsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	d := report.Detection(time.Now())
	if err := h.sink.AppendDetection(ctx, &d); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if err := h.sink.UpsertSite(ctx, report.SiteRecord()); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	detectionsIngested.Inc()
	h.logger.Info("detection recorded", zap.String("site", d.Site), zap.Int64("total_count", d.TotalCount))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      d.ID,
		"message": "Detection recorded",
	})
}

func (h *DetectionsHandler) ListDetections(c *gin.Context) {
	p := ParsePagination(c)

	rows, err := h.reader.ListDetections(c.Request.Context(), c.Query("site"), p.Limit, p.Offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      len(rows),
		"detections": rows,
	})
}
