package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/plant-classifier/internal/middleware"
	"github.com/Brownie44l1/plant-classifier/internal/pipeline"
)

type Handler struct {
	pipeline       *pipeline.Pipeline
	maxUploadBytes int64
}

func NewHandler(p *pipeline.Pipeline, maxUploadBytes int64) *Handler {
	return &Handler{
		pipeline:       p,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.POST("/predict", h.Predict)
	r.GET("/health", h.Health)
}

// Index renders the upload form.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

// Predict runs the uploaded image through the pipeline and renders the
// result page, or the upload form with a one-line error.
func (h *Handler) Predict(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	result, err := h.pipeline.Run(c.Request.Context(), c.Request)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "result.html", gin.H{
		"filename":   result.Filename,
		"image_url":  result.URL,
		"label":      result.Label,
		"confidence": result.Confidence,
	})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	status, message := mapPredictError(err)
	_ = c.Error(err)

	entry := log.WithFields(log.Fields{
		"request_id": c.GetString(middleware.KeyRequestID),
		"status":     status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("prediction request failed")
	} else {
		entry.Warn("prediction request rejected")
	}

	c.HTML(status, "index.html", gin.H{"error": message})
}

func (h *Handler) Health(c *gin.Context) {
	status := "ok"
	if !h.pipeline.Ready() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"model_loaded": h.pipeline.Ready(),
		"classes":      h.pipeline.Classes(),
	})
}
