package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/plant-classifier/internal/middleware"
	"github.com/Brownie44l1/plant-classifier/web"
)

type RouterConfig struct {
	Mode string
	// StaticURL and StaticDir expose locally stored uploads. Leave StaticURL
	// empty when uploads live in object storage.
	StaticURL string
	StaticDir string
}

func NewRouter(h *Handler, cfg RouterConfig) (*gin.Engine, error) {
	switch cfg.Mode {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	r.SetHTMLTemplate(tmpl)

	if cfg.StaticURL != "" {
		r.Static(cfg.StaticURL, cfg.StaticDir)
	}

	h.RegisterRoutes(r)
	return r, nil
}
