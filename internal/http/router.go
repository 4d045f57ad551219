package http

import (
	"net/http"

	"github.com/steveyiyo/imavoice/internal/config"
	"github.com/steveyiyo/imavoice/internal/core/device"
	"github.com/steveyiyo/imavoice/internal/core/llm"
	"github.com/steveyiyo/imavoice/internal/core/session"
	"github.com/steveyiyo/imavoice/internal/http/handlers"
	"github.com/steveyiyo/imavoice/internal/logging"
	"github.com/steveyiyo/imavoice/internal/metrics"
	"github.com/steveyiyo/imavoice/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are the long-lived services the routes are bound to.
type Deps struct {
	Sessions  *session.Service
	Hub       *ws.Hub
	Generator llm.Generator
	Devices   device.Publisher
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
}

func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(logging.Gin(d.Log), gin.Recovery())

	baseScheme := "http"
	if cfg.TLS {
		baseScheme = "https"
	}
	host := cfg.PublicHost
	if host == "" {
		host = "localhost:" + cfg.Port
	}
	sh := handlers.NewSessionsHandler(d.Sessions, d.Hub, baseScheme, host)
	wsh := handlers.NewStreamHandler(d.Hub, d.Sessions, d.Log)
	gh := handlers.NewGenerateHandler(d.Generator, d.Log, d.Metrics)
	ih := handlers.NewIoTHandler(d.Devices, d.Log, d.Metrics)

	api := r.Group("/v1")
	api.POST("/sessions", sh.Create)
	api.GET("/sessions/:id", sh.Summary)
	api.DELETE("/sessions/:id", sh.Close)
	r.GET("/v1/stream", wsh.WS)

	r.POST("/llm/generate", gh.Generate)
	r.POST("/iot/control", ih.Control)

	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"sessions":     d.Sessions.Repo.Count(),
			"live_streams": d.Hub.Len(),
		})
	})
	return r
}
