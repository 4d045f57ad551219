package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/core/device"
	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/internal/metrics"
	"github.com/steveyiyo/imavoice/pkg/types"
)

// IoTHandler serves the device control gateway.
type IoTHandler struct {
	Pub     device.Publisher
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

func NewIoTHandler(pub device.Publisher, log zerolog.Logger, m *metrics.Metrics) *IoTHandler {
	return &IoTHandler{Pub: pub, Log: log.With().Str("component", "iot").Logger(), Metrics: m}
}

func (h *IoTHandler) Control(c *gin.Context) {
	var req types.CommandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd := intent.Command(strings.ToUpper(strings.TrimSpace(req.Command)))
	if !cmd.Valid() {
		h.fail(c, http.StatusBadRequest, "command must be ON or OFF")
		return
	}
	if err := h.Pub.Publish(c.Request.Context(), cmd); err != nil {
		h.Log.Error().Err(err).Str("command", string(cmd)).Msg("device publish failed")
		h.fail(c, http.StatusBadGateway, "device unreachable")
		return
	}
	h.Metrics.RecordGateway("control", http.StatusOK)
	c.JSON(http.StatusOK, types.CommandResp{Status: "ok", Command: string(cmd)})
}

func (h *IoTHandler) fail(c *gin.Context, code int, detail string) {
	h.Metrics.RecordGateway("control", code)
	c.JSON(code, types.ErrorResp{Detail: detail})
}
