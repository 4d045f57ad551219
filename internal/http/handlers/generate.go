package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/core/llm"
	"github.com/steveyiyo/imavoice/internal/metrics"
	"github.com/steveyiyo/imavoice/pkg/types"
)

// GenerateHandler serves the generation gateway the pipeline posts to.
type GenerateHandler struct {
	Gen     llm.Generator
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

func NewGenerateHandler(gen llm.Generator, log zerolog.Logger, m *metrics.Metrics) *GenerateHandler {
	return &GenerateHandler{Gen: gen, Log: log.With().Str("component", "llm").Logger(), Metrics: m}
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	var req types.GenerateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt := req.UserText()
	if prompt == "" {
		h.fail(c, http.StatusBadRequest, "prompt is required")
		return
	}

	text, err := h.Gen.Generate(c.Request.Context(), llm.Request{
		Prompt:            prompt,
		SystemInstruction: req.SystemText(),
		GoogleSearch:      req.WantsSearch(),
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		h.fail(c, http.StatusServiceUnavailable, "generation provider is not configured")
		return
	case err != nil:
		h.Log.Error().Err(err).Msg("generation failed")
		h.fail(c, http.StatusBadGateway, "generation failed")
		return
	}
	h.Metrics.RecordGateway("generate", http.StatusOK)
	c.JSON(http.StatusOK, types.GenerateResp{Text: text})
}

func (h *GenerateHandler) fail(c *gin.Context, code int, detail string) {
	h.Metrics.RecordGateway("generate", code)
	c.JSON(code, types.ErrorResp{Detail: detail})
}
