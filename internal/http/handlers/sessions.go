package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/steveyiyo/imavoice/internal/core/session"
	"github.com/steveyiyo/imavoice/pkg/types"
	"github.com/steveyiyo/imavoice/pkg/ws"

	"github.com/gin-gonic/gin"
)

type SessionsHandler struct {
	Svc    *session.Service
	Hub    *ws.Hub
	Scheme string
	Host   string
}

func NewSessionsHandler(svc *session.Service, hub *ws.Hub, scheme, host string) *SessionsHandler {
	return &SessionsHandler{Svc: svc, Hub: hub, Scheme: scheme, Host: host}
}

func (h *SessionsHandler) Create(c *gin.Context) {
	var req types.CreateSessionReq
	// an empty body means defaults
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	sess := h.Svc.Create(req.Locale, req.Music)
	wsScheme := "ws"
	if h.Scheme == "https" {
		wsScheme = "wss"
	}
	c.JSON(http.StatusOK, types.CreateSessionResp{
		SessionID: sess.ID,
		WSURL:     wsScheme + "://" + h.Host + "/v1/stream?sess=" + sess.ID,
	})
}

func (h *SessionsHandler) Summary(c *gin.Context) {
	id := c.Param("id")
	sum, ok := h.Svc.Summary(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *SessionsHandler) Close(c *gin.Context) {
	id := c.Param("id")
	if !h.Svc.Close(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	h.Hub.Kick(id)
	c.Status(http.StatusNoContent)
}
