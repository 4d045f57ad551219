package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/core/session"
	"github.com/steveyiyo/imavoice/pkg/ws"
)

type StreamHandler struct {
	Hub      *ws.Hub
	Sess     *session.Service
	Log      zerolog.Logger
	Upgrader websocket.Upgrader
}

func NewStreamHandler(h *ws.Hub, s *session.Service, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		Hub:  h,
		Sess: s,
		Log:  log.With().Str("component", "stream").Logger(),
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WS attaches a browser client to a session and runs its orchestrator for
// the lifetime of the connection.
func (h *StreamHandler) WS(c *gin.Context) {
	id := c.Query("sess")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session"})
		return
	}
	if _, ok := h.Sess.Summary(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	codec, err := ws.NewCodec(c.Query("codec"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_codec"})
		return
	}
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	log := h.Log.With().Str("session", id).Str("codec", codec.Name()).Logger()
	peer := ws.NewPeer(conn, codec, log)
	h.Hub.Add(id, peer)
	defer func() {
		h.Hub.Remove(id, peer)
		peer.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	o, err := h.Sess.Start(ctx, id, peer)
	if err != nil {
		log.Warn().Err(err).Msg("session vanished before start")
		return
	}
	log.Info().Msg("client attached")
	if err := peer.Serve(ctx, o); err != nil && !errors.Is(err, ws.ErrClosed) &&
		!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Debug().Err(err).Msg("stream ended")
	}
	log.Info().Msg("client detached")
}
