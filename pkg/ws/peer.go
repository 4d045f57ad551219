package ws

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/core/render"
	"github.com/steveyiyo/imavoice/internal/core/status"
)

const (
	readLimit    = 8 << 20
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	pingPeriod   = 50 * time.Second
	sendBuffer   = 64
)

var (
	ErrClosed     = errors.New("ws: peer closed")
	ErrFrameDrops = errors.New("ws: send queue full, frame dropped")
)

type outbound struct {
	mt   int
	data []byte
}

// Peer drives a browser client over one websocket connection. Platform
// calls become server messages; canvas operations are buffered and sent as
// one frame message on Present.
type Peer struct {
	conn  *websocket.Conn
	codec Codec
	log   zerolog.Logger

	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	spectrum []byte

	// owned by the orchestrator goroutine
	ops        []FillOp
	lastFrame  []byte
	lastStatus *string
	lastStyle  *status.Style
}

// NewPeer starts the writer goroutine and greets the client.
func NewPeer(conn *websocket.Conn, codec Codec, log zerolog.Logger) *Peer {
	p := &Peer{
		conn:  conn,
		codec: codec,
		log:   log,
		send:  make(chan outbound, sendBuffer),
		done:  make(chan struct{}),
	}
	go p.writeMessages()
	p.emit(Message{Type: "hello", TS: time.Now().UnixMilli()})
	return p
}

func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Serve reads client frames until the connection fails or ctx is done.
// Binary frames replace the spectrum snapshot; text frames go to h.
func (p *Peer) Serve(ctx context.Context, h Handler) error {
	defer p.Close()
	go func() {
		select {
		case <-ctx.Done():
			p.Close()
		case <-p.done:
		}
	}()

	p.conn.SetReadLimit(readLimit)
	p.conn.SetReadDeadline(time.Now().Add(readTimeout))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		mt, msg, err := p.conn.ReadMessage()
		if err != nil {
			select {
			case <-p.done:
				return ErrClosed
			default:
			}
			return err
		}
		p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		switch mt {
		case websocket.BinaryMessage:
			p.setSpectrum(msg)
		case websocket.TextMessage:
			m, err := DecodeClient(msg)
			if err != nil {
				p.log.Debug().Err(err).Msg("client message ignored")
				continue
			}
			if err := Dispatch(h, m); err != nil {
				p.log.Debug().Err(err).Msg("client message ignored")
			}
		}
	}
}

func (p *Peer) writeMessages() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case out := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(out.mt, out.data); err != nil {
				p.log.Debug().Err(err).Msg("write failed")
				p.Close()
				return
			}
		case <-ping.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.Close()
				return
			}
		case <-p.done:
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

// emit queues m, waiting for room unless the peer is closed.
func (p *Peer) emit(m Message) {
	mt, data, err := p.codec.Encode(m)
	if err != nil {
		p.log.Error().Err(err).Str("type", m.Type).Msg("encode failed")
		return
	}
	select {
	case p.send <- outbound{mt, data}:
	case <-p.done:
	}
}

func (p *Peer) setSpectrum(b []byte) {
	p.mu.Lock()
	p.spectrum = append(p.spectrum[:0], b...)
	p.mu.Unlock()
}

func (p *Peer) Spectrum() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.spectrum...)
}

func (p *Peer) AcquireMicrophone() { p.emit(Message{Type: "mic.acquire"}) }

func (p *Peer) StartCapture(locale string) {
	p.emit(Message{Type: "capture.start", Lang: locale})
}

func (p *Peer) StopCapture() { p.emit(Message{Type: "capture.stop"}) }

func (p *Peer) Speak(id uint64, text, locale string) {
	p.emit(Message{Type: "speak", ID: id, Text: text, Lang: locale})
}

func (p *Peer) CancelSpeech() { p.emit(Message{Type: "speech.cancel"}) }

func (p *Peer) ShowStatus(text string) {
	if p.lastStatus != nil && *p.lastStatus == text {
		return
	}
	p.lastStatus = &text
	p.emit(Message{Type: "status", Text: text})
}

func (p *Peer) ShowTranscript(text string) {
	p.emit(Message{Type: "transcript", Text: text})
}

func (p *Peer) ApplyStyle(s status.Style) {
	if p.lastStyle != nil && *p.lastStyle == s {
		return
	}
	p.lastStyle = &s
	p.emit(Message{Type: "style", Color: s.Color.CSS(), Glow: s.Glow})
}

func (p *Peer) PlayMusic(query string) { p.emit(Message{Type: "music.play", Query: query}) }

func (p *Peer) StopMusic() { p.emit(Message{Type: "music.stop"}) }

func (p *Peer) Clear() { p.ops = p.ops[:0] }

func (p *Peer) SetFill(c render.Color) {
	fill := c.CSS()
	if n := len(p.ops); n > 0 && p.ops[n-1].Fill == fill {
		return
	}
	p.ops = append(p.ops, FillOp{Fill: fill})
}

func (p *Peer) FillRect(x, y, w, h float64) {
	if len(p.ops) == 0 {
		p.ops = append(p.ops, FillOp{Fill: render.Color{}.CSS()})
	}
	op := &p.ops[len(p.ops)-1]
	op.Rects = append(op.Rects, [4]float64{x, y, w, h})
}

// Present sends the buffered frame. Identical consecutive frames are
// skipped, and a full send queue drops the frame instead of blocking.
func (p *Peer) Present() error {
	ops := make([]FillOp, len(p.ops))
	copy(ops, p.ops)
	p.ops = p.ops[:0]

	mt, data, err := p.codec.Encode(Message{Type: "frame", Ops: ops})
	if err != nil {
		return err
	}
	if bytes.Equal(data, p.lastFrame) {
		return nil
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.send <- outbound{mt, data}:
		p.lastFrame = data
		return nil
	default:
		return ErrFrameDrops
	}
}
