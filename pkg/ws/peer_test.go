package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/steveyiyo/imavoice/internal/core/render"
	"github.com/steveyiyo/imavoice/internal/core/status"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Activate() { r.add("activate") }
func (r *recorder) Submit(text string) { r.add("submit %s", text) }
func (r *recorder) Typing(text string) { r.add("typing %s", text) }
func (r *recorder) Transcript(text string, final bool) { r.add("transcript %s %v", text, final) }
func (r *recorder) CaptureStarted() { r.add("capture.start") }
func (r *recorder) CaptureEnded() { r.add("capture.end") }
func (r *recorder) CaptureFailed(reason string) { r.add("capture.error %s", reason) }
func (r *recorder) SpeechStarted(id uint64) { r.add("speech.start %d", id) }
func (r *recorder) SpeechEnded(id uint64) { r.add("speech.end %d", id) }
func (r *recorder) SpeechFailed(id uint64, reason string) {
	r.add("speech.error %d %s", id, reason)
}
func (r *recorder) ToggleMusic() { r.add("music.toggle") }
func (r *recorder) Resize(w, h float64) { r.add("resize %gx%g", w, h) }

// dial starts a server that wraps each connection in a Peer serving h and
// returns the client side plus the server peer.
func dial(t *testing.T, codec string, h Handler) (*websocket.Conn, *Peer) {
	t.Helper()
	peers := make(chan *Peer, 1)
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c, _ := NewCodec(codec)
		p := NewPeer(conn, c, zerolog.Nop())
		peers <- p
		_ = p.Serve(context.Background(), h)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	select {
	case p := <-peers:
		t.Cleanup(p.Close)
		return conn, p
	case <-time.After(2 * time.Second):
		t.Fatal("no peer")
	}
	return nil, nil
}

func readJSON(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("message type = %d", mt)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func waitCalls(t *testing.T, r *recorder, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.list(); len(got) >= n {
			return got
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("calls = %v, want %d", r.list(), n)
	return nil
}

func TestPeerHelloAndDispatch(t *testing.T) {
	rec := &recorder{}
	conn, _ := dial(t, "json", rec)

	if m := readJSON(t, conn); m.Type != "hello" || m.TS == 0 {
		t.Fatalf("first message = %+v", m)
	}
	for _, raw := range []string{
		`{"type":"transcript","text":"やあ","final":true}`,
		`not json`,
		`{"type":"bogus"}`,
		`{"type":"speech.end","id":3}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
	}
	got := waitCalls(t, rec, 2)
	if got[0] != "transcript やあ true" || got[1] != "speech.end 3" {
		t.Errorf("calls = %v", got)
	}
}

func TestPeerSpectrumFromBinaryFrames(t *testing.T) {
	conn, p := dial(t, "json", &recorder{})
	readJSON(t, conn)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := p.Spectrum(); len(s) == 3 && s[2] == 3 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("spectrum = %v", p.Spectrum())
}

func TestPeerPlatformMessages(t *testing.T) {
	conn, p := dial(t, "json", &recorder{})
	readJSON(t, conn)

	p.Speak(7, "こんにちは", "ja-JP")
	p.ShowStatus("Listening...")
	p.ShowStatus("Listening...")
	p.ShowStatus("Generating response...")
	style := status.Style{Color: render.MustHex("#ff0000"), Glow: 1}
	p.ApplyStyle(style)
	p.ApplyStyle(style)
	p.StopCapture()

	want := []Message{
		{Type: "speak", ID: 7, Text: "こんにちは", Lang: "ja-JP"},
		{Type: "status", Text: "Listening..."},
		{Type: "status", Text: "Generating response..."},
		{Type: "style", Color: "rgba(255, 0, 0, 1)", Glow: 1},
		{Type: "capture.stop"},
	}
	for i, w := range want {
		got := readJSON(t, conn)
		if got.Type != w.Type || got.ID != w.ID || got.Text != w.Text ||
			got.Lang != w.Lang || got.Color != w.Color || got.Glow != w.Glow {
			t.Errorf("message %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestPeerFrameMsgpack(t *testing.T) {
	conn, p := dial(t, "msgpack", &recorder{})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatal(err)
	}

	draw := func() {
		p.Clear()
		p.SetFill(render.MustHex("#00ffff"))
		p.FillRect(0, 10, 8, 20)
		p.SetFill(render.MustHex("#00ffff"))
		p.FillRect(10, 10, 8, 30)
		if err := p.Present(); err != nil {
			t.Fatal(err)
		}
	}
	draw()
	draw()
	p.StopMusic()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("message type = %d", mt)
	}
	var frame Message
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Type != "frame" || len(frame.Ops) != 1 || len(frame.Ops[0].Rects) != 2 {
		t.Fatalf("frame = %+v", frame)
	}
	if r := frame.Ops[0].Rects[1]; r != [4]float64{10, 10, 8, 30} {
		t.Errorf("rect = %v", r)
	}

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var next Message
	if err := msgpack.Unmarshal(data, &next); err != nil {
		t.Fatal(err)
	}
	if next.Type != "music.stop" {
		t.Errorf("identical frame was resent; next = %+v", next)
	}
}

func TestPeerServeStopsOnContext(t *testing.T) {
	up := websocket.Upgrader{}
	served := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p := NewPeer(conn, jsonCodec{}, zerolog.Nop())
		served <- p.Serve(ctx, &recorder{})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readJSON(t, conn)

	cancel()
	select {
	case err := <-served:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Serve = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "json", false},
		{"json", "json", false},
		{"msgpack", "msgpack", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		c, err := NewCodec(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownCodec) {
				t.Errorf("NewCodec(%q) err = %v", tt.name, err)
			}
			continue
		}
		if err != nil || c.Name() != tt.want {
			t.Errorf("NewCodec(%q) = %v, %v", tt.name, c, err)
		}
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		msg  ClientMessage
		want string
	}{
		{ClientMessage{Type: "activate"}, "activate"},
		{ClientMessage{Type: "submit", Text: "電気をつけて"}, "submit 電気をつけて"},
		{ClientMessage{Type: "typing", Text: "こん"}, "typing こん"},
		{ClientMessage{Type: "capture.start"}, "capture.start"},
		{ClientMessage{Type: "capture.end"}, "capture.end"},
		{ClientMessage{Type: "capture.error", Reason: "not-allowed"}, "capture.error not-allowed"},
		{ClientMessage{Type: "speech.start", ID: 2}, "speech.start 2"},
		{ClientMessage{Type: "speech.error", ID: 2, Reason: "interrupted"}, "speech.error 2 interrupted"},
		{ClientMessage{Type: "resize", Width: 640, Height: 120}, "resize 640x120"},
		{ClientMessage{Type: "music.toggle"}, "music.toggle"},
	}
	for _, tt := range tests {
		t.Run(tt.msg.Type, func(t *testing.T) {
			rec := &recorder{}
			if err := Dispatch(rec, tt.msg); err != nil {
				t.Fatal(err)
			}
			if got := rec.list(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("calls = %v, want %q", got, tt.want)
			}
		})
	}
	if err := Dispatch(&recorder{}, ClientMessage{Type: "nope"}); err == nil {
		t.Error("unknown type accepted")
	}
}

func TestDecodeClientRequiresType(t *testing.T) {
	if _, err := DecodeClient([]byte(`{"text":"x"}`)); err == nil {
		t.Error("message without type accepted")
	}
}

func TestHubReplaceClosesPrevious(t *testing.T) {
	h := NewHub()
	a := &Peer{done: make(chan struct{})}
	b := &Peer{done: make(chan struct{})}

	h.Add("s", a)
	h.Add("s", b)
	select {
	case <-a.Done():
	default:
		t.Error("replaced peer still open")
	}
	h.Remove("s", a)
	if got, ok := h.Get("s"); !ok || got != b {
		t.Error("Remove of stale peer dropped the live one")
	}
	if !h.Kick("s") || h.Len() != 0 {
		t.Error("Kick failed")
	}
	select {
	case <-b.Done():
	default:
		t.Error("kicked peer still open")
	}
}
