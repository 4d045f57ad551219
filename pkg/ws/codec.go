package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownCodec = errors.New("ws: unknown codec")

// Message is one server to client frame.
type Message struct {
	Type  string   `json:"type" msgpack:"type"`
	TS    int64    `json:"ts,omitempty" msgpack:"ts,omitempty"`
	ID    uint64   `json:"id,omitempty" msgpack:"id,omitempty"`
	Text  string   `json:"text,omitempty" msgpack:"text,omitempty"`
	Lang  string   `json:"lang,omitempty" msgpack:"lang,omitempty"`
	Query string   `json:"query,omitempty" msgpack:"query,omitempty"`
	Color string   `json:"color,omitempty" msgpack:"color,omitempty"`
	Glow  float64  `json:"glow,omitempty" msgpack:"glow,omitempty"`
	Ops   []FillOp `json:"ops,omitempty" msgpack:"ops,omitempty"`
}

// FillOp paints rects (x, y, w, h) with one CSS colour.
type FillOp struct {
	Fill  string       `json:"fill" msgpack:"fill"`
	Rects [][4]float64 `json:"rects" msgpack:"rects"`
}

// ClientMessage is one client to server text frame.
type ClientMessage struct {
	Type   string  `json:"type"`
	Text   string  `json:"text"`
	Final  bool    `json:"final"`
	Reason string  `json:"reason"`
	ID     uint64  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Codec encodes server messages into websocket frames.
type Codec interface {
	Name() string
	Encode(m Message) (messageType int, data []byte, err error)
}

func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(m Message) (int, []byte, error) {
	b, err := json.Marshal(m)
	return websocket.TextMessage, b, err
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Encode(m Message) (int, []byte, error) {
	b, err := msgpack.Marshal(m)
	return websocket.BinaryMessage, b, err
}

func DecodeClient(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("ws: decode client message: %w", err)
	}
	if m.Type == "" {
		return m, errors.New("ws: client message without type")
	}
	return m, nil
}
