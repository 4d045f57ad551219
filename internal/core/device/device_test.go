package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/config"
	"github.com/steveyiyo/imavoice/internal/core/intent"
)

func TestEncode(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	b, err := Encode(intent.On, now)
	if err != nil {
		t.Fatal(err)
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatal(err)
	}
	if p.Command != intent.On || p.TS != 1700000000123 {
		t.Errorf("payload = %+v", p)
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Log: zerolog.New(&buf)}
	if err := p.Publish(context.Background(), intent.Off); err != nil {
		t.Fatal(err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if line["command"] != "OFF" {
		t.Errorf("log line = %v", line)
	}
}

func TestDialMQTTConfigErrors(t *testing.T) {
	if _, err := DialMQTT(context.Background(), config.MQTT{}, zerolog.Nop()); !errors.Is(err, ErrNoBroker) {
		t.Errorf("empty url err = %v", err)
	}
	if _, err := DialMQTT(context.Background(), config.MQTT{URL: "://bad"}, zerolog.Nop()); err == nil {
		t.Error("bad url accepted")
	}
}
