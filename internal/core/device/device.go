// Package device delivers lighting commands to the smart-home side.
package device

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/core/intent"
)

type Publisher interface {
	Publish(ctx context.Context, cmd intent.Command) error
}

// Payload is the message body sent to the device.
type Payload struct {
	Command intent.Command `json:"command"`
	TS      int64          `json:"ts"`
}

func Encode(cmd intent.Command, now time.Time) ([]byte, error) {
	return json.Marshal(Payload{Command: cmd, TS: now.UnixMilli()})
}

// LogPublisher accepts every command and only logs it. It is used when no
// broker is configured.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(_ context.Context, cmd intent.Command) error {
	p.Log.Info().Str("command", string(cmd)).Msg("device command (no broker)")
	return nil
}
