package device

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/config"
	"github.com/steveyiyo/imavoice/internal/core/intent"
)

const (
	keepAlive         = 20
	connectRetryDelay = 3 * time.Second
	publishTimeout    = 5 * time.Second
)

var ErrNoBroker = errors.New("device: mqtt url not configured")

// MQTT publishes commands to a broker topic. The connection is kept up in
// the background and re-established after failures.
type MQTT struct {
	cm    *autopaho.ConnectionManager
	topic string
	log   zerolog.Logger
	now   func() time.Time
}

func DialMQTT(ctx context.Context, cfg config.MQTT, log zerolog.Logger) (*MQTT, error) {
	if cfg.URL == "" {
		return nil, ErrNoBroker
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("device: parse mqtt url: %w", err)
	}
	log = log.With().Str("component", "mqtt").Str("broker", u.Host).Logger()

	cc := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     keepAlive,
		CleanStartOnInitialConnection: true,
		ConnectRetryDelay:             connectRetryDelay,
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			log.Info().Msg("mqtt connection up")
		},
		OnConnectError: func(err error) {
			log.Warn().Err(err).Msg("mqtt connect failed")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
		},
	}
	if cfg.Username != "" {
		cc.ConnectUsername = cfg.Username
		cc.ConnectPassword = []byte(cfg.Password)
	}

	cm, err := autopaho.NewConnection(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &MQTT{cm: cm, topic: cfg.Topic, log: log, now: time.Now}, nil
}

// Publish sends cmd with QoS 1 and waits for the broker to acknowledge it.
func (m *MQTT) Publish(ctx context.Context, cmd intent.Command) error {
	body, err := Encode(cmd, m.now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := m.cm.Publish(ctx, &paho.Publish{
		Topic:   m.topic,
		QoS:     1,
		Payload: body,
	}); err != nil {
		return fmt.Errorf("device: publish %s: %w", cmd, err)
	}
	m.log.Info().Str("command", string(cmd)).Str("topic", m.topic).Msg("device command published")
	return nil
}

func (m *MQTT) Close(ctx context.Context) error {
	return m.cm.Disconnect(ctx)
}
