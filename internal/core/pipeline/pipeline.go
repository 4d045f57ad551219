package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/internal/metrics"
	"github.com/steveyiyo/imavoice/pkg/types"
)

const (
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = time.Second
	DefaultJitter            = 500 * time.Millisecond
	DefaultTimeout           = 30 * time.Second
	DefaultFallback          = "エラーが発生しました。応答を取得できませんでした。"
	DefaultSystemInstruction = "あなたは音声アシスタントです。ユーザーの質問に日本語で、簡潔かつ丁寧に答えてください。"
)

type Config struct {
	GenerateURL       string
	CommandURL        string
	SystemInstruction string
	FallbackText      string
	GoogleSearch      bool
	MaxAttempts       int
	BaseDelay         time.Duration
	Jitter            time.Duration
	Timeout           time.Duration
}

func (c Config) withDefaults() Config {
	if c.SystemInstruction == "" {
		c.SystemInstruction = DefaultSystemInstruction
	}
	if c.FallbackText == "" {
		c.FallbackText = DefaultFallback
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

type Option func(*Pipeline)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline sends user utterances to the generation endpoint and device
// commands to the IoT endpoint.
type Pipeline struct {
	cfg     Config
	hc      *http.Client
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func New(cfg Config, opts ...Option) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Reply is the outcome of Generate. Text is always speakable.
type Reply struct {
	Text     string
	Attempts int
	Fallback bool
	Err      error
}

// Generate asks the generation endpoint for a reply to utterance, retrying
// transport failures, non-2xx answers and unusable bodies. It never fails:
// once the attempts are spent, or ctx is done, the fallback phrase is
// returned with the last error attached.
func (p *Pipeline) Generate(ctx context.Context, utterance string) Reply {
	body := types.NewGenerateReq(utterance, p.cfg.SystemInstruction, p.cfg.GoogleSearch)

	var (
		attempts int
		text     string
	)
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		t, err := p.generateOnce(ctx, body)
		if err != nil {
			p.metrics.RecordAttempt("error")
			p.log.Warn().Err(err).Int("attempt", attempts).Msg("generate attempt failed")
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		p.metrics.RecordAttempt("ok")
		text = t
		return nil
	})
	if err != nil {
		p.metrics.RecordFallback()
		p.log.Error().Err(err).Int("attempts", attempts).Msg("generate exhausted, using fallback")
		return Reply{Text: p.cfg.FallbackText, Attempts: attempts, Fallback: true, Err: err}
	}
	return Reply{Text: text, Attempts: attempts}
}

func (p *Pipeline) backoff() retry.Backoff {
	b := retry.NewExponential(p.cfg.BaseDelay)
	if p.cfg.Jitter > 0 {
		b = withPositiveJitter(p.cfg.Jitter, b)
	}
	return retry.WithMaxRetries(uint64(p.cfg.MaxAttempts-1), b)
}

// withPositiveJitter adds a random delay in [0, j) to every step.
func withPositiveJitter(j time.Duration, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		return d + rand.N(j), false
	})
}

func (p *Pipeline) generateOnce(ctx context.Context, body types.GenerateReq) (string, error) {
	var out types.GenerateResp
	if err := p.postJSON(ctx, p.cfg.GenerateURL, body, &out); err != nil {
		return "", err
	}
	if out.Text == "" {
		return "", ErrEmptyReply
	}
	return out.Text, nil
}

// Ack is the outcome of SendCommand. Text is always speakable.
type Ack struct {
	Text string
	OK   bool
	Err  error
}

// SendCommand posts cmd to the IoT endpoint once and turns the outcome into
// a spoken acknowledgement.
func (p *Pipeline) SendCommand(ctx context.Context, cmd intent.Command) Ack {
	err := p.postJSON(ctx, p.cfg.CommandURL, types.CommandReq{Command: string(cmd)}, nil)
	if err == nil {
		p.metrics.RecordCommand(string(cmd), "ok")
		p.log.Info().Str("command", string(cmd)).Msg("device command sent")
		return Ack{Text: commandDone(cmd), OK: true}
	}

	p.metrics.RecordCommand(string(cmd), "error")
	p.log.Error().Err(err).Str("command", string(cmd)).Msg("device command failed")
	var se *StatusError
	if errors.As(err, &se) {
		detail := "サーバーエラー"
		var eb types.ErrorResp
		if json.Unmarshal([]byte(se.Body), &eb) == nil && eb.Detail != "" {
			detail = eb.Detail
		}
		return Ack{Text: fmt.Sprintf("エラーが発生しました。IoTコマンド '%s' の実行に失敗しました。詳細: %s", cmd, detail), Err: err}
	}
	return Ack{Text: fmt.Sprintf("ネットワークエラー: IoTバックエンドサーバーに接続できません (%v)", err), Err: err}
}

func commandDone(cmd intent.Command) string {
	if cmd == intent.Off {
		return "承知しました。電気を消しました。"
	}
	return "承知しました。電気をつけました。"
}

// postJSON posts in as JSON and decodes a 2xx body into out unless out is
// nil. Non-2xx answers come back as *StatusError.
func (p *Pipeline) postJSON(ctx context.Context, url string, in, out any) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
