package llm

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

type Gemini struct {
	c     *genai.Client
	model string
}

func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	hc := &http.Client{Transport: tr, Timeout: timeout}
	reqTimeout := timeout / 2
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			// search grounding is only served by v1beta
			APIVersion: "v1beta",
			Timeout:    &reqTimeout,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{c: cl, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.GoogleSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}}

	return generateWithRetry(ctx, linearBackoff(retryStep, 2), func(ctx context.Context) (string, error) {
		resp, err := g.c.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
}

const retryStep = 300 * time.Millisecond

// generateWithRetry retries call while it fails with a transient error or
// returns an empty text.
func generateWithRetry(ctx context.Context, b retry.Backoff, call func(context.Context) (string, error)) (string, error) {
	return retry.DoValue(ctx, b, func(ctx context.Context) (string, error) {
		text, err := call(ctx)
		if err != nil {
			if retriable(err) {
				return "", retry.RetryableError(err)
			}
			return "", err
		}
		if text = strings.TrimSpace(text); text == "" {
			return "", retry.RetryableError(ErrEmptyResponse)
		}
		return text, nil
	})
}

// linearBackoff waits step, 2*step, ... for at most retries retries.
func linearBackoff(step time.Duration, retries uint64) retry.Backoff {
	var n time.Duration
	return retry.WithMaxRetries(retries, retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return n * step, false
	}))
}

func retriable(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected EOF") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "RST_STREAM") ||
		strings.Contains(s, "connection reset")
}
