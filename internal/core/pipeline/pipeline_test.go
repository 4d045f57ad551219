package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/pkg/types"
)

func fastConfig(url string) Config {
	return Config{
		GenerateURL: url,
		CommandURL:  url,
		BaseDelay:   time.Millisecond,
		Jitter:      time.Millisecond,
		Timeout:     2 * time.Second,
	}
}

func TestGenerateSuccess(t *testing.T) {
	var got types.GenerateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		_ = json.NewEncoder(w).Encode(types.GenerateResp{Text: "こんにちは！😊"})
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.GoogleSearch = true
	reply := New(cfg).Generate(context.Background(), "こんにちは")

	if reply.Text != "こんにちは！😊" || reply.Fallback || reply.Attempts != 1 {
		t.Fatalf("reply = %+v", reply)
	}
	if got.Prompt != "こんにちは" || got.Contents[0].Parts[0].Text != "こんにちは" {
		t.Errorf("request prompt/contents = %+v", got)
	}
	if got.SystemText() != DefaultSystemInstruction {
		t.Errorf("system instruction = %q", got.SystemText())
	}
	if !got.WantsSearch() {
		t.Error("google_search tool missing")
	}
}

func TestGenerateAlwaysFailingUsesFallbackAfterThreeAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	reply := New(fastConfig(srv.URL)).Generate(context.Background(), "テスト")

	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
	if reply.Attempts != 3 || !reply.Fallback || reply.Text != DefaultFallback {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Err == nil {
		t.Error("expected last error to be attached")
	}
}

func TestGenerateRetriesUnusableBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "{not json"},
		{"missing text", `{"answer":"x"}`},
		{"empty text", `{"text":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) == 1 {
					_, _ = w.Write([]byte(tt.body))
					return
				}
				_, _ = w.Write([]byte(`{"text":"ok now"}`))
			}))
			defer srv.Close()

			reply := New(fastConfig(srv.URL)).Generate(context.Background(), "テスト")
			if reply.Text != "ok now" || reply.Attempts != 2 {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestGenerateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := fastConfig(url)
	cfg.FallbackText = "だめでした"
	reply := New(cfg).Generate(context.Background(), "テスト")
	if reply.Text != "だめでした" || reply.Attempts != 3 {
		t.Errorf("reply = %+v", reply)
	}
}

func TestGenerateCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.BaseDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Reply, 1)
	go func() { done <- New(cfg).Generate(ctx, "テスト") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case reply := <-done:
		if !reply.Fallback || reply.Attempts != 1 {
			t.Errorf("reply = %+v", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not return after cancel")
	}
}

func TestSendCommand(t *testing.T) {
	tests := []struct {
		name   string
		cmd    intent.Command
		status int
		body   string
		want   string
		ok     bool
	}{
		{"on", intent.On, 200, `{"status":"ok"}`, "承知しました。電気をつけました。", true},
		{"off empty body", intent.Off, 200, "", "承知しました。電気を消しました。", true},
		{"detail", intent.On, 502, `{"detail":"broker down"}`, "エラーが発生しました。IoTコマンド 'ON' の実行に失敗しました。詳細: broker down", false},
		{"no detail", intent.Off, 500, "oops", "エラーが発生しました。IoTコマンド 'OFF' の実行に失敗しました。詳細: サーバーエラー", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			var got types.CommandReq
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ack := New(fastConfig(srv.URL)).SendCommand(context.Background(), tt.cmd)
			if ack.Text != tt.want || ack.OK != tt.ok {
				t.Errorf("ack = %+v", ack)
			}
			if got.Command != string(tt.cmd) {
				t.Errorf("command sent = %q", got.Command)
			}
			if hits.Load() != 1 {
				t.Errorf("hits = %d, want a single attempt", hits.Load())
			}
		})
	}
}

func TestSendCommandNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ack := New(fastConfig(url)).SendCommand(context.Background(), intent.On)
	if ack.OK || !strings.HasPrefix(ack.Text, "ネットワークエラー: IoTバックエンドサーバーに接続できません") {
		t.Errorf("ack = %+v", ack)
	}
}
