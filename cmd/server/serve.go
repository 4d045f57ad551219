package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyiyo/imavoice/internal/config"
	"github.com/steveyiyo/imavoice/internal/core/device"
	"github.com/steveyiyo/imavoice/internal/core/llm"
	"github.com/steveyiyo/imavoice/internal/core/pipeline"
	"github.com/steveyiyo/imavoice/internal/core/session"
	h "github.com/steveyiyo/imavoice/internal/http"
	"github.com/steveyiyo/imavoice/internal/logging"
	"github.com/steveyiyo/imavoice/internal/metrics"
	"github.com/steveyiyo/imavoice/internal/repo/memory"
	"github.com/steveyiyo/imavoice/pkg/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, stream and gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, closer := logging.New(cfg.Log)
	defer closer.Close()
	m := metrics.New("imavoice")

	gen, err := llm.New(ctx, cfg.LLM, cfg.Backend.Timeout)
	if err != nil {
		return err
	}
	logger.Info().Str("provider", cfg.LLM.Provider).Msg("generation gateway ready")

	var (
		pub device.Publisher = device.LogPublisher{Log: logger}
		mq  *device.MQTT
	)
	if cfg.MQTT.URL != "" {
		if mq, err = device.DialMQTT(ctx, cfg.MQTT, logger); err != nil {
			return err
		}
		pub = mq
	}

	pl := pipeline.New(pipelineConfig(cfg),
		pipeline.WithLogger(logger.With().Str("component", "pipeline").Logger()),
		pipeline.WithMetrics(m))
	svc := session.NewService(memory.NewSessionRepo(), pl, sessionOptions(cfg, logger, m))

	router := h.NewRouter(cfg, h.Deps{
		Sessions:  svc,
		Hub:       ws.NewHub(),
		Generator: gen,
		Devices:   pub,
		Metrics:   m,
		Log:       logger,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		svc.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if mq != nil {
			if err := mq.Close(sctx); err != nil {
				logger.Warn().Err(err).Msg("mqtt disconnect")
			}
		}
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
