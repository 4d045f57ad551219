package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyiyo/imavoice/internal/config"
	"github.com/steveyiyo/imavoice/internal/core/pipeline"
	"github.com/steveyiyo/imavoice/internal/core/session"
	"github.com/steveyiyo/imavoice/internal/metrics"

	"github.com/rs/zerolog"
)

var configPath string

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "imavoice",
		Short:         "Voice assistant session server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env overrides it)")
	root.AddCommand(serve, newClassifyCmd(), newAskCmd())
	return root
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		GenerateURL:       cfg.Backend.GenerateURL,
		CommandURL:        cfg.Backend.CommandURL,
		SystemInstruction: cfg.Assistant.SystemInstruction,
		FallbackText:      cfg.Assistant.FallbackText,
		GoogleSearch:      cfg.Backend.GoogleSearch,
		MaxAttempts:       cfg.Backend.MaxAttempts,
		BaseDelay:         cfg.Backend.BaseDelay,
		Jitter:            cfg.Backend.Jitter,
		Timeout:           cfg.Backend.Timeout,
	}
}

func sessionOptions(cfg config.Config, log zerolog.Logger, m *metrics.Metrics) session.Options {
	a := cfg.Assistant
	return session.Options{
		Locale:           a.Locale,
		ReservedPrefixes: a.ReservedPrefixes,
		ResponsePrefix:   a.ResponsePrefix,
		EmptyPromptText:  a.EmptyPromptText,
		PreviewDebounce:  a.PreviewDebounce,
		FrameInterval:    a.FrameInterval,
		AutoRestart:      a.AutoRestart,
		Music:            a.Music,
		GeneratingStyle:  a.GeneratingStyle,
		Logger:           log,
		Metrics:          m,
	}
}
