package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/internal/core/pipeline"
	"github.com/steveyiyo/imavoice/internal/logging"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Send one utterance through the backend pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closer := logging.New(cfg.Log)
			defer closer.Close()

			p := pipeline.New(pipelineConfig(cfg), pipeline.WithLogger(logger))
			utt := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if c, ok := intent.Match(utt); ok {
				ack := p.SendCommand(cmd.Context(), c)
				fmt.Fprintln(out, ack.Text)
				return ack.Err
			}
			reply := p.Generate(cmd.Context(), utt)
			fmt.Fprintln(out, reply.Text)
			if reply.Fallback && reply.Err != nil {
				return fmt.Errorf("no reply after %d attempts: %w", reply.Attempts, reply.Err)
			}
			return nil
		},
	}
}
