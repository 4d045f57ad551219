package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/steveyiyo/imavoice/internal/core/emotion"
	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/internal/core/render"
)

var labelStyle = lipgloss.NewStyle().Bold(true).Width(12)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Show the emotion, colour and device intent of each text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, text := range args {
				fmt.Fprintln(cmd.OutOrStdout(), describe(text))
			}
			return nil
		},
	}
}

func describe(text string) string {
	tag := emotion.Classify(text)
	hex := render.EmotionColor(tag).Hex()
	swatch := lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("    ")

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("text"), text)
	fmt.Fprintf(&b, "%s %s %s %s\n", labelStyle.Render("emotion"), swatch, tag, hex)
	if e := emotion.ExtractEmojis(text); e != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("emoji"), e)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("music"), emotion.MusicQuery(tag))
	if cmd, ok := intent.Match(text); ok {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("device"), cmd)
	}
	return b.String()
}
