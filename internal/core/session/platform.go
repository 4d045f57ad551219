package session

import (
	"context"

	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/internal/core/pipeline"
	"github.com/steveyiyo/imavoice/internal/core/render"
	"github.com/steveyiyo/imavoice/internal/core/status"
)

// Capture controls speech recognition. Calls are fire-and-forget; outcomes
// come back through the Orchestrator's Capture* and Transcript methods.
type Capture interface {
	// AcquireMicrophone asks for input permission and wires the analyser.
	AcquireMicrophone()
	StartCapture(locale string)
	StopCapture()
}

// Playback controls speech synthesis. Outcomes come back through the
// Orchestrator's Speech* methods carrying the same id.
type Playback interface {
	Speak(id uint64, text, locale string)
	CancelSpeech()
}

type Display interface {
	ShowStatus(text string)
	ShowTranscript(text string)
	ApplyStyle(s status.Style)
}

// Platform is everything the orchestrator drives on the client side.
type Platform interface {
	Capture
	Playback
	Display
	render.Surface
	render.Analyser
}

// MusicPlayer is optionally implemented by platforms that can play
// background music.
type MusicPlayer interface {
	PlayMusic(query string)
	StopMusic()
}

// Backend answers utterances and executes device commands.
type Backend interface {
	Generate(ctx context.Context, utterance string) pipeline.Reply
	SendCommand(ctx context.Context, cmd intent.Command) pipeline.Ack
}
