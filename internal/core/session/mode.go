package session

import "github.com/steveyiyo/imavoice/internal/core/emotion"

// Mode is the state of the interaction loop.
type Mode int

const (
	ModeIdle Mode = iota
	ModeListening
	ModeGenerating
	ModeSpeaking
	ModeError
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListening:
		return "listening"
	case ModeGenerating:
		return "generating"
	case ModeSpeaking:
		return "speaking"
	case ModeError:
		return "error"
	}
	return "unknown"
}

// Session is the mutable state of one interaction loop. It is owned by the
// Orchestrator's Run goroutine.
type Session struct {
	Mode             Mode
	CurrentUtterance string
	PendingText      string
	Emotion          emotion.Tag
	RetryCount       int

	generation    uint64
	cancel        func()
	playbackID    uint64
	previewID     uint64
	previewActive bool
	micHeld       bool
	lastFinal     string
	staleEnd      bool
	lastPreview   string
	music         bool

	turns     int64
	fallbacks int64
	commands  int64
}

// View is a read-only copy of the session for renderers and HTTP readers.
type View struct {
	Mode          Mode
	Emotion       emotion.Tag
	PreviewActive bool
	RetryCount    int
	Utterance     string
	PendingText   string
	Music         bool
	Turns         int64
	Fallbacks     int64
	Commands      int64
}

func (s *Session) view() View {
	return View{
		Mode:          s.Mode,
		Emotion:       s.Emotion,
		PreviewActive: s.previewActive,
		RetryCount:    s.RetryCount,
		Utterance:     s.CurrentUtterance,
		PendingText:   s.PendingText,
		Music:         s.music,
		Turns:         s.turns,
		Fallbacks:     s.fallbacks,
		Commands:      s.commands,
	}
}
