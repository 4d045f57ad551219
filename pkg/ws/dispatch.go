package ws

import "fmt"

// Handler receives client events. *session.Orchestrator implements it.
type Handler interface {
	Activate()
	Submit(text string)
	Typing(text string)
	Transcript(text string, final bool)
	CaptureStarted()
	CaptureEnded()
	CaptureFailed(reason string)
	SpeechStarted(id uint64)
	SpeechEnded(id uint64)
	SpeechFailed(id uint64, reason string)
	ToggleMusic()
	Resize(width, height float64)
}

// Dispatch forwards m to h. Unknown types are reported as errors.
func Dispatch(h Handler, m ClientMessage) error {
	switch m.Type {
	case "activate":
		h.Activate()
	case "submit":
		h.Submit(m.Text)
	case "typing":
		h.Typing(m.Text)
	case "transcript":
		h.Transcript(m.Text, m.Final)
	case "capture.start":
		h.CaptureStarted()
	case "capture.end":
		h.CaptureEnded()
	case "capture.error":
		h.CaptureFailed(m.Reason)
	case "speech.start":
		h.SpeechStarted(m.ID)
	case "speech.end":
		h.SpeechEnded(m.ID)
	case "speech.error":
		h.SpeechFailed(m.ID, m.Reason)
	case "resize":
		h.Resize(m.Width, m.Height)
	case "music.toggle":
		h.ToggleMusic()
	default:
		return fmt.Errorf("ws: unknown message type %q", m.Type)
	}
	return nil
}
