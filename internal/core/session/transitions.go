package session

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/steveyiyo/imavoice/internal/core/emotion"
	"github.com/steveyiyo/imavoice/internal/core/intent"
	"github.com/steveyiyo/imavoice/internal/core/render"
	"github.com/steveyiyo/imavoice/internal/core/status"
)

const (
	statusStandby    = "Standby. タップして話しかけてください"
	statusListening  = "Listening..."
	statusGenerating = "Generating response..."
	statusError      = "Error: Microphone permission denied or failed."
	statusSpeechFail = "読み上げエラーが発生しました"
	snippetRunes     = 20
)

// Capture errors that mean the microphone cannot be used until the user
// acts again.
var fatalCaptureErrors = map[string]bool{
	"not-allowed":         true,
	"service-not-allowed": true,
	"audio-capture":       true,
}

func (o *Orchestrator) setMode(m Mode) {
	if o.s.Mode == m {
		return
	}
	o.log.Debug().Stringer("from", o.s.Mode).Stringer("to", m).Msg("transition")
	o.metrics.RecordTransition(o.s.Mode.String(), m.String())
	o.s.Mode = m
}

func (o *Orchestrator) onActivate() {
	if o.s.Mode == ModeListening {
		// the capture-end event finalizes the utterance
		o.platform.StopCapture()
		return
	}
	o.startListening()
}

func (o *Orchestrator) startListening() {
	if o.s.Mode == ModeListening {
		return
	}
	o.cancelCall()
	o.cancelPlayback()
	if o.s.Mode == ModeError {
		o.s.micHeld = false
	}
	if !o.s.micHeld {
		o.platform.AcquireMicrophone()
		o.s.micHeld = true
	}
	o.s.CurrentUtterance, o.s.lastFinal = "", ""
	o.s.Emotion = emotion.Default
	o.setMode(ModeListening)
	o.platform.StartCapture(o.opts.Locale)
	o.platform.ShowStatus(statusListening)
	o.platform.ShowTranscript("")
	o.animator.Set(status.Listening)
}

func (o *Orchestrator) onCaptureStart() {
	o.s.staleEnd = false
	if o.s.Mode != ModeListening {
		o.log.Debug().Stringer("mode", o.s.Mode).Msg("capture started outside listening, stopping")
		o.platform.StopCapture()
	}
}

func (o *Orchestrator) onTranscript(text string, final bool) {
	if o.s.Mode != ModeListening {
		return
	}
	o.s.CurrentUtterance = text
	o.platform.ShowTranscript(text)
	if !final {
		return
	}
	o.s.lastFinal = text
	if o.usable(text) {
		o.beginGeneration(text)
	}
}

func (o *Orchestrator) onCaptureEnd() {
	if o.s.staleEnd {
		// end of the capture that already reported an error
		o.s.staleEnd = false
		return
	}
	if o.s.Mode != ModeListening {
		return
	}
	utt := o.s.lastFinal
	if utt == "" {
		utt = o.s.CurrentUtterance
	}
	if o.usable(utt) {
		o.beginGeneration(utt)
		return
	}
	o.toIdle()
}

func (o *Orchestrator) onCaptureError(reason string) {
	if fatalCaptureErrors[reason] {
		o.fail(reason)
		return
	}
	if o.s.Mode != ModeListening {
		return
	}
	o.log.Info().Str("reason", reason).Msg("capture ended with error")
	o.toIdle()
	if o.opts.AutoRestart && o.s.micHeld {
		o.s.staleEnd = true
		o.startListening()
	}
}

// usable reports whether a captured utterance may be sent to the backend.
func (o *Orchestrator) usable(utt string) bool {
	utt = strings.TrimSpace(utt)
	if utf8.RuneCountInString(utt) <= 1 {
		return false
	}
	for _, p := range o.opts.ReservedPrefixes {
		if p != "" && strings.HasPrefix(utt, p) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) onSubmit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	o.stopPreviewTimer()
	o.s.lastPreview = ""
	o.beginGeneration(text)
}

func (o *Orchestrator) beginGeneration(utt string) {
	if o.s.Mode == ModeListening {
		o.platform.StopCapture()
	}
	o.cancelPlayback()
	o.cancelCall()

	o.s.CurrentUtterance = utt
	o.s.RetryCount = 0
	o.s.Emotion = emotion.Default
	o.setMode(ModeGenerating)
	o.platform.ShowStatus(statusGenerating)
	o.platform.ShowTranscript(utt)
	if o.opts.GeneratingStyle == GeneratingPalette {
		o.animator.StartSequence(render.StandbyPalette, status.FastSegment, o.opts.Now())
	} else {
		o.animator.StartHandoff(o.opts.Now())
	}

	token := o.s.generation
	ctx, cancel := context.WithCancel(o.ctx)
	o.s.cancel = cancel
	go func() {
		r := o.route(ctx, utt)
		o.post(func() { o.onResult(token, r) })
	}()
}

type result struct {
	text     string
	attempts int
	fallback bool
	command  bool
}

// route runs off the Run goroutine and must not touch session state.
func (o *Orchestrator) route(ctx context.Context, utt string) result {
	prompt := utt
	if p := o.opts.ResponsePrefix; p != "" {
		prompt = strings.TrimPrefix(prompt, p)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return result{text: o.opts.EmptyPromptText}
	}
	if cmd, ok := intent.Match(prompt); ok {
		ack := o.backend.SendCommand(ctx, cmd)
		return result{text: ack.Text, attempts: 1, command: true}
	}
	r := o.backend.Generate(ctx, prompt)
	return result{text: r.Text, attempts: r.Attempts, fallback: r.Fallback}
}

func (o *Orchestrator) onResult(token uint64, r result) {
	if token != o.s.generation || o.s.Mode != ModeGenerating {
		o.metrics.RecordStale()
		o.log.Debug().Uint64("token", token).Uint64("current", o.s.generation).Msg("stale result dropped")
		return
	}
	if o.s.cancel != nil {
		o.s.cancel()
		o.s.cancel = nil
	}
	o.s.RetryCount = max(r.attempts-1, 0)
	o.s.turns++
	if r.fallback {
		o.s.fallbacks++
	}
	if r.command {
		o.s.commands++
	}
	o.speak(r.text)
}

func (o *Orchestrator) speak(text string) {
	tag := emotion.Classify(text)
	o.s.Emotion = tag
	o.nextID++
	o.s.playbackID = o.nextID
	o.setMode(ModeSpeaking)
	o.platform.Speak(o.s.playbackID, text, o.opts.Locale)
	o.platform.ShowStatus(responseStatus(o.opts.ResponsePrefix, text))

	now := o.opts.Now()
	if tag == emotion.SuperHappy {
		o.animator.StartSequence(render.StandbyPalette, status.SpeakingSegment, now)
	} else {
		o.animator.StartBlink(render.EmotionColor(tag), now)
	}
	if o.s.music {
		if mp, ok := o.platform.(MusicPlayer); ok {
			mp.PlayMusic(emotion.MusicQuery(tag))
		}
	}
	o.log.Info().Stringer("emotion", tag).Int("retries", o.s.RetryCount).Msg("speaking reply")
}

func (o *Orchestrator) onSpeechStart(id uint64) {
	if id == 0 || (id != o.s.playbackID && id != o.s.previewID) {
		o.log.Debug().Uint64("id", id).Msg("stale speech start")
	}
}

func (o *Orchestrator) onSpeechEnd(id uint64, failure string) {
	switch {
	case id != 0 && id == o.s.previewID:
		o.s.previewID = 0
		o.s.previewActive = false
		o.s.PendingText = ""
		if o.s.Mode == ModeIdle {
			o.platform.ShowStatus(statusStandby)
		}
	case id != 0 && id == o.s.playbackID && o.s.Mode == ModeSpeaking:
		o.s.playbackID = 0
		if failure != "" {
			o.log.Warn().Str("reason", failure).Msg("speech synthesis failed")
		}
		o.toIdle()
		if failure != "" {
			o.platform.ShowStatus(statusSpeechFail)
		}
		if o.opts.AutoRestart && o.s.micHeld {
			o.startListening()
		}
	default:
		o.log.Debug().Uint64("id", id).Msg("stale speech end")
	}
}

func (o *Orchestrator) toIdle() {
	o.s.Emotion = emotion.Default
	o.s.CurrentUtterance, o.s.lastFinal = "", ""
	o.setMode(ModeIdle)
	o.platform.ShowTranscript("")
	o.showStandby()
}

func (o *Orchestrator) showStandby() {
	o.platform.ShowStatus(statusStandby)
	o.animator.Set(status.Standby)
}

func (o *Orchestrator) fail(reason string) {
	o.log.Error().Str("reason", reason).Msg("capture unavailable")
	o.cancelCall()
	if o.s.Mode == ModeListening {
		o.platform.StopCapture()
	}
	o.cancelPlayback()
	o.s.micHeld = false
	o.s.Emotion = emotion.Default
	o.setMode(ModeError)
	o.platform.ShowStatus(statusError)
	o.animator.Set(status.Failure)
}

// cancelCall invalidates the in-flight pipeline call, if any.
func (o *Orchestrator) cancelCall() {
	if o.s.cancel != nil {
		o.s.cancel()
		o.s.cancel = nil
	}
	o.s.generation++
}

// cancelPlayback stops main and preview speech.
func (o *Orchestrator) cancelPlayback() {
	if o.s.playbackID != 0 || o.s.previewID != 0 {
		o.platform.CancelSpeech()
	}
	o.s.playbackID, o.s.previewID = 0, 0
	o.s.previewActive = false
	o.s.PendingText = ""
}

func (o *Orchestrator) onToggleMusic() {
	o.s.music = !o.s.music
	mp, ok := o.platform.(MusicPlayer)
	if !ok {
		return
	}
	switch {
	case !o.s.music:
		mp.StopMusic()
	case o.s.Mode == ModeSpeaking:
		mp.PlayMusic(emotion.MusicQuery(o.s.Emotion))
	}
}

// responseStatus labels a reply with prefix so a later capture of the
// status text is rejected as a reserved utterance.
func responseStatus(prefix, text string) string {
	snippet := text
	if utf8.RuneCountInString(snippet) > snippetRunes {
		snippet = string([]rune(snippet)[:snippetRunes]) + "…"
	}
	parts := []string{snippet}
	if prefix != "" {
		parts = []string{prefix, snippet}
	}
	if e := emotion.ExtractEmojis(text); e != "" {
		parts = append(parts, e)
	}
	return strings.Join(parts, " ")
}
