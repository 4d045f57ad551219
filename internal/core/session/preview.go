package session

import (
	"strings"
	"time"
	"unicode/utf8"
)

// onTyping restarts the preview debounce. Clearing the input cancels an
// active preview.
func (o *Orchestrator) onTyping(text string) {
	text = strings.TrimSpace(text)
	o.stopPreviewTimer()
	if text == "" {
		o.cancelPreview()
		o.s.lastPreview = ""
		return
	}
	seq := o.previewSeq
	o.previewTimer = time.AfterFunc(o.opts.PreviewDebounce, func() {
		o.post(func() { o.firePreview(seq, text) })
	})
}

// firePreview speaks text as a preview when nothing else owns the audio.
// It never changes Mode.
func (o *Orchestrator) firePreview(seq uint64, text string) {
	if seq != o.previewSeq {
		return
	}
	o.previewTimer = nil
	if o.s.Mode != ModeIdle || o.s.playbackID != 0 || text == o.s.lastPreview {
		return
	}
	if o.s.previewID != 0 {
		o.platform.CancelSpeech()
	}
	o.nextID++
	o.s.previewID = o.nextID
	o.s.previewActive = true
	o.s.PendingText = text
	o.s.lastPreview = text
	o.platform.Speak(o.s.previewID, text, o.opts.Locale)
	o.platform.ShowStatus("文章を読み上げ中: 「" + previewSnippet(text) + "」")
}

func (o *Orchestrator) cancelPreview() {
	if o.s.previewID != 0 {
		o.platform.CancelSpeech()
		o.s.previewID = 0
	}
	o.s.previewActive = false
	o.s.PendingText = ""
}

func (o *Orchestrator) stopPreviewTimer() {
	o.previewSeq++
	if o.previewTimer != nil {
		o.previewTimer.Stop()
		o.previewTimer = nil
	}
}

func previewSnippet(text string) string {
	if utf8.RuneCountInString(text) > snippetRunes {
		return string([]rune(text)[:snippetRunes]) + "..."
	}
	return text
}
