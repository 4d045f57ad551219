package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyiyo/imavoice/internal/core/render"
	"github.com/steveyiyo/imavoice/internal/core/status"
	"github.com/steveyiyo/imavoice/internal/metrics"
)

var ErrAlreadyRunning = errors.New("session: orchestrator already running")

const (
	GeneratingHandoff = "handoff"
	GeneratingPalette = "palette"
)

type Options struct {
	Locale           string
	ReservedPrefixes []string
	ResponsePrefix   string
	EmptyPromptText  string
	PreviewDebounce  time.Duration
	FrameInterval    time.Duration
	AutoRestart      bool
	Music            bool
	GeneratingStyle  string
	Width, Height    float64

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// OnChange is called from the Run goroutine whenever the View changes.
	OnChange func(View)
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Locale == "" {
		o.Locale = "ja-JP"
	}
	if o.EmptyPromptText == "" {
		o.EmptyPromptText = "すみません、何も聞こえませんでした。もう一度話しかけてください。"
	}
	if o.PreviewDebounce <= 0 {
		o.PreviewDebounce = time.Second
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = 33 * time.Millisecond
	}
	if o.GeneratingStyle == "" {
		o.GeneratingStyle = GeneratingHandoff
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = 800, 300
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Orchestrator runs one voice interaction session. Every exported method
// other than Run and Snapshot only enqueues an event; the Run goroutine
// applies events, pipeline results and frame ticks one at a time.
type Orchestrator struct {
	opts     Options
	platform Platform
	backend  Backend
	log      zerolog.Logger
	metrics  *metrics.Metrics

	events  chan func()
	done    chan struct{}
	running atomic.Bool
	snap    atomic.Pointer[View]

	// owned by Run
	ctx          context.Context
	s            Session
	renderer     *render.Renderer
	animator     *status.Animator
	nextID       uint64
	previewSeq   uint64
	previewTimer *time.Timer
	last         View
}

func New(p Platform, b Backend, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	o := &Orchestrator{
		opts:     opts,
		platform: p,
		backend:  b,
		log:      opts.Logger.With().Str("component", "orchestrator").Logger(),
		metrics:  opts.Metrics,
		events:   make(chan func(), 64),
		done:     make(chan struct{}),
		renderer: render.NewRenderer(opts.Width, opts.Height, opts.Now()),
		animator: status.New(),
	}
	o.s.music = opts.Music
	o.last = o.s.view()
	v := o.last
	o.snap.Store(&v)
	return o
}

// Snapshot returns the latest published View. Safe from any goroutine.
func (o *Orchestrator) Snapshot() View { return *o.snap.Load() }

// Done is closed when Run returns.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Run owns the session until ctx is done. It may be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(o.done)

	o.ctx = ctx
	ticker := time.NewTicker(o.opts.FrameInterval)
	defer ticker.Stop()
	defer o.shutdown()

	o.showStandby()
	o.publish()
	o.log.Info().Str("locale", o.opts.Locale).Msg("session started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-o.events:
			fn()
			o.publish()
		case <-ticker.C:
			o.frame(o.opts.Now())
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.cancelCall()
	o.stopPreviewTimer()
	if o.s.Mode == ModeListening {
		o.platform.StopCapture()
	}
	o.cancelPlayback()
	o.publish()
	o.log.Info().
		Int64("turns", o.s.turns).
		Int64("fallbacks", o.s.fallbacks).
		Msg("session ended")
}

func (o *Orchestrator) post(fn func()) {
	select {
	case o.events <- fn:
	case <-o.done:
	}
}

// Activate is the single user control: start listening, stop listening, or
// retry after an error.
func (o *Orchestrator) Activate() { o.post(o.onActivate) }

// Submit starts a generation for typed text, superseding the current cycle.
func (o *Orchestrator) Submit(text string) { o.post(func() { o.onSubmit(text) }) }

// Typing feeds the debounced spoken preview of the input box.
func (o *Orchestrator) Typing(text string) { o.post(func() { o.onTyping(text) }) }

func (o *Orchestrator) Transcript(text string, final bool) {
	o.post(func() { o.onTranscript(text, final) })
}

func (o *Orchestrator) CaptureStarted() { o.post(o.onCaptureStart) }

func (o *Orchestrator) CaptureEnded() { o.post(o.onCaptureEnd) }

func (o *Orchestrator) CaptureFailed(reason string) {
	o.post(func() { o.onCaptureError(reason) })
}

func (o *Orchestrator) SpeechStarted(id uint64) { o.post(func() { o.onSpeechStart(id) }) }

func (o *Orchestrator) SpeechEnded(id uint64) { o.post(func() { o.onSpeechEnd(id, "") }) }

func (o *Orchestrator) SpeechFailed(id uint64, reason string) {
	o.post(func() { o.onSpeechEnd(id, reason) })
}

func (o *Orchestrator) ToggleMusic() { o.post(o.onToggleMusic) }

func (o *Orchestrator) Resize(width, height float64) {
	o.post(func() {
		if width > 0 && height > 0 {
			o.renderer.Resize(width, height)
		}
	})
}

func (o *Orchestrator) frame(now time.Time) {
	st := render.State{
		Capturing:  o.s.Mode == ModeListening,
		Speaking:   o.s.Mode == ModeSpeaking,
		Generating: o.s.Mode == ModeGenerating,
		Preview:    o.s.previewActive,
		Emotion:    o.s.Emotion,
	}
	if err := o.renderer.Draw(o.platform, o.platform, now, st); err != nil {
		o.log.Debug().Err(err).Msg("frame not delivered")
	}
	if style, changed := o.animator.Tick(now, st.Speaking); changed {
		o.platform.ApplyStyle(style)
	}
}

func (o *Orchestrator) publish() {
	v := o.s.view()
	if v == o.last {
		return
	}
	o.last = v
	o.snap.Store(&v)
	if o.opts.OnChange != nil {
		o.opts.OnChange(v)
	}
}
