package render

import (
	"math"
	"time"

	"github.com/steveyiyo/imavoice/internal/core/emotion"
)

const (
	BarCount       = 40
	BarWidth       = 8
	BarGap         = 2
	MinBarHeight   = 10
	CaptureScale   = 200
	CaptureFloor   = 5
	SpeakAmplitude = 100
	SpeakRate      = 0.005
	SpeakPhase     = 0.05
	HueStep        = 3
	StandbySegment = 890 * time.Millisecond
)

// StandbyAlpha is the 0xb3 alpha of the standby palette.
const StandbyAlpha = 0xb3 / 255.0

// Surface is a 2D drawing target with canvas semantics.
type Surface interface {
	Clear()
	SetFill(c Color)
	FillRect(x, y, w, h float64)
}

// Presenter is implemented by surfaces that buffer a frame.
type Presenter interface {
	Present() error
}

// Analyser exposes the latest byte frequency snapshot of the capture input.
type Analyser interface {
	Spectrum() []byte
}

// State is what the renderer needs to know about the session each frame.
type State struct {
	Capturing  bool
	Speaking   bool
	Generating bool
	Preview    bool
	Emotion    emotion.Tag
}

type Bar struct {
	X, Y, W, H float64
}

type Frame struct {
	Color Color
	Bars  []Bar
}

// Renderer lays out the waveform bars and picks their colour.
type Renderer struct {
	width, height float64

	start        time.Time
	hue          float64
	standby      bool
	standbyStart time.Time
}

func NewRenderer(width, height float64, now time.Time) *Renderer {
	return &Renderer{width: width, height: height, start: now}
}

func (r *Renderer) Resize(width, height float64) {
	r.width, r.height = width, height
}

// Hue is the current rainbow hue in degrees.
func (r *Renderer) Hue() float64 { return r.hue }

// Frame computes the bars for now. spectrum may be nil.
func (r *Renderer) Frame(now time.Time, st State, spectrum []byte) Frame {
	f := Frame{Color: r.color(now, st), Bars: make([]Bar, BarCount)}
	startX := r.width/2 - float64(BarCount*BarWidth)/2
	tms := float64(now.Sub(r.start)) / float64(time.Millisecond)

	for i := range f.Bars {
		var h float64
		switch {
		case st.Capturing && len(spectrum) > 0:
			raw := spectrum[i*len(spectrum)/BarCount]
			h = float64(raw)/255*CaptureScale + CaptureFloor
		case st.Speaking || st.Preview:
			h = MinBarHeight + math.Abs(math.Sin(tms*SpeakRate+float64(i)*SpeakPhase)*SpeakAmplitude)
		default:
			h = MinBarHeight
		}
		f.Bars[i] = Bar{
			X: startX + float64(i*BarWidth),
			Y: r.height/2 - h/2,
			W: BarWidth - BarGap,
			H: h,
		}
	}
	return f
}

func (r *Renderer) color(now time.Time, st State) Color {
	if st.Generating {
		if !r.standby {
			r.standby, r.standbyStart = true, now
		}
		return Cycle(StandbyPalette, now.Sub(r.standbyStart), StandbySegment).WithAlpha(StandbyAlpha)
	}
	r.standby = false

	switch {
	case st.Preview && !st.Speaking:
		return EmotionColor(emotion.Positive)
	case st.Emotion == emotion.SuperHappy:
		r.hue = math.Mod(r.hue+HueStep, 360)
		return HSLA(r.hue, 1, 0.7, 0.9)
	}
	return EmotionColor(st.Emotion)
}

// Draw clears s and paints the frame for now.
func (r *Renderer) Draw(s Surface, a Analyser, now time.Time, st State) error {
	var spectrum []byte
	if a != nil && st.Capturing {
		spectrum = a.Spectrum()
	}
	f := r.Frame(now, st, spectrum)
	s.Clear()
	s.SetFill(f.Color)
	for _, b := range f.Bars {
		s.FillRect(b.X, b.Y, b.W, b.H)
	}
	if p, ok := s.(Presenter); ok {
		return p.Present()
	}
	return nil
}
