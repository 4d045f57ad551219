package status

import (
	"math"
	"time"

	"github.com/steveyiyo/imavoice/internal/core/render"
)

var (
	Standby    = render.MustHex("#00ffff")
	Listening  = render.MustHex("#ffff00")
	Processing = render.MustHex("#00ffaa")
	Failure    = render.MustHex("#ff0000")
)

const (
	SpeakingSegment = 500 * time.Millisecond
	FastSegment     = 200 * time.Millisecond
	HandoffDuration = 750 * time.Millisecond
	HueStep         = 3
	BlinkRate       = 0.005
	BlinkBase       = 0.65
	BlinkDepth      = 0.35
)

// Style is what the status element shows: a colour and a glow intensity in
// [0, 1].
type Style struct {
	Color render.Color
	Glow  float64
}

type Kind int

const (
	None Kind = iota
	Static
	Blink
	Sequence
	Handoff
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Blink:
		return "blink"
	case Sequence:
		return "sequence"
	case Handoff:
		return "handoff"
	}
	return "none"
}

// Animator drives the status colour. At most one animation runs at a time;
// it is advanced by Tick from the frame loop.
type Animator struct {
	kind    Kind
	start   time.Time
	base    render.Color
	palette []render.Color
	segment time.Duration
	hue     float64

	style Style
	dirty bool
}

func New() *Animator { return &Animator{} }

func (a *Animator) Kind() Kind { return a.kind }

func (a *Animator) Style() Style { return a.style }

// Set shows a static colour, stopping any animation.
func (a *Animator) Set(c render.Color) {
	a.kind = Static
	a.apply(Style{Color: c.WithAlpha(1), Glow: 1})
}

// StartBlink pulses the glow of base until speaking ends.
func (a *Animator) StartBlink(base render.Color, now time.Time) {
	a.kind, a.start, a.base = Blink, now, base.WithAlpha(1)
	a.apply(Style{Color: a.base, Glow: BlinkBase})
}

// StartSequence walks palette, segment per colour, looping.
func (a *Animator) StartSequence(palette []render.Color, segment time.Duration, now time.Time) {
	if len(palette) == 0 {
		a.Stop()
		return
	}
	a.kind, a.start, a.palette, a.segment = Sequence, now, palette, segment
	a.apply(Style{Color: palette[0].WithAlpha(1), Glow: 1})
}

// StartHandoff fades from the processing green to red, then rotates hue.
func (a *Animator) StartHandoff(now time.Time) {
	a.kind, a.start, a.hue = Handoff, now, 0
	a.apply(Style{Color: Processing, Glow: 1})
}

// Stop ends the running animation and keeps its last colour. Stopping with
// nothing running changes nothing.
func (a *Animator) Stop() {
	if a.kind == None || a.kind == Static {
		return
	}
	a.kind = None
	a.apply(Style{Color: a.style.Color, Glow: 1})
}

// Tick advances the animation to now and reports the style and whether it
// changed since the previous Tick.
func (a *Animator) Tick(now time.Time, speaking bool) (Style, bool) {
	elapsed := now.Sub(a.start)
	switch a.kind {
	case Blink:
		if !speaking {
			a.Stop()
			break
		}
		ms := float64(elapsed) / float64(time.Millisecond)
		a.apply(Style{Color: a.base, Glow: BlinkBase + math.Sin(ms*BlinkRate)*BlinkDepth})
	case Sequence:
		a.apply(Style{Color: render.Cycle(a.palette, elapsed, a.segment).WithAlpha(1), Glow: 1})
	case Handoff:
		if elapsed < HandoffDuration {
			t := float64(elapsed) / float64(HandoffDuration)
			a.apply(Style{Color: render.Lerp(Processing, Failure, t), Glow: 1})
			break
		}
		a.apply(Style{Color: render.HSLA(a.hue, 1, 0.5, 1), Glow: 1})
		a.hue = math.Mod(a.hue+HueStep, 360)
	}
	changed := a.dirty
	a.dirty = false
	return a.style, changed
}

func (a *Animator) apply(s Style) {
	if s != a.style {
		a.style = s
		a.dirty = true
	}
}
