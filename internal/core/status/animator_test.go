package status

import (
	"math"
	"testing"
	"time"

	"github.com/steveyiyo/imavoice/internal/core/render"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStopIsIdempotent(t *testing.T) {
	a := New()
	a.Stop()
	a.Stop()
	if a.Kind() != None {
		t.Fatalf("kind = %v", a.Kind())
	}
	if _, changed := a.Tick(t0, false); changed {
		t.Error("stop on idle animator changed the style")
	}

	a.Set(Listening)
	a.Tick(t0, false)
	a.Stop()
	if a.Kind() != Static {
		t.Errorf("stop replaced a static colour: %v", a.Kind())
	}
	if _, changed := a.Tick(t0, false); changed {
		t.Error("stop on static colour changed the style")
	}
}

func TestStartingOneModeStopsOthers(t *testing.T) {
	a := New()
	a.StartBlink(Listening, t0)
	a.StartSequence(render.StandbyPalette, SpeakingSegment, t0)
	if a.Kind() != Sequence {
		t.Fatalf("kind = %v", a.Kind())
	}
	a.StartHandoff(t0)
	if a.Kind() != Handoff {
		t.Fatalf("kind = %v", a.Kind())
	}
	a.Set(Standby)
	if a.Kind() != Static {
		t.Fatalf("kind = %v", a.Kind())
	}
}

func TestBlink(t *testing.T) {
	a := New()
	base := render.RGBA(50, 255, 50, 0.7)
	a.StartBlink(base, t0)

	s, _ := a.Tick(t0, true)
	if s.Color != base.WithAlpha(1) || math.Abs(s.Glow-BlinkBase) > 1e-9 {
		t.Errorf("start style = %+v", s)
	}
	peakMS := math.Pi / 2 / BlinkRate
	peak := t0.Add(time.Duration(peakMS * float64(time.Millisecond)))
	s, _ = a.Tick(peak, true)
	if math.Abs(s.Glow-1) > 1e-6 {
		t.Errorf("peak glow = %v", s.Glow)
	}

	a.Tick(peak, false)
	if a.Kind() != None {
		t.Errorf("blink kept running after speaking ended: %v", a.Kind())
	}
	if a.Style().Color != base.WithAlpha(1) {
		t.Errorf("colour after stop = %+v", a.Style().Color)
	}
}

func TestSequenceLoops(t *testing.T) {
	a := New()
	a.StartSequence(render.StandbyPalette, FastSegment, t0)
	n := len(render.StandbyPalette)
	for i := 0; i <= n; i++ {
		s, _ := a.Tick(t0.Add(time.Duration(i)*FastSegment), false)
		if want := render.StandbyPalette[i%n]; s.Color != want {
			t.Errorf("segment %d = %+v, want %+v", i, s.Color, want)
		}
	}
	if a.Kind() != Sequence {
		t.Error("sequence must not depend on speaking")
	}
}

func TestHandoff(t *testing.T) {
	a := New()
	a.StartHandoff(t0)
	s, _ := a.Tick(t0, false)
	if s.Color != Processing {
		t.Errorf("start = %+v", s.Color)
	}
	s, _ = a.Tick(t0.Add(HandoffDuration/2), false)
	if s.Color == Processing || s.Color == Failure {
		t.Errorf("midpoint = %+v", s.Color)
	}
	s, _ = a.Tick(t0.Add(HandoffDuration), false)
	if s.Color != render.HSLA(0, 1, 0.5, 1) {
		t.Errorf("end of fade = %+v", s.Color)
	}
	s2, changed := a.Tick(t0.Add(HandoffDuration+time.Millisecond), false)
	if !changed || s2.Color != render.HSLA(HueStep, 1, 0.5, 1) {
		t.Errorf("rotation = %+v changed=%v", s2.Color, changed)
	}
}

func TestSetReportsChangeOnce(t *testing.T) {
	a := New()
	a.Set(Failure)
	if s, changed := a.Tick(t0, false); !changed || s.Color != Failure {
		t.Errorf("first tick = %+v %v", s, changed)
	}
	if _, changed := a.Tick(t0, false); changed {
		t.Error("second tick reported a change")
	}
}
