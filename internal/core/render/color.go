package render

import (
	"math"
	"strconv"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/steveyiyo/imavoice/internal/core/emotion"
)

// Color is an 8-bit RGB colour with a CSS alpha in [0, 1].
type Color struct {
	R, G, B uint8
	A       float64
}

func RGBA(r, g, b uint8, a float64) Color { return Color{R: r, G: g, B: b, A: a} }

// MustHex parses "#rrggbb"; it panics on malformed input.
func MustHex(s string) Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return fromColorful(c, 1)
}

// HSLA builds a colour from hue in degrees and saturation/lightness in [0, 1].
func HSLA(h, s, l, a float64) Color {
	return fromColorful(colorful.Hsl(math.Mod(h, 360), s, l), a)
}

func fromColorful(c colorful.Color, a float64) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: a}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

func (c Color) Hex() string { return c.colorful().Hex() }

// CSS renders the colour as an rgba() expression.
func (c Color) CSS() string {
	return "rgba(" + strconv.Itoa(int(c.R)) + ", " + strconv.Itoa(int(c.G)) + ", " +
		strconv.Itoa(int(c.B)) + ", " + strconv.FormatFloat(c.A, 'f', -1, 64) + ")"
}

// Lerp interpolates linearly in RGB; alpha is interpolated too.
func Lerp(a, b Color, t float64) Color {
	t = math.Max(0, math.Min(1, t))
	return fromColorful(a.colorful().BlendRgb(b.colorful(), t), a.A+(b.A-a.A)*t)
}

// Cycle walks palette one segment per colour, interpolating towards the next
// entry and wrapping at the end.
func Cycle(palette []Color, elapsed, segment time.Duration) Color {
	if len(palette) == 0 {
		return Color{}
	}
	if segment <= 0 || elapsed < 0 {
		return palette[0]
	}
	pos := float64(elapsed) / float64(segment)
	i := int(pos) % len(palette)
	next := (i + 1) % len(palette)
	return Lerp(palette[i], palette[next], pos-math.Floor(pos))
}

var StandbyPalette = []Color{
	MustHex("#32CD32"),
	MustHex("#ADFF2F"),
	MustHex("#FFA500"),
	MustHex("#FF4500"),
	MustHex("#8A2BE2"),
	MustHex("#00008B"),
	MustHex("#00FFFF"),
	MustHex("#FFFF00"),
}

var emotionColors = map[emotion.Tag]Color{
	emotion.Default:    RGBA(50, 200, 255, 0.7),
	emotion.Positive:   RGBA(50, 255, 50, 0.7),
	emotion.Anger:      RGBA(255, 50, 50, 0.7),
	emotion.Rage:       RGBA(150, 50, 255, 0.7),
	emotion.Negative:   RGBA(50, 100, 255, 0.7),
	emotion.Sadness:    RGBA(0, 0, 150, 0.7),
	emotion.SuperHappy: HSLA(0, 1, 0.7, 0.9),
}

// EmotionColor is the fixed waveform colour of t. SuperHappy has no fixed
// colour; its entry is the first hue of the rainbow.
func EmotionColor(t emotion.Tag) Color {
	if c, ok := emotionColors[t]; ok {
		return c
	}
	return emotionColors[emotion.Default]
}
