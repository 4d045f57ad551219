package emotion

// Tag is the coarse emotional category of a piece of text.
type Tag int

const (
	Default Tag = iota
	Positive
	Anger
	Rage
	Sadness
	Negative
	SuperHappy
)

var tagNames = [...]string{
	Default:    "default",
	Positive:   "positive",
	Anger:      "anger",
	Rage:       "rage",
	Sadness:    "sadness",
	Negative:   "negative",
	SuperHappy: "superHappy",
}

func (t Tag) String() string {
	if t < 0 || int(t) >= len(tagNames) {
		return "unknown"
	}
	return tagNames[t]
}
