package intent

import "strings"

// Command is a device command understood by the IoT endpoint.
type Command string

const (
	On  Command = "ON"
	Off Command = "OFF"
)

func (c Command) Valid() bool { return c == On || c == Off }

var (
	targets = []string{"ライト", "電気"}
	onVerbs = []string{"つけ", "オン", "点け"}
	offVerb = []string{"けし", "オフ", "消し"}
)

// Match reports whether utterance asks to switch the light, and which way.
// "on" wins when both verbs appear.
func Match(utterance string) (Command, bool) {
	if !containsAny(utterance, targets) {
		return "", false
	}
	switch {
	case containsAny(utterance, onVerbs):
		return On, true
	case containsAny(utterance, offVerb):
		return Off, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
