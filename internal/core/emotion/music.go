package emotion

var musicQueries = map[Tag]string{
	Rage:       "本気の怒りや絶望のロック",
	SuperHappy: "最高にハッピーなポップヒット",
	Anger:      "激しいロックや怒りを鎮めるクラシック",
	Sadness:    "心が癒されるバラード",
	Negative:   "落ち着くアンビエント",
	Positive:   "元気が出るアップテンポ",
	Default:    "穏やかなリラックスミュージック",
}

// MusicQuery returns the search query used to pick background music for t.
func MusicQuery(t Tag) string {
	if q, ok := musicQueries[t]; ok {
		return q
	}
	return musicQueries[Default]
}
