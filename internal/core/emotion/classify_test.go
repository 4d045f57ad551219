package emotion

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tag
	}{
		{"empty", "", Default},
		{"plain", "今日の天気は晴れです", Default},
		{"thanks emoji", "ありがとう！😊", Positive},
		{"super happy", "最高にハッピー！🌈", SuperHappy},
		{"rage beats positive", "裏切りだ。でもありがとう", Rage},
		{"rage emoji beats positive", "了解 😡", Rage},
		{"super happy beats anger", "完璧だ、ふざけるな", SuperHappy},
		{"sadness beats negative", "ごめんなさい、失敗しました", Sadness},
		{"apology phrase", "大変申し訳ございませんでした", Sadness},
		{"negative", "エラーが発生しました", Negative},
		{"kaomoji", "お願いします m(__)m", Negative},
		{"anger", "ありえない💢", Anger},
		{"ascii keyword any case", "ok, done", Positive},
		{"ascii keyword upper", "OK", Positive},
		{"triple party", "やった🎉🎉🎉", SuperHappy},
		{"single party", "やった🎉", Default},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractEmojis(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ありがとう！😊", "😊"},
		{"no emoji here", ""},
		{"👍いいね✨", "👍✨"},
		{"雨☔です", "☔"},
		{"Imakun™ → 次へ", ""},
		{"±5℃です🌡️", "🌡️"},
	}
	for _, tt := range tests {
		if got := ExtractEmojis(tt.in); got != tt.want {
			t.Errorf("ExtractEmojis(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTagString(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{Default, "default"},
		{SuperHappy, "superHappy"},
		{Tag(-1), "unknown"},
		{Tag(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("Tag(%d).String() = %q, want %q", int(tt.tag), got, tt.want)
		}
	}
}

func TestMusicQuery(t *testing.T) {
	if MusicQuery(Sadness) != "心が癒されるバラード" {
		t.Errorf("sadness query = %q", MusicQuery(Sadness))
	}
	if MusicQuery(Tag(99)) != MusicQuery(Default) {
		t.Error("unknown tag should fall back to default query")
	}
}
