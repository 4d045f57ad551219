package emotion

import "strings"

type rule struct {
	tag      Tag
	keywords []string
	emoji    []string
}

// rules are evaluated in order; the first hit wins.
var rules = []rule{
	{
		tag:      Rage,
		keywords: []string{"裏切り", "許さない", "報復", "どうしてくれる", "絶交", "失望"},
		emoji:    []string{"😡", "😠", "🤬", "👿", "😾", "💀", "🔪", "💣"},
	},
	{
		tag:      SuperHappy,
		keywords: []string{"最高にハッピー", "神", "究極", "パーフェクト", "完璧", "奇跡", "感無量", "レジェンド"},
		emoji:    []string{"🤩", "✨", "🥳", "💯", "👑", "🥇", "🚀", "🌈", "🎉🎉🎉"},
	},
	{
		tag:      Anger,
		keywords: []string{"怒り", "ふざけるな", "やめろ", "だめだ", "不可能だ", "違います", "否定", "ありえない"},
		emoji:    []string{"😤", "💢", "🔥", "💥", "👹", "😫", "😩"},
	},
	{
		tag: Sadness,
		keywords: []string{
			"悲しい", "泣く", "ごめんなさい", "つらい", "寂しい", "涙", "耐えられない", "最悪", "しんどい",
			"大変お詫び申し上げます", "大変申し訳ございませんでした", "誠に申し訳ございませんでした",
			"本当にごめんなさい", "心からお詫び申し上げます", "心よりお悔やみ申し上げます",
			"お悔やみ申し上げます", "お詫び申し上げます",
		},
		emoji: []string{"😭", "😢", "🥺", "💧", "😥", "💔", "🌧️", "☔", "🙇"},
	},
	{
		tag: Negative,
		keywords: []string{
			"エラー", "失敗", "できません", "警告", "問題", "懸念", "不明", "確認", "無理", "難しい",
			"すみません", "ごめん", "出来ませんでした", "出来かねます", "すいません", "申し訳ございません",
			"申し訳ありません", "残念",
		},
		emoji: []string{"😞", "😟", "😨", "🥶", "😰", "😵", "🙏", "m(__)m"},
	},
	{
		tag:      Positive,
		keywords: []string{"ありがとう", "成功", "完了", "問題ありません", "良い", "できます", "素晴らしい", "助かる", "了解", "OK", "ハッピー"},
		emoji:    []string{"😄", "😊", "😆", "👍", "👏", "✅", "🌟"},
	},
}

func init() {
	for i := range rules {
		for j, k := range rules[i].keywords {
			rules[i].keywords[j] = strings.ToLower(k)
		}
	}
}

// Classify maps text to a Tag. Keywords match case-insensitively as
// substrings; emoji match as substrings of the original text.
func Classify(text string) Tag {
	if text == "" {
		return Default
	}
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(text, lower) {
			return r.tag
		}
	}
	return Default
}

func (r rule) match(text, lower string) bool {
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	for _, e := range r.emoji {
		if strings.Contains(text, e) {
			return true
		}
	}
	return false
}

// ExtractEmojis returns the emoji of text in order of appearance, keeping
// joiners, variation selectors and skin tone modifiers attached.
func ExtractEmojis(text string) string {
	var b strings.Builder
	for _, r := range text {
		if isEmoji(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0x200D, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	}
	return false
}
