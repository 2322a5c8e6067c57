package memory

import "strings"

// learningTriggers are preference/identity markers that make an exchange worth
// remembering. First match wins; there is no scoring across triggers.
var learningTriggers = []string{
	"好き",
	"嫌い",
	"趣味",
	"興味",
	"名前は",
	"住んでいる",
	"仕事は",
	"おすすめ",
	"良い",
	"悪い",
}

const (
	learnQuestionWidth = 50
	learnResponseWidth = 100
)

// ExtractLearnable scans a question/response pair for learning triggers and
// returns a fixed-format summary, or "" when nothing matched.
func ExtractLearnable(question, response string) string {
	for _, trigger := range learningTriggers {
		if strings.Contains(question, trigger) || strings.Contains(response, trigger) {
			return truncateRunes(question, learnQuestionWidth) + " → " + truncateRunes(response, learnResponseWidth)
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
