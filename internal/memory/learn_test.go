package memory

import (
	"strings"
	"testing"
)

func TestExtractLearnableTriggerInQuestion(t *testing.T) {
	got := ExtractLearnable("ラーメンが好きです", "いいですね！")
	if got == "" {
		t.Fatalf("ExtractLearnable() = empty, want summary for 好き trigger")
	}
	if !strings.Contains(got, " → ") {
		t.Fatalf("summary %q missing separator", got)
	}
	if !strings.HasPrefix(got, "ラーメンが好きです") {
		t.Fatalf("summary %q should start with the question", got)
	}
}

func TestExtractLearnableTriggerInResponse(t *testing.T) {
	got := ExtractLearnable("何かある？", "京都がおすすめです")
	if got == "" {
		t.Fatalf("ExtractLearnable() = empty, want summary for おすすめ trigger")
	}
}

func TestExtractLearnableNoTrigger(t *testing.T) {
	if got := ExtractLearnable("今日の天気は？", "晴れです"); got != "" {
		t.Fatalf("ExtractLearnable() = %q, want empty", got)
	}
}

func TestExtractLearnableTruncation(t *testing.T) {
	question := "好き" + strings.Repeat("あ", 100)
	response := strings.Repeat("い", 200)

	got := ExtractLearnable(question, response)
	parts := strings.SplitN(got, " → ", 2)
	if len(parts) != 2 {
		t.Fatalf("summary %q missing separator", got)
	}
	if n := len([]rune(parts[0])); n != learnQuestionWidth {
		t.Fatalf("question part = %d runes, want %d", n, learnQuestionWidth)
	}
	if n := len([]rune(parts[1])); n != learnResponseWidth {
		t.Fatalf("response part = %d runes, want %d", n, learnResponseWidth)
	}
}
