package prompt

import (
	"strings"
	"testing"
)

func TestApplyTemplateKnownKey(t *testing.T) {
	out, ok := ApplyTemplate("coding", "ソートの書き方は？")
	if !ok {
		t.Fatal("known key rejected")
	}
	if !strings.HasSuffix(out, "\n\nソートの書き方は？") {
		t.Fatalf("question not appended after preamble:\n%s", out)
	}
	if !strings.Contains(out, "プログラマー") {
		t.Fatalf("preamble missing:\n%s", out)
	}
}

func TestApplyTemplateUnknownKeyPassesThrough(t *testing.T) {
	out, ok := ApplyTemplate("no_such_mode", "質問")
	if ok {
		t.Fatal("unknown key accepted")
	}
	if out != "質問" {
		t.Fatalf("out = %q, want untouched question", out)
	}
}

func TestTemplatesCatalogComplete(t *testing.T) {
	seen := make(map[string]bool)
	for _, tpl := range Templates() {
		if tpl.Key == "" || tpl.Name == "" || tpl.Description == "" {
			t.Fatalf("incomplete template %+v", tpl)
		}
		if seen[tpl.Key] {
			t.Fatalf("duplicate template key %q", tpl.Key)
		}
		seen[tpl.Key] = true
	}
	for _, want := range []string{"coding", "translation", "creative", "summary", "teacher", "business", "debug", "brainstorm"} {
		if !seen[want] {
			t.Fatalf("missing template %q", want)
		}
	}
}
