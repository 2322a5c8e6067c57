package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	return NewTracker(filepath.Join(t.TempDir(), "stats.json"), zerolog.Nop())
}

func TestRecordQuestionCounts(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordQuestion("u1", "12345678") // 8 runes -> 2 tokens
	tr.RecordQuestion("u1", "abcd")
	tr.RecordQuestion("u2", "ab")

	s := tr.GetSummary()
	if s.TotalQuestions != 3 {
		t.Fatalf("TotalQuestions = %d, want 3", s.TotalQuestions)
	}
	if s.QuestionsToday != 3 {
		t.Fatalf("QuestionsToday = %d, want 3", s.QuestionsToday)
	}
	if s.UniqueUsers != 2 {
		t.Fatalf("UniqueUsers = %d, want 2", s.UniqueUsers)
	}
	if s.TotalTokens != 3 {
		t.Fatalf("TotalTokens = %d, want 3", s.TotalTokens)
	}
}

func TestDailyCounterRollsOver(t *testing.T) {
	tr := newTestTracker(t)
	day := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return day }

	tr.RecordQuestion("u1", "q")
	tr.RecordQuestion("u1", "q")

	day = day.Add(2 * time.Hour) // next calendar day
	tr.RecordQuestion("u1", "q")

	s := tr.GetSummary()
	if s.QuestionsToday != 1 {
		t.Fatalf("QuestionsToday = %d after rollover, want 1", s.QuestionsToday)
	}
	if s.TotalQuestions != 3 {
		t.Fatalf("TotalQuestions = %d, want 3", s.TotalQuestions)
	}
}

func TestRecordResponseAddsTokens(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordResponse(strings.Repeat("あ", 8))

	s := tr.GetSummary()
	if s.TotalResponses != 1 {
		t.Fatalf("TotalResponses = %d, want 1", s.TotalResponses)
	}
	if s.TotalTokens != 2 {
		t.Fatalf("TotalTokens = %d, want 2 (rune based)", s.TotalTokens)
	}
}

func TestTopUsersOrdering(t *testing.T) {
	tr := newTestTracker(t)
	for i := 0; i < 3; i++ {
		tr.RecordQuestion("alice", "q")
	}
	tr.RecordQuestion("bob", "q")
	tr.RecordQuestion("carol", "q")

	top := tr.TopUsers(2)
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top[0].UserID != "alice" || top[0].Count != 3 {
		t.Fatalf("top[0] = %+v", top[0])
	}
	if top[1].UserID != "bob" {
		t.Fatalf("tie should break on user id, got %+v", top[1])
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")

	tr := NewTracker(path, zerolog.Nop())
	tr.RecordQuestion("u1", "hello world")
	tr.RecordResponse("hi")

	reloaded := NewTracker(path, zerolog.Nop())
	s := reloaded.GetSummary()
	if s.TotalQuestions != 1 || s.TotalResponses != 1 {
		t.Fatalf("reloaded summary = %+v", s)
	}
	if s.UniqueUsers != 1 {
		t.Fatalf("UniqueUsers = %d after reload, want 1", s.UniqueUsers)
	}
}

func TestCorruptStatsFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tr := NewTracker(path, zerolog.Nop())
	if s := tr.GetSummary(); s.TotalQuestions != 0 {
		t.Fatalf("expected fresh counters, got %+v", s)
	}
}
