package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(snap Snapshotter) *Store {
	return NewStore(snap, zerolog.Nop())
}

func TestAddTurnEvictsOldest(t *testing.T) {
	s := newTestStore(nil)
	for i := 0; i < 15; i++ {
		s.AddTurn("alice", RoleUser, fmt.Sprintf("message %d", i))
	}

	turns := s.Context("alice")
	if len(turns) != MaxTurnsPerUser {
		t.Fatalf("len(turns) = %d, want %d", len(turns), MaxTurnsPerUser)
	}
	if turns[0].Content != "message 5" {
		t.Fatalf("oldest retained = %q, want %q", turns[0].Content, "message 5")
	}
	if turns[len(turns)-1].Content != "message 14" {
		t.Fatalf("newest retained = %q, want %q", turns[len(turns)-1].Content, "message 14")
	}
}

func TestContextEmptyForUnknownUser(t *testing.T) {
	s := newTestStore(nil)
	if got := s.Context("nobody"); len(got) != 0 {
		t.Fatalf("Context(nobody) = %v, want empty", got)
	}
}

func TestClearContextIdempotent(t *testing.T) {
	s := newTestStore(nil)
	s.AddTurn("alice", RoleUser, "hi")
	s.ClearContext("alice")
	if got := s.Context("alice"); len(got) != 0 {
		t.Fatalf("Context after clear = %v, want empty", got)
	}
	// Second clear must be a no-op, not a fault.
	s.ClearContext("alice")
	s.ClearContext("never-existed")
}

func TestLearnFactEvictsOldest(t *testing.T) {
	s := newTestStore(nil)
	for i := 0; i < MaxFacts+1; i++ {
		s.LearnFact(fmt.Sprintf("fact %d", i), "test")
	}

	if got := s.FactCount(); got != MaxFacts {
		t.Fatalf("FactCount() = %d, want %d", got, MaxFacts)
	}
	facts := s.RecentFacts(MaxFacts)
	if facts[0] != "fact 1" {
		t.Fatalf("oldest retained fact = %q, want %q", facts[0], "fact 1")
	}
	if facts[len(facts)-1] != fmt.Sprintf("fact %d", MaxFacts) {
		t.Fatalf("newest fact = %q", facts[len(facts)-1])
	}
}

func TestRecentFactsChronological(t *testing.T) {
	s := newTestStore(nil)
	s.LearnFact("one", "t")
	s.LearnFact("two", "t")
	s.LearnFact("three", "t")

	got := s.RecentFacts(2)
	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Fatalf("RecentFacts(2) = %v, want [two three]", got)
	}
	if got := s.RecentFacts(10); len(got) != 3 {
		t.Fatalf("RecentFacts(10) = %v, want all 3", got)
	}
	if got := s.RecentFacts(0); got != nil {
		t.Fatalf("RecentFacts(0) = %v, want nil", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s1 := newTestStore(NewFileSnapshotter(path))
	s1.LearnFact("alice likes ramen", "user_1")
	s1.LearnFact("bob lives in osaka", "user_2")

	s2 := newTestStore(NewFileSnapshotter(path))
	facts := s2.Facts()
	if len(facts) != 2 {
		t.Fatalf("reloaded facts = %d, want 2", len(facts))
	}
	if facts[0].Fact != "alice likes ramen" || facts[1].Fact != "bob lives in osaka" {
		t.Fatalf("reloaded order wrong: %+v", facts)
	}
	if facts[0].Source != "user_1" {
		t.Fatalf("source = %q, want user_1", facts[0].Source)
	}
}

func TestLoadCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s := newTestStore(NewFileSnapshotter(path))
	if got := s.FactCount(); got != 0 {
		t.Fatalf("FactCount() = %d after corrupt load, want 0", got)
	}
}

type failingSnapshotter struct{}

func (failingSnapshotter) Load() (Snapshot, error) { return Snapshot{}, errors.New("load failed") }
func (failingSnapshotter) Save(Snapshot) error     { return errors.New("save failed") }
func (failingSnapshotter) Close() error            { return nil }

func TestPersistenceFailureSwallowed(t *testing.T) {
	s := newTestStore(failingSnapshotter{})
	s.LearnFact("survives in memory", "test")
	if got := s.RecentFacts(1); len(got) != 1 || got[0] != "survives in memory" {
		t.Fatalf("in-memory fact lost on save failure: %v", got)
	}
}
