package memory

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store owns per-user bounded conversation history and the global learned-fact
// list. All mutations are mutex-protected; the append+evict+persist step is
// atomic with respect to other callers.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]Turn
	facts         []Fact
	snap          Snapshotter
	log           zerolog.Logger
}

// NewStore builds a store and loads the persisted snapshot. Load failures are
// logged and swallowed; the store starts empty in that case.
func NewStore(snap Snapshotter, log zerolog.Logger) *Store {
	s := &Store{
		conversations: make(map[string][]Turn),
		snap:          snap,
		log:           log,
	}
	if snap != nil {
		loaded, err := snap.Load()
		if err != nil {
			log.Error().Err(err).Msg("failed to load memory snapshot")
		} else {
			s.facts = loaded.LearnedFacts
			log.Info().Int("facts", len(s.facts)).Msg("loaded learned facts")
		}
	}
	return s
}

// AddTurn appends a conversation turn, evicting the oldest beyond the cap.
func (s *Store) AddTurn(userID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.conversations[userID], Turn{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if len(turns) > MaxTurnsPerUser {
		turns = turns[len(turns)-MaxTurnsPerUser:]
	}
	s.conversations[userID] = turns
}

// Context returns the retained window for a user in insertion order.
func (s *Store) Context(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.conversations[userID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// ClearContext removes all turns for a user. No-op when absent.
func (s *Store) ClearContext(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, userID)
}

// LearnFact appends a learned fact, evicts beyond the cap, and persists the
// full list write-through. Persistence failures are logged and swallowed; the
// in-memory list stays authoritative for the process lifetime.
func (s *Store) LearnFact(fact, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts = append(s.facts, Fact{
		Fact:      fact,
		Source:    source,
		LearnedAt: time.Now().UTC(),
	})
	if len(s.facts) > MaxFacts {
		s.facts = s.facts[len(s.facts)-MaxFacts:]
	}

	if s.snap == nil {
		return
	}
	snapshot := Snapshot{
		LearnedFacts: append([]Fact(nil), s.facts...),
		LastUpdated:  time.Now().UTC(),
	}
	if err := s.snap.Save(snapshot); err != nil {
		s.log.Error().Err(err).Msg("failed to persist learned facts")
	}
}

// RecentFacts returns up to limit most-recently-learned fact strings in
// chronological order.
func (s *Store) RecentFacts(limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || len(s.facts) == 0 {
		return nil
	}
	if limit > len(s.facts) {
		limit = len(s.facts)
	}
	out := make([]string, 0, limit)
	for _, f := range s.facts[len(s.facts)-limit:] {
		out = append(out, f.Fact)
	}
	return out
}

// Facts returns a copy of the full learned-fact list, oldest first.
func (s *Store) Facts() []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// FactCount reports how many facts are currently retained.
func (s *Store) FactCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}
