package memory

import "time"

const (
	// MaxTurnsPerUser bounds each user's retained conversation window.
	MaxTurnsPerUser = 10
	// MaxFacts bounds the global learned-fact list.
	MaxFacts = 100
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single user or assistant message in a conversation.
// Immutable once created; ordering is append order.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Fact is a short snippet learned from conversation, shared across all users.
type Fact struct {
	Fact      string    `json:"fact"`
	Source    string    `json:"source"`
	LearnedAt time.Time `json:"learned_at"`
}

// Snapshot is the persisted form of the store. Conversation turns are
// deliberately volatile; only learned facts survive restarts.
type Snapshot struct {
	LearnedFacts []Fact    `json:"learned_facts"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Snapshotter persists and restores fact snapshots.
type Snapshotter interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Close() error
}
