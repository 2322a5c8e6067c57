package stats

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// runesPerToken is the rough estimate used for token accounting: one token
// per four characters of text.
const runesPerToken = 4

type counters struct {
	TotalQuestions  int            `json:"total_questions"`
	TotalResponses  int            `json:"total_responses"`
	QuestionsByUser map[string]int `json:"questions_by_user"`
	QuestionsToday  int            `json:"questions_today"`
	LastReset       string         `json:"last_reset"`
	TotalTokens     int            `json:"total_tokens_estimate"`
}

// Summary is a point-in-time view of aggregate usage.
type Summary struct {
	TotalQuestions int
	QuestionsToday int
	TotalResponses int
	UniqueUsers    int
	TotalTokens    int
}

// UserCount pairs a user with their question count.
type UserCount struct {
	UserID string
	Count  int
}

// Tracker accumulates usage counters and writes them through to a JSON file
// on every mutation. The daily question counter resets lazily when a record
// lands on a new calendar day.
type Tracker struct {
	mu   sync.Mutex
	path string
	c    counters
	log  zerolog.Logger
	now  func() time.Time
}

func NewTracker(path string, log zerolog.Logger) *Tracker {
	t := &Tracker{
		path: path,
		log:  log,
		now:  time.Now,
		c: counters{
			QuestionsByUser: make(map[string]int),
			LastReset:       time.Now().Format(time.DateOnly),
		},
	}
	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.log.Error().Err(err).Str("path", t.path).Msg("failed to load stats")
		}
		return
	}
	var c counters
	if err := json.Unmarshal(data, &c); err != nil {
		t.log.Error().Err(err).Str("path", t.path).Msg("corrupt stats file, starting fresh")
		return
	}
	if c.QuestionsByUser == nil {
		c.QuestionsByUser = make(map[string]int)
	}
	t.c = c
	t.log.Info().Str("path", t.path).Msg("statistics loaded")
}

// save writes the counters out. Callers hold the mutex.
func (t *Tracker) save() {
	data, err := json.MarshalIndent(t.c, "", "  ")
	if err != nil {
		t.log.Error().Err(err).Msg("failed to encode stats")
		return
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		t.log.Error().Err(err).Str("path", t.path).Msg("failed to save stats")
	}
}

// RecordQuestion counts one question from a user, rolling the daily counter
// over when the calendar day has changed since the last record.
func (t *Tracker) RecordQuestion(userID, question string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.now().Format(time.DateOnly)
	if t.c.LastReset != today {
		t.c.QuestionsToday = 0
		t.c.LastReset = today
	}

	t.c.TotalQuestions++
	t.c.QuestionsToday++
	t.c.QuestionsByUser[userID]++
	t.c.TotalTokens += utf8.RuneCountInString(question) / runesPerToken
	t.save()
}

// RecordResponse counts one generated response.
func (t *Tracker) RecordResponse(response string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.c.TotalResponses++
	t.c.TotalTokens += utf8.RuneCountInString(response) / runesPerToken
	t.save()
}

// GetSummary returns aggregate counters.
func (t *Tracker) GetSummary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Summary{
		TotalQuestions: t.c.TotalQuestions,
		QuestionsToday: t.c.QuestionsToday,
		TotalResponses: t.c.TotalResponses,
		UniqueUsers:    len(t.c.QuestionsByUser),
		TotalTokens:    t.c.TotalTokens,
	}
}

// TopUsers returns up to limit users ordered by question count, descending.
// Ties break on user ID for a stable order.
func (t *Tracker) TopUsers(limit int) []UserCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]UserCount, 0, len(t.c.QuestionsByUser))
	for id, n := range t.c.QuestionsByUser {
		out = append(out, UserCount{UserID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
