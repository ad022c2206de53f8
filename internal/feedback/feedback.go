// Package feedback stores user ratings of model answers.
package feedback

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultConfidenceThreshold is the confidence below which an answer is
// flagged as unreliable.
const DefaultConfidenceThreshold = 0.7

// Entry is one rating of a model answer.
type Entry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Response       string    `json:"response"`
	Confidence     float64   `json:"confidence"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)

// Validate checks the rating and confidence ranges.
func (e Entry) Validate() error {
	if e.Rating < 1 || e.Rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, e.Rating)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: got %g", ErrInvalidConfidence, e.Confidence)
	}
	return nil
}

// LowConfidence reports whether the answer should carry a reliability
// warning. A threshold <= 0 uses DefaultConfidenceThreshold.
func (e Entry) LowConfidence(threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return e.Confidence < threshold
}

// Store persists entries.
type Store interface {
	Add(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a time-ordered unique ID.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Now(), idEntropy).String()
}

// prepare validates e and fills ID and CreatedAt when unset.
func prepare(e Entry) (Entry, error) {
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e, nil
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Add(_ context.Context, e Entry) (Entry, error) {
	e, err := prepare(e)
	if err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return e, nil
}

// List returns the newest entries first; limit <= 0 returns all.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
