// Package chat keeps caller-owned conversation state for interactive
// question answering over a dataset.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Conversation is an append-only history of turns.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	turns     []Turn
}

// New starts an empty conversation with a fresh ID.
func New() *Conversation {
	return &Conversation{ID: uuid.NewString(), CreatedAt: time.Now()}
}

// Append records a turn and returns it.
func (c *Conversation) Append(role Role, content string) Turn {
	t := Turn{Role: role, Content: content, At: time.Now()}
	c.turns = append(c.turns, t)
	return t
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len is the number of turns so far.
func (c *Conversation) Len() int { return len(c.turns) }

// LastAnswer returns the most recent assistant turn.
func (c *Conversation) LastAnswer() (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}

// Answerer answers a question about data.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question string, data any) (string, error)
}

// Session ties a conversation to the data snapshot its questions are about.
type Session struct {
	Conv     *Conversation
	Answerer Answerer
	Data     any
}

// ErrEmptyQuestion is returned for blank input.
var ErrEmptyQuestion = errors.New("question is empty")

// Ask records the question, asks the Answerer and records the answer. When
// answering fails only the user turn is kept.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	s.Conv.Append(RoleUser, question)
	answer, err := s.Answerer.AnswerQuestion(ctx, question, s.Data)
	if err != nil {
		return "", err
	}
	s.Conv.Append(RoleAssistant, answer)
	return answer, nil
}
