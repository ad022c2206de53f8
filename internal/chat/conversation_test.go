package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnswerer struct {
	answer string
	err    error
	gotQ   string
	gotD   any
}

func (s *stubAnswerer) AnswerQuestion(_ context.Context, q string, data any) (string, error) {
	s.gotQ, s.gotD = q, data
	return s.answer, s.err
}

func TestNewConversationHasID(t *testing.T) {
	c := New()
	_, err := uuid.Parse(c.ID)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, New().ID)
	assert.Zero(t, c.Len())
}

func TestSessionAskAppendsTurns(t *testing.T) {
	ans := &stubAnswerer{answer: "54"}
	s := &Session{Conv: New(), Answerer: ans, Data: []string{"row"}}

	got, err := s.Ask(context.Background(), "  mean age?  ")
	require.NoError(t, err)
	assert.Equal(t, "54", got)
	assert.Equal(t, "mean age?", ans.gotQ)
	assert.Equal(t, []string{"row"}, ans.gotD)

	turns := s.Conv.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.False(t, turns[1].At.Before(turns[0].At))

	last, ok := s.Conv.LastAnswer()
	require.True(t, ok)
	assert.Equal(t, "54", last.Content)
}

func TestSessionAskFailureKeepsQuestionOnly(t *testing.T) {
	boom := errors.New("boom")
	s := &Session{Conv: New(), Answerer: &stubAnswerer{err: boom}}
	_, err := s.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
	turns := s.Conv.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
	_, ok := s.Conv.LastAnswer()
	assert.False(t, ok)
}

func TestSessionRejectsBlankQuestion(t *testing.T) {
	s := &Session{Conv: New(), Answerer: &stubAnswerer{}}
	_, err := s.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Zero(t, s.Conv.Len())
}

func TestTurnsReturnsCopy(t *testing.T) {
	c := New()
	c.Append(RoleUser, "a")
	turns := c.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "a", c.Turns()[0].Content)
}
