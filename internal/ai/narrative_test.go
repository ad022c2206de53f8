package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KaramelBytes/clinsight-cli/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime replays canned completions and records every request.
type fakeRuntime struct {
	reqs     []GenerateRequest
	answer   *GenerateResponse
	genErr   error
	streams  []string
	streamAt int
	failAt   int // stream call index that fails, -1 for none
}

func (f *fakeRuntime) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.answer, f.genErr
}

func (f *fakeRuntime) GenerateStream(_ context.Context, req GenerateRequest, onDelta func(string)) (string, error) {
	f.reqs = append(f.reqs, req)
	i := f.streamAt
	f.streamAt++
	if i == f.failAt {
		return "", errors.New("stream broke")
	}
	text := f.streams[i]
	for _, part := range strings.SplitAfter(text, " ") {
		if onDelta != nil && part != "" {
			onDelta(part)
		}
	}
	return text, nil
}

func TestAnswerQuestionEmbedsCanonicalJSON(t *testing.T) {
	rt := &fakeRuntime{answer: &GenerateResponse{Choices: []Choice{{Message: Message{Content: "平均 54 岁"}}}}, failAt: -1}
	n := NewNarrator(rt, NarratorOptions{})
	data := []value.Object{{"性别": value.String("男"), "note": value.String("<b>")}}

	got, err := n.AnswerQuestion(context.Background(), "平均年龄？", data)
	require.NoError(t, err)
	assert.Equal(t, "平均 54 岁", got)
	require.Len(t, rt.reqs, 1)
	req := rt.reqs[0]
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, "问题：平均年龄？\n数据：[{\"note\":\"<b>\",\"性别\":\"男\"}]\n请分析并回答：", req.Messages[0].Content)
}

func TestAnswerQuestionNoChoices(t *testing.T) {
	rt := &fakeRuntime{answer: &GenerateResponse{}, failAt: -1}
	_, err := NewNarrator(rt, NarratorOptions{}).AnswerQuestion(context.Background(), "q", map[string]int{"a": 1})
	require.ErrorIs(t, err, ErrNoChoices)
	assert.True(t, strings.HasPrefix(err.Error(), "answer question:"))
}

func TestAnswerQuestionWrapsBoundaryError(t *testing.T) {
	apiErr := &AuthError{APIError: &APIError{StatusCode: 401}}
	rt := &fakeRuntime{genErr: apiErr, failAt: -1}
	_, err := NewNarrator(rt, NarratorOptions{}).AnswerQuestion(context.Background(), "q", nil)
	var ae *AuthError
	assert.ErrorAs(t, err, &ae)
}

func TestAnswerQuestionTruncatesLargeSnapshot(t *testing.T) {
	rt := &fakeRuntime{answer: &GenerateResponse{Choices: []Choice{{Message: Message{Content: "ok"}}}}, failAt: -1}
	n := NewNarrator(rt, NarratorOptions{Language: LangEN, MaxContextTokens: 20})
	var data []value.Object
	for i := 0; i < 10; i++ {
		data = append(data, value.Object{"dx": value.String(fmt.Sprintf("diagnosis number %d", i))})
	}
	_, err := n.AnswerQuestion(context.Background(), "q", data)
	require.NoError(t, err)
	prompt := rt.reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "of 10 records are included")
	assert.Contains(t, prompt, "diagnosis number 0")
	assert.NotContains(t, prompt, "diagnosis number 9")
	assert.Len(t, data, 10)
}

func TestGenerateReportTwoStages(t *testing.T) {
	rt := &fakeRuntime{streams: []string{"step one analysis", "final report text"}, failAt: -1}
	n := NewNarrator(rt, NarratorOptions{Model: "deepseek-reasoner"})

	var got []string
	report, err := n.GenerateReport(context.Background(), "男，61岁", func(s Stage, frag string) {
		got = append(got, s.String()+":"+frag)
	})
	require.NoError(t, err)
	assert.Equal(t, "final report text", report)
	require.Len(t, rt.reqs, 2)
	assert.Equal(t, AnalysisPrompt(LangZH, "男，61岁"), rt.reqs[0].Messages[0].Content)
	assert.Equal(t, ReportPrompt(LangZH, "step one analysis"), rt.reqs[1].Messages[0].Content)
	assert.Equal(t, "deepseek-reasoner", rt.reqs[1].Model)
	assert.Equal(t, []string{
		"analysis:step ", "analysis:one ", "analysis:analysis",
		"report:final ", "report:report ", "report:text",
	}, got)
}

func TestGenerateReportFailureReturnsNoText(t *testing.T) {
	for _, failAt := range []int{0, 1} {
		rt := &fakeRuntime{streams: []string{"a", "b"}, failAt: failAt}
		report, err := NewNarrator(rt, NarratorOptions{}).GenerateReport(context.Background(), "x", nil)
		require.Error(t, err)
		assert.Empty(t, report)
		assert.Contains(t, err.Error(), "generate report: "+Stage(failAt).String()+" stage")
	}
}

func TestGenerateReportOverHTTP(t *testing.T) {
	var calls atomic.Int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"stage%d\"}}]}\n\n", n)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 1, 0, 0, srv.URL)
	report, err := NewNarrator(c, NarratorOptions{}).GenerateReport(context.Background(), "patient", nil)
	require.NoError(t, err)
	assert.Equal(t, "stage2", report)
	assert.Equal(t, int32(2), calls.Load())
}
