package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/KaramelBytes/clinsight-cli/internal/value"
)

// Stage identifies which request of a report a streamed fragment belongs to.
type Stage int

const (
	StageAnalysis Stage = iota
	StageReport
)

func (s Stage) String() string {
	if s == StageReport {
		return "report"
	}
	return "analysis"
}

// NarratorOptions configures prompts and request parameters.
type NarratorOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Language    Language
	// MaxContextTokens bounds the data embedded in a prompt. Zero derives a
	// budget from the model's context window; negative disables the bound.
	MaxContextTokens int
}

// Narrator turns questions and patient text into completions.
type Narrator struct {
	rt  ChatRuntime
	opt NarratorOptions
}

// NewNarrator fills unset options with defaults.
func NewNarrator(rt ChatRuntime, opt NarratorOptions) *Narrator {
	if opt.Model == "" {
		opt.Model = DefaultModel
	}
	if opt.Language == "" {
		opt.Language = LangZH
	}
	if opt.MaxContextTokens == 0 {
		if mi, ok := LookupModel(opt.Model); ok {
			opt.MaxContextTokens = mi.ContextTokens / 2
		} else {
			opt.MaxContextTokens = -1
		}
	}
	return &Narrator{rt: rt, opt: opt}
}

func (n *Narrator) request(prompt string) GenerateRequest {
	return GenerateRequest{
		Model:       n.opt.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   n.opt.MaxTokens,
		Temperature: n.opt.Temperature,
	}
}

// AnswerQuestion sends the question with a canonical JSON rendering of data
// and returns the first choice's content.
func (n *Narrator) AnswerQuestion(ctx context.Context, question string, data any) (string, error) {
	snap, note, err := n.snapshot(data)
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	prompt := QuestionPrompt(n.opt.Language, question, snap, note)
	resp, err := n.rt.Generate(ctx, n.request(prompt))
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("answer question: %w", ErrNoChoices)
	}
	u := resp.Usage
	if cost, ok := EstimateCostUSD(n.opt.Model, u.PromptTokens, u.CompletionTokens); ok {
		slog.Debug("question answered", "model", n.opt.Model, "prompt_tokens", u.PromptTokens,
			"completion_tokens", u.CompletionTokens, "est_cost_usd", cost, "request_id", resp.RequestID)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateReport runs the two-stage report: a reasoning pass over rawText,
// then a structured report over that pass. Both stages stream; sink, if set,
// receives each fragment with its stage. On failure no text is returned.
func (n *Narrator) GenerateReport(ctx context.Context, rawText string, sink func(Stage, string)) (string, error) {
	if n.opt.MaxContextTokens > 0 && utils.CountTokens(rawText) > n.opt.MaxContextTokens {
		slog.Warn("patient text truncated to fit the context window", "max_tokens", n.opt.MaxContextTokens)
		rawText = utils.TruncateToTokenLimit(rawText, n.opt.MaxContextTokens)
	}
	forward := func(stage Stage) func(string) {
		if sink == nil {
			return nil
		}
		return func(s string) { sink(stage, s) }
	}

	analysis, err := n.rt.GenerateStream(ctx, n.request(AnalysisPrompt(n.opt.Language, rawText)), forward(StageAnalysis))
	if err != nil {
		return "", fmt.Errorf("generate report: analysis stage: %w", err)
	}
	slog.Debug("analysis stage complete", "chars", len([]rune(analysis)))

	report, err := n.rt.GenerateStream(ctx, n.request(ReportPrompt(n.opt.Language, analysis)), forward(StageReport))
	if err != nil {
		return "", fmt.Errorf("generate report: report stage: %w", err)
	}
	return report, nil
}

// snapshot renders data as canonical JSON. Record lists that exceed the
// context budget keep their leading records and come with a note.
func (n *Narrator) snapshot(data any) (string, string, error) {
	b, err := value.MarshalCanonical(data)
	if err != nil {
		return "", "", fmt.Errorf("serialize data: %w", err)
	}
	budget := n.opt.MaxContextTokens
	if budget <= 0 || utils.CountTokens(string(b)) <= budget {
		return string(b), "", nil
	}
	records, ok := data.([]value.Object)
	if !ok {
		return string(b), "", nil
	}
	var fitErr error
	fits := func(k int) bool {
		kb, err := value.MarshalCanonical(records[:k])
		if err != nil {
			fitErr = err
			return false
		}
		return utils.CountTokens(string(kb)) <= budget
	}
	// largest k that fits; fits is monotone in k
	k := sort.Search(len(records)+1, func(k int) bool { return !fits(k) }) - 1
	if fitErr != nil {
		return "", "", fmt.Errorf("serialize data: %w", fitErr)
	}
	if k < 0 {
		k = 0
	}
	kb, err := value.MarshalCanonical(records[:k])
	if err != nil {
		return "", "", fmt.Errorf("serialize data: %w", err)
	}
	slog.Warn("data snapshot truncated to fit the context window", "kept", k, "total", len(records))
	return string(kb), TruncationNote(n.opt.Language, k, len(records)), nil
}
