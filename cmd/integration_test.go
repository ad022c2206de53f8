package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/clinsight-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/clinsight-cli/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientsCSV = "病案号,年龄,性别,病理诊断（病案首页）,入院date\n" +
	"1001,61,男,\"肺腺癌, 骨转移\",2021-01-01\n" +
	"1002,54,女,肺腺癌,2021-03-02\n" +
	"1003,47,男,鳞癌,2021-02-10\n"

// stubRuntime answers every request with canned text and records prompts.
type stubRuntime struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	stages  []string
}

func (s *stubRuntime) record(req ai.GenerateRequest) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Messages[0].Content)
	return len(s.prompts) - 1
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.record(req)
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s.answer}}}}, nil
}

func (s *stubRuntime) GenerateStream(_ context.Context, req ai.GenerateRequest, onDelta func(string)) (string, error) {
	i := s.record(req)
	text := s.stages[i%len(s.stages)]
	if onDelta != nil {
		onDelta(text)
	}
	return text, nil
}

// setup isolates HOME, installs the stub runtime and returns a dataset path.
func setup(t *testing.T) (*stubRuntime, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CLINSIGHT_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	stub := &stubRuntime{answer: "共 3 名患者。", stages: []string{"STEP-ANALYSIS", "STEP-REPORT"}}
	prev := newRuntime
	newRuntime = func(*cfgpkg.Global) ai.ChatRuntime { return stub }
	t.Cleanup(func() { newRuntime = prev })

	p := filepath.Join(home, "patients.csv")
	require.NoError(t, os.WriteFile(p, []byte(patientsCSV), 0o644))
	return stub, p
}

// resetFlags clears values and Changed state left over from earlier runs.
func resetFlags() {
	cfg = nil
	cfgFile = ""
	anaLoad.reset()
	askLoad.reset()
	chatLoad.reset()
	abLoad.reset()
	anaOutputPath, anaJSON, anaTopValues = "", false, 0
	askData, askModel = "text", ""
	repQuiet, repModel, repOutputPath, repEncoding = false, "", "", ""
	chatData, chatModel, chatConfidence = "text", "", 1
	abOutDir, abJSON, abJobs, abQuiet = ".", false, 4, false
	fbLimit, fbJSON = 20, false
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// runCmd executes the root command with args and stdin, returning stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_AnalyzeMarkdown(t *testing.T) {
	_, p := setup(t)

	out, err := runCmd(t, "", "analyze", p)
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "年龄")
	assert.NotContains(t, out, "病案号")
}

func TestCLI_AnalyzeJSONToFile(t *testing.T) {
	_, p := setup(t)
	dest := filepath.Join(t.TempDir(), "nested", "report.json")

	out, err := runCmd(t, "", "analyze", p, "--json", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote analysis")

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	var rep struct {
		Overview struct {
			TotalRecords int `json:"total_records"`
		} `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, 3, rep.Overview.TotalRecords)
}

func TestCLI_AnalyzeBadDelimiter(t *testing.T) {
	_, p := setup(t)
	_, err := runCmd(t, "", "analyze", p, "--delimiter", "#")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --delimiter")
}

func TestCLI_AskSendsTextSnapshot(t *testing.T) {
	stub, p := setup(t)

	out, err := runCmd(t, "", "ask", p, "有多少", "患者？")
	require.NoError(t, err)
	assert.Equal(t, "共 3 名患者。\n", out)
	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "有多少 患者？")
	assert.Contains(t, stub.prompts[0], "肺腺癌")
	// numeric fields stay out of the default snapshot
	assert.NotContains(t, stub.prompts[0], "年龄")
}

func TestCLI_AskUnknownDataView(t *testing.T) {
	_, p := setup(t)
	_, err := runCmd(t, "", "ask", p, "q", "--data", "everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --data")
}

func TestCLI_ReportStreamsStages(t *testing.T) {
	stub, _ := setup(t)

	out, err := runCmd(t, "患者男，61岁，肺腺癌。\n", "report", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "=== ANALYSIS ===\nSTEP-ANALYSIS")
	assert.Contains(t, out, "=== REPORT ===\nSTEP-REPORT")
	require.Len(t, stub.prompts, 2)
	assert.Contains(t, stub.prompts[0], "患者男，61岁，肺腺癌。")
	assert.Contains(t, stub.prompts[1], "STEP-ANALYSIS")
}

func TestCLI_ReportQuietWritesFile(t *testing.T) {
	setup(t)
	note := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(note, []byte("患者女，45岁。"), 0o644))
	dest := filepath.Join(t.TempDir(), "report.md")

	out, err := runCmd(t, "", "report", note, "--quiet", "-o", dest)
	require.NoError(t, err)
	assert.Equal(t, "STEP-REPORT\n", out)
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "STEP-REPORT", string(b))
}

func TestCLI_ReportEmptyInput(t *testing.T) {
	setup(t)
	_, err := runCmd(t, "  \n", "report")
	require.Error(t, err)
}

func TestCLI_ChatRateAndFeedbackList(t *testing.T) {
	stub, p := setup(t)

	in := "有多少患者？\n/history\n/rate 4 很清楚\n/rate 9\n/bogus\n/exit\n"
	out, err := runCmd(t, in, "chat", p, "--confidence", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded patients.csv: 3 records")
	assert.Contains(t, out, "共 3 名患者。")
	assert.Contains(t, out, "may be unreliable")
	assert.Contains(t, out, "user: 有多少患者？")
	assert.Contains(t, out, "assistant: 共 3 名患者。")
	assert.Contains(t, out, "Thanks for the feedback")
	assert.Contains(t, out, "rating must be between 1 and 5")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Len(t, stub.prompts, 1)

	out, err = runCmd(t, "", "feedback", "list", "--json")
	require.NoError(t, err)
	var entries []struct {
		Response   string  `json:"response"`
		Rating     int     `json:"rating"`
		Confidence float64 `json:"confidence"`
		Comment    string  `json:"comment"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "共 3 名患者。", entries[0].Response)
	assert.Equal(t, 4, entries[0].Rating)
	assert.Equal(t, 0.5, entries[0].Confidence)
	assert.Equal(t, "很清楚", entries[0].Comment)
}

func TestCLI_ChatReportOnLastAnswer(t *testing.T) {
	stub, p := setup(t)

	out, err := runCmd(t, "/report\n第一个问题\n/report\n", "chat", p)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to report on yet")
	assert.Contains(t, out, "=== REPORT ===")
	require.Len(t, stub.prompts, 3)
	assert.Contains(t, stub.prompts[1], "共 3 名患者。")
}

func TestCLI_FeedbackListEmpty(t *testing.T) {
	setup(t)
	out, err := runCmd(t, "", "feedback", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No feedback recorded")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	setup(t)

	_, err := runCmd(t, "", "config", "set", "api_key", "sk-1234567890")
	require.NoError(t, err)
	_, err = runCmd(t, "", "config", "set", "prompt_language", "en")
	require.NoError(t, err)
	_, err = runCmd(t, "", "config", "set", "prompt_language", "fr")
	require.Error(t, err)

	out, err := runCmd(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key: sk-****890")
	assert.Contains(t, out, "prompt_language: en")
	assert.NotContains(t, out, "sk-1234567890")
}

func TestCLI_AnalyzeBatch(t *testing.T) {
	_, p := setup(t)
	dir := filepath.Dir(p)
	second := filepath.Join(dir, "cohort2.csv")
	require.NoError(t, os.WriteFile(second, []byte("年龄,性别\n33,女\n"), 0o644))
	outDir := filepath.Join(t.TempDir(), "summaries")

	out, err := runCmd(t, "", "analyze-batch", filepath.Join(dir, "*.csv"), "-d", outDir, "-j", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[1/2] cohort2.csv: 1 records")
	assert.Contains(t, out, "[2/2] patients.csv: 3 records")
	for _, name := range []string{"cohort2.analysis.md", "patients.analysis.md"} {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(b), "[DATASET SUMMARY]")
	}
}

func TestCLI_AnalyzeBatchNoMatch(t *testing.T) {
	setup(t)
	_, err := runCmd(t, "", "analyze-batch", filepath.Join(t.TempDir(), "*.csv"))
	require.Error(t, err)
}

func TestCLI_ModelsMarksConfigured(t *testing.T) {
	setup(t)
	_, err := runCmd(t, "", "config", "set", "model", "deepseek-reasoner")
	require.NoError(t, err)

	out, err := runCmd(t, "", "models")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^\*\s+deepseek-reasoner\s+64000`, out)
	assert.Regexp(t, `(?m)^\s+deepseek-chat\s+64000`, out)
}
