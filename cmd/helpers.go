package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/clinsight-cli/internal/ai"
	"github.com/KaramelBytes/clinsight-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/clinsight-cli/internal/config"
	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/spf13/cobra"
)

// loadFlags are the dataset loading flags shared by analyze, ask and chat.
type loadFlags struct {
	Delimiter       string
	Encoding        string
	SheetName       string
	SheetIndex      int
	DiagnosisColumn string
	Drop            []string
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&lf.Delimiter, "delimiter", "", "field delimiter: ',', ';', '|' or 'tab' (default: by extension)")
	f.StringVar(&lf.Encoding, "encoding", "", "text encoding: auto|utf-8|gbk|gb18030 (overrides config)")
	f.StringVar(&lf.SheetName, "sheet-name", "", "XLSX: sheet name to read")
	f.IntVar(&lf.SheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (default 1)")
	f.StringVar(&lf.DiagnosisColumn, "diagnosis-column", "", "column holding comma-separated diagnoses (overrides config)")
	f.StringSliceVar(&lf.Drop, "drop", nil, "identifier columns to drop (replaces the configured list)")
}

func (lf *loadFlags) reset() { *lf = loadFlags{} }

// datasetOptions merges config with flag overrides.
func (lf *loadFlags) datasetOptions(c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	if c != nil {
		if c.Encoding != "" {
			opt.Encoding = c.Encoding
		}
		if c.DropColumns != nil {
			opt.DropColumns = c.DropColumns
		}
		if len(c.MissingValues) > 0 {
			opt.MissingValues = c.MissingValues
		}
	}
	if lf.Encoding != "" {
		opt.Encoding = strings.ToLower(lf.Encoding)
	}
	if lf.Drop != nil {
		opt.DropColumns = lf.Drop
	}
	opt.SheetName = lf.SheetName
	if lf.SheetIndex > 0 {
		opt.SheetIndex = lf.SheetIndex
	}
	switch lf.Delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", lf.Delimiter)
	}
	return opt, nil
}

func (lf *loadFlags) analysisOptions(c *cfgpkg.Global) analysis.Options {
	opt := analysis.DefaultOptions()
	if c != nil && c.DiagnosisColumn != "" {
		opt.DiagnosisColumn = c.DiagnosisColumn
	}
	if lf.DiagnosisColumn != "" {
		opt.DiagnosisColumn = lf.DiagnosisColumn
	}
	return opt
}

func (lf *loadFlags) process(path string) (*dataset.Dataset, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	opt, err := lf.datasetOptions(c)
	if err != nil {
		return nil, err
	}
	return dataset.Process(path, opt)
}

// newRuntime builds the completion client; tests swap it for a stub.
var newRuntime = func(c *cfgpkg.Global) ai.ChatRuntime {
	httpTimeout := 120 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if c.HTTPTimeoutSec > 0 {
		httpTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
	}
	if c.RetryMaxAttempts > 0 {
		retryMax = c.RetryMaxAttempts
	}
	if c.RetryBaseDelayMs > 0 {
		baseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
	}
	if c.RetryMaxDelayMs > 0 {
		maxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
	}
	return ai.NewClientWithBaseURL(c.APIKey, httpTimeout, retryMax, baseDelay, maxDelay, c.APIURL)
}

// buildNarrator wires config and an optional --model override into a Narrator.
func buildNarrator(model string) (*ai.Narrator, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	lang, err := ai.ParseLanguage(c.PromptLanguage)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = c.Model
	}
	return ai.NewNarrator(newRuntime(c), ai.NarratorOptions{
		Model:            model,
		MaxTokens:        c.MaxTokens,
		Temperature:      c.Temperature,
		Language:         lang,
		MaxContextTokens: c.MaxContextTokens,
	}), nil
}
