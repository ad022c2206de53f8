package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/analysis"
	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	APIURL      string  `mapstructure:"api_url" yaml:"api_url"`
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Prompts
	PromptLanguage   string `mapstructure:"prompt_language" yaml:"prompt_language"`
	MaxContextTokens int    `mapstructure:"max_context_tokens" yaml:"max_context_tokens"`

	// Dataset loading and analysis
	Encoding        string   `mapstructure:"encoding" yaml:"encoding"`
	DropColumns     []string `mapstructure:"drop_columns" yaml:"drop_columns"`
	MissingValues   []string `mapstructure:"missing_values" yaml:"missing_values,omitempty"`
	DiagnosisColumn string   `mapstructure:"diagnosis_column" yaml:"diagnosis_column"`

	// Feedback
	FeedbackDB          string  `mapstructure:"feedback_db" yaml:"feedback_db"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
}

// Dir returns ~/.clinsight.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".clinsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.clinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Every key can be set as
// CLINSIGHT_<KEY>; the API key also falls back to DEEPSEEK_API_KEY.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CLINSIGHT")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("api_url", "https://api.deepseek.com")
	v.SetDefault("model", "deepseek-chat")
	v.SetDefault("max_tokens", 0)
	v.SetDefault("temperature", 0.0)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("prompt_language", "zh")
	v.SetDefault("max_context_tokens", 0)
	v.SetDefault("encoding", "auto")
	v.SetDefault("drop_columns", dataset.DefaultDropColumns)
	v.SetDefault("missing_values", []string{})
	v.SetDefault("diagnosis_column", analysis.DefaultDiagnosisColumn)
	v.SetDefault("feedback_db", "")
	v.SetDefault("confidence_threshold", 0.7)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a present but broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if c.FeedbackDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.FeedbackDB = filepath.Join(dir, "feedback.db")
	}
	return &c, nil
}

// Set parses val for key and stores it on c.
func Set(c *Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "api_url":
		c.APIURL = val
	case "model":
		c.Model = val
	case "max_tokens", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms", "max_context_tokens":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*intField(c, key) = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (use 0-2)", val)
		}
		c.Temperature = f
	case "confidence_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid float for confidence_threshold: %v (use 0-1)", val)
		}
		c.ConfidenceThreshold = f
	case "prompt_language":
		switch strings.ToLower(val) {
		case "zh", "en":
			c.PromptLanguage = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid prompt_language: %s (use zh or en)", val)
		}
	case "encoding":
		switch strings.ToLower(val) {
		case "auto", "utf-8", "utf8", "gbk", "gb18030":
			c.Encoding = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid encoding: %s (use auto|utf-8|gbk|gb18030)", val)
		}
	case "drop_columns":
		c.DropColumns = splitList(val)
	case "missing_values":
		c.MissingValues = splitList(val)
	case "diagnosis_column":
		c.DiagnosisColumn = val
	case "feedback_db":
		c.FeedbackDB = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func intField(c *Global, key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	default:
		return &c.MaxContextTokens
	}
}

// splitList splits a comma-separated value, accepting the full-width comma
// too; blank items are dropped.
func splitList(val string) []string {
	fields := strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == '，' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
