package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/clinsight-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Clinsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(w, "api_url: %s\n", c.APIURL)
		fmt.Fprintf(w, "model: %s\n", c.Model)
		fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
		fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
		fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
		fmt.Fprintf(w, "prompt_language: %s\n", c.PromptLanguage)
		if c.MaxContextTokens != 0 {
			fmt.Fprintf(w, "max_context_tokens: %d\n", c.MaxContextTokens)
		}
		fmt.Fprintf(w, "encoding: %s\n", c.Encoding)
		fmt.Fprintf(w, "drop_columns: %s\n", strings.Join(c.DropColumns, ","))
		if len(c.MissingValues) > 0 {
			fmt.Fprintf(w, "missing_values: %s\n", strings.Join(c.MissingValues, ","))
		}
		fmt.Fprintf(w, "diagnosis_column: %s\n", c.DiagnosisColumn)
		fmt.Fprintf(w, "feedback_db: %s\n", c.FeedbackDB)
		fmt.Fprintf(w, "confidence_threshold: %.2f\n", c.ConfidenceThreshold)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := cfgpkg.Set(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
