package cmd

import (
	"fmt"

	"github.com/KaramelBytes/clinsight-cli/internal/analysis"
	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaLoad       loadFlags
	anaOutputPath string
	anaJSON       bool
	anaTopValues  int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Load a clinical table and print descriptive statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := anaLoad.process(args[0])
		if err != nil {
			return err
		}
		opt := anaLoad.analysisOptions(cfg)
		if anaTopValues > 0 {
			opt.TopValues = anaTopValues
		}
		rep, err := analysis.AnalyzeDataset(ds, opt)
		if err != nil {
			// The remaining sections are still valid; the failure is listed under NOTES.
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", err)
		}

		var out []byte
		if anaJSON {
			if out, err = utils.PrettyJSON(rep); err != nil {
				return fmt.Errorf("marshal analysis: %w", err)
			}
		} else {
			out = []byte(rep.Markdown())
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit JSON instead of Markdown")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top", 0, "most frequent values listed per text column (default 5)")
}
