package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/ai"
	"github.com/KaramelBytes/clinsight-cli/internal/notes"
	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repQuiet      bool
	repModel      string
	repOutputPath string
	repEncoding   string
)

var reportCmd = &cobra.Command{
	Use:   "report [file|-]",
	Short: "Write a structured patient report from free text",
	Long: `Report runs two streamed completions: a reasoning pass over the patient
description, then a structured report built from that pass. The description
is read from the given .txt, .md or .docx file, or from stdin when the argument
is "-" or absent.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPatientText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		n, err := buildNarrator(repModel)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var sink func(ai.Stage, string)
		if !repQuiet {
			sink = stageWriter(out)
		}
		report, err := n.GenerateReport(cmd.Context(), raw, sink)
		if err != nil {
			return err
		}
		if repQuiet {
			fmt.Fprintln(out, report)
		} else {
			fmt.Fprintln(out)
		}
		if repOutputPath != "" {
			if err := utils.SafeWriteFile(repOutputPath, []byte(report)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !repQuiet {
				fmt.Fprintf(out, "\n💾 Saved report to %s\n", repOutputPath)
			}
		}
		return nil
	},
}

func readPatientText(stdin io.Reader, args []string) (string, error) {
	encoding := repEncoding
	if encoding == "" && cfg != nil {
		encoding = cfg.Encoding
	}
	if len(args) == 0 || args[0] == "-" {
		return notes.Read(stdin, encoding)
	}
	return notes.ReadFile(args[0], encoding)
}

// stageWriter prints a header whenever the streamed stage changes.
func stageWriter(w io.Writer) func(ai.Stage, string) {
	started := false
	var current ai.Stage
	return func(stage ai.Stage, delta string) {
		if !started || stage != current {
			if started {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "\n=== %s ===\n", strings.ToUpper(stage.String()))
			started, current = true, stage
		}
		fmt.Fprint(w, delta)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVarP(&repQuiet, "quiet", "q", false, "do not stream; print only the final report")
	reportCmd.Flags().StringVarP(&repModel, "model", "m", "", "model to use (overrides config)")
	reportCmd.Flags().StringVar(&repEncoding, "encoding", "", "text encoding of the input: auto|utf-8|gbk|gb18030")
	reportCmd.Flags().StringVarP(&repOutputPath, "output", "o", "", "optional path to write the final report")
}
