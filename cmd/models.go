package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/clinsight-cli/internal/ai"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models with context size and indicative pricing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current := ai.DefaultModel
		if c, err := requireConfig(); err == nil && c.Model != "" {
			current = c.Model
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\tMODEL\tCONTEXT\tUSD/1K IN\tUSD/1K OUT")
		for _, mi := range ai.Models() {
			mark := ""
			if mi.Name == current {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.5f\t%.5f\n", mark, mi.Name, mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
