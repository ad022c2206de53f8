package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/clinsight-cli/internal/feedback"
	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	fbLimit int
	fbJSON  bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Inspect stored answer ratings",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ratings, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		st, err := feedback.OpenSQLite(cmd.Context(), c.FeedbackDB)
		if err != nil {
			return err
		}
		defer st.Close()
		entries, err := st.List(cmd.Context(), fbLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if fbJSON {
			b, err := utils.PrettyJSON(entries)
			if err != nil {
				return fmt.Errorf("marshal feedback: %w", err)
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No feedback recorded")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tRATING\tCONFIDENCE\tCOMMENT\tRESPONSE")
		for _, e := range entries {
			flag := ""
			if e.LowConfidence(c.ConfidenceThreshold) {
				flag = " ⚠"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f%s\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Rating, e.Confidence, flag, e.Comment, preview(e.Response, 40))
		}
		return tw.Flush()
	},
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackListCmd.Flags().IntVarP(&fbLimit, "limit", "n", 20, "maximum entries to show (0 = all)")
	feedbackListCmd.Flags().BoolVar(&fbJSON, "json", false, "emit JSON")
}
