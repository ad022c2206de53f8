package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/analysis"
	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	askLoad  loadFlags
	askData  string
	askModel string
)

var askCmd = &cobra.Command{
	Use:   "ask <file> <question...>",
	Short: "Ask the model a question about a dataset",
	Long: `Ask sends the question together with a JSON snapshot of the dataset.
By default the snapshot holds the non-numeric fields of every record, the
same view the model sees in chat.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := askLoad.process(args[0])
		if err != nil {
			return err
		}
		data, err := selectData(ds, askData, askLoad.analysisOptions(cfg))
		if err != nil {
			return err
		}
		n, err := buildNarrator(askModel)
		if err != nil {
			return err
		}
		answer, err := n.AnswerQuestion(cmd.Context(), strings.Join(args[1:], " "), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

// selectData picks the snapshot handed to the model.
func selectData(ds *dataset.Dataset, which string, opt analysis.Options) (any, error) {
	switch strings.ToLower(which) {
	case "", "text":
		return ds.ModelSummaryData(), nil
	case "numeric":
		return ds.Numeric, nil
	case "all":
		return ds.Records, nil
	case "analysis":
		rep, err := analysis.AnalyzeDataset(ds, opt)
		if rep == nil {
			return nil, err
		}
		return rep, nil
	default:
		return nil, fmt.Errorf("unsupported --data: %s (use text|numeric|all|analysis)", which)
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
	askLoad.register(askCmd)
	askCmd.Flags().StringVar(&askData, "data", "text", "snapshot sent with the question: text|numeric|all|analysis")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model to use (overrides config)")
}
