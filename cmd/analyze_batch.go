package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/analysis"
	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abLoad   loadFlags
	abOutDir string
	abJSON   bool
	abJobs   int
	abQuiet  bool
)

type batchResult struct {
	out     string
	records int
	warn    error
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze several tables and write one summary per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		dopt, err := abLoad.datasetOptions(c)
		if err != nil {
			return err
		}
		aopt := abLoad.analysisOptions(c)

		ext := ".analysis.md"
		if abJSON {
			ext = ".analysis.json"
		}
		results := make([]batchResult, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		if abJobs > 0 {
			g.SetLimit(abJobs)
		}
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				ds, err := dataset.Process(path, dopt)
				if err != nil {
					return err
				}
				rep, warn := analysis.AnalyzeDataset(ds, aopt)
				var body []byte
				if abJSON {
					if body, err = utils.PrettyJSON(rep); err != nil {
						return fmt.Errorf("marshal %s: %w", ds.Name, err)
					}
				} else {
					body = []byte(rep.Markdown())
				}
				base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				out := filepath.Join(abOutDir, base+ext)
				if err := utils.SafeWriteFile(out, body); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				results[i] = batchResult{out: out, records: len(ds.Records), warn: warn}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for i, r := range results {
			if r.warn != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s: %v\n", filepath.Base(files[i]), r.warn)
			}
			if !abQuiet {
				fmt.Fprintf(w, "[%d/%d] %s: %d records → %s\n", i+1, len(files), filepath.Base(files[i]), r.records, r.out)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and returns a
// sorted, de-duplicated list.
func expandInputs(args []string) []string {
	seen := map[string]struct{}{}
	var files []string
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abLoad.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abOutDir, "out-dir", "d", ".", "directory for the per-file summaries")
	analyzeBatchCmd.Flags().BoolVar(&abJSON, "json", false, "write JSON instead of Markdown")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 4, "files analyzed concurrently (0 = unlimited)")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress per-file progress lines")
}
