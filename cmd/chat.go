package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/ai"
	"github.com/KaramelBytes/clinsight-cli/internal/chat"
	cfgpkg "github.com/KaramelBytes/clinsight-cli/internal/config"
	"github.com/KaramelBytes/clinsight-cli/internal/feedback"
	"github.com/spf13/cobra"
)

var (
	chatLoad       loadFlags
	chatData       string
	chatModel      string
	chatConfidence float64
)

var chatCmd = &cobra.Command{
	Use:   "chat <file>",
	Short: "Ask questions about a dataset interactively",
	Long: `Chat loads the dataset once and answers one question per line.

Commands:
  /history                 show the conversation so far
  /rate <1-5> [comment]    rate the last answer
  /report [text]           write a report from text (default: the last answer)
  /exit                    leave`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if chatConfidence < 0 || chatConfidence > 1 {
			return fmt.Errorf("invalid --confidence: %g (use 0-1)", chatConfidence)
		}
		ds, err := chatLoad.process(args[0])
		if err != nil {
			return err
		}
		data, err := selectData(ds, chatData, chatLoad.analysisOptions(c))
		if err != nil {
			return err
		}
		n, err := buildNarrator(chatModel)
		if err != nil {
			return err
		}
		r := &chatREPL{
			session: &chat.Session{Conv: chat.New(), Answerer: n, Data: data},
			report:  n.GenerateReport,
			cfg:     c,
			out:     cmd.OutOrStdout(),
		}
		defer r.close()
		fmt.Fprintf(r.out, "Loaded %s: %d records, %d columns. Type /exit to leave.\n", ds.Name, len(ds.Records), len(ds.Columns))
		return r.run(cmd.Context(), cmd.InOrStdin())
	},
}

type chatREPL struct {
	session *chat.Session
	report  reportFunc
	cfg     *cfgpkg.Global
	out     io.Writer
	store   feedback.Store
}

type reportFunc = func(ctx context.Context, raw string, sink func(ai.Stage, string)) (string, error)

func (r *chatREPL) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			done, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintln(r.out, "✗", err)
			}
			if done {
				return nil
			}
			continue
		}
		answer, err := r.session.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(r.out, "✗", err)
			continue
		}
		fmt.Fprintln(r.out, answer)
		if chatConfidence < r.threshold() {
			fmt.Fprintln(r.out, "⚠ Warning: this answer may be unreliable; use it with care.")
		}
	}
}

func (r *chatREPL) command(ctx context.Context, line string) (bool, error) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/exit", "/quit":
		return true, nil
	case "/history":
		for _, t := range r.session.Conv.Turns() {
			fmt.Fprintf(r.out, "[%s] %s: %s\n", t.At.Format("15:04:05"), t.Role, t.Content)
		}
		return false, nil
	case "/rate":
		return false, r.rate(ctx, rest)
	case "/report":
		raw := rest
		if raw == "" {
			last, ok := r.session.Conv.LastAnswer()
			if !ok {
				return false, errors.New("nothing to report on yet")
			}
			raw = last.Content
		}
		_, err := r.report(ctx, raw, stageWriter(r.out))
		fmt.Fprintln(r.out)
		return false, err
	default:
		return false, fmt.Errorf("unknown command %s (try /history, /rate, /report, /exit)", name)
	}
}

func (r *chatREPL) rate(ctx context.Context, args string) error {
	last, ok := r.session.Conv.LastAnswer()
	if !ok {
		return errors.New("no answer to rate yet")
	}
	score, comment, _ := strings.Cut(args, " ")
	rating, err := strconv.Atoi(score)
	if err != nil {
		return fmt.Errorf("usage: /rate <1-5> [comment]")
	}
	if r.store == nil {
		st, err := feedback.OpenSQLite(ctx, r.cfg.FeedbackDB)
		if err != nil {
			return err
		}
		r.store = st
	}
	e, err := r.store.Add(ctx, feedback.Entry{
		ConversationID: r.session.Conv.ID,
		Response:       last.Content,
		Confidence:     chatConfidence,
		Rating:         rating,
		Comment:        strings.TrimSpace(comment),
	})
	if err != nil {
		return err
	}
	if e.LowConfidence(r.threshold()) {
		fmt.Fprintln(r.out, "⚠ Warning: the rated answer had low confidence.")
	}
	fmt.Fprintf(r.out, "✓ Thanks for the feedback (%s)\n", e.ID)
	return nil
}

func (r *chatREPL) threshold() float64 {
	if r.cfg != nil && r.cfg.ConfidenceThreshold > 0 {
		return r.cfg.ConfidenceThreshold
	}
	return feedback.DefaultConfidenceThreshold
}

func (r *chatREPL) close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatLoad.register(chatCmd)
	chatCmd.Flags().StringVar(&chatData, "data", "text", "snapshot sent with each question: text|numeric|all|analysis")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to use (overrides config)")
	chatCmd.Flags().Float64Var(&chatConfidence, "confidence", 1, "confidence recorded with ratings (0-1)")
}
