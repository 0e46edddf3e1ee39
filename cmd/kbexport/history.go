package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/kbexport/internal/config"
	"github.com/nao1215/kbexport/internal/database"
	"github.com/nao1215/kbexport/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded crawl runs",
		Long: `History shows the crawl runs recorded with 'kbexport crawl --history'.

Without arguments it lists the most recent runs. With a run ID it prints
the stored summary of that run followed by every export attempt.

Examples:
  # List the last 20 runs
  kbexport history

  # List every run
  kbexport history -n 0

  # Show run 7 with a Markdown summary
  kbexport history -m 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 lists every run)")
	cmd.Flags().String("dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run summary as Markdown (mutually exclusive with --json)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var runID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid run ID %q: must be a positive integer", args[0])
		}
		runID = id
	}

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dir, opts)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if runID == 0 {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		return listRuns(ctx, out, db, limit)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(getVerboseFlag(cmd)))
	}
	return showRun(ctx, out, db, runID, w)
}

// listRuns prints one line per recorded run, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded.")
		fmt.Fprintln(out, "\nUse 'kbexport crawl --history <url>' to record a run.")
		return nil
	}

	fmt.Fprintf(out, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %8s  %8s  %6s  %s\n",
		"ID", "Started", "Status", "Visited", "Exported", "Failed", "Root")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-19s  %-10s  %8d  %8d  %6d  %s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			runStatus(run),
			run.Visited,
			run.Exported,
			run.Failed,
			run.RootURL,
		)
	}
	fmt.Fprintln(out, "\nUse 'kbexport history <id>' to see the exports of a run.")
	return nil
}

// showRun prints the stored summary of a run and its export attempts.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, runID int64, w report.Writer) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	summary, err := db.GetRunSummary(ctx, runID)
	if err != nil {
		return err
	}
	if summary != nil {
		if _, err := w.Write(summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	} else {
		fmt.Fprintf(out, "Run %d of %s did not finish.\n", run.ID, run.RootURL)
	}

	exports, err := db.GetRunExports(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nExports of run %d (%d):\n", run.ID, len(exports))
	for _, rec := range exports {
		mark := "ok  "
		target := rec.Path
		if !rec.Success {
			mark = "FAIL"
			target = rec.URL
		}
		fmt.Fprintf(out, "  [%s] %03d %s\n", mark, rec.Sequence, target)
	}
	return nil
}

// runStatus is the one-word state of a stored run.
func runStatus(run database.RunRecord) string {
	switch {
	case !run.Finished():
		return "running"
	case run.Cancelled:
		return "cancelled"
	case run.Failed > 0:
		return "failures"
	default:
		return "complete"
	}
}
