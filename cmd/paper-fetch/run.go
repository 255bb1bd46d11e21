// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetch/internal/fetch"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

const defaultMaxResults = 5

const (
	queryPrompt = "Enter your search query (or 'quit' to exit): "
	quotaPrompt = "How many resources would you like to download? (default: 5): "
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the catalogs and download matching files",
	Long: `Run searches every enabled catalog in priority order and downloads the
results until --max-results files are saved in --output-dir.

Without --query, run prompts for a query and a count, repeating until
'quit' is entered.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	runCmd.Flags().String("query", "", "search query (prompts interactively when empty)")
	runCmd.Flags().Int("max-results", defaultMaxResults, "number of files to download")
	runCmd.Flags().String("output-dir", "", "directory for downloaded files (default downloads)")
	runCmd.Flags().Bool("json", false, "print the session as JSON")
	runCmd.Flags().String("report", "", "write a YAML session report to this file")
	runCmd.Flags().StringSlice("sources", nil, "catalogs to query: pmc, arxiv, semantic_scholar, google_scholar, google_books, wikibooks")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	runCmd.Flags().Int("max-attempts", 0, "download attempts per file (default 3)")

	viper.BindPFlag("download.output_dir", runCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("sources.enabled", runCmd.Flags().Lookup("sources"))
	viper.BindPFlag("http.timeout", runCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("download.max_attempts", runCmd.Flags().Lookup("max-attempts"))

	rootCmd.AddCommand(runCmd)
}

// output carries the per-invocation rendering choices.
type output struct {
	w      io.Writer
	status io.Writer
	json   bool
	report string
}

func runFetch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	asJSON, _ := cmd.Flags().GetBool("json")
	reportPath, _ := cmd.Flags().GetString("report")

	// JSON mode keeps stdout for the document.
	progress := cmd.OutOrStdout()
	if asJSON {
		progress = cmd.ErrOrStderr()
	}

	o, err := fetch.New(cfg.Download.OutputDir,
		fetch.WithConfig(cfg),
		fetch.WithLogger(logger),
		fetch.WithProgress(progress),
	)
	if err != nil {
		return err
	}

	out := output{w: cmd.OutOrStdout(), status: cmd.ErrOrStderr(), json: asJSON, report: reportPath}
	if query != "" {
		return search(cmd.Context(), o, types.Query{Text: query, MaxResults: maxResults}, out)
	}
	return interactive(cmd.Context(), o, cmd.InOrStdin(), cmd.OutOrStdout(), out)
}

// interactive prompts for a query and a count until the user types quit or
// input ends.
func interactive(ctx context.Context, o *fetch.Orchestrator, in io.Reader, prompt io.Writer, out output) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(prompt, "\n"+queryPrompt)
		if !sc.Scan() {
			return sc.Err()
		}
		text := strings.TrimSpace(sc.Text())
		if strings.EqualFold(text, "quit") {
			return nil
		}
		if text == "" {
			continue
		}

		fmt.Fprint(prompt, quotaPrompt)
		n := defaultMaxResults
		if sc.Scan() {
			n = parseQuota(sc.Text())
		}

		if err := search(ctx, o, types.Query{Text: text, MaxResults: n}, out); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// parseQuota reads a download count, falling back to the default for
// blank, non-numeric or non-positive input.
func parseQuota(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return defaultMaxResults
	}
	return n
}

func search(ctx context.Context, o *fetch.Orchestrator, q types.Query, out output) error {
	if err := q.Validate(); err != nil {
		return err
	}

	session := o.SearchAndDownload(ctx, q)

	if out.json {
		if err := fetch.FormatJSON(session, out.w); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
	} else {
		fmt.Fprintln(out.w)
		fetch.FormatTable(session, out.w)
	}

	if out.report != "" {
		if err := fetch.WriteReport(out.report, fetch.NewReport(session, o.Sources())); err != nil {
			return err
		}
		fmt.Fprintf(out.status, "Report written to %s\n", out.report)
	}
	return nil
}
