// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// FormatTable writes a human-readable summary of the session to w.
func FormatTable(s *types.SearchSession, w io.Writer) {
	if len(s.Results) == 0 {
		fmt.Fprintln(w, "No papers downloaded.")
	} else {
		fmt.Fprintf(w, "%-6s  %-18s  %-50s  %s\n", "Status", "Source", "Title", "File / Error")
		fmt.Fprintln(w, strings.Repeat("-", 110))
		for _, r := range s.Results {
			status, detail := "ok", r.Path
			if !r.Succeeded() {
				status, detail = "failed", r.Error
			}
			fmt.Fprintf(w, "%-6s  %-18s  %-50s  %s\n",
				status, r.Candidate.Source.DisplayName(), truncate(r.Candidate.Title, 50), detail)
		}
	}

	fmt.Fprintf(w, "\n%d downloaded, %d failed (%d candidates, %d sources skipped)\n",
		s.Succeeded, s.Failed, len(s.Candidates), len(s.SkippedSources))
	for _, se := range s.SkippedSources {
		fmt.Fprintf(w, "  skipped %s: %s\n", se.Source.DisplayName(), se.Error)
	}
}

// FormatJSON writes the session as indented JSON to w.
func FormatJSON(s *types.SearchSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}

// Report is the on-disk record of a session.
type Report struct {
	Query      ReportQuery            `yaml:"query"`
	Candidates []types.Candidate      `yaml:"candidates"`
	Results    []types.DownloadResult `yaml:"results"`
	Summary    ReportSummary          `yaml:"summary"`
}

// ReportQuery stores the query in a serializable form.
type ReportQuery struct {
	Text       string   `yaml:"text"`
	MaxResults int      `yaml:"max_results"`
	Sources    []string `yaml:"sources,omitempty"`
}

// ReportSummary stores counts and timestamps.
type ReportSummary struct {
	Succeeded      int                 `yaml:"succeeded"`
	Failed         int                 `yaml:"failed"`
	Candidates     int                 `yaml:"candidates"`
	SkippedSources []types.SourceError `yaml:"skipped_sources,omitempty"`
	Started        time.Time           `yaml:"started"`
	Finished       time.Time           `yaml:"finished"`
	Files          []string            `yaml:"files,omitempty"`
}

// NewReport builds a Report from a session. sources lists the catalogs
// that were enabled for the run.
func NewReport(s *types.SearchSession, sources []types.Source) Report {
	r := Report{
		Query: ReportQuery{
			Text:       s.Query.Text,
			MaxResults: s.Query.MaxResults,
		},
		Candidates: s.Candidates,
		Results:    s.Results,
		Summary: ReportSummary{
			Succeeded:      s.Succeeded,
			Failed:         s.Failed,
			Candidates:     len(s.Candidates),
			SkippedSources: s.SkippedSources,
			Started:        s.Started,
			Finished:       s.Finished,
			Files:          s.Paths(),
		},
	}
	for _, src := range sources {
		r.Query.Sources = append(r.Query.Sources, string(src))
	}
	return r
}

// WriteReport saves the report to a YAML file.
func WriteReport(path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}

// Session rebuilds a SearchSession from the report. Typed candidate
// metadata is not stored, so Details is nil on every candidate.
func (r *Report) Session() *types.SearchSession {
	return &types.SearchSession{
		Query:          types.Query{Text: r.Query.Text, MaxResults: r.Query.MaxResults},
		Candidates:     r.Candidates,
		Results:        r.Results,
		Succeeded:      r.Summary.Succeeded,
		Failed:         r.Summary.Failed,
		SkippedSources: r.Summary.SkippedSources,
		Started:        r.Summary.Started,
		Finished:       r.Summary.Finished,
	}
}
