// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"strings"
	"time"
)

// SourceFilter carries optional per-source restrictions.
type SourceFilter struct {
	// DateFrom drops results published before this date, where the catalog supports it.
	DateFrom time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`

	// DateTo drops results published after this date, where the catalog supports it.
	DateTo time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`

	// Extra holds catalog-specific query parameters added to each request
	// sent to that catalog. Parameters the client sets itself are not replaced.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Query is the immutable input to one search-and-download run.
type Query struct {
	// Text is the free-text search string.
	Text string `json:"text" yaml:"text"`

	// MaxResults caps the number of successful downloads.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Filters holds optional per-source filters.
	Filters map[Source]SourceFilter `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Validate rejects empty queries and non-positive quotas.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("query is empty")
	}
	if q.MaxResults < 1 {
		return errors.New("max results must be at least 1")
	}
	return nil
}

// Filter returns the filter for s, or the zero filter.
func (q Query) Filter(s Source) SourceFilter {
	return q.Filters[s]
}

// DownloadState is the lifecycle position of a candidate.
// Transitions: discovered → downloading → succeeded | failed.
type DownloadState string

const (
	StateDiscovered  DownloadState = "discovered"
	StateDownloading DownloadState = "downloading"
	StateSucceeded   DownloadState = "succeeded"
	StateFailed      DownloadState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s DownloadState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ErrorKind classifies why a download failed.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindNoDownloadURL ErrorKind = "no_download_url"
	KindTransient     ErrorKind = "transient"
	KindPermanent     ErrorKind = "permanent"
	KindFilesystem    ErrorKind = "filesystem"
	KindCanceled      ErrorKind = "canceled"
)

// DownloadResult is the terminal outcome for one candidate.
type DownloadResult struct {
	Candidate Candidate `json:"candidate" yaml:"candidate"`

	// State is StateSucceeded or StateFailed.
	State DownloadState `json:"state" yaml:"state"`

	// Path is the written file, set only on success.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Bytes is the size of the written file.
	Bytes int64 `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// Attempts counts HTTP download attempts made.
	Attempts int `json:"attempts" yaml:"attempts"`

	// Kind classifies the failure.
	Kind ErrorKind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Error is the failure message for reports.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Err is the failure, usable with errors.Is.
	Err error `json:"-" yaml:"-"`
}

// Succeeded reports whether the file was written.
func (r DownloadResult) Succeeded() bool { return r.State == StateSucceeded }

// SourceError records a catalog that was skipped.
type SourceError struct {
	Source Source `json:"source" yaml:"source"`
	Error  string `json:"error" yaml:"error"`
}

// SearchSession is the record of one search-and-download run. The
// orchestrator owns it until it is returned to the caller.
type SearchSession struct {
	Query Query `json:"query" yaml:"query"`

	// Candidates lists every candidate attempted, in consultation order.
	Candidates []Candidate `json:"candidates" yaml:"candidates"`

	// Results lists outcomes in completion order.
	Results []DownloadResult `json:"results" yaml:"results"`

	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`

	// SkippedSources lists catalogs whose query failed.
	SkippedSources []SourceError `json:"skipped_sources,omitempty" yaml:"skipped_sources,omitempty"`

	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
}

// Paths returns the files written, in completion order.
func (s *SearchSession) Paths() []string {
	var paths []string
	for _, r := range s.Results {
		if r.Succeeded() {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// Duration returns the wall time of the run.
func (s *SearchSession) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}
