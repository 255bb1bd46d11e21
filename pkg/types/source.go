// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paper-fetch: the query,
// the candidates discovered by catalog clients, per-candidate download
// results, and the session that aggregates one search-and-download run.
package types

import (
	"fmt"
	"strings"
)

// Source identifies one of the external catalogs.
type Source string

const (
	SourcePMC             Source = "pmc"
	SourceArxiv           Source = "arxiv"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceGoogleScholar   Source = "google_scholar"
	SourceGoogleBooks     Source = "google_books"
	SourceWikibooks       Source = "wikibooks"
)

// AllSources lists every catalog in fixed priority order.
var AllSources = []Source{
	SourcePMC,
	SourceArxiv,
	SourceSemanticScholar,
	SourceGoogleScholar,
	SourceGoogleBooks,
	SourceWikibooks,
}

// Priority returns the position of s in AllSources, or -1 for an unknown source.
func (s Source) Priority() int {
	for i, known := range AllSources {
		if known == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known catalogs.
func (s Source) Valid() bool { return s.Priority() >= 0 }

// DisplayName returns the human-readable catalog name.
func (s Source) DisplayName() string {
	switch s {
	case SourcePMC:
		return "PubMed Central"
	case SourceArxiv:
		return "arXiv"
	case SourceSemanticScholar:
		return "Semantic Scholar"
	case SourceGoogleScholar:
		return "Google Scholar"
	case SourceGoogleBooks:
		return "Google Books"
	case SourceWikibooks:
		return "Wikibooks"
	default:
		return string(s)
	}
}

// ParseSources converts a list of names (e.g. from a comma-separated flag)
// into Sources, rejecting unknown names and duplicates. The result keeps the
// order given; the source registry sorts clients into priority order.
func ParseSources(names []string) ([]Source, error) {
	seen := make(map[Source]bool)
	var out []Source
	for _, n := range names {
		n = strings.TrimSpace(strings.ToLower(n))
		if n == "" {
			continue
		}
		s := Source(n)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		if seen[s] {
			return nil, fmt.Errorf("source %q listed twice", n)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}
