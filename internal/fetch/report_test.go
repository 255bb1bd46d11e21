// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

func sampleSession() *types.SearchSession {
	ok := types.NewCandidate("Protein folding in vivo", []string{"J Smith"}, "https://x/1", "2021", "abstract",
		types.PMCMetadata{PMCID: "111"})
	bad := types.Candidate{Title: "Closed", Source: types.SourceSemanticScholar}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &types.SearchSession{
		Query:      types.Query{Text: "protein folding", MaxResults: 2},
		Candidates: []types.Candidate{ok, bad},
		Results: []types.DownloadResult{
			{Candidate: ok, State: types.StateSucceeded, Path: "downloads/Protein_folding_in_vivo.pdf", Attempts: 1, Bytes: 42},
			{Candidate: bad, State: types.StateFailed, Kind: types.KindNoDownloadURL, Error: "download: candidate has no download URL"},
		},
		Succeeded:      1,
		Failed:         1,
		SkippedSources: []types.SourceError{{Source: types.SourceGoogleScholar, Error: "captcha"}},
		Started:        start,
		Finished:       start.Add(3 * time.Second),
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleSession(), &buf)
	out := buf.String()

	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "PubMed Central")
	assert.Contains(t, out, "downloads/Protein_folding_in_vivo.pdf")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "no download URL")
	assert.Contains(t, out, "1 downloaded, 1 failed (2 candidates, 1 sources skipped)")
	assert.Contains(t, out, "skipped Google Scholar: captcha")
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(&types.SearchSession{}, &buf)
	assert.Contains(t, buf.String(), "No papers downloaded.")
	assert.Contains(t, buf.String(), "0 downloaded, 0 failed")
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleSession(), &buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(1), decoded["succeeded"])
	results, ok := decoded["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 2)
}

func TestReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := sampleSession()
	require.NoError(t, WriteReport(path, NewReport(s, []types.Source{types.SourcePMC, types.SourceArxiv})))

	r, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "protein folding", r.Query.Text)
	assert.Equal(t, []string{"pmc", "arxiv"}, r.Query.Sources)
	assert.Equal(t, []string{"downloads/Protein_folding_in_vivo.pdf"}, r.Summary.Files)

	back := r.Session()
	assert.Equal(t, 1, back.Succeeded)
	assert.Equal(t, 1, back.Failed)
	assert.Equal(t, s.Started, back.Started.UTC())
	require.Len(t, back.Results, 2)
	assert.Equal(t, types.KindNoDownloadURL, back.Results[1].Kind)
	assert.Equal(t, "111", back.Candidates[0].Raw["pmcid"])
	assert.Nil(t, back.Candidates[0].Details)
	assert.Equal(t, s.Paths(), back.Paths())
}

func TestReadReport_Missing(t *testing.T) {
	_, err := ReadReport(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("é", 40), 10), "..."))
}
