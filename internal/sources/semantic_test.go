// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

const semanticJSON = `{
  "total": 3,
  "data": [
    {
      "paperId": "p1",
      "title": "AlphaFold and beyond",
      "abstract": "Structure prediction.",
      "year": 2021,
      "venue": "Nature",
      "url": "https://www.semanticscholar.org/paper/p1",
      "authors": [{"authorId": "1", "name": "J Jumper"}],
      "externalIds": {"DOI": "10.1038/x"},
      "openAccessPdf": {"url": "https://example.org/p1.pdf", "status": "GREEN"}
    },
    {"paperId": "p2", "title": "", "authors": []},
    {"paperId": "p3", "title": "Closed access", "year": 2019, "openAccessPdf": null}
  ]
}`

func TestSemanticScholarSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "protein folding", q.Get("query"))
		assert.Equal(t, "4", q.Get("limit"))
		assert.Equal(t, semanticFields, q.Get("fields"))
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		w.Write([]byte(semanticJSON))
	}))
	defer ts.Close()
	swap(t, &semanticAPIBase, ts.URL)

	opts := testOptions(ts)
	opts.APIKey = "k"
	got, err := NewSemanticScholar(opts).Search(context.Background(), Params{Text: "protein folding", Limit: 4})
	require.NoError(t, err)
	require.Len(t, got, 2, "untitled paper is skipped")

	assert.Equal(t, "AlphaFold and beyond", got[0].Title)
	assert.Equal(t, "https://example.org/p1.pdf", got[0].DownloadURL)
	assert.Equal(t, "2021", got[0].Published)
	assert.Equal(t, []string{"J Jumper"}, got[0].Authors)
	assert.Equal(t, types.SourceSemanticScholar, got[0].Source)
	assert.Equal(t, "10.1038/x", got[0].Raw["doi"])

	assert.Equal(t, "Closed access", got[1].Title)
	assert.False(t, got[1].HasDownload())
}

func TestSemanticScholarSearch_YearFilter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2020-", r.URL.Query().Get("year"))
		assert.Empty(t, r.Header.Get("x-api-key"))
		w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()
	swap(t, &semanticAPIBase, ts.URL)

	got, err := NewSemanticScholar(testOptions(ts)).Search(context.Background(), Params{
		Text:   "x",
		Filter: types.SourceFilter{DateFrom: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSemanticScholarSearch_RateLimitedExhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()
	swap(t, &semanticAPIBase, ts.URL)

	_, err := NewSemanticScholar(testOptions(ts)).Search(context.Background(), Params{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Equal(t, int32(2), calls.Load())
}

func TestBuildYearRange(t *testing.T) {
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2020-2023", buildYearRange(from, to))
	assert.Equal(t, "-2023", buildYearRange(time.Time{}, to))
	assert.Equal(t, "", buildYearRange(time.Time{}, time.Time{}))
}
