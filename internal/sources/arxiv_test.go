// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <published>2023-01-17T18:00:00Z</published>
    <title>Learning Protein
      Folding</title>
    <summary>  We learn folding.  </summary>
    <author><name>Alice Zhang</name></author>
    <author><name>Bob Liu</name></author>
    <link href="http://arxiv.org/abs/2301.07041v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v2" rel="related" type="application/pdf"/>
    <category term="q-bio.BM"/>
    <category term="cs.LG"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v1</id>
    <published>2023-02-01T00:00:00Z</published>
    <title>Abs link only</title>
    <summary>s</summary>
    <link title="pdf" href="http://arxiv.org/abs/2302.00001v1"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2303.00001v1</id>
    <title>No PDF</title>
    <link href="http://arxiv.org/abs/2303.00001v1" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "search_query=all:protein+folding")
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		w.Write([]byte(arxivFeedXML))
	}))
	defer ts.Close()
	swap(t, &arxivAPIBase, ts.URL)

	got, err := NewArxiv(testOptions(ts)).Search(context.Background(), Params{Text: "protein folding", Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 2, "entry without a PDF link is dropped")

	first := got[0]
	assert.Equal(t, "Learning Protein Folding", first.Title)
	assert.Equal(t, []string{"Alice Zhang", "Bob Liu"}, first.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v2", first.DownloadURL)
	assert.Equal(t, "2023-01-17", first.Published)
	assert.Equal(t, "We learn folding.", first.Summary)
	assert.Equal(t, types.SourceArxiv, first.Source)
	assert.Equal(t, "2301.07041", first.Raw["arxiv_id"])
	assert.Equal(t, "q-bio.BM,cs.LG", first.Raw["categories"])

	assert.Equal(t, "http://arxiv.org/pdf/2302.00001v1.pdf", got[1].DownloadURL)
}

func TestArxivSearch_EmptyQuery(t *testing.T) {
	_, err := NewArxiv(Options{}).Search(context.Background(), Params{Text: "   "})
	assert.Error(t, err)
}

func TestArxivSearch_BadXML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<feed><entry>"))
	}))
	defer ts.Close()
	swap(t, &arxivAPIBase, ts.URL)

	_, err := NewArxiv(testOptions(ts)).Search(context.Background(), Params{Text: "x"})
	assert.Error(t, err)
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v3", "hep-th/9901001"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://example.com/x", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractArxivID(tt.in), tt.in)
	}
}

func TestArxivSearch_ExtraParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "submittedDate", q.Get("sortBy"))
		assert.Equal(t, "5", q.Get("max_results"))
		assert.Len(t, q["max_results"], 1)
		w.Write([]byte(arxivFeedXML))
	}))
	defer ts.Close()
	swap(t, &arxivAPIBase, ts.URL)

	filter := types.SourceFilter{Extra: map[string]string{"sortBy": "submittedDate", "max_results": "99"}}
	_, err := NewArxiv(testOptions(ts)).Search(context.Background(), Params{Text: "folding", Limit: 5, Filter: filter})
	require.NoError(t, err)
}
