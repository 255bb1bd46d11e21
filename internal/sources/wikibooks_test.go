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

func TestWikibooksSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/w/api.php", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "protein folding", q.Get("srsearch"))
		assert.Equal(t, "2", q.Get("srlimit"))
		w.Write([]byte(`{"query":{"search":[
			{"title":"Structural Biochemistry/Proteins","pageid":42,"wordcount":900,
			 "snippet":"<span class=\"searchmatch\">Protein</span> folding","timestamp":"2020-03-04T05:06:07Z"}
		]}}`))
	}))
	defer ts.Close()
	swap(t, &wikibooksBase, ts.URL)

	got, err := NewWikibooks(testOptions(ts)).Search(context.Background(), Params{Text: "protein folding", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "Structural Biochemistry/Proteins", c.Title)
	assert.Equal(t, ts.URL+"/api/rest_v1/page/pdf/Structural_Biochemistry%2FProteins", c.DownloadURL)
	assert.Equal(t, "Protein folding", c.Summary)
	assert.Equal(t, "2020-03-04", c.Published)
	assert.Equal(t, []string{wikibooksAuthor}, c.Authors)
	assert.Equal(t, types.SourceWikibooks, c.Source)
	assert.Equal(t, "42", c.Raw["page_id"])
}

func TestWikibooksSearch_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":{"code":"badvalue","info":"bad srlimit"}}`))
	}))
	defer ts.Close()
	swap(t, &wikibooksBase, ts.URL)

	_, err := NewWikibooks(testOptions(ts)).Search(context.Background(), Params{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad srlimit")
}
