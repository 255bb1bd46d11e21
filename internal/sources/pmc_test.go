// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

const pmcEFetchXML = `<?xml version="1.0" ?>
<!DOCTYPE pmc-articleset PUBLIC "-//NLM//DTD ARTICLE SET 2.0//EN" "https://dtd.nlm.nih.gov/ncbi/pmc/articleset/nlm-articleset-2.0.dtd">
<pmc-articleset>
<article>
  <front>
    <journal-meta><journal-title-group><journal-title>PLoS Comput Biol</journal-title></journal-title-group></journal-meta>
    <article-meta>
      <article-id pub-id-type="pmid">3000001</article-id>
      <article-id pub-id-type="pmc">111</article-id>
      <article-id pub-id-type="doi">10.1371/journal.pcbi.1</article-id>
      <title-group><article-title>Protein <italic>folding</italic> landscapes</article-title></title-group>
      <contrib-group>
        <contrib contrib-type="author"><name><surname>Smith</surname><given-names>Jane</given-names></name></contrib>
        <contrib contrib-type="editor"><name><surname>Editor</surname><given-names>Ed</given-names></name></contrib>
        <contrib contrib-type="author"><name><surname>Doe</surname><given-names>John</given-names></name></contrib>
      </contrib-group>
      <pub-date pub-type="epub"><year>2021</year></pub-date>
      <abstract><p>We study&nbsp;folding.</p></abstract>
    </article-meta>
  </front>
</article>
<article>
  <front>
    <article-meta>
      <article-id pub-id-type="pmcid">PMC222</article-id>
      <title-group><article-title>Second article</article-title></title-group>
    </article-meta>
  </front>
</article>
<article>
  <front>
    <article-meta>
      <title-group><article-title>No PMC id</article-title></title-group>
    </article-meta>
  </front>
</article>
</pmc-articleset>`

func pmcServer(t *testing.T, ids string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pmc", r.URL.Query().Get("db"))
		assert.Equal(t, "relevance", r.URL.Query().Get("sort"))
		assert.Equal(t, "json", r.URL.Query().Get("retmode"))
		fmt.Fprintf(w, `{"esearchresult":{"count":"3","idlist":[%s]}}`, ids)
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "111,222,333", r.URL.Query().Get("id"))
		w.Write([]byte(pmcEFetchXML))
	})
	ts := httptest.NewServer(mux)
	swap(t, &pmcESearchURL, ts.URL+"/esearch.fcgi")
	swap(t, &pmcEFetchURL, ts.URL+"/efetch.fcgi")
	return ts
}

func TestPMCSearch(t *testing.T) {
	ts := pmcServer(t, `"111","222","333"`)
	defer ts.Close()

	c := NewPMC(testOptions(ts))
	got, err := c.Search(context.Background(), Params{Text: "protein folding", Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Protein folding landscapes", first.Title)
	assert.Equal(t, []string{"Jane Smith", "John Doe"}, first.Authors)
	assert.Equal(t, types.SourcePMC, first.Source)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC111/pdf", first.DownloadURL)
	assert.Equal(t, "2021", first.Published)
	assert.Equal(t, "We study folding.", first.Summary)
	assert.Equal(t, "3000001", first.Raw["pmid"])
	assert.Equal(t, "PLoS Comput Biol", first.Raw["journal"])

	md, ok := first.Details.(types.PMCMetadata)
	require.True(t, ok)
	assert.Equal(t, "10.1371/journal.pcbi.1", md.DOI)

	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC222/pdf", got[1].DownloadURL)
}

func TestPMCSearch_RespectsLimit(t *testing.T) {
	ts := pmcServer(t, `"111","222","333"`)
	defer ts.Close()

	got, err := NewPMC(testOptions(ts)).Search(context.Background(), Params{Text: "x", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPMCSearch_NoIDs(t *testing.T) {
	var fetched bool
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(http.ResponseWriter, *http.Request) { fetched = true })
	ts := httptest.NewServer(mux)
	defer ts.Close()
	swap(t, &pmcESearchURL, ts.URL+"/esearch.fcgi")
	swap(t, &pmcEFetchURL, ts.URL+"/efetch.fcgi")

	got, err := NewPMC(testOptions(ts)).Search(context.Background(), Params{Text: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, fetched)
}

func TestPMCSearch_DateFilterAndKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "pdat", q.Get("datetype"))
		assert.Equal(t, "2020/01/01", q.Get("mindate"))
		assert.Equal(t, "2022/12/31", q.Get("maxdate"))
		assert.Equal(t, "secret", q.Get("api_key"))
		w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
	}))
	defer ts.Close()
	swap(t, &pmcESearchURL, ts.URL)

	opts := testOptions(ts)
	opts.APIKey = "secret"
	_, err := NewPMC(opts).Search(context.Background(), Params{
		Text: "x",
		Filter: types.SourceFilter{
			DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
}

func TestPMCSearch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()
	swap(t, &pmcESearchURL, ts.URL)

	_, err := NewPMC(testOptions(ts)).Search(context.Background(), Params{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}
