// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// wikibooksBase is the Wikibooks site root. Declared as a var so tests can
// substitute an httptest server.
var wikibooksBase = "https://en.wikibooks.org"

// wikibooksAuthor is shown for every Wikibooks page; the search API does
// not list editors.
const wikibooksAuthor = "Wikibooks contributors"

// WikibooksClient searches Wikibooks through the MediaWiki API and points
// each hit at the REST PDF renderer.
type WikibooksClient struct {
	base
}

// NewWikibooks returns a Wikibooks client.
func NewWikibooks(opts Options) *WikibooksClient {
	return &WikibooksClient{base: newBase(types.SourceWikibooks, opts)}
}

// Search runs a full-text page search.
func (c *WikibooksClient) Search(ctx context.Context, p Params) ([]types.Candidate, error) {
	q := strings.TrimSpace(p.Text)
	if q == "" {
		return nil, fmt.Errorf("empty Wikibooks query")
	}

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {q},
		"srlimit":  {strconv.Itoa(p.limit())},
		"srprop":   {"snippet|wordcount|timestamp"},
		"format":   {"json"},
	}
	addExtra(params, p.Filter.Extra)

	body, err := c.get(ctx, wikibooksBase+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var wr wikibooksResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("parsing Wikibooks response: %w", err)
	}
	if wr.Error != nil {
		return nil, fmt.Errorf("Wikibooks API: %s", wr.Error.Info)
	}

	var out []types.Candidate
	for _, hit := range wr.Query.Search {
		title := strings.TrimSpace(hit.Title)
		if title == "" {
			continue
		}
		md := types.WikibooksMetadata{
			PageID:    hit.PageID,
			PageTitle: title,
			WordCount: hit.WordCount,
		}
		published := hit.Timestamp
		if len(published) > 10 {
			published = published[:10]
		}
		out = append(out, types.NewCandidate(title, []string{wikibooksAuthor}, wikibooksPDFURL(title), published, cleanText(hit.Snippet), md))
	}
	return out, nil
}

// wikibooksPDFURL returns the REST endpoint that renders a page as PDF.
func wikibooksPDFURL(title string) string {
	return wikibooksBase + "/api/rest_v1/page/pdf/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// MediaWiki API JSON structures.
type wikibooksResponse struct {
	Query struct {
		Search []struct {
			Title     string `json:"title"`
			PageID    int    `json:"pageid"`
			WordCount int    `json:"wordcount"`
			Snippet   string `json:"snippet"`
			Timestamp string `json:"timestamp"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}
