// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,year,abstract,url,openAccessPdf,externalIds,venue"

// SemanticScholarClient queries the Semantic Scholar graph API.
type SemanticScholarClient struct {
	base
	apiKey string
}

// NewSemanticScholar returns a Semantic Scholar client.
func NewSemanticScholar(opts Options) *SemanticScholarClient {
	return &SemanticScholarClient{base: newBase(types.SourceSemanticScholar, opts), apiKey: opts.APIKey}
}

// Search returns titled papers. Papers without an open-access PDF are kept
// with an empty download URL.
func (c *SemanticScholarClient) Search(ctx context.Context, p Params) ([]types.Candidate, error) {
	q := strings.TrimSpace(p.Text)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(p.limit())},
		"fields": {semanticFields},
	}
	if yr := buildYearRange(p.Filter.DateFrom, p.Filter.DateTo); yr != "" {
		params.Set("year", yr)
	}
	addExtra(params, p.Filter.Extra)

	var header http.Header
	if c.apiKey != "" {
		header = http.Header{"X-Api-Key": {c.apiKey}}
	}

	body, err := c.get(ctx, semanticAPIBase+"?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}

	var sr semanticResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	var out []types.Candidate
	for _, paper := range sr.Data {
		title := strings.TrimSpace(paper.Title)
		if title == "" {
			continue
		}

		var authors []string
		for _, a := range paper.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		md := types.SemanticScholarMetadata{
			PaperID: paper.PaperID,
			Year:    paper.Year,
			DOI:     paper.ExternalIDs.DOI,
			Venue:   paper.Venue,
			URL:     paper.URL,
		}

		var published string
		if paper.Year > 0 {
			published = strconv.Itoa(paper.Year)
		}

		var pdfURL string
		if paper.OpenAccessPDF != nil {
			pdfURL = paper.OpenAccessPDF.URL
		}
		out = append(out, types.NewCandidate(title, authors, pdfURL, published, paper.Abstract, md))
	}
	return out, nil
}

// buildYearRange returns a Semantic Scholar year filter string (e.g. "2020-2023").
func buildYearRange(from, to time.Time) string {
	switch {
	case !from.IsZero() && !to.IsZero():
		return fmt.Sprintf("%d-%d", from.Year(), to.Year())
	case !from.IsZero():
		return fmt.Sprintf("%d-", from.Year())
	case !to.IsZero():
		return fmt.Sprintf("-%d", to.Year())
	default:
		return ""
	}
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	URL           string              `json:"url"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF *semanticPDF        `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticPDF struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}
