// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	base
}

// NewArxiv returns an arXiv client.
func NewArxiv(opts Options) *ArxivClient {
	return &ArxivClient{base: newBase(types.SourceArxiv, opts)}
}

// Search returns arXiv entries that carry a PDF link. Entries without one
// are dropped.
func (c *ArxivClient) Search(ctx context.Context, p Params) ([]types.Candidate, error) {
	q := buildArxivQuery(p.Text)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d", arxivAPIBase, q, p.limit())
	if extra := arxivExtra(p.Filter.Extra); len(extra) > 0 {
		reqURL += "&" + extra.Encode()
	}
	body, err := c.get(ctx, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var out []types.Candidate
	for _, entry := range feed.Entries {
		pdfURL := entry.pdfURL()
		title := cleanText(entry.Title)
		if pdfURL == "" || title == "" {
			continue
		}

		var authors []string
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		md := types.ArxivMetadata{
			ArxivID:   extractArxivID(entry.ID),
			Published: strings.TrimSpace(entry.Published),
		}
		for _, cat := range entry.Categories {
			md.Categories = append(md.Categories, cat.Term)
		}

		published := md.Published
		if len(published) > 10 {
			published = published[:10]
		}
		out = append(out, types.NewCandidate(title, authors, pdfURL, published, cleanText(entry.Summary), md))
	}
	return out, nil
}

// buildArxivQuery turns free text into an all-fields search_query value.
func buildArxivQuery(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = url.QueryEscape(t)
	}
	return "all:" + strings.Join(terms, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// pdfURL returns the entry's PDF link. An abstract-page href is rewritten
// to its PDF form.
func (e arxivEntry) pdfURL() string {
	for _, l := range e.Links {
		if l.Title != "pdf" && l.Type != "application/pdf" {
			continue
		}
		href := l.Href
		if !strings.Contains(href, "pdf") {
			href = strings.Replace(href, "abs", "pdf", 1) + ".pdf"
		}
		return href
	}
	return ""
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// arxivExtra returns the filter parameters that do not clash with the ones
// Search builds itself.
func arxivExtra(extra map[string]string) url.Values {
	own := []string{"search_query", "start", "max_results"}
	v := url.Values{}
	for _, k := range own {
		v[k] = nil
	}
	addExtra(v, extra)
	for _, k := range own {
		v.Del(k)
	}
	return v
}
