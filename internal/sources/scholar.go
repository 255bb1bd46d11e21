// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// scholarBase is the Google Scholar results page. Declared as a var so
// tests can substitute an httptest server.
var scholarBase = "https://scholar.google.com/scholar"

// errScholarBlocked is returned when Scholar serves a captcha instead of results.
var errScholarBlocked = errors.New("Google Scholar blocked the request (captcha)")

var (
	scholarBlockRe   = regexp.MustCompile(`<div class="gs_r gs_or[^"]*"`)
	scholarTitleRe   = regexp.MustCompile(`(?s)<h3 class="gs_rt"[^>]*>(.*?)</h3>`)
	scholarHrefRe    = regexp.MustCompile(`<a[^>]*href="([^"]+)"`)
	scholarAuthorsRe = regexp.MustCompile(`(?s)<div class="gs_a"[^>]*>(.*?)</div>`)
	scholarSnippetRe = regexp.MustCompile(`(?s)<div class="gs_rs"[^>]*>(.*?)</div>`)
	scholarPDFRe     = regexp.MustCompile(`(?s)<div class="gs_or_ggsm"[^>]*>\s*<a[^>]*href="([^"]+)"`)
	scholarCitedRe   = regexp.MustCompile(`Cited by (\d+)`)
	scholarYearRe    = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)
	scholarLabelRe   = regexp.MustCompile(`^(\[[A-Z]+\]\s*)+`)
)

// ScholarClient scrapes the Google Scholar results page. Scholar has no
// public API; results without a direct PDF link get an empty download URL.
type ScholarClient struct {
	base
}

// NewScholar returns a Google Scholar client.
func NewScholar(opts Options) *ScholarClient {
	return &ScholarClient{base: newBase(types.SourceGoogleScholar, opts)}
}

// Search fetches one results page and parses each result block.
func (c *ScholarClient) Search(ctx context.Context, p Params) ([]types.Candidate, error) {
	q := strings.TrimSpace(p.Text)
	if q == "" {
		return nil, fmt.Errorf("empty Google Scholar query")
	}

	limit := p.limit()
	if limit > 20 {
		limit = 20
	}
	params := url.Values{
		"q":   {q},
		"hl":  {"en"},
		"num": {strconv.Itoa(limit)},
	}
	if !p.Filter.DateFrom.IsZero() {
		params.Set("as_ylo", strconv.Itoa(p.Filter.DateFrom.Year()))
	}
	if !p.Filter.DateTo.IsZero() {
		params.Set("as_yhi", strconv.Itoa(p.Filter.DateTo.Year()))
	}
	addExtra(params, p.Filter.Extra)

	body, err := c.get(ctx, scholarBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	page := string(body)
	if isScholarCaptcha(page) {
		return nil, errScholarBlocked
	}

	out := parseScholarResults(page)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func isScholarCaptcha(page string) bool {
	return strings.Contains(page, `id="gs_captcha`) ||
		strings.Contains(page, `id="recaptcha"`) ||
		strings.Contains(page, "unusual traffic from your computer")
}

// parseScholarResults splits the page into result blocks and extracts
// title, authors, snippet, PDF link and citation count from each.
func parseScholarResults(page string) []types.Candidate {
	starts := scholarBlockRe.FindAllStringIndex(page, -1)
	var out []types.Candidate
	for i, loc := range starts {
		end := len(page)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		block := page[loc[0]:end]

		m := scholarTitleRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		title := scholarLabelRe.ReplaceAllString(cleanText(m[1]), "")
		if title == "" {
			continue
		}

		md := types.ScholarMetadata{}
		if h := scholarHrefRe.FindStringSubmatch(m[1]); h != nil {
			md.ResultURL = unescapeAttr(h[1])
		}

		var authors []string
		var published string
		if a := scholarAuthorsRe.FindStringSubmatch(block); a != nil {
			line := cleanText(a[1])
			authors = parseScholarAuthors(line)
			if y := scholarYearRe.FindString(line); y != "" {
				published = y
			}
		}

		if s := scholarSnippetRe.FindStringSubmatch(block); s != nil {
			md.Snippet = cleanText(s[1])
		}
		if cb := scholarCitedRe.FindStringSubmatch(block); cb != nil {
			md.CitedBy, _ = strconv.Atoi(cb[1])
		}

		var pdfURL string
		if pm := scholarPDFRe.FindStringSubmatch(block); pm != nil {
			pdfURL = unescapeAttr(pm[1])
		}

		out = append(out, types.NewCandidate(title, authors, pdfURL, published, md.Snippet, md))
	}
	return out
}

// parseScholarAuthors reads the author part of a gs_a line such as
// "J Smith, A Doe - Nature, 2020 - nature.com".
func parseScholarAuthors(line string) []string {
	part := line
	if idx := strings.Index(part, " - "); idx >= 0 {
		part = part[:idx]
	}
	var authors []string
	for _, name := range strings.Split(part, ",") {
		name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "…"))
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func unescapeAttr(s string) string {
	return strings.ReplaceAll(s, "&amp;", "&")
}
