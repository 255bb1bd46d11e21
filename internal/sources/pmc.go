// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	pmcESearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pmcEFetchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	pmcArticleURL = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
)

// PMCClient searches PubMed Central through NCBI E-utilities: esearch for
// relevance-ranked IDs, then efetch for the JATS article records.
type PMCClient struct {
	base
	apiKey string
	email  string
}

// NewPMC returns a PubMed Central client.
func NewPMC(opts Options) *PMCClient {
	return &PMCClient{
		base:   newBase(types.SourcePMC, opts),
		apiKey: opts.APIKey,
		email:  opts.Mailto,
	}
}

// Search returns up to p.Limit open-access articles with PDF links.
func (c *PMCClient) Search(ctx context.Context, p Params) ([]types.Candidate, error) {
	ids, err := c.esearch(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	articles, err := c.efetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	limit := p.limit()
	var out []types.Candidate
	for _, a := range articles {
		cand, ok := a.candidate()
		if !ok {
			continue
		}
		out = append(out, cand)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *PMCClient) common() url.Values {
	v := url.Values{"db": {"pmc"}, "tool": {"paper-fetch"}}
	if c.apiKey != "" {
		v.Set("api_key", c.apiKey)
	}
	if c.email != "" {
		v.Set("email", c.email)
	}
	return v
}

func (c *PMCClient) esearch(ctx context.Context, p Params) ([]string, error) {
	params := c.common()
	params.Set("term", p.Text)
	params.Set("retmax", strconv.Itoa(p.limit()))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")
	if f := p.Filter; !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		params.Set("datetype", "pdat")
		if !f.DateFrom.IsZero() {
			params.Set("mindate", f.DateFrom.Format("2006/01/02"))
		}
		if !f.DateTo.IsZero() {
			params.Set("maxdate", f.DateTo.Format("2006/01/02"))
		}
	}
	addExtra(params, p.Filter.Extra)

	body, err := c.get(ctx, pmcESearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var sr pmcSearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing PMC esearch response: %w", err)
	}
	if sr.Result.Error != "" {
		return nil, fmt.Errorf("PMC esearch: %s", sr.Result.Error)
	}
	return sr.Result.IDList, nil
}

func (c *PMCClient) efetch(ctx context.Context, ids []string) ([]pmcArticle, error) {
	params := c.common()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	body, err := c.get(ctx, pmcEFetchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	// JATS records often carry HTML entities such as &nbsp;.
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var set pmcArticleSet
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PMC efetch response: %w", err)
	}
	return set.Articles, nil
}

func (a pmcArticle) candidate() (types.Candidate, bool) {
	meta := a.Front.Meta
	title := cleanText(meta.Title.Inner)
	if title == "" {
		return types.Candidate{}, false
	}

	md := types.PMCMetadata{Journal: cleanText(a.Front.Journal.Title)}
	for _, id := range meta.IDs {
		value := strings.TrimSpace(id.Value)
		switch id.Type {
		case "pmc", "pmcid":
			md.PMCID = strings.TrimPrefix(value, "PMC")
		case "pmid":
			md.PMID = value
		case "doi":
			md.DOI = value
		}
	}
	if md.PMCID == "" {
		return types.Candidate{}, false
	}

	var authors []string
	for _, contrib := range meta.Contribs {
		if contrib.Type != "author" {
			continue
		}
		name := strings.TrimSpace(strings.TrimSpace(contrib.Name.Given) + " " + strings.TrimSpace(contrib.Name.Surname))
		if name != "" {
			authors = append(authors, name)
		}
	}

	for _, d := range meta.PubDates {
		if y := strings.TrimSpace(d.Year); y != "" {
			md.Year = y
			break
		}
	}

	pdfURL := pmcArticleURL + "PMC" + md.PMCID + "/pdf"
	return types.NewCandidate(title, authors, pdfURL, md.Year, cleanText(meta.Abstract.Inner), md), true
}

// E-utilities JSON structures.
type pmcSearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

// JATS XML structures (subset).
type pmcArticleSet struct {
	Articles []pmcArticle `xml:"article"`
}

type pmcArticle struct {
	Front struct {
		Journal struct {
			Title string `xml:"journal-title-group>journal-title"`
		} `xml:"journal-meta"`
		Meta pmcArticleMeta `xml:"article-meta"`
	} `xml:"front"`
}

type pmcArticleMeta struct {
	IDs []struct {
		Type  string `xml:"pub-id-type,attr"`
		Value string `xml:",chardata"`
	} `xml:"article-id"`
	Title struct {
		Inner string `xml:",innerxml"`
	} `xml:"title-group>article-title"`
	Contribs []struct {
		Type string `xml:"contrib-type,attr"`
		Name struct {
			Surname string `xml:"surname"`
			Given   string `xml:"given-names"`
		} `xml:"name"`
	} `xml:"contrib-group>contrib"`
	PubDates []struct {
		Year string `xml:"year"`
	} `xml:"pub-date"`
	Abstract struct {
		Inner string `xml:",innerxml"`
	} `xml:"abstract"`
}
