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

// booksAPIBase is the Google Books volumes endpoint. Declared as a var so
// tests can substitute an httptest server.
var booksAPIBase = "https://www.googleapis.com/books/v1/volumes"

// booksMaxResults is the API's page size ceiling.
const booksMaxResults = 40

// BooksClient searches Google Books for free e-books.
type BooksClient struct {
	base
	apiKey string
}

// NewBooks returns a Google Books client.
func NewBooks(opts Options) *BooksClient {
	return &BooksClient{base: newBase(types.SourceGoogleBooks, opts), apiKey: opts.APIKey}
}

// Search returns free e-book volumes. The PDF link is preferred; an
// EPUB-only volume carries its EPUB link and Format "epub".
func (c *BooksClient) Search(ctx context.Context, p Params) ([]types.Candidate, error) {
	q := strings.TrimSpace(p.Text)
	if q == "" {
		return nil, fmt.Errorf("empty Google Books query")
	}

	limit := p.limit()
	if limit > booksMaxResults {
		limit = booksMaxResults
	}
	params := url.Values{
		"q":          {q},
		"maxResults": {strconv.Itoa(limit)},
		"filter":     {"free-ebooks"},
		"printType":  {"books"},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	addExtra(params, p.Filter.Extra)

	body, err := c.get(ctx, booksAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var vr booksResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("parsing Google Books response: %w", err)
	}

	var out []types.Candidate
	for _, item := range vr.Items {
		info := item.VolumeInfo
		title := strings.TrimSpace(info.Title)
		if title == "" {
			continue
		}
		if info.Subtitle != "" {
			title += ": " + strings.TrimSpace(info.Subtitle)
		}

		md := types.BooksMetadata{
			VolumeID:      item.ID,
			Publisher:     info.Publisher,
			PublishedDate: info.PublishedDate,
		}

		var link string
		switch {
		case item.AccessInfo.PDF.DownloadLink != "":
			link = item.AccessInfo.PDF.DownloadLink
			md.Format = "pdf"
		case item.AccessInfo.EPUB.DownloadLink != "":
			link = item.AccessInfo.EPUB.DownloadLink
			md.Format = "epub"
		}

		out = append(out, types.NewCandidate(title, info.Authors, link, info.PublishedDate, info.Description, md))
	}
	return out, nil
}

// Google Books API JSON structures.
type booksResponse struct {
	TotalItems int           `json:"totalItems"`
	Items      []booksVolume `json:"items"`
}

type booksVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Subtitle      string   `json:"subtitle"`
		Authors       []string `json:"authors"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		Description   string   `json:"description"`
	} `json:"volumeInfo"`
	AccessInfo struct {
		PDF  booksFormat `json:"pdf"`
		EPUB booksFormat `json:"epub"`
	} `json:"accessInfo"`
}

type booksFormat struct {
	IsAvailable  bool   `json:"isAvailable"`
	DownloadLink string `json:"downloadLink"`
}
