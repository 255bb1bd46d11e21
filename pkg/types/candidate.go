// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strconv"
	"strings"
)

// Candidate is one discovered paper or book. Source clients create
// candidates; nothing modifies them afterward.
type Candidate struct {
	// Title is the paper or book title as returned by the catalog.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors in catalog order.
	Authors []string `json:"authors" yaml:"authors"`

	// Source identifies the catalog that produced this candidate.
	Source Source `json:"source" yaml:"source"`

	// DownloadURL is the file location. Empty when the catalog returned
	// metadata without a resolvable file.
	DownloadURL string `json:"download_url,omitempty" yaml:"download_url,omitempty"`

	// Published is the publication date or year in the catalog's format.
	Published string `json:"published,omitempty" yaml:"published,omitempty"`

	// Summary is the abstract or snippet, shortened for display.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Raw is the flattened source-specific metadata.
	Raw map[string]string `json:"raw,omitempty" yaml:"raw,omitempty"`

	// Details is the typed source-specific metadata.
	Details Metadata `json:"-" yaml:"-"`
}

// HasDownload reports whether the candidate carries a file URL.
func (c Candidate) HasDownload() bool { return c.DownloadURL != "" }

// NewCandidate builds a Candidate and fills Raw from the typed metadata.
func NewCandidate(title string, authors []string, downloadURL, published, summary string, details Metadata) Candidate {
	c := Candidate{
		Title:       title,
		Authors:     authors,
		DownloadURL: downloadURL,
		Published:   published,
		Summary:     ShortSummary(summary),
		Details:     details,
	}
	if details != nil {
		c.Source = details.Source()
		c.Raw = details.Fields()
	}
	return c
}

// summaryLimit is the display length of candidate summaries.
const summaryLimit = 200

// ShortSummary truncates s to summaryLimit bytes (on a rune boundary) and
// appends "..." when it was cut.
func ShortSummary(s string) string {
	if len(s) <= summaryLimit {
		return s
	}
	cut := summaryLimit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// Metadata is the source-specific part of a Candidate. Each catalog has its
// own concrete type; the unexported method keeps the set closed.
type Metadata interface {
	Source() Source
	Fields() map[string]string
	metadata()
}

// PMCMetadata describes a PubMed Central article.
type PMCMetadata struct {
	PMCID   string
	PMID    string
	DOI     string
	Journal string
	Year    string
}

func (PMCMetadata) Source() Source { return SourcePMC }
func (PMCMetadata) metadata()      {}

func (m PMCMetadata) Fields() map[string]string {
	return compact(map[string]string{
		"pmcid":   m.PMCID,
		"pmid":    m.PMID,
		"doi":     m.DOI,
		"journal": m.Journal,
		"year":    m.Year,
	})
}

// ArxivMetadata describes an arXiv preprint.
type ArxivMetadata struct {
	ArxivID    string
	Published  string
	Categories []string
}

func (ArxivMetadata) Source() Source { return SourceArxiv }
func (ArxivMetadata) metadata()      {}

func (m ArxivMetadata) Fields() map[string]string {
	f := map[string]string{
		"arxiv_id":  m.ArxivID,
		"published": m.Published,
	}
	if len(m.Categories) > 0 {
		f["categories"] = strings.Join(m.Categories, ",")
	}
	return compact(f)
}

// SemanticScholarMetadata describes a Semantic Scholar paper record.
type SemanticScholarMetadata struct {
	PaperID string
	Year    int
	DOI     string
	Venue   string
	URL     string
}

func (SemanticScholarMetadata) Source() Source { return SourceSemanticScholar }
func (SemanticScholarMetadata) metadata()      {}

func (m SemanticScholarMetadata) Fields() map[string]string {
	f := map[string]string{
		"paper_id": m.PaperID,
		"doi":      m.DOI,
		"venue":    m.Venue,
		"url":      m.URL,
	}
	if m.Year > 0 {
		f["year"] = strconv.Itoa(m.Year)
	}
	return compact(f)
}

// ScholarMetadata describes a Google Scholar search hit.
type ScholarMetadata struct {
	ResultURL string
	Snippet   string
	CitedBy   int
}

func (ScholarMetadata) Source() Source { return SourceGoogleScholar }
func (ScholarMetadata) metadata()      {}

func (m ScholarMetadata) Fields() map[string]string {
	f := map[string]string{
		"result_url": m.ResultURL,
	}
	if m.CitedBy > 0 {
		f["cited_by"] = strconv.Itoa(m.CitedBy)
	}
	return compact(f)
}

// BooksMetadata describes a Google Books volume.
type BooksMetadata struct {
	VolumeID      string
	Publisher     string
	PublishedDate string
	// Format is the downloadable format ("pdf" or "epub"), empty if none.
	Format string
}

func (BooksMetadata) Source() Source { return SourceGoogleBooks }
func (BooksMetadata) metadata()      {}

func (m BooksMetadata) Fields() map[string]string {
	return compact(map[string]string{
		"volume_id":      m.VolumeID,
		"publisher":      m.Publisher,
		"published_date": m.PublishedDate,
		"format":         m.Format,
	})
}

// WikibooksMetadata describes a Wikibooks page.
type WikibooksMetadata struct {
	PageID    int
	PageTitle string
	WordCount int
}

func (WikibooksMetadata) Source() Source { return SourceWikibooks }
func (WikibooksMetadata) metadata()      {}

func (m WikibooksMetadata) Fields() map[string]string {
	f := map[string]string{
		"page_title": m.PageTitle,
	}
	if m.PageID > 0 {
		f["page_id"] = strconv.Itoa(m.PageID)
	}
	if m.WordCount > 0 {
		f["word_count"] = strconv.Itoa(m.WordCount)
	}
	return compact(f)
}

// compact drops empty values so Raw only carries what the catalog returned.
func compact(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}
