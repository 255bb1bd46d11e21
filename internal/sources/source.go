// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements one client per external catalog and the
// registry that holds them in fixed priority order.
//
// Every client normalizes its catalog's response into types.Candidate and
// never downloads files itself.
package sources

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/paper-fetch/internal/httputil"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// ErrSourceUnavailable marks a catalog that could not be queried. The
// orchestrator skips such a catalog and moves on to the next one.
var ErrSourceUnavailable = errors.New("source unavailable")

// maxResponseBytes bounds how much of a catalog response is read.
const maxResponseBytes = 16 << 20

// defaultLimit is used when Params.Limit is not positive.
const defaultLimit = 10

// Params holds one catalog request.
type Params struct {
	Text   string
	Limit  int
	Filter types.SourceFilter
}

func (p Params) limit() int {
	if p.Limit <= 0 {
		return defaultLimit
	}
	return p.Limit
}

// Client searches a single catalog.
type Client interface {
	Source() types.Source
	Search(ctx context.Context, p Params) ([]types.Candidate, error)
}

// Options configures a catalog client.
type Options struct {
	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// RatePerSecond limits requests to the catalog. Zero disables limiting.
	RatePerSecond float64

	// APIKey is the catalog's optional key (NCBI, Semantic Scholar, Google Books).
	APIKey string

	// Mailto is the contact address some catalogs ask for.
	Mailto string

	// Policy governs retries on 429 and 5xx. Zero value means httputil.APIPolicy().
	Policy httputil.Policy
}

// base carries the HTTP plumbing shared by every client.
type base struct {
	source    types.Source
	client    *http.Client
	limiter   *httputil.Limiter
	userAgent string
	policy    httputil.Policy
}

func newBase(s types.Source, opts Options) base {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	policy := opts.Policy
	if policy.MaxAttempts == 0 {
		policy = httputil.APIPolicy()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	return base{
		source:    s,
		client:    client,
		limiter:   httputil.NewLimiter(opts.RatePerSecond, 1),
		userAgent: ua,
		policy:    policy,
	}
}

// Source returns the catalog identifier.
func (b *base) Source() types.Source { return b.source }

// get fetches rawURL and returns the body of a 200 response.
func (b *base) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := httputil.DoWithRetry(ctx, b.client, req, b.policy)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", b.source.DisplayName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", b.source.DisplayName(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", b.source.DisplayName(), err)
	}
	return body, nil
}

// addExtra copies catalog-specific filter parameters into v. Parameters
// the client already set are left alone.
func addExtra(v url.Values, extra map[string]string) url.Values {
	for k, val := range extra {
		if _, set := v[k]; !set {
			v.Set(k, val)
		}
	}
	return v
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// cleanText strips markup, unescapes entities and collapses whitespace.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Registry holds the enabled catalog clients in priority order.
type Registry struct {
	clients []Client
}

// NewRegistry returns a registry of the given clients sorted by source
// priority. A source given twice is rejected.
func NewRegistry(clients ...Client) (*Registry, error) {
	seen := make(map[types.Source]bool, len(clients))
	sorted := make([]Client, 0, len(clients))
	for _, c := range clients {
		s := c.Source()
		if !s.Valid() {
			return nil, fmt.Errorf("unknown source %q", s)
		}
		if seen[s] {
			return nil, fmt.Errorf("duplicate client for source %q", s)
		}
		seen[s] = true
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Source().Priority() < sorted[j].Source().Priority()
	})
	return &Registry{clients: sorted}, nil
}

// DefaultRegistry builds a client for every enabled source. An empty
// enabled list means all six.
func DefaultRegistry(cfg types.SourcesConfig, httpCfg types.HTTPConfig, client *http.Client) (*Registry, error) {
	enabled := types.AllSources
	if len(cfg.Enabled) > 0 {
		var err error
		if enabled, err = types.ParseSources(cfg.Enabled); err != nil {
			return nil, err
		}
	}

	opts := Options{
		HTTPClient:    client,
		UserAgent:     httpCfg.UserAgent,
		RatePerSecond: cfg.RatePerSecond,
		Mailto:        cfg.Mailto,
	}

	clients := make([]Client, 0, len(enabled))
	for _, s := range enabled {
		o := opts
		switch s {
		case types.SourcePMC:
			o.APIKey = cfg.NCBIAPIKey
			clients = append(clients, NewPMC(o))
		case types.SourceArxiv:
			clients = append(clients, NewArxiv(o))
		case types.SourceSemanticScholar:
			o.APIKey = cfg.SemanticScholarAPIKey
			clients = append(clients, NewSemanticScholar(o))
		case types.SourceGoogleScholar:
			clients = append(clients, NewScholar(o))
		case types.SourceGoogleBooks:
			o.APIKey = cfg.GoogleBooksAPIKey
			clients = append(clients, NewBooks(o))
		case types.SourceWikibooks:
			clients = append(clients, NewWikibooks(o))
		}
	}
	return NewRegistry(clients...)
}

// Clients returns the clients in priority order.
func (r *Registry) Clients() []Client {
	out := make([]Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// Sources lists the registered sources in priority order.
func (r *Registry) Sources() []types.Source {
	out := make([]types.Source, len(r.clients))
	for i, c := range r.clients {
		out[i] = c.Source()
	}
	return out
}

// Len returns the number of registered clients.
func (r *Registry) Len() int { return len(r.clients) }
