// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch runs a search across the catalogs in priority order and
// downloads the results until the requested number of files is written.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-fetch/internal/collect"
	"github.com/pdiddy/paper-fetch/internal/download"
	"github.com/pdiddy/paper-fetch/internal/sources"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Downloader fetches one candidate and returns its terminal result.
// *download.Manager implements it.
type Downloader interface {
	Download(ctx context.Context, c types.Candidate) types.DownloadResult
}

// Orchestrator coordinates the catalog clients and the downloader.
type Orchestrator struct {
	outputDir   string
	cfg         types.Config
	registry    *sources.Registry
	downloader  Downloader
	client      *http.Client
	logger      zerolog.Logger
	progress    io.Writer
	maxInFlight int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSources replaces the default registry of all six catalogs.
func WithSources(r *sources.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithManager replaces the default download manager.
func WithManager(d Downloader) Option {
	return func(o *Orchestrator) { o.downloader = d }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithHTTPClient sets the client shared by catalog queries and downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithConfig sets the configuration used to build default components.
func WithConfig(cfg types.Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithProgress sets where human-readable progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.progress = w }
}

// New returns an Orchestrator writing into outputDir, which is created if
// absent. Components not supplied through options are built from the config.
func New(outputDir string, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		outputDir: outputDir,
		cfg:       types.DefaultConfig(),
		logger:    zerolog.Nop(),
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cfg.ApplyDefaults()
	if o.outputDir == "" {
		o.outputDir = o.cfg.Download.OutputDir
	}
	o.maxInFlight = o.cfg.Download.MaxConcurrent

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory %s: %w", download.ErrFilesystem, o.outputDir, err)
	}

	if o.client == nil {
		o.client = &http.Client{Timeout: o.cfg.HTTP.Timeout}
	}
	if o.registry == nil {
		r, err := sources.DefaultRegistry(o.cfg.Sources, o.cfg.HTTP, o.client)
		if err != nil {
			return nil, fmt.Errorf("building source registry: %w", err)
		}
		o.registry = r
	}
	if o.downloader == nil {
		m, err := download.NewManager(o.outputDir, o.cfg.Download, o.client, o.logger,
			download.WithUserAgent(o.cfg.HTTP.UserAgent))
		if err != nil {
			return nil, err
		}
		o.downloader = m
	}
	return o, nil
}

// OutputDir returns the directory files are written to.
func (o *Orchestrator) OutputDir() string { return o.outputDir }

// Sources returns the enabled catalogs in priority order.
func (o *Orchestrator) Sources() []types.Source { return o.registry.Sources() }

// Run searches for text and downloads up to maxResults files.
func (o *Orchestrator) Run(ctx context.Context, text string, maxResults int) *types.SearchSession {
	return o.SearchAndDownload(ctx, types.Query{Text: text, MaxResults: maxResults})
}

// SearchAndDownload queries each source in priority order and downloads
// its candidates in the order returned, stopping once q.MaxResults files
// are written. It never fails: source errors are recorded as skipped
// sources and download errors as failed results.
//
// At most MaxConcurrent downloads run at once, and a download is started
// only while successes plus in-flight downloads stay below MaxResults, so
// the success count can never pass the quota.
func (o *Orchestrator) SearchAndDownload(ctx context.Context, q types.Query) *types.SearchSession {
	session := &types.SearchSession{Query: q, Started: time.Now()}
	log := o.logger.With().Str("query", q.Text).Int("max_results", q.MaxResults).Logger()

	if err := q.Validate(); err != nil {
		log.Warn().Err(err).Msg("invalid query")
		session.Finished = time.Now()
		return session
	}

	r := &run{
		o:         o,
		ctx:       ctx,
		max:       q.MaxResults,
		collector: collect.New(),
		done:      make(chan types.DownloadResult, o.maxInFlight),
	}
	r.g.SetLimit(o.maxInFlight)

	for _, client := range o.registry.Clients() {
		if !r.waitFor(r.underQuota) {
			break
		}
		src := client.Source()
		slog := log.With().Str("source", string(src)).Logger()

		limit := r.max - r.collector.Succeeded()
		fmt.Fprintf(o.progress, "Searching %s...\n", src.DisplayName())
		cands, err := client.Search(ctx, sources.Params{Text: q.Text, Limit: limit, Filter: q.Filter(src)})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			err = fmt.Errorf("%s: %w: %w", src, sources.ErrSourceUnavailable, err)
			slog.Warn().Err(err).Msg("source skipped")
			fmt.Fprintf(o.progress, "warning: %s unavailable: %v\n", src.DisplayName(), err)
			session.SkippedSources = append(session.SkippedSources, types.SourceError{Source: src, Error: err.Error()})
			continue
		}
		if len(cands) == 0 {
			slog.Debug().Msg("no candidates")
			continue
		}
		slog.Info().Int("candidates", len(cands)).Msg("source returned candidates")
		fmt.Fprintf(o.progress, "Found %d results on %s:\n", len(cands), src.DisplayName())
		listCandidates(o.progress, cands)

		stop := false
		for _, c := range cands {
			if !r.waitFor(r.canDispatch) {
				stop = true
				break
			}
			session.Candidates = append(session.Candidates, c)
			slog.Debug().Str("title", c.Title).Str("state", string(types.StateDiscovered)).Msg("candidate dispatched")
			r.dispatch(c)
		}
		if stop {
			break
		}
	}

	r.drain()

	summary := r.collector.Snapshot()
	session.Results = summary.Results
	session.Succeeded = summary.Succeeded
	session.Failed = summary.Failed
	session.Finished = time.Now()

	log.Info().
		Int("succeeded", session.Succeeded).
		Int("failed", session.Failed).
		Int("candidates", len(session.Candidates)).
		Int("skipped_sources", len(session.SkippedSources)).
		Dur("elapsed", session.Duration()).
		Msg("search finished")
	return session
}

// listAuthors is how many authors a candidate listing shows.
const listAuthors = 3

// listCandidates writes a numbered entry per candidate: title, the first
// authors, publication date and summary when known.
func listCandidates(w io.Writer, cands []types.Candidate) {
	for i, c := range cands {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, c.Title)
		authors := c.Authors
		if len(authors) > listAuthors {
			authors = authors[:listAuthors]
		}
		if len(authors) > 0 {
			fmt.Fprintf(w, "   Authors: %s\n", strings.Join(authors, ", "))
		}
		if c.Published != "" {
			fmt.Fprintf(w, "   Published: %s\n", c.Published)
		}
		if c.Summary != "" {
			fmt.Fprintf(w, "   Summary: %s\n", c.Summary)
		}
	}
	fmt.Fprintln(w)
}

// run holds the dispatch state of one SearchAndDownload call. Only the
// calling goroutine touches inflight; workers report through done.
type run struct {
	o         *Orchestrator
	ctx       context.Context
	max       int
	collector *collect.ResultCollector
	done      chan types.DownloadResult
	inflight  int
	g         errgroup.Group
}

// underQuota reports whether in-flight downloads could still leave room
// for another success.
func (r *run) underQuota() bool {
	return r.collector.Succeeded()+r.inflight < r.max
}

// canDispatch reports whether another download may start now.
func (r *run) canDispatch() bool {
	return r.inflight < r.o.maxInFlight && r.underQuota()
}

// waitFor reaps finished downloads until ready holds or nothing is in
// flight. It returns false once the quota is met or ctx is done.
func (r *run) waitFor(ready func() bool) bool {
	for r.inflight > 0 && !ready() {
		r.reap()
	}
	return r.ctx.Err() == nil && r.collector.Succeeded() < r.max
}

func (r *run) dispatch(c types.Candidate) {
	r.inflight++
	r.g.Go(func() error {
		r.done <- r.o.downloader.Download(r.ctx, c)
		return nil
	})
}

// reap records one finished download.
func (r *run) reap() {
	res := <-r.done
	r.inflight--
	r.collector.Add(res)
	if res.Succeeded() {
		fmt.Fprintf(r.o.progress, "downloaded: %s\n", res.Path)
	} else {
		fmt.Fprintf(r.o.progress, "failed:  %s (%s)\n", res.Candidate.Title, res.Error)
	}
}

// drain waits for every in-flight download.
func (r *run) drain() {
	for r.inflight > 0 {
		r.reap()
	}
	r.g.Wait()
}
