// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches candidate files into an output directory under
// a system-wide concurrency cap, with bounded retry and unique, sanitized
// filenames.
package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/paper-fetch/internal/httputil"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// acceptHeader asks servers for a document rather than a landing page.
const acceptHeader = "application/pdf, application/epub+zip;q=0.9, */*;q=0.5"

// Manager downloads candidates. At most MaxConcurrent downloads run at
// once no matter how many goroutines call Download.
type Manager struct {
	dir       string
	client    *http.Client
	files     *FileRegistry
	sem       *semaphore.Weighted
	policy    httputil.Policy
	maxBytes  int64
	userAgent string
	logger    zerolog.Logger
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithUserAgent sets the User-Agent sent with downloads.
func WithUserAgent(ua string) ManagerOption {
	return func(m *Manager) {
		if ua != "" {
			m.userAgent = ua
		}
	}
}

// WithPolicy replaces the retry policy derived from the config.
func WithPolicy(p httputil.Policy) ManagerOption {
	return func(m *Manager) { m.policy = p }
}

// NewManager creates outputDir if needed and returns a Manager writing
// into it. Zero config values take their defaults.
func NewManager(outputDir string, cfg types.DownloadConfig, client *http.Client, logger zerolog.Logger, opts ...ManagerOption) (*Manager, error) {
	if outputDir == "" {
		outputDir = types.DefaultOutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory %s: %w", ErrFilesystem, outputDir, err)
	}

	cfg.MaxConcurrent = types.ClampConcurrency(cfg.MaxConcurrent)
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = types.DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = types.DefaultBackoffBase
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = types.DefaultMaxBytes
	}
	if client == nil {
		client = &http.Client{Timeout: types.DefaultTimeout}
	}

	m := &Manager{
		dir:       outputDir,
		client:    client,
		files:     NewFileRegistry(outputDir),
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		policy:    httputil.NewPolicy(cfg.MaxAttempts, cfg.BackoffBase),
		maxBytes:  cfg.MaxBytes,
		userAgent: types.DefaultUserAgent,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Dir returns the output directory.
func (m *Manager) Dir() string { return m.dir }

// Download fetches c's file and returns a terminal result. It never
// returns a result in a non-terminal state.
//
// A candidate without a URL fails immediately with zero attempts and does
// not take a concurrency slot.
func (m *Manager) Download(ctx context.Context, c types.Candidate) types.DownloadResult {
	log := m.logger.With().
		Str("source", string(c.Source)).
		Str("title", c.Title).
		Logger()

	if !c.HasDownload() {
		log.Warn().Msg("no download URL")
		return failed(c, 0, ErrNoDownloadURL)
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return failed(c, 0, err)
	}
	defer m.sem.Release(1)
	log.Debug().Str("state", string(types.StateDownloading)).Msg("download started")

	ext := Extension(c)
	var tmpPath string
	var size int64
	attempts, err := m.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		log.Debug().Int("attempt", attempt).Str("url", c.DownloadURL).Msg("download attempt")
		p, n, ferr := m.fetch(ctx, c.DownloadURL, ext)
		if ferr != nil {
			log.Debug().Int("attempt", attempt).Err(ferr).Msg("attempt failed")
			return ferr
		}
		tmpPath, size = p, n
		return nil
	})
	if err != nil {
		if !httputil.IsPermanent(err) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %d attempts: %w", ErrPermanent, attempts, err)
		}
		log.Warn().Str("state", string(types.StateFailed)).Int("attempt", attempts).Err(err).Msg("download failed")
		return failed(c, attempts, err)
	}

	path, err := m.store(tmpPath, c, ext)
	if err != nil {
		log.Warn().Err(err).Msg("saving download failed")
		return failed(c, attempts, err)
	}

	log.Info().Str("state", string(types.StateSucceeded)).Int("attempt", attempts).Str("path", path).Int64("bytes", size).Msg("downloaded")
	return types.DownloadResult{
		Candidate: c,
		State:     types.StateSucceeded,
		Path:      path,
		Bytes:     size,
		Attempts:  attempts,
	}
}

// fetch streams url into a temp file in the output directory and returns
// its path and size. Bodies that do not start like an ext file are
// rejected before anything is written.
func (m *Manager) fetch(ctx context.Context, url, ext string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, httputil.Permanent(fmt.Errorf("%w: creating request: %w", ErrPermanent, err))
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, httputil.Permanent(ctx.Err())
		}
		return "", 0, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, statusError(resp.StatusCode)
	}
	if resp.ContentLength > m.maxBytes {
		return "", 0, httputil.Permanent(fmt.Errorf("%w: %w (%d bytes)", ErrPermanent, ErrTooLarge, resp.ContentLength))
	}

	body := bufio.NewReaderSize(resp.Body, sniffLen)
	head, err := body.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		if ctx.Err() != nil {
			return "", 0, httputil.Permanent(ctx.Err())
		}
		return "", 0, fmt.Errorf("%w: reading body: %w", ErrTransient, err)
	}
	if !looksLike(head, ext) {
		return "", 0, httputil.Permanent(fmt.Errorf("%w: %w (Content-Type %q)",
			ErrPermanent, ErrNotDocument, resp.Header.Get("Content-Type")))
	}

	tmpFile, err := os.CreateTemp(m.dir, ".fetch-*.tmp")
	if err != nil {
		return "", 0, filesystemError("creating temp file", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, io.LimitReader(body, m.maxBytes+1))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		if ctx.Err() != nil {
			return "", 0, httputil.Permanent(ctx.Err())
		}
		return "", 0, fmt.Errorf("%w: reading body: %w", ErrTransient, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", 0, filesystemError("closing temp file", closeErr)
	}
	if n > m.maxBytes {
		os.Remove(tmpPath)
		return "", 0, httputil.Permanent(fmt.Errorf("%w: %w (over %d bytes)", ErrPermanent, ErrTooLarge, m.maxBytes))
	}
	return tmpPath, n, nil
}

// store moves a completed temp file to a unique name derived from the
// candidate title.
func (m *Manager) store(tmpPath string, c types.Candidate, ext string) (string, error) {
	path, err := m.files.Reserve(Sanitize(c.Title), ext)
	if err != nil {
		os.Remove(tmpPath)
		return "", filesystemError("reserving filename", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		m.files.Release(path)
		return "", filesystemError("renaming temp file", err)
	}
	return path, nil
}

// Extension returns the file extension for c: ".epub" for EPUB-only
// Google Books volumes, ".pdf" otherwise.
func Extension(c types.Candidate) string {
	if md, ok := c.Details.(types.BooksMetadata); ok && md.Format == "epub" {
		return ".epub"
	}
	return ".pdf"
}

// sniffLen is how far into a body the PDF header may appear.
const sniffLen = 1024

var (
	pdfMagic  = []byte("%PDF-")
	epubMagic = []byte("PK\x03\x04")
)

// looksLike reports whether head starts a file of type ext. PDF readers
// accept the header anywhere in the first kilobyte.
func looksLike(head []byte, ext string) bool {
	if ext == ".epub" {
		return bytes.HasPrefix(head, epubMagic)
	}
	return bytes.Contains(head, pdfMagic)
}

func failed(c types.Candidate, attempts int, err error) types.DownloadResult {
	return types.DownloadResult{
		Candidate: c,
		State:     types.StateFailed,
		Attempts:  attempts,
		Kind:      Kind(err),
		Error:     err.Error(),
		Err:       err,
	}
}
