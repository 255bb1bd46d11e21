// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/paper-fetch/internal/httputil"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Sentinel errors for download operations. Every failed DownloadResult
// carries an error that matches exactly one of ErrNoDownloadURL,
// ErrPermanent or ErrFilesystem, or a context error.
var (
	// ErrNoDownloadURL is returned for a candidate without a file URL. It is never retried.
	ErrNoDownloadURL = errors.New("download: candidate has no download URL")
	// ErrTransient marks a retryable network or HTTP failure.
	ErrTransient = errors.New("download: transient failure")
	// ErrPermanent marks a non-retryable HTTP status or an exhausted retry bound.
	ErrPermanent = errors.New("download: permanent failure")
	// ErrFilesystem is returned when the output file cannot be written.
	ErrFilesystem = errors.New("download: filesystem error")
	// ErrTooLarge is returned when the file exceeds the configured maximum size.
	ErrTooLarge = errors.New("download: file exceeds maximum size")
	// ErrNotDocument is returned when the body is not the expected file
	// type, such as an HTML landing or challenge page.
	ErrNotDocument = errors.New("download: response is not a document")
)

// permanentStatus lists HTTP statuses that no retry can fix.
var permanentStatus = map[int]bool{
	http.StatusBadRequest:                 true,
	http.StatusUnauthorized:               true,
	http.StatusForbidden:                  true,
	http.StatusNotFound:                   true,
	http.StatusGone:                       true,
	http.StatusUnavailableForLegalReasons: true,
}

// statusError converts a non-200 response status into a classified error.
func statusError(code int) error {
	if permanentStatus[code] {
		return httputil.Permanent(fmt.Errorf("%w: HTTP %d", ErrPermanent, code))
	}
	return fmt.Errorf("%w: HTTP %d", ErrTransient, code)
}

func filesystemError(op string, err error) error {
	return httputil.Permanent(fmt.Errorf("%w: %s: %w", ErrFilesystem, op, err))
}

// Kind maps a download error onto its ErrorKind.
func Kind(err error) types.ErrorKind {
	switch {
	case err == nil:
		return types.KindNone
	case errors.Is(err, ErrNoDownloadURL):
		return types.KindNoDownloadURL
	case errors.Is(err, ErrFilesystem):
		return types.KindFilesystem
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.KindCanceled
	case errors.Is(err, ErrPermanent):
		return types.KindPermanent
	default:
		return types.KindTransient
	}
}
