// Package blobapi provides an HTTP client for the blob-storage REST API:
// bearer-token authentication, status classification, and the container
// and blob operations the file manager needs.
package blobapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, blobapi.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("blobapi: bad request")
	ErrUnauthorized = errors.New("blobapi: unauthorized")
	ErrForbidden    = errors.New("blobapi: forbidden")
	ErrNotFound     = errors.New("blobapi: not found")
	ErrConflict     = errors.New("blobapi: conflict")
	ErrServerError  = errors.New("blobapi: server error")
)

// Request-level failures that never produced an HTTP status.
var (
	// ErrNetwork wraps transport failures (DNS, refused connection, reset).
	ErrNetwork = errors.New("blobapi: network failure")

	// ErrToken wraps failures of the TokenSource. The original token error
	// is joined, so errors.Is also matches the source's own sentinels.
	ErrToken = errors.New("blobapi: token acquisition failed")

	// ErrInvalidDownloadURL is returned when the download endpoint answers
	// with something that is not an absolute http(s) URL.
	ErrInvalidDownloadURL = errors.New("blobapi: invalid download URL")
)

// maxErrorBody caps how much of an error response body is kept as Message.
const maxErrorBody = 4096

// APIError wraps a sentinel error with the HTTP status code, request ID,
// and the response body the server sent.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("blobapi: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("blobapi: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusText returns the server message when present, otherwise the
// standard text for the status code.
func (e *APIError) StatusText() string {
	if e.Message != "" {
		return e.Message
	}

	return http.StatusText(e.StatusCode)
}

// classifyStatus maps a non-2xx HTTP status code to a sentinel error.
// Every status not singled out is reported as ErrServerError.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrServerError
	}
}
