package cdn

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned by New when no API token is configured.
	ErrMissingToken = errors.New("cdn api token is required")

	// ErrUploadTimeout indicates the upload did not finish within the timeout.
	ErrUploadTimeout = errors.New("cdn upload timed out")

	// ErrMalformedResponse indicates a 2xx response without a usable deployedUrl.
	ErrMalformedResponse = errors.New("no valid files returned from cdn upload")
)

// RejectedError is returned when the CDN answers with a non-2xx status.
type RejectedError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("cdn upload failed: %d - %s", e.StatusCode, e.Body)
}
