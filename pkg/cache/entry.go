package cache

import "time"

// Status records the outcome of an optimization attempt.
// Both values are terminal for the lifetime of the entry.
type Status string

const (
	// StatusOptimized means CDNURL is an optimized copy.
	StatusOptimized Status = "optimized"

	// StatusFailed means the upload failed and CDNURL equals OriginalURL.
	StatusFailed Status = "failed"
)

// Entry is the persisted result of optimizing one image URL.
// JSON names match the image-metadata.json format.
type Entry struct {
	// OriginalURL is the raw screenshot URL.
	OriginalURL string `json:"originalUrl"`

	// CDNURL is the resolved display URL.
	CDNURL string `json:"cdnUrl"`

	// Timestamp is when the attempt finished.
	Timestamp time.Time `json:"timestamp"`

	Status Status `json:"status"`

	// Error holds the failure message for StatusFailed entries.
	Error string `json:"error,omitempty"`
}

// IsOptimized reports whether the entry points at an optimized copy.
func (e Entry) IsOptimized() bool {
	return e.Status == StatusOptimized && e.CDNURL != ""
}

// ResolvedURL returns the display URL for the entry. Entries written by
// older tools may lack cdnUrl; those resolve to the original URL.
func (e Entry) ResolvedURL() string {
	if e.CDNURL != "" {
		return e.CDNURL
	}
	return e.OriginalURL
}
