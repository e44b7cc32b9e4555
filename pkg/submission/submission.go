// Package submission defines the gallery record model fetched from the
// Boba Drops table and the enrichment attached to it during a build.
package submission

// PlaceholderImageURL is displayed for submissions without a screenshot.
const PlaceholderImageURL = "https://hc-cdn.hel1.your-objectstorage.com/s/v3/ee0109f20430335ebb5cd3297a973ce244ed01cf_depositphotos_247872612-stock-illustration-no-image-available-icon-vector.jpg"

// Submission is one gallery entry as returned by the query API.
// It is treated as immutable once fetched.
type Submission struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// Fields holds the named attributes of a submission. All fields are optional.
type Fields struct {
	Screenshot  []Attachment `json:"Screenshot,omitempty"`
	Status      string       `json:"Status,omitempty"`
	CodeURL     string       `json:"Code URL,omitempty"`
	PlayableURL string       `json:"Playable URL,omitempty"`
	EventCode   string       `json:"Event Code,omitempty"`
	Title       string       `json:"Title,omitempty"`
	Description string       `json:"Description,omitempty"`
}

// Attachment is a file reference stored in an attachment field.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Type     string `json:"type,omitempty"`
}

// PhotoURL returns the first screenshot URL.
// The second return value is false when there is no usable screenshot.
func (s Submission) PhotoURL() (string, bool) {
	if len(s.Fields.Screenshot) == 0 || s.Fields.Screenshot[0].URL == "" {
		return "", false
	}
	return s.Fields.Screenshot[0].URL, true
}

// Enriched is a submission with its resolved display image attached.
type Enriched struct {
	Submission

	// OptimizedPhotoURL is the display URL: a CDN URL, the original
	// screenshot URL, or PlaceholderImageURL.
	OptimizedPhotoURL string `json:"optimizedPhotoUrl"`

	// IsOptimized is true when OptimizedPhotoURL points at an optimized copy.
	IsOptimized bool `json:"isOptimized"`
}

// Enrich attaches a display URL to s without modifying it.
func Enrich(s Submission, photoURL string, optimized bool) Enriched {
	return Enriched{
		Submission:        s,
		OptimizedPhotoURL: photoURL,
		IsOptimized:       optimized,
	}
}
