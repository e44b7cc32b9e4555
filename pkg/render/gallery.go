// Package render turns enriched submissions into gallery markup.
//
// All values taken from records are escaped for HTML, and every URL is
// validated for an http(s) scheme before it reaches an attribute.
package render

import (
	_ "embed"
	"errors"
	"strings"

	"github.com/Sternrassler/boba-gallery/pkg/pagination"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

// Placeholder is the template token replaced by the gallery content.
const Placeholder = "{{GALLERY_CONTENT}}"

// EmptyState is rendered when a query returns no submissions.
const EmptyState = `<h1 style="text-align: center;">No submissions found</h1>`

// ErrPlaceholderMissing is returned when a template has no Placeholder.
var ErrPlaceholderMissing = errors.New("template has no " + Placeholder + " placeholder")

// PerformanceBlock is the style and script block appended after the cards.
//
//go:embed assets/performance.html
var PerformanceBlock string

//go:embed assets/scroll.html
var scrollScript string

// Gallery renders every record followed by PerformanceBlock, or EmptyState
// when there are none.
func Gallery(records []submission.Enriched) string {
	r := NewIncremental()
	if len(records) == 0 {
		r.Empty()
	} else {
		r.Append(records)
	}
	return r.String()
}

// Substitute inserts content at the first placeholder of template.
func Substitute(template, content string) (string, error) {
	i := strings.Index(template, Placeholder)
	if i < 0 {
		return "", ErrPlaceholderMissing
	}
	return template[:i] + content + template[i+len(Placeholder):], nil
}

// ScrollLoader renders the sentinel and script that fetch next when the
// reader nears the end of the page. An empty next renders nothing.
func ScrollLoader(next string) string {
	if next == "" {
		return ""
	}
	var m markup
	m.open("div", attr("id", "gallery-more"), attr("data-next", next))
	m.close("div")
	return m.String() + "\n" + scrollScript
}

// Incremental renders batches as they are appended. It implements
// pagination.Renderer for enriched submissions; card positions continue
// across batches, so the output matches Gallery over the same records.
type Incremental struct {
	sb        strings.Builder
	last      string
	count     int
	empty     bool
	batchSeen bool
}

var _ pagination.Renderer[submission.Enriched] = (*Incremental)(nil)

// NewIncremental creates an empty renderer.
func NewIncremental() *Incremental {
	return &Incremental{}
}

// Reset discards everything rendered.
func (r *Incremental) Reset() {
	r.sb.Reset()
	r.last = ""
	r.count = 0
	r.empty = false
	r.batchSeen = false
}

// Append renders batch after the cards already written.
func (r *Incremental) Append(batch []submission.Enriched) {
	var m markup
	for _, s := range batch {
		writeCard(&m, s, r.count)
		r.count++
	}
	r.last = m.String()
	if r.batchSeen && r.last != "" {
		r.sb.WriteByte('\n')
	}
	r.sb.WriteString(r.last)
	r.batchSeen = true
	r.empty = false
}

// Empty marks the query as having no records.
func (r *Incremental) Empty() {
	r.Reset()
	r.empty = true
}

// Len returns the number of cards rendered.
func (r *Incremental) Len() int {
	return r.count
}

// Cards returns the card markup rendered so far.
func (r *Incremental) Cards() string {
	return r.sb.String()
}

// Last returns the markup of the most recent batch.
func (r *Incremental) Last() string {
	return r.last
}

// String returns the full gallery content for what has been rendered:
// the cards followed by PerformanceBlock, or EmptyState.
func (r *Incremental) String() string {
	if r.empty || r.count == 0 {
		return EmptyState
	}
	return r.sb.String() + "\n" + PerformanceBlock
}
