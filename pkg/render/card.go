package render

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/boba-gallery/pkg/sanitize"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

const (
	// DefaultTitle is shown for submissions without a title.
	DefaultTitle = "Untitled Project"

	// DescriptionLimit is the number of characters of a description shown
	// on a card.
	DescriptionLimit = 100

	// EagerImages is how many leading cards load their image eagerly.
	EagerImages = 6

	// HighPriorityImages is how many leading cards fetch with high priority.
	HighPriorityImages = 3

	// ResponsiveSizes is the sizes attribute paired with the srcset.
	ResponsiveSizes = "(max-width: 400px) 200px, (max-width: 800px) 400px, (max-width: 1200px) 800px, 1200px"

	responsiveHost = "cdn.hackclub.com"
)

// Responsive holds the resized variants the CDN serves for one image.
type Responsive struct {
	Thumbnail string // 200x200
	Small     string // 400x400
	Medium    string // 800x800
	Large     string // 1200x1200
	Original  string
}

// SrcSet renders the variants as a srcset value.
func (r Responsive) SrcSet() string {
	return r.Thumbnail + " 200w, " + r.Small + " 400w, " + r.Medium + " 800w, " + r.Large + " 1200w"
}

// ResponsiveURLs derives the resized variants of a CDN image by inserting
// the size before the file extension (".jpg" when there is none). It
// reports false for images not served by the CDN.
func ResponsiveURLs(imageURL string) (Responsive, bool) {
	u, err := url.Parse(imageURL)
	if err != nil || imageURL == "" {
		return Responsive{Original: imageURL}, false
	}
	host := strings.ToLower(u.Hostname())
	if host != responsiveHost && !strings.HasSuffix(host, "."+responsiveHost) {
		return Responsive{Original: imageURL}, false
	}

	base, ext := imageURL, ".jpg"
	if dot := strings.LastIndexByte(imageURL, '.'); dot >= 0 && dot < len(imageURL)-1 &&
		!strings.ContainsAny(imageURL[dot+1:], "/") {
		base, ext = imageURL[:dot], imageURL[dot:]
	}

	return Responsive{
		Thumbnail: base + "_200x200" + ext,
		Small:     base + "_400x400" + ext,
		Medium:    base + "_800x800" + ext,
		Large:     base + "_1200x1200" + ext,
		Original:  imageURL,
	}, true
}

// Card renders one submission. index is its position in the full list and
// decides the image loading strategy.
func Card(s submission.Enriched, index int) string {
	var m markup
	writeCard(&m, s, index)
	return m.String()
}

func writeCard(m *markup, s submission.Enriched, index int) {
	f := s.Fields

	title := f.Title
	if title == "" {
		title = DefaultTitle
	}

	photo := sanitize.EscapeURL(s.OptimizedPhotoURL)
	src := photo
	images := []attribute{attr("class", "submission-photo")}
	if r, ok := ResponsiveURLs(photo); ok {
		src = r.Small
		images = append(images,
			urlAttr("src", src),
			attr("srcset", r.SrcSet()),
			attr("sizes", ResponsiveSizes),
		)
	} else {
		images = append(images, urlAttr("src", src))
	}

	loading, priority := "lazy", "low"
	if index < EagerImages {
		loading = "eager"
	}
	if index < HighPriorityImages {
		priority = "high"
	}
	images = append(images,
		attr("alt", title),
		attr("loading", loading),
		attr("fetchpriority", priority),
		attr("decoding", "async"),
		attr("width", "400"),
		attr("height", "300"),
		attr("style", "aspect-ratio: 4/3; object-fit: cover;"),
	)

	m.open("div",
		attr("class", "grid-submission"),
		attr("data-event-code", f.EventCode),
		attr("style", "content-visibility: auto; contain-intrinsic-size: 300px;"),
	)

	m.open("div", attr("class", "image-container"))
	m.void("img", images...)
	if s.IsOptimized {
		m.inline("div", "⚡", attr("class", "optimized-badge"), attr("title", "Image optimized via CDN"))
	}
	m.close("div")

	m.open("div", attr("class", "submission-content"))
	m.inline("h3", title, attr("class", "submission-title"))
	if f.Description != "" {
		m.inline("p", truncate(f.Description, DescriptionLimit), attr("class", "submission-description"))
	}
	m.inline("span", "", attr("class", "status "+sanitize.NormalizeStatus(f.Status)))

	m.open("div", attr("class", "links"))
	link(m, f.CodeURL, "github-button", "fa-brands fa-github", "GitHub")
	link(m, f.PlayableURL, "demo-button", "fa-solid fa-link", "Demo")
	m.close("div")
	m.close("div")

	m.close("div")
}

func link(m *markup, href, class, icon, label string) {
	m.open("a",
		urlAttr("href", href),
		attr("class", class),
		attr("rel", "noopener noreferrer"),
		attr("target", "_blank"),
	)
	m.inline("i", "", attr("class", icon), attr("aria-hidden", "true"))
	m.inline("span", label)
	m.close("a")
}

// truncate keeps the first n characters of s and marks the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
