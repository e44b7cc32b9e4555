package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Sternrassler/boba-gallery/pkg/sanitize"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

// parseFragment parses markup as body content.
func parseFragment(t *testing.T, markup string) []*html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		t.Fatalf("ParseFragment failed: %v", err)
	}
	return nodes
}

// find returns every element named tag under nodes.
func find(nodes []*html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func attrOf(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func record(fields submission.Fields, photo string, optimized bool) submission.Enriched {
	return submission.Enrich(submission.Submission{ID: "rec", Fields: fields}, photo, optimized)
}

func TestResponsiveURLs(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantOK bool
		want   Responsive
	}{
		{
			name:   "cdn image with extension",
			url:    "https://cdn.hackclub.com/abc/shot.png",
			wantOK: true,
			want: Responsive{
				Thumbnail: "https://cdn.hackclub.com/abc/shot_200x200.png",
				Small:     "https://cdn.hackclub.com/abc/shot_400x400.png",
				Medium:    "https://cdn.hackclub.com/abc/shot_800x800.png",
				Large:     "https://cdn.hackclub.com/abc/shot_1200x1200.png",
				Original:  "https://cdn.hackclub.com/abc/shot.png",
			},
		},
		{
			name:   "cdn image without extension defaults to jpg",
			url:    "https://cdn.hackclub.com/abc",
			wantOK: true,
			want: Responsive{
				Thumbnail: "https://cdn.hackclub.com/abc_200x200.jpg",
				Small:     "https://cdn.hackclub.com/abc_400x400.jpg",
				Medium:    "https://cdn.hackclub.com/abc_800x800.jpg",
				Large:     "https://cdn.hackclub.com/abc_1200x1200.jpg",
				Original:  "https://cdn.hackclub.com/abc",
			},
		},
		{name: "other host", url: "https://dl.airtable.com/shot.png"},
		{name: "lookalike host", url: "https://cdn.hackclub.com.evil.example/shot.png"},
		{name: "cdn name in path only", url: "https://evil.example/cdn.hackclub.com/shot.png"},
		{name: "fallback", url: sanitize.FallbackURL},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResponsiveURLs(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ResponsiveURLs(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if !ok {
				if got.Original != tt.url {
					t.Errorf("Original = %q, want %q", got.Original, tt.url)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResponsiveURLs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCard_ResponsiveImage(t *testing.T) {
	s := record(submission.Fields{Title: "Boba"}, "https://cdn.hackclub.com/x/shot.webp", true)
	nodes := parseFragment(t, Card(s, 0))

	imgs := find(nodes, "img")
	if len(imgs) != 1 {
		t.Fatalf("found %d img elements, want 1", len(imgs))
	}
	img := imgs[0]

	want := map[string]string{
		"src":           "https://cdn.hackclub.com/x/shot_400x400.webp",
		"srcset":        "https://cdn.hackclub.com/x/shot_200x200.webp 200w, https://cdn.hackclub.com/x/shot_400x400.webp 400w, https://cdn.hackclub.com/x/shot_800x800.webp 800w, https://cdn.hackclub.com/x/shot_1200x1200.webp 1200w",
		"sizes":         ResponsiveSizes,
		"alt":           "Boba",
		"loading":       "eager",
		"fetchpriority": "high",
		"decoding":      "async",
	}
	for k, v := range want {
		if got, _ := attrOf(img, k); got != v {
			t.Errorf("img %s = %q, want %q", k, got, v)
		}
	}

	badges := 0
	for _, div := range find(nodes, "div") {
		if c, _ := attrOf(div, "class"); c == "optimized-badge" {
			badges++
		}
	}
	if badges != 1 {
		t.Errorf("found %d optimized badges, want 1", badges)
	}
}

func TestCard_PlainImage(t *testing.T) {
	s := record(submission.Fields{}, "https://dl.airtable.com/shot.png", false)
	img := find(parseFragment(t, Card(s, 0)), "img")[0]

	if src, _ := attrOf(img, "src"); src != "https://dl.airtable.com/shot.png" {
		t.Errorf("src = %q", src)
	}
	if _, ok := attrOf(img, "srcset"); ok {
		t.Error("non-CDN image should have no srcset")
	}
	if _, ok := attrOf(img, "sizes"); ok {
		t.Error("non-CDN image should have no sizes")
	}
	if strings.Contains(Card(s, 0), "optimized-badge") {
		t.Error("unoptimized image should have no badge")
	}
}

func TestCard_LoadingStrategy(t *testing.T) {
	tests := []struct {
		index        int
		wantLoading  string
		wantPriority string
	}{
		{index: 0, wantLoading: "eager", wantPriority: "high"},
		{index: 2, wantLoading: "eager", wantPriority: "high"},
		{index: 3, wantLoading: "eager", wantPriority: "low"},
		{index: 5, wantLoading: "eager", wantPriority: "low"},
		{index: 6, wantLoading: "lazy", wantPriority: "low"},
		{index: 40, wantLoading: "lazy", wantPriority: "low"},
	}

	s := record(submission.Fields{}, "https://dl.airtable.com/shot.png", false)
	for _, tt := range tests {
		img := find(parseFragment(t, Card(s, tt.index)), "img")[0]
		if got, _ := attrOf(img, "loading"); got != tt.wantLoading {
			t.Errorf("index %d: loading = %q, want %q", tt.index, got, tt.wantLoading)
		}
		if got, _ := attrOf(img, "fetchpriority"); got != tt.wantPriority {
			t.Errorf("index %d: fetchpriority = %q, want %q", tt.index, got, tt.wantPriority)
		}
	}
}

func TestCard_EscapesRecordValues(t *testing.T) {
	hostile := `<script>alert("x")</script>`
	s := record(submission.Fields{
		Title:       hostile,
		Description: `<img src=x onerror=alert(1)>`,
		EventCode:   `" onmouseover="alert(1)`,
		Status:      `approved" onclick="x`,
		CodeURL:     "javascript:alert(1)",
		PlayableURL: `https://example.com/a"b`,
	}, "https://dl.airtable.com/shot.png", false)

	nodes := parseFragment(t, Card(s, 0))

	if n := len(find(nodes, "script")); n != 0 {
		t.Errorf("found %d script elements", n)
	}
	if n := len(find(nodes, "img")); n != 1 {
		t.Errorf("found %d img elements, description markup leaked", n)
	}

	h3 := find(nodes, "h3")[0]
	if got := textOf(h3); got != hostile {
		t.Errorf("title text = %q, want %q", got, hostile)
	}

	card := find(nodes, "div")[0]
	if got, _ := attrOf(card, "data-event-code"); got != s.Fields.EventCode {
		t.Errorf("data-event-code = %q, want %q", got, s.Fields.EventCode)
	}
	if _, ok := attrOf(card, "onmouseover"); ok {
		t.Error("event code injected an attribute")
	}

	span := find(nodes, "span")[0]
	if got, _ := attrOf(span, "class"); got != "status pending" {
		t.Errorf("status class = %q, want status pending", got)
	}

	links := find(nodes, "a")
	if len(links) != 2 {
		t.Fatalf("found %d links, want 2", len(links))
	}
	if href, _ := attrOf(links[0], "href"); href != sanitize.FallbackURL {
		t.Errorf("code href = %q, want fallback", href)
	}
	if href, _ := attrOf(links[1], "href"); href != "https://example.com/a%22b" {
		t.Errorf("demo href = %q", href)
	}
	for _, a := range links {
		if rel, _ := attrOf(a, "rel"); rel != "noopener noreferrer" {
			t.Errorf("rel = %q", rel)
		}
		if target, _ := attrOf(a, "target"); target != "_blank" {
			t.Errorf("target = %q", target)
		}
	}
}

func TestCard_TitleAndDescription(t *testing.T) {
	long := strings.Repeat("é", 150)
	exact := strings.Repeat("b", DescriptionLimit)

	tests := []struct {
		name      string
		fields    submission.Fields
		wantTitle string
		wantDesc  string
		wantP     bool
	}{
		{name: "default title, no description", fields: submission.Fields{}, wantTitle: DefaultTitle},
		{name: "long description truncated", fields: submission.Fields{Title: "T", Description: long}, wantTitle: "T", wantDesc: strings.Repeat("é", 100) + "...", wantP: true},
		{name: "exact limit kept", fields: submission.Fields{Title: "T", Description: exact}, wantTitle: "T", wantDesc: exact, wantP: true},
		{name: "entities not cut", fields: submission.Fields{Title: "T", Description: strings.Repeat("&", 120)}, wantTitle: "T", wantDesc: strings.Repeat("&", 100) + "...", wantP: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := parseFragment(t, Card(record(tt.fields, "https://a.example/p.png", false), 0))

			if got := textOf(find(nodes, "h3")[0]); got != tt.wantTitle {
				t.Errorf("title = %q, want %q", got, tt.wantTitle)
			}
			if got, _ := attrOf(find(nodes, "img")[0], "alt"); got != tt.wantTitle {
				t.Errorf("alt = %q, want %q", got, tt.wantTitle)
			}

			ps := find(nodes, "p")
			if (len(ps) == 1) != tt.wantP {
				t.Fatalf("found %d description paragraphs, want present=%v", len(ps), tt.wantP)
			}
			if tt.wantP {
				if got := textOf(ps[0]); got != tt.wantDesc {
					t.Errorf("description = %q, want %q", got, tt.wantDesc)
				}
			}
		})
	}
}

func TestGallery_Empty(t *testing.T) {
	if got := Gallery(nil); got != EmptyState {
		t.Errorf("Gallery(nil) = %q, want %q", got, EmptyState)
	}
	if EmptyState != `<h1 style="text-align: center;">No submissions found</h1>` {
		t.Errorf("EmptyState = %q", EmptyState)
	}
}

func TestGallery_CardsThenPerformanceBlock(t *testing.T) {
	records := make([]submission.Enriched, 8)
	for i := range records {
		records[i] = record(submission.Fields{Title: "P"}, "https://a.example/p.png", false)
	}

	out := Gallery(records)
	if !strings.HasSuffix(out, PerformanceBlock) {
		t.Error("gallery does not end with the performance block")
	}
	if !strings.Contains(PerformanceBlock, "<style>") || !strings.Contains(PerformanceBlock, "IntersectionObserver") {
		t.Error("performance block content missing")
	}

	nodes := parseFragment(t, out)
	cards := 0
	for _, div := range find(nodes, "div") {
		if c, _ := attrOf(div, "class"); c == "grid-submission" {
			cards++
		}
	}
	if cards != 8 {
		t.Errorf("found %d cards, want 8", cards)
	}
}

func TestIncremental_MatchesGallery(t *testing.T) {
	records := make([]submission.Enriched, 15)
	for i := range records {
		records[i] = record(submission.Fields{Title: string(rune('A' + i))}, "https://cdn.hackclub.com/p.png", i%2 == 0)
	}

	r := NewIncremental()
	r.Reset()
	for start := 0; start < len(records); start += 4 {
		end := min(start+4, len(records))
		r.Append(records[start:end])
	}

	if diff := cmp.Diff(Gallery(records), r.String()); diff != "" {
		t.Errorf("incremental output differs from full render (-want +got):\n%s", diff)
	}
	if r.Len() != 15 {
		t.Errorf("Len() = %d, want 15", r.Len())
	}

	// The last batch holds cards 12..14 only.
	last := parseFragment(t, r.Last())
	if got := len(find(last, "h3")); got != 3 {
		t.Errorf("last batch has %d cards, want 3", got)
	}
	if got := textOf(find(last, "h3")[0]); got != "M" {
		t.Errorf("last batch starts with %q, want M", got)
	}
}

func TestIncremental_ResetAndEmpty(t *testing.T) {
	r := NewIncremental()
	r.Append([]submission.Enriched{record(submission.Fields{}, "https://a.example/p.png", false)})

	r.Empty()
	if r.String() != EmptyState || r.Len() != 0 || r.Cards() != "" {
		t.Errorf("after Empty: String() = %q, Len() = %d", r.String(), r.Len())
	}

	r.Reset()
	r.Append([]submission.Enriched{record(submission.Fields{}, "https://a.example/p.png", false)})
	img := find(parseFragment(t, r.Cards()), "img")[0]
	if got, _ := attrOf(img, "fetchpriority"); got != "high" {
		t.Errorf("first card after reset has fetchpriority %q, want high", got)
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		content  string
		want     string
		wantErr  error
	}{
		{name: "replaces token", template: "<main>{{GALLERY_CONTENT}}</main>", content: "<p>x</p>", want: "<main><p>x</p></main>"},
		{name: "only first token", template: "{{GALLERY_CONTENT}}|{{GALLERY_CONTENT}}", content: "A", want: "A|{{GALLERY_CONTENT}}"},
		{name: "content inserted literally", template: "[{{GALLERY_CONTENT}}]", content: "$& $1", want: "[$& $1]"},
		{name: "missing token", template: "<main></main>", content: "x", wantErr: ErrPlaceholderMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Substitute(tt.template, tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Substitute() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScrollLoader(t *testing.T) {
	if got := ScrollLoader(""); got != "" {
		t.Errorf("ScrollLoader(\"\") = %q, want empty", got)
	}

	next := "/more?status=Approved&eventCode=A&page=2"
	nodes := parseFragment(t, ScrollLoader(next))

	var sentinel *html.Node
	for _, div := range find(nodes, "div") {
		if id, _ := attrOf(div, "id"); id == "gallery-more" {
			sentinel = div
		}
	}
	if sentinel == nil {
		t.Fatal("sentinel element missing")
	}
	if got, _ := attrOf(sentinel, "data-next"); got != next {
		t.Errorf("data-next = %q, want %q", got, next)
	}
	if len(find(nodes, "script")) != 1 {
		t.Error("scroll script missing")
	}
}
