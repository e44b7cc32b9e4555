// Package testutil provides a mock query API and CDN for gallery tests.
package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

// CDNPath is the upload path served by the mock.
const CDNPath = "/api/v3/new"

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend serves the query API (GET /v0.1/{base}/{table}) and the CDN
// upload endpoint (POST /api/v3/new) from one httptest server.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	records     []submission.Submission
	failUploads map[string]bool
	uploads     map[string]int

	// Tracking
	QueryCount  int
	UploadCount int
	LastFormula string
	LastToken   string
}

// NewMockBackend creates and starts a mock backend.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failUploads: make(map[string]bool),
		uploads:     make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == CDNPath:
			mock.uploadHandler(w, r)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v0.1/"):
			mock.queryHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the server origin, usable as the query API base URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// CDNURL returns the upload endpoint.
func (m *MockBackend) CDNURL() string {
	return m.server.URL + CDNPath
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount = 0
	m.UploadCount = 0
	m.LastFormula = ""
	m.LastToken = ""
	m.uploads = make(map[string]int)
}

// SetRecords sets the table content returned by the query API.
func (m *MockBackend) SetRecords(records ...submission.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]submission.Submission(nil), records...)
}

// FailUpload makes uploads of imageURL answer 500.
func (m *MockBackend) FailUpload(imageURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUploads[imageURL] = true
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetQueryCount returns the number of query API requests.
func (m *MockBackend) GetQueryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.QueryCount
}

// GetUploadCount returns the number of upload requests.
func (m *MockBackend) GetUploadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.UploadCount
}

// UploadsOf returns how often imageURL was uploaded.
func (m *MockBackend) UploadsOf(imageURL string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads[imageURL]
}

// GetLastFormula returns the filterByFormula of the last query.
func (m *MockBackend) GetLastFormula() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastFormula
}

// GetLastToken returns the bearer token of the last upload.
func (m *MockBackend) GetLastToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastToken
}

// DeployedURL is the CDN URL the mock assigns to imageURL.
func DeployedURL(imageURL string) string {
	sum := md5.Sum([]byte(imageURL))
	return "https://cdn.hackclub.com/" + hex.EncodeToString(sum[:8]) + "_" + path.Base(imageURL)
}

var (
	statusClause = regexp.MustCompile(`\{Status\} = '([^']*)'`)
	eventClause  = regexp.MustCompile(`\{Event Code\} = '([^']*)'`)
)

func (m *MockBackend) queryHandler(w http.ResponseWriter, r *http.Request) {
	var sel struct {
		FilterByFormula string `json:"filterByFormula"`
	}
	if err := json.Unmarshal([]byte(r.URL.Query().Get("select")), &sel); err != nil {
		http.Error(w, `{"error":"invalid select"}`, http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.QueryCount++
	m.LastFormula = sel.FilterByFormula
	records := append([]submission.Submission(nil), m.records...)
	m.mu.Unlock()

	// Enough formula support for status and event code filters.
	status, event := "", ""
	if match := statusClause.FindStringSubmatch(sel.FilterByFormula); match != nil {
		status = match[1]
	}
	if match := eventClause.FindStringSubmatch(sel.FilterByFormula); match != nil {
		event = match[1]
	}

	out := make([]submission.Submission, 0, len(records))
	for _, rec := range records {
		if status != "" && rec.Fields.Status != status {
			continue
		}
		if event != "" && rec.Fields.EventCode != event {
			continue
		}
		out = append(out, rec)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(out)
}

func (m *MockBackend) uploadHandler(w http.ResponseWriter, r *http.Request) {
	var urls []string
	if err := json.NewDecoder(r.Body).Decode(&urls); err != nil || len(urls) != 1 {
		http.Error(w, "expected a single-element url array", http.StatusBadRequest)
		return
	}
	imageURL := urls[0]

	m.mu.Lock()
	m.UploadCount++
	m.uploads[imageURL]++
	m.LastToken = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	fail := m.failUploads[imageURL]
	m.mu.Unlock()

	if fail {
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"files": []map[string]string{{"deployedUrl": DeployedURL(imageURL)}},
	})
}

// NewRecord builds a submission with one screenshot (none when shot is empty).
func NewRecord(id, title, status, eventCode, shot string) submission.Submission {
	s := submission.Submission{
		ID: id,
		Fields: submission.Fields{
			Title:       title,
			Status:      status,
			EventCode:   eventCode,
			CodeURL:     "https://github.com/hackclub/" + id,
			PlayableURL: "https://" + id + ".example.com",
		},
	}
	if shot != "" {
		s.Fields.Screenshot = []submission.Attachment{{ID: "att" + id, URL: shot}}
	}
	return s
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
