package testing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"time"
)

// InstallationID is the installation the mock server reports for owner/repo.
const InstallationID = 99

var commentPath = regexp.MustCompile(`^/repos/owner/repo/issues/(\d+)/comments$`)

// MockServer records comments posted through the mock GitHub API.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	comments []string
	tokens   int
	authz    []string
}

// NewMockGitHubServer starts a local httptest server that responds to the
// minimal set of endpoints used by tests:
// - GET  /repos/owner/repo/installation -> {"id": 99}
// - POST /app/installations/99/access_tokens -> 201 with a one hour token
// - POST /repos/owner/repo/issues/{number}/comments -> 201 {"id": 123456}
// Callers must Close the server.
func NewMockGitHubServer() *MockServer {
	m := &MockServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/owner/repo/installation", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"id": InstallationID})
	})

	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		m.mu.Lock()
		m.tokens++
		m.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{
			"token":      "ghs_mock_installation_token",
			"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/repos/owner/repo/issues/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !commentPath.MatchString(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var payload struct {
			Body string `json:"body"`
		}
		_ = json.Unmarshal(raw, &payload)

		m.mu.Lock()
		m.comments = append(m.comments, payload.Body)
		m.authz = append(m.authz, r.Header.Get("Authorization"))
		m.mu.Unlock()

		writeJSON(w, http.StatusCreated, map[string]int{"id": 123456})
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// Comments returns the bodies of all posted comments.
func (m *MockServer) Comments() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.comments...)
}

// Authorizations returns the Authorization headers sent with each comment.
func (m *MockServer) Authorizations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.authz...)
}

// TokenRequests returns how many installation tokens were minted.
func (m *MockServer) TokenRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
