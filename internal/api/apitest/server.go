// Package apitest provides a configurable fake Preptara backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/Saivarun91/preptara-cli/internal/api"
)

// Server is an httptest-backed fake of the Preptara REST API. Behavior is
// driven by the exported fields; counters record what the client actually
// sent so tests can assert on call counts and payloads.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Login
	LoginToken string
	LoginUser  api.User
	LoginFails bool

	// Enrollment
	Enrolled      bool
	EnrollStatus  int // non-zero forces an error status on the check call
	EnrollCalls   int
	LastCategory  string
	SawCredential string

	// Attempt start
	Start       api.StartAttemptResponse
	StartStatus int // non-zero forces an error status
	StartCalls  int

	// Attempt submit
	SubmitStatus   int // non-zero forces an error status
	SubmitCalls    int
	LastSubmission api.SubmitAttemptRequest

	// Result
	Result       api.AttemptResult
	ResultStatus int

	// Categories
	Categories []api.Category
}

// New starts the fake backend. Callers own shutdown via Close.
func New() *Server {
	s := &Server{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/login/", s.handleLogin)
	mux.HandleFunc("/api/courses/categories/", s.handleCategories)
	mux.HandleFunc("/api/enroll/status/", s.handleEnrollStatus)
	mux.HandleFunc("/api/tests/start-attempt/", s.handleStartAttempt)
	mux.HandleFunc("/api/tests/submit-attempt/", s.handleSubmitAttempt)
	mux.HandleFunc("/api/tests/attempt-result/", s.handleAttemptResult)

	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	s.mu.Lock()
	fails := s.LoginFails
	token := s.LoginToken
	user := s.LoginUser
	s.mu.Unlock()

	if fails {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token, User: user})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	s.mu.Lock()
	categories := s.Categories
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string][]api.Category{"categories": categories})
}

func (s *Server) handleEnrollStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	s.mu.Lock()
	s.EnrollCalls++
	s.LastCategory = r.URL.Query().Get("category")
	s.SawCredential = bearerToken(r)
	status := s.EnrollStatus
	enrolled := s.Enrolled
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "enrollment check failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enrolled": enrolled})
}

func (s *Server) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	s.mu.Lock()
	s.StartCalls++
	status := s.StartStatus
	payload := s.Start
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "could not start attempt"})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var request api.SubmitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	s.mu.Lock()
	s.SubmitCalls++
	s.LastSubmission = request
	status := s.SubmitStatus
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "submission rejected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "scored"})
}

func (s *Server) handleAttemptResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	s.mu.Lock()
	status := s.ResultStatus
	result := s.Result
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "result not found"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Submissions returns how many submit calls the backend has seen.
func (s *Server) Submissions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SubmitCalls
}

// SetSubmitStatus flips the submit outcome mid-test.
func (s *Server) SetSubmitStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SubmitStatus = status
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
