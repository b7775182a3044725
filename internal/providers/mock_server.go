package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is an httptest-backed stand-in for a provider API. Adapter
// tests register responses per path and then point the adapter at URL()
// through the base-URL extension key.
type MockServer struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string][]MockResponse
	requests  []RecordedRequest
}

// MockResponse is one canned response. Registering several for the same
// path serves them in order, which is how retry behavior gets exercised;
// the last one repeats once the queue drains.
type MockResponse struct {
	StatusCode int
	Body       any
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest captures one request the mock received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewMockServer starts a mock provider server. Callers must Close it.
func NewMockServer() *MockServer {
	ms := &MockServer{responses: make(map[string][]MockResponse)}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string { return ms.server.URL }

// Close shuts the server down.
func (ms *MockServer) Close() { ms.server.Close() }

// Respond registers a response for a path.
func (ms *MockServer) Respond(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = append(ms.responses[path], response)
}

// RespondJSON registers a 200 response with a JSON body.
func (ms *MockServer) RespondJSON(path string, body any) {
	ms.Respond(path, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// Requests returns a copy of everything received so far.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]RecordedRequest, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// RequestCount returns how many requests hit a path.
func (ms *MockServer) RequestCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, req := range ms.requests {
		if req.Path == path {
			n++
		}
	}
	return n
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	queue := ms.responses[r.URL.Path]
	var response MockResponse
	switch {
	case len(queue) == 0:
		ms.mu.Unlock()
		http.NotFound(w, r)
		return
	case len(queue) == 1:
		response = queue[0]
	default:
		response = queue[0]
		ms.responses[r.URL.Path] = queue[1:]
	}
	ms.mu.Unlock()

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}
	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}

	switch v := response.Body.(type) {
	case nil:
		w.WriteHeader(response.StatusCode)
	case string:
		w.WriteHeader(response.StatusCode)
		_, _ = w.Write([]byte(v))
	case []byte:
		w.WriteHeader(response.StatusCode)
		_, _ = w.Write(v)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(response.StatusCode)
		_ = json.NewEncoder(w).Encode(v)
	}
}
