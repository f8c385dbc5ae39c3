package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeGemini is a stand-in for the generateContent endpoint.
type FakeGemini struct {
	Server *httptest.Server

	mu       sync.Mutex
	text     string
	status   int
	body     string
	hang     bool
	requests int
	lastBody []byte
	release  chan struct{}
}

func NewFakeGemini(t *testing.T) *FakeGemini {
	t.Helper()

	f := &FakeGemini{status: http.StatusOK, release: make(chan struct{})}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(func() {
		close(f.release)
		f.Server.Close()
	})
	return f
}

func (f *FakeGemini) URL() string {
	return f.Server.URL
}

// Respond makes the next calls succeed with text as the first candidate.
func (f *FakeGemini) Respond(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.status, f.body, f.hang = text, http.StatusOK, "", false
}

// Fail makes the next calls return status with body.
func (f *FakeGemini) Fail(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body, f.hang = status, body, false
}

// Hang makes the next calls block until the caller gives up.
func (f *FakeGemini) Hang() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hang = true
}

func (f *FakeGemini) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// LastRequest returns the body of the most recent call.
func (f *FakeGemini) LastRequest() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func (f *FakeGemini) serve(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests++
	f.lastBody = body
	text, status, errBody, hang := f.text, f.status, f.body, f.hang
	f.mu.Unlock()

	if hang {
		select {
		case <-r.Context().Done():
		case <-f.release:
		}
		return
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		w.Write([]byte(errBody))
		return
	}

	resp := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]string{"text": text}},
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
