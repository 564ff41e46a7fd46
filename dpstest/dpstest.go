// Copyright (c) 2023 The KBase Project and its Contributors
// Copyright (c) 2023 Cohere Consulting, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package contains testing utilities for the Dataset Publication
// Service: fake CKAN and ESS-DIVE servers backed by in-memory fixtures.
package dpstest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"
)

// Enables DEBUG log messages for DPS's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

//------------------
// Fake CKAN server
//------------------

// This type serves the slice of the CKAN action API the DPS relies on
// (package_show and package_search) plus resource downloads under
// /resources/<name>, all backed by in-memory fixtures.
type CkanServer struct {
	*httptest.Server
	// package_show fixtures, keyed by dataset name and ID
	Datasets map[string]map[string]any
	// resource download bodies, keyed by the final URL path element
	Files map[string][]byte
	// an artificial delay applied to each resource download, letting tests
	// catch a publication run mid-staging
	FetchDelay time.Duration
}

// creates and starts a fake CKAN server with the given dataset fixtures
func NewCkanServer(datasets []map[string]any, files map[string][]byte) *CkanServer {
	server := &CkanServer{
		Datasets: make(map[string]map[string]any),
		Files:    files,
	}
	for _, dataset := range datasets {
		if id, ok := dataset["id"].(string); ok && id != "" {
			server.Datasets[id] = dataset
		}
		if name, ok := dataset["name"].(string); ok && name != "" {
			server.Datasets[name] = dataset
		}
	}
	server.Server = httptest.NewServer(http.HandlerFunc(server.handle))
	return server
}

// returns the URL from which the named fixture file can be fetched
func (s *CkanServer) FileURL(name string) string {
	return fmt.Sprintf("%s/resources/%s", s.URL, name)
}

func (s *CkanServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/api/3/action/package_show"):
		s.packageShow(w, r)
	case strings.HasSuffix(r.URL.Path, "/api/3/action/package_search"):
		s.packageSearch(w, r)
	case strings.HasPrefix(r.URL.Path, "/resources/"):
		s.serveFile(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *CkanServer) packageShow(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	dataset, found := s.Datasets[id]
	if !found {
		writeEnvelope(w, http.StatusNotFound, false, map[string]any{
			"__type": "Not Found Error", "message": "Not found",
		})
		return
	}
	writeEnvelope(w, http.StatusOK, true, dataset)
}

func (s *CkanServer) packageSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := make([]map[string]any, 0)
	seen := make(map[string]bool)
	for _, dataset := range s.Datasets {
		id, _ := dataset["id"].(string)
		if seen[id] {
			continue
		}
		title, _ := dataset["title"].(string)
		name, _ := dataset["name"].(string)
		if query == "" || strings.Contains(title, query) || strings.Contains(name, query) {
			seen[id] = true
			results = append(results, dataset)
		}
	}
	writeEnvelope(w, http.StatusOK, true, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *CkanServer) serveFile(w http.ResponseWriter, r *http.Request) {
	if s.FetchDelay > 0 {
		time.Sleep(s.FetchDelay)
	}
	name := strings.TrimPrefix(r.URL.Path, "/resources/")
	body, found := s.Files[name]
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(body)
}

// writes a CKAN action API response envelope
func writeEnvelope(w http.ResponseWriter, status int, success bool, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	envelope := map[string]any{"success": success}
	if success {
		envelope["result"] = result
	} else {
		envelope["error"] = result
	}
	json.NewEncoder(w).Encode(envelope)
}

//----------------------
// Fake ESS-DIVE server
//----------------------

// This type serves the ESS-DIVE dataset API (POST /datasets), recording
// every submission it receives so tests can assert on write traffic.
type EssDiveServer struct {
	*httptest.Server
	// the ID minted for each accepted submission
	MintId string
	// a non-zero value forces every submission to fail with this status
	FailStatus int
	// a reason reported with forced failures
	FailReason string

	mutex sync.Mutex
	// the payloads received so far, in arrival order
	submissions []map[string]any
}

// creates and starts a fake ESS-DIVE server that mints the given dataset ID
func NewEssDiveServer(mintId string) *EssDiveServer {
	server := &EssDiveServer{MintId: mintId}
	server.Server = httptest.NewServer(http.HandlerFunc(server.handle))
	return server
}

// returns the number of submissions the server has accepted or rejected
func (s *EssDiveServer) NumSubmissions() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.submissions)
}

// returns the most recently received payload (nil if there is none)
func (s *EssDiveServer) LastSubmission() map[string]any {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.submissions) == 0 {
		return nil
	}
	return s.submissions[len(s.submissions)-1]
}

func (s *EssDiveServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/datasets") {
		http.NotFound(w, r)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mutex.Lock()
	s.submissions = append(s.submissions, payload)
	s.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.FailStatus != 0 {
		w.WriteHeader(s.FailStatus)
		json.NewEncoder(w).Encode(map[string]any{"detail": s.FailReason})
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"id": s.MintId})
}
