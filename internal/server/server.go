// Package server exposes the dive log decoder over HTTP. Uploads are
// decoded in the request handler and streamed back as NDJSON; decoded
// summaries can optionally be archived for later listing.
package server

import (
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"example.com/divelog/internal/archive"
	"example.com/divelog/internal/common"
	"example.com/divelog/internal/dict"
)

const defaultMaxBodyBytes = 4 << 20 // dive logs are at most a few hundred KiB

// Options configures server creation.
type Options struct {
	// Dictionary is an optional model dictionary JSON path; empty uses
	// the builtin table.
	Dictionary string
	// ArchiveDir enables the dive archive endpoints when non-empty.
	ArchiveDir string
	// MaxBodyBytes caps uploaded dive log size.
	MaxBodyBytes int64
}

// Server coordinates the HTTP handlers.
type Server struct {
	models  *dict.Store
	store   *archive.Store
	metrics *common.Metrics
	maxBody int64
}

func NewServer(opts Options) (*Server, error) {
	models, err := dict.EnsureLoaded(opts.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("load model dictionary: %w", err)
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	s := &Server{
		models:  models,
		metrics: common.NewMetrics(),
		maxBody: maxBody,
	}
	s.metrics.Start()

	if opts.ArchiveDir != "" {
		store, err := archive.Open(opts.ArchiveDir)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s, nil
}

// Close releases the archive store, if any.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		common.Logf("write response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForDecodeError maps decoder failures onto HTTP status codes.
func statusForDecodeError(err error) int {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}
