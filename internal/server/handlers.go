package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"example.com/divelog/internal/archive"
	"example.com/divelog/internal/common"
	"example.com/divelog/internal/dict"
	"example.com/divelog/internal/export"
	"example.com/divelog/internal/shearwater"
)

// handleDecode accepts a raw dive log and streams the decoded dive back as
// NDJSON: a summary record first, then one record per sample. The upload
// is either the request body or the "divelog" field of a multipart form.
// Model and serial number come from query parameters; the model selects
// the hardware generation through the dictionary.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	model, err := parseUintParam(r, "model")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	serial, err := parseUintParam(r, "serial")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := s.readDiveLog(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var p *shearwater.Parser
	if s.models.Petrel(model) {
		p, err = shearwater.NewPetrel(data, model, serial)
	} else {
		p, err = shearwater.NewPredator(data, model, serial)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := export.Summarize(p, s.models, data)
	if err != nil {
		writeError(w, statusForDecodeError(err), err)
		return
	}

	var archived string
	if s.store != nil {
		id, _, err := s.store.Put(summary)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		archived = id
	}

	s.metrics.AddDive(int64(len(data)))
	s.metrics.AddSamples(int64(summary.SampleCount))

	w.Header().Set("Content-Type", "application/x-ndjson")
	nw := export.NewNDJSONWriter(w)
	head := struct {
		Summary export.Summary `json:"summary"`
		DiveID  string         `json:"diveId,omitempty"`
	}{Summary: summary, DiveID: archived}
	if err := nw.WriteObject(head); err != nil {
		common.Logf("decode response: %v", err)
		return
	}
	// The summary pass already validated the stream, so a failure here
	// can only come from the client connection.
	err = p.Samples(func(sample shearwater.Sample) {
		if wErr := nw.WriteSample(sample); wErr != nil {
			common.Logf("decode response: %v", wErr)
		}
	})
	if err != nil {
		common.Logf("sample stream after summary: %v", err)
	}
}

func (s *Server) readDiveLog(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(s.maxBody); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		file, _, err := r.FormFile("divelog")
		if err != nil {
			return nil, fmt.Errorf("missing divelog field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read dive log: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty dive log")
	}
	return data, nil
}

func parseUintParam(r *http.Request, name string) (uint32, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	v, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return uint32(v), nil
}

// handleDives lists archived dives, newest last.
func (s *Server) handleDives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = v
	}
	dives, err := s.store.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Dives []archive.Stored `json:"dives"`
	}{Dives: dives})
}

// handleDive returns one archived dive by id.
func (s *Server) handleDive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/dives/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid dive id %q", id))
		return
	}
	sum, err := s.store.Get(id)
	if errors.Is(err, archive.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, archive.Stored{ID: id, Summary: sum})
}

// handleModels returns the model dictionary as seen by the decoder.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Models []dict.Entry `json:"models"`
	}{Models: s.models.Entries()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.metrics.Snapshot()
	writeJSON(w, http.StatusOK, struct {
		UptimeSeconds float64 `json:"uptimeSeconds"`
		Bytes         int64   `json:"bytes"`
		Dives         int64   `json:"dives"`
		Samples       int64   `json:"samples"`
	}{
		UptimeSeconds: snap.Duration.Seconds(),
		Bytes:         snap.Bytes,
		Dives:         snap.Dives,
		Samples:       snap.Samples,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}
