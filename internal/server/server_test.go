package server

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"example.com/divelog/internal/archive"
	"example.com/divelog/internal/export"
	"example.com/divelog/internal/synth"
)

func newTestServer(t *testing.T, opts Options) (*Server, http.Handler) {
	t.Helper()
	s, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s, NewRouter(s)
}

func testDiveLog() []byte {
	b := synth.NewPNF(synth.Header{
		Start:       1600000000,
		DiveTimeRaw: 754,
		MaxDepthRaw: 123,
	})
	s := synth.NewSample()
	s.DepthRaw = 100
	b.AddSample(s)
	b.AddSample(s)
	return b.Bytes()
}

type decodeHead struct {
	Summary export.Summary `json:"summary"`
	DiveID  string         `json:"diveId"`
}

func postDecode(t *testing.T, h http.Handler, url string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDecodeEndpoint(t *testing.T) {
	_, h := newTestServer(t, Options{})

	rec := postDecode(t, h, "/v1/decode?model=3&serial=4660", testDiveLog())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(rec.Body)
	if !scanner.Scan() {
		t.Fatal("empty response")
	}
	var head decodeHead
	if err := json.Unmarshal(scanner.Bytes(), &head); err != nil {
		t.Fatalf("summary line: %v", err)
	}
	if head.Summary.Product != "Petrel" || head.Summary.Duration != 754 {
		t.Fatalf("summary = %+v", head.Summary)
	}
	if head.DiveID != "" {
		t.Fatalf("dive archived without an archive: %q", head.DiveID)
	}

	lines := 0
	for scanner.Scan() {
		var rec export.SampleRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("sample line %d: %v", lines, err)
		}
		lines++
	}
	if lines != head.Summary.SampleCount {
		t.Fatalf("got %d sample lines, summary says %d", lines, head.Summary.SampleCount)
	}
}

func TestDecodeParameterValidation(t *testing.T) {
	_, h := newTestServer(t, Options{})

	cases := []struct {
		name string
		url  string
		body []byte
	}{
		{"missing model", "/v1/decode?serial=1", testDiveLog()},
		{"missing serial", "/v1/decode?model=3", testDiveLog()},
		{"bad model", "/v1/decode?model=abc&serial=1", testDiveLog()},
		{"empty body", "/v1/decode?model=3&serial=1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := postDecode(t, h, tc.url, tc.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/decode?model=3&serial=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
}

func TestDecodeRejectsBrokenDive(t *testing.T) {
	_, h := newTestServer(t, Options{})
	rec := postDecode(t, h, "/v1/decode?model=3&serial=1", []byte{0x01, 0x02, 0x03})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Fatalf("error body = %q (%v)", rec.Body.String(), err)
	}
}

func TestArchiveEndpoints(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	_, h := newTestServer(t, Options{ArchiveDir: dir})

	rec := postDecode(t, h, "/v1/decode?model=3&serial=1", testDiveLog())
	if rec.Code != http.StatusOK {
		t.Fatalf("decode status = %d: %s", rec.Code, rec.Body.String())
	}
	scanner := bufio.NewScanner(rec.Body)
	if !scanner.Scan() {
		t.Fatal("empty decode response")
	}
	var head decodeHead
	if err := json.Unmarshal(scanner.Bytes(), &head); err != nil {
		t.Fatalf("summary line: %v", err)
	}
	if head.DiveID == "" {
		t.Fatal("decode did not archive the dive")
	}

	// Decoding the same dive again must not create a second entry.
	if rec := postDecode(t, h, "/v1/decode?model=3&serial=1", testDiveLog()); rec.Code != http.StatusOK {
		t.Fatalf("second decode status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/dives", nil)
	listRec := httptest.NewRecorder()
	h.ServeHTTP(listRec, req)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRec.Code)
	}
	var listing struct {
		Dives []archive.Stored `json:"dives"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(listing.Dives) != 1 || listing.Dives[0].ID != head.DiveID {
		t.Fatalf("listing = %+v, want the single archived dive", listing.Dives)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/dives/"+head.DiveID, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/dives/no-such-id", nil)
	missRec := httptest.NewRecorder()
	h.ServeHTTP(missRec, req)
	if missRec.Code != http.StatusNotFound {
		t.Fatalf("missing dive status = %d, want 404", missRec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	if rec := postDecode(t, h, "/v1/decode?model=3&serial=1", testDiveLog()); rec.Code != http.StatusOK {
		t.Fatalf("decode status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var snap struct {
		Dives   int64 `json:"dives"`
		Samples int64 `json:"samples"`
		Bytes   int64 `json:"bytes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("metrics body: %v", err)
	}
	if snap.Dives != 1 || snap.Samples == 0 || snap.Bytes == 0 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestModelsEndpoint(t *testing.T) {
	_, h := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Models []struct {
			Model uint32 `json:"Model"`
			Name  string `json:"Name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(resp.Models) == 0 || resp.Models[0].Model != 2 || resp.Models[0].Name != "Predator" {
		t.Fatalf("models = %+v", resp.Models)
	}
}
