package smoke

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"example.com/divelog/internal/archive"
	"example.com/divelog/internal/dict"
	"example.com/divelog/internal/export"
	"example.com/divelog/internal/report"
	"example.com/divelog/internal/shearwater"
	"example.com/divelog/internal/synth"
)

// Full pipeline over a synthetic dive: build -> parse -> summarize ->
// NDJSON -> PDF -> archive. Each stage has its own package tests; this
// one checks they still fit together.
func TestDecodePipeline(t *testing.T) {
	b := synth.NewPNF(synth.Header{
		Start:       1600000000,
		DiveTimeRaw: 600,
		MaxDepthRaw: 312,
	})
	for i := 0; i < 10; i++ {
		s := synth.NewSample()
		s.DepthRaw = uint16(50 * (i + 1))
		s.Temperature = 18
		if i >= 5 {
			s.O2 = 50
		}
		b.AddSample(s)
	}
	raw := b.Bytes()

	p, err := shearwater.NewPetrel(raw, 3, 0x1234)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	models := dict.Builtin()

	sum, err := export.Summarize(p, models, raw)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Product != "Petrel" || sum.Duration != 600 || sum.SampleCount == 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.GasMixes) != 2 {
		t.Fatalf("gas mixes = %+v", sum.GasMixes)
	}

	var ndjson bytes.Buffer
	n, err := export.StreamSamples(&ndjson, p)
	if err != nil {
		t.Fatalf("StreamSamples: %v", err)
	}
	if n != sum.SampleCount {
		t.Fatalf("streamed %d samples, summary says %d", n, sum.SampleCount)
	}
	scanner := bufio.NewScanner(&ndjson)
	for scanner.Scan() {
		var rec export.SampleRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("sample line: %v", err)
		}
	}

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "dive.pdf")
	if err := report.SaveDivePDF(sum, pdfPath, report.LangEnglish); err != nil {
		t.Fatalf("SaveDivePDF: %v", err)
	}
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("not a PDF: %q", pdf[:8])
	}

	store, err := archive.Open(filepath.Join(dir, "archive"))
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	defer store.Close()
	id, created, err := store.Put(sum)
	if err != nil || !created {
		t.Fatalf("Put = %q, %v, %v", id, created, err)
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fingerprint != sum.Fingerprint {
		t.Fatalf("fingerprint mismatch: %q vs %q", got.Fingerprint, sum.Fingerprint)
	}
}
