// Package report renders dive summaries into PDF documents and saves them
// as JSON, with a QR code carrying the dive log fingerprint.
package report

import (
	"os"

	json "github.com/goccy/go-json"

	"example.com/divelog/internal/export"
)

func SaveSummaryJSON(sum export.Summary, out string) error {
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

func LoadSummaryJSON(path string) (export.Summary, error) {
	var sum export.Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return sum, err
	}
	err = json.Unmarshal(b, &sum)
	return sum, err
}
