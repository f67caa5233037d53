package export

import (
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"example.com/divelog/internal/common"
)

// ManifestItem is one output file with its integrity hash.
type ManifestItem struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

// Manifest records the outputs of one batch run.
type Manifest struct {
	RunID     string         `json:"runId"`
	CreatedAt time.Time      `json:"createdAt"`
	ShaAlgo   string         `json:"shaAlgo"`
	Items     []ManifestItem `json:"items"`
}

// BuildManifest hashes every path and classifies it by extension.
func BuildManifest(paths []string) (Manifest, error) {
	m := Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		ShaAlgo:   "sha256",
	}
	for _, p := range paths {
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, err
		}
		typ := "other"
		switch {
		case hasExt(p, ".bin", ".dump", ".swlog"):
			typ = "divelog"
		case hasExt(p, ".ndjson"):
			typ = "ndjson"
		case hasExt(p, ".json"):
			typ = "json"
		case hasExt(p, ".pdf"):
			typ = "pdf"
		}
		m.Items = append(m.Items, ManifestItem{Path: p, Size: sz, Sha256: hex, Type: typ})
	}
	return m, nil
}

func hasExt(path string, exts ...string) bool {
	for _, e := range exts {
		if strings.HasSuffix(path, e) {
			return true
		}
	}
	return false
}

// SaveManifest writes the manifest as indented JSON.
func SaveManifest(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}
