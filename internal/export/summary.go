// Package export renders decoded dives into interchange formats: a JSON
// summary, an NDJSON sample stream and a batch manifest.
package export

import (
	"fmt"
	"time"

	"example.com/divelog/internal/common"
	"example.com/divelog/internal/dict"
	"example.com/divelog/internal/shearwater"
)

// Summary is the per-dive header in JSON form.
type Summary struct {
	Product     string            `json:"product"`
	Model       uint32            `json:"model"`
	Serial      string            `json:"serial"`
	Layout      string            `json:"layout"`
	LogVersion  int               `json:"logVersion"`
	Start       time.Time         `json:"start"`
	Duration    float64           `json:"durationSeconds"`
	MaxDepth    float64           `json:"maxDepthMeters"`
	Mode        string            `json:"mode"`
	WaterType   string            `json:"waterType"`
	Density     float64           `json:"densityKgM3"`
	Atmospheric float64           `json:"atmosphericBar"`
	GasMixes    []GasMixSummary   `json:"gasMixes"`
	Metadata    []MetadataSummary `json:"metadata,omitempty"`
	SampleCount int               `json:"sampleCount"`
	Fingerprint string            `json:"fingerprint"`
}

type GasMixSummary struct {
	Oxygen   float64 `json:"o2"`
	Helium   float64 `json:"he"`
	Nitrogen float64 `json:"n2"`
}

type MetadataSummary struct {
	Desc  string `json:"desc"`
	Value string `json:"value"`
}

// Summarize decodes the dive header and runs the sample pass once to count
// the emitted samples. The fingerprint is the SHA-256 of the raw dive log.
func Summarize(p *shearwater.Parser, models *dict.Store, raw []byte) (Summary, error) {
	s := Summary{
		Product:     models.Name(p.Model()),
		Model:       p.Model(),
		Serial:      fmt.Sprintf("%08x", p.Serial()),
		Fingerprint: common.Sha256OfBytes(raw),
	}

	cfg, err := p.Format()
	if err != nil {
		return s, err
	}
	if cfg.PNF {
		s.Layout = "native"
	} else {
		s.Layout = "legacy"
	}

	if s.LogVersion, err = p.LogVersion(); err != nil {
		return s, err
	}
	if s.Start, err = p.DiveStart(); err != nil {
		return s, err
	}
	duration, err := p.DiveTime()
	if err != nil {
		return s, err
	}
	s.Duration = duration.Seconds()
	if s.MaxDepth, err = p.MaxDepth(); err != nil {
		return s, err
	}

	mode, err := p.Mode()
	if err != nil {
		return s, err
	}
	s.Mode = mode.String()

	salinity, err := p.WaterSalinity()
	if err != nil {
		return s, err
	}
	if salinity.Type == shearwater.FreshWater {
		s.WaterType = "fresh"
	} else {
		s.WaterType = "salt"
	}
	s.Density = salinity.Density
	if s.Atmospheric, err = p.Atmospheric(); err != nil {
		return s, err
	}

	count, err := p.GasMixCount()
	if err != nil {
		return s, err
	}
	for i := 0; i < count; i++ {
		mix, err := p.GasMix(i)
		if err != nil {
			return s, err
		}
		s.GasMixes = append(s.GasMixes, GasMixSummary{
			Oxygen:   mix.Oxygen,
			Helium:   mix.Helium,
			Nitrogen: mix.Nitrogen,
		})
	}

	strings, err := p.MetadataStrings()
	if err != nil {
		return s, err
	}
	for _, ms := range strings {
		s.Metadata = append(s.Metadata, MetadataSummary{Desc: ms.Desc, Value: ms.Value})
	}

	if err := p.Samples(func(shearwater.Sample) { s.SampleCount++ }); err != nil {
		return s, err
	}
	return s, nil
}
