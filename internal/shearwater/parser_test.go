package shearwater

import (
	"errors"
	"testing"
	"time"

	"example.com/divelog/internal/synth"
)

func newTestDive(h synth.Header, samples ...synth.Sample) []byte {
	b := synth.NewPNF(h)
	for _, s := range samples {
		b.AddSample(s)
	}
	return b.Bytes()
}

func findString(t *testing.T, p *Parser, desc string) string {
	t.Helper()
	strings, err := p.MetadataStrings()
	if err != nil {
		t.Fatalf("MetadataStrings: %v", err)
	}
	for _, s := range strings {
		if s.Desc == desc {
			return s.Value
		}
	}
	t.Fatalf("metadata string %q not found in %v", desc, strings)
	return ""
}

func TestNewParserNilBuffer(t *testing.T) {
	if _, err := NewPetrel(nil, ModelPetrel, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NewPetrel(nil) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewPredator(nil, ModelPredator, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NewPredator(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestCacheBuiltOnce(t *testing.T) {
	data := newTestDive(synth.Header{}, synth.NewSample())
	p, err := NewPetrel(data, ModelPetrel, 0x1234)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}

	if _, err := p.DiveTime(); err != nil {
		t.Fatalf("DiveTime: %v", err)
	}
	if _, err := p.MaxDepth(); err != nil {
		t.Fatalf("MaxDepth: %v", err)
	}
	if err := p.Samples(nil); err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if p.scans != 1 {
		t.Fatalf("scan ran %d times, want 1", p.scans)
	}
}

func TestSetDataResetsCache(t *testing.T) {
	p, err := NewPetrel(newTestDive(synth.Header{DiveTimeRaw: 600}), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	if d, _ := p.DiveTime(); d != 10*time.Minute {
		t.Fatalf("dive time = %v, want 10m", d)
	}

	if err := p.SetData(newTestDive(synth.Header{DiveTimeRaw: 1200})); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if d, _ := p.DiveTime(); d != 20*time.Minute {
		t.Fatalf("dive time after SetData = %v, want 20m", d)
	}
	if p.scans != 2 {
		t.Fatalf("scan ran %d times, want 2", p.scans)
	}
	if err := p.SetData(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetData(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestDiveStart(t *testing.T) {
	data := newTestDive(synth.Header{Start: 1600000000})
	p, err := NewPetrel(data, ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	start, err := p.DiveStart()
	if err != nil {
		t.Fatalf("DiveStart: %v", err)
	}
	if want := time.Unix(1600000000, 0).UTC(); !start.Equal(want) {
		t.Fatalf("dive start = %v, want %v", start, want)
	}
}

func TestMissingOpeningRecord(t *testing.T) {
	data := newTestDive(synth.Header{}, synth.NewSample())
	// Zero out opening record 2; the scan treats all-zero records as
	// padding and the mandatory record check must fire.
	for i := 2 * 32; i < 3*32; i++ {
		data[i] = 0
	}
	p, err := NewPetrel(data, ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	if _, err := p.DiveTime(); !errors.Is(err, ErrDataFormat) {
		t.Fatalf("error = %v, want ErrDataFormat", err)
	}
}

func TestMetadataStrings(t *testing.T) {
	h := synth.Header{
		LogVersion:  8,
		GFLow:       30,
		GFHigh:      85,
		BatteryType: 3,
	}
	p, err := NewPetrel(newTestDive(h, synth.NewSample()), ModelPetrel, 0x0badcafe)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}

	cases := []struct {
		desc, want string
	}{
		{"Logversion", "8 (PNF)"},
		{"Serial", "0badcafe"},
		{"FW Version", "2a"},
		{"Deco model", "GF 30/85"},
		{"Battery type", "1.2V NiMH"},
		{"Battery at end", "4.1 V"},
	}
	for _, tc := range cases {
		if got := findString(t, p, tc.desc); got != tc.want {
			t.Errorf("%s = %q, want %q", tc.desc, got, tc.want)
		}
	}
}

func TestMetadataStringsLegacy(t *testing.T) {
	b := synth.NewLegacyPetrel(synth.Header{LogVersion: 7})
	b.AddSample(synth.NewSample())
	p, err := NewPetrel(b.Bytes(), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	if got := findString(t, p, "Logversion"); got != "7" {
		t.Fatalf("Logversion = %q, want %q", got, "7")
	}
}

func TestDecoModelStrings(t *testing.T) {
	cases := []struct {
		name string
		h    synth.Header
		want string
	}{
		{"vpm", synth.Header{DecoModel: 1, VPMConservatism: 3}, "VPM-B +3"},
		{"vpm gfs", synth.Header{DecoModel: 2, VPMConservatism: 2, GFSPercent: 90}, "VPM-B/GFS +2 90%"},
		{"unknown", synth.Header{DecoModel: 9}, "Unknown model 9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPetrel(newTestDive(tc.h), ModelPetrel, 1)
			if err != nil {
				t.Fatalf("NewPetrel: %v", err)
			}
			if got := findString(t, p, "Deco model"); got != tc.want {
				t.Fatalf("Deco model = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPredatorCalibrationStrings(t *testing.T) {
	h := synth.Header{
		CalibrationMask: 0x07,
		Calibration:     [3]uint16{2000, 2100, 2200},
	}
	b := synth.NewLegacyPredator(h)
	b.AddSample(synth.NewSample())
	p, err := NewPredator(b.Bytes(), ModelPredator, 1)
	if err != nil {
		t.Fatalf("NewPredator: %v", err)
	}

	// Raw calibration scaled by 1e-5 and the 2.2 Predator cell factor,
	// reported in millivolt.
	cases := []struct {
		desc, want string
	}{
		{"O2 Sensor Calibration 0", "44.0 mV"},
		{"O2 Sensor Calibration 1", "46.2 mV"},
		{"O2 Sensor Calibration 2", "48.4 mV"},
	}
	for _, tc := range cases {
		if got := findString(t, p, tc.desc); got != tc.want {
			t.Errorf("%s = %q, want %q", tc.desc, got, tc.want)
		}
	}
}

func TestLogVersionAndFormat(t *testing.T) {
	p, err := NewPetrel(newTestDive(synth.Header{LogVersion: 9, IntervalMS: 2000}), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	v, err := p.LogVersion()
	if err != nil {
		t.Fatalf("LogVersion: %v", err)
	}
	if v != 9 {
		t.Fatalf("log version = %d, want 9", v)
	}
	cfg, err := p.Format()
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !cfg.PNF {
		t.Fatalf("expected native layout, got %+v", cfg)
	}
}
