package shearwater

import (
	"errors"
	"math"
	"testing"
	"time"

	"example.com/divelog/internal/synth"
)

func near(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestDiveTime(t *testing.T) {
	t.Run("native seconds", func(t *testing.T) {
		p, err := NewPetrel(newTestDive(synth.Header{DiveTimeRaw: 754}), ModelPetrel, 1)
		if err != nil {
			t.Fatalf("NewPetrel: %v", err)
		}
		d, err := p.DiveTime()
		if err != nil {
			t.Fatalf("DiveTime: %v", err)
		}
		if d != 754*time.Second {
			t.Fatalf("dive time = %v, want 754s", d)
		}
	})

	t.Run("legacy minutes", func(t *testing.T) {
		b := synth.NewLegacyPetrel(synth.Header{DiveTimeRaw: 42})
		p, err := NewPetrel(b.Bytes(), ModelPetrel, 1)
		if err != nil {
			t.Fatalf("NewPetrel: %v", err)
		}
		d, err := p.DiveTime()
		if err != nil {
			t.Fatalf("DiveTime: %v", err)
		}
		if d != 42*time.Minute {
			t.Fatalf("dive time = %v, want 42m", d)
		}
	})
}

func TestMaxDepth(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want float64
	}{
		{
			"native metric tenths",
			newTestDive(synth.Header{MaxDepthRaw: 123}),
			12.3,
		},
		{
			"native imperial tenths",
			newTestDive(synth.Header{Imperial: true, MaxDepthRaw: 1000}),
			1000 * 0.3048 / 10.0,
		},
		{
			"legacy metric whole",
			synth.NewLegacyPetrel(synth.Header{MaxDepthRaw: 25}).Bytes(),
			25.0,
		},
		{
			"legacy imperial whole",
			synth.NewLegacyPetrel(synth.Header{Imperial: true, MaxDepthRaw: 100}).Bytes(),
			100 * 0.3048,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPetrel(tc.data, ModelPetrel, 1)
			if err != nil {
				t.Fatalf("NewPetrel: %v", err)
			}
			got, err := p.MaxDepth()
			if err != nil {
				t.Fatalf("MaxDepth: %v", err)
			}
			if !near(got, tc.want) {
				t.Fatalf("max depth = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGasMixTable(t *testing.T) {
	air := synth.NewSample()
	tmx := synth.NewSample()
	tmx.O2, tmx.He = 18, 45

	p, err := NewPetrel(newTestDive(synth.Header{}, air, tmx, air), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}

	n, err := p.GasMixCount()
	if err != nil {
		t.Fatalf("GasMixCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("gas mix count = %d, want 2", n)
	}

	mix, err := p.GasMix(1)
	if err != nil {
		t.Fatalf("GasMix(1): %v", err)
	}
	if !near(mix.Oxygen, 0.18) || !near(mix.Helium, 0.45) || !near(mix.Nitrogen, 0.37) {
		t.Fatalf("mix = %+v, want 18/45", mix)
	}

	if _, err := p.GasMix(2); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("GasMix(2) error = %v, want ErrUnsupported", err)
	}
	if _, err := p.GasMix(-1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("GasMix(-1) error = %v, want ErrUnsupported", err)
	}
}

func TestGasMixTableOverflow(t *testing.T) {
	b := synth.NewPNF(synth.Header{})
	for i := 0; i < 11; i++ {
		s := synth.NewSample()
		s.O2 = uint8(10 + i)
		b.AddSample(s)
	}
	p, err := NewPetrel(b.Bytes(), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	if _, err := p.GasMixCount(); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("error = %v, want ErrResourceExhausted", err)
	}
}

func TestWaterSalinity(t *testing.T) {
	cases := []struct {
		density uint16
		want    WaterType
	}{
		{1000, FreshWater},
		{1025, SaltWater},
		{1020, SaltWater},
	}
	for _, tc := range cases {
		p, err := NewPetrel(newTestDive(synth.Header{DensityKgM3: tc.density}), ModelPetrel, 1)
		if err != nil {
			t.Fatalf("NewPetrel: %v", err)
		}
		s, err := p.WaterSalinity()
		if err != nil {
			t.Fatalf("WaterSalinity: %v", err)
		}
		if s.Type != tc.want || !near(s.Density, float64(tc.density)) {
			t.Fatalf("salinity = %+v, want type %v density %d", s, tc.want, tc.density)
		}
	}
}

func TestAtmospheric(t *testing.T) {
	p, err := NewPetrel(newTestDive(synth.Header{AtmosphericMB: 987}), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	got, err := p.Atmospheric()
	if err != nil {
		t.Fatalf("Atmospheric: %v", err)
	}
	if !near(got, 0.987) {
		t.Fatalf("atmospheric = %v, want 0.987", got)
	}
}

func TestMode(t *testing.T) {
	oc := synth.NewSample()
	cc := synth.NewSample()
	cc.Status = statusClosedLoop

	cases := []struct {
		name  string
		build func() []byte
		want  DiveMode
	}{
		{"open circuit", func() []byte { return newTestDive(synth.Header{}, oc) }, ModeOpenCircuit},
		{"closed circuit", func() []byte { return newTestDive(synth.Header{}, oc, cc) }, ModeClosedCircuit},
		{"freedive", func() []byte {
			b := synth.NewPNF(synth.Header{})
			b.AddFreedive(synth.FreedivePoint{PressureMB: 1500})
			return b.Bytes()
		}, ModeFreedive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPetrel(tc.build(), ModelPetrel, 1)
			if err != nil {
				t.Fatalf("NewPetrel: %v", err)
			}
			mode, err := p.Mode()
			if err != nil {
				t.Fatalf("Mode: %v", err)
			}
			if mode != tc.want {
				t.Fatalf("mode = %v, want %v", mode, tc.want)
			}
		})
	}
}

func TestFieldDispatch(t *testing.T) {
	p, err := NewPetrel(newTestDive(synth.Header{MaxDepthRaw: 123}, synth.NewSample()), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}

	v, err := p.Field(FieldMaxDepth, 0)
	if err != nil {
		t.Fatalf("Field(FieldMaxDepth): %v", err)
	}
	depth, ok := v.(float64)
	if !ok || !near(depth, 12.3) {
		t.Fatalf("max depth field = %v (%T), want 12.3", v, v)
	}

	v, err = p.Field(FieldGasMixCount, 0)
	if err != nil {
		t.Fatalf("Field(FieldGasMixCount): %v", err)
	}
	if n, ok := v.(int); !ok || n != 1 {
		t.Fatalf("gas mix count field = %v (%T), want 1", v, v)
	}

	if _, err := p.Field(FieldKind(99), 0); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unknown field error = %v, want ErrUnsupported", err)
	}
}

func TestMetadataStringIndex(t *testing.T) {
	p, err := NewPetrel(newTestDive(synth.Header{}), ModelPetrel, 1)
	if err != nil {
		t.Fatalf("NewPetrel: %v", err)
	}
	all, err := p.MetadataStrings()
	if err != nil {
		t.Fatalf("MetadataStrings: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("no metadata strings decoded")
	}
	first, err := p.MetadataString(0)
	if err != nil {
		t.Fatalf("MetadataString(0): %v", err)
	}
	if first != all[0] {
		t.Fatalf("MetadataString(0) = %+v, want %+v", first, all[0])
	}
	if _, err := p.MetadataString(len(all)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("out of range error = %v, want ErrUnsupported", err)
	}
}
