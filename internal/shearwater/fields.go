package shearwater

import (
	"fmt"
	"time"
)

// DiveTime returns the total dive duration. The native layout stores
// seconds directly; the legacy layout stores minutes.
func (p *Parser) DiveTime() (time.Duration, error) {
	c, err := p.ensureCache()
	if err != nil {
		return 0, err
	}
	r := fieldReader{data: p.data}
	var seconds uint32
	if c.cfg.PNF {
		seconds = r.u24(c.closing[0] + 6)
	} else {
		seconds = uint32(r.u16(c.closing[0]+6)) * 60
	}
	if r.err != nil {
		return 0, fmt.Errorf("%w: dive time field out of range", ErrDataFormat)
	}
	return time.Duration(seconds) * time.Second, nil
}

// MaxDepth returns the maximum depth in meters.
func (p *Parser) MaxDepth() (float64, error) {
	c, err := p.ensureCache()
	if err != nil {
		return 0, err
	}
	r := fieldReader{data: p.data}
	raw := r.u16(c.closing[0] + 4)
	if r.err != nil {
		return 0, fmt.Errorf("%w: max depth field out of range", ErrDataFormat)
	}
	depth := float64(raw)
	if c.units == Imperial {
		depth *= feet
	}
	if c.cfg.PNF {
		depth /= 10.0
	}
	return depth, nil
}

// GasMixCount returns the number of distinct gas mixes seen in the dive.
func (p *Parser) GasMixCount() (int, error) {
	c, err := p.ensureCache()
	if err != nil {
		return 0, err
	}
	return len(c.mixes), nil
}

// GasMix returns the mix at the given table index as gas fractions.
func (p *Parser) GasMix(index int) (GasMix, error) {
	c, err := p.ensureCache()
	if err != nil {
		return GasMix{}, err
	}
	if index < 0 || index >= len(c.mixes) {
		return GasMix{}, fmt.Errorf("%w: gas mix index %d of %d", ErrUnsupported, index, len(c.mixes))
	}
	mix := GasMix{
		Oxygen: float64(c.mixes[index].o2) / 100.0,
		Helium: float64(c.mixes[index].he) / 100.0,
	}
	mix.Nitrogen = 1.0 - mix.Oxygen - mix.Helium
	return mix, nil
}

// WaterSalinity returns the recorded water type and density.
func (p *Parser) WaterSalinity() (Salinity, error) {
	c, err := p.ensureCache()
	if err != nil {
		return Salinity{}, err
	}
	s := Salinity{Type: SaltWater, Density: float64(c.density)}
	if c.density == 1000 {
		s.Type = FreshWater
	}
	return s, nil
}

// Atmospheric returns the surface pressure in bar.
func (p *Parser) Atmospheric() (float64, error) {
	c, err := p.ensureCache()
	if err != nil {
		return 0, err
	}
	return float64(c.atmospheric) / 1000.0, nil
}

// Mode returns the dive mode determined during the scan.
func (p *Parser) Mode() (DiveMode, error) {
	c, err := p.ensureCache()
	if err != nil {
		return 0, err
	}
	return c.mode, nil
}

// MetadataString returns the metadata entry at the given slot.
func (p *Parser) MetadataString(index int) (MetaString, error) {
	c, err := p.ensureCache()
	if err != nil {
		return MetaString{}, err
	}
	if index < 0 || index >= len(c.strings) {
		return MetaString{}, fmt.Errorf("%w: string index %d of %d", ErrUnsupported, index, len(c.strings))
	}
	return c.strings[index], nil
}

// MetadataStrings returns a copy of the whole metadata table in insertion
// order.
func (p *Parser) MetadataStrings() ([]MetaString, error) {
	c, err := p.ensureCache()
	if err != nil {
		return nil, err
	}
	out := make([]MetaString, len(c.strings))
	copy(out, c.strings)
	return out, nil
}

// Field answers a point query by kind. The index argument selects the
// entry for FieldGasMix and FieldString and is ignored otherwise. Unknown
// kinds fail with ErrUnsupported.
func (p *Parser) Field(kind FieldKind, index int) (interface{}, error) {
	switch kind {
	case FieldDiveTime:
		return p.DiveTime()
	case FieldMaxDepth:
		return p.MaxDepth()
	case FieldGasMixCount:
		return p.GasMixCount()
	case FieldGasMix:
		return p.GasMix(index)
	case FieldSalinity:
		return p.WaterSalinity()
	case FieldAtmospheric:
		return p.Atmospheric()
	case FieldMode:
		return p.Mode()
	case FieldString:
		return p.MetadataString(index)
	default:
		return nil, fmt.Errorf("%w: field kind %d", ErrUnsupported, kind)
	}
}
