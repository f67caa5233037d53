package shearwater

import (
	"fmt"

	"example.com/divelog/internal/common"
)

// rawMix is a gas mix as stored on the wire: integer percentages.
type rawMix struct {
	o2, he uint8
}

// diveCache is the decoded per-dive state built by the one-pass record
// scan. It is immutable once published on the Parser.
type diveCache struct {
	cfg         FormatConfig
	logVersion  int
	opening     [nRecords]int
	closing     [nRecords]int
	final       int
	mixes       []rawMix
	mode        DiveMode
	calibrated  uint8
	calibration [3]float64
	units       Units
	atmospheric int // millibar
	density     int
	strings     []MetaString
}

// findMix returns the index of the mix in the table, or len(mixes) when it
// is not present.
func (c *diveCache) findMix(o2, he uint8) int {
	for i, m := range c.mixes {
		if m.o2 == o2 && m.he == he {
			return i
		}
	}
	return len(c.mixes)
}

// ensureCache builds the decode cache on first use. The build either
// succeeds completely or publishes nothing; repeated calls after success
// are no-ops.
func (p *Parser) ensureCache() (*diveCache, error) {
	if p.cache != nil {
		return p.cache, nil
	}
	p.scans++

	cfg, err := detectFormat(p.data, p.petrel)
	if err != nil {
		return nil, err
	}

	c := &diveCache{cfg: cfg, final: undefined}
	for i := 0; i < nRecords; i++ {
		c.opening[i] = undefined
		c.closing[i] = undefined
	}
	if !cfg.PNF {
		// The legacy layout has one opening and one closing block instead
		// of individually tagged records; every logical slot maps to the
		// same offset.
		if cfg.FooterSize == 2*blockSize {
			c.final = len(p.data) - blockSize
		}
		for i := 0; i < nRecords; i++ {
			c.opening[i] = 0
			c.closing[i] = len(p.data) - cfg.FooterSize
		}
	}

	r := fieldReader{data: p.data}
	tag := cfg.tagOffset()

	var (
		o2Prev, hePrev       uint8
		t1Battery, t2Battery uint8
	)

	offset := cfg.HeaderSize
	length := len(p.data) - cfg.FooterSize
	for offset+cfg.SampleSize <= length {
		if r.allZero(offset, cfg.SampleSize) {
			offset += cfg.SampleSize
			continue
		}

		recType := recordDiveSample
		if cfg.PNF {
			recType = int(p.data[offset])
		}

		switch {
		case recType == recordDiveSample:
			if p.data[offset+11+tag]&statusOpenCircuit == 0 {
				c.mode = ModeClosedCircuit
			}

			o2 := p.data[offset+7+tag]
			he := p.data[offset+8+tag]
			if o2 != o2Prev || he != hePrev {
				if idx := c.findMix(o2, he); idx == len(c.mixes) {
					if idx >= maxGasMixes {
						return nil, fmt.Errorf("%w: more than %d gas mixes", ErrResourceExhausted, maxGasMixes)
					}
					c.mixes = append(c.mixes, rawMix{o2: o2, he: he})
				}
				o2Prev, hePrev = o2, he
			}

			// Transmitter battery words sit past the end of the shorter
			// Predator records; the tolerant read skips them there.
			if v, ok := r.u16At(offset + 27 + tag); ok {
				t1Battery |= transmitterBatteryState(v)
			}
			if v, ok := r.u16At(offset + 19 + tag); ok {
				t2Battery |= transmitterBatteryState(v)
			}

		case recType == recordFreediveSample:
			c.mode = ModeFreedive

		case recType >= recordOpening0 && recType <= recordOpening7:
			c.opening[recType-recordOpening0] = offset

		case recType >= recordClosing0 && recType <= recordClosing7:
			c.closing[recType-recordClosing0] = offset

		case recType == recordFinal:
			c.final = offset
		}

		offset += cfg.SampleSize
	}

	// The first five opening/closing record pairs are mandatory.
	for i := 0; i < nRecords-2; i++ {
		if c.opening[i] == undefined || c.closing[i] == undefined {
			return nil, fmt.Errorf("%w: opening or closing record %d not found", ErrDataFormat, i)
		}
	}

	if cfg.PNF {
		c.logVersion = int(r.u8(c.opening[4] + 16))
		c.addStringf("Logversion", "%d (PNF)", c.logVersion)
	} else {
		c.logVersion = int(r.u8(c.opening[4] + 127))
		c.addStringf("Logversion", "%d", c.logVersion)
	}

	// Transmitter battery states are unreliable before log version 7.
	if c.logVersion < 7 {
		t1Battery = 0
		t2Battery = 0
	}

	// Sensor calibration. The mask byte enables individual sensors; the
	// three coefficients follow as big-endian 16-bit values scaled by 1e5.
	base := c.opening[3] + 6
	if !cfg.PNF {
		base = c.opening[3] + 86
	}
	mask := r.u8(base) & 0x07
	nsensors, ndefaults := 0, 0
	for i := 0; i < 3; i++ {
		raw := r.u16(base + 1 + i*2)
		cal := float64(raw) / 100000.0
		if p.model == ModelPredator {
			// The Predator expects the cell output within 30..70 mV in
			// pure O2 at one atmosphere; a 2.2 factor lines the stored
			// calibration up with that range.
			cal *= 2.2
			c.addStringf(fmt.Sprintf("O2 Sensor Calibration %d", i), "%.1f mV", cal*1000)
		}
		c.calibration[i] = cal
		if mask&(1<<i) != 0 {
			if raw == 2100 {
				ndefaults++
			}
			nsensors++
		}
	}
	if nsensors > 0 && nsensors == ndefaults {
		// Every enabled sensor still carries the factory default value, so
		// none of them was actually calibrated. Disable them all rather
		// than report bogus PPO2 readings.
		common.Logf("disabling all O2 sensors: factory default calibration on %d sensors", nsensors)
		c.calibrated = 0
		if c.mode != ModeOpenCircuit {
			c.addString("PPO2 source", "voted/averaged")
		}
	} else {
		c.calibrated = mask
		if c.mode != ModeOpenCircuit {
			c.addString("PPO2 source", "cells")
		}
	}

	if u := r.u8(c.opening[0] + 8); u == 1 {
		c.units = Imperial
	} else {
		c.units = Metric
	}
	if cfg.PNF {
		c.atmospheric = int(r.u16(c.opening[1] + 16))
		c.density = int(r.u16(c.opening[3] + 3))
	} else {
		c.atmospheric = int(r.u16(c.opening[1] + 47))
		c.density = int(r.u16(c.opening[3] + 83))
	}

	c.addStringf("Serial", "%08x", p.serial)
	c.addStringf("FW Version", "%2x", r.u8(19))
	c.addDecoModel(&r)
	c.addBatteryType(&r)
	c.addStringf("Battery at end", "%.1f V", float64(r.u8(9))/10.0)
	c.addTransmitterBattery("T1 battery", t1Battery)
	c.addTransmitterBattery("T2 battery", t2Battery)

	if r.err != nil {
		return nil, fmt.Errorf("%w: header field out of range: %v", ErrDataFormat, r.err)
	}

	p.cache = c
	return c, nil
}
