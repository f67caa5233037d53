// Package synth builds deterministic synthetic Shearwater dive logs for
// tests, examples and the divectl generate command. The builders cover the
// three on-wire shapes: Petrel Native Format (PNF), legacy Petrel, and
// legacy Predator.
package synth

import "encoding/binary"

const (
	recordSizePetrel   = 32
	recordSizePredator = 16
	blockSize          = 128
)

// Header carries the semantic header/footer fields of a synthetic dive.
// Zero values are replaced with sensible defaults by normalize.
type Header struct {
	Start           uint32 // dive start, epoch seconds
	Imperial        bool
	AtmosphericMB   uint16 // surface pressure, millibar
	DensityKgM3     uint16 // water density
	LogVersion      uint8
	IntervalMS      uint16 // per-sample interval, used by PNF logversion >= 9
	DecoModel       uint8  // 0 GF, 1 VPM-B, 2 VPM-B/GFS
	GFLow, GFHigh   uint8
	VPMConservatism uint8
	GFSPercent      uint8
	BatteryType     uint8
	BatteryDecivolt uint8 // end-of-dive voltage in tenths
	FWVersion       uint8
	CalibrationMask uint8
	Calibration     [3]uint16
	SetpointLow     uint8 // Predator header setpoints, hundredths of bar
	SetpointHigh    uint8
	MaxDepthRaw     uint16 // closing record value: tenths (PNF) or whole units (legacy)
	DiveTimeRaw     uint32 // closing record value: seconds (PNF) or minutes (legacy)
}

func (h Header) normalize() Header {
	if h.Start == 0 {
		h.Start = 1500000000
	}
	if h.AtmosphericMB == 0 {
		h.AtmosphericMB = 1013
	}
	if h.DensityKgM3 == 0 {
		h.DensityKgM3 = 1025
	}
	if h.LogVersion == 0 {
		h.LogVersion = 7
	}
	if h.IntervalMS == 0 {
		h.IntervalMS = 10000
	}
	if h.Calibration == ([3]uint16{}) {
		h.Calibration = [3]uint16{2100, 2100, 2100}
	}
	if h.BatteryType == 0 {
		h.BatteryType = 2
	}
	if h.BatteryDecivolt == 0 {
		h.BatteryDecivolt = 41
	}
	if h.FWVersion == 0 {
		h.FWVersion = 0x2a
	}
	return h
}

// Sample is one dive sample in builder form. NewSample returns one with
// the no-data sentinels set so optional channels stay silent unless the
// test fills them in.
type Sample struct {
	DepthRaw    uint16 // tenths of the display unit
	Temperature int8
	Status      uint8 // status flags; 0x10 is open circuit
	O2, He      uint8
	PPO2Raw     uint8 // voted PPO2, hundredths
	SensorPPO2  [3]uint8
	DecoStop    uint16 // stop depth, display units
	DecoTime    uint8  // stop/NDL time, minutes
	Setpoint    uint8  // hundredths of bar (Petrel per-sample byte)
	CNS         uint8  // hundredths
	Tank        [2]uint16
	RBT         uint8
}

func NewSample() Sample {
	return Sample{
		Status: 0x10, // open circuit
		O2:     21,
		Tank:   [2]uint16{0xFFFF, 0xFFFF},
		RBT:    0xFF,
	}
}

// FreedivePoint is one 8-byte freedive sub-sample.
type FreedivePoint struct {
	PressureMB uint16 // absolute pressure
	TempTenths int16
}

// Tag is a PNF info event carrying a user bookmark.
type Tag struct {
	Time    uint32 // absolute epoch seconds
	Heading uint32
	Type    uint32
}

// PNF accumulates records for a Petrel Native Format dive log.
type PNF struct {
	header  Header
	records [][]byte
}

func NewPNF(h Header) *PNF {
	return &PNF{header: h.normalize()}
}

func (p *PNF) AddSample(s Sample) {
	rec := make([]byte, recordSizePetrel)
	rec[0] = 0x01
	binary.BigEndian.PutUint16(rec[1:3], s.DepthRaw)
	binary.BigEndian.PutUint16(rec[3:5], s.DecoStop)
	rec[7] = s.PPO2Raw
	rec[8] = s.O2
	rec[9] = s.He
	rec[10] = s.DecoTime
	rec[12] = s.Status
	rec[13] = s.SensorPPO2[0]
	rec[14] = uint8(s.Temperature)
	rec[15] = s.SensorPPO2[1]
	rec[16] = s.SensorPPO2[2]
	rec[19] = s.Setpoint
	binary.BigEndian.PutUint16(rec[20:22], s.Tank[1])
	rec[22] = s.RBT
	rec[23] = s.CNS
	binary.BigEndian.PutUint16(rec[28:30], s.Tank[0])
	p.records = append(p.records, rec)
}

// AddFreedive packs up to four sub-samples into one freedive record;
// unused sub-samples stay zero padded.
func (p *PNF) AddFreedive(points ...FreedivePoint) {
	rec := make([]byte, recordSizePetrel)
	rec[0] = 0x02
	for i, pt := range points {
		if i >= 4 {
			break
		}
		base := i * 8
		binary.BigEndian.PutUint16(rec[base+1:base+3], pt.PressureMB)
		binary.BigEndian.PutUint16(rec[base+3:base+5], uint16(pt.TempTenths))
	}
	p.records = append(p.records, rec)
}

func (p *PNF) AddTag(t Tag) {
	rec := make([]byte, recordSizePetrel)
	rec[0] = 0x30
	rec[1] = 38
	binary.BigEndian.PutUint32(rec[4:8], t.Time)
	binary.BigEndian.PutUint32(rec[8:12], t.Heading)
	binary.BigEndian.PutUint32(rec[12:16], t.Type)
	p.records = append(p.records, rec)
}

// AddInfoEvent appends a non-tag info event record with the given id.
func (p *PNF) AddInfoEvent(id uint8) {
	rec := make([]byte, recordSizePetrel)
	rec[0] = 0x30
	rec[1] = id
	p.records = append(p.records, rec)
}

// AddPadding appends n all-zero records.
func (p *PNF) AddPadding(n int) {
	for i := 0; i < n; i++ {
		p.records = append(p.records, make([]byte, recordSizePetrel))
	}
}

// Bytes assembles the dive log: opening records 0-5, the accumulated data
// records, closing records 0-4 and the final record.
func (p *PNF) Bytes() []byte {
	h := p.header

	opening := make([][]byte, 6)
	for i := range opening {
		opening[i] = make([]byte, recordSizePetrel)
		opening[i][0] = uint8(0x10 + i)
	}
	// Opening 0: units, start time, plus the fields shared with the
	// legacy header prefix (GF bytes, battery voltage, firmware).
	opening[0][4] = h.GFLow
	opening[0][5] = h.GFHigh
	if h.Imperial {
		opening[0][8] = 1
	}
	opening[0][9] = h.BatteryDecivolt
	binary.BigEndian.PutUint32(opening[0][12:16], h.Start)
	opening[0][19] = h.FWVersion
	// Opening 1: surface pressure.
	binary.BigEndian.PutUint16(opening[1][16:18], h.AtmosphericMB)
	// Opening 2: deco model.
	opening[2][18] = h.DecoModel
	opening[2][19] = h.VPMConservatism
	// Opening 3: density, GFS, sensor calibration.
	binary.BigEndian.PutUint16(opening[3][3:5], h.DensityKgM3)
	opening[3][5] = h.GFSPercent
	opening[3][6] = h.CalibrationMask
	for i := 0; i < 3; i++ {
		binary.BigEndian.PutUint16(opening[3][7+2*i:9+2*i], h.Calibration[i])
	}
	// Opening 4: battery type, log version.
	opening[4][9] = h.BatteryType
	opening[4][16] = h.LogVersion
	// Opening 5: sample interval in milliseconds.
	binary.BigEndian.PutUint16(opening[5][23:25], h.IntervalMS)

	closing := make([][]byte, 5)
	for i := range closing {
		closing[i] = make([]byte, recordSizePetrel)
		closing[i][0] = uint8(0x20 + i)
	}
	binary.BigEndian.PutUint16(closing[0][4:6], h.MaxDepthRaw)
	closing[0][6] = uint8(h.DiveTimeRaw >> 16)
	closing[0][7] = uint8(h.DiveTimeRaw >> 8)
	closing[0][8] = uint8(h.DiveTimeRaw)

	final := make([]byte, recordSizePetrel)
	final[0] = 0xFF
	final[1] = 0xFD

	var out []byte
	for _, rec := range opening {
		out = append(out, rec...)
	}
	for _, rec := range p.records {
		out = append(out, rec...)
	}
	for _, rec := range closing {
		out = append(out, rec...)
	}
	return append(out, final...)
}

// Legacy accumulates records for the block layout, shared by the Predator
// and the legacy Petrel shape.
type Legacy struct {
	header  Header
	petrel  bool
	records [][]byte
}

func NewLegacyPredator(h Header) *Legacy {
	return &Legacy{header: h.normalize()}
}

func NewLegacyPetrel(h Header) *Legacy {
	return &Legacy{header: h.normalize(), petrel: true}
}

func (l *Legacy) sampleSize() int {
	if l.petrel {
		return recordSizePetrel
	}
	return recordSizePredator
}

func (l *Legacy) AddSample(s Sample) {
	rec := make([]byte, l.sampleSize())
	binary.BigEndian.PutUint16(rec[0:2], s.DepthRaw)
	binary.BigEndian.PutUint16(rec[2:4], s.DecoStop)
	rec[6] = s.PPO2Raw
	rec[7] = s.O2
	rec[8] = s.He
	rec[9] = s.DecoTime
	rec[11] = s.Status
	rec[12] = s.SensorPPO2[0]
	rec[13] = uint8(s.Temperature)
	rec[14] = s.SensorPPO2[1]
	rec[15] = s.SensorPPO2[2]
	if l.petrel {
		rec[18] = s.Setpoint
		binary.BigEndian.PutUint16(rec[19:21], s.Tank[1])
		rec[21] = s.RBT
		rec[22] = s.CNS
		binary.BigEndian.PutUint16(rec[27:29], s.Tank[0])
	}
	l.records = append(l.records, rec)
}

func (l *Legacy) AddPadding(n int) {
	for i := 0; i < n; i++ {
		l.records = append(l.records, make([]byte, l.sampleSize()))
	}
}

// Bytes assembles header block, samples, closing block and, for the
// Petrel shape, the trailing final block.
func (l *Legacy) Bytes() []byte {
	h := l.header

	header := make([]byte, blockSize)
	// The legacy marker keeps Petrel-generation hardware on the block
	// layout; harmless on the Predator, which cannot produce PNF.
	header[0] = 0xFF
	header[1] = 0xFF
	header[4] = h.GFLow
	header[5] = h.GFHigh
	if h.Imperial {
		header[8] = 1
	}
	header[9] = h.BatteryDecivolt
	binary.BigEndian.PutUint32(header[12:16], h.Start)
	header[17] = h.SetpointLow
	header[18] = h.SetpointHigh
	header[19] = h.FWVersion
	binary.BigEndian.PutUint16(header[47:49], h.AtmosphericMB)
	header[67] = h.DecoModel
	header[68] = h.VPMConservatism
	binary.BigEndian.PutUint16(header[83:85], h.DensityKgM3)
	header[85] = h.GFSPercent
	header[86] = h.CalibrationMask
	for i := 0; i < 3; i++ {
		binary.BigEndian.PutUint16(header[87+2*i:89+2*i], h.Calibration[i])
	}
	header[120] = h.BatteryType
	header[127] = h.LogVersion

	closing := make([]byte, blockSize)
	binary.BigEndian.PutUint16(closing[4:6], h.MaxDepthRaw)
	binary.BigEndian.PutUint16(closing[6:8], uint16(h.DiveTimeRaw))

	out := append([]byte{}, header...)
	for _, rec := range l.records {
		out = append(out, rec...)
	}
	out = append(out, closing...)
	if l.petrel {
		final := make([]byte, blockSize)
		final[0] = 0xFF
		final[1] = 0xFD
		out = append(out, final...)
	}
	return out
}
