package shearwater

import "fmt"

// addString appends a key/value pair to the metadata table. The table is
// append-only with a fixed capacity; entries past the capacity are dropped.
func (c *diveCache) addString(desc, value string) {
	if len(c.strings) >= maxStrings {
		return
	}
	c.strings = append(c.strings, MetaString{Desc: desc, Value: value})
}

func (c *diveCache) addStringf(desc, format string, args ...interface{}) {
	c.addString(desc, fmt.Sprintf(format, args...))
}

// transmitterBatteryState converts one transmitter battery word into a
// state bit. The word is 0xFFFx for unpaired or no-comms transmitters,
// which contribute nothing; otherwise the top four bits carry the state
// (0 normal, 1 critical, 2 warning).
func transmitterBatteryState(word uint16) uint8 {
	if word&0xFFF0 == 0xFFF0 {
		return 0
	}
	state := word >> 12
	if state > 2 {
		return 0
	}
	return 1 << state
}

// transmitterBatteryLabels maps the accumulated state bitmask to the most
// serious label seen during the dive: critical dominates warning dominates
// normal. Index bits: 1 normal, 2 critical, 4 warning.
var transmitterBatteryLabels = [8]string{
	"",         // no state seen
	"normal",   // normal only
	"critical", // critical only
	"critical", // normal and critical
	"warning",  // warning only
	"warning",  // normal and warning
	"critical", // warning and critical
	"critical", // normal, warning and critical
}

func (c *diveCache) addTransmitterBattery(desc string, state uint8) {
	if state >= 1 && state <= 7 {
		c.addString(desc, transmitterBatteryLabels[state])
	}
}

// decoModelNames indexes the known decompression model codes.
const (
	decoModelGF     = 0
	decoModelVPMB   = 1
	decoModelVPMGFS = 2
)

func (c *diveCache) addDecoModel(r *fieldReader) {
	idxModel := 67
	idxGFS := 85
	if c.cfg.PNF {
		idxModel = c.opening[2] + 18
		idxGFS = c.opening[3] + 5
	}

	switch model := r.u8(idxModel); model {
	case decoModelGF:
		c.addStringf("Deco model", "GF %d/%d", r.u8(4), r.u8(5))
	case decoModelVPMB:
		c.addStringf("Deco model", "VPM-B +%d", r.u8(idxModel+1))
	case decoModelVPMGFS:
		c.addStringf("Deco model", "VPM-B/GFS +%d %d%%", r.u8(idxModel+1), r.u8(idxGFS))
	default:
		c.addStringf("Deco model", "Unknown model %d", model)
	}
}

// batteryTypeNames maps the battery chemistry codes introduced with log
// version 7.
var batteryTypeNames = map[uint8]string{
	1: "1.5V Alkaline",
	2: "1.5V Lithium",
	3: "1.2V NiMH",
	4: "3.6V Saft",
	5: "3.7V Li-Ion",
}

func (c *diveCache) addBatteryType(r *fieldReader) {
	if c.logVersion < 7 {
		return
	}
	idx := 120
	if c.cfg.PNF {
		idx = c.opening[4] + 9
	}
	code := r.u8(idx)
	if name, ok := batteryTypeNames[code]; ok {
		c.addString("Battery type", name)
		return
	}
	c.addStringf("Battery type", "unknown type %d", code)
}
