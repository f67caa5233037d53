package shearwater

import "fmt"

// Record types used by the Petrel Native Format (PNF). The legacy Predator
// layout has no type byte; every in-range record is implicitly a dive
// sample.
const (
	recordDiveSample     = 0x01
	recordFreediveSample = 0x02
	recordOpening0       = 0x10
	recordOpening7       = 0x17
	recordClosing0       = 0x20
	recordClosing7       = 0x27
	recordInfoEvent      = 0x30
	recordFinal          = 0xFF
)

const (
	blockSize          = 0x80
	sampleSizePredator = 0x10
	sampleSizePetrel   = 0x20
	sampleSizeFreedive = 0x08

	legacyMarker    = 0xFFFF
	finalMarker     = 0xFFFD
	infoEventTagLog = 38
)

// Per-sample status flags.
const (
	statusGasSwitch    = 0x01
	statusExternalPPO2 = 0x02
	statusSetpointHigh = 0x04
	statusClosedLoop   = 0x08
	statusOpenCircuit  = 0x10
)

const (
	nRecords   = 7
	maxGasMixes = 10
	maxStrings  = 32

	undefined = -1
)

// FormatConfig captures the on-wire layout decisions for one dive log. It
// is computed once per buffer and threaded through both decode passes so
// every conditional offset is a function of this value alone.
type FormatConfig struct {
	// PNF selects the per-record-tagged native layout over the legacy
	// block layout.
	PNF bool
	// Petrel selects the newer hardware family with 32-byte samples.
	Petrel bool
	// SampleSize is the fixed record size in bytes.
	SampleSize int
	// HeaderSize and FooterSize bound the record range. Both are zero in
	// the native layout, where the opening and closing records live inside
	// the record stream itself.
	HeaderSize int
	FooterSize int
}

// tagOffset is 1 for PNF records, where the leading type byte shifts every
// sample field by one.
func (c FormatConfig) tagOffset() int {
	if c.PNF {
		return 1
	}
	return 0
}

// detectFormat inspects the head of the buffer and the hardware generation
// to decide the layout. Only Petrel-generation hardware can produce the
// native format; a legacy marker in the first two bytes forces the block
// layout either way.
func detectFormat(data []byte, petrel bool) (FormatConfig, error) {
	cfg := FormatConfig{Petrel: petrel}
	if petrel {
		cfg.SampleSize = sampleSizePetrel
	} else {
		cfg.SampleSize = sampleSizePredator
	}

	if len(data) < 2 {
		return cfg, fmt.Errorf("%w: dive log shorter than %d bytes", ErrDataFormat, 2)
	}
	cfg.PNF = petrel && uint16(data[0])<<8|uint16(data[1]) != legacyMarker
	if cfg.PNF {
		return cfg, nil
	}

	// Legacy layout: one opening block up front, one or two closing blocks
	// at the end. The second closing block holds the final record and is
	// present on all Petrel-generation logs, and on Predator logs that
	// carry the final marker in the block before the presumptive footer.
	cfg.HeaderSize = blockSize
	cfg.FooterSize = blockSize
	if len(data) < cfg.HeaderSize+cfg.FooterSize {
		return cfg, fmt.Errorf("%w: dive log shorter than header and footer (%d bytes)",
			ErrDataFormat, cfg.HeaderSize+cfg.FooterSize)
	}
	marker := len(data) - cfg.FooterSize
	if petrel || uint16(data[marker])<<8|uint16(data[marker+1]) == finalMarker {
		cfg.FooterSize += blockSize
		if len(data) < cfg.HeaderSize+cfg.FooterSize {
			return cfg, fmt.Errorf("%w: dive log shorter than header and footer (%d bytes)",
				ErrDataFormat, cfg.HeaderSize+cfg.FooterSize)
		}
	}
	return cfg, nil
}
