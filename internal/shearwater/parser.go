package shearwater

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidArgument reports a missing or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDataFormat reports a structurally broken dive log.
	ErrDataFormat = errors.New("unsupported data format")
	// ErrResourceExhausted reports a gas mix table past its capacity.
	ErrResourceExhausted = errors.New("gas mix table full")
	// ErrUnsupported reports a query the dive log cannot answer.
	ErrUnsupported = errors.New("unsupported")
)

// Unit conversion constants.
const (
	feet    = 0.3048
	psi     = 6894.75729317831 // pascal
	bar     = 1e5              // pascal
	atm     = 101325.0         // pascal
	gravity = 9.80665          // m/s2
)

// Known hardware model numbers. Only the original Predator needs special
// casing (sensor calibration scaling); everything else in both generations
// decodes uniformly.
const (
	ModelPredator = 2
	ModelPetrel   = 3
)

// Parser decodes one Shearwater dive log. A Parser is a single decode
// session: the buffer is supplied once, the cache is built lazily on the
// first query and frozen, and all queries afterwards are pure reads.
// Parsers are not safe for concurrent use.
type Parser struct {
	data   []byte
	model  uint32
	serial uint32
	petrel bool

	cache *diveCache
	scans int // number of cache-building scans, for tests
}

// NewPredator returns a parser for the legacy Predator hardware family
// (16-byte samples, block layout only).
func NewPredator(data []byte, model, serial uint32) (*Parser, error) {
	return newParser(data, model, serial, false)
}

// NewPetrel returns a parser for the Petrel hardware generation and its
// successors (32-byte samples, block or native layout).
func NewPetrel(data []byte, model, serial uint32) (*Parser, error) {
	return newParser(data, model, serial, true)
}

func newParser(data []byte, model, serial uint32, petrel bool) (*Parser, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil dive log buffer", ErrInvalidArgument)
	}
	return &Parser{data: data, model: model, serial: serial, petrel: petrel}, nil
}

// SetData replaces the dive log buffer and discards the cached decode
// state. The next query rebuilds the cache from scratch.
func (p *Parser) SetData(data []byte) error {
	if data == nil {
		return fmt.Errorf("%w: nil dive log buffer", ErrInvalidArgument)
	}
	p.data = data
	p.cache = nil
	return nil
}

// Serial returns the device serial number supplied at construction.
func (p *Parser) Serial() uint32 { return p.serial }

// Model returns the hardware model number supplied at construction.
func (p *Parser) Model() uint32 { return p.model }

// Format returns the detected layout configuration.
func (p *Parser) Format() (FormatConfig, error) {
	c, err := p.ensureCache()
	if err != nil {
		return FormatConfig{}, err
	}
	return c.cfg, nil
}

// LogVersion returns the log format version byte.
func (p *Parser) LogVersion() (int, error) {
	c, err := p.ensureCache()
	if err != nil {
		return 0, err
	}
	return c.logVersion, nil
}

// DiveStart returns the dive start time. The on-wire value is epoch
// seconds in the first opening record; no timezone is recorded.
func (p *Parser) DiveStart() (time.Time, error) {
	c, err := p.ensureCache()
	if err != nil {
		return time.Time{}, err
	}
	r := fieldReader{data: p.data}
	ticks := r.u32(c.opening[0] + 12)
	if r.err != nil {
		return time.Time{}, fmt.Errorf("%w: dive start timestamp out of range", ErrDataFormat)
	}
	return time.Unix(int64(ticks), 0).UTC(), nil
}
