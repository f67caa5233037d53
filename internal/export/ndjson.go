package export

import (
	"io"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"

	"example.com/divelog/internal/shearwater"
)

// SampleRecord is one sample in NDJSON form. Only the fields relevant to
// the kind are populated; pointers keep meaningful zero values (sensor 0,
// mix 0, tank 0) distinguishable from absent ones.
type SampleRecord struct {
	Kind        string          `json:"kind"`
	Time        uint32          `json:"time,omitempty"`
	Depth       float64         `json:"depth,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	PPO2        float64         `json:"ppo2,omitempty"`
	Sensor      *int            `json:"sensor,omitempty"`
	Setpoint    float64         `json:"setpoint,omitempty"`
	CNS         float64         `json:"cns,omitempty"`
	Mix         *int            `json:"mix,omitempty"`
	Deco        string          `json:"deco,omitempty"`
	StopDepth   float64         `json:"stopDepth,omitempty"`
	StopTime    uint32          `json:"stopTime,omitempty"`
	Tank        *int            `json:"tank,omitempty"`
	Pressure    float64         `json:"pressure,omitempty"`
	RBT         uint32          `json:"rbt,omitempty"`
	Bookmark    *BookmarkRecord `json:"bookmark,omitempty"`
}

type BookmarkRecord struct {
	Time    uint32 `json:"time"`
	Type    uint32 `json:"type"`
	Heading uint32 `json:"heading"`
}

// MarshalSample converts a decoded sample into its NDJSON record.
func MarshalSample(s shearwater.Sample) SampleRecord {
	rec := SampleRecord{Kind: s.Kind.String()}
	switch s.Kind {
	case shearwater.SampleTime:
		rec.Time = s.Time
	case shearwater.SampleDepth:
		rec.Depth = s.Depth
	case shearwater.SampleTemperature:
		rec.Temperature = s.Temperature
	case shearwater.SamplePPO2:
		rec.PPO2 = s.PPO2
		sensor := s.Sensor
		rec.Sensor = &sensor
	case shearwater.SampleSetpoint:
		rec.Setpoint = s.Setpoint
	case shearwater.SampleCNS:
		rec.CNS = s.CNS
	case shearwater.SampleGasMix:
		mix := s.Mix
		rec.Mix = &mix
	case shearwater.SampleDeco:
		if s.Deco.Kind == shearwater.DecoStop {
			rec.Deco = "stop"
			rec.StopDepth = s.Deco.Depth
		} else {
			rec.Deco = "ndl"
		}
		rec.StopTime = s.Deco.Time
	case shearwater.SampleTankPressure:
		tank := s.Tank
		rec.Tank = &tank
		rec.Pressure = s.Pressure
	case shearwater.SampleRBT:
		rec.RBT = s.RBT
	case shearwater.SampleBookmark:
		rec.Bookmark = &BookmarkRecord{
			Time:    s.Event.Time,
			Type:    s.Event.Type,
			Heading: s.Event.Heading,
		}
	}
	return rec
}

// NDJSONWriter streams newline-delimited JSON objects to the underlying
// writer. Writes are serialized so concurrent decoders can share one
// stream.
type NDJSONWriter struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
}

// NewNDJSONWriter wraps a writer. If it also implements http.Flusher,
// every record is flushed to push bytes to the client promptly.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	nw := &NDJSONWriter{writer: w}
	if f, ok := w.(http.Flusher); ok {
		nw.flusher = f
	}
	return nw
}

// WriteSample writes one decoded sample as a single NDJSON record.
func (w *NDJSONWriter) WriteSample(s shearwater.Sample) error {
	return w.WriteObject(MarshalSample(s))
}

// WriteObject marshals the value, writes it followed by a newline and
// flushes.
func (w *NDJSONWriter) WriteObject(v any) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	if _, err := w.writer.Write([]byte("\n")); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// StreamSamples runs the sample pass and writes every sample as NDJSON,
// returning the number of records written. The first write error aborts
// the decode.
func StreamSamples(w io.Writer, p *shearwater.Parser) (int, error) {
	nw := NewNDJSONWriter(w)
	count := 0
	var writeErr error
	err := p.Samples(func(s shearwater.Sample) {
		if writeErr != nil {
			return
		}
		if writeErr = nw.WriteSample(s); writeErr == nil {
			count++
		}
	})
	if writeErr != nil {
		return count, writeErr
	}
	return count, err
}
