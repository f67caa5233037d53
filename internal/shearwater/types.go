package shearwater

// DiveMode is the mode the computer recorded for the whole dive. The scan
// starts from open circuit; any sample with a cleared open-circuit status
// bit switches the dive to closed circuit, and any freedive record switches
// it to freedive.
type DiveMode int

const (
	ModeOpenCircuit DiveMode = iota
	ModeClosedCircuit
	ModeFreedive
)

func (m DiveMode) String() string {
	switch m {
	case ModeOpenCircuit:
		return "OC"
	case ModeClosedCircuit:
		return "CCR"
	case ModeFreedive:
		return "freedive"
	default:
		return "unknown"
	}
}

// Units is the display unit system the computer was set to. Stored depths
// follow it on the wire.
type Units int

const (
	Metric Units = iota
	Imperial
)

func (u Units) String() string {
	if u == Imperial {
		return "imperial"
	}
	return "metric"
}

// GasMix is a breathing gas as gas fractions. Nitrogen is the complement of
// oxygen and helium.
type GasMix struct {
	Oxygen   float64
	Helium   float64
	Nitrogen float64
}

// WaterType distinguishes fresh from salt water, derived from the recorded
// water density.
type WaterType int

const (
	FreshWater WaterType = iota
	SaltWater
)

// Salinity carries the water type and the raw density (kg/m3).
type Salinity struct {
	Type    WaterType
	Density float64
}

// MetaString is one human-readable key/value pair from the dive metadata.
type MetaString struct {
	Desc  string
	Value string
}

// SampleKind tags the union fields of Sample that are meaningful.
type SampleKind int

const (
	SampleTime SampleKind = iota
	SampleDepth
	SampleTemperature
	SamplePPO2
	SampleSetpoint
	SampleCNS
	SampleGasMix
	SampleDeco
	SampleTankPressure
	SampleRBT
	SampleBookmark
)

func (k SampleKind) String() string {
	switch k {
	case SampleTime:
		return "time"
	case SampleDepth:
		return "depth"
	case SampleTemperature:
		return "temperature"
	case SamplePPO2:
		return "ppo2"
	case SampleSetpoint:
		return "setpoint"
	case SampleCNS:
		return "cns"
	case SampleGasMix:
		return "gasmix"
	case SampleDeco:
		return "deco"
	case SampleTankPressure:
		return "pressure"
	case SampleRBT:
		return "rbt"
	case SampleBookmark:
		return "bookmark"
	default:
		return "unknown"
	}
}

// DecoKind distinguishes a mandatory decompression stop from remaining
// no-decompression time.
type DecoKind int

const (
	DecoNDL DecoKind = iota
	DecoStop
)

// DecoStatus is the decompression state attached to one sample.
type DecoStatus struct {
	Kind  DecoKind
	Depth float64 // meters, zero for NDL
	Time  uint32  // seconds
}

// Bookmark is a user tag event translated from a native-layout info event.
type Bookmark struct {
	Time    uint32 // seconds since dive start
	Type    uint32 // tag type code, 0..5
	Heading uint32 // degrees, 0..360
}

// Sample is one tagged value from the sample stream. Kind selects which
// fields are populated:
//
//	SampleTime          Time (seconds since dive start)
//	SampleDepth         Depth (meters)
//	SampleTemperature   Temperature (degrees Celsius)
//	SamplePPO2          PPO2 (bar), Sensor (-1 for the voted value)
//	SampleSetpoint      Setpoint (bar)
//	SampleCNS           CNS (fraction)
//	SampleGasMix        Mix (index into the gas mix table)
//	SampleDeco          Deco
//	SampleTankPressure  Tank (0 or 1), Pressure (bar)
//	SampleRBT           RBT (minutes)
//	SampleBookmark      Event
type Sample struct {
	Kind        SampleKind
	Time        uint32
	Depth       float64
	Temperature float64
	PPO2        float64
	Sensor      int
	Setpoint    float64
	CNS         float64
	Mix         int
	Deco        DecoStatus
	Tank        int
	Pressure    float64
	RBT         uint32
	Event       Bookmark
}

// FieldKind selects a point query for Parser.Field.
type FieldKind int

const (
	FieldDiveTime FieldKind = iota
	FieldMaxDepth
	FieldGasMixCount
	FieldGasMix
	FieldSalinity
	FieldAtmospheric
	FieldMode
	FieldString
)
