// Package phxcodec implements the Phoenix beacon wire protocol: a fixed
// 20-byte payload (§3) and its 24-byte manufacturer-data framing (§4.1).
// Multi-byte payload fields are big-endian; the 2-byte framing fields
// (company ID, magic) are little-endian, matching BLE manufacturer-data
// convention. There is no version byte — format changes must repurpose
// reserved flag bits or change the magic.
package phxcodec

import (
	"encoding/binary"
	"math"

	"github.com/Rocky43007/phoenix/internal/phxerr"
)

// PayloadSize is the exact length of an encoded Phoenix payload.
const PayloadSize = 20

// FrameSize is the exact length of a wrapped manufacturer-data frame.
const FrameSize = 24

// Magic disambiguates Phoenix frames from other manufacturer data sharing a
// company ID. ASCII "PH".
const Magic uint16 = 0x5048

// Flag bit positions, bit 0 = LSB.
const (
	FlagMotionDetected uint8 = 1 << 0
	FlagIsCharging     uint8 = 1 << 1
	FlagSOSActivated   uint8 = 1 << 2
	FlagLowBattery     uint8 = 1 << 3
	FlagGPSValid       uint8 = 1 << 4
	FlagStationary     uint8 = 1 << 5
	FlagFallDetected   uint8 = 1 << 6
	FlagUnstableEnv    uint8 = 1 << 7
)

// Fields is the decoded/pre-encode representation of a Phoenix payload.
type Fields struct {
	DeviceID         uint32
	Latitude         float32 // degrees, [-90, 90]
	Longitude        float32 // degrees, [-180, 180]
	AltitudeMSL      int16   // metres, [-500, 9000]
	RelativeAltitude int16   // centimetres from emitter start
	Battery          uint8   // percent, [0, 100]
	Timestamp        uint16  // seconds since emitter boot, saturating
	Flags            uint8
}

// HasFlag reports whether the given flag bit is set.
func (f Fields) HasFlag(bit uint8) bool { return f.Flags&bit != 0 }

// EncodeInput is the pre-clamp view of a payload that Encode accepts. Unlike
// Fields, numeric inputs here are the raw floating-point values a sensor
// fusion pass would hand the codec; Encode performs the §4.1 clamping and
// rounding and returns the bytes, and Canonicalize returns the canonical
// Fields for the same input.
type EncodeInput struct {
	DeviceID         uint32
	Latitude         float64
	Longitude        float64
	AltitudeMSL      float64 // metres; caller is expected to pre-clamp to [-500, 9000]
	RelativeAltitude float64 // metres; rounded to nearest cm
	Battery          float64 // percent; clamped to [0, 100] and rounded
	TimestampSeconds float64 // seconds since boot; floored, saturating at 65535
	MotionDetected   bool
	IsCharging       bool
	SOSActivated     bool
	LowBattery       bool
	GPSValid         bool
	Stationary       bool
	FallDetected     bool
	UnstableEnv      bool
}

// Canonicalize applies Encode's clamping/rounding rules without producing
// bytes, so callers (and the round-trip test) can compare a decoded payload
// against the canonical form of its input.
func (in EncodeInput) Canonicalize() Fields {
	battery := in.Battery
	if battery < 0 {
		battery = 0
	}
	if battery > 100 {
		battery = 100
	}

	ts := math.Floor(in.TimestampSeconds)
	if ts < 0 {
		ts = 0
	}
	if ts > 65535 {
		ts = 65535
	}

	var flags uint8
	if in.MotionDetected {
		flags |= FlagMotionDetected
	}
	if in.IsCharging {
		flags |= FlagIsCharging
	}
	if in.SOSActivated {
		flags |= FlagSOSActivated
	}
	if in.LowBattery {
		flags |= FlagLowBattery
	}
	if in.GPSValid {
		flags |= FlagGPSValid
	}
	if in.Stationary {
		flags |= FlagStationary
	}
	if in.FallDetected {
		flags |= FlagFallDetected
	}
	if in.UnstableEnv {
		flags |= FlagUnstableEnv
	}

	return Fields{
		DeviceID:         in.DeviceID,
		Latitude:         float32(in.Latitude),
		Longitude:        float32(in.Longitude),
		AltitudeMSL:      int16(math.Round(in.AltitudeMSL)),
		RelativeAltitude: int16(math.Round(in.RelativeAltitude * 100)),
		Battery:          uint8(math.Round(battery)),
		Timestamp:        uint16(ts),
		Flags:            flags,
	}
}

// Encode clamps and rounds in per §4.1 and serializes the canonical fields
// to a 20-byte payload.
func Encode(in EncodeInput) [PayloadSize]byte {
	return EncodeFields(in.Canonicalize())
}

// EncodeFields serializes already-canonical fields directly, with no further
// clamping. Used when the caller (e.g. a decoded-then-reencoded payload) has
// already produced valid Fields.
func EncodeFields(f Fields) [PayloadSize]byte {
	var out [PayloadSize]byte
	binary.BigEndian.PutUint32(out[0:4], f.DeviceID)
	binary.BigEndian.PutUint32(out[4:8], math.Float32bits(f.Latitude))
	binary.BigEndian.PutUint32(out[8:12], math.Float32bits(f.Longitude))
	binary.BigEndian.PutUint16(out[12:14], uint16(f.AltitudeMSL))
	binary.BigEndian.PutUint16(out[14:16], uint16(f.RelativeAltitude))
	out[16] = f.Battery
	binary.BigEndian.PutUint16(out[17:19], f.Timestamp)
	out[19] = f.Flags
	return out
}

// Decode parses a 20-byte payload into Fields without enforcing §3's range
// invariants; use Validate for that. Returns phxerr.ErrBadSize if data is
// not exactly PayloadSize bytes.
func Decode(data []byte) (Fields, error) {
	if len(data) != PayloadSize {
		return Fields{}, phxerr.ErrBadSize
	}
	return Fields{
		DeviceID:         binary.BigEndian.Uint32(data[0:4]),
		Latitude:         math.Float32frombits(binary.BigEndian.Uint32(data[4:8])),
		Longitude:        math.Float32frombits(binary.BigEndian.Uint32(data[8:12])),
		AltitudeMSL:      int16(binary.BigEndian.Uint16(data[12:14])),
		RelativeAltitude: int16(binary.BigEndian.Uint16(data[14:16])),
		Battery:          data[16],
		Timestamp:        binary.BigEndian.Uint16(data[17:19]),
		Flags:            data[19],
	}, nil
}

// Validate performs the §3 invariant check used by receivers to drop
// malformed advertisements. It does not touch the wire format.
func Validate(f Fields) bool {
	if f.Latitude < -90 || f.Latitude > 90 {
		return false
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return false
	}
	if f.Battery > 100 {
		return false
	}
	if f.AltitudeMSL < -500 || f.AltitudeMSL > 9000 {
		return false
	}
	if f.HasFlag(FlagLowBattery) && f.Battery >= 20 {
		return false
	}
	return true
}
