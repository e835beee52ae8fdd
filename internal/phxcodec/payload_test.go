package phxcodec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestCanonicalRoundTrip exercises the worked example from spec §8 scenario 1.
func TestCanonicalRoundTrip(t *testing.T) {
	in := EncodeInput{
		DeviceID:         0xDEADBEEF,
		Latitude:         37.422000,
		Longitude:        -122.084000,
		AltitudeMSL:      12,
		RelativeAltitude: 0.50,
		Battery:          87,
		TimestampSeconds: 1234,
		GPSValid:         true,
		MotionDetected:   true,
	}

	got := Encode(in)
	want := [PayloadSize]byte{
		0xDE, 0xAD, 0xBE, 0xEF,
		0x42, 0x15, 0xB0, 0x21,
		0xC2, 0xF4, 0x2B, 0x02,
		0x00, 0x0C,
		0x00, 0x32,
		0x57,
		0x04, 0xD2,
		0x11,
	}
	if got != want {
		t.Fatalf("Encode() = % X, want % X", got, want)
	}

	decoded, err := Decode(got[:])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(in.Canonicalize(), decoded); diff != "" {
		t.Errorf("decode(encode(fields)) mismatch (-want +got):\n%s", diff)
	}
	if !Validate(decoded) {
		t.Errorf("Validate() = false, want true")
	}
}

func TestEncodeIdempotentOnDecodedForm(t *testing.T) {
	in := EncodeInput{
		DeviceID:         1,
		Latitude:         10.5,
		Longitude:        -20.25,
		AltitudeMSL:      100,
		RelativeAltitude: 1.23,
		Battery:          50.6,
		TimestampSeconds: 99.9,
	}
	first := Encode(in)
	decoded, err := Decode(first[:])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second := EncodeFields(decoded)
	if first != second {
		t.Fatalf("encode is not idempotent on its own decoded output: % X vs % X", first, second)
	}
}

func TestDecodeBadSize(t *testing.T) {
	_, err := Decode(make([]byte, 19))
	if err == nil {
		t.Fatal("expected error for undersized payload")
	}
}

func TestValidateOutOfRangeRejection(t *testing.T) {
	// Encode clamps battery to [0,100]; decode never does range enforcement,
	// so a raw Fields with an out-of-range value (as if hand-crafted on the
	// wire) still decodes but fails validation (spec §8 scenario 2).
	f := Fields{Battery: 101}
	if Validate(f) {
		t.Error("Validate() = true for battery=101, want false")
	}
}

func TestValidateLowBatteryInvariant(t *testing.T) {
	f := Fields{Battery: 50, Flags: FlagLowBattery}
	if Validate(f) {
		t.Error("Validate() = true for low_battery flag with battery=50, want false")
	}
	f.Battery = 10
	if !Validate(f) {
		t.Error("Validate() = false for low_battery flag with battery=10, want true")
	}
}

func TestTimestampSaturates(t *testing.T) {
	f := Encode(EncodeInput{TimestampSeconds: 1e9})
	decoded, _ := Decode(f[:])
	if decoded.Timestamp != 65535 {
		t.Errorf("Timestamp = %d, want 65535 (saturated)", decoded.Timestamp)
	}
}
