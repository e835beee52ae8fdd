// Package emitter implements the emitter side of Phoenix: sensor fusion
// (spec §4.2) and the advertisement transmit loop (spec §4.3).
package emitter

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
)

const (
	accelHistoryMax = 10
	gyroHistoryMax  = 20
	fallArmN        = 5
	unstableArmN    = 10

	motionAccelDeltaG  = 0.1
	motionGyroRadPerS  = 0.5
	fallFreefallG      = 0.5
	fallImpactG        = 2.5
	fallPostureZDeltaG = 0.3
	fallPostureXYG     = 0.5
	unstableMeanFloor  = 1.0
	unstableVarFloor   = 0.5
)

// Output is the per-tick product of sensor fusion (spec §4.2): the flags and
// derived fields the transmit loop encodes into a payload.
type Output struct {
	MotionDetected   bool
	IsCharging       bool
	SOSActivated     bool
	LowBattery       bool
	GPSValid         bool
	Stationary       bool
	FallDetected     bool
	UnstableEnv      bool
	BatteryPct       float64
	RelativeAltitude float64 // metres
	Latitude         float64
	Longitude        float64
	AltitudeMSL      float64
}

// Fusion holds the per-emitter state that persists across ticks: boot time,
// the altitude origin captured once at first fix, and the rolling sensor
// history windows fall/unstable-environment detection read from.
type Fusion struct {
	tuning phxconfig.Tuning

	bootTime         time.Time
	startAltitude    *float64
	accelHistory     []float64
	gyroHistory      []float64
	fallDetectedUntil time.Time
}

// NewFusion creates a Fusion state machine that boots at t.
func NewFusion(tuning phxconfig.Tuning, bootTime time.Time) *Fusion {
	return &Fusion{tuning: tuning, bootTime: bootTime}
}

// BootTime returns the emitter's captured boot timestamp.
func (f *Fusion) BootTime() time.Time { return f.bootTime }

// Tick derives one payload's worth of flags and fields from a raw sensor
// snapshot and the fusion state's history, per spec §4.2.
func (f *Fusion) Tick(now time.Time, snap boundary.SensorSnapshot) Output {
	out := Output{
		IsCharging:   snap.IsCharging,
		SOSActivated: snap.SOSActivated,
		BatteryPct:   snap.BatteryPct,
	}

	out.MotionDetected = f.detectMotion(snap)
	out.Stationary = !out.MotionDetected

	if snap.Accel != nil {
		m := snap.Accel.Magnitude()
		f.accelHistory = pushCapped(f.accelHistory, m, accelHistoryMax)
	}
	if snap.Gyro != nil {
		m := snap.Gyro.Magnitude()
		f.gyroHistory = pushCapped(f.gyroHistory, m, gyroHistoryMax)
	}

	out.FallDetected = f.detectFall(now, snap)
	out.UnstableEnv = f.detectUnstableEnvironment()

	out.GPSValid = snap.Location != nil && snap.Location.AccuracyM < f.tuning.GPSValidMaxMetres
	if out.GPSValid {
		out.Latitude = snap.Location.Latitude
		out.Longitude = snap.Location.Longitude
		out.AltitudeMSL = snap.Location.AltitudeM
	}
	// Per §4.2: encoders must not backfill cached coordinates when GPS is
	// invalid; lat/lon stay zero and the receiver retains last-known GPS.

	out.RelativeAltitude = f.relativeAltitude(snap)

	out.LowBattery = snap.BatteryPct >= 0 && snap.BatteryPct < float64(f.tuning.LowBatteryPct)

	return out
}

func (f *Fusion) detectMotion(snap boundary.SensorSnapshot) bool {
	if snap.Accel != nil {
		return abs(snap.Accel.Magnitude()-1.0) > motionAccelDeltaG
	}
	if snap.Gyro != nil {
		return snap.Gyro.Magnitude() > motionGyroRadPerS
	}
	return false
}

// detectFall implements the §4.2 three-condition fall check plus the
// 60-second latch: once armed and triggered, FallDetected stays true
// regardless of current sensors until the cooldown deadline passes.
func (f *Fusion) detectFall(now time.Time, snap boundary.SensorSnapshot) bool {
	if now.Before(f.fallDetectedUntil) {
		return true
	}
	if len(f.accelHistory) < fallArmN || snap.Accel == nil {
		return false
	}

	var freefall, impact bool
	for _, m := range f.accelHistory {
		if m < fallFreefallG {
			freefall = true
		}
		if m > fallImpactG {
			impact = true
		}
	}

	a := *snap.Accel
	posture := abs(abs(a.Z)-1.0) <= fallPostureZDeltaG && abs(a.X) < fallPostureXYG && abs(a.Y) < fallPostureXYG

	if freefall && impact && posture {
		f.fallDetectedUntil = now.Add(f.tuning.FallCooldown)
		return true
	}
	return false
}

// detectUnstableEnvironment is not latched: it reflects only the current
// gyro window per §4.2.
func (f *Fusion) detectUnstableEnvironment() bool {
	if len(f.gyroHistory) < unstableArmN {
		return false
	}
	mean := stat.Mean(f.gyroHistory, nil)
	variance := stat.Variance(f.gyroHistory, nil)
	return mean > unstableMeanFloor && variance > unstableVarFloor
}

// relativeAltitude implements §4.2's altitude-origin capture and delta.
func (f *Fusion) relativeAltitude(snap boundary.SensorSnapshot) float64 {
	var current *float64
	switch {
	case snap.Altimeter != nil:
		v := snap.Altimeter.RelativeM
		current = &v
	case snap.Location != nil && snap.Location.HasAltitude:
		v := snap.Location.AltitudeM
		current = &v
	}
	if current == nil {
		return 0
	}
	if f.startAltitude == nil {
		start := *current
		f.startAltitude = &start
	}
	return *current - *f.startAltitude
}

func pushCapped(history []float64, v float64, max int) []float64 {
	history = append(history, v)
	if len(history) > max {
		history = history[len(history)-max:]
	}
	return history
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
