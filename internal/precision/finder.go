// Package precision implements the precision-finding engine (spec §4.5):
// BLE path-loss / GPS Haversine distance estimation, proximity hysteresis,
// bearing, and haptic cadence, driven by a receiver record and a stream of
// receiver-local location/compass samples.
package precision

import (
	"fmt"
	"math"
	"time"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/geo"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
	"github.com/Rocky43007/phoenix/internal/receiver"
)

// Level is a proximity band, ordered closest to farthest.
type Level int

const (
	LevelHere Level = iota
	LevelNear
	LevelMedium
	LevelFar
)

func (l Level) String() string {
	switch l {
	case LevelHere:
		return "here"
	case LevelNear:
		return "near"
	case LevelMedium:
		return "medium"
	default:
		return "far"
	}
}

// Output is the per-tick product of the precision finder (spec §4.5).
type Output struct {
	DistanceM        float64
	ProximityLevel   Level
	DistanceText     string
	BearingDeg       float64
	HasLocation      bool
	UsingGPSFallback bool
	HapticIntervalMS int
	FineTuning       bool
}

// Finder holds the state that persists across ticks for one chosen emitter:
// the distance smoothing window, the proximity hysteresis level, the GPS
// fallback's closing-speed predictor, and the bearing/haptic cadence state.
type Finder struct {
	tuning  phxconfig.Tuning
	haptics boundary.Haptics

	distHistory []float64

	levelInitialized bool
	level            Level

	gpsPrevDistance    *float64
	gpsFallbackActive  bool
	lastGPSComputeTime time.Time

	compassHistory      []float64
	lastEmittedBearing  *float64

	lastPulseTime time.Time
	hasPulsed     bool
}

// NewFinder builds a precision finder for a single chosen emitter.
func NewFinder(tuning phxconfig.Tuning, haptics boundary.Haptics) *Finder {
	return &Finder{tuning: tuning, haptics: haptics}
}

// Tick derives one frame's worth of distance, proximity, bearing and haptic
// decisions from the current receiver record and receiver-local samples.
// receiverLoc and compassDeg may be nil when the receiver has no fix or
// heading sample yet.
func (f *Finder) Tick(now time.Time, rec receiver.Record, receiverLoc *boundary.Location, compassDeg *float64) Output {
	beaconHasGPS := rec.LastPayload.HasFlag(phxcodec.FlagGPSValid) || rec.UsingCachedGPS
	bleFresh := now.Sub(rec.LastSeen) <= f.tuning.BleFresh

	usingGPSFallback := false
	haveDistance := false
	var rawDistance float64

	switch {
	case bleFresh:
		rawDistance = bleDistance(f.tuning, rec.RSSISmoothedDBM)
		haveDistance = true
		f.gpsFallbackActive = false
		f.gpsPrevDistance = nil

	case beaconHasGPS && receiverLoc != nil:
		usingGPSFallback = true
		d := geo.DistanceMetres(receiverLoc.Latitude, receiverLoc.Longitude,
			float64(rec.LastPayload.Latitude), float64(rec.LastPayload.Longitude))
		rawDistance = f.predictGPSDistance(now, d)
		haveDistance = true
	}

	if haveDistance {
		f.distHistory = append(f.distHistory, rawDistance)
		if len(f.distHistory) > f.tuning.DistanceSmoothingN {
			f.distHistory = f.distHistory[len(f.distHistory)-f.tuning.DistanceSmoothingN:]
		}
	}

	dSmoothed := f.smoothedDistance()
	level := f.updateLevel(dSmoothed)
	bearing, hasLocation := f.updateBearing(receiverLoc, rec, compassDeg)

	interval, pattern := hapticPlan(dSmoothed)
	if interval > 0 && (!f.hasPulsed || now.Sub(f.lastPulseTime) >= time.Duration(interval)*time.Millisecond) {
		f.haptics.Pulse(pattern)
		f.lastPulseTime = now
		f.hasPulsed = true
	}

	return Output{
		DistanceM:        dSmoothed,
		ProximityLevel:   level,
		DistanceText:     distanceText(level, dSmoothed),
		BearingDeg:       bearing,
		HasLocation:      hasLocation,
		UsingGPSFallback: usingGPSFallback,
		HapticIntervalMS: interval,
		FineTuning:       dSmoothed < f.tuning.NearM,
	}
}

// predictGPSDistance implements the §4.5 GPS-fallback closing-speed
// prediction: the first recomputation after entering fallback predicts with
// a 0.5s look-ahead, subsequent periodic recomputations with a 0.125s
// look-ahead, and only while the beacon is closing.
func (f *Finder) predictGPSDistance(now time.Time, d float64) float64 {
	predicted := d
	if f.gpsPrevDistance != nil {
		elapsed := now.Sub(f.lastGPSComputeTime).Seconds()
		if elapsed > 0 && d < *f.gpsPrevDistance {
			speed := (*f.gpsPrevDistance - d) / elapsed
			lookAhead := 0.125
			if !f.gpsFallbackActive {
				lookAhead = 0.5
			}
			predicted = d - speed*lookAhead
			if predicted < 0 {
				predicted = 0
			}
		}
		f.gpsFallbackActive = true
	}
	f.gpsPrevDistance = &d
	f.lastGPSComputeTime = now
	return predicted
}

func (f *Finder) smoothedDistance() float64 {
	if len(f.distHistory) == 0 {
		return 0
	}
	var sum float64
	for _, d := range f.distHistory {
		sum += d
	}
	return sum / float64(len(f.distHistory))
}

func bleDistance(t phxconfig.Tuning, rssiSmoothed int) float64 {
	exponent := (t.MeasuredPowerDBM - float64(rssiSmoothed)) / (10 * t.PathLossExponent)
	return math.Pow(10, exponent)
}

func naturalLevel(d float64, t phxconfig.Tuning) Level {
	switch {
	case d < t.HereM:
		return LevelHere
	case d < t.NearM:
		return LevelNear
	case d < t.MediumM:
		return LevelMedium
	default:
		return LevelFar
	}
}

// levelBound returns the distance separating l from the next farther level,
// or -1 for LevelFar, which has none.
func levelBound(l Level, t phxconfig.Tuning) float64 {
	switch l {
	case LevelHere:
		return t.HereM
	case LevelNear:
		return t.NearM
	case LevelMedium:
		return t.MediumM
	default:
		return -1
	}
}

// updateLevel implements the §4.5 proximity hysteresis state machine:
// closer transitions are instant, farther transitions require clearing the
// current level's threshold by HysteresisM.
func (f *Finder) updateLevel(d float64) Level {
	natural := naturalLevel(d, f.tuning)
	if !f.levelInitialized {
		f.levelInitialized = true
		f.level = natural
		return f.level
	}

	switch {
	case natural < f.level:
		f.level = natural
	case natural > f.level:
		bound := levelBound(f.level, f.tuning)
		if bound >= 0 && d >= bound+f.tuning.HysteresisM {
			f.level = natural
		}
	}
	return f.level
}

// distanceText renders d in imperial units per §4.5.
func distanceText(level Level, d float64) string {
	if level == LevelHere {
		return "Here"
	}
	feet := d * 3.28084
	switch {
	case feet < 5:
		return fmt.Sprintf("%d\"", int(math.Round(feet*12)))
	case feet < 100:
		return fmt.Sprintf("%.1fft", feet)
	default:
		return fmt.Sprintf("%dft", int(math.Round(feet)))
	}
}

// updateBearing computes the device-relative bearing to the beacon,
// smoothing the compass heading over a short circular window and holding
// the previously emitted bearing until the change exceeds the deadzone.
func (f *Finder) updateBearing(receiverLoc *boundary.Location, rec receiver.Record, compassDeg *float64) (float64, bool) {
	beaconHasGPS := rec.LastPayload.HasFlag(phxcodec.FlagGPSValid) || rec.UsingCachedGPS
	if receiverLoc == nil || !beaconHasGPS || compassDeg == nil {
		return 0, false
	}

	trueBearing := geo.InitialBearingDeg(receiverLoc.Latitude, receiverLoc.Longitude,
		float64(rec.LastPayload.Latitude), float64(rec.LastPayload.Longitude))

	f.compassHistory = append(f.compassHistory, *compassDeg)
	if len(f.compassHistory) > f.tuning.CompassSmoothingN {
		f.compassHistory = f.compassHistory[len(f.compassHistory)-f.tuning.CompassSmoothingN:]
	}
	smoothedCompass := circularMean(f.compassHistory)
	relative := math.Mod(trueBearing-smoothedCompass+360, 360)

	if f.lastEmittedBearing == nil || circularDiff(relative, *f.lastEmittedBearing) > f.tuning.BearingDeadzoneDeg {
		v := relative
		f.lastEmittedBearing = &v
	}
	return *f.lastEmittedBearing, true
}

func circularMean(samplesDeg []float64) float64 {
	var sumSin, sumCos float64
	for _, s := range samplesDeg {
		r := s * math.Pi / 180
		sumSin += math.Sin(r)
		sumCos += math.Cos(r)
	}
	deg := math.Atan2(sumSin, sumCos) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func circularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// hapticPlan implements the §4.5 haptic cadence table.
func hapticPlan(d float64) (intervalMS int, pattern boundary.HapticPattern) {
	switch {
	case d < 0.5:
		return 0, boundary.HapticPattern{}
	case d < 1.5:
		return 700, boundary.HapticPattern{Pulses: []boundary.HapticPulse{
			{DurationMS: 80, GapMS: 50},
			{DurationMS: 80, GapMS: 0},
		}}
	case d < 3.0:
		frac := (d - 1.5) / 1.5
		interval := 1000 + frac*1000
		return int(math.Round(interval)), boundary.HapticPattern{Pulses: []boundary.HapticPulse{
			{DurationMS: 100, GapMS: 0},
		}}
	default:
		return 0, boundary.HapticPattern{}
	}
}
