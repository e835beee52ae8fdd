package precision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
	"github.com/Rocky43007/phoenix/internal/receiver"
)

var finderEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestFinder() *Finder {
	return NewFinder(phxconfig.Default(), &boundary.MockHaptics{})
}

// TestUpdateLevelFartherRequiresHysteresis exercises the unambiguous §8
// invariant directly: from near, a monotonic climb to 1.65m is required
// before advancing to medium; climbing only to 1.6m must not.
func TestUpdateLevelFartherRequiresHysteresis(t *testing.T) {
	f := newTestFinder()
	f.levelInitialized = true
	f.level = LevelNear

	for _, d := range []float64{1.4, 1.5, 1.6} {
		lvl := f.updateLevel(d)
		assert.Equal(t, LevelNear, lvl, "distance %.2f should not yet clear the near->medium hysteresis threshold", d)
	}

	lvl := f.updateLevel(1.65)
	assert.Equal(t, LevelMedium, lvl, "distance at the 1.65m threshold should advance to medium")
}

// TestUpdateLevelScenario6Trajectory drives the 5.20, 5.10, 4.95, 5.12,
// 5.16 trajectory starting in medium: 5.20 already clears the 5.0+0.15m
// margin and moves to far, 5.10 stays far, the dip to 4.95 returns to
// medium instantly, 5.12 is held at medium by the hysteresis margin, and
// 5.16 clears it again.
func TestUpdateLevelScenario6Trajectory(t *testing.T) {
	f := newTestFinder()
	f.levelInitialized = true
	f.level = LevelMedium

	trajectory := []struct {
		d     float64
		level Level
	}{
		{5.20, LevelFar},
		{5.10, LevelFar},
		{4.95, LevelMedium},
		{5.12, LevelMedium},
		{5.16, LevelFar},
	}

	for _, step := range trajectory {
		lvl := f.updateLevel(step.d)
		assert.Equalf(t, step.level, lvl, "distance %.2f should settle at level %v", step.d, step.level)
	}
}

func TestUpdateLevelCloserIsInstant(t *testing.T) {
	f := newTestFinder()
	f.levelInitialized = true
	f.level = LevelMedium

	lvl := f.updateLevel(1.49)
	assert.Equal(t, LevelNear, lvl, "a closing move below the near/medium boundary should transition immediately, with no hysteresis")
}

func TestDistanceTextFormatting(t *testing.T) {
	assert.Equal(t, "Here", distanceText(LevelHere, 0.2))
	assert.Equal(t, `4"`, distanceText(LevelNear, 0.1016)) // ~0.333ft -> 4 inches, rounds within <5ft branch
	assert.Equal(t, "9.8ft", distanceText(LevelMedium, 3.0))
	assert.Equal(t, "328ft", distanceText(LevelFar, 100.0))
}

func TestFinderBLEFreshDistanceModel(t *testing.T) {
	tuning := phxconfig.Default()
	f := NewFinder(tuning, &boundary.MockHaptics{})

	rec := receiver.Record{
		RSSISmoothedDBM: int(tuning.MeasuredPowerDBM), // rssi == measured power -> d == 1m
		LastSeen:        finderEpoch,
	}
	out := f.Tick(finderEpoch, rec, nil, nil)
	assert.InDelta(t, 1.0, out.DistanceM, 0.01)
	assert.False(t, out.UsingGPSFallback)
}

func TestFinderGPSFallbackLiveness(t *testing.T) {
	tuning := phxconfig.Default()
	f := NewFinder(tuning, &boundary.MockHaptics{})

	beaconFields := phxcodec.EncodeInput{Latitude: 37.0, Longitude: -122.0, GPSValid: true}.Canonicalize()
	rec := receiver.Record{
		LastPayload: beaconFields,
		LastSeen:    finderEpoch.Add(-time.Hour), // far stale
	}
	loc := &boundary.Location{Latitude: 37.001, Longitude: -122.0}

	now := finderEpoch
	var last Output
	for i := 0; i < 4; i++ {
		now = now.Add(250 * time.Millisecond)
		last = f.Tick(now, rec, loc, nil)
		require.True(t, last.UsingGPSFallback)
		require.GreaterOrEqual(t, last.DistanceM, 0.0)
	}
}

func TestFinderHapticGating(t *testing.T) {
	tuning := phxconfig.Default()
	haptics := &boundary.MockHaptics{}
	f := NewFinder(tuning, haptics)

	rssi := int(tuning.MeasuredPowerDBM) // rssi == measured power -> d == 1m, inside the near-band haptic cadence
	rec := receiver.Record{RSSISmoothedDBM: rssi, LastSeen: finderEpoch}

	f.Tick(finderEpoch, rec, nil, nil)
	firstPulses := len(haptics.Pulses)

	f.Tick(finderEpoch.Add(50*time.Millisecond), rec, nil, nil)
	assert.Equal(t, firstPulses, len(haptics.Pulses), "haptic should not re-fire before its interval elapses")
}

func TestFinderBearingHoldsWithinDeadzone(t *testing.T) {
	tuning := phxconfig.Default()
	f := NewFinder(tuning, &boundary.MockHaptics{})

	beaconFields := phxcodec.EncodeInput{Latitude: 37.001, Longitude: -122.0, GPSValid: true}.Canonicalize()
	rec := receiver.Record{LastPayload: beaconFields, LastSeen: finderEpoch}
	loc := &boundary.Location{Latitude: 37.0, Longitude: -122.0}

	heading := 0.0
	out1 := f.Tick(finderEpoch, rec, loc, &heading)
	require.True(t, out1.HasLocation)

	heading = 2.0 // within the 5 degree deadzone
	out2 := f.Tick(finderEpoch.Add(250*time.Millisecond), rec, loc, &heading)
	assert.Equal(t, out1.BearingDeg, out2.BearingDeg, "small compass jitter within the deadzone should hold the prior bearing")
}
