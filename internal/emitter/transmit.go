package emitter

import (
	"context"
	"sync"
	"time"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
	"github.com/Rocky43007/phoenix/internal/phxerr"
	"github.com/Rocky43007/phoenix/internal/phxlog"
)

// State is a transmit-loop lifecycle state (spec §4.3).
type State int

const (
	StateIdle State = iota
	StateStarting
	StateAdvertising
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAdvertising:
		return "advertising"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// TransmitLoop drives Idle → Starting → Advertising → Stopping → Idle, with
// an Error transition from any state that returns to Idle after a best-effort
// stop. All shared state is mutated only while holding mu, realizing the §5
// "serialized mutation" contract via a plain mutex.
type TransmitLoop struct {
	tuning     phxconfig.Tuning
	clock      phxclock.Clock
	peripheral boundary.Peripheral
	sensors    boundary.Sensors
	fusion     *Fusion
	deviceID   uint32

	onStateChange func(State)

	mu    sync.Mutex
	state State
	timer phxclock.Timer

	// tickDone, when non-nil, receives a signal after every completed tick.
	// It exists only so tests can synchronize with the timer-driven goroutine
	// in tick instead of sleeping.
	tickDone chan struct{}
}

// NewTransmitLoop builds a transmit loop. bootTime is the fusion window's
// time origin (spec §3's "boot timestamp"); deviceId is the emitter's
// opaque 4-byte identity.
func NewTransmitLoop(tuning phxconfig.Tuning, clock phxclock.Clock, peripheral boundary.Peripheral, sensors boundary.Sensors, deviceID uint32, bootTime time.Time) *TransmitLoop {
	return &TransmitLoop{
		tuning:     tuning,
		clock:      clock,
		peripheral: peripheral,
		sensors:    sensors,
		fusion:     NewFusion(tuning, bootTime),
		deviceID:   deviceID,
		state:      StateIdle,
	}
}

// OnStateChange registers a callback invoked whenever the loop transitions
// state. It is called with mu held, right after the new state has been
// stored, so it must not call back into the loop.
func (t *TransmitLoop) OnStateChange(f func(State)) {
	t.mu.Lock()
	t.onStateChange = f
	t.mu.Unlock()
}

// State returns the current lifecycle state.
func (t *TransmitLoop) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *TransmitLoop) setState(s State) {
	t.state = s
	if t.onStateChange != nil {
		t.onStateChange(s)
	}
}

// Start begins advertising. Re-entry while already Advertising is a no-op
// (idempotent per §4.3).
func (t *TransmitLoop) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateAdvertising || t.state == StateStarting {
		t.mu.Unlock()
		return nil
	}
	t.setState(StateStarting)
	t.mu.Unlock()

	if err := t.peripheral.Initialize(ctx); err != nil {
		phxlog.Logf("phoenix/emitter: peripheral initialize failed: %v", err)
		t.mu.Lock()
		t.setState(StateError)
		t.setState(StateIdle)
		t.mu.Unlock()
		return &phxerr.BleUnavailableError{State: t.peripheral.State().String()}
	}

	t.mu.Lock()
	t.setState(StateAdvertising)
	t.mu.Unlock()

	return t.tick(ctx)
}

// tick builds and advertises one payload, then arms the next tick at the
// adaptive interval (spec §4.3 steps 3-4). It is re-entered from the timer
// callback for every subsequent tick while Advertising.
func (t *TransmitLoop) tick(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateAdvertising {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	snap, err := t.sensors.Snapshot(ctx)
	if err != nil {
		phxlog.Logf("phoenix/emitter: sensor snapshot degraded: %v", err)
	}

	now := t.clock.Now()
	fused := t.fusion.Tick(now, snap)
	elapsed := t.clock.Since(t.fusion.BootTime())

	fields := phxcodec.Encode(phxcodec.EncodeInput{
		DeviceID:         t.deviceID,
		Latitude:         fused.Latitude,
		Longitude:        fused.Longitude,
		AltitudeMSL:      fused.AltitudeMSL,
		RelativeAltitude: fused.RelativeAltitude,
		Battery:          fused.BatteryPct,
		TimestampSeconds: elapsed.Seconds(),
		MotionDetected:   fused.MotionDetected,
		IsCharging:       fused.IsCharging,
		SOSActivated:     fused.SOSActivated,
		LowBattery:       fused.LowBattery,
		GPSValid:         fused.GPSValid,
		Stationary:       fused.Stationary,
		FallDetected:     fused.FallDetected,
		UnstableEnv:      fused.UnstableEnv,
	})
	frame := phxcodec.Wrap(fields, t.tuning.EmitterCompanyID)

	// Stop before start to force the platform to refresh advertised data;
	// stop errors are ignored per §4.3.
	_ = t.peripheral.StopAdvertising(ctx)
	if err := t.peripheral.StartAdvertising(ctx, frame); err != nil {
		phxlog.Logf("phoenix/emitter: start advertising failed: %v", err)
		t.mu.Lock()
		t.setState(StateError)
		_ = t.peripheral.StopAdvertising(ctx)
		t.setState(StateIdle)
		t.mu.Unlock()
		return &phxerr.TransmissionError{Cause: err}
	}

	interval := nextInterval(t.tuning, fused)

	t.mu.Lock()
	if t.state != StateAdvertising {
		t.mu.Unlock()
		return nil
	}
	t.timer = t.clock.NewTimer(interval)
	timer := t.timer
	t.mu.Unlock()

	go func() {
		<-timer.C()
		_ = t.tick(ctx)
	}()

	t.mu.Lock()
	done := t.tickDone
	t.mu.Unlock()
	if done != nil {
		select {
		case done <- struct{}{}:
		default:
		}
	}
	return nil
}

// nextInterval picks the adaptive cadence of spec §4.3: emergencies dominate
// battery state, which dominates motion.
func nextInterval(tuning phxconfig.Tuning, out Output) time.Duration {
	switch {
	case out.SOSActivated || out.FallDetected || out.UnstableEnv:
		return tuning.IntervalEmergency
	case out.BatteryPct < float64(tuning.CriticalBatteryPct):
		return tuning.IntervalCritical
	case out.LowBattery:
		return tuning.IntervalPowerSave
	case out.MotionDetected:
		return tuning.IntervalActive
	default:
		return tuning.IntervalNormal
	}
}

// Stop cancels any pending tick, stops the peripheral, and returns to Idle.
// Outstanding callbacks arriving after Stop are guarded by the state check
// at the top of tick (spec §5).
func (t *TransmitLoop) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateIdle {
		t.mu.Unlock()
		return nil
	}
	t.setState(StateStopping)
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	err := t.peripheral.StopAdvertising(ctx)

	t.mu.Lock()
	t.setState(StateIdle)
	t.mu.Unlock()

	return err
}
