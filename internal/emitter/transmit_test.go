package emitter

import (
	"context"
	"testing"
	"time"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
)

// waitTick blocks until the loop's next tick completes or the test times out.
func waitTick(t *testing.T, loop *TransmitLoop) {
	t.Helper()
	loop.mu.Lock()
	ch := make(chan struct{}, 1)
	loop.tickDone = ch
	loop.mu.Unlock()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func newTestLoop(tuning phxconfig.Tuning) (*TransmitLoop, *boundary.MockPeripheral, *boundary.MockSensors, *phxclock.MockClock) {
	clock := phxclock.NewMockClock(epoch)
	peripheral := &boundary.MockPeripheral{}
	sensors := &boundary.MockSensors{}
	loop := NewTransmitLoop(tuning, clock, peripheral, sensors, 42, epoch)
	return loop, peripheral, sensors, clock
}

func TestTransmitLoopStartAdvertisesImmediately(t *testing.T) {
	loop, peripheral, _, _ := newTestLoop(phxconfig.Default())
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if loop.State() != StateAdvertising {
		t.Fatalf("state = %v, want Advertising", loop.State())
	}
	if len(peripheral.StartCalls) != 1 {
		t.Fatalf("expected one StartAdvertising call, got %d", len(peripheral.StartCalls))
	}

	_, payload, err := phxcodec.Unwrap(peripheral.StartCalls[0][:], phxconfig.Default().AcceptsCompanyID)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	fields, err := phxcodec.Decode(payload[:])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if fields.DeviceID != 42 {
		t.Errorf("DeviceID = %d, want 42", fields.DeviceID)
	}
}

func TestTransmitLoopStartIdempotentWhileAdvertising(t *testing.T) {
	loop, peripheral, _, _ := newTestLoop(phxconfig.Default())
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if len(peripheral.StartCalls) != 1 {
		t.Errorf("expected re-entrant Start to be a no-op, got %d advertise calls", len(peripheral.StartCalls))
	}
}

func TestTransmitLoopAdaptiveCadenceEmergency(t *testing.T) {
	tuning := phxconfig.Default()
	clock := phxclock.NewMockClock(epoch)
	peripheral := &boundary.MockPeripheral{}
	sensors := &boundary.MockSensors{Snapshots: []boundary.SensorSnapshot{
		{BatteryPct: 80, SOSActivated: true},
	}}
	loop := NewTransmitLoop(tuning, clock, peripheral, sensors, 1, epoch)

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	clock.Advance(tuning.IntervalEmergency)
	waitTick(t, loop)

	if len(peripheral.StartCalls) != 2 {
		t.Fatalf("expected a second advertise at the emergency interval, got %d calls", len(peripheral.StartCalls))
	}
}

func TestTransmitLoopStopHaltsFurtherTicks(t *testing.T) {
	tuning := phxconfig.Default()
	loop, peripheral, _, clock := newTestLoop(tuning)

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := loop.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if loop.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", loop.State())
	}

	calls := len(peripheral.StartCalls)
	clock.Advance(tuning.IntervalNormal * 2)
	time.Sleep(10 * time.Millisecond)

	if len(peripheral.StartCalls) != calls {
		t.Errorf("expected no further advertise calls after Stop, got %d new calls", len(peripheral.StartCalls)-calls)
	}
}

func TestTransmitLoopStartFailureReturnsToIdle(t *testing.T) {
	clock := phxclock.NewMockClock(epoch)
	peripheral := &boundary.MockPeripheral{InitErr: errBoom}
	sensors := &boundary.MockSensors{}
	loop := NewTransmitLoop(phxconfig.Default(), clock, peripheral, sensors, 1, epoch)

	err := loop.Start(context.Background())
	if err == nil {
		t.Fatal("expected error from failed peripheral initialize")
	}
	if loop.State() != StateIdle {
		t.Errorf("state = %v, want Idle after failed start", loop.State())
	}
}

var errBoom = &boomError{}

type boomError struct{}

func (e *boomError) Error() string { return "boom" }
