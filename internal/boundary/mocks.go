package boundary

import "context"

// MockPeripheral is a scriptable Peripheral test double, in the style of
// this lineage's serial-port mocks: fields record what happened, optional
// error fields make any call fail on demand.
type MockPeripheral struct {
	InitErr          error
	StartErr         error
	StopErr          error
	StateValue       PeripheralState
	StartCalls       [][24]byte
	StopCalls        int
	InitCalls        int
}

func (m *MockPeripheral) Initialize(ctx context.Context) error {
	m.InitCalls++
	return m.InitErr
}

func (m *MockPeripheral) StartAdvertising(ctx context.Context, data [24]byte) error {
	if m.StartErr != nil {
		return m.StartErr
	}
	m.StartCalls = append(m.StartCalls, data)
	return nil
}

func (m *MockPeripheral) StopAdvertising(ctx context.Context) error {
	m.StopCalls++
	return m.StopErr
}

func (m *MockPeripheral) State() PeripheralState {
	if m.StateValue == StateUnknown {
		return StatePoweredOn
	}
	return m.StateValue
}

// MockCentral is a scriptable Central test double. Feed advertises to the
// registered callback via Deliver once scanning has started.
type MockCentral struct {
	InitErr    error
	StartErr   error
	StopErr    error
	onAdvert   func(Advertisement)
	Scanning   bool
	StopCalls  int
	InitCalls  int
}

func (m *MockCentral) Initialize(ctx context.Context) error {
	m.InitCalls++
	return m.InitErr
}

func (m *MockCentral) StartScanning(ctx context.Context, onAdvertisement func(Advertisement)) error {
	if m.StartErr != nil {
		return m.StartErr
	}
	m.onAdvert = onAdvertisement
	m.Scanning = true
	return nil
}

func (m *MockCentral) StopScanning(ctx context.Context) error {
	m.StopCalls++
	m.Scanning = false
	return m.StopErr
}

// Deliver simulates the platform delivering an advertisement callback. It is
// a no-op once StopScanning has been called, matching the §5 requirement
// that outstanding callbacks after stop are no-ops.
func (m *MockCentral) Deliver(a Advertisement) {
	if m.Scanning && m.onAdvert != nil {
		m.onAdvert(a)
	}
}

// MockSensors returns a fixed snapshot sequence, one per call, repeating the
// last entry once exhausted.
type MockSensors struct {
	Snapshots []SensorSnapshot
	Err       error
	calls     int
}

func (m *MockSensors) Snapshot(ctx context.Context) (SensorSnapshot, error) {
	if m.Err != nil {
		return SensorSnapshot{}, m.Err
	}
	if len(m.Snapshots) == 0 {
		return SensorSnapshot{}, nil
	}
	idx := m.calls
	if idx >= len(m.Snapshots) {
		idx = len(m.Snapshots) - 1
	}
	m.calls++
	return m.Snapshots[idx], nil
}

// MockHaptics records every pattern fired.
type MockHaptics struct {
	Pulses []HapticPattern
}

func (m *MockHaptics) Pulse(pattern HapticPattern) {
	m.Pulses = append(m.Pulses, pattern)
}

// MockRng returns a fixed device id.
type MockRng struct {
	ID uint32
}

func (m *MockRng) DeviceID() uint32 { return m.ID }
