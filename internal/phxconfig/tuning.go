// Package phxconfig holds the tuning constants enumerated in spec §6 as a
// JSON-addressable struct, following the same partial-override pattern the
// rest of this lineage uses for runtime tuning: a canonical Default(), and
// an optional JSON file that overrides only the fields it names.
package phxconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning collects every constant the core consults. Field names match the
// §6 identifiers; JSON tags are snake_case for on-disk overrides.
type Tuning struct {
	IntervalEmergency  time.Duration `json:"interval_emergency_ms"`
	IntervalCritical   time.Duration `json:"interval_critical_ms"`
	IntervalPowerSave  time.Duration `json:"interval_power_save_ms"`
	IntervalActive     time.Duration `json:"interval_active_ms"`
	IntervalNormal     time.Duration `json:"interval_normal_ms"`
	FallCooldown       time.Duration `json:"fall_cooldown_ms"`
	StaleTimeout       time.Duration `json:"stale_timeout_ms"`
	BleFresh           time.Duration `json:"ble_fresh_ms"`
	MeasuredPowerDBM   float64       `json:"measured_power_dbm"`
	PathLossExponent   float64       `json:"path_loss_exponent"`
	DistanceSmoothingN int           `json:"distance_smoothing_n"`
	RSSIHistoryN       int           `json:"rssi_history_n"`
	RSSIIQRMinRetained int           `json:"rssi_iqr_min_retained"`
	RSSIOutlierArmN    int           `json:"rssi_outlier_arm_n"`
	GPSValidMaxMetres  float64       `json:"gps_valid_max_metres"`
	GPSHistoryMinStepM float64       `json:"gps_history_min_step_metres"`
	LocationHistoryN   int           `json:"location_history_n"`
	HereM              float64       `json:"here_m"`
	NearM              float64       `json:"near_m"`
	MediumM            float64       `json:"medium_m"`
	HysteresisM        float64       `json:"hysteresis_m"`
	CompassSmoothingN  int           `json:"compass_smoothing_n"`
	BearingDeadzoneDeg float64       `json:"bearing_deadzone_deg"`
	AcceptedCompanyIDs []uint16      `json:"accepted_company_ids"`
	EmitterCompanyID   uint16        `json:"emitter_company_id"`
	LowBatteryPct      int           `json:"low_battery_pct"`
	CriticalBatteryPct int           `json:"critical_battery_pct"`
}

// Default returns the §6 tuning constants.
func Default() Tuning {
	return Tuning{
		IntervalEmergency:  1 * time.Second,
		IntervalCritical:   15 * time.Second,
		IntervalPowerSave:  10 * time.Second,
		IntervalActive:     3 * time.Second,
		IntervalNormal:     5 * time.Second,
		FallCooldown:       60 * time.Second,
		StaleTimeout:       60 * time.Second,
		BleFresh:           3 * time.Second,
		MeasuredPowerDBM:   -59,
		PathLossExponent:   2.0,
		DistanceSmoothingN: 10,
		RSSIHistoryN:       10,
		RSSIIQRMinRetained: 3,
		RSSIOutlierArmN:    5,
		GPSValidMaxMetres:  200,
		GPSHistoryMinStepM: 5,
		LocationHistoryN:   10,
		HereM:              0.5,
		NearM:              1.5,
		MediumM:            5.0,
		HysteresisM:        0.15,
		CompassSmoothingN:  5,
		BearingDeadzoneDeg: 5,
		AcceptedCompanyIDs: []uint16{0x004C, 0x0075},
		EmitterCompanyID:   0x004C,
		LowBatteryPct:      20,
		CriticalBatteryPct: 10,
	}
}

// overrides mirrors Tuning with every field optional, so a JSON file may
// name only the constants it wants to change.
type overrides struct {
	IntervalEmergencyMS  *int64   `json:"interval_emergency_ms"`
	IntervalCriticalMS   *int64   `json:"interval_critical_ms"`
	IntervalPowerSaveMS  *int64   `json:"interval_power_save_ms"`
	IntervalActiveMS     *int64   `json:"interval_active_ms"`
	IntervalNormalMS     *int64   `json:"interval_normal_ms"`
	FallCooldownMS       *int64   `json:"fall_cooldown_ms"`
	StaleTimeoutMS       *int64   `json:"stale_timeout_ms"`
	BleFreshMS           *int64   `json:"ble_fresh_ms"`
	MeasuredPowerDBM     *float64 `json:"measured_power_dbm"`
	PathLossExponent     *float64 `json:"path_loss_exponent"`
	DistanceSmoothingN   *int     `json:"distance_smoothing_n"`
	RSSIHistoryN         *int     `json:"rssi_history_n"`
	RSSIIQRMinRetained   *int     `json:"rssi_iqr_min_retained"`
	RSSIOutlierArmN      *int     `json:"rssi_outlier_arm_n"`
	GPSValidMaxMetres    *float64 `json:"gps_valid_max_metres"`
	GPSHistoryMinStepM   *float64 `json:"gps_history_min_step_metres"`
	LocationHistoryN     *int     `json:"location_history_n"`
	HereM                *float64 `json:"here_m"`
	NearM                *float64 `json:"near_m"`
	MediumM              *float64 `json:"medium_m"`
	HysteresisM          *float64 `json:"hysteresis_m"`
	CompassSmoothingN    *int     `json:"compass_smoothing_n"`
	BearingDeadzoneDeg   *float64 `json:"bearing_deadzone_deg"`
	AcceptedCompanyIDs   []uint16 `json:"accepted_company_ids"`
	EmitterCompanyID     *uint16  `json:"emitter_company_id"`
	LowBatteryPct        *int     `json:"low_battery_pct"`
	CriticalBatteryPct   *int     `json:"critical_battery_pct"`
}

// LoadFile reads a JSON overrides file and applies it on top of Default().
// Fields the file omits keep their default values, so partial configs are
// safe. The path must end in .json and be under 1MB, matching the guard the
// rest of this lineage applies to operator-supplied config files.
func LoadFile(path string) (Tuning, error) {
	t := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return t, fmt.Errorf("phxconfig: config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return t, fmt.Errorf("phxconfig: stat config: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return t, fmt.Errorf("phxconfig: config file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return t, fmt.Errorf("phxconfig: read config: %w", err)
	}

	var o overrides
	if err := json.Unmarshal(data, &o); err != nil {
		return t, fmt.Errorf("phxconfig: parse config: %w", err)
	}
	t.apply(o)

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("phxconfig: invalid config: %w", err)
	}
	return t, nil
}

func (t *Tuning) apply(o overrides) {
	setDuration := func(dst *time.Duration, ms *int64) {
		if ms != nil {
			*dst = time.Duration(*ms) * time.Millisecond
		}
	}
	setDuration(&t.IntervalEmergency, o.IntervalEmergencyMS)
	setDuration(&t.IntervalCritical, o.IntervalCriticalMS)
	setDuration(&t.IntervalPowerSave, o.IntervalPowerSaveMS)
	setDuration(&t.IntervalActive, o.IntervalActiveMS)
	setDuration(&t.IntervalNormal, o.IntervalNormalMS)
	setDuration(&t.FallCooldown, o.FallCooldownMS)
	setDuration(&t.StaleTimeout, o.StaleTimeoutMS)
	setDuration(&t.BleFresh, o.BleFreshMS)

	if o.MeasuredPowerDBM != nil {
		t.MeasuredPowerDBM = *o.MeasuredPowerDBM
	}
	if o.PathLossExponent != nil {
		t.PathLossExponent = *o.PathLossExponent
	}
	if o.DistanceSmoothingN != nil {
		t.DistanceSmoothingN = *o.DistanceSmoothingN
	}
	if o.RSSIHistoryN != nil {
		t.RSSIHistoryN = *o.RSSIHistoryN
	}
	if o.RSSIIQRMinRetained != nil {
		t.RSSIIQRMinRetained = *o.RSSIIQRMinRetained
	}
	if o.RSSIOutlierArmN != nil {
		t.RSSIOutlierArmN = *o.RSSIOutlierArmN
	}
	if o.GPSValidMaxMetres != nil {
		t.GPSValidMaxMetres = *o.GPSValidMaxMetres
	}
	if o.GPSHistoryMinStepM != nil {
		t.GPSHistoryMinStepM = *o.GPSHistoryMinStepM
	}
	if o.LocationHistoryN != nil {
		t.LocationHistoryN = *o.LocationHistoryN
	}
	if o.HereM != nil {
		t.HereM = *o.HereM
	}
	if o.NearM != nil {
		t.NearM = *o.NearM
	}
	if o.MediumM != nil {
		t.MediumM = *o.MediumM
	}
	if o.HysteresisM != nil {
		t.HysteresisM = *o.HysteresisM
	}
	if o.CompassSmoothingN != nil {
		t.CompassSmoothingN = *o.CompassSmoothingN
	}
	if o.BearingDeadzoneDeg != nil {
		t.BearingDeadzoneDeg = *o.BearingDeadzoneDeg
	}
	if len(o.AcceptedCompanyIDs) > 0 {
		t.AcceptedCompanyIDs = o.AcceptedCompanyIDs
	}
	if o.EmitterCompanyID != nil {
		t.EmitterCompanyID = *o.EmitterCompanyID
	}
	if o.LowBatteryPct != nil {
		t.LowBatteryPct = *o.LowBatteryPct
	}
	if o.CriticalBatteryPct != nil {
		t.CriticalBatteryPct = *o.CriticalBatteryPct
	}
}

// Validate checks the tuning values are internally consistent.
func (t Tuning) Validate() error {
	if t.HereM <= 0 || t.NearM <= t.HereM || t.MediumM <= t.NearM {
		return fmt.Errorf("proximity thresholds must satisfy 0 < here < near < medium, got %v/%v/%v", t.HereM, t.NearM, t.MediumM)
	}
	if t.RSSIIQRMinRetained < 1 || t.RSSIIQRMinRetained > t.RSSIHistoryN {
		return fmt.Errorf("rssi_iqr_min_retained must be between 1 and rssi_history_n, got %d/%d", t.RSSIIQRMinRetained, t.RSSIHistoryN)
	}
	if len(t.AcceptedCompanyIDs) == 0 {
		return fmt.Errorf("accepted_company_ids must not be empty")
	}
	return nil
}

// AcceptsCompanyID reports whether id is one of the configured accepted IDs.
func (t Tuning) AcceptsCompanyID(id uint16) bool {
	for _, c := range t.AcceptedCompanyIDs {
		if c == id {
			return true
		}
	}
	return false
}
