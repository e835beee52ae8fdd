package diagnostics

import (
	"time"

	"github.com/Rocky43007/phoenix/internal/phxlog"
	"github.com/Rocky43007/phoenix/internal/precision"
	"github.com/Rocky43007/phoenix/internal/receiver"
)

// Sample is one recorded frame of a diagnostic session: the receiver record
// and precision finder output at a point in time.
type Sample struct {
	Seq              int
	Time             time.Time
	DeviceID         uint32
	RSSIRawDBM       int
	RSSISmoothedDBM  int
	DistanceM        float64
	ProximityLevel   string
	UsingGPSFallback bool
}

// Recorder captures samples for one session into a DB for later charting.
type Recorder struct {
	db        *DB
	sessionID string
	seq       int
}

// NewRecorder starts (or resumes) a session named sessionID, recording
// samples into db.
func NewRecorder(db *DB, sessionID, label string) (*Recorder, error) {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO session (session_id, started_unix, label) VALUES (?, ?, ?)`,
		sessionID, time.Now().Unix(), label,
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{db: db, sessionID: sessionID}, nil
}

// Record persists one receiver record / finder output pairing as a sample.
// Errors are logged rather than propagated: diagnostic capture must never
// disrupt the live scan ingress it observes.
func (r *Recorder) Record(now time.Time, rec receiver.Record, out precision.Output) {
	r.seq++
	_, err := r.db.Exec(
		`INSERT INTO sample (session_id, seq, unix_nanos, device_id, rssi_raw_dbm, rssi_smoothed_dbm, distance_m, proximity_level, using_gps_fallback)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.sessionID, r.seq, now.UnixNano(), rec.DeviceID, rec.RSSIRawDBM, rec.RSSISmoothedDBM,
		out.DistanceM, out.ProximityLevel.String(), boolToInt(out.UsingGPSFallback),
	)
	if err != nil {
		phxlog.Logf("phoenix/diagnostics: record sample: %v", err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Samples returns every recorded sample for sessionID in sequence order.
func Samples(db *DB, sessionID string) ([]Sample, error) {
	rows, err := db.Query(
		`SELECT seq, unix_nanos, device_id, rssi_raw_dbm, rssi_smoothed_dbm, distance_m, proximity_level, using_gps_fallback
		 FROM sample WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var unixNanos int64
		var fallback int
		if err := rows.Scan(&s.Seq, &unixNanos, &s.DeviceID, &s.RSSIRawDBM, &s.RSSISmoothedDBM, &s.DistanceM, &s.ProximityLevel, &fallback); err != nil {
			return nil, err
		}
		s.Time = time.Unix(0, unixNanos)
		s.UsingGPSFallback = fallback != 0
		out = append(out, s)
	}
	return out, rows.Err()
}
