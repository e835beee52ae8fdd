// Package receiver implements scan ingress and the per-emitter record store
// (spec §4.4): filtering advertisements by company ID and magic, decoding
// and validating payloads, smoothing RSSI, and retaining cached GPS and
// location history per device.
package receiver

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Rocky43007/phoenix/internal/geo"
	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
)

// LocationPoint is one retained GPS fix in a device's location history.
type LocationPoint struct {
	Latitude  float64
	Longitude float64
	AltitudeM float64
	Time      time.Time
}

// Record is a receiver's view of a single emitter, owned exclusively by
// Store; callers receive copies, never the live pointer (spec §4.3/§5).
type Record struct {
	DeviceID            uint32
	PeerID              string
	DisplayName         string
	LastPayload         phxcodec.Fields
	RSSISmoothedDBM     int
	RSSIRawDBM          int
	RSSIHistory         []int
	UsingCachedGPS      bool
	HasLastGoodGPS      bool
	LastGoodLatitude    float32
	LastGoodLongitude   float32
	LastGoodAltitudeMSL int16
	LocationHistory     []LocationPoint
	LastSeen            time.Time
}

// Store is the sole owner of the receiver's per-device records.
type Store struct {
	tuning phxconfig.Tuning
	clock  phxclock.Clock

	mu          sync.Mutex
	records     map[uint32]*Record
	subscribers map[string]chan Record
}

// NewStore creates an empty record store.
func NewStore(tuning phxconfig.Tuning, clock phxclock.Clock) *Store {
	return &Store{
		tuning:      tuning,
		clock:       clock,
		records:     make(map[uint32]*Record),
		subscribers: make(map[string]chan Record),
	}
}

// Ingest applies one decoded+validated advertisement to the record store per
// spec §4.4 steps 3-7, and returns a snapshot of the updated record.
func (s *Store) Ingest(peerID, displayName string, rssi int, fields phxcodec.Fields) Record {
	now := s.clock.Now()

	s.mu.Lock()
	rec, ok := s.records[fields.DeviceID]
	if !ok {
		rec = &Record{DeviceID: fields.DeviceID}
		s.records[fields.DeviceID] = rec
	}

	rec.PeerID = peerID
	if displayName != "" {
		rec.DisplayName = displayName
	}

	rec.RSSIRawDBM = rssi
	rec.RSSIHistory = append(rec.RSSIHistory, rssi)
	if len(rec.RSSIHistory) > s.tuning.RSSIHistoryN {
		rec.RSSIHistory = rec.RSSIHistory[len(rec.RSSIHistory)-s.tuning.RSSIHistoryN:]
	}
	rec.RSSISmoothedDBM = smoothRSSI(rec.RSSIHistory, s.tuning)

	gpsValid := fields.HasFlag(phxcodec.FlagGPSValid)
	switch {
	case gpsValid:
		rec.UsingCachedGPS = false
		rec.HasLastGoodGPS = true
		rec.LastGoodLatitude = fields.Latitude
		rec.LastGoodLongitude = fields.Longitude
		rec.LastGoodAltitudeMSL = fields.AltitudeMSL
	case rec.HasLastGoodGPS:
		fields.Latitude = rec.LastGoodLatitude
		fields.Longitude = rec.LastGoodLongitude
		fields.AltitudeMSL = rec.LastGoodAltitudeMSL
		rec.UsingCachedGPS = true
	default:
		rec.UsingCachedGPS = false
	}

	if gpsValid {
		point := LocationPoint{
			Latitude:  float64(fields.Latitude),
			Longitude: float64(fields.Longitude),
			AltitudeM: float64(fields.AltitudeMSL),
			Time:      now,
		}
		last := len(rec.LocationHistory)
		if last == 0 {
			rec.LocationHistory = append(rec.LocationHistory, point)
		} else {
			prev := rec.LocationHistory[last-1]
			d := geo.DistanceMetres(prev.Latitude, prev.Longitude, point.Latitude, point.Longitude)
			if d > s.tuning.GPSHistoryMinStepM {
				rec.LocationHistory = append(rec.LocationHistory, point)
			}
		}
		if len(rec.LocationHistory) > s.tuning.LocationHistoryN {
			rec.LocationHistory = rec.LocationHistory[len(rec.LocationHistory)-s.tuning.LocationHistoryN:]
		}
	}

	rec.LastPayload = fields
	rec.LastSeen = now

	snapshot := *rec
	snapshot.RSSIHistory = append([]int(nil), rec.RSSIHistory...)
	snapshot.LocationHistory = append([]LocationPoint(nil), rec.LocationHistory...)
	s.mu.Unlock()

	s.notify(snapshot)
	return snapshot
}

// Get returns a snapshot of the named device's record.
func (s *Store) Get(deviceID uint32) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[deviceID]
	if !ok {
		return Record{}, false
	}
	snapshot := *rec
	snapshot.RSSIHistory = append([]int(nil), rec.RSSIHistory...)
	snapshot.LocationHistory = append([]LocationPoint(nil), rec.LocationHistory...)
	return snapshot, true
}

// Records returns a snapshot of every currently known device.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		snapshot := *rec
		snapshot.RSSIHistory = append([]int(nil), rec.RSSIHistory...)
		snapshot.LocationHistory = append([]LocationPoint(nil), rec.LocationHistory...)
		out = append(out, snapshot)
	}
	return out
}

// EvictStale removes every record whose last advertisement is older than
// StaleTimeout and returns the evicted device IDs (spec §4.4).
func (s *Store) EvictStale() []uint32 {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []uint32
	for id, rec := range s.records {
		if now.Sub(rec.LastSeen) > s.tuning.StaleTimeout {
			evicted = append(evicted, id)
			delete(s.records, id)
		}
	}
	return evicted
}

// Subscribe registers a new observer channel, in the style of this
// lineage's SerialMux pub-sub: a random hex ID names the subscription so the
// caller can Unsubscribe later.
func (s *Store) Subscribe() (string, <-chan Record) {
	id := randomID()
	ch := make(chan Record, 8)
	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()
	return id, ch
}

// Unsubscribe closes and removes a subscriber's channel.
func (s *Store) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Store) notify(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- rec:
		default:
			// slow subscriber; drop rather than block ingress.
		}
	}
}

func randomID() string {
	b := make([]byte, 8)
	_, _ = cryptorand.Read(b)
	return hex.EncodeToString(b)
}

// smoothRSSI implements the §4.4 IQR-outlier-rejecting weighted moving
// average: once armed, samples outside [Q1-1.5*IQR, Q3+1.5*IQR] are dropped
// unless that would leave fewer than RSSIIQRMinRetained, in which case all
// samples are kept. The retained values are weighted 1..n by recency.
func smoothRSSI(history []int, tuning phxconfig.Tuning) int {
	if len(history) == 0 {
		return 0
	}

	retained := history
	if len(history) >= tuning.RSSIOutlierArmN {
		sorted := make([]float64, len(history))
		for i, v := range history {
			sorted[i] = float64(v)
		}
		sort.Float64s(sorted)
		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		iqr := q3 - q1
		lo, hi := q1-1.5*iqr, q3+1.5*iqr

		filtered := make([]int, 0, len(history))
		for _, v := range history {
			if float64(v) >= lo && float64(v) <= hi {
				filtered = append(filtered, v)
			}
		}
		if len(filtered) >= tuning.RSSIIQRMinRetained {
			retained = filtered
		}
	}

	var weightedSum, weightSum float64
	for i, v := range retained {
		w := float64(i + 1)
		weightedSum += w * float64(v)
		weightSum += w
	}
	return int(math.Round(weightedSum / weightSum))
}
