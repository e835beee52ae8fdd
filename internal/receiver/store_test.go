package receiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
)

var storeEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fieldsWithGPS(deviceID uint32, lat, lon float64) phxcodec.Fields {
	canon := phxcodec.EncodeInput{
		DeviceID:  deviceID,
		Latitude:  lat,
		Longitude: lon,
		GPSValid:  true,
	}.Canonicalize()
	return canon
}

func TestStoreIngestCreatesRecordOnFirstSeen(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	rec := store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 37.4, -122.0))
	assert.Equal(t, uint32(7), rec.DeviceID)
	assert.Equal(t, "peer-1", rec.PeerID)
	assert.False(t, rec.UsingCachedGPS)
	require.Len(t, rec.LocationHistory, 1)
}

func TestStoreCachedGPSRetainedOnInvalidFix(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 37.4, -122.0))

	invalid := phxcodec.EncodeInput{DeviceID: 7, GPSValid: false}.Canonicalize()
	rec := store.Ingest("peer-1", "", -61, invalid)

	assert.True(t, rec.UsingCachedGPS)
	assert.InDelta(t, 37.4, float64(rec.LastPayload.Latitude), 0.01)
}

func TestStoreCachedGPSSurvivesMultipleConsecutiveMisses(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 37.4, -122.0))

	invalid := phxcodec.EncodeInput{DeviceID: 7, GPSValid: false}.Canonicalize()
	for i := 0; i < 5; i++ {
		rec := store.Ingest("peer-1", "", -61, invalid)
		assert.Truef(t, rec.UsingCachedGPS, "miss #%d should still report cached GPS", i+1)
		assert.InDelta(t, 37.4, float64(rec.LastPayload.Latitude), 0.01)
		assert.InDelta(t, -122.0, float64(rec.LastPayload.Longitude), 0.01)
	}
}

func TestStoreLocationHistoryFiltersSubMinStepMoves(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 37.40000, -122.00000))
	// ~1m move, below the 5m min-step threshold.
	rec := store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 37.40001, -122.00000))
	assert.Len(t, rec.LocationHistory, 1)

	// A move of roughly 10m should be appended.
	rec = store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 37.40010, -122.00000))
	assert.Len(t, rec.LocationHistory, 2)
}

func TestStoreRSSISmoothingWeightedMean(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	for _, rssi := range []int{-60, -61, -62, -63} {
		store.Ingest("peer-1", "", rssi, fieldsWithGPS(7, 0, 0))
	}
	rec, ok := store.Get(7)
	require.True(t, ok)
	// Weighted mean over [-60,-61,-62,-63] with weights 1..4 skews toward
	// the most recent (most heavily weighted) sample.
	assert.Less(t, rec.RSSISmoothedDBM, -61)
}

func TestStoreRSSIOutlierRejection(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	inRange := []int{-60, -61, -60, -62, -61}
	for _, rssi := range inRange {
		store.Ingest("peer-1", "", rssi, fieldsWithGPS(7, 0, 0))
	}
	before, _ := store.Get(7)

	outlierStore := NewStore(phxconfig.Default(), clock)
	for _, rssi := range append(append([]int{}, inRange...), -120) {
		outlierStore.Ingest("peer-1", "", rssi, fieldsWithGPS(7, 0, 0))
	}
	after, _ := outlierStore.Get(7)

	assert.InDelta(t, before.RSSISmoothedDBM, after.RSSISmoothedDBM, 1,
		"a single extreme outlier beyond 1.5*IQR should be rejected by the smoothing filter")
}

func TestStoreEvictStale(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	tuning := phxconfig.Default()
	store := NewStore(tuning, clock)

	store.Ingest("peer-1", "", -60, fieldsWithGPS(7, 0, 0))
	clock.Set(storeEpoch.Add(tuning.StaleTimeout + time.Second))

	evicted := store.EvictStale()
	assert.Equal(t, []uint32{7}, evicted)

	_, ok := store.Get(7)
	assert.False(t, ok)
}

func TestStoreSubscribeReceivesUpdates(t *testing.T) {
	t.Parallel()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(phxconfig.Default(), clock)

	id, ch := store.Subscribe()
	defer store.Unsubscribe(id)

	store.Ingest("peer-1", "", -60, fieldsWithGPS(9, 0, 0))

	select {
	case rec := <-ch:
		assert.Equal(t, uint32(9), rec.DeviceID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber notification")
	}
}
