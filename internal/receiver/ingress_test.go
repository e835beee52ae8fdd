package receiver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
)

func TestIngressAcceptsValidAdvertisement(t *testing.T) {
	t.Parallel()
	tuning := phxconfig.Default()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(tuning, clock)
	central := &boundary.MockCentral{}
	in := NewIngress(tuning, central, store)

	require.NoError(t, in.Start(context.Background()))

	payload := phxcodec.Encode(phxcodec.EncodeInput{DeviceID: 55, Battery: 50})
	frame := phxcodec.Wrap(payload, tuning.EmitterCompanyID)
	central.Deliver(boundary.Advertisement{PeerID: "p1", ManufacturerData: frame[:], RSSI: -55, TimestampMS: 0})

	rec, ok := store.Get(55)
	require.True(t, ok)
	assert.Equal(t, -55, rec.RSSIRawDBM)
	assert.Equal(t, uint64(1), in.Stats().Advertised)
}

func TestIngressDropsNonPhoenixSilently(t *testing.T) {
	t.Parallel()
	tuning := phxconfig.Default()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(tuning, clock)
	central := &boundary.MockCentral{}
	in := NewIngress(tuning, central, store)
	require.NoError(t, in.Start(context.Background()))

	central.Deliver(boundary.Advertisement{PeerID: "p1", ManufacturerData: []byte{0x01, 0x02}, RSSI: -55})

	assert.Empty(t, store.Records())
	assert.Equal(t, uint64(0), in.Stats().Invalid)
	assert.Equal(t, uint64(0), in.Stats().Dropped)
}

func TestIngressDropsInvalidPayloadAndCounts(t *testing.T) {
	t.Parallel()
	tuning := phxconfig.Default()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(tuning, clock)
	central := &boundary.MockCentral{}
	in := NewIngress(tuning, central, store)
	require.NoError(t, in.Start(context.Background()))

	fields := phxcodec.Fields{DeviceID: 3, Battery: 101}
	payload := phxcodec.EncodeFields(fields)
	frame := phxcodec.Wrap(payload, tuning.EmitterCompanyID)
	central.Deliver(boundary.Advertisement{PeerID: "p1", ManufacturerData: frame[:], RSSI: -55})

	assert.Empty(t, store.Records())
	assert.Equal(t, uint64(1), in.Stats().Dropped)
}

func TestIngressStopPreventsFurtherDelivery(t *testing.T) {
	t.Parallel()
	tuning := phxconfig.Default()
	clock := phxclock.NewMockClock(storeEpoch)
	store := NewStore(tuning, clock)
	central := &boundary.MockCentral{}
	in := NewIngress(tuning, central, store)
	require.NoError(t, in.Start(context.Background()))
	require.NoError(t, in.Stop(context.Background()))

	payload := phxcodec.Encode(phxcodec.EncodeInput{DeviceID: 1})
	frame := phxcodec.Wrap(payload, tuning.EmitterCompanyID)
	central.Deliver(boundary.Advertisement{PeerID: "p1", ManufacturerData: frame[:], RSSI: -50})

	assert.Empty(t, store.Records())
}
