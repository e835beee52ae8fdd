package receiver

import (
	"context"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
	"github.com/Rocky43007/phoenix/internal/phxerr"
	"github.com/Rocky43007/phoenix/internal/phxlog"
)

// Stats counts hot-path drops instead of propagating them, per spec §7.
type Stats struct {
	Dropped    uint64
	Invalid    uint64
	Advertised uint64
}

// Ingress drives a Central boundary and feeds accepted advertisements into a
// Store (spec §4.4 steps 1-2 plus the scanning lifecycle).
type Ingress struct {
	tuning  phxconfig.Tuning
	central boundary.Central
	store   *Store

	stats Stats
}

// NewIngress builds a scan ingress over the given central and store.
func NewIngress(tuning phxconfig.Tuning, central boundary.Central, store *Store) *Ingress {
	return &Ingress{tuning: tuning, central: central, store: store}
}

// Start initializes the central and begins scanning with duplicates
// allowed, delivering every advertisement to handle.
func (in *Ingress) Start(ctx context.Context) error {
	if err := in.central.Initialize(ctx); err != nil {
		return &phxerr.BleUnavailableError{State: err.Error()}
	}
	if err := in.central.StartScanning(ctx, in.handle); err != nil {
		return &phxerr.ScanFailedError{Cause: err}
	}
	return nil
}

// Stop halts scanning.
func (in *Ingress) Stop(ctx context.Context) error {
	return in.central.StopScanning(ctx)
}

// Stats returns a snapshot of the ingress drop/accept counters.
func (in *Ingress) Stats() Stats { return in.stats }

// handle implements spec §4.4 steps 1-2: unwrap, decode, validate, then
// ingest. Unwrap failures are silent; decode/validate failures are counted.
func (in *Ingress) handle(adv boundary.Advertisement) {
	_, payload, err := phxcodec.Unwrap(adv.ManufacturerData, in.tuning.AcceptsCompanyID)
	if err != nil {
		return
	}

	fields, err := phxcodec.Decode(payload[:])
	if err != nil {
		in.stats.Invalid++
		phxlog.Logf("phoenix/receiver: decode failed: %v", err)
		return
	}
	if !phxcodec.Validate(fields) {
		in.stats.Dropped++
		return
	}

	in.store.Ingest(adv.PeerID, adv.Name, adv.RSSI, fields)
	in.stats.Advertised++
}
