package blelink

import (
	"context"
	"encoding/binary"
	"fmt"

	"tinygo.org/x/bluetooth"

	"github.com/Rocky43007/phoenix/internal/boundary"
)

// Peripheral advertises Phoenix frames over the platform default adapter.
// The frame's first two bytes (the little-endian company ID, per Wrap's
// layout) are carried in the real BLE manufacturer company ID field; the
// rest (magic + payload) rides as the manufacturer data payload.
type Peripheral struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
}

// NewPeripheral wraps the platform default adapter.
func NewPeripheral() *Peripheral {
	return &Peripheral{adapter: bluetooth.DefaultAdapter}
}

func (p *Peripheral) Initialize(ctx context.Context) error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("blelink: enable adapter: %w", err)
	}
	p.adv = p.adapter.DefaultAdvertisement()
	return nil
}

// StartAdvertising configures and starts an advertisement carrying data as
// manufacturer data, splitting it per reassembleFrame's inverse. It sets only
// the manufacturer data and the interval; connectability, advertise mode and
// tx power are not set here and stay at the adapter's defaults.
func (p *Peripheral) StartAdvertising(ctx context.Context, data [24]byte) error {
	companyID := binary.LittleEndian.Uint16(data[0:2])

	err := p.adv.Configure(bluetooth.AdvertisementOptions{
		Interval: bluetooth.NewDuration(0),
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: companyID, Data: data[2:]},
		},
	})
	if err != nil {
		return fmt.Errorf("blelink: configure advertisement: %w", err)
	}
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("blelink: start advertisement: %w", err)
	}
	return nil
}

func (p *Peripheral) StopAdvertising(ctx context.Context) error {
	if p.adv == nil {
		return nil
	}
	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("blelink: stop advertisement: %w", err)
	}
	return nil
}

// State reports poweredOn once the adapter has been enabled; tinygo's
// cross-platform adapter type exposes no richer state query, so callers
// needing authorization/unsupported detail must consult adapter.Enable's
// error instead.
func (p *Peripheral) State() boundary.PeripheralState {
	if p.adv == nil {
		return boundary.StateUnknown
	}
	return boundary.StatePoweredOn
}

var _ boundary.Peripheral = (*Peripheral)(nil)
var _ boundary.Central = (*Central)(nil)
