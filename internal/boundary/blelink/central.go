// Package blelink implements the boundary.Peripheral and boundary.Central
// adapters over tinygo.org/x/bluetooth, the cross-platform (Linux BlueZ,
// macOS CoreBluetooth, embedded) BLE stack this lineage already favors for
// its hardware-facing tools.
package blelink

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxcodec"
	"github.com/Rocky43007/phoenix/internal/phxlog"
)

// Central scans for BLE advertisements using the platform's default adapter
// and reassembles the Phoenix 24-byte frame from each manufacturer-data
// entry: the real BLE company ID field carries the frame's first two bytes,
// the entry's data carries the remaining 22 (magic + payload).
type Central struct {
	adapter *bluetooth.Adapter

	mu       sync.Mutex
	scanning bool
}

// NewCentral wraps the platform default adapter.
func NewCentral() *Central {
	return &Central{adapter: bluetooth.DefaultAdapter}
}

func (c *Central) Initialize(ctx context.Context) error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("blelink: enable adapter: %w", err)
	}
	return nil
}

// StartScanning begins an allow-duplicates scan, delivering to
// onAdvertisement every manufacturer-data entry whose data is exactly
// FrameSize-2 bytes (Phoenix or otherwise); other entries are skipped. It returns once
// the scan has started; the underlying scan runs on tinygo's own goroutine
// until StopScanning is called.
func (c *Central) StartScanning(ctx context.Context, onAdvertisement func(boundary.Advertisement)) error {
	c.mu.Lock()
	c.scanning = true
	c.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			c.mu.Lock()
			active := c.scanning
			c.mu.Unlock()
			if !active {
				adapter.StopScan()
				return
			}

			for _, entry := range result.ManufacturerData() {
				frame := reassembleFrame(entry)
				if frame == nil {
					continue
				}
				onAdvertisement(boundary.Advertisement{
					PeerID:           result.Address.String(),
					Name:             result.LocalName(),
					ManufacturerData: frame,
					RSSI:             int(result.RSSI),
				})
			}
		})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("blelink: scan: %w", err)
		}
		return nil
	default:
		return nil
	}
}

func (c *Central) StopScanning(ctx context.Context) error {
	c.mu.Lock()
	c.scanning = false
	c.mu.Unlock()
	if err := c.adapter.StopScan(); err != nil {
		phxlog.Logf("phoenix/blelink: stop scan: %v", err)
		return err
	}
	return nil
}

// reassembleFrame rebuilds a Phoenix frame from one manufacturer-data entry,
// or returns nil if the entry's data is not exactly FrameSize-2 bytes.
func reassembleFrame(entry bluetooth.ManufacturerDataElement) []byte {
	if len(entry.Data) != phxcodec.FrameSize-2 {
		return nil
	}
	frame := make([]byte, phxcodec.FrameSize)
	binary.LittleEndian.PutUint16(frame[0:2], entry.CompanyID)
	copy(frame[2:], entry.Data)
	return frame
}
