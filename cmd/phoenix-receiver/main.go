// Command phoenix-receiver runs a demo Phoenix receiver: it scans for
// Phoenix BLE advertisements, maintains a record per emitter, and on a
// 250ms receiver tick drives the precision finder for the tracked device,
// printing distance, proximity band, and bearing. An optional serial GPS
// dongle supplies the receiver's own location for GPS-fallback distance
// and bearing.
//
// Usage:
//
//	go run ./cmd/phoenix-receiver [flags]
//
// Flags:
//
//	-gps-port    Serial port of the receiver's own GPS dongle (optional)
//	-gps-baud    Serial baud rate (default 9600)
//	-device      Fixed device ID to track; 0 tracks an arbitrary currently known device (default 0)
//	-diag-db     Path to a diagnostics sqlite file to record samples to (optional)
//	-diag-session  Session label for diagnostic recording (default "live")
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/boundary/blelink"
	"github.com/Rocky43007/phoenix/internal/boundary/serialgps"
	"github.com/Rocky43007/phoenix/internal/diagnostics"
	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
	"github.com/Rocky43007/phoenix/internal/precision"
	"github.com/Rocky43007/phoenix/internal/receiver"
)

// receiverTick is the spec's 250ms receiver UI tick: the precision finder
// and stale-record eviction both run at this cadence rather than reacting
// to BLE advertisement arrival, so GPS fallback keeps updating even while
// no fresh advertisements are coming in.
const receiverTick = 250 * time.Millisecond

// loggingHaptics stands in for a phone's vibration motor on a bench
// receiver: it logs the pulse pattern rather than driving real hardware.
type loggingHaptics struct{}

func (loggingHaptics) Pulse(p boundary.HapticPattern) {
	log.Printf("phoenix-receiver: haptic pulse (%d segments)", len(p.Pulses))
}

func main() {
	gpsPort := flag.String("gps-port", "", "serial port of the receiver's own GPS dongle")
	gpsBaud := flag.Int("gps-baud", 9600, "GPS serial baud rate")
	deviceFlag := flag.Uint64("device", 0, "fixed device ID to track; 0 tracks an arbitrary currently known device")
	diagDB := flag.String("diag-db", "", "path to a diagnostics sqlite file to record samples to")
	diagSession := flag.String("diag-session", "live", "diagnostic session label")
	flag.Parse()

	tuning := phxconfig.Default()
	clock := phxclock.RealClock{}

	var gps *serialgps.Sensors
	if *gpsPort != "" {
		var err error
		gps, err = serialgps.Open(*gpsPort, *gpsBaud)
		if err != nil {
			log.Fatalf("phoenix-receiver: open gps port: %v", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if gps != nil {
		go func() {
			if err := gps.Monitor(ctx); err != nil {
				log.Printf("phoenix-receiver: gps monitor stopped: %v", err)
			}
		}()
	}

	var recorder *diagnostics.Recorder
	if *diagDB != "" {
		db, err := diagnostics.Open(*diagDB)
		if err != nil {
			log.Fatalf("phoenix-receiver: open diagnostics db: %v", err)
		}
		defer db.Close()
		recorder, err = diagnostics.NewRecorder(db, fmt.Sprintf("%s-%d", *diagSession, time.Now().Unix()), *diagSession)
		if err != nil {
			log.Fatalf("phoenix-receiver: create diagnostics recorder: %v", err)
		}
	}

	store := receiver.NewStore(tuning, clock)
	ingress := receiver.NewIngress(tuning, blelink.NewCentral(), store)
	if err := ingress.Start(ctx); err != nil {
		log.Fatalf("phoenix-receiver: start scanning: %v", err)
	}

	targetDevice := uint32(*deviceFlag)
	finder := precision.NewFinder(tuning, loggingHaptics{})

	ticker := clock.NewTicker(receiverTick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

tickLoop:
	for {
		select {
		case <-sigCh:
			break tickLoop
		case <-ticker.C():
			evicted := store.EvictStale()
			for _, id := range evicted {
				log.Printf("phoenix-receiver: evicted stale device=%08x", id)
				if id == targetDevice {
					targetDevice = 0
				}
			}

			rec, ok := selectRecord(store, targetDevice)
			if !ok {
				continue
			}
			targetDevice = rec.DeviceID

			var loc *boundary.Location
			if gps != nil {
				if snap, err := gps.Snapshot(ctx); err == nil {
					loc = snap.Location
				}
			}

			now := clock.Now()
			out := finder.Tick(now, rec, loc, nil)
			log.Printf("phoenix-receiver: device=%08x distance=%.2fm (%s) level=%s bearing=%.0f",
				rec.DeviceID, out.DistanceM, out.DistanceText, out.ProximityLevel, out.BearingDeg)

			if recorder != nil {
				recorder.Record(now, rec, out)
			}
		}
	}

	log.Printf("phoenix-receiver: shutting down")
	if err := ingress.Stop(ctx); err != nil {
		log.Printf("phoenix-receiver: stop scanning: %v", err)
	}
}

// selectRecord returns the record for wantDeviceID (false if it is not
// known), or, when wantDeviceID is zero, the first record Store.Records
// returns; that order is not defined, so the pick is not the first-seen device.
func selectRecord(store *receiver.Store, wantDeviceID uint32) (receiver.Record, bool) {
	if wantDeviceID != 0 {
		return store.Get(wantDeviceID)
	}
	records := store.Records()
	if len(records) == 0 {
		return receiver.Record{}, false
	}
	return records[0], true
}
