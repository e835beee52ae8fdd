// Command phoenix-emitter runs a demo Phoenix emitter: it reads GPS fixes
// from a serial NMEA dongle, derives a device ID, and advertises BLE
// manufacturer-data frames at an adaptive cadence chosen by the emitter's
// priority rules.
//
// Usage:
//
//	go run ./cmd/phoenix-emitter [flags]
//
// Flags:
//
//	-gps-port   Serial port the GPS dongle is attached to (e.g. /dev/ttyUSB0)
//	-gps-baud   Serial baud rate (default 9600)
//	-device-id  Fixed device ID; 0 generates a random one (default 0)
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/boundary/blelink"
	"github.com/Rocky43007/phoenix/internal/boundary/idgen"
	"github.com/Rocky43007/phoenix/internal/boundary/serialgps"
	"github.com/Rocky43007/phoenix/internal/emitter"
	"github.com/Rocky43007/phoenix/internal/phxclock"
	"github.com/Rocky43007/phoenix/internal/phxconfig"
)

// noGPSSensors reports a fixed nominal battery and no location, motion, or
// compass fix — a bench fallback when no GPS dongle is attached, letting the
// demo binary still exercise the transmit loop's cadence logic.
type noGPSSensors struct{}

func (noGPSSensors) Snapshot(ctx context.Context) (boundary.SensorSnapshot, error) {
	return boundary.SensorSnapshot{BatteryPct: 100}, nil
}

func main() {
	gpsPort := flag.String("gps-port", "", "serial port the GPS dongle is attached to")
	gpsBaud := flag.Int("gps-baud", 9600, "GPS serial baud rate")
	deviceIDFlag := flag.Uint64("device-id", 0, "fixed device ID; 0 generates a random one")
	flag.Parse()

	var deviceID uint32
	if *deviceIDFlag != 0 {
		deviceID = uint32(*deviceIDFlag)
	} else {
		deviceID = idgen.NewUUIDRng().DeviceID()
	}
	log.Printf("phoenix-emitter: device id %08x", deviceID)

	var sensors boundary.Sensors = noGPSSensors{}
	if *gpsPort != "" {
		gps, err := serialgps.Open(*gpsPort, *gpsBaud)
		if err != nil {
			log.Fatalf("phoenix-emitter: open gps port: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := gps.Monitor(ctx); err != nil {
				log.Printf("phoenix-emitter: gps monitor stopped: %v", err)
			}
		}()
		sensors = gps
	}

	tuning := phxconfig.Default()
	peripheral := blelink.NewPeripheral()
	loop := emitter.NewTransmitLoop(tuning, phxclock.RealClock{}, peripheral, sensors, deviceID, time.Now())
	loop.OnStateChange(func(s emitter.State) {
		log.Printf("phoenix-emitter: state -> %s", s)
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := loop.Start(ctx); err != nil {
		log.Fatalf("phoenix-emitter: start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("phoenix-emitter: shutting down")
	if err := loop.Stop(ctx); err != nil {
		log.Printf("phoenix-emitter: stop: %v", err)
	}
	cancel()
}
