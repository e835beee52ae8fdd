// Package serialgps implements boundary.Sensors over a serial NMEA-0183 GPS
// receiver, for bench hardware that exposes location only (no IMU, compass,
// or battery fuel gauge). Other sensor modalities are always reported
// absent; a real emitter build pairs this with a board-specific IMU driver.
package serialgps

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/Rocky43007/phoenix/internal/boundary"
	"github.com/Rocky43007/phoenix/internal/phxlog"
)

// Sensors reads GGA fixes off a serial port in the background and answers
// Snapshot with whatever fix was most recently parsed.
type Sensors struct {
	port serial.Port

	mu     sync.Mutex
	last   boundary.Location
	hasFix bool
}

// Open opens portName at baud and returns a Sensors ready for Monitor.
func Open(portName string, baud int) (*Sensors, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("serialgps: open %s: %w", portName, err)
	}
	return &Sensors{port: port}, nil
}

// Monitor reads NMEA sentences until ctx is done, updating the latest fix on
// every parseable GGA sentence. It closes the port on return.
func (s *Sensors) Monitor(ctx context.Context) error {
	defer s.port.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.port.Close()
		case <-done:
		}
	}()

	scan := bufio.NewScanner(s.port)
	for scan.Scan() {
		line := scan.Text()
		loc, err := parseGGA(line)
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.last = loc
		s.hasFix = true
		s.mu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return nil
	}
	if err := scan.Err(); err != nil {
		phxlog.Logf("phoenix/serialgps: scanner stopped: %v", err)
		return err
	}
	return nil
}

// Snapshot satisfies boundary.Sensors, reporting only the last GPS fix.
func (s *Sensors) Snapshot(ctx context.Context) (boundary.SensorSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFix {
		return boundary.SensorSnapshot{}, nil
	}
	loc := s.last
	return boundary.SensorSnapshot{Location: &loc}, nil
}

// parseGGA extracts lat/lon/altitude from a $--GGA sentence. Fix-quality 0
// (no fix) is reported as an error so Monitor holds the last good fix.
func parseGGA(line string) (boundary.Location, error) {
	if !strings.HasPrefix(line, "$GPGGA") && !strings.HasPrefix(line, "$GNGGA") {
		return boundary.Location{}, fmt.Errorf("serialgps: not a GGA sentence")
	}
	body := strings.SplitN(line, "*", 2)[0]
	fields := strings.Split(body, ",")
	if len(fields) < 10 {
		return boundary.Location{}, fmt.Errorf("serialgps: short GGA sentence: %q", line)
	}
	if fields[6] == "0" || fields[6] == "" {
		return boundary.Location{}, fmt.Errorf("serialgps: no fix")
	}

	lat, err := parseCoord(fields[2], fields[3])
	if err != nil {
		return boundary.Location{}, err
	}
	lon, err := parseCoord(fields[4], fields[5])
	if err != nil {
		return boundary.Location{}, err
	}
	alt, err := strconv.ParseFloat(fields[9], 64)
	if err != nil {
		return boundary.Location{}, fmt.Errorf("serialgps: bad altitude: %w", err)
	}
	hdop, _ := strconv.ParseFloat(fields[8], 64)

	return boundary.Location{
		Latitude:    lat,
		Longitude:   lon,
		AltitudeM:   alt,
		HasAltitude: true,
		AccuracyM:   hdop * 5, // rough HDOP-to-metres approximation
	}, nil
}

// parseCoord converts an NMEA ddmm.mmmm (or dddmm.mmmm) field plus hemisphere
// letter into signed decimal degrees.
func parseCoord(raw, hemi string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("serialgps: empty coordinate field")
	}
	dot := strings.IndexByte(raw, '.')
	if dot < 2 {
		return 0, fmt.Errorf("serialgps: malformed coordinate %q", raw)
	}
	degDigits := dot - 2
	deg, err := strconv.ParseFloat(raw[:degDigits], 64)
	if err != nil {
		return 0, fmt.Errorf("serialgps: bad degrees in %q: %w", raw, err)
	}
	min, err := strconv.ParseFloat(raw[degDigits:], 64)
	if err != nil {
		return 0, fmt.Errorf("serialgps: bad minutes in %q: %w", raw, err)
	}
	v := deg + min/60
	if hemi == "S" || hemi == "W" {
		v = -v
	}
	return v, nil
}
