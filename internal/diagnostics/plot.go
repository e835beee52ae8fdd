package diagnostics

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotSession renders a session's distance and RSSI traces as separate PNGs
// under outDir, in the style of this lineage's per-ring grid plots (one file
// per metric rather than dual-axis overlays).
func PlotSession(db *DB, sessionID, outDir string) error {
	samples, err := Samples(db, sessionID)
	if err != nil {
		return fmt.Errorf("diagnostics: load samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("diagnostics: no samples for session %q", sessionID)
	}

	distPts := make(plotter.XYs, len(samples))
	rssiPts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		distPts[i] = plotter.XY{X: float64(s.Seq), Y: s.DistanceM}
		rssiPts[i] = plotter.XY{X: float64(s.Seq), Y: float64(s.RSSISmoothedDBM)}
	}

	distFile := filepath.Join(outDir, fmt.Sprintf("%s_distance.png", sessionID))
	if err := savePlot(fmt.Sprintf("Session %s — distance", sessionID), "Sample", "Distance (m)", distPts, distFile); err != nil {
		return err
	}

	rssiFile := filepath.Join(outDir, fmt.Sprintf("%s_rssi.png", sessionID))
	if err := savePlot(fmt.Sprintf("Session %s — smoothed RSSI", sessionID), "Sample", "RSSI (dBm)", rssiPts, rssiFile); err != nil {
		return err
	}

	return nil
}

func savePlot(title, xLabel, yLabel string, pts plotter.XYs, outPath string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("diagnostics: build line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(12*vg.Inch, 5*vg.Inch, outPath); err != nil {
		return fmt.Errorf("diagnostics: save plot %s: %w", outPath, err)
	}
	return nil
}
