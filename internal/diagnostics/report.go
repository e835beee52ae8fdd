package diagnostics

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderSessionReport writes an HTML debug report for sessionID to w: the
// smoothed-RSSI trace and the proximity-level timeline as ECharts line
// charts, in the style of this lineage's debug dashboards.
func RenderSessionReport(db *DB, sessionID string, w io.Writer) error {
	samples, err := Samples(db, sessionID)
	if err != nil {
		return fmt.Errorf("diagnostics: load samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("diagnostics: no samples for session %q", sessionID)
	}

	xAxis := make([]string, len(samples))
	rssiData := make([]opts.LineData, len(samples))
	levelData := make([]opts.LineData, len(samples))
	for i, s := range samples {
		xAxis[i] = fmt.Sprintf("%d", s.Seq)
		rssiData[i] = opts.LineData{Value: s.RSSISmoothedDBM}
		levelData[i] = opts.LineData{Value: proximityRank(s.ProximityLevel)}
	}

	rssiChart := charts.NewLine()
	rssiChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Phoenix session report", Theme: "dark", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Smoothed RSSI", Subtitle: fmt.Sprintf("session=%s samples=%d", sessionID, len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	rssiChart.SetXAxis(xAxis).AddSeries("rssi (dBm)", rssiData)

	levelChart := charts.NewLine()
	levelChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Proximity level (0=here .. 3=far)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	levelChart.SetXAxis(xAxis).AddSeries("level", levelData)

	page := components.NewPage()
	page.AddCharts(rssiChart, levelChart)

	return page.Render(w)
}

func proximityRank(level string) int {
	switch level {
	case "here":
		return 0
	case "near":
		return 1
	case "medium":
		return 2
	default:
		return 3
	}
}
