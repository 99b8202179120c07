package monitor

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
)

// TrackScatter builds an interactive scatter of track centroids, one
// series per track, in image coordinates.
func TrackScatter(paths []sqlitestore.TrackPath) *charts.Scatter {
	var maxX, maxY float64
	total := 0
	for _, path := range paths {
		for _, o := range path.Observations {
			if o.MidX() > maxX {
				maxX = o.MidX()
			}
			if o.MidY() > maxY {
				maxY = o.MidY()
			}
			total++
		}
	}
	// Pad so edge points stay visible.
	padX := maxX * 1.05
	padY := maxY * 1.05
	if padX == 0 {
		padX = 1
	}
	if padY == 0 {
		padY = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Track trajectories",
			Theme:     "dark",
			Width:     "900px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Track trajectories",
			Subtitle: fmt.Sprintf("tracks=%d observations=%d", len(paths), total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: padX, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: padY, Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	for _, path := range paths {
		data := make([]opts.ScatterData, 0, len(path.Observations))
		for _, o := range path.Observations {
			data = append(data, opts.ScatterData{Value: []interface{}{o.MidX(), o.MidY()}})
		}
		name := fmt.Sprintf("%s %d", path.Category, path.TrackID)
		scatter.AddSeries(name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	}
	return scatter
}

// TrackSpeeds returns each track's centroid speed between consecutive
// observations in pixels per second, paired with elapsed seconds since
// the track's first observation.
func TrackSpeeds(path sqlitestore.TrackPath) (seconds, speeds []float64) {
	obs := path.Observations
	for i := 1; i < len(obs); i++ {
		dtNanos := obs[i].TSUnixNanos - obs[i-1].TSUnixNanos
		if dtNanos <= 0 {
			continue
		}
		dt := float64(dtNanos) / 1e9
		dx := obs[i].MidX() - obs[i-1].MidX()
		dy := obs[i].MidY() - obs[i-1].MidY()
		seconds = append(seconds, float64(obs[i].TSUnixNanos-obs[0].TSUnixNanos)/1e9)
		speeds = append(speeds, math.Hypot(dx, dy)/dt)
	}
	return seconds, speeds
}

// SpeedLine builds a per-track centroid speed series over elapsed time.
func SpeedLine(paths []sqlitestore.TrackPath) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Track speed", Subtitle: "centroid speed between observations"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "speed (px/s)", NameLocation: "middle", NameGap: 35}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	var axis []string
	for _, path := range paths {
		seconds, speeds := TrackSpeeds(path)
		data := make([]opts.LineData, 0, len(speeds))
		for i := range speeds {
			data = append(data, opts.LineData{Value: speeds[i]})
			if i >= len(axis) {
				axis = append(axis, fmt.Sprintf("%.2f", seconds[i]))
			}
		}
		name := fmt.Sprintf("%s %d", path.Category, path.TrackID)
		line.AddSeries(name, data)
	}
	line.SetXAxis(axis)
	return line
}

// renderTrackChart writes the trajectory scatter as a standalone HTML
// page.
func renderTrackChart(w io.Writer, paths []sqlitestore.TrackPath) error {
	return TrackScatter(paths).Render(w)
}
