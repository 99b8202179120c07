package monitor

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
)

// renderTrackPlot draws every track's centroid trajectory in image
// coordinates (Y grows downward, so the axis is inverted to match the
// camera frame).
func renderTrackPlot(paths []sqlitestore.TrackPath) (io.WriterTo, error) {
	p := plot.New()
	p.Title.Text = "Track trajectories"
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	// Image coordinates: pixel row 0 renders at the top.
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	for i, path := range paths {
		pts := make(plotter.XYs, 0, len(path.Observations))
		for _, o := range path.Observations {
			pts = append(pts, plotter.XY{X: o.MidX(), Y: o.MidY()})
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("track %d line: %w", path.TrackID, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		points.Color = plotutil.Color(i)
		points.Radius = vg.Points(1.5)

		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("%s %d", path.Category, path.TrackID), line)
	}
	p.Legend.Top = true

	return p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
}
