package simulator

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"uav-testgen/internal/geometry"
	"uav-testgen/internal/obstacle"
)

// PlotTrajectory renders the top view of the flight and the obstacle footprints to a PNG.
func PlotTrajectory(samples []Sample, cfg obstacle.Configuration, title, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - min clearance %.2f m", title, MinClearance(samples, cfg))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	for i, o := range cfg.Obstacles {
		ring := geometry.Footprint(o)
		pts := make(plotter.XYs, 0, len(ring))
		for _, pt := range ring {
			pts = append(pts, plotter.XY{X: pt[0], Y: pt[1]})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 200, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("obstacle %d", i+1), line)
	}

	if len(samples) > 0 {
		pts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			pts = append(pts, plotter.XY{X: s.X, Y: s.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{B: 200, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("trajectory", line)
	}
	p.Legend.Top = true

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
