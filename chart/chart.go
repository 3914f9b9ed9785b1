// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart draws a lateral trajectory inside its corridor.
package chart

import (
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/curioloop/lateral/lateral"
)

var ErrLength = errors.New("chart: trajectory and bounds differ in length")

var (
	offsetColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	boundColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	derivColor  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Plot builds the offset profile against the arc length, with the station bounds
// as dashed lines and the derivative for reference.
// Trajectories holding NaN, as left by an infeasible solve, cannot be plotted.
func Plot(title string, traj lateral.Trajectory, bounds []lateral.Bound, deltaS float64) (*plot.Plot, error) {
	n := traj.Len()
	if n != len(bounds) {
		return nil, ErrLength
	}
	offset := make(plotter.XYs, n)
	deriv := make(plotter.XYs, n)
	lower := make(plotter.XYs, n)
	upper := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		s := float64(i) * deltaS
		offset[i] = plotter.XY{X: s, Y: traj.Offsets[i]}
		deriv[i] = plotter.XY{X: s, Y: traj.Derivatives[i]}
		lower[i] = plotter.XY{X: s, Y: bounds[i].Lower}
		upper[i] = plotter.XY{X: s, Y: bounds[i].Upper}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "s"
	p.Y.Label.Text = "l"
	p.Add(plotter.NewGrid())

	lines := []struct {
		name  string
		xys   plotter.XYs
		color color.Color
		dash  bool
	}{
		{"offset", offset, offsetColor, false},
		{"derivative", deriv, derivColor, false},
		{"lower", lower, boundColor, true},
		{"upper", upper, boundColor, true},
	}
	for _, l := range lines {
		line, err := plotter.NewLine(l.xys)
		if err != nil {
			return nil, err
		}
		line.Color = l.color
		line.Width = vg.Points(1.5)
		if l.dash {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// Render saves the plot to path, in the format given by its extension (png, svg, pdf, ...).
func Render(path, title string, traj lateral.Trajectory, bounds []lateral.Bound, deltaS float64) error {
	p, err := Plot(title, traj, bounds, deltaS)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
