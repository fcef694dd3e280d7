// Geometric feasibility predicates over obstacle footprints
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"

	"uav-testgen/internal/obstacle"
)

// RotatedExtents returns the axis-aligned bounds of the l x w rectangle centred at (x, y)
// rotated by r degrees about its centre.
func RotatedExtents(x, y, l, w, r float64) (left, right, bottom, top float64) {
	th := r * math.Pi / 180
	hl, hw := l/2, w/2
	dx := math.Abs(hl*math.Cos(th)) + math.Abs(hw*math.Sin(th))
	dy := math.Abs(hl*math.Sin(th)) + math.Abs(hw*math.Cos(th))
	return x - dx, x + dx, y - dy, y + dy
}

// Extents is RotatedExtents applied to an obstacle.
func Extents(o obstacle.Obstacle) (left, right, bottom, top float64) {
	return RotatedExtents(o.Position.X, o.Position.Y, o.Size.L, o.Size.W, o.Position.R)
}

// corners returns the rotated rectangle corners counter-clockwise, grown by pad on every side.
func corners(o obstacle.Obstacle, pad float64) [4]r2.Vec {
	c := r2.Vec{X: o.Position.X, Y: o.Position.Y}
	hl, hw := o.Size.L/2+pad, o.Size.W/2+pad
	th := o.Position.R * math.Pi / 180
	rel := [4]r2.Vec{{X: -hl, Y: -hw}, {X: hl, Y: -hw}, {X: hl, Y: hw}, {X: -hl, Y: hw}}
	var out [4]r2.Vec
	for i, p := range rel {
		out[i] = r2.Rotate(r2.Add(c, p), th, c)
	}
	return out
}

// Footprint returns the rotated footprint as a closed ring.
func Footprint(o obstacle.Obstacle) orb.Ring {
	return ring(corners(o, 0))
}

func ring(pts [4]r2.Vec) orb.Ring {
	r := make(orb.Ring, 0, 5)
	for _, p := range pts {
		r = append(r, orb.Point{p.X, p.Y})
	}
	return append(r, r[0])
}

func finite(o obstacle.Obstacle) bool {
	for _, v := range []float64{o.Size.L, o.Size.W, o.Size.H, o.Position.X, o.Position.Y, o.Position.Z, o.Position.R} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
