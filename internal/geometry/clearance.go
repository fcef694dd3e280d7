package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"uav-testgen/internal/obstacle"
)

// Clearance is the Euclidean distance from the point (x, y, z) to the obstacle solid.
// Points inside the solid have zero clearance.
func Clearance(o obstacle.Obstacle, x, y, z float64) float64 {
	c := r2.Vec{X: o.Position.X, Y: o.Position.Y}
	th := o.Position.R * math.Pi / 180
	local := r2.Sub(r2.Rotate(r2.Vec{X: x, Y: y}, -th, c), c)

	dx := math.Max(math.Abs(local.X)-o.Size.L/2, 0)
	dy := math.Max(math.Abs(local.Y)-o.Size.W/2, 0)
	var dz float64
	switch {
	case z > o.Position.Z+o.Size.H:
		dz = z - (o.Position.Z + o.Size.H)
	case z < o.Position.Z:
		dz = o.Position.Z - z
	}
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// MinClearance is the smallest clearance from the point to any obstacle of cfg.
// It returns +Inf for an empty configuration.
func MinClearance(cfg obstacle.Configuration, x, y, z float64) float64 {
	best := math.Inf(1)
	for _, o := range cfg.Obstacles {
		best = math.Min(best, Clearance(o, x, y, z))
	}
	return best
}
