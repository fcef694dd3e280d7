package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"uav-testgen/internal/obstacle"
)

// contactEps absorbs floating point noise so that footprints sharing an edge count as touching.
const contactEps = 1e-9

// Overlaps reports whether the rotated footprints of a and b share interior points.
// Footprints that only touch along an edge or at a corner do not overlap.
func Overlaps(a, b obstacle.Obstacle) bool {
	if !finite(a) || !finite(b) {
		return false
	}
	if a.Size.L <= 0 || a.Size.W <= 0 || b.Size.L <= 0 || b.Size.W <= 0 {
		return false
	}
	pa, pb := corners(a, 0), corners(b, 0)
	for _, poly := range [][4]r2.Vec{pa, pb} {
		for i := range poly {
			edge := r2.Sub(poly[(i+1)%4], poly[i])
			axis := r2.Vec{X: -edge.Y, Y: edge.X}
			if separated(axis, pa, pb) {
				return false
			}
		}
	}
	return true
}

// separated projects both polygons on axis and reports a gap (or exact contact).
func separated(axis r2.Vec, pa, pb [4]r2.Vec) bool {
	n := r2.Norm(axis)
	if n == 0 {
		return false
	}
	axis = r2.Scale(1/n, axis)
	minA, maxA := project(axis, pa)
	minB, maxB := project(axis, pb)
	return maxA <= minB+contactEps || maxB <= minA+contactEps
}

func project(axis r2.Vec, pts [4]r2.Vec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := r2.Dot(axis, p)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// OverlappingPair returns the first pair of overlapping obstacle indices.
func OverlappingPair(cfg obstacle.Configuration) (i, j int, ok bool) {
	n := len(cfg.Obstacles)
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			if Overlaps(cfg.Obstacles[i], cfg.Obstacles[j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// AnyOverlap reports whether any two obstacles of cfg overlap.
func AnyOverlap(cfg obstacle.Configuration) bool {
	_, _, ok := OverlappingPair(cfg)
	return ok
}
