package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"uav-testgen/internal/obstacle"
)

// Point2 is a planar waypoint.
type Point2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// PathFeasible reports whether a 4-connected route of grid cells links start to goal without
// entering any footprint grown by clearance. The lateral extent of the grid is the boundary's
// x range; along y it stretches to cover start and goal.
func PathFeasible(cfg obstacle.Configuration, b Boundary, start, goal Point2, clearance, cell float64) bool {
	if cell <= 0 {
		cell = 0.5
	}
	xMin, xMax := b.XMin, b.XMax
	yMin := math.Min(b.YMin, math.Min(start.Y, goal.Y))
	yMax := math.Max(b.YMax, math.Max(start.Y, goal.Y))
	cols := int(math.Ceil((xMax - xMin) / cell))
	rows := int(math.Ceil((yMax - yMin) / cell))
	if cols <= 0 || rows <= 0 {
		return true
	}

	rings := make([]orb.Ring, 0, len(cfg.Obstacles))
	bounds := make([]orb.Bound, 0, len(cfg.Obstacles))
	for _, o := range cfg.Obstacles {
		if !finite(o) {
			continue
		}
		r := ring(corners(o, clearance))
		rings = append(rings, r)
		bounds = append(bounds, r.Bound())
	}

	blocked := func(c, r int) bool {
		p := orb.Point{xMin + (float64(c)+0.5)*cell, yMin + (float64(r)+0.5)*cell}
		for i, rg := range rings {
			if bounds[i].Contains(p) && planar.RingContains(rg, p) {
				return true
			}
		}
		return false
	}
	toCell := func(p Point2) (int, int) {
		c := int(math.Floor((p.X - xMin) / cell))
		r := int(math.Floor((p.Y - yMin) / cell))
		return clampInt(c, 0, cols-1), clampInt(r, 0, rows-1)
	}

	sc, sr := toCell(start)
	gc, gr := toCell(goal)
	if blocked(sc, sr) || blocked(gc, gr) {
		return false
	}

	seen := make([]bool, cols*rows)
	queue := [][2]int{{sc, sr}}
	seen[sr*cols+sc] = true
	steps := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur[0] == gc && cur[1] == gr {
			return true
		}
		for _, s := range steps {
			c, r := cur[0]+s[0], cur[1]+s[1]
			if c < 0 || c >= cols || r < 0 || r >= rows || seen[r*cols+c] {
				continue
			}
			seen[r*cols+c] = true
			if blocked(c, r) {
				continue
			}
			queue = append(queue, [2]int{c, r})
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
