package geometry

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"uav-testgen/internal/obstacle"
)

// Boundary is the rectangular test area.
type Boundary struct {
	XMin float64 `yaml:"x_min" json:"x_min"`
	XMax float64 `yaml:"x_max" json:"x_max"`
	YMin float64 `yaml:"y_min" json:"y_min"`
	YMax float64 `yaml:"y_max" json:"y_max"`
}

// DefaultBoundary is the [-40,30] x [10,40] flight area.
var DefaultBoundary = Boundary{XMin: -40, XMax: 30, YMin: 10, YMax: 40}

func (b Boundary) String() string {
	return fmt.Sprintf("X ∈ [%g, %g], Y ∈ [%g, %g]", b.XMin, b.XMax, b.YMin, b.YMax)
}

func inside(v, lo, hi float64) bool { return lo <= v && v <= hi }

// WithinBoundary checks every obstacle against the boundary using the quadrant rule:
// obstacles with x <= 0 have their left extent checked, x > 0 their right extent; obstacles
// above the vertical midpoint have their top extent checked, the rest their bottom extent.
// The extent facing away from the quadrant is not checked, so a footprint whose far edge
// leaves a thin boundary is not rejected.
func WithinBoundary(cfg obstacle.Configuration, b Boundary) bool {
	midY := (b.YMin + b.YMax) / 2
	for _, o := range cfg.Obstacles {
		left, right, bottom, top := Extents(o)
		x, y := o.Position.X, o.Position.Y

		ex := right
		if x <= 0 {
			ex = left
		}
		ey := bottom
		if y > midY {
			ey = top
		}
		if !inside(ex, b.XMin, b.XMax) || !inside(ey, b.YMin, b.YMax) {
			return false
		}
	}
	return true
}

// Interval is a closed range; it reads and writes as a two element YAML list.
type Interval struct {
	Min float64
	Max float64
}

// Contains reports min <= v <= max. NaN is never contained.
func (iv Interval) Contains(v float64) bool { return inside(v, iv.Min, iv.Max) }

// UnmarshalYAML accepts [min, max] or {min: .., max: ..}.
func (iv *Interval) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		var pair []float64
		if err := n.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("range needs 2 values, got %d", len(pair))
		}
		iv.Min, iv.Max = pair[0], pair[1]
		return nil
	}
	var m struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	iv.Min, iv.Max = m.Min, m.Max
	return nil
}

// MarshalYAML writes [min, max].
func (iv Interval) MarshalYAML() (any, error) {
	return []float64{iv.Min, iv.Max}, nil
}

// Ranges maps obstacle field names to their allowed interval.
type Ranges map[string]Interval

// DefaultRanges is the mutation-phase parameter table.
func DefaultRanges() Ranges {
	return Ranges{
		obstacle.FieldX: {Min: -40, Max: 30},
		obstacle.FieldY: {Min: 10, Max: 40},
		obstacle.FieldZ: {Min: 0, Max: 0},
		obstacle.FieldL: {Min: 2, Max: 20},
		obstacle.FieldW: {Min: 2, Max: 20},
		obstacle.FieldH: {Min: 10, Max: 25},
		obstacle.FieldR: {Min: 0, Max: 90},
	}
}

// RangeViolation describes one field outside its interval.
type RangeViolation struct {
	Obstacle int
	Field    string
	Value    float64
	Bounds   Interval
	NoRange  bool
}

func (v RangeViolation) String() string {
	if v.NoRange {
		return fmt.Sprintf("obstacle %d: parameter '%s' has no configured range", v.Obstacle, v.Field)
	}
	if math.IsNaN(v.Value) {
		return fmt.Sprintf("obstacle %d: parameter '%s' is missing, want [%g, %g]", v.Obstacle, v.Field, v.Bounds.Min, v.Bounds.Max)
	}
	return fmt.Sprintf("obstacle %d: parameter '%s' = %g is out of range [%g, %g]", v.Obstacle, v.Field, v.Value, v.Bounds.Min, v.Bounds.Max)
}

// RangeViolations lists every field of every obstacle that is missing or outside its interval.
func RangeViolations(cfg obstacle.Configuration, table Ranges) []RangeViolation {
	var out []RangeViolation
	for i, o := range cfg.Obstacles {
		for _, name := range obstacle.Fields {
			v, _ := o.Field(name)
			iv, ok := table[name]
			if !ok {
				out = append(out, RangeViolation{Obstacle: i, Field: name, Value: v, NoRange: true})
				continue
			}
			if !iv.Contains(v) {
				out = append(out, RangeViolation{Obstacle: i, Field: name, Value: v, Bounds: iv})
			}
		}
	}
	return out
}

// WithinRanges reports whether every field of every obstacle lies in its closed interval.
func WithinRanges(cfg obstacle.Configuration, table Ranges) bool {
	return len(RangeViolations(cfg, table)) == 0
}

// DefaultMinHeight is the minimum obstacle height; obstacles must be taller than the flight altitude.
const DefaultMinHeight = 10.0

// GroundAndHeightOK reports whether every obstacle rests on the ground and is taller than minHeight.
func GroundAndHeightOK(cfg obstacle.Configuration, minHeight float64) bool {
	for _, o := range cfg.Obstacles {
		if o.Position.Z != 0 || !(o.Size.H > minHeight) {
			return false
		}
	}
	return true
}
