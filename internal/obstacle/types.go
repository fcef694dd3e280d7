// Obstacle and configuration types shared by the validator, generator and simulator
package obstacle

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is the obstacle footprint (l x w before rotation) and its height.
type Size struct {
	L float64 `yaml:"l" json:"l"`
	W float64 `yaml:"w" json:"w"`
	H float64 `yaml:"h" json:"h"`
}

// Position is the footprint centre, base height and rotation in degrees about the vertical axis.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
	R float64 `yaml:"r" json:"r"`
}

// Obstacle is a rectangular-footprint solid resting on the ground.
type Obstacle struct {
	Size     Size     `yaml:"size" json:"size"`
	Position Position `yaml:"position" json:"position"`
}

// Configuration is the ordered obstacle set of one test case.
type Configuration struct {
	Obstacles []Obstacle `yaml:"obstacles" json:"obstacles"`
}

// Field names used by range tables and violation reports.
const (
	FieldX = "x"
	FieldY = "y"
	FieldZ = "z"
	FieldL = "l"
	FieldW = "w"
	FieldH = "h"
	FieldR = "r"
)

// Fields lists obstacle fields in range-check order.
var Fields = []string{FieldX, FieldY, FieldZ, FieldL, FieldW, FieldH, FieldR}

// Field returns the value of a named field.
func (o Obstacle) Field(name string) (float64, bool) {
	switch name {
	case FieldX:
		return o.Position.X, true
	case FieldY:
		return o.Position.Y, true
	case FieldZ:
		return o.Position.Z, true
	case FieldL:
		return o.Size.L, true
	case FieldW:
		return o.Size.W, true
	case FieldH:
		return o.Size.H, true
	case FieldR:
		return o.Position.R, true
	}
	return 0, false
}

// Len returns the obstacle count.
func (c Configuration) Len() int { return len(c.Obstacles) }

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := Configuration{Obstacles: make([]Obstacle, len(c.Obstacles))}
	copy(out.Obstacles, c.Obstacles)
	return out
}

// SizeSummary renders the size block, e.g. "{l: 10, w: 5, h: 20}".
func (o Obstacle) SizeSummary() string {
	return fmt.Sprintf("{l: %s, w: %s, h: %s}", num(o.Size.L), num(o.Size.W), num(o.Size.H))
}

// PositionSummary renders the position block, e.g. "{x: 10, y: 20, z: 0, r: 0}".
func (o Obstacle) PositionSummary() string {
	return fmt.Sprintf("{x: %s, y: %s, z: %s, r: %s}", num(o.Position.X), num(o.Position.Y), num(o.Position.Z), num(o.Position.R))
}

// String renders the configuration as a compact one-line obstacle list for prompts and logs.
func (c Configuration) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, o := range c.Obstacles {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "{size: %s, position: %s}", o.SizeSummary(), o.PositionSummary())
	}
	b.WriteString("]")
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
