package mission

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a position in the local mission frame, metres.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Mission is the flight the simulator executes against each obstacle configuration.
type Mission struct {
	Name         string  `yaml:"name,omitempty" json:"name,omitempty"`
	Description  string  `yaml:"description,omitempty" json:"description,omitempty"`
	Start        Point   `yaml:"start" json:"start"`
	Goal         Point   `yaml:"goal" json:"goal"`
	Altitude     float64 `yaml:"altitude" json:"altitude"`
	Speed        float64 `yaml:"speed" json:"speed"`
	SampleRateHz float64 `yaml:"sample_rate_hz" json:"sample_rate_hz"`
}

// ErrInvalid is returned by Validate for missions the simulator cannot fly.
var ErrInvalid = errors.New("invalid mission")

// Load reads a YAML mission definition from disk.
func Load(path string) (*Mission, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission: %w", err)
	}
	var m Mission
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse mission: %w", err)
	}
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyDefaults fills zero speed, altitude and sample rate.
func (m *Mission) ApplyDefaults() {
	if m.Altitude == 0 {
		m.Altitude = 5
	}
	if m.Speed == 0 {
		m.Speed = 2
	}
	if m.SampleRateHz == 0 {
		m.SampleRateHz = 10
	}
}

// Validate rejects missions with non-positive speed or sample rate or a zero-length leg.
func (m Mission) Validate() error {
	if m.Speed <= 0 {
		return fmt.Errorf("%w: speed must be positive", ErrInvalid)
	}
	if m.SampleRateHz <= 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalid)
	}
	if m.Length() == 0 {
		return fmt.Errorf("%w: start and goal coincide", ErrInvalid)
	}
	return nil
}

// Length is the horizontal distance from start to goal.
func (m Mission) Length() float64 {
	return math.Hypot(m.Goal.X-m.Start.X, m.Goal.Y-m.Start.Y)
}

// XExtent returns the smaller and larger x of start and goal.
func (m Mission) XExtent() (lo, hi float64) {
	return math.Min(m.Start.X, m.Goal.X), math.Max(m.Start.X, m.Goal.X)
}
