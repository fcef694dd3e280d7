package obstacle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSchema reports an obstacle that lacks its size or position block.
var ErrSchema = errors.New("invalid obstacle schema")

var (
	sizeKeys     = []string{"size", "dimensions"}
	positionKeys = []string{"position", "pose"}
)

// DecodeConfiguration normalises a generic decoded document (YAML or JSON) into a Configuration.
// Both {obstacles: [...]} and a bare obstacle list are accepted. Individual fields that are
// absent decode as NaN so that range and ground checks reject them instead of guessing a value.
func DecodeConfiguration(v any) (Configuration, error) {
	var items []any
	switch doc := v.(type) {
	case map[string]any:
		raw, ok := doc["obstacles"]
		if !ok {
			return Configuration{}, fmt.Errorf("%w: missing obstacles list", ErrSchema)
		}
		list, ok := raw.([]any)
		if !ok {
			return Configuration{}, fmt.Errorf("%w: obstacles is %T, want list", ErrSchema, raw)
		}
		items = list
	case []any:
		items = doc
	default:
		return Configuration{}, fmt.Errorf("%w: unexpected document type %T", ErrSchema, v)
	}

	cfg := Configuration{Obstacles: make([]Obstacle, 0, len(items))}
	for i, item := range items {
		o, err := decodeObstacle(item)
		if err != nil {
			return Configuration{}, fmt.Errorf("obstacle %d: %w", i, err)
		}
		cfg.Obstacles = append(cfg.Obstacles, o)
	}
	return cfg, nil
}

// DecodeConfigurations normalises a list of configurations.
func DecodeConfigurations(v any) ([]Configuration, error) {
	list, ok := v.([]any)
	if !ok {
		if m, isMap := v.(map[string]any); isMap {
			if inner, has := m["configurations"]; has {
				return DecodeConfigurations(inner)
			}
		}
		return nil, fmt.Errorf("%w: expected list of configurations, got %T", ErrSchema, v)
	}
	out := make([]Configuration, 0, len(list))
	for i, item := range list {
		cfg, err := DecodeConfiguration(item)
		if err != nil {
			return nil, fmt.Errorf("configuration %d: %w", i, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func decodeObstacle(v any) (Obstacle, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Obstacle{}, fmt.Errorf("%w: obstacle is %T, want mapping", ErrSchema, v)
	}
	size, ok := lookupBlock(m, sizeKeys)
	if !ok {
		return Obstacle{}, fmt.Errorf("%w: expected key 'size' or 'dimensions'", ErrSchema)
	}
	pos, ok := lookupBlock(m, positionKeys)
	if !ok {
		return Obstacle{}, fmt.Errorf("%w: expected key 'position' or 'pose'", ErrSchema)
	}

	var o Obstacle
	var err error
	if o.Size.L, err = field(size, FieldL); err != nil {
		return Obstacle{}, err
	}
	if o.Size.W, err = field(size, FieldW); err != nil {
		return Obstacle{}, err
	}
	if o.Size.H, err = field(size, FieldH); err != nil {
		return Obstacle{}, err
	}
	if o.Position.X, err = field(pos, FieldX); err != nil {
		return Obstacle{}, err
	}
	if o.Position.Y, err = field(pos, FieldY); err != nil {
		return Obstacle{}, err
	}
	if o.Position.Z, err = field(pos, FieldZ); err != nil {
		return Obstacle{}, err
	}
	if o.Position.R, err = field(pos, FieldR); err != nil {
		return Obstacle{}, err
	}
	return o, nil
}

func lookupBlock(m map[string]any, keys []string) (map[string]any, bool) {
	for _, k := range keys {
		if raw, ok := m[k]; ok && raw != nil {
			block, isMap := raw.(map[string]any)
			return block, isMap
		}
	}
	return nil, false
}

func field(block map[string]any, name string) (float64, error) {
	raw, ok := block[name]
	if !ok || raw == nil {
		return math.NaN(), nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %s=%q is not numeric", ErrSchema, name, v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: field %s has type %T", ErrSchema, name, raw)
}
