package obstacle

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func twoBoxes() Configuration {
	return Configuration{Obstacles: []Obstacle{
		{Size: Size{L: 10, W: 5, H: 20}, Position: Position{X: 10, Y: 20}},
		{Size: Size{L: 10, W: 5, H: 20}, Position: Position{X: -10, Y: 20}},
	}}
}

func TestDecodeConfigurationAliases(t *testing.T) {
	src := `
obstacles:
  - dimensions: {l: 10, w: 5, h: 20}
    pose: {x: 10, y: 20, z: 0, r: 0}
  - size: {l: "10", w: 5.0, h: 20}
    position: {x: -10, y: 20, z: 0, r: 0}
`
	var doc any
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := DecodeConfiguration(doc)
	if err != nil {
		t.Fatalf("DecodeConfiguration: %v", err)
	}
	if diff := cmp.Diff(twoBoxes(), got); diff != "" {
		t.Fatalf("configuration mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeConfigurationBareList(t *testing.T) {
	var doc any
	if err := json.Unmarshal([]byte(`[{"size":{"l":2,"w":2,"h":12},"position":{"x":1,"y":15,"z":0,"r":45}}]`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := DecodeConfiguration(doc)
	if err != nil {
		t.Fatalf("DecodeConfiguration: %v", err)
	}
	if got.Len() != 1 || got.Obstacles[0].Position.R != 45 {
		t.Fatalf("unexpected configuration: %+v", got)
	}
}

func TestDecodeConfigurationSchemaErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  any
	}{
		{"no obstacles key", map[string]any{"things": []any{}}},
		{"missing size", map[string]any{"obstacles": []any{map[string]any{"position": map[string]any{"x": 1}}}}},
		{"missing position", map[string]any{"obstacles": []any{map[string]any{"size": map[string]any{"l": 1}}}}},
		{"non numeric", map[string]any{"obstacles": []any{map[string]any{
			"size":     map[string]any{"l": "long"},
			"position": map[string]any{"x": 1},
		}}}},
		{"scalar document", "obstacles"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeConfiguration(tc.doc); !errors.Is(err, ErrSchema) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
		})
	}
}

func TestDecodeConfigurationMissingFieldIsNaN(t *testing.T) {
	doc := map[string]any{"obstacles": []any{map[string]any{
		"size":     map[string]any{"l": 4, "w": 3},
		"position": map[string]any{"x": 1, "y": 12, "z": 0, "r": 0},
	}}}
	got, err := DecodeConfiguration(doc)
	if err != nil {
		t.Fatalf("DecodeConfiguration: %v", err)
	}
	if !math.IsNaN(got.Obstacles[0].Size.H) {
		t.Fatalf("expected NaN height, got %v", got.Obstacles[0].Size.H)
	}
}

func TestDecodeConfigurations(t *testing.T) {
	var doc any
	src := `[{"obstacles":[{"size":{"l":10,"w":5,"h":20},"position":{"x":10,"y":20,"z":0,"r":0}}]},
	         {"obstacles":[{"size":{"l":3,"w":3,"h":15},"position":{"x":-5,"y":30,"z":0,"r":10}}]}]`
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := DecodeConfigurations(doc)
	if err != nil {
		t.Fatalf("DecodeConfigurations: %v", err)
	}
	if len(got) != 2 || got[1].Obstacles[0].Position.R != 10 {
		t.Fatalf("unexpected configurations: %+v", got)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mission_iter1.yaml")
	want := twoBoxes()
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaries(t *testing.T) {
	o := twoBoxes().Obstacles[0]
	if got := o.SizeSummary(); got != "{l: 10, w: 5, h: 20}" {
		t.Fatalf("SizeSummary = %s", got)
	}
	if got := o.PositionSummary(); got != "{x: 10, y: 20, z: 0, r: 0}" {
		t.Fatalf("PositionSummary = %s", got)
	}
	if v, ok := o.Field(FieldW); !ok || v != 5 {
		t.Fatalf("Field(w) = %v, %v", v, ok)
	}
}
