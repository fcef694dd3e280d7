package mission

import (
	"errors"
	"testing"
)

func TestLoadMission(t *testing.T) {
	m, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load mission: %v", err)
	}
	if m.Name != "example" {
		t.Fatalf("unexpected name %s", m.Name)
	}
	if m.Speed != 4 {
		t.Fatalf("unexpected speed %v", m.Speed)
	}
	if m.Altitude != 5 || m.SampleRateHz != 10 {
		t.Fatalf("defaults not applied: %+v", m)
	}
	if m.Length() != 40 {
		t.Fatalf("unexpected length %v", m.Length())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	m := Mission{Start: Point{}, Goal: Point{}, Speed: 2, SampleRateHz: 10}
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for zero-length leg, got %v", err)
	}
	m.Goal.Y = 10
	m.Speed = 0
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for zero speed, got %v", err)
	}
}

func TestBuiltIn(t *testing.T) {
	for name, m := range BuiltIn() {
		if m.Name != name {
			t.Fatalf("mission %s has name %s", name, m.Name)
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("mission %s invalid: %v", name, err)
		}
	}
	m, ok := Lookup("diagonal")
	if !ok {
		t.Fatal("diagonal not found")
	}
	if lo, hi := m.XExtent(); lo != -20 || hi != 10 {
		t.Fatalf("unexpected x extent %v %v", lo, hi)
	}
}
