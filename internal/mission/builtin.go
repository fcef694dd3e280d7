package mission

// BuiltIn returns the predefined missions selectable by name.
func BuiltIn() map[string]Mission {
	return map[string]Mission{
		"mission1": {
			Name:         "mission1",
			Description:  "Straight north leg across the obstacle area at low altitude.",
			Start:        Point{X: 0, Y: 0},
			Goal:         Point{X: 0, Y: 50},
			Altitude:     3,
			Speed:        2,
			SampleRateHz: 10,
		},
		"mission2": {
			Name:         "mission2",
			Description:  "Straight north leg across the obstacle area.",
			Start:        Point{X: 0, Y: 0},
			Goal:         Point{X: 0, Y: 50},
			Altitude:     5,
			Speed:        2,
			SampleRateHz: 10,
		},
		"diagonal": {
			Name:         "diagonal",
			Description:  "North-west diagonal through the obstacle area.",
			Start:        Point{X: 10, Y: 0},
			Goal:         Point{X: -20, Y: 50},
			Altitude:     5,
			Speed:        2,
			SampleRateHz: 10,
		},
	}
}

// Lookup returns the built-in mission called name.
func Lookup(name string) (Mission, bool) {
	m, ok := BuiltIn()[name]
	return m, ok
}
