package generator

import (
	"fmt"
	"strings"
	"text/template"

	"uav-testgen/internal/geometry"
	"uav-testgen/internal/obstacle"
)

var funcs = template.FuncMap{
	"ranges": rangeLines,
	"num":    num,
	"add":    func(a, b int) int { return a + b },
}

var (
	seedSystemTmpl = template.Must(template.New("seed-system").Funcs(funcs).Parse(`You are a UAV test case generator producing obstacle configurations that expose weaknesses in UAV obstacle-avoidance software.

A UAV flies autonomously from a start point to a goal point and avoids obstacles with its onboard sensors. Generate obstacle configurations that make it crash or pass unsafely close to an obstacle.

Rules:
  1. Every configuration has the same number of obstacles ({{.Obstacles}}).
  2. Obstacles must not overlap each other.
  3. The UAV must still have a possible route from start to goal. Blocking every path without a collision is invalid.
  4. Keep a vertical gap of about 15 m between obstacles placed in a line.
  5. Valid parameter ranges (stay within them):
{{- range ranges .Ranges}}
       {{.}}
{{- end}}
  6. The configurations must be diverse.

Output only a JSON array of configurations, no explanation:
[{"obstacles": [{"size": {"l": 10, "w": 5, "h": 20}, "position": {"x": 10, "y": 20, "z": 0, "r": 0}}, ...]}, ...]
`))

	mutationSystemTmpl = template.Must(template.New("mutation-system").Funcs(funcs).Parse(`You are a UAV test case generator producing obstacle configurations that expose weaknesses in UAV obstacle-avoidance software.

Inputs: the segment of interest flown without obstacles, the trajectory flown against the previous configuration, the previous configuration and, after the first trial, the best and worst configurations so far ranked by minimum distance to an obstacle (lower is closer to a crash).

Goal:
  1. Produce a new configuration that makes a crash or unsafe proximity more likely.
  2. Every configuration must differ meaningfully from the previous ones.
  3. Mutate obstacle position, size and rotation in controlled steps.

Rules:
  1. Keep the number of obstacles of the previous configuration. Do not add or remove obstacles.
  2. Fewer obstacles causing a failure are preferred.
  3. Obstacles must not overlap.
  4. The UAV must still have a possible route from start to goal.
  5. Obstacles must fit inside the test area x in [{{num .Boundary.XMin}}, {{num .Boundary.XMax}}], y in [{{num .Boundary.YMin}}, {{num .Boundary.YMax}}].
  6. Obstacles stand on the ground (z = 0) and are taller than the flight height (h > {{num .MinHeight}} m).
  7. Valid parameter ranges:
{{- range ranges .Ranges}}
       {{.}}
{{- end}}
  8. Change at least one obstacle value (x, y, l, w, h or r) by at least 10% from the previous configuration.
  9. Greedy mutation: start from the previous configuration and move obstacles toward the flight path. If the fitness does not improve, add small random perturbations.

Return only the complete YAML configuration enclosed in triple backticks:
` + "```yaml" + `
obstacles:
  - size: {l: , w: , h: }
    position: {x: , y: , z: , r: }
` + "```" + `
`))

	seedTmpl = template.Must(template.New("seed").Funcs(funcs).Parse(`Below is the base trajectory the UAV follows from start to goal when there are no obstacles.

*** Base Trajectory Path ***
{{.Trajectory}}
With obstacles present it deviates from this path to avoid them. Generate obstacle configurations that make it crash.

Goal:
  1. Generate {{.Count}} very diverse configurations, each with obstacles on the base trajectory path.
  2. No overlapping obstacles in any configuration.
  3. Do not stack obstacles directly in a line.
  4. Do not place an obstacle on the starting point of the path; leave room to take off.
  5. Place obstacles so they force an S shaped flight between them.
`))

	repairTmpl = template.Must(template.New("repair").Funcs(funcs).Parse(`Out of the generated configurations {{len .Valid}} are valid and {{len .Invalid}} are invalid because they leave the rectangular test area x in [{{num .Boundary.XMin}}, {{num .Boundary.XMax}}], y in [{{num .Boundary.YMin}}, {{num .Boundary.YMax}}].

Invalid configurations:
{{.InvalidTable}}
Goal:
  1. Mutate every invalid configuration so that it lies inside the test area.
  2. Keep the configurations diverse.
  3. Stay different from the valid configurations:
{{.ValidTable}}
  4. Return exactly {{len .Invalid}} configurations as a JSON array.
`))

	mutationTmpl = template.Must(template.New("mutation").Funcs(funcs).Parse(`Below is the segment of interest, the path the UAV follows from start to goal when there are no obstacles.

*** Segment of Interest (SOI) ***
{{.SOI}}
With obstacles present it deviates from this path to avoid them. Generate a mutated obstacle configuration that makes it crash, using the trajectory it flew against the previous configuration.

*** Flight Trajectory Path ***
{{.Trajectory}}
*** Previous Obstacle Configuration ***
{{.Previous}}

Output:
  Only the YAML configuration, no description or explanation.
`))
)

// BestWorstPreamble introduces the ledger summary appended to mutation prompts after the first trial.
const BestWorstPreamble = "The best and worst cases so far are below. Use the best configuration as the reference for the new one, the goal is a UAV crash:\n"

// Corrective prefixes prepended to the mutation prompt when a gate rejects a candidate.
const (
	DuplicatePrefix = "The generated obstacle configuration duplicates a previous one. Generate a configuration that differs from every previous configuration.\n\n"
	OverlapPrefix   = "Some obstacles in the generated configuration overlap. Generate a configuration without overlapping obstacles.\n\n"
	PathPrefix      = "The generated configuration blocks every route from start to goal. Leave the UAV a feasible route.\n\n"
)

// HeightPrefix asks for grounded obstacles taller than minHeight.
func HeightPrefix(minHeight float64) string {
	return fmt.Sprintf("Some obstacles are not on the ground or do not meet the minimum height. Obstacles must stand on the ground (z = 0) and be taller than the flight height (h > %s m).\n\n", num(minHeight))
}

// RangePrefix lists the out-of-range parameters of the rejected candidate.
func RangePrefix(violations []geometry.RangeViolation) string {
	var b strings.Builder
	b.WriteString("Some obstacle parameters are outside the valid ranges. Generate a configuration with every parameter inside its range.\n")
	for _, v := range violations {
		b.WriteString("  - ")
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// CountPrefix asks the generator to keep the obstacle count.
func CountPrefix(want, got int) string {
	return fmt.Sprintf("The generated configuration has %d obstacles but must keep exactly %d. Do not add or remove obstacles.\n\n", got, want)
}

// SeedSystemPrompt is the role prompt of the seed phase.
func SeedSystemPrompt(obstacles int, ranges geometry.Ranges) string {
	return execute(seedSystemTmpl, struct {
		Obstacles int
		Ranges    geometry.Ranges
	}{obstacles, ranges})
}

// MutationSystemPrompt is the role prompt of the mutation phase.
func MutationSystemPrompt(b geometry.Boundary, ranges geometry.Ranges, minHeight float64) string {
	return execute(mutationSystemTmpl, struct {
		Boundary  geometry.Boundary
		Ranges    geometry.Ranges
		MinHeight float64
	}{b, ranges, minHeight})
}

// SeedPrompt asks for count configurations along the base trajectory.
func SeedPrompt(trajectory string, count int) string {
	return execute(seedTmpl, struct {
		Trajectory string
		Count      int
	}{trajectory, count})
}

// Labeled is a configuration with the file it was persisted to.
type Labeled struct {
	Path   string
	Config obstacle.Configuration
}

// RepairPrompt asks the generator to move invalid seeds inside the boundary while staying
// distinct from the valid ones.
func RepairPrompt(valid, invalid []Labeled, b geometry.Boundary) string {
	return execute(repairTmpl, struct {
		Valid, Invalid           []Labeled
		Boundary                 geometry.Boundary
		ValidTable, InvalidTable string
	}{valid, invalid, b, table(valid), table(invalid)})
}

// MutationPrompt embeds the segment of interest, the last trajectory and the previous configuration.
func MutationPrompt(soi, trajectory, previous string) string {
	return execute(mutationTmpl, struct {
		SOI, Trajectory, Previous string
	}{soi, trajectory, previous})
}

func execute(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		// Templates are static and their data is typed; failure is a programming error.
		panic(fmt.Sprintf("render %s: %v", t.Name(), err))
	}
	return b.String()
}

func table(items []Labeled) string {
	if len(items) == 0 {
		return "    (none)\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "    %s", it.Path)
		for i, o := range it.Config.Obstacles {
			fmt.Fprintf(&b, " | obs%d-size: %s | obs%d-position: %s", i+1, o.SizeSummary(), i+1, o.PositionSummary())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func rangeLines(r geometry.Ranges) []string {
	lines := make([]string, 0, len(obstacle.Fields))
	for _, f := range obstacle.Fields {
		iv, ok := r[f]
		if !ok {
			continue
		}
		if iv.Min == iv.Max {
			lines = append(lines, fmt.Sprintf("%s = %s", f, num(iv.Min)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s in [%s, %s]", f, num(iv.Min), num(iv.Max)))
	}
	return lines
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
