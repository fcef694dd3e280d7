// YAML campaign config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"uav-testgen/internal/geometry"
	"uav-testgen/internal/mission"
)

// Search tunes the seed pool, the mutation gates and the campaign budget.
type Search struct {
	Budget                 int     `yaml:"budget"`
	Obstacles              int     `yaml:"obstacles"`
	SeedCount              int     `yaml:"seed_count"`
	TopSeeds               int     `yaml:"top_seeds"`
	SeedThreshold          float64 `yaml:"seed_threshold"`
	SeedWrap               int     `yaml:"seed_wrap"`
	RoundsPerSeed          int     `yaml:"rounds_per_seed"`
	CrashThreshold         float64 `yaml:"crash_threshold"`
	MaxRepairRounds        int     `yaml:"max_repair_rounds"`
	MaxGateAttempts        int     `yaml:"max_gate_attempts"`
	SeedSummaryBudget      int     `yaml:"seed_summary_budget"`
	MutationSummaryBudget  int     `yaml:"mutation_summary_budget"`
	SeedXMargin            float64 `yaml:"seed_x_margin"`
	EnforcePathFeasibility bool    `yaml:"enforce_path_feasibility"`
	EnforceObstacleCount   bool    `yaml:"enforce_obstacle_count"`
	PathClearance          float64 `yaml:"path_clearance"`
	PathCell               float64 `yaml:"path_cell"`
}

// Generator configures the text-generation client.
type Generator struct {
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Temperature   float64       `yaml:"temperature"`
	MaxRetries    int           `yaml:"max_retries"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Timeout       time.Duration `yaml:"timeout"`
	TokenLog      string        `yaml:"token_log"`
}

// Simulator selects the execution backend.
type Simulator struct {
	Kind    string        `yaml:"kind"`
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// Output controls where artefacts are written and archived.
type Output struct {
	Dir        string `yaml:"dir"`
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlite_path"`
	Plots      bool   `yaml:"plots"`
}

// Logging selects slog level and handler format.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Greptime holds the GreptimeDB fitness sink settings.
type Greptime struct {
	Endpoint   string `yaml:"endpoint"`
	Database   string `yaml:"database"`
	Table      string `yaml:"table"`
	EventTable string `yaml:"event_table"`
}

// Campaign is the root configuration for one test-generation campaign.
type Campaign struct {
	Name        string            `yaml:"name"`
	CampaignID  string            `yaml:"campaign_id"`
	Mission     mission.Mission   `yaml:"mission"`
	MissionFile string            `yaml:"mission_file"`
	Boundary    geometry.Boundary `yaml:"boundary"`
	Ranges      geometry.Ranges   `yaml:"ranges"`
	MinHeight   float64           `yaml:"min_height"`
	Search      Search            `yaml:"search"`
	Generator   Generator         `yaml:"generator"`
	Simulator   Simulator         `yaml:"simulator"`
	Output      Output            `yaml:"output"`
	Logging     Logging           `yaml:"logging"`
	Greptime    Greptime          `yaml:"greptime"`
	AdminAddr   string            `yaml:"admin_addr"`
}

// Default returns the configuration used for every field the YAML file leaves out. Its
// mission is the built-in mission2, used only when the file names no mission at all.
func Default() Campaign {
	m, _ := mission.Lookup("mission2")
	return Campaign{
		Name:      "mission2",
		Mission:   m,
		Boundary:  geometry.DefaultBoundary,
		Ranges:    geometry.DefaultRanges(),
		MinHeight: geometry.DefaultMinHeight,
		Search: Search{
			Budget:                65,
			Obstacles:             2,
			SeedCount:             10,
			TopSeeds:              5,
			SeedWrap:              6,
			RoundsPerSeed:         7,
			CrashThreshold:        1.5,
			MaxRepairRounds:       5,
			MaxGateAttempts:       5,
			SeedSummaryBudget:     20,
			MutationSummaryBudget: 30,
			SeedXMargin:           20,
			EnforceObstacleCount:  true,
			PathClearance:         0.5,
			PathCell:              1,
		},
		Generator: Generator{
			Model:         "gpt-4o-mini",
			BaseURL:       "https://api.openai.com/v1",
			Temperature:   1,
			MaxRetries:    3,
			BackoffFactor: 2,
			Timeout:       120 * time.Second,
		},
		Simulator: Simulator{Kind: "kinematic", Timeout: 10 * time.Minute},
		Output:    Output{Dir: "out", Store: "memory", Plots: true},
		Logging:   Logging{Level: "info", Format: "text"},
		Greptime:  Greptime{Database: "public", Table: "uav_fitness", EventTable: "uav_search_events"},
	}
}

// Load loads YAML config and validates it against a CUE schema. An empty
// cueSchemaPath selects the embedded schema.
func Load(configPath, cueSchemaPath string) (*Campaign, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	schema := embeddedSchema
	if cueSchemaPath != "" {
		if schema, err = os.ReadFile(cueSchemaPath); err != nil {
			return nil, fmt.Errorf("read CUE schema: %w", err)
		}
	}
	if err := Validate(configPath, data, schema); err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes data over Default, applies the mission file and environment overrides. An
// inline mission block replaces the default mission instead of merging into it.
func Parse(data []byte) (*Campaign, error) {
	cfg := Default()
	var blocks struct {
		Mission *yaml.Node `yaml:"mission"`
	}
	if err := yaml.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if blocks.Mission != nil {
		cfg.Mission = mission.Mission{}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MissionFile != "" {
		m, err := mission.Load(cfg.MissionFile)
		if err != nil {
			return nil, err
		}
		cfg.Mission = *m
	}
	cfg.Mission.ApplyDefaults()
	if cfg.Mission.Name == "" {
		cfg.Mission.Name = cfg.Name
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Mission.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Campaign) ApplyEnv() error {
	str := map[string]*string{
		"UAVGEN_MODEL":        &c.Generator.Model,
		"OPENAI_API_KEY":      &c.Generator.APIKey,
		"OPENAI_BASE_URL":     &c.Generator.BaseURL,
		"GREPTIMEDB_ENDPOINT": &c.Greptime.Endpoint,
		"GREPTIMEDB_DATABASE": &c.Greptime.Database,
		"GREPTIMEDB_TABLE":    &c.Greptime.Table,
		"CAMPAIGN_ID":         &c.CampaignID,
		"UAVGEN_OUTPUT_DIR":   &c.Output.Dir,
	}
	for k, p := range str {
		if v := os.Getenv(k); v != "" {
			*p = v
		}
	}
	if v := os.Getenv("UAVGEN_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("UAVGEN_BUDGET: invalid budget %q", v)
		}
		c.Search.Budget = n
	}
	return nil
}
