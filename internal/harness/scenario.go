package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one tracker scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed clock start (RFC 3339). Defaults to
	// 2024-01-05T09:00:00Z.
	Now string `yaml:"now,omitempty"`

	// Timezone defines calendar days. Defaults to UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Seed is raw JSON stored under the primary key before the first load,
	// used to exercise migrations and corruption recovery.
	Seed string `yaml:"seed,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one tracker operation.
type Step struct {
	Op string `yaml:"op"`

	Site     string `yaml:"site,omitempty"`
	Force    bool   `yaml:"force,omitempty"`
	Zone     string `yaml:"zone,omitempty"`
	Value    string `yaml:"value,omitempty"`
	Duration string `yaml:"duration,omitempty"`
	CSV      string `yaml:"csv,omitempty"`

	// Answers feed the resolve step, one per prompt.
	Answers []Answer `yaml:"answers,omitempty"`

	// Expect holds import counts (added, skipped, ambiguous).
	Expect map[string]int `yaml:"expect,omitempty"`

	// ExpectError names the error the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Answer is one reply to a resolution prompt. Exactly one of Choose or
// Skip is set.
type Answer struct {
	Choose string `yaml:"choose,omitempty"`
	Mode   string `yaml:"mode,omitempty"` // "all" (default) or "one"
	Skip   bool   `yaml:"skip,omitempty"`
	// Label optionally pins which label this answer expects to be asked.
	Label string `yaml:"label,omitempty"`
}

// Assertion validates the final document.
type Assertion struct {
	Type   string            `yaml:"type"`
	Sites  []string          `yaml:"sites,omitempty"`
	Zones  []string          `yaml:"zones,omitempty"`
	Count  int               `yaml:"count,omitempty"`
	Expect map[string]string `yaml:"expect,omitempty"`
	Zone   string            `yaml:"zone,omitempty"`
}

// Step operation constants.
const (
	OpLog          = "log"
	OpAdvance      = "advance"
	OpSetStart     = "set_start"
	OpSetInterval  = "set_interval"
	OpSetDose      = "set_dose"
	OpToggleZone   = "toggle_zone"
	OpImport       = "import"
	OpResolve      = "resolve"
	OpClearHistory = "clear_history"
	OpReload       = "reload"
)

// Assertion type constants.
const (
	AssertHistorySites  = "history_sites"
	AssertHistoryCount  = "history_count"
	AssertProfile       = "profile"
	AssertZones         = "zones"
	AssertNoAmbiguities = "no_ambiguities"
	AssertSuggest       = "suggest"
)

// DefaultNow is the clock start for scenarios that do not set one.
var DefaultNow = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

var validOps = map[string]bool{
	OpLog: true, OpAdvance: true, OpSetStart: true, OpSetInterval: true, OpSetDose: true,
	OpToggleZone: true, OpImport: true, OpResolve: true, OpClearHistory: true, OpReload: true,
}

var validAssertions = map[string]bool{
	AssertHistorySites: true, AssertHistoryCount: true, AssertProfile: true,
	AssertZones: true, AssertNoAmbiguities: true, AssertSuggest: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 && s.Seed == "" {
		return fmt.Errorf("steps list is required unless a seed is given")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	for i, step := range s.Steps {
		if !validOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Op == OpAdvance {
			if _, err := time.ParseDuration(step.Duration); err != nil {
				return fmt.Errorf("steps[%d]: duration: %w", i, err)
			}
		}
		for j, a := range step.Answers {
			if (a.Choose == "") == !a.Skip {
				return fmt.Errorf("steps[%d].answers[%d]: set exactly one of choose or skip", i, j)
			}
			if a.Mode != "" && a.Mode != "all" && a.Mode != "one" {
				return fmt.Errorf("steps[%d].answers[%d]: mode must be all or one", i, j)
			}
		}
	}

	for i, a := range s.Assertions {
		if !validAssertions[a.Type] {
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}

	return nil
}
