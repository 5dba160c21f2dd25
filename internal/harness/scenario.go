package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted journal session.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Backend is "memory" (default) or "sqlite".
	Backend string `yaml:"backend,omitempty"`

	// Setup entries are written to the store before the flow, as they are.
	Setup []SeedEntry `yaml:"setup,omitempty"`

	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// SeedEntry is a stored entry in scenario form.
type SeedEntry struct {
	ID        string  `yaml:"id"`
	Image     string  `yaml:"image"`
	Address   string  `yaml:"address"`
	Timestamp int64   `yaml:"timestamp"`
	Note      *string `yaml:"note,omitempty"`
	Favorite  bool    `yaml:"favorite,omitempty"`
}

// Step is one journal operation.
type Step struct {
	// Do is the operation: create, toggle_favorite, update_note, remove or list.
	Do string `yaml:"do"`

	// ID targets toggle_favorite, update_note and remove.
	ID string `yaml:"id,omitempty"`

	// create
	Image    string  `yaml:"image,omitempty"`
	Place    string  `yaml:"place,omitempty"`
	Lat      float64 `yaml:"lat,omitempty"`
	Lon      float64 `yaml:"lon,omitempty"`
	Favorite bool    `yaml:"favorite,omitempty"`

	// Note is used by create and update_note.
	Note string `yaml:"note,omitempty"`

	// list
	FavoritesOnly bool `yaml:"favorites_only,omitempty"`

	// Expect overrides the default expectation of outcome "ok".
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes what a step should produce.
type Expect struct {
	// Outcome is "ok" (default) or an error name.
	Outcome string `yaml:"outcome,omitempty"`

	// IDs is the exact list result, in order. list only.
	IDs []string `yaml:"ids,omitempty"`
}

// Assertion validates the trace or the final collection.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ID selects the entry (entry).
	ID string `yaml:"id,omitempty"`

	// IDs is the expected persisted order (final_order).
	IDs []string `yaml:"ids,omitempty"`

	// Count is the expected size (final_count) or occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Op is the operation counted by trace_count.
	Op string `yaml:"op,omitempty"`

	// Ops is the expected order for trace_order.
	Ops []string `yaml:"ops,omitempty"`

	// Expect holds wire field values (entry). Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpCreate         = "create"
	OpToggleFavorite = "toggle_favorite"
	OpUpdateNote     = "update_note"
	OpRemove         = "remove"
	OpList           = "list"
)

// Assertion type constants.
const (
	AssertFinalCount = "final_count"
	AssertFinalOrder = "final_order"
	AssertEntry      = "entry"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields (typos) and missing required fields are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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
	switch s.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("backend must be memory or sqlite, got %q", s.Backend)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, seed := range s.Setup {
		if seed.ID == "" {
			return fmt.Errorf("setup[%d]: id is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	switch step.Do {
	case OpCreate, OpList:
	case OpToggleFavorite, OpUpdateNote, OpRemove:
		if step.ID == "" {
			return fmt.Errorf("%s: id is required", step.Do)
		}
	case "":
		return fmt.Errorf("do is required")
	default:
		return fmt.Errorf("unknown operation %q", step.Do)
	}
	if step.Expect != nil && len(step.Expect.IDs) > 0 && step.Do != OpList {
		return fmt.Errorf("%s: expect.ids is only valid for list", step.Do)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalCount:
		if a.Count < 0 {
			return fmt.Errorf("final_count: count must be >= 0")
		}
	case AssertFinalOrder:
		if a.IDs == nil {
			return fmt.Errorf("final_order: ids is required (use [] for empty)")
		}
	case AssertEntry:
		if a.ID == "" {
			return fmt.Errorf("entry: id is required")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("entry: expect is required")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("trace_count: op is required")
		}
	case AssertTraceOrder:
		if len(a.Ops) < 2 {
			return fmt.Errorf("trace_order: ops needs at least 2 entries")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
