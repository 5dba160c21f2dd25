package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/travelog/internal/entry"
)

// Snapshot is the golden-file form of a run.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	Trace    []TraceEvent  `json:"trace"`
	Final    []entry.Entry `json:"final"`
}

// MarshalSnapshot renders a run as indented JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	final := result.Final
	if final == nil {
		final = []entry.Entry{}
	}
	return json.MarshalIndent(Snapshot{
		Scenario: name,
		Trace:    result.Trace,
		Final:    final,
	}, "", "  ")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
