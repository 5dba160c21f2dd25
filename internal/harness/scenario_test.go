package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "weekend_in_paris.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "weekend_in_paris", scenario.Name)
	require.Len(t, scenario.Setup, 1)
	assert.Equal(t, "legacy-1", scenario.Setup[0].ID)
	assert.Equal(t, int64(1699990000000), scenario.Setup[0].Timestamp)
	assert.Nil(t, scenario.Setup[0].Note)
	require.Len(t, scenario.Flow, 7)
	assert.Equal(t, OpCreate, scenario.Flow[0].Do)
	assert.Equal(t, "Louvre, Paris", scenario.Flow[0].Place)
	assert.InDelta(t, 48.85837, scenario.Flow[1].Lat, 1e-9)
	assert.Equal(t, "not_found", scenario.Flow[5].Expect.Outcome)
	assert.Equal(t, []string{"e-2", "e-1"}, scenario.Flow[6].Expect.IDs)
	assert.Len(t, scenario.Assertions, 5)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "assertion instead of assertions"
flow:
  - do: list
assertion:
  - type: final_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
flow: [{do: list}]
assertions: [{type: final_count}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
flow: [{do: list}]
assertions: [{type: final_count}]
`,
			wantErr: "description is required",
		},
		{
			name: "unknown backend",
			content: `
name: x
description: "x"
backend: postgres
flow: [{do: list}]
assertions: [{type: final_count}]
`,
			wantErr: "backend must be memory or sqlite",
		},
		{
			name: "empty flow",
			content: `
name: x
description: "x"
flow: []
assertions: [{type: final_count}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "no assertions",
			content: `
name: x
description: "x"
flow: [{do: list}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "seed without id",
			content: `
name: x
description: "x"
setup: [{image: i, address: a}]
flow: [{do: list}]
assertions: [{type: final_count}]
`,
			wantErr: "setup[0]: id is required",
		},
		{
			name: "unknown op",
			content: `
name: x
description: "x"
flow: [{do: share}]
assertions: [{type: final_count}]
`,
			wantErr: `flow[0]: unknown operation "share"`,
		},
		{
			name: "toggle without id",
			content: `
name: x
description: "x"
flow: [{do: toggle_favorite}]
assertions: [{type: final_count}]
`,
			wantErr: "toggle_favorite: id is required",
		},
		{
			name: "ids on non-list step",
			content: `
name: x
description: "x"
flow: [{do: remove, id: a, expect: {ids: [a]}}]
assertions: [{type: final_count}]
`,
			wantErr: "expect.ids is only valid for list",
		},
		{
			name: "entry assertion without expect",
			content: `
name: x
description: "x"
flow: [{do: list}]
assertions: [{type: entry, id: a}]
`,
			wantErr: "entry: expect is required",
		},
		{
			name: "trace_order with one op",
			content: `
name: x
description: "x"
flow: [{do: list}]
assertions: [{type: trace_order, ops: [list]}]
`,
			wantErr: "ops needs at least 2 entries",
		},
		{
			name: "final_order without ids",
			content: `
name: x
description: "x"
flow: [{do: list}]
assertions: [{type: final_order}]
`,
			wantErr: "final_order: ids is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_EmptyFinalOrderIsAllowed(t *testing.T) {
	path := writeScenario(t, `
name: x
description: "x"
flow: [{do: list}]
assertions: [{type: final_order, ids: []}]
`)
	_, err := LoadScenario(path)
	assert.NoError(t, err)
}
