package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v\ntrace: %+v", result.Errors, result.Trace)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRunWithGolden_LegacyMerge(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "legacy_merge.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ReportsFailures(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: "wrong expectations are reported, not fatal"
steps:
  - op: log
    site: Right Arm
  - op: log
    site: Left Arm
assertions:
  - type: history_count
    count: 5
  - type: suggest
    zone: Right Arm
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "steps[1] log: unexpected error")
	assert.Contains(t, result.Errors[1], "Assertion failed: history_count")
	assert.Contains(t, result.Errors[1], "Expected: 5")
	assert.Contains(t, result.Errors[2], `Actual: "Left Arm"`)

	require.Len(t, result.Trace, 2)
	assert.True(t, strings.HasPrefix(result.Trace[1].Outcome, "error: "))
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: missing_error
description: "an expected error that never happens fails the step"
steps:
  - op: set_interval
    value: "4"
    expect_error: invalid_interval
assertions:
  - type: profile
    expect: { interval: "4" }
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected invalid_interval, got <nil>")
}

func TestRun_ImportExpectMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: import_counts
description: "import counts are checked"
steps:
  - op: import
    csv: |
      2024-01-01,Right Arm,
    expect: { added: 2 }
assertions:
  - type: history_count
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "import added: expected 2, got 1")
}

func TestRun_BadTimezone(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Timezone: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: a\ndescription: b\nsteps: [{op: log}]\nassertion: []\n",
			want: "field assertion not found",
		},
		{
			name: "missing name",
			yaml: "description: b\nsteps: [{op: log}]\nassertions: [{type: history_count}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: a\nsteps: [{op: log}]\nassertions: [{type: history_count}]\n",
			want: "description is required",
		},
		{
			name: "no steps or seed",
			yaml: "name: a\ndescription: b\nassertions: [{type: history_count}]\n",
			want: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: "name: a\ndescription: b\nsteps: [{op: log}]\n",
			want: "assertions list is required",
		},
		{
			name: "unknown op",
			yaml: "name: a\ndescription: b\nsteps: [{op: inject}]\nassertions: [{type: history_count}]\n",
			want: `steps[0]: unknown op "inject"`,
		},
		{
			name: "bad duration",
			yaml: "name: a\ndescription: b\nsteps: [{op: advance, duration: soon}]\nassertions: [{type: history_count}]\n",
			want: "steps[0]: duration",
		},
		{
			name: "answer with both",
			yaml: "name: a\ndescription: b\nsteps: [{op: resolve, answers: [{choose: Right Arm, skip: true}]}]\nassertions: [{type: history_count}]\n",
			want: "set exactly one of choose or skip",
		},
		{
			name: "bad mode",
			yaml: "name: a\ndescription: b\nsteps: [{op: resolve, answers: [{choose: Right Arm, mode: some}]}]\nassertions: [{type: history_count}]\n",
			want: "mode must be all or one",
		},
		{
			name: "unknown assertion",
			yaml: "name: a\ndescription: b\nsteps: [{op: log}]\nassertions: [{type: trace_order}]\n",
			want: `assertions[0]: unknown type "trace_order"`,
		},
		{
			name: "bad now",
			yaml: "name: a\ndescription: b\nnow: yesterday\nsteps: [{op: log}]\nassertions: [{type: history_count}]\n",
			want: "now:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
