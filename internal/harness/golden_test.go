package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		scenario, err := LoadScenario(f)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGolden_Deterministic(t *testing.T) {
	scenario := mustLoad(t, "pin_change")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(scenario.Name, first), Snapshot(scenario.Name, second))
}

func TestSnapshot_Layout(t *testing.T) {
	out := string(Snapshot("demo", &Result{
		Outcome:    "restart",
		FinalState: "open-mode",
		Trace:      []string{"one", "two"},
	}))

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, []string{
		"# scenario: demo",
		"one",
		"two",
		"# final: open-mode",
		"# outcome: restart",
	}, lines)
}
