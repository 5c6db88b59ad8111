package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"plan", "failures", "batches", "init", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
	for _, flag := range []string{"config", "state", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_PlanEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := run(t, "init")
	require.NoError(t, err)

	state := filepath.Join(dir, "state.db")
	out, err := run(t, "plan", "batch.example.yaml", "--yes", "--state", state, "-o", "json", "--thermocycler", "TC5")
	require.NoError(t, err)

	var result struct {
		BatchID string `json:"batch_id"`
		Plans   []struct {
			Thermocycler string `json:"thermocycler"`
		} `json:"plans"`
		Failures []struct {
			RequestID string `json:"request_id"`
			Kind      string `json:"kind"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.Plans)
	for _, p := range result.Plans {
		assert.Equal(t, "TC5", p.Thermocycler)
	}
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "no_primer", result.Failures[0].Kind)

	_, err = os.Stat(state)
	require.NoError(t, err)

	out, err = run(t, "failures", "--state", state, "-o", "json", "--batch", result.BatchID)
	require.NoError(t, err)
	assert.Contains(t, out, "pcr-004")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "plan", "batch.yaml", "--max-bins", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batching.max_bins")
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "pcrbatch")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}
