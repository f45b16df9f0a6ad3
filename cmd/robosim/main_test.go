package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/engine"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunPrintsOneLinePerEpisode(t *testing.T) {
	out, err := execute(t, "run", "--log-level", "silent", "--episodes", "3", "--ticks", "30", "--workers", "2")
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, rows, 4)
	assert.True(t, strings.HasPrefix(rows[0], "EPISODE"))
	// episodes of the same scene end in the same state
	hash := strings.Fields(rows[1])[5]
	for _, row := range rows[2:] {
		assert.Equal(t, hash, strings.Fields(row)[5])
	}
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", "--log-level", "silent", "--ticks", "12", "--json")
	require.NoError(t, err)
	var results []resultLine
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, uint64(12), results[0].Ticks)
	assert.InDelta(t, 0.2, results[0].T, 1e-9)
	assert.Equal(t, 5, results[0].Bodies)
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := execute(t, "run", "--log-level", "loud")
	assert.Error(t, err)
	_, err = execute(t, "run", "--log-level", "silent", "--episodes", "0")
	assert.Error(t, err)
	_, err = execute(t, "run", "--log-level", "silent", "--grid", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigRoundTrips(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)
	cfg, err := engine.LoadYAML(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("rows: [\"ss\"]\ncontrollers: {s: {kind: sine, amplitude: 1, frequency: 1}}\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("rows: [\"sx\"]\ncontrollers: {s: {kind: idle}}\n"), 0o600))

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	_, err = execute(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
