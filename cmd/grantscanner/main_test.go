package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pulls.json"), []byte(`[
	  {"id": 7, "number": 7, "title": "Bridge grant", "state": "closed", "merged": true,
	   "created_at": "2024-05-01T00:00:00Z", "merged_at": "2024-05-03T00:00:00Z", "user": {"login": "alice"}}
	]`), 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
storage:
  driver: memory
logging:
  level: error
sources:
  - name: fixtures
    scanner: file
    options:
      root: '`+dir+`'
      path: "*.json"
`), 0o600))
	return cfgPath
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "grantscanner version "+version+"\n", out)
}

func TestEvaluateRequiresReference(t *testing.T) {
	_, err := execute(t, "evaluate")
	require.Error(t, err)
}

func TestMetricsCommand(t *testing.T) {
	cfgPath := writeFixture(t)

	out, err := execute(t, "metrics", "--config", cfgPath, "--env-file", "")
	require.NoError(t, err)

	var summary struct {
		Overall struct {
			Total  int            `json:"total"`
			Counts map[string]int `json:"counts"`
		} `json:"overall"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Overall.Total)
	assert.Equal(t, 1, summary.Overall.Counts["APPROVED"])
}

func TestEvaluateCommand(t *testing.T) {
	cfgPath := writeFixture(t)

	out, err := execute(t, "evaluate", "fixtures#7", "--config", cfgPath, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Curator Report for: Bridge grant")

	_, err = execute(t, "evaluate", "fixtures#8", "--config", cfgPath, "--env-file", "")
	require.Error(t, err)
}
