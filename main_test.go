package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"sprint-metrics/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		readinessFile = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSampleConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.sample.json")

	out, err := execute(t, "sample-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Sample configuration file created")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "api", gjson.GetBytes(data, "source").String())
}

func TestReadinessCommand_File(t *testing.T) {
	dir := t.TempDir()
	stories := filepath.Join(dir, "stories.json")
	require.NoError(t, os.WriteFile(stories, []byte(`[{"id":"1","status":"To Do","priority":"Critical"}]`), 0644))

	out, err := execute(t, "--config", filepath.Join(dir, "missing.json"), "readiness", "Next", "--file", stories)
	require.NoError(t, err)
	assert.Contains(t, out, "SPRINT READINESS: Next")
	assert.Contains(t, out, "Status: At Risk | Score: 60/100")
}

func TestReadinessCommand_RequiresSprint(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "readiness")
	assert.Error(t, err)
}

func TestRefreshCommand_CacheOnlyReportsSkip(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.json")
	body := `{"fallback_policy":"cache-only","cache_path":"` + filepath.ToSlash(filepath.Join(dir, "cache.db")) + `"}`
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0644))

	out, err := execute(t, "--config", cfg, "refresh")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNothingToRefresh)
	assert.NotContains(t, out, "Cache refreshed")
}
