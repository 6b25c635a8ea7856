package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project-dir", "", "")
	require.NoError(t, flags.Set("project-dir", dir))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, filepath.Join(dir, DefaultOutputDir), cfg.OutputDir)
	assert.Equal(t, filepath.Join(dir, DefaultQueriesDir), cfg.QueriesDir)
	assert.Equal(t, 0, cfg.MaxDepth)
}

func TestLoad_ConfigFileValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
output: markdown
max_depth: 4
include:
  - workflows/**/*.dig
exclude:
  - workflows/archive/**
layers:
  - name: lake
    label: Lake Tables
    color: "#EEEEEE"
    patterns: [lake_]
`)

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.Output)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, []string{"workflows/**/*.dig"}, cfg.Include)
	assert.Equal(t, []string{"workflows/archive/**"}, cfg.Exclude)
	require.Len(t, cfg.Layers, 1)
	assert.Equal(t, "lake", cfg.Layers[0].Name)
	// Explicit config file anchors the project root.
	assert.Equal(t, dir, cfg.ProjectRoot)
}

func TestLoad_FlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "output: markdown\nmax_depth: 4\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", DefaultOutput, "")
	flags.Int("max-depth", 0, "")
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := Load(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output)
	// Unchanged flag does not override the file value.
	assert.Equal(t, 4, cfg.MaxDepth)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "output: markdown\n")
	t.Setenv("FLOWSCOPE_OUTPUT", "json")

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_InvalidOutputRejected(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "output: xml\n")

	_, err := Load(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestLoad_LayerWithoutPatternsRejected(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
layers:
  - name: lake
`)
	_, err := Load(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one pattern")
}

func TestLayerRules_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{}
	rules := cfg.LayerRules()
	require.NotEmpty(t, rules)
	assert.Equal(t, "source", rules[0].Name)
}

func TestLayerRules_UsesConfiguredLayers(t *testing.T) {
	cfg := &Config{Layers: []LayerConfig{
		{Name: "lake", Label: "Lake", Color: "#EEE", Patterns: []string{"lake_"}},
	}}
	rules := cfg.LayerRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "lake", rules[0].Name)
	assert.Equal(t, []string{"lake_"}, rules[0].Patterns)
}
