// Package config loads FlowScope project configuration from the config
// file, environment variables, and CLI flags. It is decoupled from CLI
// concerns so the site generator and other tools can load project
// configuration directly.
package config

import (
	"fmt"

	"github.com/flowscope-dev/flowscope/internal/extract"
)

// Config is the merged project configuration.
type Config struct {
	// ProjectRoot is the directory scanned for workflow definitions.
	// Not set from the config file; inferred at load time.
	ProjectRoot string `koanf:"-"`

	// Include holds glob patterns (relative to ProjectRoot) selecting
	// workflow files. Empty means every *.dig file under the root.
	Include []string `koanf:"include"`

	// Exclude holds glob patterns removing files matched by Include.
	Exclude []string `koanf:"exclude"`

	// QueriesDir is the directory query files are resolved against when
	// a task references one by relative path.
	QueriesDir string `koanf:"queries_dir"`

	// MaxDepth bounds task-tree nesting; subtrees deeper than this are
	// folded into a single elided node. Zero means unlimited.
	MaxDepth int `koanf:"max_depth"`

	// OutputDir receives generated DOT files and the HTML site.
	OutputDir string `koanf:"output_dir"`

	// Output selects the CLI rendering mode: text, markdown, or json.
	Output string `koanf:"output"`

	// Layers configures table-layer classification rules, evaluated in
	// order with first match winning.
	Layers []LayerConfig `koanf:"layers"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// LayerConfig is one layer classification rule as written in the config
// file.
type LayerConfig struct {
	Name     string   `koanf:"name"`
	Label    string   `koanf:"label"`
	Color    string   `koanf:"color"`
	Patterns []string `koanf:"patterns"`
}

// LayerRules converts the configured layers into classifier rules,
// falling back to the built-in tiers when none are configured.
func (c *Config) LayerRules() []extract.LayerRule {
	if len(c.Layers) == 0 {
		return extract.DefaultLayers()
	}
	rules := make([]extract.LayerRule, 0, len(c.Layers))
	for _, l := range c.Layers {
		rules = append(rules, extract.LayerRule{
			Name:     l.Name,
			Label:    l.Label,
			Color:    l.Color,
			Patterns: l.Patterns,
		})
	}
	return rules
}

// Validate checks the configuration for values no command could act on.
func (c *Config) Validate() error {
	switch c.Output {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q, must be one of: auto, text, markdown, json", c.Output)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	for i, l := range c.Layers {
		if l.Name == "" {
			return fmt.Errorf("layers[%d]: name is required", i)
		}
		if len(l.Patterns) == 0 {
			return fmt.Errorf("layer %q: at least one pattern is required", l.Name)
		}
	}
	return nil
}
