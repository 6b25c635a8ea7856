// Package commands implements the flowscope subcommands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowscope-dev/flowscope/internal/cli/output"
	"github.com/flowscope-dev/flowscope/internal/config"
	"github.com/flowscope-dev/flowscope/internal/diag"
	"github.com/flowscope-dev/flowscope/internal/extract"
	"github.com/flowscope-dev/flowscope/internal/loader"
)

// project bundles everything a command needs after loading the corpus.
type project struct {
	Config     *config.Config
	Result     *loader.Result
	Classifier *extract.Classifier
	Diags      *diag.List
	Renderer   *output.Renderer
}

// loadProject loads the configured project and returns the parsed
// corpus. Per-file problems surface as diagnostics on the result, not
// errors.
func loadProject(cmd *cobra.Command) (*project, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	classifier := extract.NewClassifier(cfg.LayerRules())
	diags := &diag.List{}
	l := &loader.Loader{
		Root:       cfg.ProjectRoot,
		Include:    cfg.Include,
		Exclude:    cfg.Exclude,
		QueriesDir: cfg.QueriesDir,
		MaxDepth:   cfg.MaxDepth,
		Classifier: classifier,
		Diags:      diags,
		Logger:     config.GetLogger(ctx),
	}

	res, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &project{
		Config:     cfg,
		Result:     res,
		Classifier: classifier,
		Diags:      diags,
		Renderer:   output.FromContext(ctx),
	}, nil
}

// reportDiags prints accumulated diagnostics to stderr.
func (p *project) reportDiags() {
	items := p.Diags.Items()
	if len(items) == 0 {
		return
	}
	p.Renderer.Errorf("%d diagnostic(s):", len(items))
	for _, d := range items {
		p.Renderer.Errorf("  [%s] %s: %s", d.Kind, d.Source, d.Detail)
	}
}
