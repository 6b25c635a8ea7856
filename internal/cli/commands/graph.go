package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowscope-dev/flowscope/internal/render"
	"github.com/flowscope-dev/flowscope/internal/taskgraph"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var (
		direction string
		toStdout  bool
	)
	cmd := &cobra.Command{
		Use:   "graph [workflow...]",
		Short: "Render workflow task dependency graphs as DOT",
		Long: `Render the task dependency graph of one or more workflows as
Graphviz DOT. Without arguments every workflow is rendered.

DOT files are written to the output directory; --stdout prints a single
workflow's graph instead.`,
		Example: `  # Write DOT files for every workflow
  flowscope graph

  # Print one workflow's graph
  flowscope graph daily --stdout

  # Top-to-bottom layout
  flowscope graph --direction TB`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args, direction, toStdout)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "LR", "Graph layout direction (LR|TB)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print DOT to stdout instead of writing files")
	return cmd
}

func runGraph(cmd *cobra.Command, args []string, direction string, toStdout bool) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	defer p.reportDiags()

	docs := p.Result.Documents
	if len(args) > 0 {
		docs = nil
		for _, name := range args {
			doc, ok := p.Result.Document(name)
			if !ok {
				return fmt.Errorf("workflow %q not found in project", name)
			}
			docs = append(docs, doc)
		}
	}

	if toStdout {
		if len(docs) != 1 {
			return fmt.Errorf("--stdout requires exactly one workflow, got %d", len(docs))
		}
		p.Renderer.Printf("%s", render.TaskGraphDOT(taskgraph.Build(docs[0]), direction))
		return nil
	}

	outDir := p.Config.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, doc := range docs {
		dot := render.TaskGraphDOT(taskgraph.Build(doc), direction)
		path := filepath.Join(outDir, doc.Name+".dot")
		if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		p.Renderer.Println("wrote", path)
	}
	return nil
}
