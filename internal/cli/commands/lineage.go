package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowscope-dev/flowscope/internal/cli/output"
	"github.com/flowscope-dev/flowscope/internal/extract"
	"github.com/flowscope-dev/flowscope/internal/lineage"
	"github.com/flowscope-dev/flowscope/internal/render"
)

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	var (
		upstreamOnly   bool
		downstreamOnly bool
		writeDot       bool
	)
	cmd := &cobra.Command{
		Use:   "lineage [table]",
		Short: "Query the cross-workflow data lineage graph",
		Long: `Build the table-level lineage graph across every workflow and query
it.

Without arguments, prints a summary of the graph. With a qualified
table name, prints the table's transitive upstream and downstream
sets. --dot additionally writes a DOT rendering (the full graph, or
the table's closure) to the output directory.`,
		Example: `  # Lineage graph summary
  flowscope lineage

  # Impact analysis for one table
  flowscope lineage stg.daily_activity

  # Only what feeds the table
  flowscope lineage gldn.summary --upstream

  # Write lineage.dot for the whole corpus
  flowscope lineage --dot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if upstreamOnly && downstreamOnly {
				return fmt.Errorf("--upstream and --downstream are mutually exclusive")
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			defer p.reportDiags()

			if len(args) == 0 {
				return lineageSummary(p, writeDot)
			}
			return lineageTable(p, args[0], upstreamOnly, downstreamOnly, writeDot)
		},
	}
	cmd.Flags().BoolVar(&upstreamOnly, "upstream", false, "Show only upstream tables")
	cmd.Flags().BoolVar(&downstreamOnly, "downstream", false, "Show only downstream tables")
	cmd.Flags().BoolVar(&writeDot, "dot", false, "Write a DOT rendering to the output directory")
	return cmd
}

type lineageSummaryOutput struct {
	Tables  int      `json:"tables"`
	Edges   int      `json:"edges"`
	Sources []string `json:"sources"`
	Sinks   []string `json:"sinks"`
}

func lineageSummary(p *project, writeDot bool) error {
	g := p.Result.Lineage
	summary := lineageSummaryOutput{
		Tables:  g.NodeCount(),
		Edges:   g.EdgeCount(),
		Sources: g.Sources(),
		Sinks:   g.Sinks(),
	}

	r := p.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(summary); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Data Lineage"))
		r.Println(output.FormatKeyValue("Tables", fmt.Sprintf("%d", summary.Tables)))
		r.Println(output.FormatKeyValue("Edges", fmt.Sprintf("%d", summary.Edges)))
		r.Println(output.FormatKeyValue("Sources", strings.Join(summary.Sources, ", ")))
		r.Println(output.FormatKeyValue("Sinks", strings.Join(summary.Sinks, ", ")))
	default:
		r.Header(1, "Data Lineage")
		r.KeyValue("Tables", fmt.Sprintf("%d", summary.Tables))
		r.KeyValue("Edges", fmt.Sprintf("%d", summary.Edges))
		r.KeyValue("Sources", strings.Join(summary.Sources, ", "))
		r.KeyValue("Sinks", strings.Join(summary.Sinks, ", "))
	}

	if writeDot {
		dot := render.LineageDOT(g.Nodes(), dotEdges(g.Edges()), p.Classifier, "")
		return writeDotFile(p, "lineage.dot", dot)
	}
	return nil
}

type lineageTableOutput struct {
	Table      string   `json:"table"`
	Layer      string   `json:"layer,omitempty"`
	Upstream   []string `json:"upstream,omitempty"`
	Downstream []string `json:"downstream,omitempty"`
}

func lineageTable(p *project, table string, upstreamOnly, downstreamOnly, writeDot bool) error {
	g := p.Result.Lineage
	ref, ok := g.Node(table)
	if !ok {
		return fmt.Errorf("table %q not found in lineage graph", table)
	}

	out := lineageTableOutput{Table: ref.Name, Layer: ref.Layer}
	if !downstreamOnly {
		out.Upstream = sortedKeys(g.Upstream(table))
	}
	if !upstreamOnly {
		out.Downstream = sortedKeys(g.Downstream(table))
	}

	r := p.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, out.Table))
		if out.Layer != "" {
			r.Println(output.FormatKeyValue("Layer", out.Layer))
		}
		if !downstreamOnly {
			r.Println(output.FormatHeader(2, fmt.Sprintf("Upstream (%d)", len(out.Upstream))))
			for _, n := range out.Upstream {
				r.Println("- " + n)
			}
		}
		if !upstreamOnly {
			r.Println(output.FormatHeader(2, fmt.Sprintf("Downstream (%d)", len(out.Downstream))))
			for _, n := range out.Downstream {
				r.Println("- " + n)
			}
		}
	default:
		r.Header(1, out.Table)
		if out.Layer != "" {
			r.KeyValue("Layer", out.Layer)
		}
		if !downstreamOnly {
			r.Header(2, fmt.Sprintf("Upstream (%d)", len(out.Upstream)))
			for _, n := range out.Upstream {
				r.Println("  " + n)
			}
		}
		if !upstreamOnly {
			r.Header(2, fmt.Sprintf("Downstream (%d)", len(out.Downstream)))
			for _, n := range out.Downstream {
				r.Println("  " + n)
			}
		}
	}

	if writeDot {
		sub := g.Subgraph(g.Closure(table))
		dot := render.LineageDOT(sub.Nodes(), dotEdges(sub.Edges()), p.Classifier, table)
		name := strings.NewReplacer(".", "_", "/", "_").Replace(table) + ".dot"
		return writeDotFile(p, name, dot)
	}
	return nil
}

func writeDotFile(p *project, name, dot string) error {
	if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(p.Config.OutputDir, name)
	if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	p.Renderer.Errorf("wrote %s", path)
	return nil
}

func dotEdges(edges []lineage.Edge) []render.Edge {
	out := make([]render.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, render.Edge{Source: e.Source, Target: e.Target})
	}
	return out
}

func sortedKeys(set map[string]extract.TableRef) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
