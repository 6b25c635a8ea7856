// Package render emits Graphviz DOT sources and the static HTML site
// for workflow task graphs and the table-level lineage graph.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowscope-dev/flowscope/internal/extract"
	"github.com/flowscope-dev/flowscope/internal/taskgraph"
	"github.com/flowscope-dev/flowscope/internal/workflow"
)

// kindStyle is the border styling for one task kind.
type kindStyle struct {
	shape    string
	color    string
	penwidth string
}

var defaultStyle = kindStyle{shape: "box", color: "#4A4A4A", penwidth: "1.0"}

var kindStyles = map[workflow.Kind]kindStyle{
	workflow.KindQuery:    {shape: "box", color: "#4A90E2", penwidth: "1.5"},
	workflow.KindShell:    {shape: "box", color: "#7ED321", penwidth: "1.0"},
	workflow.KindScript:   {shape: "box", color: "#F5A623", penwidth: "1.0"},
	workflow.KindEcho:     {shape: "box", color: "#9B9B9B", penwidth: "1.9"},
	workflow.KindCall:     {shape: "box", color: "#9013FE", penwidth: "3.0"},
	workflow.KindRequire:  {shape: "box", color: "#9013FE", penwidth: "3.0"},
	workflow.KindLoop:     {shape: "box", color: "#50E3C2", penwidth: "1.0"},
	workflow.KindForEach:  {shape: "box", color: "#50E3C2", penwidth: "1.0"},
	workflow.KindForRange: {shape: "box", color: "#50E3C2", penwidth: "1.0"},
	workflow.KindIf:       {shape: "diamond", color: "#BD10E0", penwidth: "1.0"},
	workflow.KindHTTP:     {shape: "box", color: "#417505", penwidth: "1.0"},
	workflow.KindGroup:    {shape: "box", color: "#9013FE", penwidth: "1.0"},
	workflow.KindElided:   {shape: "box", color: "#9B9B9B", penwidth: "1.0"},
	workflow.KindUnknown:  {shape: "box", color: "#D0021B", penwidth: "1.0"},
}

func styleFor(k workflow.Kind) kindStyle {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return defaultStyle
}

// operatorLabels annotate nodes with their operator, matching the
// reserved parameter keys.
var operatorLabels = map[workflow.Kind]string{
	workflow.KindQuery:    "td>",
	workflow.KindShell:    "sh>",
	workflow.KindScript:   "py>",
	workflow.KindEcho:     "echo>",
	workflow.KindCall:     "call>",
	workflow.KindRequire:  "require>",
	workflow.KindLoop:     "loop>",
	workflow.KindForEach:  "for_each>",
	workflow.KindForRange: "for_range>",
	workflow.KindIf:       "if>",
	workflow.KindHTTP:     "http>",
}

// TaskGraphDOT renders one workflow's dependency graph as Graphviz DOT
// source. Direction is a rankdir value; empty defaults to LR.
func TaskGraphDOT(g *taskgraph.Graph, direction string) string {
	if direction == "" {
		direction = "LR"
	}

	title := g.Workflow
	if g.Schedule != nil && g.Schedule.Expression != "" {
		title += fmt.Sprintf("  (schedule: %s)", g.Schedule)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", quote(g.Workflow))
	fmt.Fprintf(&b, "  graph [rankdir=%s, labelloc=t, fontsize=20, label=%s, fontname=\"Helvetica\"];\n",
		direction, quote(title))
	b.WriteString("  node [fontname=\"Helvetica\", fontsize=11];\n")
	b.WriteString("  edge [color=\"red\"];\n")

	for _, n := range g.Nodes {
		style := styleFor(n.Kind)
		label := n.Label
		if op, ok := operatorLabels[n.Kind]; ok {
			label += "\\n[" + op + "]"
		}
		if n.Parallel {
			label += "\\n(parallel)"
		}
		fmt.Fprintf(&b, "  %s [label=%s, shape=%s, style=rounded, color=%s, penwidth=%s];\n",
			quote(n.ID), quoteLabel(label), style.shape, quote(style.color), style.penwidth)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", quote(e.From), quote(e.To))
	}
	b.WriteString("}\n")
	return b.String()
}

// LineageDOT renders a lineage graph as DOT source. Nodes are drawn as
// cylinders filled with their layer color; the focus table, if present,
// is highlighted.
func LineageDOT(nodes []extract.TableRef, edges []Edge, classifier *extract.Classifier, focus string) string {
	var b strings.Builder
	b.WriteString("digraph lineage {\n")
	b.WriteString("  graph [rankdir=LR, fontname=\"Helvetica\"];\n")
	b.WriteString("  node [shape=cylinder, style=filled, fillcolor=\"lightblue\", fontname=\"Helvetica\", fontsize=11];\n")

	sorted := make([]extract.TableRef, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, n := range sorted {
		fill := "lightblue"
		if rule, ok := classifier.Rule(n.Layer); ok && rule.Color != "" {
			fill = rule.Color
		}
		if n.Name == focus {
			fmt.Fprintf(&b, "  %s [fillcolor=\"yellow\", penwidth=3];\n", quote(n.Name))
			continue
		}
		fmt.Fprintf(&b, "  %s [fillcolor=%s];\n", quote(n.Name), quote(fill))
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", quote(e.Source), quote(e.Target))
	}
	b.WriteString("}\n")
	return b.String()
}

// Edge is the endpoint pair LineageDOT draws. Declared here so callers
// can pass any edge source without importing graph internals.
type Edge struct {
	Source string
	Target string
}

// quote wraps a string as a quoted DOT identifier.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// quoteLabel quotes a label, preserving literal \n escapes.
func quoteLabel(s string) string {
	// The label already contains intentional \n escapes; only quotes
	// need escaping.
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
