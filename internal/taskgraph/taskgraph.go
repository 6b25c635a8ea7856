// Package taskgraph derives a directed execution graph from one
// workflow's task tree, for single-workflow visualization.
//
// Edges follow tree order only, so the result is acyclic by construction
// and no cycle detection is performed.
package taskgraph

import (
	"github.com/flowscope-dev/flowscope/internal/workflow"
)

// Node is one task in the rendered graph, annotated for detail display.
type Node struct {
	// ID is the task's qualified path.
	ID string
	// Label is the bare task name.
	Label string
	Kind  workflow.Kind
	// Params carries the raw task parameters.
	Params map[string]any
	// Parallel marks a container whose children run concurrently.
	Parallel bool
}

// Edge is a directed execution-order edge between two task IDs.
type Edge struct {
	From string
	To   string
}

// Graph is the dependency graph of one workflow.
type Graph struct {
	Workflow string
	Schedule *workflow.Schedule
	Nodes    []*Node
	Edges    []Edge
}

// builder accumulates nodes and deduplicated edges.
type builder struct {
	g    *Graph
	seen map[Edge]struct{}
}

// Build walks a workflow document and produces its dependency graph.
//
// Consecutive children of a sequential group are chained in declaration
// order. Children of a parallel group all share the group's predecessor
// and successor, with no edges among themselves; the group node itself is
// retained as a structural container. A group's completion points are its
// last descendants, so edges crossing group boundaries attach to leaves.
func Build(doc *workflow.Document) *Graph {
	b := &builder{
		g: &Graph{
			Workflow: doc.Name,
			Schedule: doc.Schedule,
		},
		seen: make(map[Edge]struct{}),
	}

	root := doc.Root
	b.addNode(root)
	b.sequence(root.Children, []string{root.Path}, root.Parallel)
	return b.g
}

// sequence processes an ordered sibling list. prev holds the completion
// points the first sibling connects from. When parallel is set, every
// sibling connects from prev and the union of their completions is
// returned; otherwise each sibling connects from the previous one's
// completions.
func (b *builder) sequence(tasks []*workflow.Task, prev []string, parallel bool) []string {
	if parallel {
		var all []string
		for _, t := range tasks {
			all = append(all, b.task(t, prev)...)
		}
		return all
	}
	cur := prev
	for _, t := range tasks {
		cur = b.task(t, cur)
	}
	return cur
}

// task adds one task node and returns its completion points.
func (b *builder) task(t *workflow.Task, prev []string) []string {
	b.addNode(t)

	if t.Parallel && len(t.Children) > 0 {
		// Structural container: children connect straight from the
		// group's predecessor, not from the group node.
		return b.sequence(t.Children, prev, true)
	}

	for _, p := range prev {
		b.addEdge(p, t.Path)
	}
	if len(t.Children) == 0 {
		return []string{t.Path}
	}
	return b.sequence(t.Children, []string{t.Path}, false)
}

func (b *builder) addNode(t *workflow.Task) {
	b.g.Nodes = append(b.g.Nodes, &Node{
		ID:       t.Path,
		Label:    t.Name,
		Kind:     t.Kind,
		Params:   t.Params,
		Parallel: t.Parallel,
	})
}

func (b *builder) addEdge(from, to string) {
	e := Edge{From: from, To: to}
	if _, dup := b.seen[e]; dup {
		return
	}
	b.seen[e] = struct{}{}
	b.g.Edges = append(b.g.Edges, e)
}

// Node returns the node with the given ID, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// HasEdge reports whether the graph contains the directed edge.
func (g *Graph) HasEdge(from, to string) bool {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}
