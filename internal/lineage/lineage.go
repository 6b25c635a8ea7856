package lineage

import (
	"sort"

	"github.com/flowscope-dev/flowscope/internal/extract"
)

// Provenance records which workflow, task, and query file produced a
// lineage fact.
type Provenance struct {
	Workflow  string
	TaskPath  string
	QueryFile string
}

// Edge is a directed data-flow edge between two tables. Edges are
// deduplicated by endpoint pair; provenance entries from every
// contributing fact are unioned onto the single edge.
type Edge struct {
	Source     string
	Target     string
	Provenance []Provenance
}

// Graph is the set of all table nodes and lineage edges observed across
// the corpus. It is built once and read-only afterwards.
type Graph struct {
	nodes map[string]extract.TableRef
	edges map[[2]string]*Edge
	out   map[string]map[string]struct{}
	in    map[string]map[string]struct{}
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[string]extract.TableRef),
		edges: make(map[[2]string]*Edge),
		out:   make(map[string]map[string]struct{}),
		in:    make(map[string]map[string]struct{}),
	}
}

// intern ensures a node exists for the qualified name. Two occurrences
// of the same name anywhere in the corpus refer to the same node.
func (g *Graph) intern(ref extract.TableRef) {
	if _, ok := g.nodes[ref.Name]; !ok {
		g.nodes[ref.Name] = ref
	}
}

// addEdge merges one edge occurrence into the graph.
func (g *Graph) addEdge(source, target string, prov Provenance) {
	key := [2]string{source, target}
	e, ok := g.edges[key]
	if !ok {
		e = &Edge{Source: source, Target: target}
		g.edges[key] = e
		if g.out[source] == nil {
			g.out[source] = make(map[string]struct{})
		}
		g.out[source][target] = struct{}{}
		if g.in[target] == nil {
			g.in[target] = make(map[string]struct{})
		}
		g.in[target][source] = struct{}{}
	}
	for _, p := range e.Provenance {
		if p == prov {
			return
		}
	}
	e.Provenance = append(e.Provenance, prov)
}

// Node returns the interned table reference for a qualified name.
func (g *Graph) Node(name string) (extract.TableRef, bool) {
	ref, ok := g.nodes[name]
	return ref, ok
}

// Nodes returns all table nodes sorted by qualified name.
func (g *Graph) Nodes() []extract.TableRef {
	out := make([]extract.TableRef, 0, len(g.nodes))
	for _, ref := range g.nodes {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Edges returns all edges sorted by (source, target), each with its
// provenance list sorted, so repeated calls are deterministic.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		prov := make([]Provenance, len(e.Provenance))
		copy(prov, e.Provenance)
		sort.Slice(prov, func(i, j int) bool {
			a, b := prov[i], prov[j]
			if a.Workflow != b.Workflow {
				return a.Workflow < b.Workflow
			}
			if a.TaskPath != b.TaskPath {
				return a.TaskPath < b.TaskPath
			}
			return a.QueryFile < b.QueryFile
		})
		out = append(out, Edge{Source: e.Source, Target: e.Target, Provenance: prov})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// NodeCount returns the number of table nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Upstream returns every table transitively feeding into the given
// table. A table absent from the graph yields an empty set. The queried
// table is excluded unless a longer path leads back to it; a direct
// self-loop alone does not qualify.
func (g *Graph) Upstream(name string) map[string]extract.TableRef {
	return g.reach(name, g.in)
}

// Downstream returns every table transitively fed by the given table,
// with the same self-loop semantics as Upstream.
func (g *Graph) Downstream(name string) map[string]extract.TableRef {
	return g.reach(name, g.out)
}

// reach is a breadth-first traversal over an adjacency map. A visited
// set guarantees termination in the presence of self-loops or cycles;
// cycles are tolerated, never rejected.
func (g *Graph) reach(start string, adj map[string]map[string]struct{}) map[string]extract.TableRef {
	result := make(map[string]extract.TableRef)
	if _, ok := g.nodes[start]; !ok {
		return result
	}

	expanded := make(map[string]struct{})
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, done := expanded[cur]; done {
			continue
		}
		expanded[cur] = struct{}{}

		for next := range adj[cur] {
			if cur == start && next == start {
				// Direct self-loop: legal, but not reachability.
				continue
			}
			if _, seen := result[next]; !seen {
				result[next] = g.nodes[next]
			}
			if _, done := expanded[next]; !done {
				queue = append(queue, next)
			}
		}
	}
	return result
}

// Subgraph returns the induced subgraph restricted to the given node
// names: only named nodes and the edges between them are kept, with
// provenance intact.
func (g *Graph) Subgraph(names map[string]struct{}) *Graph {
	sub := newGraph()
	for name := range names {
		if ref, ok := g.nodes[name]; ok {
			sub.intern(ref)
		}
	}
	for key, e := range g.edges {
		if _, ok := sub.nodes[key[0]]; !ok {
			continue
		}
		if _, ok := sub.nodes[key[1]]; !ok {
			continue
		}
		for _, p := range e.Provenance {
			sub.addEdge(e.Source, e.Target, p)
		}
	}
	return sub
}

// Neighborhood returns the node set for a single-table view: the table
// plus its direct upstream and downstream neighbors.
func (g *Graph) Neighborhood(name string) map[string]struct{} {
	out := make(map[string]struct{})
	if _, ok := g.nodes[name]; !ok {
		return out
	}
	out[name] = struct{}{}
	for n := range g.in[name] {
		out[n] = struct{}{}
	}
	for n := range g.out[name] {
		out[n] = struct{}{}
	}
	return out
}

// Closure returns the node set for a full transitive view of one table:
// the table plus everything upstream and downstream of it.
func (g *Graph) Closure(name string) map[string]struct{} {
	out := make(map[string]struct{})
	if _, ok := g.nodes[name]; !ok {
		return out
	}
	out[name] = struct{}{}
	for n := range g.Upstream(name) {
		out[n] = struct{}{}
	}
	for n := range g.Downstream(name) {
		out[n] = struct{}{}
	}
	return out
}

// Sources returns tables with no incoming edges (external inputs),
// sorted by name.
func (g *Graph) Sources() []string {
	var out []string
	for name := range g.nodes {
		if len(g.in[name]) == 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Sinks returns tables with no outgoing edges (terminal outputs),
// sorted by name.
func (g *Graph) Sinks() []string {
	var out []string
	for name := range g.nodes {
		if len(g.out[name]) == 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
