package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscope-dev/flowscope/internal/extract"
)

func newTestBuilder() *Builder {
	return NewBuilder(extract.NewClassifier(extract.DefaultLayers()))
}

func names(set map[string]extract.TableRef) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

func TestBuilder_MergeIsOrderIndependent(t *testing.T) {
	facts := []Fact{
		{Reads: []string{"src_raw.events"}, Writes: []string{"stg.daily"}, Prov: Provenance{Workflow: "daily"}},
		{Reads: []string{"stg.daily"}, Writes: []string{"gldn.summary"}, Prov: Provenance{Workflow: "rollup"}},
		{Reads: []string{"src_raw.users", "src_raw.events"}, Writes: []string{"stg.daily"}, Prov: Provenance{Workflow: "backfill"}},
	}

	forward := newTestBuilder()
	forward.AddAll(facts)

	backward := newTestBuilder()
	for i := len(facts) - 1; i >= 0; i-- {
		backward.Add(facts[i])
	}

	assert.Equal(t, forward.Graph().Nodes(), backward.Graph().Nodes())
	assert.Equal(t, forward.Graph().Edges(), backward.Graph().Edges())
}

func TestBuilder_NodesMergeAcrossFacts(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"a.one"}, Writes: []string{"src_raw.events"}, Prov: Provenance{Workflow: "wf1"}})
	b.Add(Fact{Reads: []string{"b.two"}, Writes: []string{"src_raw.events"}, Prov: Provenance{Workflow: "wf2"}})
	g := b.Graph()

	// Two facts targeting the same table share one node.
	assert.Equal(t, 3, g.NodeCount())
	up := g.Upstream("src_raw.events")
	assert.ElementsMatch(t, []string{"a.one", "b.two"}, names(up))
}

func TestBuilder_DuplicateEdgeUnionsProvenance(t *testing.T) {
	b := newTestBuilder()
	p1 := Provenance{Workflow: "daily", TaskPath: "daily/load"}
	p2 := Provenance{Workflow: "hourly", TaskPath: "hourly/load"}
	b.Add(Fact{Reads: []string{"src_raw.events"}, Writes: []string{"stg.daily"}, Prov: p1})
	b.Add(Fact{Reads: []string{"src_raw.events"}, Writes: []string{"stg.daily"}, Prov: p2})
	b.Add(Fact{Reads: []string{"src_raw.events"}, Writes: []string{"stg.daily"}, Prov: p1})
	g := b.Graph()

	require.Equal(t, 1, g.EdgeCount())
	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Len(t, edges[0].Provenance, 2)
}

func TestBuilder_ReadsWithoutWriteStayIsolated(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"src_raw.audit"}, Prov: Provenance{Workflow: "check"}})
	g := b.Graph()

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.Upstream("src_raw.audit"))
	assert.Empty(t, g.Downstream("src_raw.audit"))
}

func TestBuilder_ClassifiesNodesByLayer(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"src_raw.events"}, Writes: []string{"gldn.summary"}})
	g := b.Graph()

	src, ok := g.Node("src_raw.events")
	require.True(t, ok)
	assert.Equal(t, "source", src.Layer)

	dst, ok := g.Node("gldn.summary")
	require.True(t, ok)
	assert.Equal(t, "golden", dst.Layer)
}

func TestGraph_TransitiveReachability(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"t.source"}, Writes: []string{"t.mid"}})
	b.Add(Fact{Reads: []string{"t.mid"}, Writes: []string{"t.final"}})
	g := b.Graph()

	assert.ElementsMatch(t, []string{"t.mid", "t.final"}, names(g.Downstream("t.source")))
	assert.ElementsMatch(t, []string{"t.mid", "t.source"}, names(g.Upstream("t.final")))
	assert.ElementsMatch(t, []string{"t.source"}, names(g.Upstream("t.mid")))
}

func TestGraph_UnknownTableYieldsEmptySets(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"t.a"}, Writes: []string{"t.b"}})
	g := b.Graph()

	assert.Empty(t, g.Upstream("t.missing"))
	assert.Empty(t, g.Downstream("t.missing"))
	assert.Empty(t, g.Neighborhood("t.missing"))
	assert.Empty(t, g.Closure("t.missing"))
}

func TestGraph_DirectSelfLoopExcludedFromReachability(t *testing.T) {
	b := newTestBuilder()
	// An incremental query reading its own target.
	b.Add(Fact{Reads: []string{"t.rollup", "t.events"}, Writes: []string{"t.rollup"}})
	g := b.Graph()

	// The self-loop edge exists.
	assert.Equal(t, 2, g.EdgeCount())

	// But t.rollup is not its own upstream or downstream.
	assert.ElementsMatch(t, []string{"t.events"}, names(g.Upstream("t.rollup")))
	assert.Empty(t, g.Downstream("t.rollup"))
}

func TestGraph_CycleThroughLongerPathIncludesStart(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"t.x"}, Writes: []string{"t.a"}})
	b.Add(Fact{Reads: []string{"t.a"}, Writes: []string{"t.x"}})
	g := b.Graph()

	// Traversal terminates and the start is reachable via the cycle.
	down := g.Downstream("t.x")
	assert.ElementsMatch(t, []string{"t.a", "t.x"}, names(down))
}

func TestGraph_Subgraph(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"t.a"}, Writes: []string{"t.b"}, Prov: Provenance{Workflow: "wf"}})
	b.Add(Fact{Reads: []string{"t.b"}, Writes: []string{"t.c"}})
	g := b.Graph()

	sub := g.Subgraph(map[string]struct{}{"t.a": {}, "t.b": {}})
	assert.Equal(t, 2, sub.NodeCount())
	require.Equal(t, 1, sub.EdgeCount())
	edges := sub.Edges()
	assert.Equal(t, "t.a", edges[0].Source)
	assert.Equal(t, "t.b", edges[0].Target)
	assert.Equal(t, []Provenance{{Workflow: "wf"}}, edges[0].Provenance)
}

func TestGraph_NeighborhoodAndClosure(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"t.a"}, Writes: []string{"t.b"}})
	b.Add(Fact{Reads: []string{"t.b"}, Writes: []string{"t.c"}})
	b.Add(Fact{Reads: []string{"t.c"}, Writes: []string{"t.d"}})
	g := b.Graph()

	hood := g.Neighborhood("t.b")
	assert.Len(t, hood, 3)
	assert.Contains(t, hood, "t.a")
	assert.Contains(t, hood, "t.b")
	assert.Contains(t, hood, "t.c")

	closure := g.Closure("t.b")
	assert.Len(t, closure, 4)
}

func TestGraph_SourcesAndSinks(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Reads: []string{"t.a"}, Writes: []string{"t.b"}})
	b.Add(Fact{Reads: []string{"t.b"}, Writes: []string{"t.c"}})
	b.Add(Fact{Reads: []string{"t.x"}, Writes: []string{"t.b"}})
	g := b.Graph()

	assert.Equal(t, []string{"t.a", "t.x"}, g.Sources())
	assert.Equal(t, []string{"t.c"}, g.Sinks())
}

func TestBuilder_EmptyFactIgnored(t *testing.T) {
	b := newTestBuilder()
	b.Add(Fact{Prov: Provenance{Workflow: "noop"}})
	g := b.Graph()
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}
