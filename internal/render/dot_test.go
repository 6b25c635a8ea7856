package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscope-dev/flowscope/internal/extract"
	"github.com/flowscope-dev/flowscope/internal/taskgraph"
	"github.com/flowscope-dev/flowscope/internal/workflow"
)

func buildGraph(t *testing.T, src string) *taskgraph.Graph {
	t.Helper()
	doc, err := workflow.Parse("daily.dig", []byte(src), workflow.Options{})
	require.NoError(t, err)
	return taskgraph.Build(doc)
}

func TestTaskGraphDOT_NodesAndEdges(t *testing.T) {
	g := buildGraph(t, `
+load:
  td>: queries/load.sql
+notify:
  echo>: done
`)
	dot := TaskGraphDOT(g, "")

	assert.Contains(t, dot, `digraph "daily"`)
	assert.Contains(t, dot, "rankdir=LR")
	assert.Contains(t, dot, `"daily/load" [label="load\n[td>]"`)
	assert.Contains(t, dot, `color="#4A90E2"`)
	assert.Contains(t, dot, `"daily/load" -> "daily/notify";`)
	assert.Contains(t, dot, `"daily" -> "daily/load";`)
}

func TestTaskGraphDOT_ScheduleInTitle(t *testing.T) {
	g := buildGraph(t, `
schedule:
  daily>: "02:00:00"
+t:
  echo>: hi
`)
	dot := TaskGraphDOT(g, "TB")
	assert.Contains(t, dot, "rankdir=TB")
	assert.Contains(t, dot, "schedule:")
	assert.Contains(t, dot, "02:00:00")
}

func TestTaskGraphDOT_ParallelContainerMarked(t *testing.T) {
	g := buildGraph(t, `
+par:
  _parallel: true
  +a:
    echo>: one
  +b:
    echo>: two
`)
	dot := TaskGraphDOT(g, "")
	assert.Contains(t, dot, `(parallel)`)
	// The container is bypassed by edges.
	assert.NotContains(t, dot, `-> "daily/par";`)
}

func TestLineageDOT_LayerColorsAndFocus(t *testing.T) {
	c := extract.NewClassifier(extract.DefaultLayers())
	nodes := []extract.TableRef{
		c.Ref("src_raw.events"),
		c.Ref("stg.daily"),
		c.Ref("other.thing"),
	}
	edges := []Edge{
		{Source: "src_raw.events", Target: "stg.daily"},
	}
	dot := LineageDOT(nodes, edges, c, "stg.daily")

	assert.Contains(t, dot, "shape=cylinder")
	assert.Contains(t, dot, `"src_raw.events" [fillcolor="#FFE6CC"];`)
	assert.Contains(t, dot, `"stg.daily" [fillcolor="yellow", penwidth=3];`)
	// Unclassified tables keep the default fill.
	assert.Contains(t, dot, `"other.thing" [fillcolor="lightblue"];`)
	assert.Contains(t, dot, `"src_raw.events" -> "stg.daily";`)
}

func TestLineageDOT_DeterministicOrder(t *testing.T) {
	c := extract.NewClassifier(nil)
	nodes := []extract.TableRef{{Name: "b.t"}, {Name: "a.t"}}
	dot := LineageDOT(nodes, nil, c, "")
	assert.Less(t, strings.Index(dot, `"a.t"`), strings.Index(dot, `"b.t"`))
}

func TestQuote_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"a\"b"`, quote(`a"b`))
}
