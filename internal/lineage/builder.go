package lineage

import (
	"sync"

	"github.com/flowscope-dev/flowscope/internal/extract"
)

// Fact is the lineage signal extracted from one query: the tables it
// reads, the tables it writes, and where the signal came from.
type Fact struct {
	Reads  []string
	Writes []string
	Prov   Provenance
}

// Empty reports whether the fact carries no signal.
func (f Fact) Empty() bool { return len(f.Reads) == 0 && len(f.Writes) == 0 }

// Builder accumulates facts into a Graph. Node interning and edge
// accumulation are keyed purely by qualified name and endpoint pair, so
// facts added in any order, including concurrently from independent
// extraction workers, produce an identical graph.
type Builder struct {
	mu         sync.Mutex
	g          *Graph
	classifier *extract.Classifier
}

// NewBuilder creates a builder using the given layer classifier. A nil
// classifier leaves every node's layer empty.
func NewBuilder(c *extract.Classifier) *Builder {
	if c == nil {
		c = extract.NewClassifier(nil)
	}
	return &Builder{g: newGraph(), classifier: c}
}

// Add merges one fact into the graph under construction.
//
// Every read and write table is interned as a node. Each write receives
// one edge from each read, carrying the fact's provenance. Reads without
// a write still intern nodes but produce no edges; they stay isolated
// unless another fact connects them.
func (b *Builder) Add(f Fact) {
	if f.Empty() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range f.Reads {
		b.g.intern(b.classifier.Ref(r))
	}
	for _, w := range f.Writes {
		b.g.intern(b.classifier.Ref(w))
		for _, r := range f.Reads {
			b.g.addEdge(r, w, f.Prov)
		}
	}
}

// AddAll merges a batch of facts.
func (b *Builder) AddAll(facts []Fact) {
	for _, f := range facts {
		b.Add(f)
	}
}

// Graph returns the built graph. The graph must be treated as read-only;
// no component mutates it after the builder returns it.
func (b *Builder) Graph() *Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.g
}
