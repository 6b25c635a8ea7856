// Package lineage builds and queries the cross-workflow, table-level
// data lineage graph.
//
// Nodes are qualified table names interned once per corpus; edges denote
// "data flows from source table into target table" and carry the
// provenance of every fact that produced them. Construction is
// commutative and associative: facts may be merged in any order, or
// concurrently, and yield an identical graph. The graph is read-only
// once built.
//
// # Basic Usage
//
//	b := lineage.NewBuilder(extract.NewClassifier(extract.DefaultLayers()))
//	b.Add(lineage.Fact{
//	    Reads:  []string{"src_raw.users"},
//	    Writes: []string{"staging.users_enriched"},
//	    Prov:   lineage.Provenance{Workflow: "daily", TaskPath: "daily/load"},
//	})
//	g := b.Graph()
//
//	for name := range g.Downstream("src_raw.users") {
//	    fmt.Println(name)
//	}
package lineage
