package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscope-dev/flowscope/internal/diag"
	"github.com/flowscope-dev/flowscope/internal/extract"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newLoader(root string) (*Loader, *diag.List) {
	diags := &diag.List{}
	return &Loader{
		Root:       root,
		Classifier: extract.NewClassifier(extract.DefaultLayers()),
		Diags:      diags,
	}, diags
}

func TestLoad_ParsesWorkflowsAndBuildsLineage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "daily.dig", `
+load:
  td>: queries/load.sql
  create_table: stg.users_enriched
  database: staging
`)
	writeFile(t, root, "queries/load.sql", `
SELECT * FROM src_raw.users u JOIN src_raw.events e ON u.id = e.user_id
`)

	l, diags := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	assert.Equal(t, "daily", res.Documents[0].Name)

	g := res.Lineage
	assert.Equal(t, 3, g.NodeCount())
	up := g.Upstream("stg.users_enriched")
	assert.Len(t, up, 2)
	assert.Contains(t, up, "src_raw.users")
	assert.Contains(t, up, "src_raw.events")
	assert.Equal(t, 0, diags.Len())
}

func TestLoad_EmptyProjectIsTerminal(t *testing.T) {
	l, _ := newLoader(t.TempDir())
	_, err := l.Load(context.Background())
	require.ErrorIs(t, err, ErrNoWorkflows)
}

func TestLoad_ParseFailureIsDiagnosticNotFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.dig", "- just\n- a\n- list\n")
	writeFile(t, root, "ok.dig", "+t:\n  echo>: hi\n")

	l, diags := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	assert.Equal(t, "ok", res.Documents[0].Name)

	items := diags.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.KindParseFailure, items[0].Kind)
}

func TestLoad_MissingQueryFileIsDiagnostic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wf.dig", `
+load:
  td>: queries/nope.sql
`)

	l, diags := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Lineage.NodeCount())
	items := diags.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.KindExtractionMiss, items[0].Kind)
}

func TestLoad_QueryWithNoSignalIsDiagnostic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wf.dig", `
+load:
  td>: queries/none.sql
`)
	writeFile(t, root, "queries/none.sql", "SELECT 1")

	l, diags := newLoader(root)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	items := diags.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.KindExtractionMiss, items[0].Kind)
	assert.Contains(t, items[0].Detail, "wf/load")
}

func TestLoad_QueriesDirFallback(t *testing.T) {
	root := t.TempDir()
	queries := t.TempDir()
	writeFile(t, root, "wf.dig", `
+load:
  td>: load.sql
  insert_into: stg.out
`)
	writeFile(t, queries, "load.sql", "SELECT * FROM src_raw.users")

	l, diags := newLoader(root)
	l.QueriesDir = queries
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, diags.Len())
	assert.Equal(t, 2, res.Lineage.NodeCount())
	assert.Contains(t, res.Lineage.Downstream("src_raw.users"), "stg.out")
}

func TestLoad_InlineQuery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wf.dig", `
+agg:
  td>: "INSERT INTO gldn.summary SELECT * FROM stg.daily"
`)

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Contains(t, res.Lineage.Downstream("stg.daily"), "gldn.summary")
}

func TestLoad_DatabaseQualifiesBareNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wf.dig", `
+load:
  td>: load.sql
  database: warehouse
  create_table: summary
`)
	// The task database qualifies the bare target and the bare read.
	writeFile(t, root, "load.sql", "SELECT * FROM activity JOIN src_raw.users ON true")

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	g := res.Lineage
	up := g.Upstream("warehouse.summary")
	assert.Len(t, up, 2)
	assert.Contains(t, up, "warehouse.activity")
	assert.Contains(t, up, "src_raw.users")
}

func TestLoad_BareReadsWithoutDatabaseSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wf.dig", `
+load:
  td>: load.sql
  create_table: stg.summary
`)
	writeFile(t, root, "load.sql", "SELECT * FROM activity JOIN src_raw.users ON true")

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	up := res.Lineage.Upstream("stg.summary")
	assert.Len(t, up, 1)
	assert.Contains(t, up, "src_raw.users")
}

func TestLoad_ResolvedQueryTextRetained(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "wf.dig", `
+load:
  td>: queries/load.sql
  create_table: stg.out
`)
	writeFile(t, root, "queries/load.sql", "SELECT * FROM src_raw.users")

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Documents[0].QueryRefs, 1)
	assert.Equal(t, "SELECT * FROM src_raw.users", res.Documents[0].QueryRefs[0].Text)
}

func TestLoad_CrossWorkflowMerge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ingest.dig", `
+load:
  td>: "INSERT INTO stg.daily SELECT * FROM src_raw.events"
`)
	writeFile(t, root, "rollup.dig", `
+agg:
  td>: "INSERT INTO gldn.summary SELECT * FROM stg.daily"
`)

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	down := res.Lineage.Downstream("src_raw.events")
	assert.Len(t, down, 2)
	assert.Contains(t, down, "stg.daily")
	assert.Contains(t, down, "gldn.summary")
}

func TestLoad_DanglingCallIsDiagnostic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.dig", `
+sub:
  call>: helper
+other:
  require>: missing
`)
	writeFile(t, root, "helper.dig", "+t:\n  echo>: hi\n")

	l, diags := newLoader(root)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	items := diags.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.KindDanglingRef, items[0].Kind)
	assert.Contains(t, items[0].Detail, "missing")
}

func TestLoad_IncludeExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.dig", "+t:\n  echo>: hi\n")
	writeFile(t, root, "skip.dig", "+t:\n  echo>: hi\n")

	l, _ := newLoader(root)
	l.Exclude = []string{"skip.dig"}
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	assert.Equal(t, "keep", res.Documents[0].Name)
}

func TestLoad_HiddenDirectoriesSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".archive/old.dig", "+t:\n  echo>: hi\n")
	writeFile(t, root, "wf.dig", "+t:\n  echo>: hi\n")

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "wf", res.Documents[0].Name)
}

func TestLoad_DocumentLookup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.dig", "+t:\n  echo>: hi\n")
	writeFile(t, root, "b.dig", "+t:\n  echo>: hi\n")

	l, _ := newLoader(root)
	res, err := l.Load(context.Background())
	require.NoError(t, err)

	doc, ok := res.Document("b")
	require.True(t, ok)
	assert.Equal(t, "b", doc.Name)
	_, ok = res.Document("c")
	assert.False(t, ok)
}
