// Package loader scans a project for workflow files and assembles the
// parsed corpus: every workflow document plus the merged cross-workflow
// lineage graph.
//
// Failures local to one file degrade to diagnostics and never abort a
// batch run. The only terminal condition is an empty corpus.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/flowscope-dev/flowscope/internal/diag"
	"github.com/flowscope-dev/flowscope/internal/extract"
	"github.com/flowscope-dev/flowscope/internal/lineage"
	"github.com/flowscope-dev/flowscope/internal/workflow"
)

// ErrNoWorkflows reports a project root containing no workflow files.
var ErrNoWorkflows = errors.New("no workflow files found")

// Loader scans and parses one project.
type Loader struct {
	// Root is the project directory scanned for *.dig files.
	Root string
	// Include restricts the scan to files matching any pattern,
	// evaluated against the root-relative slash path. Empty means all.
	Include []string
	// Exclude removes files matched by Include.
	Exclude []string
	// QueriesDir is the fallback directory for query files referenced by
	// relative path; the workflow file's own directory is tried first.
	QueriesDir string
	// MaxDepth bounds task nesting; 0 means unlimited.
	MaxDepth int
	// Classifier assigns layers to lineage nodes. Required.
	Classifier *extract.Classifier
	// Diags receives non-fatal conditions. Required.
	Diags *diag.List
	// Logger is optional; nil discards.
	Logger *slog.Logger
}

// Result is the loaded corpus.
type Result struct {
	// Documents holds every successfully parsed workflow, sorted by
	// source path.
	Documents []*workflow.Document
	// Lineage is the merged table-level lineage graph.
	Lineage *lineage.Graph
}

// Document returns the workflow with the given name, if present.
func (r *Result) Document(name string) (*workflow.Document, bool) {
	for _, d := range r.Documents {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Load scans the root, parses every workflow file, extracts lineage
// facts from their queries in parallel, and merges the facts into one
// graph. Per-file failures become diagnostics; Load fails only when the
// scan itself fails or no workflow files exist.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	log := l.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	files, err := l.scan()
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", l.Root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoWorkflows, l.Root)
	}
	log.Debug("scanned project", "root", l.Root, "files", len(files))

	res := &Result{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			l.Diags.Add(diag.KindParseFailure, path, "reading workflow: %v", err)
			continue
		}
		doc, err := workflow.Parse(path, data, workflow.Options{
			MaxDepth: l.MaxDepth,
			Diags:    l.Diags,
		})
		if err != nil {
			l.Diags.Add(diag.KindParseFailure, path, "%v", err)
			continue
		}
		res.Documents = append(res.Documents, doc)
	}

	builder := lineage.NewBuilder(l.Classifier)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, doc := range res.Documents {
		doc := doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.extractDocument(doc, builder)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Lineage = builder.Graph()

	l.checkCallTargets(res.Documents)

	log.Info("loaded corpus",
		"workflows", len(res.Documents),
		"tables", res.Lineage.NodeCount(),
		"edges", res.Lineage.EdgeCount(),
		"diagnostics", l.Diags.Len())
	return res, nil
}

// extractDocument turns one workflow's query references into lineage
// facts. A query that cannot be read, or that yields no table signal,
// becomes a diagnostic.
func (l *Loader) extractDocument(doc *workflow.Document, builder *lineage.Builder) {
	for i := range doc.QueryRefs {
		ref := &doc.QueryRefs[i]
		text := ref.Inline
		if text == "" {
			loaded, err := l.readQuery(doc.Source, ref.File)
			if err != nil {
				l.Diags.Add(diag.KindExtractionMiss, doc.Source,
					"query file %s: %v", ref.File, err)
				continue
			}
			text = loaded
		}
		ref.Text = text

		result := extract.Tables(text, ref.Target, ref.Database)
		if result.Empty() {
			l.Diags.Add(diag.KindExtractionMiss, doc.Source,
				"no table references found for task %s", ref.TaskPath)
			continue
		}

		builder.Add(lineage.Fact{
			Reads:  result.Reads,
			Writes: result.Writes,
			Prov: lineage.Provenance{
				Workflow:  doc.Name,
				TaskPath:  ref.TaskPath,
				QueryFile: ref.File,
			},
		})
	}
}

// readQuery resolves a relative query path against the workflow file's
// directory first, then the configured queries directory.
func (l *Loader) readQuery(source, file string) (string, error) {
	candidates := []string{filepath.Join(filepath.Dir(source), file)}
	if l.QueriesDir != "" {
		candidates = append(candidates, filepath.Join(l.QueriesDir, file))
	}
	var firstErr error
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

// checkCallTargets records a diagnostic for every call/require naming a
// workflow absent from the corpus.
func (l *Loader) checkCallTargets(docs []*workflow.Document) {
	known := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		known[d.Name] = struct{}{}
	}
	for _, d := range docs {
		for _, target := range d.CallTargets() {
			name := filepath.Base(target)
			if _, ok := known[name]; !ok {
				l.Diags.Add(diag.KindDanglingRef, d.Source,
					"call/require target %q not found in project", target)
			}
		}
	}
}

// scan walks the root collecting workflow files, sorted for
// deterministic processing order.
func (l *Loader) scan() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories, but not a hidden project root.
			if path != l.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".dig" {
			return nil
		}
		rel, err := filepath.Rel(l.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !l.selected(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// selected applies include/exclude patterns to a root-relative path.
// Patterns match the full relative path or the base name.
func (l *Loader) selected(rel string) bool {
	if len(l.Include) > 0 && !matchAny(l.Include, rel) {
		return false
	}
	return !matchAny(l.Exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	base := filepath.Base(rel)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
