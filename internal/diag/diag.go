// Package diag collects non-fatal diagnostics produced while parsing
// workflows and extracting table references. Failures local to one file
// never abort a batch run; they are recorded here and surfaced by the CLI.
package diag

import (
	"fmt"
	"sync"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindParseFailure is a structural parse failure of one workflow document.
	KindParseFailure Kind = "parse-failure"
	// KindExtractionMiss is a query file that yielded no reads/writes or
	// could not be read.
	KindExtractionMiss Kind = "extraction-miss"
	// KindDanglingRef is a call/require that names a workflow not present
	// in the corpus.
	KindDanglingRef Kind = "dangling-ref"
	// KindDepthTruncated marks a subtree folded away by the depth limit.
	KindDepthTruncated Kind = "depth-truncated"
)

// Diagnostic describes one non-fatal condition tied to a source file.
type Diagnostic struct {
	Kind   Kind
	Source string // file or workflow identity
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Source, d.Detail)
}

// List accumulates diagnostics. Safe for concurrent use: per-file
// extraction runs in parallel and each worker may record warnings.
type List struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add records a diagnostic.
func (l *List) Add(kind Kind, source, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, Diagnostic{
		Kind:   kind,
		Source: source,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Items returns a copy of the accumulated diagnostics.
func (l *List) Items() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of accumulated diagnostics.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
