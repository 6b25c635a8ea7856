// Package workflow parses declarative workflow documents into task trees.
//
// A workflow document is a YAML mapping whose task keys start with "+".
// Tasks nest arbitrarily deep; reserved non-task keys carry the schedule,
// exported variables, and control-flow modifiers.
package workflow

// Kind classifies what a task does.
type Kind string

const (
	KindQuery    Kind = "query"
	KindShell    Kind = "shell"
	KindScript   Kind = "script"
	KindEcho     Kind = "echo"
	KindCall     Kind = "call"
	KindRequire  Kind = "require"
	KindLoop     Kind = "loop"
	KindForEach  Kind = "foreach"
	KindForRange Kind = "forrange"
	KindIf       Kind = "conditional"
	KindGroup    Kind = "group"
	KindHTTP     Kind = "http"
	KindUnknown  Kind = "unknown"
	// KindElided marks a subtree folded away by the depth limit.
	KindElided Kind = "elided"
)

// operatorKeys maps reserved operator parameter keys to task kinds,
// checked in order so the first present key decides the kind.
var operatorKeys = []struct {
	key  string
	kind Kind
}{
	{"td>", KindQuery},
	{"sh>", KindShell},
	{"py>", KindScript},
	{"rb>", KindScript},
	{"echo>", KindEcho},
	{"call>", KindCall},
	{"require>", KindRequire},
	{"loop>", KindLoop},
	{"for_each>", KindForEach},
	{"for_range>", KindForRange},
	{"if>", KindIf},
	{"http>", KindHTTP},
	{"http_call>", KindHTTP},
}

// Task is one node in a workflow's nesting hierarchy. Constructed once
// per parse and immutable afterwards; owned by its Document.
type Task struct {
	// Name is the task key without the "+" prefix.
	Name string
	// Path is the qualified path from the workflow root, "/"-joined,
	// unique within the workflow.
	Path string
	// Kind is the operator classification.
	Kind Kind
	// Params holds the raw non-task parameters declared on the task.
	Params map[string]any
	// Children are subtasks in declaration order.
	Children []*Task
	// Parallel is true when this task's direct children execute
	// concurrently rather than sequentially. It does not propagate to
	// grandchildren.
	Parallel bool
}

// Param returns a string-valued parameter, or "" when absent or not a
// scalar string.
func (t *Task) Param(key string) string {
	if t.Params == nil {
		return ""
	}
	if s, ok := t.Params[key].(string); ok {
		return s
	}
	return ""
}

// IsLeaf reports whether the task has no children.
func (t *Task) IsLeaf() bool { return len(t.Children) == 0 }

// Walk visits the task and all descendants depth-first in declaration
// order. Traversal uses an explicit stack so pathological nesting depth
// cannot exhaust the call stack.
func (t *Task) Walk(visit func(*Task)) {
	stack := []*Task{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(cur)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// QueryRef records a query-file reference discovered while walking the
// task tree, together with the out-of-band parameters lineage needs.
type QueryRef struct {
	// TaskPath is the qualified path of the referencing task.
	TaskPath string
	// File is the relative path of the query file, "" for inline queries.
	File string
	// Inline holds the query text when declared inline on the task.
	Inline string
	// Target is the declared write table (create_table / insert_into),
	// already qualified with the task database when one was declared.
	Target string
	// Database is the task-level default database, if any.
	Database string
	// Text is the resolved query text, populated when the corpus is
	// loaded. Empty when the query file could not be read.
	Text string
}

// Document is one parsed workflow.
type Document struct {
	// Source identifies the workflow file.
	Source string
	// Name is the workflow name (file stem).
	Name string
	// Root is a synthetic group task holding the top-level tasks.
	Root *Task
	// Schedule is the optional schedule block.
	Schedule *Schedule
	// QueryRefs lists query-file references in discovery order.
	QueryRefs []QueryRef
}

// CallTargets returns the workflow names referenced by call/require
// tasks, in discovery order.
func (d *Document) CallTargets() []string {
	var targets []string
	d.Root.Walk(func(t *Task) {
		switch t.Kind {
		case KindCall:
			if v := t.Param("call>"); v != "" {
				targets = append(targets, v)
			}
		case KindRequire:
			if v := t.Param("require>"); v != "" {
				targets = append(targets, v)
			}
		}
	})
	return targets
}
