package workflow

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowscope-dev/flowscope/internal/diag"
	"github.com/flowscope-dev/flowscope/internal/extract"
)

// ErrNotMapping reports a workflow document whose top level is not a
// mapping of named task groups.
var ErrNotMapping = errors.New("workflow document is not a mapping of task groups")

// Directive blocks that nest tasks without a "+" key.
var directiveBlocks = []string{"_do", "_else_do", "_error"}

// Options configures parsing.
type Options struct {
	// MaxDepth limits task nesting; 0 means unlimited. Levels beyond the
	// limit are folded into an elided marker task, not an error.
	MaxDepth int
	// Diags receives non-fatal conditions. Optional.
	Diags *diag.List
}

// Parse builds a Document from raw workflow YAML. It fails only when the
// top-level structure is not a mapping; everything below that degrades to
// diagnostics.
func Parse(source string, data []byte, opts Options) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotMapping, source, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", ErrNotMapping, source)
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s", ErrNotMapping, source)
	}

	name := workflowName(source)
	doc := &Document{
		Source: source,
		Name:   name,
		Root: &Task{
			Name: name,
			Path: name,
			Kind: KindGroup,
		},
	}

	p := &parser{opts: opts, doc: doc}

	// Top-level scan: schedule block, root parallel flag, then tasks.
	var topTz string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		val := mapping.Content[i+1]
		switch {
		case key == "schedule" || key == "_schedule":
			doc.Schedule = parseSchedule(val)
		case key == "timezone":
			topTz = val.Value
		case key == "_parallel":
			doc.Root.Parallel = truthy(val)
		}
	}
	if doc.Schedule != nil && doc.Schedule.Timezone == "" {
		doc.Schedule.Timezone = topTz
	}

	p.buildChildren(doc.Root, mapping, 1)
	return doc, nil
}

// parser carries parse state across the work-stack traversal.
type parser struct {
	opts Options
	doc  *Document
}

// frame is one unit of pending traversal work.
type frame struct {
	parent *Task
	key    *yaml.Node
	val    *yaml.Node
	depth  int
}

// buildChildren walks the task keys of a mapping with an explicit work
// stack, so the depth limit is enforceable and deep nesting cannot blow
// the call stack.
func (p *parser) buildChildren(root *Task, mapping *yaml.Node, depth int) {
	stack := p.pushTaskFrames(nil, root, mapping, depth)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		task := p.buildTask(f)
		f.parent.Children = append(f.parent.Children, task)

		if f.val.Kind != yaml.MappingNode {
			continue
		}

		if p.opts.MaxDepth > 0 && f.depth >= p.opts.MaxDepth && hasTaskKeys(f.val) {
			task.Children = append(task.Children, &Task{
				Name: "(elided)",
				Path: task.Path + "/(elided)",
				Kind: KindElided,
			})
			if p.opts.Diags != nil {
				p.opts.Diags.Add(diag.KindDepthTruncated, p.doc.Source,
					"subtree below %s elided at depth %d", task.Path, p.opts.MaxDepth)
			}
			continue
		}

		stack = p.pushTaskFrames(stack, task, f.val, f.depth+1)
	}
}

// pushTaskFrames pushes the task and directive keys of a mapping in
// reverse declaration order, so the stack pops them in order.
func (p *parser) pushTaskFrames(stack []*frame, parent *Task, mapping *yaml.Node, depth int) []*frame {
	type pair struct{ key, val *yaml.Node }
	var pairs []pair
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		val := mapping.Content[i+1]
		if isTaskKey(key.Value) {
			pairs = append(pairs, pair{key, val})
			continue
		}
		// Directive blocks nest tasks without a "+" prefix.
		if isDirectiveKey(key.Value) && val.Kind == yaml.MappingNode {
			pairs = append(pairs, pair{key, val})
		}
	}
	for i := len(pairs) - 1; i >= 0; i-- {
		stack = append(stack, &frame{parent: parent, key: pairs[i].key, val: pairs[i].val, depth: depth})
	}
	return stack
}

// buildTask constructs a Task from one key/value pair, decoding its
// non-task parameters and classifying its operator kind.
func (p *parser) buildTask(f *frame) *Task {
	name := strings.TrimPrefix(f.key.Value, "+")
	task := &Task{
		Name: name,
		Path: f.parent.Path + "/" + name,
	}

	if f.val.Kind != yaml.MappingNode {
		task.Kind = KindUnknown
		return task
	}

	task.Params = decodeParams(f.val)
	task.Parallel = parallelFlag(f.val)
	task.Kind = classify(f.key.Value, task.Params, hasTaskKeys(f.val) || hasDirectiveKeys(f.val))

	if task.Kind == KindQuery {
		p.recordQueryRef(task)
	}
	return task
}

// recordQueryRef captures a query task's file reference and declared
// write target for lineage extraction.
func (p *parser) recordQueryRef(task *Task) {
	ref := QueryRef{
		TaskPath: task.Path,
		Database: task.Param("database"),
	}

	switch v := task.Params["td>"].(type) {
	case string:
		if strings.HasSuffix(v, ".sql") {
			ref.File = v
		} else {
			ref.Inline = v
		}
	case map[string]any:
		if q, ok := v["query"].(string); ok {
			ref.File = q
		} else if q, ok := v["sql"].(string); ok {
			ref.File = q
		}
	}

	// create_table / insert_into are authoritative write targets.
	if t := task.Param("create_table"); t != "" {
		ref.Target = extract.QualifyTarget(t, ref.Database)
	} else if t := task.Param("insert_into"); t != "" {
		ref.Target = extract.QualifyTarget(t, ref.Database)
	}

	if ref.File == "" && ref.Inline == "" {
		return
	}
	p.doc.QueryRefs = append(p.doc.QueryRefs, ref)
}

// classify determines the operator kind of a task.
func classify(key string, params map[string]any, hasChildren bool) Kind {
	if isDirectiveKey(key) {
		return KindGroup
	}
	for _, op := range operatorKeys {
		if _, ok := params[op.key]; ok {
			return op.kind
		}
	}
	if hasChildren {
		return KindGroup
	}
	// Preserved, not dropped, so rendering can flag it.
	return KindUnknown
}

// decodeParams decodes the non-task entries of a task mapping into a raw
// parameter bag. Values that fail to decode are skipped.
func decodeParams(mapping *yaml.Node) map[string]any {
	params := make(map[string]any)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		if isTaskKey(key) || isDirectiveKey(key) {
			continue
		}
		var v any
		if err := mapping.Content[i+1].Decode(&v); err != nil {
			continue
		}
		params[key] = v
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

func parallelFlag(mapping *yaml.Node) bool {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == "_parallel" {
			return truthy(mapping.Content[i+1])
		}
	}
	return false
}

// truthy interprets a _parallel value: a true scalar or a mapping
// (e.g. {limit: 2}) both enable parallel execution.
func truthy(n *yaml.Node) bool {
	if n.Kind == yaml.MappingNode {
		return true
	}
	return n.Value == "true"
}

func hasTaskKeys(mapping *yaml.Node) bool {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if isTaskKey(mapping.Content[i].Value) {
			return true
		}
	}
	return false
}

func hasDirectiveKeys(mapping *yaml.Node) bool {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if isDirectiveKey(mapping.Content[i].Value) && mapping.Content[i+1].Kind == yaml.MappingNode {
			return true
		}
	}
	return false
}

func isTaskKey(k string) bool { return strings.HasPrefix(k, "+") }

func isDirectiveKey(k string) bool {
	for _, d := range directiveBlocks {
		if k == d {
			return true
		}
	}
	return false
}

// workflowName derives the workflow name from the source file stem.
func workflowName(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
