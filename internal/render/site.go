package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/flowscope-dev/flowscope/internal/diag"
	"github.com/flowscope-dev/flowscope/internal/extract"
	"github.com/flowscope-dev/flowscope/internal/lineage"
	"github.com/flowscope-dev/flowscope/internal/taskgraph"
	"github.com/flowscope-dev/flowscope/internal/workflow"
)

// vizScriptURL is the client-side Graphviz renderer used to turn the
// embedded DOT sources into SVG in the browser.
const vizScriptURL = "https://cdn.jsdelivr.net/npm/@viz-js/viz@3.11.0/lib/viz-standalone.js"

// Site generates the static HTML site for a loaded project.
type Site struct {
	Documents  []*workflow.Document
	Lineage    *lineage.Graph
	Classifier *extract.Classifier
	Diags      *diag.List
	// Direction is the rankdir for task graphs.
	Direction string
}

// Write renders every page under outDir. Existing files are overwritten.
func (s *Site) Write(outDir string) error {
	for _, dir := range []string{outDir, filepath.Join(outDir, "workflows"), filepath.Join(outDir, "queries"), filepath.Join(outDir, "lineage"), filepath.Join(outDir, "lineage", "tables")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating site directory: %w", err)
		}
	}

	if err := s.writePage(filepath.Join(outDir, "index.html"), s.indexPage()); err != nil {
		return err
	}

	for _, doc := range s.Documents {
		g := taskgraph.Build(doc)
		page := s.workflowPage(doc, TaskGraphDOT(g, s.Direction))
		if err := s.writePage(filepath.Join(outDir, "workflows", doc.Name+".html"), page); err != nil {
			return err
		}
		for _, ref := range doc.QueryRefs {
			if ref.Text == "" {
				continue
			}
			path := filepath.Join(outDir, "queries", querySlug(ref)+".html")
			if err := s.writePage(path, s.queryPage(doc, ref)); err != nil {
				return err
			}
		}
	}

	if err := s.writePage(filepath.Join(outDir, "lineage", "index.html"), s.lineageIndexPage()); err != nil {
		return err
	}

	for _, ref := range s.Lineage.Nodes() {
		page := s.tablePage(ref)
		if err := s.writePage(filepath.Join(outDir, "lineage", "tables", tableSlug(ref.Name)+".html"), page); err != nil {
			return err
		}
	}
	return nil
}

func (s *Site) writePage(path string, page Node) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return nil
}

// layout is the shared page chrome. depth is the directory depth of the
// page relative to the site root, for relative navigation links.
func (s *Site) layout(title string, depth int, body ...Node) Node {
	prefix := strings.Repeat("../", depth)
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | FlowScope")),
			StyleEl(Raw(siteCSS)),
			Script(Src(vizScriptURL)),
		),
		Body(
			Header(Class("topbar"),
				A(Href(prefix+"index.html"), Class("brand"), Text("FlowScope")),
				Nav(
					A(Href(prefix+"index.html"), Text("Workflows")),
					A(Href(prefix+"lineage/index.html"), Text("Lineage")),
				),
			),
			Main(
				H1(Text(title)),
				Group(body),
			),
			Script(Raw(renderDOTScript)),
		),
	)
}

// graphBlock embeds a DOT source for client-side rendering.
func graphBlock(dot string) Node {
	return Div(Class("graph"),
		Script(Type("text/vnd.graphviz"), Raw(dot)),
	)
}

func (s *Site) indexPage() Node {
	rows := make([]Node, 0, len(s.Documents))
	for _, doc := range s.Documents {
		schedule := ""
		if doc.Schedule != nil {
			schedule = doc.Schedule.String()
		}
		taskCount := 0
		doc.Root.Walk(func(*workflow.Task) { taskCount++ })
		rows = append(rows, Tr(
			Td(A(Href("workflows/"+doc.Name+".html"), Text(doc.Name))),
			Td(Text(schedule)),
			Td(Text(fmt.Sprintf("%d", taskCount-1))),
			Td(Text(fmt.Sprintf("%d", len(doc.QueryRefs)))),
		))
	}

	body := []Node{
		P(Class("muted"), Text(fmt.Sprintf(
			"%d workflows, %d tables, %d lineage edges",
			len(s.Documents), s.Lineage.NodeCount(), s.Lineage.EdgeCount()))),
		Table(
			THead(Tr(Th(Text("Workflow")), Th(Text("Schedule")), Th(Text("Tasks")), Th(Text("Queries")))),
			TBody(rows...),
		),
	}
	if s.Diags != nil && s.Diags.Len() > 0 {
		body = append(body, s.diagnosticsSection())
	}
	return s.layout("Workflows", 0, body...)
}

func (s *Site) diagnosticsSection() Node {
	items := s.Diags.Items()
	lis := make([]Node, 0, len(items))
	for _, d := range items {
		lis = append(lis, Li(
			Code(Text(string(d.Kind))),
			Text(" "+d.Source+": "+d.Detail),
		))
	}
	return Section(Class("diagnostics"),
		H2(Text(fmt.Sprintf("Diagnostics (%d)", len(items)))),
		Ul(lis...),
	)
}

func (s *Site) workflowPage(doc *workflow.Document, dot string) Node {
	var body []Node
	if doc.Schedule != nil {
		body = append(body, P(Class("muted"), Text("Schedule: "+doc.Schedule.String())))
	}
	body = append(body, graphBlock(dot))

	if len(doc.QueryRefs) > 0 {
		rows := make([]Node, 0, len(doc.QueryRefs))
		for _, ref := range doc.QueryRefs {
			query := ref.File
			if query == "" {
				query = "(inline)"
			}
			var queryCell Node
			if ref.Text != "" {
				queryCell = A(Href("../queries/"+querySlug(ref)+".html"), Text(query))
			} else {
				queryCell = Text(query)
			}
			target := ref.Target
			var targetCell Node
			if target != "" {
				targetCell = A(Href("../lineage/tables/"+tableSlug(target)+".html"), Text(target))
			} else {
				targetCell = Text("")
			}
			rows = append(rows, Tr(
				Td(Code(Text(ref.TaskPath))),
				Td(queryCell),
				Td(targetCell),
			))
		}
		body = append(body,
			H2(Text("Queries")),
			Table(
				THead(Tr(Th(Text("Task")), Th(Text("Query")), Th(Text("Target table")))),
				TBody(rows...),
			),
		)
	}
	return s.layout(doc.Name, 1, body...)
}

// queryPage shows one query's resolved SQL text with its task and
// target table.
func (s *Site) queryPage(doc *workflow.Document, ref workflow.QueryRef) Node {
	source := ref.File
	if source == "" {
		source = "(inline)"
	}
	body := []Node{
		P(Class("muted"),
			Text("Workflow: "),
			A(Href("../workflows/"+doc.Name+".html"), Text(doc.Name)),
			Text(" · Source: "+source),
		),
	}
	if ref.Target != "" {
		body = append(body, P(Class("muted"),
			Text("Target: "),
			A(Href("../lineage/tables/"+tableSlug(ref.Target)+".html"), Code(Text(ref.Target))),
		))
	}
	body = append(body, Pre(Code(Text(ref.Text))))
	return s.layout(ref.TaskPath, 1, body...)
}

// querySlug converts a task path into a filesystem-safe page name.
func querySlug(ref workflow.QueryRef) string {
	return tableSlug(ref.TaskPath)
}

func (s *Site) lineageIndexPage() Node {
	nodes := s.Lineage.Nodes()
	edges := lineageEdges(s.Lineage.Edges())
	dot := LineageDOT(nodes, edges, s.Classifier, "")

	legend := make([]Node, 0, len(s.Classifier.Rules()))
	for _, rule := range s.Classifier.Rules() {
		label := rule.Label
		if label == "" {
			label = rule.Name
		}
		legend = append(legend, Span(Class("legend-item"),
			Span(Class("legend-color"), Style("background:"+rule.Color)),
			Text(label),
		))
	}

	rows := make([]Node, 0, len(nodes))
	for _, ref := range nodes {
		rows = append(rows, Tr(
			Td(A(Href("tables/"+tableSlug(ref.Name)+".html"), Code(Text(ref.Name)))),
			Td(Text(ref.Layer)),
			Td(Text(fmt.Sprintf("%d", len(s.Lineage.Upstream(ref.Name))))),
			Td(Text(fmt.Sprintf("%d", len(s.Lineage.Downstream(ref.Name))))),
		))
	}

	return s.layout("Data Lineage", 1,
		Div(Class("legend"), Group(legend)),
		graphBlock(dot),
		H2(Text("Tables")),
		Table(
			THead(Tr(Th(Text("Table")), Th(Text("Layer")), Th(Text("Upstream")), Th(Text("Downstream")))),
			TBody(rows...),
		),
	)
}

func (s *Site) tablePage(ref extract.TableRef) Node {
	closure := s.Lineage.Closure(ref.Name)
	sub := s.Lineage.Subgraph(closure)
	dot := LineageDOT(sub.Nodes(), lineageEdges(sub.Edges()), s.Classifier, ref.Name)

	upstream := sortedNames(s.Lineage.Upstream(ref.Name))
	downstream := sortedNames(s.Lineage.Downstream(ref.Name))

	return s.layout(ref.Name, 2,
		P(Class("muted"), Text("Layer: "+orDash(ref.Layer))),
		graphBlock(dot),
		Div(Class("columns"),
			Section(
				H2(Text(fmt.Sprintf("Upstream (%d)", len(upstream)))),
				tableList(upstream),
			),
			Section(
				H2(Text(fmt.Sprintf("Downstream (%d)", len(downstream)))),
				tableList(downstream),
			),
		),
	)
}

func tableList(names []string) Node {
	if len(names) == 0 {
		return P(Class("muted"), Text("none"))
	}
	lis := make([]Node, 0, len(names))
	for _, n := range names {
		lis = append(lis, Li(A(Href(tableSlug(n)+".html"), Code(Text(n)))))
	}
	return Ul(lis...)
}

func lineageEdges(edges []lineage.Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{Source: e.Source, Target: e.Target})
	}
	return out
}

func sortedNames(set map[string]extract.TableRef) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// tableSlug converts a qualified table name into a filesystem-safe page
// name.
func tableSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.NewReplacer(".", "_", "/", "_", " ", "_").Replace(slug)
	return slug
}

// renderDOTScript renders every embedded DOT source to inline SVG.
const renderDOTScript = `
Viz.instance().then(function(viz) {
  document.querySelectorAll('script[type="text/vnd.graphviz"]').forEach(function(el) {
    var svg = viz.renderSVGElement(el.textContent);
    svg.setAttribute("style", "max-width:100%;height:auto");
    el.parentNode.appendChild(svg);
  });
});
`

const siteCSS = `
body { font-family: Helvetica, Arial, sans-serif; margin: 0; color: #24292f; }
.topbar { display: flex; align-items: center; gap: 1.5rem; padding: 0.75rem 1.5rem; border-bottom: 1px solid #d0d7de; }
.topbar .brand { font-weight: 700; text-decoration: none; color: #24292f; }
.topbar nav a { margin-right: 1rem; text-decoration: none; color: #0969da; }
main { padding: 1rem 1.5rem; max-width: 1100px; }
table { border-collapse: collapse; width: 100%; margin: 0.5rem 0 1.5rem; }
th, td { text-align: left; padding: 0.4rem 0.75rem; border-bottom: 1px solid #d0d7de; }
.muted { color: #57606a; }
.graph { margin: 1rem 0; overflow-x: auto; }
pre { background: #f6f8fa; padding: 1rem; overflow-x: auto; border-radius: 6px; }
.legend { display: flex; gap: 1rem; margin: 0.5rem 0; }
.legend-item { display: inline-flex; align-items: center; gap: 0.35rem; font-size: 0.9rem; }
.legend-color { width: 14px; height: 14px; display: inline-block; border: 1px solid #d0d7de; }
.columns { display: flex; gap: 3rem; }
.diagnostics { margin-top: 2rem; }
.diagnostics code { background: #fff8c5; padding: 0 0.25rem; }
code { font-family: ui-monospace, SFMono-Regular, monospace; font-size: 0.9em; }
`
