package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowscope-dev/flowscope/internal/cli/output"
	"github.com/flowscope-dev/flowscope/internal/workflow"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflows and their schedules",
		Long: `List every workflow in the project with its schedule, task count,
and query count.

Use --output to select the format: auto, text, markdown, json.`,
		Example: `  # List all workflows
  flowscope list

  # List workflows as JSON
  flowscope list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

type workflowSummary struct {
	Name     string `json:"name"`
	Source   string `json:"source"`
	Schedule string `json:"schedule,omitempty"`
	Tasks    int    `json:"tasks"`
	Queries  int    `json:"queries"`
}

func runList(cmd *cobra.Command) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	defer p.reportDiags()

	summaries := make([]workflowSummary, 0, len(p.Result.Documents))
	for _, doc := range p.Result.Documents {
		s := workflowSummary{
			Name:    doc.Name,
			Source:  doc.Source,
			Queries: len(doc.QueryRefs),
		}
		if doc.Schedule != nil {
			s.Schedule = doc.Schedule.String()
		}
		doc.Root.Walk(func(*workflow.Task) { s.Tasks++ })
		s.Tasks-- // do not count the synthetic root
		summaries = append(summaries, s)
	}

	r := p.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(summaries)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Workflows (%d total)", len(summaries))))
		r.Println("")
		for _, s := range summaries {
			r.Println(output.FormatHeader(2, s.Name))
			r.Println(output.FormatKeyValue("Source", s.Source))
			if s.Schedule != "" {
				r.Println(output.FormatKeyValue("Schedule", s.Schedule))
			}
			r.Println(output.FormatKeyValue("Tasks", fmt.Sprintf("%d", s.Tasks)))
			r.Println(output.FormatKeyValue("Queries", fmt.Sprintf("%d", s.Queries)))
			r.Println("")
		}
	default:
		r.Header(1, fmt.Sprintf("Workflows (%d total)", len(summaries)))
		for _, s := range summaries {
			line := fmt.Sprintf("  %s  (%d tasks, %d queries)", s.Name, s.Tasks, s.Queries)
			if s.Schedule != "" {
				line += "  " + r.Styles().Muted.Render("["+s.Schedule+"]")
			}
			r.Println(strings.TrimRight(line, " "))
		}
	}
	return nil
}
