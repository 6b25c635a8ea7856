package commands

import (
	"github.com/spf13/cobra"

	"github.com/flowscope-dev/flowscope/internal/render"
)

// NewSiteCommand creates the site command.
func NewSiteCommand() *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Generate the static HTML site",
		Long: `Generate a browsable static HTML site into the output directory: an
index of workflows, one page per workflow with its task graph, the
full lineage graph, and one page per table with its upstream and
downstream closure.`,
		Example: `  # Generate the site into the configured output directory
  flowscope site

  # Custom output location
  flowscope site --output-dir ./public`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			defer p.reportDiags()

			site := &render.Site{
				Documents:  p.Result.Documents,
				Lineage:    p.Result.Lineage,
				Classifier: p.Classifier,
				Diags:      p.Diags,
				Direction:  direction,
			}
			if err := site.Write(p.Config.OutputDir); err != nil {
				return err
			}
			p.Renderer.Println("site written to", p.Config.OutputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "LR", "Task graph layout direction (LR|TB)")
	return cmd
}
