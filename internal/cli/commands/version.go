package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/flowscope-dev/flowscope/internal/cli/output"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := output.FromContext(cmd.Context())
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]string{
					"version":   version,
					"buildDate": buildDate,
					"gitCommit": gitCommit,
					"goVersion": runtime.Version(),
				})
			}
			r.Printf("flowscope %s\n", version)
			r.KeyValue("Build date", buildDate)
			r.KeyValue("Git commit", gitCommit)
			r.KeyValue("Go version", runtime.Version())
			return nil
		},
	}
}
