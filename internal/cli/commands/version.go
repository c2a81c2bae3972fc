package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/pkg/sqlparser"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display sqllineage version, build and supported strategies.`,
		Run: func(cmd *cobra.Command, _ []string) {
			strategies := make([]string, 0, len(sqlparser.Strategies()))
			for _, s := range sqlparser.Strategies() {
				strategies = append(strategies, string(s))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sqllineage v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "SQL table and column lineage (%s)\n", runtime.Version())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Strategies: %s\n", strings.Join(strategies, ", "))
		},
	}
}
