package commands

import (
	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/internal/cli/output"
)

// ExtractOptions holds options for the extract command.
type ExtractOptions struct {
	InputOptions
	Detail bool
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &InputOptions{}
	cmd := &cobra.Command{
		Use:   "tables [file|-]",
		Short: "List the source tables a query reads",
		Long: `List the tables a query reads from, sorted and de-duplicated.

Tables that are only written to (INSERT, CREATE TABLE AS) and CTE names are
not reported. Input is read from a file, --sql, or stdin.`,
		Example: `  # Tables of a file
  sqllineage tables query.sql

  # From stdin
  cat query.sql | sqllineage tables

  # Inline
  sqllineage tables --sql "SELECT a FROM db.t1 JOIN db.t2 USING (id)"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNames(cmd, args, opts, "Tables", func(o output.ExtractOutput) []string { return o.SourceTables })
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	opts := &InputOptions{}
	cmd := &cobra.Command{
		Use:   "columns [file|-]",
		Short: "List the output columns of a query",
		Long: `List the columns a query produces, sorted and de-duplicated.

Queries that join tables report no columns, since a bare column name cannot
be attributed to one table. Input is read from a file, --sql, or stdin.`,
		Example: `  sqllineage columns --sql "SELECT a, b AS c FROM t1"`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNames(cmd, args, opts, "Columns", func(o output.ExtractOutput) []string { return o.Columns })
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	opts := &ExtractOptions{}
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Show the full lineage of a query",
		Long: `Show source tables, target tables, output columns and diagnostics for a
query. With --detail, every output column is traced back to the physical
source columns it derives from.

Output adapts to environment:
  - Terminal: Styled text
  - Piped/Scripted: Markdown format
  - --output json|yaml|table: as requested`,
		Example: `  # Lineage of a file, with column detail
  sqllineage extract query.sql --detail

  # As JSON
  sqllineage extract query.sql -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, opts)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.Detail, "detail", false, "Include column-level lineage")
	return cmd
}

func runNames(cmd *cobra.Command, args []string, opts *InputOptions, title string, pick func(output.ExtractOutput) []string) error {
	source, sql, err := readInput(cmd, args, opts)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := cc.Extract(cmd.Context(), source, sql)
	if err != nil {
		return err
	}
	return cc.Renderer.RenderNames(title, pick(out))
}

func runExtract(cmd *cobra.Command, args []string, opts *ExtractOptions) error {
	source, sql, err := readInput(cmd, args, &opts.InputOptions)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := cc.Extract(cmd.Context(), source, sql)
	if err != nil {
		return err
	}
	return cc.Renderer.RenderExtract(out, opts.Detail)
}
