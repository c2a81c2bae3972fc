package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/internal/cli/output"
)

// configFileName is the file init writes.
const configFileName = "sqllineage.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter sqllineage.yaml",
		Long: `Write a sqllineage.yaml with every setting at its default, plus a
.gitignore entry for the extraction cache.

Use --example to also create a few sample queries to try the other commands on.`,
		Example: `  # Initialize in current directory
  sqllineage init

  # With sample queries
  sqllineage init demo --example && sqllineage batch demo/queries

  # Force overwrite existing config
  sqllineage init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cc, err := NewCommandContextWithoutCache(cmd)
			if err != nil {
				return err
			}

			name := "minimal"
			if example {
				name = "example"
			}
			return runInit(cc.Renderer, name, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Also create sample queries")

	return cmd
}

func runInit(r *output.Renderer, templateName, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, configFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	if err := copyTemplate(templateName, dir, force); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	files, err := listTemplateFiles(templateName)
	if err != nil {
		return err
	}
	for _, f := range files {
		r.Println("  " + r.Styles().Success.Render("✓") + " " + f)
	}

	r.Println("")
	r.Success("sqllineage initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  sqllineage tables query.sql     Source tables of a query")
	r.Println("  sqllineage extract query.sql    Full lineage, --detail for columns")
	r.Println("  sqllineage batch <dir>          Every .sql file under a directory")

	return nil
}
