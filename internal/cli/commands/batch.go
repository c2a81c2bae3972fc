package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaweiguo/datahub/internal/cli/output"
)

// BatchOptions holds options for the batch command.
// Concurrency comes from batch.concurrency in the loaded config, which the
// --concurrency flag overrides.
type BatchOptions struct {
	Detail bool
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	opts := &BatchOptions{}
	cmd := &cobra.Command{
		Use:   "batch <dir|glob>",
		Short: "Extract lineage from many SQL files",
		Long: `Extract lineage from every .sql file under a directory, or every file a
glob matches, in parallel. One record is produced per file; files that cannot
be parsed are reported with their error and do not stop the run.`,
		Example: `  # Every .sql file under models/
  sqllineage batch models/

  # A glob, four at a time, as JSON
  sqllineage batch 'queries/*.sql' --concurrency 4 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().Int("concurrency", 0, "Parallel extractions (0 = one per CPU)")
	cmd.Flags().BoolVar(&opts.Detail, "detail", false, "Include column-level lineage")

	return cmd
}

func runBatch(cmd *cobra.Command, target string, opts *BatchOptions) error {
	files, err := collectSQLFiles(target)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .sql files found in %s", target)
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := extractAll(cmd.Context(), cc, files, cc.Cfg.Batch.Concurrency)
	if err != nil {
		return err
	}
	if err := cc.Renderer.RenderBatch(batch, opts.Detail); err != nil {
		return err
	}
	if batch.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", batch.Summary.Failed, batch.Summary.Files)
	}
	return nil
}

// extractAll extracts every file with at most limit extractions in flight.
// Per-file failures are recorded on their record.
func extractAll(ctx context.Context, cc *CommandContext, files []string, limit int) (output.BatchOutput, error) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	records := make([]output.ExtractOutput, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = extractFile(gctx, cc, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return output.BatchOutput{}, err
	}

	batch := output.BatchOutput{Records: records}
	batch.Summary.Files = len(records)
	for _, rec := range records {
		if rec.Error != "" {
			batch.Summary.Failed++
		}
		if rec.Cached {
			batch.Summary.Cached++
		}
	}
	return batch, nil
}

func extractFile(ctx context.Context, cc *CommandContext, path string) output.ExtractOutput {
	data, err := os.ReadFile(path)
	if err != nil {
		return output.ExtractOutput{Source: path, Strategy: string(cc.Strategy()), Error: err.Error()}
	}
	out, err := cc.Extract(ctx, path, string(data))
	if err != nil {
		cc.Logger.Debug("extraction failed", "source", path, "error", err)
		out.Error = err.Error()
	}
	return out
}

// collectSQLFiles returns the .sql files under a directory, or the files a
// glob pattern matches, sorted.
func collectSQLFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		var files []string
		err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSQLFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", target, err)
		}
		sort.Strings(files)
		return files, nil
	}

	matches, err := filepath.Glob(target)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", target, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isSQLFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".sql")
}
