package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/internal/cli/output"
	"github.com/shaweiguo/datahub/internal/state"
)

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the extraction cache",
		Long: `Extraction results are cached in a SQLite database keyed by the strategy,
the normalization settings and the SQL text. Use --cache-path to point at a
different database and --no-cache to bypass it.`,
	}

	cmd.AddCommand(newCacheStatsCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and hit counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return renderStats(cc.Renderer, stats)
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached extraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			switch cc.Renderer.EffectiveMode() {
			case output.ModeJSON:
				return cc.Renderer.JSON(map[string]int64{"removed": n})
			case output.ModeYAML:
				return cc.Renderer.YAML(map[string]int64{"removed": n})
			}
			cc.Renderer.Success(fmt.Sprintf("Removed %d cached extractions", n))
			return nil
		},
	}
}

// openCache opens the configured cache even when extraction caching is
// turned off.
func openCache(cmd *cobra.Command) (*CommandContext, *state.SQLiteStore, error) {
	cc, err := NewCommandContextWithoutCache(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := state.Open(cmd.Context(), cc.Cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}
	return cc, store, nil
}

func renderStats(r *output.Renderer, stats *state.Stats) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(stats)
	case output.ModeYAML:
		return r.YAML(stats)
	}

	rows := [][]string{
		{"path", stats.Path},
		{"schema version", fmt.Sprintf("%d", stats.Version)},
		{"entries", fmt.Sprintf("%d", stats.Entries)},
		{"hits", fmt.Sprintf("%d", stats.Hits)},
		{"oldest", formatTime(stats.Oldest)},
		{"newest", formatTime(stats.Newest)},
	}
	strategies := make([]string, 0, len(stats.ByStrategy))
	for s := range stats.ByStrategy {
		strategies = append(strategies, s)
	}
	sort.Strings(strategies)
	for _, s := range strategies {
		rows = append(rows, []string{"entries (" + s + ")", fmt.Sprintf("%d", stats.ByStrategy[s])})
	}

	switch r.EffectiveMode() {
	case output.ModeTable:
		r.Table([]string{"Stat", "Value"}, rows)
	case output.ModeMarkdown:
		r.Header(1, "Cache")
		for _, row := range rows {
			r.Println(output.FormatKeyValue(row[0], row[1]))
		}
	default:
		for _, row := range rows {
			r.Printf("%-20s %s\n", row[0]+":", row[1])
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
