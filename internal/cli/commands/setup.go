package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/internal/cli/config"
	"github.com/shaweiguo/datahub/internal/cli/output"
	"github.com/shaweiguo/datahub/internal/state"
	"github.com/shaweiguo/datahub/pkg/normalize"
	"github.com/shaweiguo/datahub/pkg/sqlparser"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// Store is nil when the cache is disabled.
	Store state.Store

	strategy  sqlparser.Strategy
	parseOpts []sqlparser.Option
	cacheKeyF func(sql string) string
}

// NewCommandContext creates a CommandContext with renderer and, unless
// disabled, the result cache.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutCache(cmd)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	if cc.Cfg.Cache.Enabled {
		store, err := state.Open(cmd.Context(), cc.Cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		cc.Store = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				cc.Logger.Warn("failed to close cache", "error", err)
			}
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutCache creates a CommandContext that always parses.
func NewCommandContextWithoutCache(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	strategy, err := sqlparser.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ParserOptions(logger)
	if err != nil {
		return nil, err
	}

	norm := effectiveNormalize(cfg, strategy)
	scope := string(strategy)
	if cfg.DBMS != "" {
		scope += "@" + cfg.DBMS
	}

	return &CommandContext{
		Cfg:       cfg,
		Logger:    logger,
		Renderer:  r,
		strategy:  strategy,
		parseOpts: opts,
		cacheKeyF: func(sql string) string { return state.Key(scope, norm, sql) },
	}, nil
}

// Strategy returns the strategy extractions run with.
func (c *CommandContext) Strategy() sqlparser.Strategy {
	return c.strategy
}

// Extract returns the lineage of sql, serving it from the cache when
// possible. Parse failures are returned as errors and never cached.
func (c *CommandContext) Extract(ctx context.Context, source, sql string) (output.ExtractOutput, error) {
	out := output.ExtractOutput{Source: source, Strategy: string(c.strategy)}

	var key string
	if c.Store != nil {
		key = c.cacheKeyF(sql)
		res, err := c.Store.Get(ctx, key)
		switch {
		case err == nil:
			c.Logger.Debug("cache hit", "source", source)
			out.Result = *res
			out.Cached = true
			return out, nil
		case !errors.Is(err, state.ErrNotFound):
			c.Logger.Warn("cache lookup failed", "source", source, "error", err)
		}
	}

	res, err := sqlparser.Extract(sql, c.parseOpts...)
	if err != nil {
		return out, err
	}
	out.Result = *res

	if c.Store != nil {
		if err := c.Store.Put(ctx, key, string(c.strategy), res); err != nil {
			c.Logger.Warn("cache store failed", "source", source, "error", err)
		}
	}
	return out, nil
}

// effectiveNormalize returns the normalization passes an extraction runs.
func effectiveNormalize(cfg *config.Config, s sqlparser.Strategy) normalize.Options {
	return cfg.Normalize.Apply(sqlparser.DefaultNormalizeOptions(s))
}
