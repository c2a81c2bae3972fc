package config

import (
	"fmt"
	"log/slog"

	"github.com/shaweiguo/datahub/internal/cli/output"
	"github.com/shaweiguo/datahub/pkg/sqlparser"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := sqlparser.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if _, err := output.ParseMode(c.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must not be negative, got %d", c.Batch.Concurrency)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	return nil
}

// ParserOptions returns the sqlparser options the configuration selects.
func (c *Config) ParserOptions(logger *slog.Logger) ([]sqlparser.Option, error) {
	strategy, err := sqlparser.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []sqlparser.Option{
		sqlparser.WithStrategy(strategy),
		sqlparser.WithLogger(logger),
	}
	if c.DBMS != "" {
		opts = append(opts, sqlparser.WithDBMS(c.DBMS))
	}
	if !c.Normalize.IsZero() {
		opts = append(opts, sqlparser.WithNormalizeOptions(c.Normalize.Apply(sqlparser.DefaultNormalizeOptions(strategy))))
	}
	return opts, nil
}
