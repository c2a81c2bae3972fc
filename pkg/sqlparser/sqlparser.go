// Package sqlparser answers "which tables does this query read" and "which
// columns does it produce" for a SQL string.
//
// # Usage
//
//	p, err := sqlparser.New("INSERT INTO t2 SELECT a, b AS c FROM t1")
//	if err != nil {
//		return err
//	}
//	p.GetTables()  // [t1]
//	p.GetColumns() // [a c]
//
// Two strategies are available. The graph strategy (the default) parses
// every statement and builds a lineage graph. The light strategy scans
// tokens only and is used where speed matters more than precision.
package sqlparser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaweiguo/datahub/pkg/lineage"
	"github.com/shaweiguo/datahub/pkg/normalize"
)

// Parser is the capability every strategy provides. Both methods return
// sorted, deduplicated names and never fail.
type Parser interface {
	GetTables() []string
	GetColumns() []string
}

// Strategy selects a Parser implementation.
type Strategy string

const (
	StrategyGraph Strategy = "graph"
	StrategyLight Strategy = "light"
)

// Strategies lists the registered strategies.
func Strategies() []Strategy {
	return []Strategy{StrategyGraph, StrategyLight}
}

// ParseStrategy maps a name to a Strategy. An empty name selects the graph
// strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyGraph:
		return StrategyGraph, nil
	case StrategyLight:
		return StrategyLight, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

type options struct {
	strategy  Strategy
	logger    *slog.Logger
	normalize *normalize.Options
	dbms      string
}

// Option configures parser construction.
type Option func(*options)

// WithStrategy selects the parsing strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithLogger sets the logger used for debug records about rewritten and
// skipped statements.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNormalizeOptions overrides the strategy's default normalization passes.
func WithNormalizeOptions(opts normalize.Options) Option {
	return func(o *options) {
		o.normalize = &opts
	}
}

// WithDBMS names the database flavour the light strategy lexes for, such as
// "postgresql", "mysql" or "snowflake". The graph strategy ignores it.
func WithDBMS(name string) Option {
	return func(o *options) {
		o.dbms = name
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		strategy: StrategyGraph,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) normalizeOptions() normalize.Options {
	if o.normalize != nil {
		return *o.normalize
	}
	return DefaultNormalizeOptions(o.strategy)
}

// DefaultNormalizeOptions returns the normalization passes a strategy runs
// unless overridden.
func DefaultNormalizeOptions(s Strategy) normalize.Options {
	if s == StrategyLight {
		return normalize.LightOptions()
	}
	return normalize.DefaultOptions()
}

// DefaultParser delegates to the parser of the configured strategy.
type DefaultParser struct {
	parser Parser
}

// New parses sql once with the configured strategy.
func New(sql string, opts ...Option) (*DefaultParser, error) {
	o := buildOptions(opts)
	var (
		p   Parser
		err error
	)
	switch o.strategy {
	case StrategyGraph:
		p, err = newGraphParser(sql, o)
	case StrategyLight:
		p, err = newLightParser(sql, o)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, o.strategy)
	}
	if err != nil {
		return nil, err
	}
	return &DefaultParser{parser: p}, nil
}

// GetTables returns the source tables.
func (d *DefaultParser) GetTables() []string {
	return d.parser.GetTables()
}

// GetColumns returns the output columns.
func (d *DefaultParser) GetColumns() []string {
	return d.parser.GetColumns()
}

// Unwrap returns the strategy parser.
func (d *DefaultParser) Unwrap() Parser {
	return d.parser
}

// Result returns the full lineage result of the strategy parser.
func (d *DefaultParser) Result() *lineage.Result {
	if r, ok := d.parser.(interface{ Result() *lineage.Result }); ok {
		return r.Result()
	}
	return lineage.Empty()
}

// Extract parses sql and returns its lineage result.
func Extract(sql string, opts ...Option) (*lineage.Result, error) {
	p, err := New(sql, opts...)
	if err != nil {
		return nil, err
	}
	return p.Result(), nil
}

// GetTables returns the source tables of sql using the default strategy.
func GetTables(sql string, opts ...Option) ([]string, error) {
	p, err := New(sql, opts...)
	if err != nil {
		return nil, err
	}
	return p.GetTables(), nil
}

// GetColumns returns the output columns of sql using the default strategy.
func GetColumns(sql string, opts ...Option) ([]string, error) {
	p, err := New(sql, opts...)
	if err != nil {
		return nil, err
	}
	return p.GetColumns(), nil
}
