package sqlparser

import (
	"log/slog"

	"github.com/shaweiguo/datahub/pkg/lineage"
	"github.com/shaweiguo/datahub/pkg/normalize"
	"github.com/shaweiguo/datahub/pkg/parser"
)

// GraphParser extracts lineage by parsing every statement and building a
// lineage graph.
type GraphParser struct {
	graph  *lineage.Graph
	result *lineage.Result
	tokens *normalize.TokenMap
}

// NewGraphParser parses sql with the graph strategy.
func NewGraphParser(sql string, opts ...Option) (*GraphParser, error) {
	o := buildOptions(opts)
	o.strategy = StrategyGraph
	return newGraphParser(sql, o)
}

func newGraphParser(sql string, o *options) (*GraphParser, error) {
	norm := normalize.NewPipeline(o.normalizeOptions()).Run(sql)
	if norm.Rewritten() {
		o.logger.Debug("rewrote query",
			slog.String("original", sql),
			slog.String("rewritten", norm.SQL),
			slog.Any("passes", norm.Applied))
	}

	segs := parser.Split(norm.SQL)
	if len(segs) > 0 && !anyStatement(segs) {
		return nil, &UnparseableError{SQL: sql}
	}

	popts := parser.Options{Truncated: norm.Truncated()}
	b := lineage.NewBuilder()
	for _, seg := range segs {
		stmt, err := parser.ParseSegment(seg, popts)
		if err != nil {
			o.logger.Debug("skipped statement",
				slog.String("statement", seg.Text()),
				slog.String("error", err.Error()))
			b.Skip(err)
			continue
		}
		b.Add(stmt)
	}

	g := b.Graph()
	tables := func(name string) string {
		return norm.Tokens.Reverse(lineage.StripDefault(name))
	}
	return &GraphParser{
		graph:  g,
		result: g.Result().Rename(tables, norm.Tokens.Reverse),
		tokens: norm.Tokens,
	}, nil
}

// anyStatement reports whether at least one segment opens like a statement.
func anyStatement(segs []parser.Segment) bool {
	for _, seg := range segs {
		if parser.IsStatementStart(seg.First()) {
			return true
		}
	}
	return false
}

// GetTables returns the tables the query reads and does not itself produce.
func (p *GraphParser) GetTables() []string {
	return append([]string{}, p.result.SourceTables...)
}

// GetColumns returns the terminal output columns, or nothing when the query
// joins tables.
func (p *GraphParser) GetColumns() []string {
	return append([]string{}, p.result.Columns...)
}

// Result returns the full lineage result.
func (p *GraphParser) Result() *lineage.Result {
	return p.result
}

// Graph returns the lineage graph. Names in it are not reversed; see
// DisplayName.
func (p *GraphParser) Graph() *lineage.Graph {
	return p.graph
}

// DisplayName maps a graph node ID or name back to the text the query used.
func (p *GraphParser) DisplayName(id string) string {
	return p.tokens.Reverse(lineage.StripDefault(id))
}
