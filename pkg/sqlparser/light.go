package sqlparser

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/DataDog/go-sqllexer"

	"github.com/shaweiguo/datahub/pkg/lineage"
	"github.com/shaweiguo/datahub/pkg/normalize"
	"github.com/shaweiguo/datahub/pkg/parser"
	"github.com/shaweiguo/datahub/pkg/token"
)

// LightParser extracts tables and columns from tokens alone. It is faster
// than GraphParser and less precise: every referenced table is reported,
// insert targets included, and columns come from the first top-level select
// list of each statement.
type LightParser struct {
	tables  []string
	columns []string
	joined  bool
}

// NewLightParser parses sql with the light strategy.
func NewLightParser(sql string, opts ...Option) (*LightParser, error) {
	o := buildOptions(opts)
	o.strategy = StrategyLight
	return newLightParser(sql, o)
}

func newLightParser(sql string, o *options) (*LightParser, error) {
	norm := normalize.NewPipeline(o.normalizeOptions()).Run(sql)
	if norm.Rewritten() {
		o.logger.Debug("rewrote query",
			slog.String("original", sql),
			slog.String("rewritten", norm.SQL),
			slog.Any("passes", norm.Applied))
	}

	segs := parser.Split(norm.SQL)
	if len(segs) == 0 {
		return &LightParser{tables: []string{}, columns: []string{}}, nil
	}
	if !anyStatement(segs) {
		return nil, &UnparseableError{SQL: sql}
	}

	found, err := collectTables(norm.SQL, o.dbms)
	if err != nil {
		return nil, &UnparseableError{SQL: sql, Errs: []error{err}}
	}

	ctes := make(map[string]bool)
	var columns []string
	joined := false
	for _, seg := range segs {
		for _, name := range cteNames(seg.Tokens) {
			ctes[strings.ToLower(name)] = true
		}
		listed, comma := fromListTables(seg.Tokens)
		found = append(found, listed...)
		if comma || hasJoin(seg.Tokens) {
			joined = true
		}
		columns = append(columns, selectColumns(seg.Tokens)...)
	}

	p := &LightParser{tables: []string{}, columns: []string{}, joined: joined}
	for _, t := range found {
		if ctes[strings.ToLower(t)] {
			continue
		}
		p.tables = append(p.tables, norm.Tokens.Reverse(t))
	}
	p.tables = dedupeSorted(p.tables)
	if !joined {
		for _, c := range columns {
			p.columns = append(p.columns, norm.Tokens.Reverse(c))
		}
		p.columns = dedupeSorted(p.columns)
	}
	return p, nil
}

// collectTables lists the table names go-sqllexer finds. Of a comma
// separated FROM list it reports only the first entry; fromListTables
// supplies the rest. Names the lexer
// truncated end in "..." and are dropped.
func collectTables(sql, dbms string) ([]string, error) {
	normalizer := sqllexer.NewNormalizer(sqllexer.WithCollectTables(true))
	var (
		metadata *sqllexer.StatementMetadata
		err      error
	)
	if dbms != "" {
		_, metadata, err = normalizer.Normalize(sql, sqllexer.WithDBMS(sqllexer.DBMSType(dbms)))
	} else {
		_, metadata, err = normalizer.Normalize(sql)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to normalize SQL: %w", err)
	}

	tables := make([]string, 0, len(metadata.Tables))
	for _, table := range metadata.Tables {
		if !strings.HasSuffix(table, "...") {
			tables = append(tables, table)
		}
	}
	return tables, nil
}

// GetTables returns every table the query references, sorted.
func (p *LightParser) GetTables() []string {
	return append([]string{}, p.tables...)
}

// GetColumns returns the output names of each statement's first select
// list, or nothing when the query joins tables.
func (p *LightParser) GetColumns() []string {
	return append([]string{}, p.columns...)
}

// Result returns the lineage result the light strategy can provide: tables
// and columns, without target tables or column lineage.
func (p *LightParser) Result() *lineage.Result {
	res := lineage.Empty()
	res.SourceTables = append(res.SourceTables, p.tables...)
	res.Columns = append(res.Columns, p.columns...)
	res.HasJoin = p.joined
	return res
}

func hasJoin(toks []token.Token) bool {
	for _, tok := range toks {
		if tok.Type == token.JOIN {
			return true
		}
	}
	return false
}

// fromListTables returns the tables after the first entry of every comma
// separated FROM list, and whether any such list was seen. Subqueries and
// table functions are skipped, as are FROM keywords inside function calls
// such as EXTRACT(year FROM d).
func fromListTables(toks []token.Token) (tables []string, comma bool) {
	var calls []bool
	for i, tok := range toks {
		switch tok.Type {
		case token.LPAREN:
			calls = append(calls, i > 0 && isName(toks[i-1]))
			continue
		case token.RPAREN:
			if len(calls) > 0 {
				calls = calls[:len(calls)-1]
			}
			continue
		case token.FROM:
		default:
			continue
		}
		if len(calls) > 0 && calls[len(calls)-1] {
			continue
		}

		j := i + 1
		for first := true; j < len(toks); first = false {
			switch {
			case toks[j].Type == token.LPAREN:
				j = skipParens(toks, j)
			case isName(toks[j]):
				name, next := qualifiedName(toks, j)
				if next < len(toks) && toks[next].Type == token.LPAREN {
					next = skipParens(toks, next)
				} else if !first {
					tables = append(tables, name)
				}
				j = next
			default:
				j = len(toks)
				continue
			}
			if j < len(toks) && toks[j].Type == token.AS {
				j++
			}
			if j < len(toks) && isName(toks[j]) {
				j++
			}
			if j >= len(toks) || toks[j].Type != token.COMMA {
				break
			}
			comma = true
			j++
		}
	}
	return tables, comma
}

// qualifiedName reads a dotted name starting at i and returns it with the
// index after it.
func qualifiedName(toks []token.Token, i int) (string, int) {
	parts := []string{toks[i].Literal}
	i++
	for i+1 < len(toks) && toks[i].Type == token.DOT && isName(toks[i+1]) {
		parts = append(parts, toks[i+1].Literal)
		i += 2
	}
	return strings.Join(parts, "."), i
}

// cteNames returns the names defined by a leading WITH clause.
func cteNames(toks []token.Token) []string {
	if len(toks) == 0 || toks[0].Type != token.WITH {
		return nil
	}

	var names []string
	depth := 0
	for i := 1; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case token.LPAREN:
			depth++
			continue
		case token.RPAREN:
			depth--
			continue
		case token.SELECT, token.INSERT:
			if depth == 0 {
				return names
			}
		}
		if depth != 0 || !isName(tok) {
			continue
		}
		next := i + 1
		if next < len(toks) && toks[next].Type == token.LPAREN {
			next = skipParens(toks, next)
		}
		if next+1 < len(toks) && toks[next].Type == token.AS && toks[next+1].Type == token.LPAREN {
			names = append(names, tok.Literal)
		}
	}
	return names
}

// skipParens returns the index after the parenthesis group opening at i.
func skipParens(toks []token.Token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		switch toks[i].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

// selectColumns returns the output names of the first top-level select list.
func selectColumns(toks []token.Token) []string {
	start := -1
	depth := 0
	for i, tok := range toks {
		switch tok.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.SELECT:
			if depth == 0 {
				start = i + 1
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return nil
	}
	for start < len(toks) && (toks[start].Type == token.DISTINCT || toks[start].Type == token.ALL) {
		start++
	}

	var (
		names []string
		item  []token.Token
	)
	depth = 0
	flush := func() {
		names = append(names, itemNames(item)...)
		item = nil
	}
loop:
	for _, tok := range toks[start:] {
		switch tok.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.COMMA:
			if depth == 0 {
				flush()
				continue
			}
		case token.FROM, token.UNION, token.INTERSECT, token.EXCEPT, token.WHERE,
			token.GROUP, token.ORDER, token.LIMIT, token.INTO:
			if depth == 0 {
				break loop
			}
		}
		item = append(item, tok)
	}
	flush()
	return names
}

// itemNames names one select item: its alias when present, otherwise every
// column it references.
func itemNames(item []token.Token) []string {
	n := len(item)
	if n == 0 {
		return nil
	}
	if n >= 2 && isName(item[n-1]) {
		prev := item[n-2]
		if prev.Type == token.AS {
			return []string{item[n-1].Literal}
		}
		if prev.Type == token.RPAREN || prev.Type == token.NUMBER || prev.Type == token.STRING ||
			prev.Type == token.END || (isName(prev) && (n == 2 || item[n-3].Type == token.DOT)) {
			return []string{item[n-1].Literal}
		}
	}

	var names []string
	for i, tok := range item {
		if !isName(tok) {
			continue
		}
		if i+1 < n && (item[i+1].Type == token.LPAREN || item[i+1].Type == token.DOT) {
			continue
		}
		if i > 0 && (item[i-1].Type == token.AS || item[i-1].Type == token.DCOLON) {
			continue
		}
		names = append(names, tok.Literal)
	}
	return names
}

func isName(tok token.Token) bool {
	return tok.Type == token.IDENT || token.IsNonReserved(tok.Type)
}

func dedupeSorted(names []string) []string {
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		if len(out) > 0 && out[len(out)-1] == n {
			continue
		}
		out = append(out, n)
	}
	return out
}
