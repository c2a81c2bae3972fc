package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// FROM clause parsing: table references, derived tables, table functions, JOINs.
//
// Grammar:
//
//	from_clause   → table_ref (join)*
//	table_ref     → table_name [table_alias] [modifiers]
//	              | "(" select_stmt ")" [table_alias]
//	              | "(" VALUES row ("," row)* ")" [table_alias]
//	              | "(" from_clause ")" [table_alias]
//	              | [LATERAL] func_call [table_alias]
//	              | LATERAL "(" select_stmt ")" [table_alias]
//	table_name    → [catalog "."] [schema "."] identifier
//	table_alias   → [AS] identifier ["(" ident_list ")"]
//	join          → "," table_ref
//	              | [NATURAL] join_type JOIN table_ref [ON expr | USING "(" ident_list ")"]
//	              | (CROSS | OUTER) APPLY table_ref
//	              | LATERAL VIEW [OUTER] func_call identifier [AS ident_list]
//	join_type     → [INNER] | LEFT [OUTER|SEMI|ANTI] | RIGHT [OUTER] | FULL [OUTER] | CROSS

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *FromClause {
	start := p.token.Pos
	from := &FromClause{}
	from.Source = p.parseTableRef()

	for {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}

	from.Span = p.spanFrom(start)
	return from
}

// parseTableRef parses a table reference.
func (p *Parser) parseTableRef() TableRef {
	p.enter()
	defer p.leave()

	// Postgres: FROM ONLY t
	if p.check(token.ONLY) && p.isIdentLike(p.peek) {
		p.nextToken()
	}

	if p.match(token.LATERAL) {
		return p.parseLateralTable()
	}

	if p.check(token.LPAREN) {
		switch {
		case p.parenStartsQuery():
			return p.parseDerivedTable()
		case p.checkPeek(token.VALUES):
			return p.parseValuesTable()
		}
		return p.parseParenJoin()
	}

	// Table-valued function: UNNEST(arr), TABLE(gen()), generate_series(1, 3)
	if p.isIdentLike(p.token) && p.checkPeek(token.LPAREN) {
		return p.parseTableFunc()
	}

	return p.parseTableName()
}

// parenStartsQuery reports whether the parenthesis at the current token opens
// a query, looking through any further opening parentheses.
func (p *Parser) parenStartsQuery() bool {
	for i := p.idx; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case token.LPAREN:
			continue
		case token.SELECT, token.WITH:
			return true
		}
		return false
	}
	return false
}

// parseTableName parses a table name with optional schema/catalog and alias.
func (p *Parser) parseTableName() *TableName {
	start := p.token.Pos
	table := &TableName{}

	parts := p.parseQualifiedParts("table name")
	if len(parts) == 0 {
		return table
	}
	assignNameParts(table, parts)

	p.skipTableModifiers()
	table.Alias, _ = p.parseTableAlias()
	p.skipTableModifiers()

	table.Span = p.spanFrom(start)
	return table
}

// parseQualifiedParts parses identifier ("." identifier)*.
func (p *Parser) parseQualifiedParts(what string) []string {
	name, ok := p.identifier(what)
	if !ok {
		return nil
	}

	parts := []string{name}
	for p.check(token.DOT) && (p.isIdentLike(p.peek) || token.IsKeyword(p.peek.Type)) {
		p.nextToken()
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}
	return parts
}

// assignNameParts distributes dotted name parts onto a TableName.
func assignNameParts(table *TableName, parts []string) {
	n := len(parts)
	switch n {
	case 0:
	case 1:
		table.Name = parts[0]
	case 2:
		table.Schema = parts[0]
		table.Name = parts[1]
	default:
		table.Catalog = strings.Join(parts[:n-2], ".")
		table.Schema = parts[n-2]
		table.Name = parts[n-1]
	}
}

// tableModifierWords start clauses that may follow a table name.
var tableModifierWords = []string{"tablesample", "pivot", "unpivot", "final", "sample"}

// isTableModifier reports whether tok starts a table modifier rather than an alias.
func (p *Parser) isTableModifier(tok token.Token) bool {
	if tok.Type != token.IDENT || tok.Quoted {
		return false
	}
	for _, w := range tableModifierWords {
		if isSoft(tok, w) {
			return true
		}
	}
	return false
}

// skipTableModifiers consumes sampling, pivot, time travel and hint clauses.
func (p *Parser) skipTableModifiers() {
	for {
		switch {
		case p.isTableModifier(p.token):
			p.nextToken()
			// TABLESAMPLE BERNOULLI (10), PIVOT (...)
			if p.check(token.IDENT) && p.checkPeek(token.LPAREN) {
				p.nextToken()
			}
			if p.check(token.LPAREN) {
				p.skipParens()
			}
			// REPEATABLE (seed)
			if isSoft(p.token, "repeatable") && p.checkPeek(token.LPAREN) {
				p.nextToken()
				p.skipParens()
			}
		case p.check(token.WITH) && p.checkPeek(token.LPAREN):
			// T-SQL table hints: WITH (NOLOCK)
			p.nextToken()
			p.skipParens()
		case (isSoft(p.token, "at") || isSoft(p.token, "before")) && p.checkPeek(token.LPAREN):
			// Snowflake time travel: AT(TIMESTAMP => ...)
			p.nextToken()
			p.skipParens()
		default:
			return
		}
	}
}

// parseTableAlias parses [AS] alias ["(" column_list ")"].
func (p *Parser) parseTableAlias() (string, []string) {
	var alias string
	switch {
	case p.match(token.AS):
		name, ok := p.identifier("alias")
		if !ok {
			return "", nil
		}
		alias = name
	case p.canBeAlias() && !p.isTableModifier(p.token) && !p.isJoinWord(p.token):
		alias = p.token.Literal
		p.nextToken()
	default:
		return "", nil
	}

	var cols []string
	if p.check(token.LPAREN) {
		cols = p.parseIdentList()
	}
	return alias, cols
}

// isJoinWord reports join-introducing words that lex as identifiers.
func (p *Parser) isJoinWord(tok token.Token) bool {
	if tok.Type != token.IDENT || tok.Quoted {
		return false
	}
	switch strings.ToLower(tok.Literal) {
	case "straight_join", "semi", "anti", "asof", "apply":
		return true
	}
	return false
}

// parseDerivedTable parses a derived table (subquery in FROM).
func (p *Parser) parseDerivedTable() *DerivedTable {
	start := p.token.Pos
	p.expect(token.LPAREN)
	derived := &DerivedTable{}
	derived.Select = p.parseSelectStmt()
	p.expectClose(token.RPAREN)

	derived.Alias, derived.Columns = p.parseTableAlias()
	derived.Span = p.spanFrom(start)
	return derived
}

// parseValuesTable parses (VALUES ...) [alias] as a table function.
func (p *Parser) parseValuesTable() *TableFunc {
	start := p.token.Pos
	p.expect(token.LPAREN)
	p.expect(token.VALUES)

	call := &FuncCall{Name: "VALUES"}
	for _, row := range p.parseValuesRows() {
		call.Args = append(call.Args, row...)
	}
	p.expectClose(token.RPAREN)

	fn := &TableFunc{Call: call}
	fn.Alias, _ = p.parseTableAlias()
	fn.Span = p.spanFrom(start)
	return fn
}

// parseParenJoin parses a parenthesized join tree.
func (p *Parser) parseParenJoin() *ParenJoin {
	start := p.token.Pos
	p.expect(token.LPAREN)
	pj := &ParenJoin{From: p.parseFromClause()}
	p.expectClose(token.RPAREN)

	pj.Alias, _ = p.parseTableAlias()
	pj.Span = p.spanFrom(start)
	return pj
}

// parseTableFunc parses a table-valued function call.
func (p *Parser) parseTableFunc() *TableFunc {
	start := p.token.Pos
	name := p.token.Literal
	p.nextToken()

	fn := &TableFunc{}
	if call, ok := p.parseFuncCall(name).(*FuncCall); ok {
		fn.Call = call
	}

	// WITH ORDINALITY
	if p.check(token.WITH) && isSoft(p.peek, "ordinality") {
		p.nextToken()
		p.nextToken()
	}

	fn.Alias, _ = p.parseTableAlias()
	fn.Span = p.spanFrom(start)
	return fn
}

// parseLateralTable parses a LATERAL subquery or function.
func (p *Parser) parseLateralTable() TableRef {
	if !p.check(token.LPAREN) {
		return p.parseTableFunc()
	}

	start := p.token.Pos
	p.expect(token.LPAREN)
	lateral := &LateralTable{}
	lateral.Select = p.parseSelectStmt()
	p.expectClose(token.RPAREN)

	lateral.Alias, _ = p.parseTableAlias()
	lateral.Span = p.spanFrom(start)
	return lateral
}

// parseJoin parses a JOIN clause. It returns nil when no join follows.
func (p *Parser) parseJoin() *Join {
	start := p.token.Pos
	join := &Join{}

	// Comma join (implicit cross join)
	if p.check(token.COMMA) {
		p.nextToken()
		if p.opts.Truncated && p.check(token.EOF) {
			return nil
		}
		join.Type = JoinComma
		join.Right = p.parseTableRef()
		join.Span = p.spanFrom(start)
		return join
	}

	// Hive: LATERAL VIEW [OUTER] explode(col) t AS c
	if p.check(token.LATERAL) && p.checkPeek(token.VIEW) {
		p.nextToken()
		p.nextToken()
		p.match(token.OUTER)
		join.Type = JoinCross
		fn := p.parseTableFunc()
		if p.match(token.AS) {
			for {
				if _, ok := p.identifier("column alias"); !ok || !p.match(token.COMMA) {
					break
				}
			}
		}
		join.Right = fn
		join.Span = p.spanFrom(start)
		return join
	}

	if p.match(token.NATURAL) {
		join.Natural = true
	}

	switch {
	case p.match(token.INNER):
		join.Type = JoinInner
	case p.match(token.LEFT):
		join.Type = JoinLeft
		p.matchJoinModifier()
	case p.match(token.RIGHT):
		join.Type = JoinRight
		p.matchJoinModifier()
	case p.match(token.FULL):
		join.Type = JoinFull
		p.match(token.OUTER)
	case p.check(token.CROSS) && isSoft(p.peek, "apply"), p.check(token.OUTER) && isSoft(p.peek, "apply"):
		// T-SQL: CROSS APPLY / OUTER APPLY
		p.nextToken()
		p.nextToken()
		join.Type = JoinCross
		return p.finishJoin(join, start, false)
	case p.match(token.CROSS):
		join.Type = JoinCross
	case isSoft(p.token, "straight_join"):
		p.nextToken()
		join.Type = JoinInner
		return p.finishJoin(join, start, true)
	case p.check(token.JOIN):
		join.Type = JoinInner
	default:
		if join.Natural {
			p.addError("expected JOIN after NATURAL")
		}
		return nil
	}

	// ClickHouse/DuckDB: ASOF / ANY modifiers
	if isSoft(p.token, "asof") || isSoft(p.token, "any") {
		p.nextToken()
	}

	if !p.expect(token.JOIN) {
		return nil
	}
	return p.finishJoin(join, start, true)
}

// matchJoinModifier consumes OUTER, SEMI or ANTI after LEFT/RIGHT.
func (p *Parser) matchJoinModifier() {
	if p.match(token.OUTER) {
		return
	}
	if isSoft(p.token, "semi") || isSoft(p.token, "anti") {
		p.nextToken()
	}
}

// finishJoin parses the joined table and its condition.
func (p *Parser) finishJoin(join *Join, start token.Position, withCondition bool) *Join {
	if p.opts.Truncated && p.check(token.EOF) {
		return nil
	}
	join.Right = p.parseTableRef()
	if withCondition {
		p.parseJoinCondition(join)
	}
	join.Span = p.spanFrom(start)
	return join
}

// parseJoinCondition handles ON/USING/NATURAL validation.
func (p *Parser) parseJoinCondition(join *Join) {
	switch {
	case join.Natural:
		if p.check(token.ON) || p.check(token.USING) {
			p.addError("NATURAL JOIN cannot have ON or USING clause")
		}
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.match(token.USING):
		join.Using = p.parseIdentList()
	}
}
