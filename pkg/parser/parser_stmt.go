package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Statement parsing: dispatch, WITH clause, CTEs, SELECT body, SELECT list, ORDER BY.
//
// Grammar:
//
//	statement     → [WITH cte_list] (select_stmt | insert_stmt) | insert_stmt | create_stmt
//	cte_list      → cte ("," cte)*
//	cte           → identifier ["(" ident_list ")"] AS [[NOT] MATERIALIZED] "(" select_stmt ")"
//	select_body   → select_operand [set_op select_body]
//	set_op        → (UNION|INTERSECT|EXCEPT|MINUS) [ALL|DISTINCT]
//	select_operand→ select_core | "(" select_stmt ")" [order/limit clauses]
//	select_core   → SELECT [DISTINCT [ON "(" expr_list ")"]|ALL] [TOP n] select_list
//	                [FROM from_clause] clauses
//	select_list   → select_item ("," select_item)* [","]
//	select_item   → "*" [star_modifier] | qualifier "." "*" | expr [[AS] identifier]
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC] [NULLS FIRST|LAST]

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() Statement {
	start := p.token.Pos

	switch {
	case p.check(token.WITH):
		with := p.parseWithClause()
		if p.check(token.INSERT) {
			ins := p.parseInsert(start)
			if ins.Select != nil {
				attachWith(ins.Select, with)
			}
			return ins
		}
		stmt := &SelectStmt{With: with}
		stmt.Body = p.parseSelectBody()
		stmt.Span = p.spanFrom(start)
		return stmt

	case p.check(token.SELECT), p.check(token.LPAREN):
		return p.parseSelectStmt()

	case p.check(token.INSERT):
		return p.parseInsert(start)

	case p.check(token.CREATE):
		return p.parseCreate(start)
	}

	if IsStatementStart(p.token) {
		p.skipUnsupported(strings.ToUpper(p.token.Literal))
		return nil
	}

	p.addError("expected SELECT, WITH, INSERT or CREATE at start of statement, got " + describe(p.token))
	return nil
}

// skipUnsupported records an unsupported statement and consumes the rest of it.
func (p *Parser) skipUnsupported(keyword string) {
	if p.unsupported == nil {
		p.unsupported = &UnsupportedError{Pos: p.token.Pos, Keyword: keyword}
	}
	p.skipToEnd()
}

// skipToEnd consumes every remaining token of the statement.
func (p *Parser) skipToEnd() {
	for !p.check(token.EOF) {
		p.nextToken()
	}
}

// attachWith prepends a statement-level WITH clause to a query.
func attachWith(stmt *SelectStmt, with *WithClause) {
	if stmt.With == nil {
		stmt.With = with
		return
	}
	merged := *with
	merged.CTEs = append(append([]*CTE{}, with.CTEs...), stmt.With.CTEs...)
	merged.Recursive = with.Recursive || stmt.With.Recursive
	stmt.With = &merged
}

// parseSelectStmt parses [WITH cte_list] select_body.
func (p *Parser) parseSelectStmt() *SelectStmt {
	p.enter()
	defer p.leave()

	start := p.token.Pos
	stmt := &SelectStmt{}

	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}

	stmt.Body = p.parseSelectBody()
	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *WithClause {
	start := p.token.Pos
	p.expect(token.WITH)
	with := &WithClause{}

	if p.match(token.RECURSIVE) {
		with.Recursive = true
	}

	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(token.COMMA) {
			break
		}
	}

	with.Span = p.spanFrom(start)
	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *CTE {
	start := p.token.Pos
	cte := &CTE{}

	name, ok := p.identifier("CTE name")
	if !ok {
		return cte
	}
	cte.Name = name

	if p.check(token.LPAREN) {
		cte.Columns = p.parseIdentList()
	}

	p.expect(token.AS)

	// Postgres: AS [NOT] MATERIALIZED
	if p.check(token.NOT) && isSoft(p.peek, "materialized") {
		p.nextToken()
	}
	if isSoft(p.token, "materialized") {
		p.nextToken()
	}

	p.expect(token.LPAREN)
	cte.Select = p.parseSelectStmt()
	p.expectClose(token.RPAREN)

	cte.Span = p.spanFrom(start)
	return cte
}

// parseSelectBody parses a SELECT body with possible set operations.
func (p *Parser) parseSelectBody() *SelectBody {
	p.enter()
	defer p.leave()

	start := p.token.Pos
	body := &SelectBody{}

	if p.match(token.LPAREN) {
		body.Nested = p.parseSelectStmt()
		p.expectClose(token.RPAREN)
		// ORDER BY / LIMIT applied to a parenthesized operand carry no lineage.
		p.parseClauses(&SelectCore{})
	} else {
		body.Left = p.parseSelectCore()
	}

	if op, all, ok := p.parseSetOp(); ok {
		body.Op = op
		body.All = all
		body.Right = p.parseSelectBody()
	}

	body.Span = p.spanFrom(start)
	return body
}

// parseSetOp consumes a set operator if one is present.
func (p *Parser) parseSetOp() (SetOpType, bool, bool) {
	var op SetOpType
	switch {
	case p.check(token.UNION):
		op = SetOpUnion
	case p.check(token.INTERSECT):
		op = SetOpIntersect
	case p.check(token.EXCEPT):
		op = SetOpExcept
	case isSoft(p.token, SoftKeywordMinus) && (p.checkPeek(token.SELECT) || p.checkPeek(token.LPAREN)):
		op = SetOpExcept
	default:
		return SetOpNone, false, false
	}
	p.nextToken()

	all := false
	if p.match(token.ALL) {
		all = true
		if op == SetOpUnion {
			op = SetOpUnionAll
		}
	} else {
		p.match(token.DISTINCT)
	}

	// DuckDB: UNION [ALL] BY NAME
	if p.check(token.BY) && isSoft(p.peek, "name") {
		p.nextToken()
		p.nextToken()
	}

	return op, all, true
}

// parseSelectCore parses a single SELECT clause.
func (p *Parser) parseSelectCore() *SelectCore {
	start := p.token.Pos
	p.expect(token.SELECT)
	core := &SelectCore{}

	if p.match(token.DISTINCT) {
		core.Distinct = true
		// Postgres: DISTINCT ON (expr, ...)
		if p.match(token.ON) {
			p.expect(token.LPAREN)
			p.parseExpressionList()
			p.expectClose(token.RPAREN)
		}
	} else {
		p.match(token.ALL)
	}

	// T-SQL: TOP n / TOP (n)
	if isSoft(p.token, "top") && (p.checkPeek(token.NUMBER) || p.checkPeek(token.LPAREN)) {
		p.nextToken()
		p.parsePrimary()
	}

	core.Columns = p.parseSelectList()

	if p.match(token.FROM) {
		core.From = p.parseFromClause()
	}

	p.parseClauses(core)

	core.Span = p.spanFrom(start)
	return core
}

// parseClauses parses the clauses that may follow FROM, in any order.
func (p *Parser) parseClauses(core *SelectCore) {
	for {
		switch {
		case p.match(token.WHERE):
			core.Where = p.parseExpression()

		case p.match(token.GROUP):
			p.expect(token.BY)
			core.GroupBy = p.parseGroupBy()

		case p.match(token.HAVING):
			core.Having = p.parseExpression()

		case p.match(token.WINDOW):
			core.Windows = append(core.Windows, p.parseWindowDefs()...)

		case p.match(token.QUALIFY):
			core.Qualify = p.parseExpression()

		case p.match(token.ORDER):
			p.expect(token.BY)
			core.OrderBy = p.parseOrderByList()

		case p.match(token.LIMIT):
			if !p.match(token.ALL) {
				core.Limit = p.parseExpression()
			}
			// MySQL: LIMIT offset, count
			if p.match(token.COMMA) {
				core.Offset = core.Limit
				core.Limit = p.parseExpression()
			}

		case p.match(token.OFFSET):
			core.Offset = p.parseExpression()
			if !p.match(token.ROW) {
				p.match(token.ROWS)
			}

		case p.match(token.FETCH):
			core.Fetch = p.parseFetch()

		case p.isSoftClause(p.token) && !isSoft(p.token, SoftKeywordMinus):
			// Hive: DISTRIBUTE BY / SORT BY / CLUSTER BY
			p.nextToken()
			p.expect(token.BY)
			p.parseOrderByList()

		default:
			return
		}
	}
}

// parseGroupBy parses the GROUP BY element list.
func (p *Parser) parseGroupBy() []Expr {
	if p.match(token.ALL) {
		return nil
	}

	var exprs []Expr
	for {
		if isSoft(p.token, "grouping") && isSoft(p.peek, "sets") {
			p.nextToken()
			p.nextToken()
			exprs = append(exprs, p.parsePrimary())
		} else {
			exprs = append(exprs, p.parseExpression())
		}
		if !p.match(token.COMMA) {
			break
		}
	}

	// MySQL: WITH ROLLUP
	if p.check(token.WITH) && isSoft(p.peek, "rollup") {
		p.nextToken()
		p.nextToken()
	}
	return exprs
}

// parseFetch parses FETCH {FIRST|NEXT} [n] [PERCENT] {ROW|ROWS} {ONLY|WITH TIES}.
func (p *Parser) parseFetch() *FetchClause {
	fetch := &FetchClause{}

	switch {
	case p.match(token.FIRST):
		fetch.First = true
	case isSoft(p.token, SoftKeywordNext):
		p.nextToken()
	default:
		p.addError("expected FIRST or NEXT after FETCH")
		return fetch
	}

	if !p.check(token.ROW) && !p.check(token.ROWS) {
		fetch.Count = p.parsePrimary()
	}
	if isSoft(p.token, SoftKeywordPercent) {
		fetch.Percent = true
		p.nextToken()
	}
	if !p.match(token.ROW) {
		p.expect(token.ROWS)
	}

	switch {
	case p.match(token.ONLY):
	case p.check(token.WITH) && isSoft(p.peek, SoftKeywordTies):
		p.nextToken()
		p.nextToken()
		fetch.WithTies = true
	default:
		p.addError("expected ONLY or WITH TIES")
	}
	return fetch
}

// parseSelectList parses the list of SELECT items.
func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem

	for {
		items = append(items, p.parseSelectItem())

		if !p.match(token.COMMA) {
			break
		}
		// Trailing comma before FROM (Snowflake, DuckDB, BigQuery)
		if p.check(token.FROM) || p.check(token.EOF) {
			break
		}
	}

	return items
}

// parseSelectItem parses a single SELECT item.
func (p *Parser) parseSelectItem() SelectItem {
	item := SelectItem{}

	if p.check(token.STAR) {
		item.Star = true
		item.Raw = "*"
		p.nextToken()
		p.skipStarModifiers()
		return item
	}

	start := p.token.Pos
	item.Expr = p.parseExpression()
	item.Raw = p.textFrom(start)

	if star, ok := item.Expr.(*StarExpr); ok {
		item.Expr = nil
		item.TableStar = star.Table
		p.skipStarModifiers()
		return item
	}

	item.Alias = p.parseAlias()
	return item
}

// skipStarModifiers consumes EXCLUDE/EXCEPT/REPLACE/RENAME lists after a star.
func (p *Parser) skipStarModifiers() {
	for {
		switch {
		case isSoft(p.token, "exclude"), isSoft(p.token, "rename"):
			p.nextToken()
		case (p.check(token.EXCEPT) || p.check(token.REPLACE)) && p.checkPeek(token.LPAREN):
			p.nextToken()
		default:
			return
		}
		if p.check(token.LPAREN) {
			p.skipParens()
		} else {
			// EXCLUDE col
			p.identifier("column name")
		}
	}
}

// skipParens consumes a balanced parenthesized group.
func (p *Parser) skipParens() {
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.nextToken()
		if depth == 0 {
			return
		}
	}
	if !p.opts.Truncated {
		p.addError("unbalanced parentheses")
	}
}

// parseOrderByList parses a list of ORDER BY items.
func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem

	for {
		items = append(items, p.parseOrderByItem())

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseOrderByItem parses a single ORDER BY item.
func (p *Parser) parseOrderByItem() OrderByItem {
	item := OrderByItem{}
	item.Expr = p.parseExpression()

	if p.match(token.ASC) {
		item.Desc = false
	} else if p.match(token.DESC) {
		item.Desc = true
	}

	if p.match(token.NULLS) {
		if p.match(token.FIRST) {
			b := true
			item.NullsFirst = &b
		} else if p.match(token.LAST) {
			b := false
			item.NullsFirst = &b
		}
	}

	return item
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr

	for {
		exprs = append(exprs, p.parseExpression())

		if !p.match(token.COMMA) {
			break
		}
	}

	return exprs
}
