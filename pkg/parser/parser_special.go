package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Special expression parsing: CASE, CAST, EXISTS, INTERVAL, parenthesized expressions, subqueries.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → (CAST | TRY_CAST | SAFE_CAST) "(" expr AS type_name [FORMAT expr] ")"
//	exists_expr   → [NOT] EXISTS "(" select_stmt ")"
//	interval_expr → INTERVAL operand [unit [TO unit]]
//	paren_expr    → "(" [expr_list] ")" | "(" select_stmt ")"
//	type_name     → identifier+ ["(" params ")"] ["<" ... ">"] ["[" "]"]*

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() Expr {
	p.expect(token.CASE)
	caseExpr := &CaseExpr{}

	// Simple CASE: CASE expr WHEN ...
	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	for p.match(token.WHEN) {
		when := WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}

	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expectClose(token.END)
	return caseExpr
}

// parseCastCall parses "(" expr AS type_name ")" after a CAST-like name.
func (p *Parser) parseCastCall() Expr {
	p.expect(token.LPAREN)

	cast := &CastExpr{}
	cast.Expr = p.parseExpression()

	p.expect(token.AS)
	cast.TypeName = p.parseTypeName()

	// BigQuery: CAST(x AS STRING FORMAT 'YYYY')
	if isSoft(p.token, "format") {
		p.nextToken()
		p.parsePrimary()
	}

	p.expectClose(token.RPAREN)
	return cast
}

// typeNameWords may continue a multi-word type name.
var typeNameWords = []string{"precision", "varying", "unsigned", "signed"}

// parseTypeName parses a type name with optional parameters.
func (p *Parser) parseTypeName() string {
	if !p.isIdentLike(p.token) && !token.IsKeyword(p.token.Type) {
		p.addError("expected type name, got " + describe(p.token))
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.ToUpper(p.token.Literal))
	p.nextToken()

	// Qualified types: pg_catalog.int4
	for p.check(token.DOT) && p.isIdentLike(p.peek) {
		p.nextToken()
		b.WriteString("." + strings.ToUpper(p.token.Literal))
		p.nextToken()
	}

	for {
		switch {
		case p.check(token.IDENT) && containsFold(typeNameWords, p.token.Literal):
			b.WriteString(" " + strings.ToUpper(p.token.Literal))
			p.nextToken()
			continue
		case (p.check(token.WITH) || isSoft(p.token, "without")) && isSoft(p.peek, "time") && isSoft(p.peek2, "zone"):
			b.WriteString(" " + strings.ToUpper(p.token.Literal) + " TIME ZONE")
			p.nextToken()
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	// Type parameters like VARCHAR(255) or DECIMAL(10, 2)
	if p.check(token.LPAREN) {
		start := p.token.Pos
		p.skipParens()
		b.WriteString(p.textFrom(start))
	}

	// Parameterised types: ARRAY<INT>, STRUCT<a INT, b STRING>
	if p.check(token.LT) && isContainerType(b.String()) {
		start := p.token.Pos
		depth := 0
		for !p.check(token.EOF) {
			switch p.token.Type {
			case token.LT:
				depth++
			case token.GT:
				depth--
			}
			p.nextToken()
			if depth == 0 {
				break
			}
		}
		b.WriteString(p.textFrom(start))
	}

	// Array types: INT[], TEXT[][]
	for p.check(token.LBRACKET) && p.checkPeek(token.RBRACKET) {
		p.nextToken()
		p.nextToken()
		b.WriteString("[]")
	}

	return b.String()
}

func isContainerType(name string) bool {
	switch name {
	case "ARRAY", "STRUCT", "MAP":
		return true
	}
	return false
}

func containsFold(words []string, s string) bool {
	for _, w := range words {
		if strings.EqualFold(w, s) {
			return true
		}
	}
	return false
}

// parseParenExpr parses a parenthesized expression, row constructor or subquery.
func (p *Parser) parseParenExpr() Expr {
	p.expect(token.LPAREN)

	if p.check(token.SELECT) || p.check(token.WITH) {
		subquery := &SubqueryExpr{Select: p.parseSelectStmt()}
		p.expectClose(token.RPAREN)
		return subquery
	}

	paren := &ParenExpr{}
	if !p.check(token.RPAREN) {
		paren.Exprs = p.parseExpressionList()
	}

	p.expectClose(token.RPAREN)
	return paren
}

// parseExistsExpr parses an EXISTS expression.
func (p *Parser) parseExistsExpr(not bool) Expr {
	p.expect(token.EXISTS)

	p.expect(token.LPAREN)
	exists := &ExistsExpr{Not: not, Select: p.parseSelectStmt()}
	p.expectClose(token.RPAREN)

	return exists
}

// intervalUnits are the unit words accepted after an INTERVAL operand.
var intervalUnits = map[string]bool{
	"year": true, "years": true, "quarter": true, "quarters": true,
	"month": true, "months": true, "week": true, "weeks": true,
	"day": true, "days": true, "hour": true, "hours": true,
	"minute": true, "minutes": true, "second": true, "seconds": true,
	"millisecond": true, "milliseconds": true, "microsecond": true, "microseconds": true,
	"year_month": true, "day_hour": true, "day_minute": true, "day_second": true,
	"hour_minute": true, "hour_second": true, "minute_second": true,
}

// parseIntervalExpr parses INTERVAL '1' DAY, INTERVAL 3 HOUR, INTERVAL '1-2' YEAR TO MONTH.
func (p *Parser) parseIntervalExpr() Expr {
	p.expect(token.INTERVAL)

	value := p.parseExpressionWithPrecedence(precUnary)

	unit := ""
	if p.check(token.IDENT) && intervalUnits[strings.ToLower(p.token.Literal)] {
		unit = strings.ToUpper(p.token.Literal)
		p.nextToken()
		if isSoft(p.token, "to") && intervalUnits[strings.ToLower(p.peek.Literal)] {
			p.nextToken()
			unit += " TO " + strings.ToUpper(p.token.Literal)
			p.nextToken()
		}
	}

	if lit, ok := value.(*Literal); ok {
		return &Literal{Type: LiteralInterval, Value: strings.TrimSpace(lit.Value + " " + unit), TypeName: "INTERVAL"}
	}
	// INTERVAL x DAY keeps the column operand visible.
	return &CastExpr{Expr: value, TypeName: strings.TrimSpace("INTERVAL " + unit)}
}
