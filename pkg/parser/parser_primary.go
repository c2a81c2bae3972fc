package parser

import (
	"fmt"
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | column_ref | func_call | paren_expr | case_expr
//	              | cast_expr | exists_expr | interval_expr | array_expr
//	literal       → NUMBER | STRING | PARAM | TRUE | FALSE | NULL | type_name STRING
//	column_ref    → identifier ("." identifier)* ["." "*"]
//	func_call     → name "(" [DISTINCT|ALL] [args] [ORDER BY order_list] ")"
//	                [WITHIN GROUP "(" ORDER BY order_list ")"]
//	                [FILTER "(" WHERE expr ")"] [IGNORE|RESPECT NULLS] [OVER window_spec]
//	args          → "*" | arg (("," | FROM | FOR) arg)*

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case token.NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.PARAM:
		lit := &Literal{Type: LiteralParam, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "true"}

	case token.FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "false"}

	case token.NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "null"}

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		p.nextToken()
		return p.parseCastCall()

	case token.EXISTS:
		return p.parseExistsExpr(false)

	case token.NOT:
		if p.checkPeek(token.EXISTS) {
			p.nextToken()
			return p.parseExistsExpr(true)
		}
		p.nextToken()
		return &UnaryExpr{Op: token.NOT, Expr: p.parsePrimary()}

	case token.INTERVAL:
		return p.parseIntervalExpr()

	case token.LPAREN:
		return p.parseParenExpr()

	case token.LBRACKET:
		return p.parseArrayLiteral()

	case token.STAR:
		p.nextToken()
		return &StarExpr{}

	case token.IDENT:
		return p.parseIdentifierExpr()

	case token.LEFT, token.RIGHT, token.ALL:
		// Keywords used as function names: LEFT(s, 3), RIGHT(s, 3), x = ALL(SELECT ...)
		if p.checkPeek(token.LPAREN) {
			name := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(name)
		}
	}

	if token.IsNonReserved(p.token.Type) {
		return p.parseIdentifierExpr()
	}

	p.addError(fmt.Sprintf(ErrUnexpectedInExpr, describe(p.token)))
	if !p.check(token.EOF) {
		p.nextToken()
	}
	return nil
}

// castFunctions are function-call spellings of CAST.
var castFunctions = map[string]bool{
	"TRY_CAST":  true,
	"SAFE_CAST": true,
}

// parseIdentifierExpr parses an identifier which could be a column ref,
// function call or typed literal.
func (p *Parser) parseIdentifierExpr() Expr {
	tok := p.token
	name := tok.Literal
	p.nextToken()

	switch {
	case p.check(token.LPAREN):
		if castFunctions[strings.ToUpper(name)] {
			return p.parseCastCall()
		}
		return p.parseFuncCall(name)

	case p.check(token.DOT):
		return p.parseQualifiedRef(name)

	case tok.Type == token.IDENT && !tok.Quoted && p.check(token.STRING):
		// Typed literal: DATE '2020-01-01', TIMESTAMP '...', X'ff'
		lit := &Literal{Type: LiteralString, Value: p.token.Literal, TypeName: strings.ToUpper(name)}
		p.nextToken()
		return lit

	case tok.Type == token.IDENT && !tok.Quoted && strings.EqualFold(name, "array") && p.check(token.LBRACKET):
		return p.parseArrayLiteral()
	}

	return &ColumnRef{Column: name}
}

// parseQualifiedRef parses a dotted reference: t.col, s.t.col, t.*, s.fn(x).
func (p *Parser) parseQualifiedRef(firstPart string) Expr {
	parts := []string{firstPart}

	for p.match(token.DOT) {
		if p.check(token.STAR) {
			p.nextToken()
			return &StarExpr{Table: parts[len(parts)-1]}
		}

		if p.isIdentLike(p.token) || token.IsKeyword(p.token.Type) {
			parts = append(parts, p.token.Literal)
			p.nextToken()
			continue
		}

		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "identifier after '.'"))
		break
	}

	// Schema-qualified function: my_schema.my_func(x)
	if p.check(token.LPAREN) {
		return p.parseFuncCall(strings.Join(parts, "."))
	}

	ref := &ColumnRef{Column: parts[len(parts)-1]}
	if n := len(parts); n >= 2 {
		ref.Table = parts[n-2]
		if n >= 3 {
			ref.Schema = parts[n-3]
		}
	}
	return ref
}

// datePartFunctions take a bare date part keyword as their first argument.
var datePartFunctions = map[string]bool{
	"DATEADD":       true,
	"DATEDIFF":      true,
	"DATE_ADD":      true,
	"DATE_DIFF":     true,
	"DATEPART":      true,
	"DATENAME":      true,
	"DATE_PART":     true,
	"DATE_TRUNC":    true,
	"TIMESTAMPADD":  true,
	"TIMESTAMPDIFF": true,
	"TIMESTAMP_ADD": true,
	"TIMESTAMP_SUB": true,
	"LAST_DAY":      true,
}

// trimSpecs are the optional first words of TRIM(...).
var trimSpecs = []string{"both", "leading", "trailing"}

// parseFuncCall parses a function call after its name.
func (p *Parser) parseFuncCall(name string) Expr {
	fn := &FuncCall{Name: strings.ToUpper(name)}

	p.expect(token.LPAREN)

	if p.check(token.STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(token.RPAREN) {
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		} else if !p.checkPeek(token.LPAREN) {
			p.match(token.ALL)
		}

		if fn.Name == "TRIM" {
			for _, spec := range trimSpecs {
				if isSoft(p.token, spec) {
					p.nextToken()
					break
				}
			}
		}

		p.parseFuncArgs(fn)
	}

	p.expectClose(token.RPAREN)
	p.parseFuncSuffix(fn)
	return fn
}

// parseFuncArgs parses the argument list and in-parenthesis modifiers.
func (p *Parser) parseFuncArgs(fn *FuncCall) {
	for i := 0; ; i++ {
		switch {
		case p.check(token.RPAREN), p.check(token.EOF):
			return

		case p.match(token.FROM):
			// TRIM(FROM s), SUBSTRING(s FROM 1)
			continue

		case i == 0 && p.isDatePartArg(fn):
			fn.Args = append(fn.Args, &Literal{Type: LiteralString, Value: strings.ToUpper(p.token.Literal)})
			p.nextToken()

		case p.check(token.SELECT), p.check(token.WITH):
			fn.Args = append(fn.Args, &SubqueryExpr{Select: p.parseSelectStmt()})

		case p.isIdentLike(p.token) && p.checkPeek(token.EQ) && p.checkPeek2(token.GT):
			// Named argument: input => expr
			p.nextToken()
			p.nextToken()
			p.nextToken()
			fn.Args = append(fn.Args, p.parseExpression())

		default:
			fn.Args = append(fn.Args, p.parseExpression())
		}

		// In-parenthesis modifiers
		switch {
		case p.match(token.ORDER):
			p.expect(token.BY)
			fn.OrderBy = p.parseOrderByList()
		case isSoft(p.token, SoftKeywordIgnore), isSoft(p.token, SoftKeywordRespect):
			p.nextToken()
			p.expect(token.NULLS)
		}
		if p.match(token.LIMIT) {
			p.parseExpression()
		}
		if isSoft(p.token, "separator") {
			p.nextToken()
			p.parsePrimary()
		}

		switch {
		case p.match(token.COMMA), p.match(token.FROM):
		case isSoft(p.token, SoftKeywordFor):
			p.nextToken()
		case p.match(token.AS):
			// CONVERT(x AS type), JSON_VALUE(x RETURNING ...) style type tails
			p.parseTypeName()
			return
		default:
			return
		}
	}
}

// isDatePartArg reports whether the current token is a bare date part
// leading the arguments of EXTRACT or a date arithmetic function.
func (p *Parser) isDatePartArg(fn *FuncCall) bool {
	if p.token.Type != token.IDENT || p.token.Quoted {
		return false
	}
	switch {
	case fn.Name == "EXTRACT":
		return p.checkPeek(token.FROM)
	case datePartFunctions[fn.Name]:
		return p.checkPeek(token.COMMA) && isDatePart(p.token.Literal)
	}
	return false
}

// parseFuncSuffix parses WITHIN GROUP, FILTER, IGNORE/RESPECT NULLS and OVER.
func (p *Parser) parseFuncSuffix(fn *FuncCall) {
	if p.match(token.WITHIN) {
		p.expect(token.GROUP)
		p.expect(token.LPAREN)
		p.expect(token.ORDER)
		p.expect(token.BY)
		fn.OrderBy = p.parseOrderByList()
		p.expectClose(token.RPAREN)
	}

	if p.check(token.FILTER) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.expect(token.LPAREN)
		p.expect(token.WHERE)
		fn.Filter = p.parseExpression()
		p.expectClose(token.RPAREN)
	}

	if (isSoft(p.token, SoftKeywordIgnore) || isSoft(p.token, SoftKeywordRespect)) && p.checkPeek(token.NULLS) {
		p.nextToken()
		p.nextToken()
	}

	if p.match(token.OVER) {
		fn.Window = p.parseWindowSpec()
	}
}

// parseArrayLiteral parses [a, b] or ARRAY[a, b].
func (p *Parser) parseArrayLiteral() Expr {
	p.expect(token.LBRACKET)
	fn := &FuncCall{Name: "ARRAY"}
	if !p.check(token.RBRACKET) {
		fn.Args = p.parseExpressionList()
	}
	p.expectClose(token.RBRACKET)
	return fn
}

var dateParts = map[string]bool{
	"year": true, "years": true, "yy": true, "yyyy": true,
	"quarter": true, "qq": true,
	"month": true, "months": true, "mm": true, "mon": true,
	"week": true, "weeks": true, "wk": true, "isoweek": true,
	"day": true, "days": true, "dd": true, "d": true, "dayofweek": true, "dayofyear": true, "dow": true, "doy": true,
	"hour": true, "hours": true, "hh": true,
	"minute": true, "minutes": true, "mi": true, "n": true,
	"second": true, "seconds": true, "ss": true, "s": true,
	"millisecond": true, "milliseconds": true, "ms": true,
	"microsecond": true, "microseconds": true, "us": true,
	"nanosecond": true, "nanoseconds": true, "ns": true,
	"epoch": true,
}

func isDatePart(word string) bool {
	return dateParts[strings.ToLower(word)]
}
