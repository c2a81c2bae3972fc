package parser

import (
	"github.com/shaweiguo/datahub/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels:
//
//	precOr         = 1
//	precAnd        = 2
//	precNot        = 3
//	precComparison = 4  (=, !=, <, >, <=, >=, ~, IS, IN, BETWEEN, LIKE, ILIKE, RLIKE)
//	precAddition   = 5  (+, -, ||, &, |, ^)
//	precMultiply   = 6  (*, /, %)
//	precUnary      = 7  (-, +, ~)
//	precPostfix    = 8  (::, [], ->, ->>, :path, COLLATE, AT TIME ZONE)

// Operator precedence levels.
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precComparison
	precAddition
	precMultiply
	precUnary
	precPostfix
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	p.enter()
	defer p.leave()

	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence()
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case token.NOT:
		if p.checkPeek(token.EXISTS) {
			p.nextToken()
			return p.parseExistsExpr(true)
		}
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precNot)
		return &UnaryExpr{Op: token.NOT, Expr: expr}

	case token.MINUS, token.PLUS, token.TILDE:
		op := p.token.Type
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		return &UnaryExpr{Op: op, Expr: expr}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precNone when it is not one.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE, token.TILDE,
		token.IS, token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return precComparison
	case token.NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE, NOT ILIKE, NOT RLIKE
		switch p.peek.Type {
		case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
			return precComparison
		}
		if isRegexOp(p.peek) || isSoft(p.peek, "similar") {
			return precComparison
		}
		return precNone
	case token.PLUS, token.MINUS, token.DPIPE, token.AMP, token.PIPE, token.CARET:
		return precAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiply
	case token.DCOLON, token.LBRACKET, token.ARROW, token.LONGARROW:
		return precPostfix
	case token.COLON:
		// Snowflake semi-structured path: v:field
		if p.isIdentLike(p.peek) || token.IsKeyword(p.peek.Type) {
			return precPostfix
		}
		return precNone
	case token.PARAM:
		// v:field lexes as v followed by the parameter ":field".
		if isPathParam(p.token) {
			return precPostfix
		}
		return precNone
	case token.IDENT:
		switch {
		case isRegexOp(p.token) && startsOperand(p.peek):
			return precComparison
		case isSoft(p.token, "similar") && isSoft(p.peek, "to"):
			return precComparison
		case isSoft(p.token, "collate") && (p.checkPeek(token.IDENT) || p.checkPeek(token.STRING)):
			return precPostfix
		case isSoft(p.token, "at") && isSoft(p.peek, "time") && isSoft(p.peek2, "zone"):
			return precPostfix
		}
	}
	return precNone
}

// isRegexOp reports MySQL/Hive regular expression match operators.
func isRegexOp(tok token.Token) bool {
	return isSoft(tok, "rlike") || isSoft(tok, "regexp")
}

// startsOperand reports whether tok can begin an operand expression.
func startsOperand(tok token.Token) bool {
	switch tok.Type {
	case token.STRING, token.PARAM, token.IDENT, token.LPAREN, token.NUMBER:
		return true
	}
	return false
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch p.token.Type {
	case token.NOT:
		return p.parseNotInfixExpr(left)

	case token.IS:
		return p.parseIsExpr(left)

	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, false)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)

	case token.LIKE, token.ILIKE:
		op := p.token.Type
		p.nextToken()
		return p.parseLikeExpr(left, false, op)

	case token.DCOLON:
		p.nextToken()
		return &CastExpr{Expr: left, TypeName: p.parseTypeName()}

	case token.LBRACKET:
		return p.parseIndexExpr(left)

	case token.COLON, token.PARAM:
		return p.parsePathExpr(left)

	case token.IDENT:
		return p.parseSoftInfixExpr(left, false)
	}

	op := p.token
	p.nextToken()

	// Right operand binds tighter, so operators are left-associative.
	right := p.parseExpressionWithPrecedence(prec + 1)

	return &BinaryExpr{Left: left, Op: op.Type, Right: right}
}

// parseSoftInfixExpr handles operators spelled as identifiers.
func (p *Parser) parseSoftInfixExpr(left Expr, not bool) Expr {
	switch {
	case isRegexOp(p.token):
		p.nextToken()
		return &LikeExpr{Expr: left, Not: not, Op: token.TILDE, Pattern: p.parseExpressionWithPrecedence(precAddition)}

	case isSoft(p.token, "similar"):
		p.nextToken()
		if !isSoft(p.token, "to") {
			p.addError("expected TO after SIMILAR")
			return left
		}
		p.nextToken()
		return p.parseLikeExpr(left, not, token.LIKE)

	case isSoft(p.token, "collate"):
		p.nextToken()
		p.nextToken() // collation name
		return left

	case isSoft(p.token, "at"):
		p.nextToken() // AT
		p.nextToken() // TIME
		p.nextToken() // ZONE
		zone := p.parseExpressionWithPrecedence(precUnary)
		return &FuncCall{Name: "TIMEZONE", Args: []Expr{zone, left}}
	}

	p.addError(describe(p.token) + " is not an operator")
	p.nextToken()
	return left
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT BETWEEN, NOT LIKE).
func (p *Parser) parseNotInfixExpr(left Expr) Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, true)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)

	case token.LIKE, token.ILIKE:
		op := p.token.Type
		p.nextToken()
		return p.parseLikeExpr(left, true, op)

	case token.IDENT:
		return p.parseSoftInfixExpr(left, true)

	default:
		p.addError("expected IN, BETWEEN, LIKE, or ILIKE after NOT")
		return left
	}
}

// parseIsExpr parses IS [NOT] NULL / TRUE / FALSE / UNKNOWN / DISTINCT FROM expr.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // consume IS

	is := &IsExpr{Expr: left, Not: p.match(token.NOT)}

	switch {
	case p.check(token.NULL):
		p.nextToken()
		is.Value = &Literal{Type: LiteralNull, Value: "null"}

	case p.check(token.TRUE):
		p.nextToken()
		is.Value = &Literal{Type: LiteralBool, Value: "true"}

	case p.check(token.FALSE):
		p.nextToken()
		is.Value = &Literal{Type: LiteralBool, Value: "false"}

	case isSoft(p.token, "unknown"):
		p.nextToken()
		is.Value = &Literal{Type: LiteralNull, Value: "unknown"}

	case p.check(token.DISTINCT):
		p.nextToken()
		p.expect(token.FROM)
		is.Value = p.parseExpressionWithPrecedence(precAddition)

	default:
		p.addError("expected NULL, TRUE, FALSE or DISTINCT FROM after IS")
		return left
	}

	return is
}

// parseInExpr parses an IN expression. Without parentheses the right side is a
// single operand: x IN UNNEST(arr), x IN @param.
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	in := &InExpr{Expr: left, Not: not}

	if !p.match(token.LPAREN) {
		in.Values = []Expr{p.parseExpressionWithPrecedence(precAddition)}
		return in
	}

	switch {
	case p.check(token.SELECT), p.check(token.WITH):
		in.Query = p.parseSelectStmt()
	case p.check(token.RPAREN):
		// IN ()
	default:
		in.Values = p.parseExpressionList()
	}

	p.expectClose(token.RPAREN)
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	between := &BetweenExpr{Expr: left, Not: not}
	if isSoft(p.token, "symmetric") || isSoft(p.token, "asymmetric") {
		p.nextToken()
	}
	// Parse low bound at addition precedence to avoid capturing AND
	between.Low = p.parseExpressionWithPrecedence(precAddition)
	p.expect(token.AND)
	between.High = p.parseExpressionWithPrecedence(precAddition)
	return between
}

// parseLikeExpr parses a LIKE/ILIKE expression with optional ANY/ALL and ESCAPE.
func (p *Parser) parseLikeExpr(left Expr, not bool, op token.TokenType) Expr {
	like := &LikeExpr{Expr: left, Not: not, Op: op}

	// Snowflake: LIKE ANY ('a%', 'b%')
	if (p.check(token.ALL) || isSoft(p.token, "any") || isSoft(p.token, "some")) && p.checkPeek(token.LPAREN) {
		p.nextToken()
	}

	like.Pattern = p.parseExpressionWithPrecedence(precAddition)

	if isSoft(p.token, "escape") {
		p.nextToken()
		like.Escape = p.parsePrimary()
	}
	return like
}

// parseIndexExpr parses subscript access and slices: arr[1], arr[1:2], obj['k'].
func (p *Parser) parseIndexExpr(left Expr) Expr {
	p.expect(token.LBRACKET)
	idx := &IndexExpr{Expr: left}
	if !p.check(token.COLON) && !p.check(token.RBRACKET) {
		idx.Index = p.parseExpression()
	}
	if p.match(token.COLON) && !p.check(token.RBRACKET) {
		p.parseExpression()
	}
	p.expectClose(token.RBRACKET)
	return idx
}

func isPathParam(tok token.Token) bool {
	return tok.Type == token.PARAM && len(tok.Literal) > 1 && tok.Literal[0] == ':'
}

// parsePathExpr parses a Snowflake semi-structured path: v:a.b[0].
func (p *Parser) parsePathExpr(left Expr) Expr {
	var path string
	if isPathParam(p.token) {
		path = p.token.Literal[1:]
	} else {
		p.expect(token.COLON)
		path = p.token.Literal
	}
	p.nextToken()
	for p.check(token.DOT) && (p.isIdentLike(p.peek) || token.IsKeyword(p.peek.Type)) {
		p.nextToken()
		path += "." + p.token.Literal
		p.nextToken()
	}
	return &IndexExpr{Expr: left, Index: &Literal{Type: LiteralString, Value: path}}
}
