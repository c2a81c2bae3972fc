// Package parser turns SQL text into statement-level syntax trees for
// lineage extraction.
//
// # Usage
//
//	stmts, errs := parser.ParseStatements("INSERT INTO t2 SELECT a FROM t1; SELECT 1")
//
// Each statement is parsed independently: a syntax error in one statement is
// reported in errs and does not stop its siblings from parsing.
//
// # Grammar Overview
//
// The parser implements a permissive recursive descent parser for the
// lineage-bearing subset of SQL:
//
//	statement     → [WITH cte_list] (select_stmt | insert_stmt)
//	              | insert_stmt | create_stmt
//	select_stmt   → select_body
//	select_body   → select_operand [(UNION|INTERSECT|EXCEPT|MINUS) [ALL|DISTINCT] select_body]
//	select_operand→ select_core | "(" select_stmt ")"
//	select_core   → SELECT [DISTINCT] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [WINDOW ...] [QUALIFY expr] [ORDER BY order_list] [LIMIT expr] [OFFSET expr]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/shaweiguo/datahub/pkg/token"
)

// maxDepth bounds expression and subquery nesting.
const maxDepth = 256

// maxErrors stops a statement after this many errors.
const maxErrors = 32

// Options tunes parser leniency.
type Options struct {
	// Truncated allows the statement to end early: missing closing
	// parentheses at end of input and a dangling join are accepted.
	Truncated bool
}

// Parser parses one statement's tokens into an AST.
type Parser struct {
	input   string
	tokens  []token.Token
	idx     int
	token   token.Token // current token
	peek    token.Token // lookahead token
	peek2   token.Token // second lookahead token
	prevEnd token.Position
	errors  []error
	depth   int
	opts    Options

	unsupported *UnsupportedError
}

// bailout aborts a statement that produced too many errors.
type bailout struct{}

// NewParser creates a parser for a single pre-split segment.
func NewParser(seg Segment, opts Options) *Parser {
	p := &Parser{
		input:  seg.Source,
		tokens: seg.Tokens,
		idx:    -1,
		opts:   opts,
	}
	p.nextToken()
	return p
}

// Parse parses a single statement. Only the first statement of sql is used.
func Parse(sql string) (Statement, error) {
	segs := Split(sql)
	if len(segs) == 0 {
		return nil, &ParseError{Pos: token.Position{Line: 1, Column: 1}, Message: "empty input"}
	}
	return ParseSegment(segs[0], Options{})
}

// ParseStatements splits sql and parses every statement. Statements that fail
// are left out of stmts and reported in errs, in input order.
func ParseStatements(sql string) (stmts []Statement, errs []error) {
	return ParseStatementsWithOptions(sql, Options{})
}

// ParseStatementsWithOptions is ParseStatements with explicit options.
func ParseStatementsWithOptions(sql string, opts Options) (stmts []Statement, errs []error) {
	for _, seg := range Split(sql) {
		stmt, err := ParseSegment(seg, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, errs
}

// ParseSegment parses one statement segment.
func ParseSegment(seg Segment, opts Options) (stmt Statement, err error) {
	if len(seg.LexErrors) > 0 {
		return nil, seg.LexErrors[0]
	}

	p := NewParser(seg, opts)
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			stmt, err = nil, p.errors[0]
		}
	}()

	stmt = p.parseStatement()
	if p.unsupported != nil {
		return nil, p.unsupported
	}
	if len(p.errors) == 0 && !p.check(token.EOF) {
		p.addError(fmt.Sprintf(ErrTrailingTokens, describe(p.token)))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ---------- Token Helpers ----------

func (p *Parser) at(i int) token.Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	var end token.Position
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].End
	}
	return token.Token{Type: token.EOF, Pos: end, End: end}
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.idx >= 0 {
		p.prevEnd = p.token.End
	}
	if p.idx < len(p.tokens) {
		p.idx++
	}
	p.token = p.at(p.idx)
	p.peek = p.at(p.idx + 1)
	p.peek2 = p.at(p.idx + 2)
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

// expectClose expects a closing token; truncated input may end instead.
func (p *Parser) expectClose(t token.TokenType) bool {
	if p.opts.Truncated && p.check(token.EOF) {
		return true
	}
	return p.expect(t)
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
	if len(p.errors) >= maxErrors {
		panic(bailout{})
	}
}

// enter guards recursion depth; callers defer p.leave().
func (p *Parser) enter() {
	p.depth++
	if p.depth > maxDepth {
		p.errors = append(p.errors, &ParseError{Pos: p.token.Pos, Message: "query nested too deeply"})
		panic(bailout{})
	}
}

func (p *Parser) leave() {
	p.depth--
}

// spanFrom returns the span from start to the end of the last consumed token.
func (p *Parser) spanFrom(start token.Position) token.Span {
	return token.Span{Start: start, End: p.prevEnd}
}

// textFrom returns the source text from start to the last consumed token.
func (p *Parser) textFrom(start token.Position) string {
	return p.spanFrom(start).Text(p.input)
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER, token.STRING, token.PARAM, token.ILLEGAL:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

// ---------- Keyword Helpers ----------

// isIdentLike returns true for identifiers and non-reserved keywords.
func (p *Parser) isIdentLike(tok token.Token) bool {
	return tok.Type == token.IDENT || token.IsNonReserved(tok.Type)
}

// identifier consumes an identifier-like token and returns its text.
func (p *Parser) identifier(what string) (string, bool) {
	if p.isIdentLike(p.token) {
		name := p.token.Literal
		p.nextToken()
		return name, true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), what))
	return "", false
}

// isSoftClause recognises clause starters that lex as identifiers:
// MINUS (set operation), Hive DISTRIBUTE/SORT/CLUSTER BY. tok must be the
// current token.
func (p *Parser) isSoftClause(tok token.Token) bool {
	if tok.Type != token.IDENT || tok.Quoted {
		return false
	}
	next := p.peek
	if isSoft(tok, SoftKeywordMinus) {
		return next.Type == token.SELECT || next.Type == token.LPAREN
	}
	return (isSoft(tok, "distribute") || isSoft(tok, "sort") || isSoft(tok, "cluster")) && next.Type == token.BY
}

// canBeAlias reports whether the current token may be an implicit alias.
func (p *Parser) canBeAlias() bool {
	return p.check(token.IDENT) && !p.isSoftClause(p.token)
}

// parseAlias parses [AS] identifier and returns "" when no alias follows.
func (p *Parser) parseAlias() string {
	if p.match(token.AS) {
		if p.isIdentLike(p.token) || p.check(token.STRING) {
			alias := p.token.Literal
			p.nextToken()
			return alias
		}
		p.addError("expected alias after AS")
		return ""
	}
	if p.canBeAlias() {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	return ""
}

// parseIdentList parses "(" ident ("," ident)* ")".
func (p *Parser) parseIdentList() []string {
	p.expect(token.LPAREN)
	var names []string
	for {
		name, ok := p.identifier("column name")
		if !ok {
			break
		}
		names = append(names, name)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expectClose(token.RPAREN)
	return names
}
