package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Write statement parsing: INSERT and CREATE ... AS SELECT.
//
// Grammar:
//
//	insert_stmt → INSERT [OR identifier] (INTO | OVERWRITE) [TABLE] table_name
//	              [PARTITION "(" expr_list ")"] [IF NOT EXISTS] ["(" ident_list ")"]
//	              (select_stmt | VALUES row ("," row)*) [tail]
//	create_stmt → CREATE [OR REPLACE] [modifiers] (TABLE | [MATERIALIZED] VIEW)
//	              [IF NOT EXISTS] table_name ["(" column_defs ")"] [options]
//	              [AS select_stmt]
//
// Tails such as ON CONFLICT, ON DUPLICATE KEY UPDATE and RETURNING are
// consumed without being modelled.

// parseInsert parses an INSERT statement. start is the position of the
// statement's first token, which may precede INSERT when a WITH clause leads.
func (p *Parser) parseInsert(start token.Position) *InsertStmt {
	p.expect(token.INSERT)
	stmt := &InsertStmt{}

	// SQLite: INSERT OR REPLACE / OR IGNORE
	if p.match(token.OR) {
		if !p.match(token.REPLACE) {
			p.identifier("conflict action")
		}
	}

	switch {
	case p.match(token.INTO):
	case p.match(token.OVERWRITE):
		stmt.Overwrite = true
	case p.check(token.ALL) || p.check(token.FIRST):
		// Snowflake multi-table insert
		p.skipUnsupported("INSERT ALL")
		return stmt
	default:
		// MySQL and Hive accept INSERT without INTO.
	}
	p.match(token.TABLE)

	stmt.Table = p.parseTargetName()

	if p.match(token.PARTITION) {
		p.expect(token.LPAREN)
		p.parseExpressionList()
		p.expectClose(token.RPAREN)
	}
	if p.check(token.IF) {
		p.parseIfNotExists()
	}

	if p.check(token.LPAREN) && !p.checkPeek(token.SELECT) && !p.checkPeek(token.WITH) && !p.checkPeek(token.LPAREN) {
		stmt.Columns = p.parseIdentList()
	}

	switch {
	case p.match(token.VALUES):
		stmt.Values = p.parseValuesRows()
	case p.check(token.SELECT), p.check(token.WITH), p.check(token.LPAREN):
		stmt.Select = p.parseSelectStmt()
	case isSoft(p.token, "set"), isSoft(p.token, "default"):
		// INSERT ... SET a = 1 / DEFAULT VALUES carry no lineage.
		p.skipToEnd()
	default:
		p.addError("expected SELECT or VALUES after INSERT target, got " + describe(p.token))
		return stmt
	}

	p.skipWriteTail()
	stmt.Span = p.spanFrom(start)
	return stmt
}

// parseValuesRows parses ("(" expr_list ")") ("," "(" expr_list ")")*.
func (p *Parser) parseValuesRows() [][]Expr {
	var rows [][]Expr
	for {
		if p.match(token.LPAREN) {
			rows = append(rows, p.parseExpressionList())
			p.expectClose(token.RPAREN)
		} else {
			rows = append(rows, []Expr{p.parseExpression()})
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	return rows
}

// skipWriteTail consumes ON CONFLICT, ON DUPLICATE KEY UPDATE and RETURNING tails.
func (p *Parser) skipWriteTail() {
	switch {
	case p.check(token.ON) && (isSoft(p.peek, "conflict") || isSoft(p.peek, "duplicate")):
		p.skipToEnd()
	case isSoft(p.token, "returning"):
		p.skipToEnd()
	}
}

// parseTargetName parses a possibly qualified table name without an alias.
func (p *Parser) parseTargetName() *TableName {
	start := p.token.Pos
	table := &TableName{}
	parts := p.parseQualifiedParts("table name")
	assignNameParts(table, parts)
	table.Span = p.spanFrom(start)
	return table
}

// parseIfNotExists parses IF NOT EXISTS.
func (p *Parser) parseIfNotExists() bool {
	if !p.match(token.IF) {
		return false
	}
	p.expect(token.NOT)
	p.expect(token.EXISTS)
	return true
}

// parseCreate parses CREATE [OR REPLACE] ... TABLE|VIEW ... [AS select].
// Other CREATE forms are recorded as unsupported.
func (p *Parser) parseCreate(start token.Position) Statement {
	p.expect(token.CREATE)
	stmt := &CreateStmt{}

	if p.match(token.OR) {
		p.expect(token.REPLACE)
		stmt.OrReplace = true
	}

	// Modifiers: [GLOBAL|LOCAL] [TEMP|TEMPORARY|TRANSIENT|VOLATILE|EXTERNAL] [MATERIALIZED|SECURE]
	for {
		switch {
		case p.match(token.TEMP), p.match(token.TEMPORARY):
			stmt.Temporary = true
			continue
		case isCreateModifier(p.token):
			p.nextToken()
			continue
		}
		break
	}

	switch {
	case p.match(token.TABLE):
		stmt.Kind = CreateTable
	case p.match(token.VIEW):
		stmt.Kind = CreateView
	default:
		p.skipUnsupported("CREATE " + strings.ToUpper(p.token.Literal))
		return nil
	}

	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Table = p.parseTargetName()

	if p.check(token.LPAREN) && !p.checkPeek(token.SELECT) && !p.checkPeek(token.WITH) {
		stmt.Columns = p.parseColumnDefs()
	}

	// Skip table options (STORED AS, USING, PARTITIONED BY, COMMENT, ...)
	// until the defining query.
	for !p.check(token.EOF) {
		if p.check(token.AS) && (p.checkPeek(token.SELECT) || p.checkPeek(token.WITH) || p.checkPeek(token.LPAREN)) {
			p.nextToken()
			break
		}
		if p.check(token.SELECT) || p.check(token.WITH) {
			break
		}
		if p.check(token.LPAREN) {
			p.skipParens()
			continue
		}
		p.nextToken()
	}

	if !p.check(token.EOF) {
		stmt.Select = p.parseSelectStmt()
	}

	stmt.Span = p.spanFrom(start)
	return stmt
}

// isCreateModifier reports words that may sit between CREATE and TABLE/VIEW.
func isCreateModifier(tok token.Token) bool {
	for _, word := range []string{"global", "local", "transient", "volatile", "external", "materialized", "secure", "recursive", "unlogged"} {
		if isSoft(tok, word) {
			return true
		}
	}
	return tok.Type == token.RECURSIVE
}

// parseColumnDefs parses a parenthesized column list, either bare names
// (CREATE VIEW v (a, b)) or full definitions (CREATE TABLE t (a INT, b TEXT)).
// Only the column names are kept; constraints are skipped.
func (p *Parser) parseColumnDefs() []string {
	p.expect(token.LPAREN)
	var names []string
	for !p.check(token.EOF) && !p.check(token.RPAREN) {
		if p.isIdentLike(p.token) && !isConstraintStart(p.token) {
			names = append(names, p.token.Literal)
		}
		// Skip to the next top-level comma.
		depth := 0
		for !p.check(token.EOF) {
			if depth == 0 && (p.check(token.COMMA) || p.check(token.RPAREN)) {
				break
			}
			switch p.token.Type {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			}
			p.nextToken()
		}
		p.match(token.COMMA)
	}
	p.expectClose(token.RPAREN)
	return names
}

func isConstraintStart(tok token.Token) bool {
	for _, word := range []string{"constraint", "primary", "foreign", "unique", "check", "key", "index"} {
		if isSoft(tok, word) {
			return true
		}
	}
	return false
}
