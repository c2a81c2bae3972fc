package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Lexer tokenizes SQL input. Comments and whitespace are skipped.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
	prev    token.TokenType

	// Errors collects lexical problems (unterminated strings and comments).
	Errors []*LexError
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.pos < len(l.input) && l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.atEOF() {
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}

	switch l.ch {
	case '\'':
		lit, ok := l.readQuoted('\'')
		if !ok {
			l.addError(pos, ErrUnterminatedString)
			return l.finish(token.ILLEGAL, lit, pos)
		}
		return l.finish(token.STRING, lit, pos)
	case '"', '`':
		lit, ok := l.readQuoted(l.ch)
		if !ok {
			l.addError(pos, ErrUnterminatedIdent)
			return l.finish(token.ILLEGAL, lit, pos)
		}
		tok := l.finish(token.IDENT, lit, pos)
		tok.Quoted = true
		return tok
	case '[':
		if l.bracketIdentAllowed() {
			if lit, ok := l.readBracketIdent(); ok {
				tok := l.finish(token.IDENT, lit, pos)
				tok.Quoted = true
				return tok
			}
		}
	case '$':
		return l.readDollar(pos)
	case '?':
		l.readChar()
		return l.finish(token.PARAM, "?", pos)
	case '@':
		l.readChar()
		for l.ch == '@' || isIdentChar(l.ch) {
			l.readChar()
		}
		return l.finish(token.PARAM, l.input[pos.Offset:l.pos], pos)
	case ':':
		l.readChar()
		switch {
		case l.ch == ':':
			l.readChar()
			return l.finish(token.DCOLON, "::", pos)
		case isLetter(l.ch) || l.ch == '_':
			for isIdentChar(l.ch) {
				l.readChar()
			}
			return l.finish(token.PARAM, l.input[pos.Offset:l.pos], pos)
		}
		return l.finish(token.COLON, ":", pos)
	}

	if isLetter(l.ch) || l.ch == '_' {
		lit := l.readIdentifier()
		tok := l.finish(token.LookupIdent(strings.ToLower(lit)), lit, pos)
		return tok
	}
	if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
		return l.finish(token.NUMBER, l.readNumber(), pos)
	}

	return l.readOperator(pos)
}

// readOperator scans punctuation and operators, longest match first.
func (l *Lexer) readOperator(pos token.Position) token.Token {
	ch := l.ch
	next := l.peekChar()
	two := func(t token.TokenType, lit string) token.Token {
		l.readChar()
		l.readChar()
		return l.finish(t, lit, pos)
	}
	one := func(t token.TokenType) token.Token {
		lit := string(ch)
		l.readChar()
		return l.finish(t, lit, pos)
	}

	switch ch {
	case '+':
		return one(token.PLUS)
	case '-':
		if next == '>' {
			l.readChar()
			l.readChar()
			if l.ch == '>' {
				l.readChar()
				return l.finish(token.LONGARROW, "->>", pos)
			}
			return l.finish(token.ARROW, "->", pos)
		}
		return one(token.MINUS)
	case '*':
		return one(token.STAR)
	case '/':
		return one(token.SLASH)
	case '%':
		return one(token.PERCENT)
	case '=':
		if next == '=' {
			return two(token.EQ, "==")
		}
		return one(token.EQ)
	case '<':
		switch next {
		case '=':
			return two(token.LE, "<=")
		case '>':
			return two(token.NE, "<>")
		}
		return one(token.LT)
	case '>':
		if next == '=' {
			return two(token.GE, ">=")
		}
		return one(token.GT)
	case '!':
		if next == '=' {
			return two(token.NE, "!=")
		}
		return one(token.ILLEGAL)
	case '|':
		if next == '|' {
			return two(token.DPIPE, "||")
		}
		return one(token.PIPE)
	case '&':
		return one(token.AMP)
	case '^':
		return one(token.CARET)
	case '~':
		return one(token.TILDE)
	case '.':
		return one(token.DOT)
	case ',':
		return one(token.COMMA)
	case ';':
		return one(token.SEMICOLON)
	case '(':
		return one(token.LPAREN)
	case ')':
		return one(token.RPAREN)
	case '[':
		return one(token.LBRACKET)
	case ']':
		return one(token.RBRACKET)
	}
	return one(token.ILLEGAL)
}

// finish builds a token ending at the current position.
func (l *Lexer) finish(t token.TokenType, lit string, start token.Position) token.Token {
	l.prev = t
	return token.Token{Type: t, Literal: lit, Pos: start, End: l.currentPos()}
}

func (l *Lexer) addError(pos token.Position, msg string) {
	l.Errors = append(l.Errors, &LexError{Pos: pos, Message: msg})
}

// skipWhitespaceAndComments skips whitespace, line comments and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			start := l.currentPos()
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			closed := false
			for !l.atEOF() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.addError(start, ErrUnterminatedComment)
			}
			continue
		}

		break
	}
}

// readQuoted reads a string or quoted identifier delimited by quote.
// A doubled delimiter is an escaped delimiter: 'it''s' -> it's
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// bracketIdentAllowed reports whether '[' can open a T-SQL bracket
// identifier. After an operand it is a subscript, after ARRAY a literal.
func (l *Lexer) bracketIdentAllowed() bool {
	switch l.prev {
	case token.IDENT, token.RPAREN, token.RBRACKET, token.STRING, token.NUMBER, token.PARAM:
		return false
	}
	return !token.IsNonReserved(l.prev)
}

// readBracketIdent reads [name]. Content that does not look like a name,
// such as [1, 2] or [a, b], is left to the operator scanner.
func (l *Lexer) readBracketIdent() (string, bool) {
	rest := l.input[l.readPos:]
	end := strings.IndexByte(rest, ']')
	if end <= 0 {
		return "", false
	}
	name := rest[:end]
	if !isLetter(name[0]) && name[0] != '_' {
		return "", false
	}
	if strings.ContainsAny(name, "[,'\"\n") {
		return "", false
	}
	stop := l.readPos + end + 1
	for l.pos < stop {
		l.readChar()
	}
	return name, true
}

// readDollar reads $1 parameters and $$...$$ / $tag$...$tag$ strings.
func (l *Lexer) readDollar(pos token.Position) token.Token {
	if isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.finish(token.PARAM, l.input[pos.Offset:l.pos], pos)
	}

	// Dollar-quoted string: find the closing tag.
	end := strings.IndexByte(l.input[l.readPos:], '$')
	if end >= 0 {
		tag := l.input[l.pos : l.readPos+end+1]
		if isDollarTag(tag) {
			bodyStart := l.pos + len(tag)
			closeIdx := strings.Index(l.input[bodyStart:], tag)
			if closeIdx < 0 {
				l.addError(pos, ErrUnterminatedString)
				for !l.atEOF() {
					l.readChar()
				}
				return l.finish(token.ILLEGAL, l.input[pos.Offset:], pos)
			}
			stop := bodyStart + closeIdx + len(tag)
			for l.pos < stop {
				l.readChar()
			}
			return l.finish(token.STRING, l.input[bodyStart:bodyStart+closeIdx], pos)
		}
	}

	l.readChar()
	return l.finish(token.ILLEGAL, "$", pos)
}

// isDollarTag reports whether s looks like $$ or $tag$.
func isDollarTag(s string) bool {
	if len(s) < 2 || s[0] != '$' || s[len(s)-1] != '$' {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true for ASCII letters and any byte of a multi-byte
// UTF-8 sequence, so non-ASCII identifiers lex as a single word.
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch == '$'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
