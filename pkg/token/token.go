// Package token defines the lexical tokens shared by the SQL lexer and parser.
//
// Keywords are fixed at compile time: the lineage grammar targets a permissive
// ANSI superset and needs no per-dialect registration.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS names follow SQL token conventions
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, quoted identifiers included
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello', $$body$$
	PARAM  // ?, $1, :name, @var

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	AMP       // &
	PIPE      // |
	CARET     // ^
	TILDE     // ~
	ARROW     // ->
	LONGARROW // ->>
	DCOLON    // ::
	COLON     // :
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]

	// Keywords (alphabetical)
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CREATE
	CROSS
	CURRENT
	DESC
	DISTINCT
	ELSE
	END
	EXCEPT
	EXISTS
	FALSE
	FETCH
	FILTER
	FIRST
	FOLLOWING
	FROM
	FULL
	GROUP
	GROUPS
	HAVING
	IF
	ILIKE
	IN
	INNER
	INSERT
	INTERSECT
	INTERVAL
	INTO
	IS
	JOIN
	LAST
	LATERAL
	LEFT
	LIKE
	LIMIT
	NATURAL
	NOT
	NULL
	NULLS
	OFFSET
	ON
	ONLY
	OR
	ORDER
	OUTER
	OVER
	OVERWRITE
	PARTITION
	PRECEDING
	QUALIFY
	RANGE
	RECURSIVE
	REPLACE
	RIGHT
	ROW
	ROWS
	SELECT
	TABLE
	TEMP
	TEMPORARY
	THEN
	TRUE
	UNBOUNDED
	UNION
	USING
	VALUES
	VIEW
	WHEN
	WHERE
	WINDOW
	WITH
	WITHIN

	keywordEnd
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	PARAM:  "PARAM",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	AMP:       "&",
	PIPE:      "|",
	CARET:     "^",
	TILDE:     "~",
	ARROW:     "->",
	LONGARROW: "->>",
	DCOLON:    "::",
	COLON:     ":",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"all":       ALL,
	"and":       AND,
	"as":        AS,
	"asc":       ASC,
	"between":   BETWEEN,
	"by":        BY,
	"case":      CASE,
	"cast":      CAST,
	"create":    CREATE,
	"cross":     CROSS,
	"current":   CURRENT,
	"desc":      DESC,
	"distinct":  DISTINCT,
	"else":      ELSE,
	"end":       END,
	"except":    EXCEPT,
	"exists":    EXISTS,
	"false":     FALSE,
	"fetch":     FETCH,
	"filter":    FILTER,
	"first":     FIRST,
	"following": FOLLOWING,
	"from":      FROM,
	"full":      FULL,
	"group":     GROUP,
	"groups":    GROUPS,
	"having":    HAVING,
	"if":        IF,
	"ilike":     ILIKE,
	"in":        IN,
	"inner":     INNER,
	"insert":    INSERT,
	"intersect": INTERSECT,
	"interval":  INTERVAL,
	"into":      INTO,
	"is":        IS,
	"join":      JOIN,
	"last":      LAST,
	"lateral":   LATERAL,
	"left":      LEFT,
	"like":      LIKE,
	"limit":     LIMIT,
	"natural":   NATURAL,
	"not":       NOT,
	"null":      NULL,
	"nulls":     NULLS,
	"offset":    OFFSET,
	"on":        ON,
	"only":      ONLY,
	"or":        OR,
	"order":     ORDER,
	"outer":     OUTER,
	"over":      OVER,
	"overwrite": OVERWRITE,
	"partition": PARTITION,
	"preceding": PRECEDING,
	"qualify":   QUALIFY,
	"range":     RANGE,
	"recursive": RECURSIVE,
	"replace":   REPLACE,
	"right":     RIGHT,
	"row":       ROW,
	"rows":      ROWS,
	"select":    SELECT,
	"table":     TABLE,
	"temp":      TEMP,
	"temporary": TEMPORARY,
	"then":      THEN,
	"true":      TRUE,
	"unbounded": UNBOUNDED,
	"union":     UNION,
	"using":     USING,
	"values":    VALUES,
	"view":      VIEW,
	"when":      WHEN,
	"where":     WHERE,
	"window":    WINDOW,
	"with":      WITH,
	"within":    WITHIN,
}

func init() {
	for word, t := range keywords {
		tokenNames[t] = upper(word)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// nonReserved lists keywords that may still name a column, table or function.
var nonReserved = map[TokenType]bool{
	CURRENT:   true,
	FETCH:     true,
	FILTER:    true,
	FIRST:     true,
	FOLLOWING: true,
	GROUPS:    true,
	IF:        true,
	LAST:      true,
	NULLS:     true,
	ONLY:      true,
	OVERWRITE: true,
	PARTITION: true,
	PRECEDING: true,
	RANGE:     true,
	RECURSIVE: true,
	REPLACE:   true,
	ROW:       true,
	ROWS:      true,
	TABLE:     true,
	TEMP:      true,
	TEMPORARY: true,
	UNBOUNDED: true,
	VALUES:    true,
	VIEW:      true,
	WITHIN:    true,
}

// LookupIdent returns the keyword token type for a lowercase identifier,
// or IDENT when the word is not a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= ALL && t < keywordEnd
}

// IsNonReserved reports whether a keyword can double as an identifier.
func IsNonReserved(t TokenType) bool {
	return nonReserved[t]
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RBRACKET
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string   // unquoted text for identifiers and strings
	Pos     Position // first byte
	End     Position // one past the last byte
	Quoted  bool     // identifier was written in quotes or backticks
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}
