package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Soft keywords are identifiers that have special meaning in specific contexts.
// They are not reserved words and can be used as identifiers elsewhere.
// Example: "MINUS" is a set operator in Oracle/Snowflake but can still be
// used as a column name in "SELECT minus FROM t".
const (
	SoftKeywordMinus   = "minus"
	SoftKeywordFor     = "for"
	SoftKeywordIgnore  = "ignore"
	SoftKeywordRespect = "respect"
	SoftKeywordTies    = "ties"
	SoftKeywordNext    = "next"
	SoftKeywordPercent = "percent"
)

// isSoft reports whether tok is the unquoted soft keyword word.
func isSoft(tok token.Token, word string) bool {
	return tok.Type == token.IDENT && !tok.Quoted && strings.EqualFold(tok.Literal, word)
}

// statementKeywords are verbs that begin a SQL statement. The grammar models
// SELECT, WITH, INSERT and CREATE ... AS SELECT; the rest are recognised so
// that they can be skipped as unsupported rather than reported as garbage.
var statementKeywords = map[string]bool{
	"select":   true,
	"with":     true,
	"insert":   true,
	"create":   true,
	"values":   true,
	"update":   true,
	"delete":   true,
	"merge":    true,
	"upsert":   true,
	"replace":  true,
	"drop":     true,
	"alter":    true,
	"truncate": true,
	"set":      true,
	"use":      true,
	"show":     true,
	"describe": true,
	"desc":     true,
	"explain":  true,
	"grant":    true,
	"revoke":   true,
	"begin":    true,
	"start":    true,
	"commit":   true,
	"rollback": true,
	"copy":     true,
	"unload":   true,
	"call":     true,
	"declare":  true,
	"analyze":  true,
	"vacuum":   true,
	"comment":  true,
	"load":     true,
	"put":      true,
	"get":      true,
	"list":     true,
	"remove":   true,
	"execute":  true,
	"exec":     true,
	"refresh":  true,
	"cache":    true,
	"msck":     true,
	"optimize": true,
	"undrop":   true,
	"pragma":   true,
	"attach":   true,
	"detach":   true,
	"install":  true,
	"export":   true,
	"import":   true,
}

// IsStatementStart reports whether tok can open a SQL statement.
func IsStatementStart(tok token.Token) bool {
	if tok.Type == token.LPAREN {
		return true
	}
	if tok.Quoted || (tok.Type != token.IDENT && !token.IsKeyword(tok.Type)) {
		return false
	}
	return statementKeywords[strings.ToLower(tok.Literal)]
}
