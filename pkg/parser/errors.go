package parser

import (
	"fmt"

	"github.com/shaweiguo/datahub/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// UnsupportedError reports a statement kind the grammar does not model.
// Such statements contribute no lineage.
type UnsupportedError struct {
	Pos     token.Position
	Keyword string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported statement %s at line %d, column %d", e.Keyword, e.Pos.Line, e.Pos.Column)
}

// Common error messages
const (
	ErrUnexpectedToken     = "unexpected token %s, expected %s"
	ErrUnexpectedInExpr    = "unexpected token in expression: %s"
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedIdent   = "unterminated quoted identifier"
	ErrUnterminatedComment = "unterminated block comment"
	ErrTrailingTokens      = "unexpected %s after end of statement"
	ErrMissingAlias        = "subquery in FROM requires an alias"
)
