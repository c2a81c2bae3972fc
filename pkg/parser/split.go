package parser

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/token"
)

// Segment is one statement's worth of tokens, split at top-level semicolons.
type Segment struct {
	// Source is the full input the tokens were lexed from; token offsets
	// index into it.
	Source string
	// Tokens holds the statement tokens without the terminating semicolon.
	Tokens []token.Token
	// LexErrors holds errors for malformed tokens inside the segment.
	LexErrors []*LexError
}

// Span returns the source range covered by the segment.
func (s Segment) Span() token.Span {
	if len(s.Tokens) == 0 {
		return token.Span{}
	}
	return token.Span{Start: s.Tokens[0].Pos, End: s.Tokens[len(s.Tokens)-1].End}
}

// Text returns the statement text, trimmed of surrounding whitespace.
func (s Segment) Text() string {
	return strings.TrimSpace(s.Span().Text(s.Source))
}

// First returns the first token of the segment.
func (s Segment) First() token.Token {
	if len(s.Tokens) == 0 {
		return token.Token{Type: token.EOF}
	}
	return s.Tokens[0]
}

// Split lexes sql once and splits it into statement segments. Empty
// statements (bare semicolons, comment-only text) are dropped.
func Split(sql string) []Segment {
	l := NewLexer(sql)

	var segs []Segment
	cur := Segment{Source: sql}
	flush := func() {
		if len(cur.Tokens) > 0 {
			segs = append(segs, cur)
		}
		cur = Segment{Source: sql}
	}

	for {
		seen := len(l.Errors)
		tok := l.NextToken()
		switch tok.Type {
		case token.EOF:
			flush()
			return segs
		case token.SEMICOLON:
			flush()
			continue
		case token.ILLEGAL:
			if len(l.Errors) > seen {
				cur.LexErrors = append(cur.LexErrors, l.Errors[seen:]...)
			}
		}
		cur.Tokens = append(cur.Tokens, tok)
	}
}
