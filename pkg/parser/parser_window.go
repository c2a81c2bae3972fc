package parser

import "github.com/shaweiguo/datahub/pkg/token"

// Window specification parsing: OVER clauses, WINDOW definitions, frame specs.
//
// Grammar:
//
//	window_spec   → identifier | "(" [identifier] [PARTITION BY expr_list] [ORDER BY order_list] [frame_spec] ")"
//	window_defs   → identifier AS window_spec ("," identifier AS window_spec)*
//	frame_spec    → (ROWS|RANGE|GROUPS) frame_extent [EXCLUDE ...]
//	frame_extent  → BETWEEN frame_bound AND frame_bound | frame_bound
//	frame_bound   → UNBOUNDED PRECEDING | UNBOUNDED FOLLOWING | CURRENT ROW | expr PRECEDING | expr FOLLOWING

// parseWindowSpec parses a window specification.
func (p *Parser) parseWindowSpec() *WindowSpec {
	spec := &WindowSpec{}

	// Named window reference
	if p.isIdentLike(p.token) {
		spec.Name = p.token.Literal
		p.nextToken()
		return spec
	}

	p.expect(token.LPAREN)

	// Base window: OVER (w ORDER BY x)
	if p.check(token.IDENT) {
		spec.Name = p.token.Literal
		p.nextToken()
	}

	if p.match(token.PARTITION) {
		p.expect(token.BY)
		spec.PartitionBy = p.parseExpressionList()
	}

	if p.match(token.ORDER) {
		p.expect(token.BY)
		spec.OrderBy = p.parseOrderByList()
	}

	if p.check(token.ROWS) || p.check(token.RANGE) || p.check(token.GROUPS) {
		spec.Frame = p.parseFrameSpec()
	}

	p.expectClose(token.RPAREN)
	return spec
}

// parseWindowDefs parses the body of a WINDOW clause.
func (p *Parser) parseWindowDefs() []WindowDef {
	var defs []WindowDef
	for {
		name, ok := p.identifier("window name")
		if !ok {
			return defs
		}
		p.expect(token.AS)
		defs = append(defs, WindowDef{Name: name, Spec: p.parseWindowSpec()})
		if !p.match(token.COMMA) {
			return defs
		}
	}
}

// parseFrameSpec parses a window frame specification.
func (p *Parser) parseFrameSpec() *FrameSpec {
	frame := &FrameSpec{}

	switch {
	case p.match(token.ROWS):
		frame.Type = FrameRows
	case p.match(token.RANGE):
		frame.Type = FrameRange
	case p.match(token.GROUPS):
		frame.Type = FrameGroups
	}

	if p.match(token.BETWEEN) {
		frame.Start = p.parseFrameBound()
		p.expect(token.AND)
		frame.End = p.parseFrameBound()
	} else {
		frame.Start = p.parseFrameBound()
	}

	// EXCLUDE CURRENT ROW | GROUP | TIES | NO OTHERS
	if isSoft(p.token, "exclude") {
		p.nextToken()
		for !p.check(token.RPAREN) && !p.check(token.EOF) {
			p.nextToken()
		}
	}

	return frame
}

// parseFrameBound parses a frame bound.
func (p *Parser) parseFrameBound() *FrameBound {
	bound := &FrameBound{}

	switch {
	case p.match(token.UNBOUNDED):
		if p.match(token.PRECEDING) {
			bound.Type = FrameUnboundedPreceding
		} else if p.match(token.FOLLOWING) {
			bound.Type = FrameUnboundedFollowing
		} else {
			p.addError("expected PRECEDING or FOLLOWING after UNBOUNDED")
		}

	case p.match(token.CURRENT):
		p.expect(token.ROW)
		bound.Type = FrameCurrentRow

	default:
		bound.Offset = p.parseExpressionWithPrecedence(precAddition)
		if p.match(token.PRECEDING) {
			bound.Type = FrameExprPreceding
		} else if p.match(token.FOLLOWING) {
			bound.Type = FrameExprFollowing
		} else {
			p.addError("expected PRECEDING or FOLLOWING in frame bound")
		}
	}

	return bound
}
