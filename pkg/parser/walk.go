package parser

// Inspect traverses an expression tree in depth-first order. It calls f for
// each expression; if f returns false, Inspect skips that expression's
// children. Queries nested in SubqueryExpr, ExistsExpr and InExpr are not
// entered: f sees the wrapping expression and decides what to do with them.
func Inspect(expr Expr, f func(Expr) bool) {
	if expr == nil || !f(expr) {
		return
	}

	switch e := expr.(type) {
	case *BinaryExpr:
		Inspect(e.Left, f)
		Inspect(e.Right, f)
	case *UnaryExpr:
		Inspect(e.Expr, f)
	case *FuncCall:
		for _, arg := range e.Args {
			Inspect(arg, f)
		}
		inspectOrderBy(e.OrderBy, f)
		Inspect(e.Filter, f)
		if e.Window != nil {
			for _, p := range e.Window.PartitionBy {
				Inspect(p, f)
			}
			inspectOrderBy(e.Window.OrderBy, f)
		}
	case *CaseExpr:
		Inspect(e.Operand, f)
		for _, w := range e.Whens {
			Inspect(w.Condition, f)
			Inspect(w.Result, f)
		}
		Inspect(e.Else, f)
	case *CastExpr:
		Inspect(e.Expr, f)
	case *InExpr:
		Inspect(e.Expr, f)
		for _, v := range e.Values {
			Inspect(v, f)
		}
	case *BetweenExpr:
		Inspect(e.Expr, f)
		Inspect(e.Low, f)
		Inspect(e.High, f)
	case *IsExpr:
		Inspect(e.Expr, f)
		Inspect(e.Value, f)
	case *LikeExpr:
		Inspect(e.Expr, f)
		Inspect(e.Pattern, f)
		Inspect(e.Escape, f)
	case *IndexExpr:
		Inspect(e.Expr, f)
		Inspect(e.Index, f)
	case *ParenExpr:
		for _, x := range e.Exprs {
			Inspect(x, f)
		}
	}
}

func inspectOrderBy(items []OrderByItem, f func(Expr) bool) {
	for _, item := range items {
		Inspect(item.Expr, f)
	}
}
