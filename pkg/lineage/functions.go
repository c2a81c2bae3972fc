package lineage

import (
	"strings"

	"github.com/shaweiguo/datahub/pkg/parser"
)

// Transform describes how an output column is computed from its sources.
type Transform string

// Transform values.
const (
	TransformDirect     Transform = "direct"
	TransformExpression Transform = "expression"
	TransformAggregate  Transform = "aggregate"
	TransformWindow     Transform = "window"
	TransformStar       Transform = "star"
)

// functionClass classifies how a function affects lineage.
type functionClass int

const (
	// classPassthrough keeps every argument column as a source.
	classPassthrough functionClass = iota
	// classAggregate folds many rows into one value.
	classAggregate
	// classWindow requires an OVER clause.
	classWindow
	// classGenerator produces values with no upstream columns.
	classGenerator
)

var aggregateFunctions = setOf(
	"ANY_VALUE", "APPROX_COUNT_DISTINCT", "APPROX_PERCENTILE", "ARRAY_AGG", "AVG",
	"BIT_AND", "BIT_OR", "BOOL_AND", "BOOL_OR", "COLLECT_LIST", "COLLECT_SET",
	"CORR", "COUNT", "COUNT_IF", "COVAR_POP", "COVAR_SAMP", "EVERY", "GROUP_CONCAT",
	"HLL_COUNT", "JSON_AGG", "JSONB_AGG", "LISTAGG", "MAX", "MAX_BY", "MEDIAN",
	"MIN", "MIN_BY", "MODE", "OBJECT_AGG", "PERCENTILE_CONT", "PERCENTILE_DISC",
	"STDDEV", "STDDEV_POP", "STDDEV_SAMP", "STRING_AGG", "SUM", "VAR_POP",
	"VAR_SAMP", "VARIANCE",
)

var windowFunctions = setOf(
	"CUME_DIST", "DENSE_RANK", "FIRST_VALUE", "LAG", "LAST_VALUE", "LEAD",
	"NTH_VALUE", "NTILE", "PERCENT_RANK", "RANK", "ROW_NUMBER",
)

var generatorFunctions = setOf(
	"CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "GEN_RANDOM_UUID",
	"GETDATE", "LOCALTIME", "LOCALTIMESTAMP", "NEWID", "NOW", "RAND", "RANDOM",
	"SYSDATE", "SYSDATETIME", "UUID", "UUID_STRING",
)

// classifyFunction returns the lineage class of a function name. Schema
// qualifiers are ignored.
func classifyFunction(name string) functionClass {
	name = strings.ToUpper(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	switch {
	case aggregateFunctions[name]:
		return classAggregate
	case windowFunctions[name]:
		return classWindow
	case generatorFunctions[name]:
		return classGenerator
	}
	return classPassthrough
}

// classifyExpr derives the Transform of a select-list expression.
func classifyExpr(expr parser.Expr) Transform {
	if _, ok := expr.(*parser.ColumnRef); ok {
		return TransformDirect
	}

	transform := TransformExpression
	parser.Inspect(expr, func(e parser.Expr) bool {
		fn, ok := e.(*parser.FuncCall)
		if !ok {
			return true
		}
		switch {
		case fn.Window != nil || classifyFunction(fn.Name) == classWindow:
			transform = TransformWindow
			return false
		case classifyFunction(fn.Name) == classAggregate && transform != TransformWindow:
			transform = TransformAggregate
		}
		return true
	})
	return transform
}

// mergeTransform combines the transforms of positionally matched set
// operation outputs.
func mergeTransform(a, b Transform) Transform {
	if a == b {
		return a
	}
	return TransformExpression
}

func setOf(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
