package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, sql string) Statement {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err, "sql: %s", sql)
	require.NotNil(t, stmt)
	return stmt
}

func parseSelect(t *testing.T, sql string) *SelectStmt {
	t.Helper()
	stmt, ok := parseOne(t, sql).(*SelectStmt)
	require.True(t, ok, "expected *SelectStmt")
	return stmt
}

func TestParse_SelectBasics(t *testing.T) {
	stmt := parseSelect(t, "SELECT a, b AS c, count(*) FROM s.t x WHERE a > 1")
	core := stmt.Body.Left
	require.NotNil(t, core)
	require.Len(t, core.Columns, 3)

	assert.Equal(t, &ColumnRef{Column: "a"}, core.Columns[0].Expr)
	assert.Equal(t, "c", core.Columns[1].Alias)
	assert.Equal(t, "b", core.Columns[1].Raw)
	assert.Equal(t, "count(*)", core.Columns[2].Raw)
	assert.Empty(t, core.Columns[2].Alias)

	table, ok := core.From.Source.(*TableName)
	require.True(t, ok)
	assert.Equal(t, "s", table.Schema)
	assert.Equal(t, "t", table.Name)
	assert.Equal(t, "x", table.Alias)
	assert.NotNil(t, core.Where)
}

func TestParse_Stars(t *testing.T) {
	core := parseSelect(t, "SELECT *, t.*, s.u.* FROM t").Body.Left
	require.Len(t, core.Columns, 3)
	assert.True(t, core.Columns[0].Star)
	assert.Equal(t, "t", core.Columns[1].TableStar)
	assert.Equal(t, "u", core.Columns[2].TableStar)

	core = parseSelect(t, "SELECT * EXCLUDE (a, b) FROM t").Body.Left
	assert.True(t, core.Columns[0].Star)
}

func TestParse_QualifiedColumns(t *testing.T) {
	core := parseSelect(t, "SELECT t.a, s.t.b FROM s.t").Body.Left
	assert.Equal(t, &ColumnRef{Table: "t", Column: "a"}, core.Columns[0].Expr)
	assert.Equal(t, &ColumnRef{Schema: "s", Table: "t", Column: "b"}, core.Columns[1].Expr)
}

func TestParse_SetOperations(t *testing.T) {
	tests := []struct {
		sql string
		op  SetOpType
		all bool
	}{
		{"SELECT a FROM t UNION SELECT a FROM u", SetOpUnion, false},
		{"SELECT a FROM t UNION ALL SELECT a FROM u", SetOpUnionAll, true},
		{"SELECT a FROM t INTERSECT SELECT a FROM u", SetOpIntersect, false},
		{"SELECT a FROM t EXCEPT SELECT a FROM u", SetOpExcept, false},
		{"SELECT a FROM t MINUS SELECT a FROM u", SetOpExcept, false},
		{"(SELECT a FROM t) UNION (SELECT a FROM u)", SetOpUnion, false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			body := parseSelect(t, tt.sql).Body
			assert.Equal(t, tt.op, body.Op)
			assert.Equal(t, tt.all, body.All)
			require.NotNil(t, body.Right)
		})
	}
}

func TestParse_MinusAsColumn(t *testing.T) {
	core := parseSelect(t, "SELECT minus FROM t").Body.Left
	assert.Equal(t, &ColumnRef{Column: "minus"}, core.Columns[0].Expr)
}

func TestParse_Joins(t *testing.T) {
	core := parseSelect(t, `SELECT * FROM a
		LEFT OUTER JOIN b ON a.id = b.id
		, c
		CROSS JOIN d
		JOIN e USING (id)
		NATURAL JOIN f`).Body.Left

	require.Len(t, core.From.Joins, 5)
	assert.Equal(t, JoinLeft, core.From.Joins[0].Type)
	assert.NotNil(t, core.From.Joins[0].Condition)
	assert.Equal(t, JoinComma, core.From.Joins[1].Type)
	assert.Equal(t, JoinCross, core.From.Joins[2].Type)
	assert.Equal(t, []string{"id"}, core.From.Joins[3].Using)
	assert.True(t, core.From.Joins[4].Natural)
}

func TestParse_TableRefs(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		check func(t *testing.T, ref TableRef)
	}{
		{"derived", "SELECT * FROM (SELECT a FROM t) AS s(x)", func(t *testing.T, ref TableRef) {
			d, ok := ref.(*DerivedTable)
			require.True(t, ok)
			assert.Equal(t, "s", d.Alias)
			assert.Equal(t, []string{"x"}, d.Columns)
		}},
		{"derived without alias", "SELECT * FROM (SELECT a FROM t)", func(t *testing.T, ref TableRef) {
			_, ok := ref.(*DerivedTable)
			assert.True(t, ok)
		}},
		{"double paren derived", "SELECT * FROM ((SELECT a FROM t)) s", func(t *testing.T, ref TableRef) {
			_, ok := ref.(*DerivedTable)
			assert.True(t, ok)
		}},
		{"paren join", "SELECT * FROM (a JOIN b ON a.id = b.id)", func(t *testing.T, ref TableRef) {
			pj, ok := ref.(*ParenJoin)
			require.True(t, ok)
			assert.Len(t, pj.From.Joins, 1)
		}},
		{"table function", "SELECT * FROM unnest(arr) AS u(x)", func(t *testing.T, ref TableRef) {
			fn, ok := ref.(*TableFunc)
			require.True(t, ok)
			assert.Equal(t, "UNNEST", fn.Call.Name)
			assert.Equal(t, "u", fn.Alias)
		}},
		{"values", "SELECT * FROM (VALUES (1, 2), (3, 4)) v(a, b)", func(t *testing.T, ref TableRef) {
			fn, ok := ref.(*TableFunc)
			require.True(t, ok)
			assert.Equal(t, "VALUES", fn.Call.Name)
		}},
		{"lateral", "SELECT * FROM LATERAL (SELECT 1) l", func(t *testing.T, ref TableRef) {
			l, ok := ref.(*LateralTable)
			require.True(t, ok)
			assert.Equal(t, "l", l.Alias)
		}},
		{"catalog qualified", "SELECT * FROM c.s.t", func(t *testing.T, ref TableRef) {
			tn, ok := ref.(*TableName)
			require.True(t, ok)
			assert.Equal(t, "c.s.t", tn.QualifiedName())
		}},
		{"sampled", "SELECT * FROM t TABLESAMPLE BERNOULLI (10) x", func(t *testing.T, ref TableRef) {
			tn, ok := ref.(*TableName)
			require.True(t, ok)
			assert.Equal(t, "x", tn.Alias)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := parseSelect(t, tt.sql).Body.Left
			tt.check(t, core.From.Source)
		})
	}
}

func TestParse_WithClause(t *testing.T) {
	stmt := parseSelect(t, "WITH RECURSIVE a (x) AS (SELECT 1), b AS MATERIALIZED (SELECT x FROM a) SELECT * FROM b")
	require.NotNil(t, stmt.With)
	assert.True(t, stmt.With.Recursive)
	require.Len(t, stmt.With.CTEs, 2)
	assert.Equal(t, "a", stmt.With.CTEs[0].Name)
	assert.Equal(t, []string{"x"}, stmt.With.CTEs[0].Columns)
	assert.Equal(t, "b", stmt.With.CTEs[1].Name)
}

func TestParse_Insert(t *testing.T) {
	t.Run("insert select", func(t *testing.T) {
		ins, ok := parseOne(t, "INSERT INTO db.tgt (a, b) SELECT a, b FROM src").(*InsertStmt)
		require.True(t, ok)
		assert.Equal(t, "db.tgt", ins.Table.QualifiedName())
		assert.Equal(t, []string{"a", "b"}, ins.Columns)
		assert.NotNil(t, ins.Select)
		assert.False(t, ins.Overwrite)
	})

	t.Run("insert overwrite partition", func(t *testing.T) {
		ins, ok := parseOne(t, "INSERT OVERWRITE TABLE t PARTITION (dt = '2020-01-01') SELECT * FROM s").(*InsertStmt)
		require.True(t, ok)
		assert.True(t, ins.Overwrite)
		assert.Equal(t, "t", ins.Table.Name)
	})

	t.Run("insert values", func(t *testing.T) {
		ins, ok := parseOne(t, "INSERT INTO t VALUES (1, 'a'), (2, 'b')").(*InsertStmt)
		require.True(t, ok)
		assert.Nil(t, ins.Select)
		assert.Len(t, ins.Values, 2)
	})

	t.Run("leading with", func(t *testing.T) {
		ins, ok := parseOne(t, "WITH c AS (SELECT 1 AS x) INSERT INTO t SELECT x FROM c").(*InsertStmt)
		require.True(t, ok)
		require.NotNil(t, ins.Select.With)
		assert.Equal(t, "c", ins.Select.With.CTEs[0].Name)
	})

	t.Run("on conflict tail", func(t *testing.T) {
		_, ok := parseOne(t, "INSERT INTO t SELECT * FROM s ON CONFLICT DO NOTHING").(*InsertStmt)
		assert.True(t, ok)
	})
}

func TestParse_Create(t *testing.T) {
	tests := []struct {
		sql       string
		kind      CreateKind
		name      string
		hasSelect bool
	}{
		{"CREATE TABLE t AS SELECT a FROM s", CreateTable, "t", true},
		{"CREATE OR REPLACE VIEW v (a) AS SELECT x FROM s", CreateView, "v", true},
		{"CREATE TEMPORARY TABLE IF NOT EXISTS t AS (SELECT a FROM s)", CreateTable, "t", true},
		{"CREATE TABLE t STORED AS PARQUET AS SELECT a FROM s", CreateTable, "t", true},
		{"CREATE MATERIALIZED VIEW v AS SELECT a FROM s", CreateView, "v", true},
		{"CREATE TABLE t (a INT, b VARCHAR(10), PRIMARY KEY (a))", CreateTable, "t", false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			c, ok := parseOne(t, tt.sql).(*CreateStmt)
			require.True(t, ok)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.name, c.Table.Name)
			assert.Equal(t, tt.hasSelect, c.Select != nil)
		})
	}

	c := parseOne(t, "CREATE TABLE t (a INT, b VARCHAR(10), PRIMARY KEY (a))").(*CreateStmt)
	assert.Equal(t, []string{"a", "b"}, c.Columns)
}

func TestParse_Expressions(t *testing.T) {
	sqls := []string{
		"SELECT CASE WHEN a IS NOT NULL THEN CAST(b AS VARCHAR(10)) ELSE c::int END FROM t",
		"SELECT a FROM t WHERE x IN (1, 2) AND y NOT LIKE 'a%' AND z BETWEEN 1 AND 2",
		"SELECT a FROM t WHERE d > DATE '2020-01-01' AND ts < now() - INTERVAL '1' DAY",
		"SELECT a FROM t WHERE EXISTS (SELECT 1 FROM u WHERE u.id = t.id)",
		"SELECT a FROM t WHERE b = ANY (SELECT b FROM u) OR c > ALL (SELECT c FROM u)",
		"SELECT EXTRACT(year FROM d) AS y, DATEADD(day, 1, d) AS tomorrow FROM t",
		"SELECT SUBSTRING(s FROM 1 FOR 2), TRIM(BOTH ' ' FROM s) FROM t",
		"SELECT ARRAY_AGG(x ORDER BY y DESC) FILTER (WHERE x > 0) FROM t",
		"SELECT PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY x) FROM t",
		"SELECT FIRST_VALUE(x) IGNORE NULLS OVER (PARTITION BY a ORDER BY b) FROM t",
		"SELECT ROW_NUMBER() OVER (PARTITION BY a ORDER BY b ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM t",
		"SELECT SUM(x) OVER w FROM t WINDOW w AS (PARTITION BY a)",
		"SELECT a FROM t QUALIFY ROW_NUMBER() OVER (PARTITION BY a ORDER BY b) = 1",
		"SELECT j->>'k', j->'a', arr[1], v:field.sub::string FROM t",
		"SELECT TRY_CAST(a AS DOUBLE PRECISION), x::timestamp with time zone FROM t",
		"SELECT a FROM t WHERE b IS DISTINCT FROM c AND d RLIKE '^x'",
		"SELECT a FROM t GROUP BY GROUPING SETS ((a), (b)) HAVING count(*) > 1",
		"SELECT a FROM t ORDER BY a NULLS LAST LIMIT 10 OFFSET 5",
		"SELECT a FROM t ORDER BY a FETCH FIRST 10 ROWS ONLY",
		"SELECT a FROM t LIMIT 5, 10",
		"SELECT DISTINCT ON (a) a, b FROM t",
		"SELECT TOP 10 a FROM t",
		"SELECT left(s, 3), right(s, 2), replace(s, 'a', 'b'), if(x, 1, 0) FROM t",
		"SELECT a, b, FROM t",
		"SELECT ts AT TIME ZONE 'UTC' FROM t",
		"SELECT t.values, t.range FROM t",
		"SELECT ARRAY[1, 2], [3, 4] FROM t",
		"SELECT a FROM t DISTRIBUTE BY a SORT BY b",
		"SELECT a FROM t WHERE x = $1 AND y = ? AND z = :z AND w = @w",
	}

	for _, sql := range sqls {
		t.Run(sql, func(t *testing.T) {
			parseSelect(t, sql)
		})
	}
}

func TestParse_FunctionArguments(t *testing.T) {
	core := parseSelect(t, "SELECT EXTRACT(year FROM d) FROM t").Body.Left
	fn, ok := core.Columns[0].Expr.(*FuncCall)
	require.True(t, ok)
	assert.Equal(t, "EXTRACT", fn.Name)
	require.Len(t, fn.Args, 2)
	assert.Equal(t, &Literal{Type: LiteralString, Value: "YEAR"}, fn.Args[0])
	assert.Equal(t, &ColumnRef{Column: "d"}, fn.Args[1])
}

func TestParse_SemiStructuredPath(t *testing.T) {
	core := parseSelect(t, "SELECT data:foo.bar::string AS f FROM t1").Body.Left
	require.Len(t, core.Columns, 1)
	assert.Equal(t, "f", core.Columns[0].Alias)

	cast, ok := core.Columns[0].Expr.(*CastExpr)
	require.True(t, ok)
	idx, ok := cast.Expr.(*IndexExpr)
	require.True(t, ok)
	assert.Equal(t, &ColumnRef{Column: "data"}, idx.Expr)
	assert.Equal(t, &Literal{Type: LiteralString, Value: "foo.bar"}, idx.Index)
}

func TestParse_TypedLiteral(t *testing.T) {
	core := parseSelect(t, "SELECT DATE '2020-01-01' AS d").Body.Left
	assert.Equal(t, &Literal{Type: LiteralString, Value: "2020-01-01", TypeName: "DATE"}, core.Columns[0].Expr)
	assert.Equal(t, "d", core.Columns[0].Alias)
}

func TestParseStatements_IsolatesFailures(t *testing.T) {
	stmts, errs := ParseStatements("SELECT a FROM t; SELECT FROM WHERE; SELECT b FROM u")
	assert.Len(t, stmts, 2)
	require.Len(t, errs, 1)

	var pe *ParseError
	assert.ErrorAs(t, errs[0], &pe)
}

func TestParseStatements_Unsupported(t *testing.T) {
	tests := []struct {
		sql     string
		keyword string
	}{
		{"UPDATE t SET a = 1", "UPDATE"},
		{"DELETE FROM t WHERE a = 1", "DELETE"},
		{"DROP TABLE t", "DROP"},
		{"CREATE INDEX i ON t (a)", "CREATE INDEX"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmts, errs := ParseStatements(tt.sql)
			assert.Empty(t, stmts)
			require.Len(t, errs, 1)

			var ue *UnsupportedError
			require.ErrorAs(t, errs[0], &ue)
			assert.Equal(t, tt.keyword, ue.Keyword)
		})
	}
}

func TestParseStatements_NotSQL(t *testing.T) {
	_, errs := ParseStatements("hello world")
	require.Len(t, errs, 1)

	var pe *ParseError
	assert.ErrorAs(t, errs[0], &pe)
}

func TestParseStatements_Truncated(t *testing.T) {
	sqls := []string{
		"SELECT a FROM t, ",
		"SELECT a FROM t LEFT JOIN ",
		"SELECT a FROM (SELECT b FROM t, ",
	}

	for _, sql := range sqls {
		t.Run(sql, func(t *testing.T) {
			_, errs := ParseStatements(sql)
			assert.NotEmpty(t, errs, "strict parsing rejects the cut-off statement")

			stmts, errs := ParseStatementsWithOptions(sql, Options{Truncated: true})
			assert.Empty(t, errs)
			assert.Len(t, stmts, 1)
		})
	}
}

func TestParse_DeepNestingIsAnError(t *testing.T) {
	sql := "SELECT " + strings.Repeat("(", 400) + "1" + strings.Repeat(")", 400)
	_, err := Parse(sql)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("SELECT a\nFROM t WHERE ,")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Pos.Line)
}
