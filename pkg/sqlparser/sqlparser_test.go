package sqlparser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaweiguo/datahub/internal/testutil"
	"github.com/shaweiguo/datahub/pkg/lineage"
	"github.com/shaweiguo/datahub/pkg/normalize"
)

func TestGraphParser(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		tables  []string
		columns []string
	}{
		{
			name:    "plain and aliased columns",
			sql:     "SELECT a, b AS c FROM t1",
			tables:  []string{"t1"},
			columns: []string{"a", "c"},
		},
		{
			name:    "insert target is not a source",
			sql:     "INSERT INTO t2 SELECT a FROM t1",
			tables:  []string{"t1"},
			columns: []string{"a"},
		},
		{
			name:    "cte is not a source",
			sql:     "WITH cte AS (SELECT a FROM t1) SELECT a FROM cte",
			tables:  []string{"t1"},
			columns: []string{"a"},
		},
		{
			name:    "unaliased aggregate",
			sql:     "SELECT count(*) FROM t1",
			tables:  []string{"t1"},
			columns: []string{},
		},
		{
			name:    "join hides columns",
			sql:     "SELECT t1.a, t2.b FROM t1 JOIN t2 ON t1.id = t2.id",
			tables:  []string{"t1", "t2"},
			columns: []string{},
		},
		{
			name:    "tables sorted and deduplicated",
			sql:     "SELECT x.a FROM b.t2 x JOIN a.t1 y ON x.id = y.id JOIN b.t2 z ON z.id = y.id",
			tables:  []string{"a.t1", "b.t2"},
			columns: []string{},
		},
		{
			name:    "reserved words round trip",
			sql:     "SELECT date, Timestamp FROM t1",
			tables:  []string{"t1"},
			columns: []string{"date", "timestamp"},
		},
		{
			name:    "table named date",
			sql:     "SELECT a FROM date",
			tables:  []string{"date"},
			columns: []string{"a"},
		},
		{
			name:    "looker view",
			sql:     "SELECT a FROM ${my_view.SQL_TABLE_NAME}",
			tables:  []string{"my_view.SQL_TABLE_NAME"},
			columns: []string{"a"},
		},
		{
			name:    "template placeholder",
			sql:     "SELECT a FROM ${db}.t1",
			tables:  []string{"db.t1"},
			columns: []string{"a"},
		},
		{
			name:    "lateral flatten truncated",
			sql:     "SELECT a FROM t1 lateral flatten(input => t1.items) f",
			tables:  []string{"t1"},
			columns: []string{"a"},
		},
		{
			name:    "bracket identifiers",
			sql:     "SELECT a FROM [dbo].[t1]",
			tables:  []string{"dbo.t1"},
			columns: []string{"a"},
		},
		{
			name:    "semi-structured path keeps base column",
			sql:     "SELECT data:foo::string AS f FROM t1",
			tables:  []string{"t1"},
			columns: []string{"f"},
		},
		{
			name:    "unsupported statement skipped",
			sql:     "UPDATE t SET a = 1; SELECT a FROM t1",
			tables:  []string{"t1"},
			columns: []string{"a"},
		},
		{
			name:    "comments only",
			sql:     "-- nothing here\n/* still nothing */",
			tables:  []string{},
			columns: []string{},
		},
		{
			name:    "blank",
			sql:     "   ",
			tables:  []string{},
			columns: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewGraphParser(tt.sql, WithLogger(testutil.NewTestLogger(t)))
			require.NoError(t, err)
			assert.Equal(t, tt.tables, p.GetTables())
			assert.Equal(t, tt.columns, p.GetColumns())
		})
	}
}

func TestGraphParser_Deterministic(t *testing.T) {
	sql := `
		WITH c AS (SELECT a, b FROM raw.orders)
		INSERT INTO mart.orders SELECT a, b AS total FROM c;
		SELECT total AS t FROM mart.orders`

	first, err := New(sql)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := New(sql)
		require.NoError(t, err)
		assert.Equal(t, first.GetTables(), again.GetTables())
		assert.Equal(t, first.GetColumns(), again.GetColumns())
		assert.Equal(t, first.Result(), again.Result())
	}
	assert.Equal(t, []string{"raw.orders"}, first.GetTables())
	assert.Equal(t, []string{"a", "t"}, first.GetColumns(), "unread insert columns stay terminal")
}

func TestGraphParser_ResultIsCopied(t *testing.T) {
	p, err := NewGraphParser("SELECT a FROM t1")
	require.NoError(t, err)

	tables := p.GetTables()
	tables[0] = "changed"
	assert.Equal(t, []string{"t1"}, p.GetTables())
}

func TestGraphParser_MalformedStatement(t *testing.T) {
	logger, logs := testutil.NewCapturingLogger()
	p, err := NewGraphParser("SELECT a FROM (SELECT b FROM", WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "skipped statement")
	assert.Empty(t, p.GetTables())
	assert.Empty(t, p.GetColumns())
	require.NotEmpty(t, p.Result().Diagnostics)
	assert.Equal(t, lineage.DiagSkippedStatement, p.Result().Diagnostics[0].Kind)
}

func TestGraphParser_Unparseable(t *testing.T) {
	_, err := NewGraphParser("this is not sql at all")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseable))

	var ue *UnparseableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "this is not sql at all", ue.SQL)
}

func TestGraphParser_ColumnLineage(t *testing.T) {
	res, err := Extract("INSERT INTO db.t2 SELECT a, b + c AS d FROM db.t1")
	require.NoError(t, err)

	assert.Equal(t, []string{"db.t1"}, res.SourceTables)
	assert.Equal(t, []string{"db.t2"}, res.TargetTables)
	require.Len(t, res.Lineage("d"), 1)
	d := res.Lineage("d")[0]
	assert.Equal(t, "db.t2", d.Table)
	assert.Equal(t, []lineage.SourceColumn{
		{Table: "db.t1", Column: "b"},
		{Table: "db.t1", Column: "c"},
	}, d.Sources)
}

func TestGraphParser_NormalizeOverride(t *testing.T) {
	opts := normalize.DefaultOptions()
	opts.Templates = false

	res, err := Extract("SELECT a FROM t1", WithNormalizeOptions(opts))
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, res.SourceTables)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", StrategyGraph},
		{"graph", StrategyGraph},
		{" Light ", StrategyLight},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStrategy("regex")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New("SELECT a FROM t1", WithStrategy("regex"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNew_Delegates(t *testing.T) {
	p, err := New("SELECT a FROM t1")
	require.NoError(t, err)
	assert.IsType(t, &GraphParser{}, p.Unwrap())

	p, err = New("SELECT a FROM t1", WithStrategy(StrategyLight))
	require.NoError(t, err)
	assert.IsType(t, &LightParser{}, p.Unwrap())

	var _ Parser = p
}

func TestFreeFunctions(t *testing.T) {
	tables, err := GetTables("SELECT a, b AS c FROM t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, tables)

	columns, err := GetColumns("SELECT a, b AS c FROM t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, columns)

	_, err = GetTables("not sql")
	assert.ErrorIs(t, err, ErrUnparseable)
}
