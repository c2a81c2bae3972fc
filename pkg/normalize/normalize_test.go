package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Default(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		applied []string
	}{
		{
			name:  "untouched",
			input: "SELECT a FROM t",
			want:  "SELECT a FROM t",
		},
		{
			name:    "truncate at marker",
			input:   "SELECT a FROM t, lateral flatten(input => t.v) f",
			want:    "SELECT a FROM t, ",
			applied: []string{PassTruncate},
		},
		{
			name:    "truncate is case-insensitive",
			input:   "SELECT a FROM t, LATERAL FLATTEN(input => t.v) f",
			want:    "SELECT a FROM t, ",
			applied: []string{PassTruncate},
		},
		{
			name:    "date whole word",
			input:   "SELECT Date, my_date, dated FROM t",
			want:    "SELECT __d_a_t_e, my_date, dated FROM t",
			applied: []string{PassDate},
		},
		{
			name:    "timestamp whole word",
			input:   "SELECT timestamp FROM t",
			want:    "SELECT __t_i_m_e_s_t_a_m_p FROM t",
			applied: []string{PassTimestamp},
		},
		{
			name:    "encode directive",
			input:   "CREATE TABLE t (a int ENCODE zstd, b int encode lzo)",
			want:    "CREATE TABLE t (a int, b int)",
			applied: []string{PassDirectives},
		},
		{
			name:    "looker table name",
			input:   "SELECT a FROM ${my_view.SQL_TABLE_NAME}",
			want:    "SELECT a FROM __my_view__.__sql_table_name__",
			applied: []string{PassLooker},
		},
		{
			name:    "generic placeholders unwrap one at a time",
			input:   "SELECT ${a} FROM ${b}",
			want:    "SELECT a FROM b",
			applied: []string{PassTemplates},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewPipeline(DefaultOptions()).Run(tt.input)
			assert.Equal(t, tt.want, res.SQL)
			assert.Equal(t, tt.applied, res.Applied)
		})
	}
}

func TestNormalize_Light(t *testing.T) {
	sql, tokens := Normalize("SELECT a,date FROM t WHERE Date = 1 and timestamp > 0", LightOptions())

	assert.Equal(t, "SELECT a,date FROM t WHERE Date = 1 and timestamp > 0", sql,
		"comma-bound and capitalised date stay, timestamp is never escaped")
	assert.Zero(t, tokens.Len())

	sql, tokens = Normalize("SELECT date FROM t", LightOptions())
	assert.Equal(t, "SELECT __d_a_t_e FROM t", sql)
	assert.Equal(t, "date", tokens.Reverse(DateSentinel))

	sql, _ = Normalize("SELECT ${a} FROM t", LightOptions())
	assert.Equal(t, "SELECT ${a} FROM t", sql, "templates are off")
}

func TestNormalize_OptionsDisablePasses(t *testing.T) {
	sql, tokens := Normalize("SELECT date FROM t, lateral flatten(x)", Options{})
	assert.Equal(t, "SELECT date FROM t, lateral flatten(x)", sql)
	assert.Zero(t, tokens.Len())

	p := NewPipeline(Options{Truncate: true, TruncateMarkers: []string{" ", ""}})
	assert.Empty(t, p.Passes(), "blank markers yield no truncate pass")
}

func TestNormalize_MultipleMarkers(t *testing.T) {
	opts := Options{Truncate: true, TruncateMarkers: []string{"qualify", "lateral flatten"}}
	res := NewPipeline(opts).Run("SELECT a FROM t, lateral flatten(v) QUALIFY x")

	assert.Equal(t, "SELECT a FROM t, ", res.SQL, "earliest marker wins")
	assert.True(t, res.Truncated())
	assert.True(t, res.Rewritten())
}

func TestPipeline_Passes(t *testing.T) {
	assert.Equal(t,
		[]string{PassTruncate, PassDate, PassTimestamp, PassDirectives, PassLooker, PassTemplates},
		NewPipeline(DefaultOptions()).Passes())
	assert.Equal(t,
		[]string{PassTruncate, PassDate, PassDirectives},
		NewPipeline(LightOptions()).Passes())
}

func TestTokenMap_Reverse(t *testing.T) {
	res := NewPipeline(DefaultOptions()).Run(
		"SELECT date, timestamp FROM ${my_view.SQL_TABLE_NAME}")
	require.Equal(t, 3, res.Tokens.Len())

	tests := []struct {
		in   string
		want string
	}{
		{DateSentinel, "date"},
		{TimestampSentinel, "timestamp"},
		{LookerSentinel, LookerTableName},
		{"<default>." + DateSentinel, "<default>.date"},
		{"x_" + DateSentinel + "_y", "x_date_y"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, res.Tokens.Reverse(tt.in), tt.in)
	}
}

func TestTokenMap_ReverseAllCopies(t *testing.T) {
	tm := NewTokenMap()
	tm.Record(DateSentinel, "date")

	in := []string{DateSentinel, "a"}
	out := tm.ReverseAll(in)

	assert.Equal(t, []string{"date", "a"}, out)
	assert.Equal(t, []string{DateSentinel, "a"}, in)
	assert.Equal(t, []string{DateSentinel}, tm.Sentinels())
}

func TestTokenMap_Nil(t *testing.T) {
	var tm *TokenMap
	assert.Equal(t, "x", tm.Reverse("x"))
	assert.Zero(t, tm.Len())
	assert.Nil(t, tm.Sentinels())
}
