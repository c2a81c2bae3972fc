package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaweiguo/datahub/pkg/normalize"
)

// isolate runs the test in an empty directory so no config file is found.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "sqllineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("strategy", "", "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("log-level", "", "")
	fs.String("dbms", "", "")
	fs.Bool("no-cache", false, "")
	fs.String("cache-path", "", "")
	fs.Int("concurrency", 0, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultStrategy, cfg.Strategy)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultCachePath, cfg.Cache.Path)
	assert.Zero(t, cfg.Batch.Concurrency)
	assert.True(t, cfg.Normalize.IsZero())
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
strategy: light
output: json
dbms: snowflake
normalize:
  templates: false
  truncate_markers: ["LIMIT 0"]
cache:
  enabled: false
batch:
  concurrency: 4
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "light", cfg.Strategy)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "snowflake", cfg.DBMS)
	require.NotNil(t, cfg.Normalize.Templates)
	assert.False(t, *cfg.Normalize.Templates)
	assert.Nil(t, cfg.Normalize.Truncate)
	assert.Equal(t, []string{"LIMIT 0"}, cfg.Normalize.TruncateMarkers)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 4, cfg.Batch.Concurrency)

	// The file is found by absolute path or relative to the working directory.
	resolved, err := filepath.EvalSymlinks(cfg.ConfigFile)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, want, resolved)
}

func TestLoad_ConfigFileSearchedUpward(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "strategy: light\n")

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Strategy)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	other := t.TempDir()
	path := writeConfig(t, other, "log_level: debug\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, path, cfg.ConfigFile)

	_, err = Load(filepath.Join(other, "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_EnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("SQLLINEAGE_STRATEGY", "light")
	t.Setenv("SQLLINEAGE_CACHE__PATH", "/tmp/lineage.db")
	t.Setenv("SQLLINEAGE_NORMALIZE__TRUNCATE_MARKERS", "LIMIT 0,FETCH FIRST")
	t.Setenv("SQLLINEAGE_NORMALIZE__RESERVED_WORDS", "false")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "light", cfg.Strategy)
	assert.Equal(t, "/tmp/lineage.db", cfg.Cache.Path)
	assert.Equal(t, []string{"LIMIT 0", "FETCH FIRST"}, cfg.Normalize.TruncateMarkers)
	require.NotNil(t, cfg.Normalize.ReservedWords)
	assert.False(t, *cfg.Normalize.ReservedWords)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "strategy: light\noutput: yaml\nlog_level: info\n")
	t.Setenv("SQLLINEAGE_STRATEGY", "graph")
	t.Setenv("SQLLINEAGE_OUTPUT", "table")

	// Env wins over file
	cfg, err := Load("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "graph", cfg.Strategy)
	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, "info", cfg.LogLevel, "unset flags do not override the file")

	// Flags win over env
	cfg, err = Load("", testFlags(t, "--strategy", "light", "-o", "json"))
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Strategy)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_Flags(t *testing.T) {
	isolate(t)

	cfg, err := Load("", testFlags(t,
		"--no-cache",
		"--cache-path", "custom.db",
		"--log-level", "debug",
		"--concurrency", "3",
		"--dbms", "mysql",
		"-v",
	))
	require.NoError(t, err)

	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "custom.db", cfg.Cache.Path)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Batch.Concurrency)
	assert.Equal(t, "mysql", cfg.DBMS)
	assert.True(t, cfg.Verbose)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{name: "unknown strategy", args: []string{"--strategy", "fancy"}, errSubstr: "strategy"},
		{name: "unknown output", args: []string{"-o", "xml"}, errSubstr: "output"},
		{name: "bad log level", args: []string{"--log-level", "loud"}, errSubstr: "log_level"},
		{name: "negative concurrency", args: []string{"--concurrency", "-1"}, errSubstr: "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load("", testFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestValidate_CachePathRequired(t *testing.T) {
	cfg := &Config{Strategy: "graph", Cache: CacheConfig{Enabled: true}}
	assert.ErrorContains(t, cfg.Validate(), "cache.path")

	cfg.Cache.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestNormalizeConfig_Apply(t *testing.T) {
	off := false
	n := NormalizeConfig{Truncate: &off, TruncateMarkers: []string{"X"}, StripDirectives: &off}
	assert.False(t, n.IsZero())

	got := n.Apply(normalize.DefaultOptions())
	want := normalize.DefaultOptions()
	want.Truncate = false
	want.TruncateMarkers = []string{"X"}
	want.StripDirectives = false
	assert.Equal(t, want, got)

	assert.Equal(t, normalize.LightOptions(), NormalizeConfig{}.Apply(normalize.LightOptions()))
}

func TestParserOptions(t *testing.T) {
	cfg := &Config{Strategy: "light"}
	opts, err := cfg.ParserOptions(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	on := true
	cfg.DBMS = "postgresql"
	cfg.Normalize.Templates = &on
	opts, err = cfg.ParserOptions(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	cfg.Strategy = "fancy"
	_, err = cfg.ParserOptions(nil)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger(&Config{LogLevel: "error"}, os.Stderr)
	assert.False(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.True(t, logger.Enabled(ctx, slog.LevelError))

	logger = NewLogger(&Config{LogLevel: "error", Verbose: true}, os.Stderr)
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = NewLogger(&Config{}, os.Stderr)
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.False(t, GetLogger(ctx).Enabled(ctx, slog.LevelError), "fallback logger discards")
	assert.Equal(t, DefaultStrategy, FromContext(ctx).Strategy)

	cfg := &Config{Strategy: "light"}
	assert.Same(t, cfg, FromContext(WithConfig(ctx, cfg)))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	assert.Same(t, logger, GetLogger(context.WithValue(ctx, LoggerKey(), logger)))
}
