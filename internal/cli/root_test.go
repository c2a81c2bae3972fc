package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"init", "tables", "columns", "extract", "graph", "batch", "watch", "repl", "cache", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "strategy", "output", "verbose", "log-level", "dbms", "no-cache", "cache-path"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_Tables(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "", "tables", "-o", "text", "--sql", "SELECT x.a FROM db.t2 x JOIN db.t1 y ON x.id = y.id")
	require.NoError(t, err)
	assert.Equal(t, "db.t1\ndb.t2\n", out)

	assert.DirExists(t, ".sqllineage", "default cache is created in the working directory")
}

func TestRootCommand_NoCache(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "SELECT a, b AS c FROM t1", "columns", "--no-cache", "-o", "json")
	require.NoError(t, err)

	var cols []string
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	assert.Equal(t, []string{"a", "c"}, cols)
	assert.NoDirExists(t, ".sqllineage")
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cachePath := filepath.Join(dir, "elsewhere", "lineage.db")
	cfg := "output: json\ncache:\n  path: " + cachePath + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqllineage.yaml"), []byte(cfg), 0600))

	out, _, err := execute(t, "", "extract", "--sql", "SELECT a FROM t1")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []any{"t1"}, got["source_tables"])
	assert.FileExists(t, cachePath)
}

func TestRootCommand_VerboseLogsToStderr(t *testing.T) {
	t.Chdir(t.TempDir())

	_, errOut, err := execute(t, "", "extract", "-v", "--no-cache", "-o", "json", "--sql", "SELECT a FROM (SELECT b FROM")
	require.NoError(t, err)
	assert.Contains(t, errOut, "skipped statement")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "", "tables", "--strategy", "fancy", "--sql", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "sqllineage")

	_, _, err = execute(t, "", "completion", "tcsh")
	assert.Error(t, err)
}

func TestGetRendererFallback(t *testing.T) {
	assert.NotNil(t, GetRenderer(context.Background()))
	assert.Equal(t, "graph", GetConfig(context.Background()).Strategy)
}
