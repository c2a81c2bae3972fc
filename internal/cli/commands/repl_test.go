package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaweiguo/datahub/internal/cli/config"
	"github.com/shaweiguo/datahub/internal/cli/output"
)

func newTestSession(t *testing.T) (*replSession, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig(t, "json")
	cfg.Cache.Enabled = false

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetContext(config.WithConfig(context.Background(), cfg))

	cc, err := NewCommandContextWithoutCache(cmd)
	require.NoError(t, err)
	return newREPLSession(cc, false), out, errOut
}

func TestREPLSession_MultiLineStatement(t *testing.T) {
	s, out, _ := newTestSession(t)
	ctx := context.Background()

	assert.False(t, s.feed(ctx, "SELECT a, b AS c"))
	assert.True(t, s.pending())
	assert.Empty(t, out.String())

	assert.False(t, s.feed(ctx, "FROM db.t1;"))
	assert.False(t, s.pending())

	var got output.ExtractOutput
	require.NoError(t, json.NewDecoder(out).Decode(&got))
	assert.Equal(t, replSource, got.Source)
	assert.Equal(t, []string{"db.t1"}, got.SourceTables)
	assert.Equal(t, []string{"a", "c"}, got.Columns)
	assert.Nil(t, got.ColumnLineage)
}

func TestREPLSession_Detail(t *testing.T) {
	s, out, _ := newTestSession(t)
	ctx := context.Background()

	s.feed(ctx, ".detail on")
	assert.True(t, s.detail)
	assert.Contains(t, out.String(), "detail: on")
	out.Reset()

	s.feed(ctx, "SELECT a FROM t1;")
	var got output.ExtractOutput
	require.NoError(t, json.NewDecoder(out).Decode(&got))
	assert.NotEmpty(t, got.ColumnLineage)

	s.feed(ctx, ".detail")
	assert.False(t, s.detail)
}

func TestREPLSession_DotCommands(t *testing.T) {
	tests := []struct {
		line   string
		quit   bool
		out    string
		errOut string
	}{
		{line: ".help", out: ".strategy"},
		{line: ".strategy", out: "strategy: graph"},
		{line: ".detail maybe", errOut: "Usage: .detail"},
		{line: ".clear"},
		{line: ".nope", errOut: "Unknown command: .nope"},
		{line: ".quit", quit: true},
		{line: ".EXIT", quit: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			s, out, errOut := newTestSession(t)
			assert.Equal(t, tt.quit, s.feed(context.Background(), tt.line))
			if tt.out != "" {
				assert.Contains(t, out.String(), tt.out)
			}
			if tt.errOut != "" {
				assert.Contains(t, errOut.String(), tt.errOut)
			}
		})
	}
}

func TestREPLSession_Errors(t *testing.T) {
	s, _, errOut := newTestSession(t)
	ctx := context.Background()

	assert.False(t, s.feed(ctx, "this is not sql;"))
	assert.Contains(t, errOut.String(), "not parseable")

	s.feed(ctx, "SELECT a")
	require.True(t, s.pending())
	assert.False(t, s.feed(ctx, ".quit"), "dot-commands are SQL inside a pending statement")
	s.reset()
	assert.False(t, s.pending())
}

func TestREPLCommand_Metadata(t *testing.T) {
	cmd := NewREPLCommand()
	assert.Equal(t, "repl", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("detail"))
}
