// Package main provides tests for the sqllineage CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shaweiguo/datahub/internal/cli"
)

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	if err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "sqllineage") {
		t.Errorf("version output should contain 'sqllineage', got: %s", output)
	}
}

func TestHelpListsCommands(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help error = %v", err)
	}
	for _, want := range []string{"init", "tables", "columns", "extract", "graph", "batch", "watch", "repl", "cache"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help should list %q", want)
		}
	}
}
