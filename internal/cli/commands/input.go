package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/internal/cli/output"
)

// stdinSource labels SQL read from standard input.
const stdinSource = "<stdin>"

var errNoInput = errors.New("no SQL given: pass a file, '-', --sql, or pipe it on stdin")

// InputOptions selects where a single-query command reads SQL from.
type InputOptions struct {
	SQL string
}

func (o *InputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.SQL, "sql", "", "SQL text to analyse instead of a file")
}

// readInput resolves the query text from --sql, a file argument, "-" or a
// piped stdin, in that order.
func readInput(cmd *cobra.Command, args []string, opts *InputOptions) (source, sql string, err error) {
	if opts.SQL != "" {
		if len(args) > 0 {
			return "", "", fmt.Errorf("--sql and a file argument are mutually exclusive")
		}
		return "", opts.SQL, nil
	}

	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return args[0], string(data), nil
	}

	in := cmd.InOrStdin()
	if len(args) == 0 && output.IsTerminal(in) {
		return "", "", errNoInput
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return stdinSource, string(data), nil
}
