package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "sqllineage> "
	replContinue   = "       ...> "
	replSource     = "<repl>"
	replHistory    = "repl_history"
	clearScreenSeq = "\033[H\033[2J"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	opts := &ExtractOptions{}
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Explore query lineage interactively",
		Long: `Start an interactive session. Each statement ending in a semicolon is
extracted and its lineage rendered. Statements may span several lines.

Type .help inside the session for the available dot-commands.`,
		Example: `  sqllineage repl
  sqllineage repl --detail`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts.Detail)
		},
	}
	cmd.Flags().BoolVar(&opts.Detail, "detail", false, "Include column-level lineage")
	return cmd
}

func runREPL(cmd *cobra.Command, detail bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var historyFile string
	if cc.Cfg.Cache.Enabled {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.Cache.Path), replHistory)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s := newREPLSession(cc, detail)
	r := cc.Renderer
	r.Printf("sqllineage REPL (strategy: %s)\n", cc.Strategy())
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if quit := s.feed(cmd.Context(), line); quit {
			return nil
		}
		if s.pending() {
			rl.SetPrompt(replContinue)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// replSession holds the state of one interactive session.
type replSession struct {
	cc     *CommandContext
	detail bool
	buf    strings.Builder
}

func newREPLSession(cc *CommandContext, detail bool) *replSession {
	return &replSession{cc: cc, detail: detail}
}

// feed consumes one input line and reports whether the session should end.
func (s *replSession) feed(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !s.pending() && strings.HasPrefix(line, ".") {
		return s.dot(line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	query := s.buf.String()
	s.buf.Reset()
	s.run(ctx, query)
	return false
}

func (s *replSession) pending() bool {
	return s.buf.Len() > 0
}

func (s *replSession) reset() {
	s.buf.Reset()
}

func (s *replSession) run(ctx context.Context, query string) {
	r := s.cc.Renderer
	out, err := s.cc.Extract(ctx, replSource, query)
	if err == nil {
		err = r.RenderExtract(out, s.detail)
	}
	if err != nil {
		r.Error(err.Error())
	}
	r.Println("")
}

// dot runs a dot-command and reports whether it ends the session.
func (s *replSession) dot(line string) bool {
	r := s.cc.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".strategy":
		r.Printf("strategy: %s\n", s.cc.Strategy())

	case ".detail":
		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "on":
				s.detail = true
			case "off":
				s.detail = false
			default:
				r.Error("Usage: .detail [on|off]")
				return false
			}
		} else {
			s.detail = !s.detail
		}
		r.Printf("detail: %s\n", onOff(s.detail))

	case ".clear":
		if r.IsTTY() {
			_, _ = io.WriteString(r.Writer(), clearScreenSeq)
		}

	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .strategy         Show the extraction strategy
  .detail [on|off]  Toggle column-level lineage
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - Statements must end with a semicolon (;)
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func newREPLCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".strategy"),
		readline.PcItem(".detail",
			readline.PcItem("on"),
			readline.PcItem("off"),
		),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
