// Package output renders command results for terminals, scripts and agents.
//
// The auto mode picks styled text for a terminal and markdown when output is
// piped. JSON and YAML are stable machine formats.
package output

import (
	"fmt"
	"strings"
)

// Mode selects how results are rendered.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeTable    Mode = "table"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
	ModeMarkdown Mode = "markdown"
)

// Modes lists the accepted --output values.
func Modes() []string {
	return []string{
		string(ModeAuto), string(ModeText), string(ModeTable),
		string(ModeJSON), string(ModeYAML), string(ModeMarkdown),
	}
}

// ParseMode validates an output mode name. Empty selects auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case "md":
		return ModeMarkdown, nil
	case "yml":
		return ModeYAML, nil
	case ModeAuto, ModeText, ModeTable, ModeJSON, ModeYAML, ModeMarkdown:
		return m, nil
	}
	return "", fmt.Errorf("unknown output mode %q (want one of %s)", s, strings.Join(Modes(), "|"))
}
