package lineage

import (
	"sort"
	"strings"
)

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind string

// DiagnosticKind values.
const (
	DiagAmbiguousColumn  DiagnosticKind = "ambiguous_column"
	DiagUnknownQualifier DiagnosticKind = "unknown_qualifier"
	DiagSkippedStatement DiagnosticKind = "skipped_statement"
)

// Diagnostic records lineage that could not be extracted.
type Diagnostic struct {
	// Statement is the 1-based index of the statement in the input.
	Statement int            `json:"statement" yaml:"statement"`
	Kind      DiagnosticKind `json:"kind" yaml:"kind"`
	Message   string         `json:"message" yaml:"message"`
}

// SourceColumn is a physical column an output derives from.
type SourceColumn struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

func (s SourceColumn) String() string {
	if s.Table == "" {
		return s.Column
	}
	return s.Table + "." + s.Column
}

// ColumnLineage describes the sources of one terminal column.
type ColumnLineage struct {
	// Table is the written table, empty for the output of a bare SELECT.
	Table     string         `json:"table,omitempty" yaml:"table,omitempty"`
	Column    string         `json:"column" yaml:"column"`
	Transform Transform      `json:"transform,omitempty" yaml:"transform,omitempty"`
	Sources   []SourceColumn `json:"sources" yaml:"sources"`
}

// Result is the externally visible lineage of a query.
type Result struct {
	SourceTables  []string        `json:"source_tables" yaml:"source_tables"`
	TargetTables  []string        `json:"target_tables" yaml:"target_tables"`
	Columns       []string        `json:"columns" yaml:"columns"`
	ColumnLineage []ColumnLineage `json:"column_lineage,omitempty" yaml:"column_lineage,omitempty"`
	HasJoin       bool            `json:"has_join" yaml:"has_join"`
	Diagnostics   []Diagnostic    `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Empty returns a result with no lineage.
func Empty() *Result {
	return &Result{
		SourceTables: []string{},
		TargetTables: []string{},
		Columns:      []string{},
	}
}

// Rename returns a copy of r with table names passed through tableFn and
// column names through columnFn. Name lists are re-sorted and deduplicated.
func (r *Result) Rename(tableFn, columnFn func(string) string) *Result {
	out := &Result{
		SourceTables: sortedUnique(mapNames(r.SourceTables, tableFn)),
		TargetTables: sortedUnique(mapNames(r.TargetTables, tableFn)),
		Columns:      sortedUnique(mapNames(r.Columns, columnFn)),
		HasJoin:      r.HasJoin,
		Diagnostics:  append([]Diagnostic(nil), r.Diagnostics...),
	}

	for _, cl := range r.ColumnLineage {
		renamed := ColumnLineage{
			Column:    columnFn(cl.Column),
			Transform: cl.Transform,
			Sources:   make([]SourceColumn, len(cl.Sources)),
		}
		if cl.Table != "" {
			renamed.Table = tableFn(cl.Table)
		}
		for i, src := range cl.Sources {
			renamed.Sources[i] = SourceColumn{Table: tableFn(src.Table), Column: columnFn(src.Column)}
		}
		sortSources(renamed.Sources)
		out.ColumnLineage = append(out.ColumnLineage, renamed)
	}
	sortLineage(out.ColumnLineage)
	return out
}

// Lineage returns the lineage entries for an output column name.
func (r *Result) Lineage(column string) []ColumnLineage {
	var out []ColumnLineage
	for _, cl := range r.ColumnLineage {
		if strings.EqualFold(cl.Column, column) {
			out = append(out, cl)
		}
	}
	return out
}

func mapNames(names []string, fn func(string) string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fn(n)
	}
	return out
}

func sortedUnique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func sortSources(sources []SourceColumn) {
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Table != sources[j].Table {
			return sources[i].Table < sources[j].Table
		}
		return sources[i].Column < sources[j].Column
	})
}

func sortLineage(entries []ColumnLineage) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Table != entries[j].Table {
			return entries[i].Table < entries[j].Table
		}
		return entries[i].Column < entries[j].Column
	})
}
