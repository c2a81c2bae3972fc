package lineage

import "strings"

// entryKind indicates the type of scope entry.
type entryKind int

const (
	// entryTable is a physical table.
	entryTable entryKind = iota
	// entryCTE is a Common Table Expression.
	entryCTE
	// entryDerived is a derived table, lateral subquery or table function.
	entryDerived
)

// scopeEntry is a table, CTE or derived table visible in a query.
type scopeEntry struct {
	kind      entryKind
	name      string // name as written
	qualified string // lower-cased schema.name for physical tables
	alias     string
	tableID   string    // graph node ID
	rel       *relation // output columns of virtual entries
}

// effectiveName returns the name used to reference this entry.
func (e *scopeEntry) effectiveName() string {
	if e.alias != "" {
		return e.alias
	}
	return e.name
}

func (e *scopeEntry) virtual() bool {
	return e.kind != entryTable
}

// hasColumn reports whether a virtual entry is known to expose name.
func (e *scopeEntry) hasColumn(name string) bool {
	if e.rel == nil {
		return false
	}
	return e.rel.lookup(name) != nil
}

// scope tracks the tables and CTEs visible to one query block.
type scope struct {
	parent  *scope
	entries []*scopeEntry
	byName  map[string]*scopeEntry // effective name -> entry (lower-cased)
	ctes    map[string]*scopeEntry
}

func newScope(parent *scope) *scope {
	return &scope{
		parent: parent,
		byName: make(map[string]*scopeEntry),
		ctes:   make(map[string]*scopeEntry),
	}
}

// add registers a FROM entry under its effective name, and under its
// qualified name when unaliased.
func (s *scope) add(e *scopeEntry) {
	s.entries = append(s.entries, e)
	s.byName[strings.ToLower(e.effectiveName())] = e
	if e.alias == "" && e.qualified != "" {
		s.byName[e.qualified] = e
	}
}

// addCTE registers a CTE for FROM lookups in this scope and its children.
func (s *scope) addCTE(e *scopeEntry) {
	s.ctes[strings.ToLower(e.name)] = e
}

// lookup finds an entry by alias or table name, searching outward.
func (s *scope) lookup(name string) (*scopeEntry, bool) {
	key := strings.ToLower(name)
	for cur := s; cur != nil; cur = cur.parent {
		if e, ok := cur.byName[key]; ok {
			return e, true
		}
	}
	return nil, false
}

// lookupCTE finds a CTE by name, searching outward.
func (s *scope) lookupCTE(name string) (*scopeEntry, bool) {
	key := strings.ToLower(name)
	for cur := s; cur != nil; cur = cur.parent {
		if e, ok := cur.ctes[key]; ok {
			return e, true
		}
	}
	return nil, false
}

// resolveUnqualified picks the entry owning an unqualified column. The
// nearest scope with FROM entries decides: a single entry owns every
// column; otherwise the unique virtual entry exposing the name wins when no
// physical table competes. ambiguous is set when no single owner exists.
func (s *scope) resolveUnqualified(column string) (entry *scopeEntry, ambiguous bool) {
	cur := s
	for cur != nil && len(cur.entries) == 0 {
		cur = cur.parent
	}
	if cur == nil {
		return nil, false
	}
	if len(cur.entries) == 1 {
		return cur.entries[0], false
	}

	var match *scopeEntry
	for _, e := range cur.entries {
		if !e.virtual() {
			return nil, true
		}
		if e.hasColumn(column) {
			if match != nil {
				return nil, true
			}
			match = e
		}
	}
	if match == nil {
		return nil, true
	}
	return match, false
}
