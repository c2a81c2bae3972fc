package lineage

import "strings"

// starColumn names wildcard outputs.
const starColumn = "*"

// outputColumn is one column produced by a query block.
type outputColumn struct {
	name      string
	sources   []string // column node IDs, in first-seen order
	transform Transform
	id        string // node ID once materialized on a table
}

func (c *outputColumn) addSources(ids ...string) {
	for _, id := range ids {
		if !contains(c.sources, id) {
			c.sources = append(c.sources, id)
		}
	}
}

// relation is the ordered output of a query block.
type relation struct {
	columns []*outputColumn
}

// lookup finds a named, non-wildcard output column.
func (r *relation) lookup(name string) *outputColumn {
	for _, c := range r.columns {
		if c.name != starColumn && strings.EqualFold(c.name, name) {
			return c
		}
	}
	return nil
}

// stars returns the wildcard outputs.
func (r *relation) stars() []*outputColumn {
	var out []*outputColumn
	for _, c := range r.columns {
		if c.name == starColumn {
			out = append(out, c)
		}
	}
	return out
}

// rename applies a column alias list positionally.
func (r *relation) rename(names []string) {
	for i, name := range names {
		if i >= len(r.columns) {
			return
		}
		r.columns[i].name = name
	}
}

// union merges the positionally matching outputs of a set operation branch.
func (r *relation) union(other *relation) {
	for i, c := range other.columns {
		if i >= len(r.columns) {
			return
		}
		r.columns[i].addSources(c.sources...)
		r.columns[i].transform = mergeTransform(r.columns[i].transform, c.transform)
	}
}

// nodeIDs returns the materialized node IDs of the given outputs.
func nodeIDs(cols ...*outputColumn) []string {
	var ids []string
	for _, c := range cols {
		if c.id != "" {
			ids = append(ids, c.id)
		}
	}
	return ids
}
