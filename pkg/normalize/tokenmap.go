package normalize

import (
	"sort"
	"strings"
	"sync"
)

// Sentinels substituted for words the parser cannot take as identifiers.
const (
	DateSentinel       = "__d_a_t_e"
	TimestampSentinel  = "__t_i_m_e_s_t_a_m_p"
	LookerSentinel     = "__my_view__.__sql_table_name__"
	LookerTableName    = "my_view.SQL_TABLE_NAME"
	lookerPlaceholder  = "${" + LookerTableName + "}"
	defaultTruncMarker = "lateral flatten"
)

// TokenMap records the sentinel substitutions made while normalizing one
// query. A nil TokenMap reverses nothing.
type TokenMap struct {
	mu       sync.Mutex
	entries  map[string]string // sentinel -> original
	replacer *strings.Replacer
}

// NewTokenMap creates an empty token map.
func NewTokenMap() *TokenMap {
	return &TokenMap{entries: make(map[string]string)}
}

// Record registers a sentinel and the surface form it replaced.
func (m *TokenMap) Record(sentinel, original string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.entries[sentinel]; ok && prev == original {
		return
	}
	m.entries[sentinel] = original
	m.replacer = nil
}

// Len returns the number of recorded sentinels.
func (m *TokenMap) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sentinels returns the recorded sentinels in sorted order.
func (m *TokenMap) Sentinels() []string {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for s := range m.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Reverse replaces every recorded sentinel inside name by its original form.
func (m *TokenMap) Reverse(name string) string {
	if m == nil {
		return name
	}
	m.mu.Lock()
	if m.replacer == nil {
		// Longest sentinel first so one sentinel never shadows another.
		keys := make([]string, 0, len(m.entries))
		for s := range m.entries {
			keys = append(keys, s)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		pairs := make([]string, 0, 2*len(keys))
		for _, k := range keys {
			pairs = append(pairs, k, m.entries[k])
		}
		m.replacer = strings.NewReplacer(pairs...)
	}
	r := m.replacer
	m.mu.Unlock()
	return r.Replace(name)
}

// ReverseAll returns a reversed copy of names; the input is not modified.
func (m *TokenMap) ReverseAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = m.Reverse(n)
	}
	return out
}
