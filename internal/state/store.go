// Package state caches lineage extraction results in SQLite.
//
// Entries are keyed by a digest of the strategy, the normalization options
// and the SQL text, so a changed option never serves a stale result.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shaweiguo/datahub/pkg/lineage"
	"github.com/shaweiguo/datahub/pkg/normalize"
)

// ErrNotFound is returned when a cache key has no entry.
var ErrNotFound = errors.New("cache entry not found")

// Store is a lineage result cache.
type Store interface {
	Get(ctx context.Context, key string) (*lineage.Result, error)
	Put(ctx context.Context, key, strategy string, res *lineage.Result) error
	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// Stats summarises the cache contents.
type Stats struct {
	Path       string           `json:"path" yaml:"path"`
	Entries    int64            `json:"entries" yaml:"entries"`
	Hits       int64            `json:"hits" yaml:"hits"`
	Version    int64            `json:"schema_version" yaml:"schema_version"`
	Oldest     *time.Time       `json:"oldest,omitempty" yaml:"oldest,omitempty"`
	Newest     *time.Time       `json:"newest,omitempty" yaml:"newest,omitempty"`
	ByStrategy map[string]int64 `json:"by_strategy,omitempty" yaml:"by_strategy,omitempty"`
}

// Key derives the cache key for one extraction.
func Key(strategy string, opts normalize.Options, sql string) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%+v\x00%s", strategy, opts, sql)
	return hex.EncodeToString(h.Sum(nil))
}
