// Package runlog keeps the history of finished runs.
package runlog

import (
	"context"
	"fmt"
	"time"
)

// RunRecord captures one finished run.
type RunRecord struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Instance    string             `json:"instance"`
	Timestamp   time.Time          `json:"timestamp"`
	Score       int                `json:"score"`
	SeedScore   int                `json:"seed_score"`
	Generations int                `json:"generations"`
	Duration    time.Duration      `json:"duration"`
	Signed      int                `json:"signed"`
	Seed        uint64             `json:"seed"`
	Params      map[string]float64 `json:"params,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Instance string
	Start    time.Time
	End      time.Time
	Limit    int
}

func (q Query) match(r RunRecord) bool {
	if q.Instance != "" && r.Instance != q.Instance {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// Backend names accepted by Config.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects and locates the run store.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "runs.db"
		default:
			c.Path = "runs.jsonl"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups < 0 {
		c.MaxBackups = 0
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendJSONL, BackendSQLite:
		return nil
	}
	return fmt.Errorf("unknown runs backend %q", c.Backend)
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendSQLite {
		return NewSQLiteStore(cfg.Path)
	}
	return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups)
}

func limit(recs []RunRecord, n int) []RunRecord {
	if n > 0 && len(recs) > n {
		return recs[len(recs)-n:]
	}
	return recs
}
