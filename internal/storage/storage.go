package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps the history of completed queries between probe runs.

// Metric is one extracted entry of a completed query.
type Metric struct {
	QueryTime float64 `json:"query_time"`
	TotalHits float64 `json:"total_hits"`
}

// Run is the stored result of the latest completion of one query.
type Run struct {
	Key         string    `json:"key"`
	RequestID   string    `json:"request_id"`
	Outcome     string    `json:"outcome"`
	StatusCode  int       `json:"status_code"`
	Metrics     []Metric  `json:"metrics"`
	EntryErrors int       `json:"entry_errors"`
	CompletedAt time.Time `json:"completed_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TotalQueryTime sums the query time of every metric in the run.
func (r Run) TotalQueryTime() float64 {
	var sum float64
	for _, m := range r.Metrics {
		sum += m.QueryTime
	}
	return sum
}

// Store remembers the last run of each query, keyed by its request string.
type Store interface {
	Close() error
	LastRun(key string) (Run, bool, error)
	SaveRun(run Run) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                      { return nil }
func (noopStore) LastRun(string) (Run, bool, error) { return Run{}, false, nil }
func (noopStore) SaveRun(Run) error                 { return nil }
