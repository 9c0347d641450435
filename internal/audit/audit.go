package audit

import (
	"context"
	"time"
)

// Entry records one tool invocation.
type Entry struct {
	ID         string         `json:"id" yaml:"id"`
	Tool       string         `json:"tool" yaml:"tool"`
	Arguments  map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Result     string         `json:"result" yaml:"result"`
	IsError    bool           `json:"is_error" yaml:"is_error"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	DurationMS int64          `json:"duration_ms" yaml:"duration_ms"`
}

// ListOptions controls filtering and pagination for List.
type ListOptions struct {
	Tool       string
	ErrorsOnly bool
	Limit      int
	Offset     int
}

// Store is the persistence interface for invocation entries.
type Store interface {
	// Record inserts a new entry. The ID field must be set by the caller.
	Record(ctx context.Context, e *Entry) error

	// Get returns an entry by ID or unique ID prefix.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns entries ordered by started_at descending.
	List(ctx context.Context, opts ListOptions) ([]Entry, error)

	// Prune deletes entries started before the cutoff and reports how many.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases resources.
	Close() error
}
