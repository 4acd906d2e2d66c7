// Package store provides the run ledger interface and its SQLite
// implementation.
package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/rcliao/linebroad/internal/model"
)

// ErrRunNotFound is returned when no live run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// SaveParams holds a finished run and the values it computed.
type SaveParams struct {
	Run    model.Run // ID is assigned by the store when empty
	Values []model.Value
}

// ListParams holds parameters for listing runs.
type ListParams struct {
	Species string
	Limit   int
}

// ValuesParams filters the values of one run.
type ValuesParams struct {
	RunID    string
	Quantity string
	Line     int // 0 means every line
	Limit    int // 0 means no limit
}

// RmParams holds parameters for deleting a run.
type RmParams struct {
	ID   string
	Hard bool
}

// Store defines the run ledger interface.
type Store interface {
	// SaveRun records a run and its values atomically. Returns the stored run.
	SaveRun(ctx context.Context, p SaveParams) (*model.Run, error)

	// GetRun retrieves a live run by id or unique id prefix.
	GetRun(ctx context.Context, id string) (*model.Run, error)

	// ListRuns lists live runs, newest first.
	ListRuns(ctx context.Context, p ListParams) ([]model.Run, error)

	// Values returns a run's values in output order.
	Values(ctx context.Context, p ValuesParams) ([]model.Value, error)

	// RmRun soft-deletes (or hard-deletes) a run.
	RmRun(ctx context.Context, p RmParams) error

	// Close closes the store.
	Close() error
}
