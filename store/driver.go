package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// BackendState model related methods.
	GetBackendState(ctx context.Context, find *FindBackendState) (*BackendState, error)
	ListBackendStates(ctx context.Context, find *FindBackendState) ([]*BackendState, error)
	UpsertBackendState(ctx context.Context, upsert *BackendState) (*BackendState, error)
	UpdateBackendState(ctx context.Context, find *FindBackendState, fn BackendStateUpdateFunc) (*BackendState, error)
	DeleteBackendState(ctx context.Context, delete *DeleteBackendState) error

	// TrainingRun model related methods.
	CreateTrainingRun(ctx context.Context, create *TrainingRun) (*TrainingRun, error)
	UpdateTrainingRun(ctx context.Context, update *UpdateTrainingRun) (*TrainingRun, error)
	ListTrainingRuns(ctx context.Context, find *FindTrainingRun) ([]*TrainingRun, error)
}
