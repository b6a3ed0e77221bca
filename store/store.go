package store

import (
	"context"

	"github.com/hrygo/subjectindex/internal/profile"
)

// Store provides database access to backend state and training runs.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) GetBackendState(ctx context.Context, find *FindBackendState) (*BackendState, error) {
	return s.driver.GetBackendState(ctx, find)
}

func (s *Store) ListBackendStates(ctx context.Context, find *FindBackendState) ([]*BackendState, error) {
	return s.driver.ListBackendStates(ctx, find)
}

func (s *Store) UpsertBackendState(ctx context.Context, upsert *BackendState) (*BackendState, error) {
	return s.driver.UpsertBackendState(ctx, upsert)
}

// UpdateBackendState applies fn to the current state inside one transaction.
func (s *Store) UpdateBackendState(ctx context.Context, find *FindBackendState, fn BackendStateUpdateFunc) (*BackendState, error) {
	return s.driver.UpdateBackendState(ctx, find, fn)
}

func (s *Store) DeleteBackendState(ctx context.Context, delete *DeleteBackendState) error {
	return s.driver.DeleteBackendState(ctx, delete)
}

func (s *Store) CreateTrainingRun(ctx context.Context, create *TrainingRun) (*TrainingRun, error) {
	return s.driver.CreateTrainingRun(ctx, create)
}

func (s *Store) UpdateTrainingRun(ctx context.Context, update *UpdateTrainingRun) (*TrainingRun, error) {
	return s.driver.UpdateTrainingRun(ctx, update)
}

func (s *Store) ListTrainingRuns(ctx context.Context, find *FindTrainingRun) ([]*TrainingRun, error) {
	return s.driver.ListTrainingRuns(ctx, find)
}
