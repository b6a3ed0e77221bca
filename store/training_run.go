package store

// TrainingRunState is the final or current state of a remote training session.
type TrainingRunState string

const (
	TrainingRunRunning   TrainingRunState = "RUNNING"
	TrainingRunCompleted TrainingRunState = "COMPLETED"
	TrainingRunFailed    TrainingRunState = "FAILED"
)

// TrainingRun records one training session of a backend.
type TrainingRun struct {
	ID        string
	ProjectID string
	BackendID string
	State     TrainingRunState
	Documents int
	Error     string
	CreatedTs int64
	UpdatedTs int64
}

// UpdateTrainingRun specifies the data for updating a training run.
type UpdateTrainingRun struct {
	ID        string
	State     *TrainingRunState
	Documents *int
	Error     *string
}

// FindTrainingRun specifies the conditions for finding training runs.
type FindTrainingRun struct {
	ID        *string
	ProjectID *string
	BackendID *string
	Limit     int
}
