package store

// BackendState is a named blob of persisted backend model state.
type BackendState struct {
	ProjectID string
	BackendID string
	Name      string
	Data      []byte
	UpdatedTs int64
}

// FindBackendState specifies the conditions for finding backend state.
// An empty Name matches every state of the backend.
type FindBackendState struct {
	ProjectID string
	BackendID string
	Name      string
}

// DeleteBackendState specifies the backend whose state is removed.
// An empty Name removes every state of the backend.
type DeleteBackendState struct {
	ProjectID string
	BackendID string
	Name      string
}

// BackendStateUpdateFunc computes the new state from the current one
// (nil when absent). Returning an error leaves the stored state untouched.
type BackendStateUpdateFunc func(current *BackendState) (*BackendState, error)
