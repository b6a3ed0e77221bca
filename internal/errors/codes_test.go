package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *IndexError
		expected string
	}{
		{
			name:     "plain",
			err:      NotSupported("training backend %s with no documents", "maui"),
			expected: "[NOT_SUPPORTED] training backend maui with no documents",
		},
		{
			name:     "with backend",
			err:      Configuration("endpoint must be set").WithBackend("maui"),
			expected: "[CONFIGURATION] backend maui: endpoint must be set",
		},
		{
			name:     "with cause",
			err:      OperationFailed(stderrors.New("connection refused"), "unable to create tagger"),
			expected: "[OPERATION_FAILED] unable to create tagger: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("train: %w", OperationFailed(nil, "upload failed"))

	assert.True(t, IsCode(err, ErrCodeOperationFailed))
	assert.False(t, IsCode(err, ErrCodeConfiguration))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeOperationFailed))
}

func TestBackendNotFound_MatchesSentinel(t *testing.T) {
	err := BackendNotFound("nonexistent")

	assert.ErrorIs(t, err, ErrBackendNotFound)
	assert.NotErrorIs(t, DependencyMissing("fastText"), ErrBackendNotFound)
	assert.Equal(t, "[DEPENDENCY_MISSING] fastText not available", DependencyMissing("fastText").Error())
}

func TestGetCodeFromError(t *testing.T) {
	assert.Equal(t, ErrCodeNotInitialized, GetCodeFromError(NotInitialized("model not found"), ErrCodeOperationFailed))
	assert.Equal(t, ErrCodeOperationFailed, GetCodeFromError(stderrors.New("x"), ErrCodeOperationFailed))
}
