package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_ThroughWrapping(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("load profile: %w", NewQueryExecutionFailedError("profile", cause))

	assert.True(t, HasCode(err, ErrCodeQueryExecutionFailed))
	assert.False(t, HasCode(err, ErrCodeValidation))
	assert.Equal(t, "QUERY_EXECUTION_FAILED", CodeOf(err))
	assert.ErrorIs(t, err, cause)

	assert.False(t, HasCode(cause, ErrCodeQueryExecutionFailed))
	assert.Equal(t, "UNKNOWN_ERROR", CodeOf(cause))
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{
			name:        "validation is not retried",
			err:         NewValidationError("reviews[0].rating", "must be between 1 and 5"),
			wantCode:    "VALIDATION_ERROR",
			wantRetries: 0,
		},
		{
			name:        "cache outage is retried",
			err:         NewCacheUnavailableError("get", stderrors.New("dial tcp")),
			wantCode:    "CACHE_UNAVAILABLE",
			wantRetries: 3,
		},
		{
			name:        "source timeout",
			err:         NewSourceTimeoutError("taste-model", 2*time.Second),
			wantCode:    "SOURCE_TIMEOUT",
			wantRetries: 2,
		},
		{
			name:        "unmapped code keeps its name",
			err:         &StandardError{Code: ErrCodeInternal, Message: "boom", Retryable: true},
			wantCode:    "INTERNAL_ERROR",
			wantRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ToErrorVariables()["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	err := NewSourceUnavailableError("mood-model", stderrors.New("503")).WithMetadata("attempts", 3)

	vars := ConvertToBPMNError(err).ToErrorVariables()
	require.Contains(t, vars, "source")
	assert.Equal(t, "mood-model", vars["source"])
	assert.Equal(t, 3, vars["attempts"])
	assert.Equal(t, true, vars["retryable"])
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeValidation:               "VALIDATION",
		ErrCodeSourceUnavailable:        "ML",
		ErrCodeEnsembleExhausted:        "ML",
		ErrCodeCacheUnavailable:         "CACHE",
		ErrCodeDatabaseConnectionFailed: "DATABASE",
		ErrCodeQueryExecutionFailed:     "DATABASE",
		ErrCodeSearchQueryFailed:        "SEARCH",
		ErrCodeIndexNotFound:            "SEARCH",
		ErrCodeAlertPublishFailed:       "NOTIFICATION",
		ErrCodeInsufficientData:         "DATA",
		ErrCodeInternal:                 "OTHER",
	}

	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, want, GetErrorCategory(code))
		})
	}
}
