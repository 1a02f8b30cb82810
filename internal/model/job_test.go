package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobStatus(t *testing.T) {
	t.Parallel()
	known := []string{
		"submitted", "validating", "in_progress", "finalizing",
		"completed", "failed", "expired", "cancelling", "cancelled",
	}
	for _, s := range known {
		st, err := ParseJobStatus(s)
		require.NoError(t, err, s)
		assert.Equal(t, JobStatus(s), st)
	}
}

func TestParseJobStatus_Unknown(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "done", "IN_PROGRESS", "in progress"} {
		_, err := ParseJobStatus(s)
		assert.Error(t, err, s)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusExpired, JobStatusCancelled}
	active := []JobStatus{JobStatusSubmitted, JobStatusValidating, JobStatusInProgress, JobStatusFinalizing, JobStatusCancelling}

	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsActive(), s)
	}
	for _, s := range active {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.IsActive(), s)
	}
}
