package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowSubmissionBurst(t *testing.T) {
	const perMinute = 3

	for i := 0; i < perMinute; i++ {
		assert.True(t, allowSubmission(9001, 1, perMinute), "attempt %d should pass", i+1)
	}
	assert.False(t, allowSubmission(9001, 1, perMinute), "attempt past the window must be rejected")
}

func TestAllowSubmissionKeysAreIndependent(t *testing.T) {
	const perMinute = 2

	assert.True(t, allowSubmission(9002, 1, perMinute))
	assert.True(t, allowSubmission(9002, 1, perMinute))
	assert.False(t, allowSubmission(9002, 1, perMinute))

	// A different challenge, and a different user, have their own windows.
	assert.True(t, allowSubmission(9002, 2, perMinute))
	assert.True(t, allowSubmission(9003, 1, perMinute))
}

func TestAllowSubmissionUnlimited(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.True(t, allowSubmission(9004, 1, 0), "zero disables the limiter")
	}
}

func TestAllowSubmissionRateChangeResets(t *testing.T) {
	assert.True(t, allowSubmission(9005, 1, 1))
	assert.False(t, allowSubmission(9005, 1, 1))

	// Raising the configured rate replaces the limiter.
	assert.True(t, allowSubmission(9005, 1, 5))
}
