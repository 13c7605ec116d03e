package job

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	j := New(id, Params{Name: "email", Payload: []byte(`{}`), MaxRetries: 3}, now)

	assert.Equal(t, id, j.Id)
	assert.Equal(t, "email", j.Name)
	assert.Equal(t, StatusQueued, j.Status)
	assert.Equal(t, 3, j.MaxRetries)
	assert.Equal(t, now, j.CreatedAt)
	assert.Equal(t, now, j.LastUpdatedAt)
	assert.Nil(t, j.StartedAt)
	assert.Nil(t, j.CompletedAt)
}

func TestWithStatusIsCopyOnWrite(t *testing.T) {
	now := time.Now().UTC()
	original := New(uuid.New(), Params{Name: "email"}, now)

	later := now.Add(time.Minute)
	updated := original.WithStatus(StatusInProgress, later)

	assert.Equal(t, StatusQueued, original.Status, "original must be unaffected by WithStatus")
	assert.Equal(t, StatusInProgress, updated.Status)
	assert.Equal(t, later, updated.LastUpdatedAt)
	assert.Equal(t, now, original.LastUpdatedAt)
}

func TestCanRetry(t *testing.T) {
	j := Job{RetryCount: 2, MaxRetries: 3}
	assert.True(t, j.CanRetry())

	j.RetryCount = 3
	assert.False(t, j.CanRetry())
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusQueued:     "Queued",
		StatusScheduled:  "Scheduled",
		StatusInProgress: "InProgress",
		StatusCompleted:  "Completed",
		StatusFailed:     "Failed",
		StatusCanceled:   "Canceled",
		Status(999):      "Unknown",
	}
	for status, want := range cases {
		assert.Equal(t, want, status.String())
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCanceled}
	nonTerminal := []Status{StatusQueued, StatusScheduled, StatusInProgress}

	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestCanTransition(t *testing.T) {
	t.Run("Queued to InProgress is legal", func(t *testing.T) {
		assert.True(t, CanTransition(StatusQueued, StatusInProgress))
	})

	t.Run("Completed to Canceled is always rejected", func(t *testing.T) {
		assert.False(t, CanTransition(StatusCompleted, StatusCanceled))
	})

	t.Run("terminal states have no outbound transitions", func(t *testing.T) {
		for _, s := range []Status{StatusCompleted, StatusFailed, StatusCanceled} {
			assert.False(t, CanTransition(s, StatusQueued))
			assert.False(t, CanTransition(s, StatusInProgress))
		}
	})

	t.Run("Scheduled can return to Queued", func(t *testing.T) {
		assert.True(t, CanTransition(StatusScheduled, StatusQueued))
	})
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusQueued, StatusInProgress))

	err := ValidateTransition(StatusCompleted, StatusCanceled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")

	err = ValidateTransition(StatusQueued, StatusCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transition")
}

func TestHandlerFunc(t *testing.T) {
	h := NewHandlerFunc("noop", func(ctx HandlerContext) ([]byte, error) {
		return []byte(ctx.JobId), nil
	})

	assert.Equal(t, "noop", h.Name())

	result, err := h.Execute(HandlerContext{JobId: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), result)
}
