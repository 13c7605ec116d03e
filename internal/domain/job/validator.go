package job

import (
	"fmt"

	"github.com/google/uuid"
)

// Validator enforces the invariants a Job must hold at every point in its
// lifecycle, independent of which store or manager produced it.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the invariants that hold for any single Job snapshot,
// without reference to its prior state.
func (v *Validator) Validate(j Job) error {
	if j.Id == uuid.Nil {
		return fmt.Errorf("job id must not be the zero UUID")
	}

	if j.Name == "" {
		return fmt.Errorf("job name is required")
	}

	if j.RetryCount < 0 {
		return fmt.Errorf("retry count cannot be negative")
	}

	if j.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if j.RetryCount > j.MaxRetries {
		return fmt.Errorf("retry count %d cannot exceed max retries %d", j.RetryCount, j.MaxRetries)
	}

	if (j.Status == StatusInProgress) != (j.WorkerId != nil) {
		return fmt.Errorf("worker id must be set if and only if status is InProgress")
	}

	if j.Status.IsTerminal() != (j.CompletedAt != nil) {
		return fmt.Errorf("completed at must be set if and only if status is terminal")
	}

	if j.LastUpdatedAt.Before(j.CreatedAt) {
		return fmt.Errorf("last updated at cannot precede created at")
	}

	return nil
}

// ValidateTransition checks the invariants that relate a Job to the
// snapshot it was derived from: identity is immutable, StartedAt is
// never cleared once set, and LastUpdatedAt never moves backward.
func (v *Validator) ValidateTransition(prev, next Job) error {
	if prev.Id != next.Id {
		return fmt.Errorf("job id is immutable, got %s after %s", next.Id, prev.Id)
	}

	if prev.StartedAt != nil && next.StartedAt == nil {
		return fmt.Errorf("started at cannot be cleared once set")
	}

	if next.LastUpdatedAt.Before(prev.LastUpdatedAt) {
		return fmt.Errorf("last updated at must be monotonically non-decreasing")
	}

	return ValidateTransition(prev.Status, next.Status)
}
