package service

import (
	"errors"
	"fmt"
)

// ValidationError reports onboarding step data that fails its shape rules
// or a step completed out of order. It is always synchronous and never
// touches storage.
type ValidationError struct {
	Step    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("validation failed for step %s: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError for the given step.
func NewValidationError(step, format string, args ...any) *ValidationError {
	return &ValidationError{Step: step, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Ineligibility reason codes returned by the insurance eligibility check.
const (
	ReasonFeatureDisabled = "feature_disabled"
	ReasonAlreadyRevived  = "already_revived"
	ReasonIAPUnavailable  = "iap_unavailable"
	ReasonBackupFailed    = "backup_failed"
)

// Eligibility is the structured result of the insurance gate check.
// Ineligibility is a value, not an error.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
