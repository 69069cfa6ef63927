package service

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrInsufficientCredits means the user cannot pay for an analysis.
type ErrInsufficientCredits struct {
	Required int
}

func (e *ErrInsufficientCredits) Error() string {
	return fmt.Sprintf("insufficient credits: %d required", e.Required)
}

// ErrAnalysisNotFound means no analysis has the requested id.
type ErrAnalysisNotFound struct {
	ID uuid.UUID
}

func (e *ErrAnalysisNotFound) Error() string {
	return fmt.Sprintf("analysis not found: %s", e.ID)
}

// ErrForbidden means the analysis belongs to another user.
type ErrForbidden struct {
	ID uuid.UUID
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("access to analysis %s is forbidden", e.ID)
}

// ErrInvalidSubmission is a request the service refuses before charging.
type ErrInvalidSubmission struct {
	Field   string
	Message string
}

func (e *ErrInvalidSubmission) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrAnalysisNotReady means the analysis has no result yet.
type ErrAnalysisNotReady struct {
	ID     uuid.UUID
	Status string
}

func (e *ErrAnalysisNotReady) Error() string {
	return fmt.Sprintf("analysis %s is %s", e.ID, e.Status)
}

// ErrNoArchive means the analysis has no stored original upload.
type ErrNoArchive struct {
	ID uuid.UUID
}

func (e *ErrNoArchive) Error() string {
	return fmt.Sprintf("analysis %s has no archived upload", e.ID)
}

// ErrAnalysisFailed wraps an analyzer failure. The analysis has been marked
// failed and its credits refunded.
type ErrAnalysisFailed struct {
	ID    uuid.UUID
	Cause error
}

func (e *ErrAnalysisFailed) Error() string {
	return fmt.Sprintf("analysis %s failed: %v", e.ID, e.Cause)
}

func (e *ErrAnalysisFailed) Unwrap() error {
	return e.Cause
}
