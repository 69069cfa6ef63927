// Package server provides the HTTP REST API of the resume optimizer.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/service"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the status code for an error. Wrapped errors are
// matched by their innermost known type.
func HTTPStatus(err error) int {
	var (
		emailExists    *ErrEmailAlreadyExists
		badCredentials *ErrInvalidCredentials
		mismatch       *ErrPasswordMismatch
		userNotFound   *ErrUserNotFound
		validation     *ErrValidation
		insufficient   *service.ErrInsufficientCredits
		notFound       *service.ErrAnalysisNotFound
		noArchive      *service.ErrNoArchive
		forbidden      *service.ErrForbidden
		invalid        *service.ErrInvalidSubmission
		notReady       *service.ErrAnalysisNotReady
		failed         *service.ErrAnalysisFailed
		badFile        *ingestion.FileValidationError
		extraction     *ingestion.ExtractionError
	)

	switch {
	case errors.As(err, &emailExists):
		return http.StatusConflict
	case errors.As(err, &badCredentials), errors.As(err, &mismatch):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound), errors.As(err, &notFound), errors.As(err, &noArchive):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &invalid), errors.As(err, &badFile):
		return http.StatusBadRequest
	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notReady):
		return http.StatusConflict
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity
	case errors.As(err, &failed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
