package services

import (
	"errors"

	apperrors "github.com/formlab/builder-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")

	// Session specific errors
	ErrSessionNotFound      = errors.New("builder session not open for this draft")
	ErrSessionAlreadyClosed = errors.New("builder session already closed")

	// Question specific errors
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuestionInvalidType = errors.New("invalid question type")

	// Logic rule specific errors
	ErrRuleInvalid    = errors.New("invalid logic rule")
	ErrRuleNotFound   = errors.New("logic rule not found")
	ErrRuleSelfTarget = errors.New("logic rule may not reference its own question")

	// Persistence errors
	ErrDraftLoadFailed = errors.New("failed to load draft")
	ErrDraftSaveFailed = errors.New("failed to save draft")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrRuleNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrQuestionInvalidType) ||
		errors.Is(err, ErrRuleInvalid) ||
		errors.Is(err, ErrRuleSelfTarget) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsStoreFailure checks if error represents a document store failure
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrDraftLoadFailed) || errors.Is(err, ErrDraftSaveFailed)
}
