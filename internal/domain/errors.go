// Package domain defines the core types and error taxonomy shared across the
// medline ingest service.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedXML indicates that the underlying XML byte stream could not
	// be parsed. Record production stops at the point of failure.
	ErrMalformedXML = errors.New("malformed xml")

	// ErrUnrecognizedElement indicates a top-level XML element the citation
	// transform has not been taught about.
	ErrUnrecognizedElement = errors.New("unrecognized element")

	// ErrDuplicateIdentifier indicates two article identifiers of the same
	// type that cannot both be kept.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrMissingIdentifier indicates a citation record without a PMID.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ValidationError provides details about an invalid input value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// UnrecognizedElementError reports a top-level XML element the record
// producer was not configured to handle.
type UnrecognizedElementError struct {
	Tag string
}

// Error implements the error interface.
func (e *UnrecognizedElementError) Error() string {
	return fmt.Sprintf("unrecognized element: <%s>", e.Tag)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *UnrecognizedElementError) Unwrap() error {
	return ErrUnrecognizedElement
}

// MalformedXMLError wraps a parse failure from the underlying XML decoder.
type MalformedXMLError struct {
	Cause error
}

// Error implements the error interface.
func (e *MalformedXMLError) Error() string {
	return fmt.Sprintf("malformed xml: %v", e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *MalformedXMLError) Unwrap() error {
	return ErrMalformedXML
}

// DuplicateIdentifierError reports a repeated identifier type in an
// article identifier list.
type DuplicateIdentifierError struct {
	IDType string
	Value  string
}

// Error implements the error interface.
func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate %s identifier: %s", e.IDType, e.Value)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *DuplicateIdentifierError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// RateLimitError provides details about a rate limit error.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
