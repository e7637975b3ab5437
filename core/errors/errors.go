// Package errors provides standardized error types and helpers for the search engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
	// ErrSyntax indicates a malformed boolean query
	ErrSyntax = errors.New("syntax error")
	// ErrReferenceRange indicates a verse range whose end precedes its start
	ErrReferenceRange = errors.New("invalid reference range")
	// ErrCorpusUnavailable indicates the corpus could not be read
	ErrCorpusUnavailable = errors.New("corpus unavailable")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "translation", "book", "verse")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "OSIS", "TOML")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// SyntaxError reports a query whose boolean structure is malformed:
// an unterminated quote, an operator without an operand, or unbalanced
// parentheses. Position is a byte offset into Input, or -1 when unknown.
type SyntaxError struct {
	Input    string
	Position int
	Reason   string
}

func (e *SyntaxError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("syntax error at offset %d: %s", e.Position, e.Reason)
	}
	return fmt.Sprintf("syntax error: %s", e.Reason)
}

// Is lets SyntaxError match both ErrSyntax and ErrInvalidInput.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax || target == ErrInvalidInput
}

// ReferenceRangeError reports a verse range such as "Gen 1:5-3".
type ReferenceRangeError struct {
	Reference string
	Start     int
	End       int
}

func (e *ReferenceRangeError) Error() string {
	return fmt.Sprintf("invalid verse range in %q: end verse %d precedes start verse %d",
		e.Reference, e.End, e.Start)
}

func (e *ReferenceRangeError) Unwrap() error {
	return ErrReferenceRange
}

// CorpusUnavailableError wraps a failure of the corpus accessor. It aborts
// the current search only.
type CorpusUnavailableError struct {
	Operation string // e.g. "scan", "get verse"
	Err       error
}

func (e *CorpusUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corpus unavailable during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("corpus unavailable during %s", e.Operation)
}

func (e *CorpusUnavailableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCorpusUnavailable, e.Err}
	}
	return []error{ErrCorpusUnavailable}
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// NewSyntax creates a SyntaxError
func NewSyntax(input string, position int, reason string) *SyntaxError {
	return &SyntaxError{
		Input:    input,
		Position: position,
		Reason:   reason,
	}
}

// NewReferenceRange creates a ReferenceRangeError
func NewReferenceRange(reference string, start, end int) *ReferenceRangeError {
	return &ReferenceRangeError{
		Reference: reference,
		Start:     start,
		End:       end,
	}
}

// NewCorpusUnavailable creates a CorpusUnavailableError
func NewCorpusUnavailable(operation string, err error) *CorpusUnavailableError {
	return &CorpusUnavailableError{
		Operation: operation,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
