package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ClassifierErrorKind tells why the LLM classifier did not produce a result.
type ClassifierErrorKind string

const (
	ClassifierUnavailable ClassifierErrorKind = "unavailable"
	ClassifierTransport   ClassifierErrorKind = "transport"
	ClassifierAPI         ClassifierErrorKind = "api"
	ClassifierMalformed   ClassifierErrorKind = "malformed"
)

// ErrClassifier is the failure variant of an LLM classification.
// The pipeline always recovers from it.
type ErrClassifier struct {
	Kind   ClassifierErrorKind
	Detail string
	Err    error
}

func (e *ErrClassifier) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("classifier %s: %s", e.Kind, e.Detail)
}

func (e *ErrClassifier) Unwrap() error {
	return e.Err
}
