package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the category of domain error
type ErrorType string

const (
	// ErrorTypeValidation indicates input validation failure
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeBusinessRule indicates a business rule violation
	ErrorTypeBusinessRule ErrorType = "BUSINESS_RULE_ERROR"

	// ErrorTypeInternal indicates an unexpected internal failure
	ErrorTypeInternal ErrorType = "INTERNAL_ERROR"
)

// Error codes used across the graph engine and monitor.
const (
	CodeUnknownNode      = "UNKNOWN_NODE"
	CodeInvalidFunction  = "INVALID_FUNCTION"
	CodeMissingArguments = "MISSING_ARGUMENTS"
	CodeCycleDetected    = "CYCLE_DETECTED"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target domain error by type and code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// HTTPStatus maps the error type to an HTTP status code
func (e *DomainError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeBusinessRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Constructor functions for the graph engine taxonomy

// NewUnknownNodeError is returned when an operation references a node
// that is not registered in the graph.
func NewUnknownNodeError(nodeID string) *DomainError {
	return NewDomainError(
		ErrorTypeNotFound,
		CodeUnknownNode,
		fmt.Sprintf("calculation node '%s' does not exist", nodeID),
	).WithDetail("node_id", nodeID)
}

// NewInvalidFunctionError is returned when no callable can be resolved
// for a calculation node.
func NewInvalidFunctionError(nodeID string) *DomainError {
	return NewDomainError(
		ErrorTypeValidation,
		CodeInvalidFunction,
		fmt.Sprintf("no callable function resolved for node '%s'", nodeID),
	).WithDetail("node_id", nodeID)
}

// NewMissingArgumentsError is returned when Execute is called without
// all of the node's declared input variables. The missing names are
// carried both in the message and in the details.
func NewMissingArgumentsError(nodeID string, missing []string) *DomainError {
	return NewDomainError(
		ErrorTypeValidation,
		CodeMissingArguments,
		fmt.Sprintf("missing variables for node '%s': %s", nodeID, strings.Join(missing, ", ")),
	).WithDetail("node_id", nodeID).WithDetail("missing", missing)
}

// NewCycleDetectedError is returned by topological ordering when the
// graph contains at least one cycle. The nodes that could not be
// ordered are reported in the details.
func NewCycleDetectedError(unordered []string) *DomainError {
	return NewDomainError(
		ErrorTypeBusinessRule,
		CodeCycleDetected,
		"graph contains a cycle, no topological order exists",
	).WithDetail("unordered_nodes", unordered)
}

// NewSessionNotFoundError is returned when an analysis session ID is unknown.
func NewSessionNotFoundError(sessionID string) *DomainError {
	return NewDomainError(
		ErrorTypeNotFound,
		CodeSessionNotFound,
		fmt.Sprintf("analysis session '%s' does not exist", sessionID),
	).WithDetail("session_id", sessionID)
}

// Helper functions

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// IsCode checks if an error carries a specific domain error code
func IsCode(err error, code string) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Code == code
}

// IsUnknownNode checks if an error reports an unknown calculation node
func IsUnknownNode(err error) bool {
	return IsCode(err, CodeUnknownNode)
}

// IsMissingArguments checks if an error reports missing execution arguments
func IsMissingArguments(err error) bool {
	return IsCode(err, CodeMissingArguments)
}

// IsCycleDetected checks if an error reports a graph cycle
func IsCycleDetected(err error) bool {
	return IsCode(err, CodeCycleDetected)
}

// IsInvalidFunction checks if an error reports an unresolvable callable
func IsInvalidFunction(err error) bool {
	return IsCode(err, CodeInvalidFunction)
}
