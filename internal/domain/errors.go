package domain

import (
	"fmt"
	"strings"
)

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

// ErrBoletoInvalido carries every reason a slip cannot be generated.
// It is never reduced to a single message at the API boundary.
type ErrBoletoInvalido struct {
	Missing []string `json:"missing"`
	Invalid []string `json:"invalid"`
	Rules   []string `json:"rules"`
}

func (e *ErrBoletoInvalido) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ", "))
	}
	if len(e.Rules) > 0 {
		parts = append(parts, "rules: "+strings.Join(e.Rules, ", "))
	}
	return "boleto inválido (" + strings.Join(parts, "; ") + ")"
}

// ErrFieldOverflow indicates a numeric CNAB field that does not fit its width.
type ErrFieldOverflow struct {
	Record string
	Field  string
	Width  int
	Value  string
}

func (e *ErrFieldOverflow) Error() string {
	return fmt.Sprintf("cnab %s: field %s overflows %d digits (%q)", e.Record, e.Field, e.Width, e.Value)
}

// ErrAdapterNotRegistered indicates a registry without an adapter or fallback
// for the requested bank. It is a configuration bug, not bad input.
type ErrAdapterNotRegistered struct {
	Bank   string
	Layout string
}

func (e *ErrAdapterNotRegistered) Error() string {
	return fmt.Sprintf("no cnab adapter registered for bank %s layout %s", e.Bank, e.Layout)
}

// ErrInvalidBarcode indicates an invalid barcode or digitable line.
type ErrInvalidBarcode struct {
	Input  string
	Reason string
}

func (e *ErrInvalidBarcode) Error() string {
	return fmt.Sprintf("invalid barcode/digitable line: %s", e.Reason)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates the resource state forbids the operation
// (e.g. cancelling a paid titulo).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
