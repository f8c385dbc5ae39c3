package domain

import (
	"errors"
	"fmt"
)

// Authorization errors. Each maps to a stable reason code at the HTTP edge.
var (
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMalformedToken     = errors.New("malformed token")
	ErrSessionExpired     = errors.New("session expired")
	ErrActiveTimeExceeded = errors.New("active time exceeded")
	ErrSessionContention  = errors.New("session is being updated concurrently")
)

// Account errors
var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Storage errors
var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

var (
	ErrValidation         = errors.New("validation error")
	ErrExternalService    = errors.New("external service error")
	ErrNormalizationError = errors.New("normalization error")
)

// ValidationError reports a rejected ingestion field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ExternalServiceError wraps a failed or timed out call to the text-generation service.
type ExternalServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("external service returned status %d: %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("external service call failed: %v", e.Err)
	}
	return "external service call failed"
}

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// NormalizationError carries generated text that could not be coerced into JSON.
type NormalizationError struct {
	Raw string
	Err error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generated text is not a JSON object: %v", e.Err)
	}
	return "generated text is not a JSON object"
}

func (e *NormalizationError) Is(target error) bool { return target == ErrNormalizationError }

func (e *NormalizationError) Unwrap() error { return e.Err }

// Reason codes reported to clients for rejected calls.
const (
	ReasonUnauthenticated    = "UNAUTHENTICATED"
	ReasonInvalidToken       = "INVALID_TOKEN"
	ReasonMalformedToken     = "MALFORMED_TOKEN"
	ReasonSessionExpired     = "SESSION_EXPIRED"
	ReasonActiveTimeExceeded = "ACTIVE_TIME_EXCEEDED"
	ReasonSessionContention  = "SESSION_CONTENTION"
	ReasonValidation         = "VALIDATION_ERROR"
)

// AuthReason returns the reason code for an authorization error, or false when
// err is not one.
func AuthReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return ReasonUnauthenticated, true
	case errors.Is(err, ErrMalformedToken):
		return ReasonMalformedToken, true
	case errors.Is(err, ErrInvalidToken):
		return ReasonInvalidToken, true
	case errors.Is(err, ErrActiveTimeExceeded):
		return ReasonActiveTimeExceeded, true
	case errors.Is(err, ErrSessionExpired):
		return ReasonSessionExpired, true
	case errors.Is(err, ErrSessionContention):
		return ReasonSessionContention, true
	}
	return "", false
}
