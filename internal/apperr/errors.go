// Package apperr holds the error taxonomy shared by every layer of the API.
//
// Domain errors are expected outcomes and are compared with errors.Is.
// Infrastructure failures are wrapped in *InfrastructureError and are the only
// class a caller may retry.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	ErrUsernameTaken    = errors.New("username is already taken")
	ErrEmailTaken       = errors.New("email is already registered")
	ErrAlreadyEnrolled  = errors.New("user already enrolled")
	ErrCapacityExceeded = errors.New("event is at full capacity")

	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient privileges")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")

	ErrInfrastructure = errors.New("infrastructure failure")
)

// InfrastructureError reports a storage, network or timeout failure.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *InfrastructureError) Is(target error) bool { return target == ErrInfrastructure }

// Infrastructure wraps err unless it is nil or already classified.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) || errors.Is(err, ErrInfrastructure) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// Invalid returns an ErrInvalidInput carrying a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}

var domainErrors = []error{
	ErrUserNotFound, ErrEventNotFound, ErrEnrollmentNotFound,
	ErrUsernameTaken, ErrEmailTaken, ErrAlreadyEnrolled, ErrCapacityExceeded,
	ErrUnauthenticated, ErrForbidden, ErrInvalidToken, ErrInvalidCredentials, ErrInvalidInput,
}

// IsDomain reports whether err is one of the expected business outcomes.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var codes = map[error]string{
	ErrUserNotFound:       "USER_NOT_FOUND",
	ErrEventNotFound:      "EVENT_NOT_FOUND",
	ErrEnrollmentNotFound: "ENROLLMENT_NOT_FOUND",
	ErrUsernameTaken:      "USERNAME_TAKEN",
	ErrEmailTaken:         "EMAIL_TAKEN",
	ErrAlreadyEnrolled:    "ALREADY_ENROLLED",
	ErrCapacityExceeded:   "CAPACITY_EXCEEDED",
	ErrUnauthenticated:    "UNAUTHENTICATED",
	ErrForbidden:          "FORBIDDEN",
	ErrInvalidToken:       "INVALID_TOKEN",
	ErrInvalidCredentials: "INVALID_CREDENTIALS",
	ErrInvalidInput:       "INVALID_INPUT",
	ErrInfrastructure:     "INFRASTRUCTURE_ERROR",
}

// Code returns a stable machine readable code for err.
func Code(err error) string {
	for target, code := range codes {
		if errors.Is(err, target) {
			return code
		}
	}
	return "INTERNAL_ERROR"
}
