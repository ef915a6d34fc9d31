package shared

import (
	"fmt"

	"github.com/samber/oops"
)

// Domain error codes
const (
	ErrCodeInvalidInput     = 1001
	ErrCodeNotFound         = 1002
	ErrCodeAlreadyExists    = 1003
	ErrCodeInvalidOperation = 1004
	ErrCodeUnauthorized     = 1005

	// Tracking specific errors (2000-2999)
	ErrCodeInvalidStateTransition = 2001
	ErrCodeInvalidPosition        = 2002
	ErrCodeNoPendingActivity      = 2003

	// Persistence specific errors (3000-3999)
	ErrCodePersistenceFailed = 3001

	// Account specific errors (4000-4999)
	ErrCodeInvalidEmail     = 4001
	ErrCodeUserNotFound     = 4002
	ErrCodeWrongPassword    = 4003
	ErrCodeInvalidPassword  = 4004
	ErrCodeEmailAlreadyUsed = 4005
)

// NewDomainError creates a new domain error using oops
func NewDomainError(code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Errorf("%s", message)
}

// NewDomainErrorf creates a new domain error with formatted message
func NewDomainErrorf(code int, format string, args ...interface{}) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Errorf(format, args...)
}

// WrapDomainError wraps an existing error with domain context
func WrapDomainError(err error, code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Wrapf(err, "%s", message)
}

// HasCode reports whether err carries the given domain error code
func HasCode(err error, code int) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return fmt.Sprint(oopsErr.Code()) == codeToString(code)
}

var knownCodes = []int{
	ErrCodeInvalidInput, ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeInvalidOperation, ErrCodeUnauthorized,
	ErrCodeInvalidStateTransition, ErrCodeInvalidPosition, ErrCodeNoPendingActivity,
	ErrCodePersistenceFailed,
	ErrCodeInvalidEmail, ErrCodeUserNotFound, ErrCodeWrongPassword, ErrCodeInvalidPassword, ErrCodeEmailAlreadyUsed,
}

// CodeOf extracts the integer and string code of a domain error
func CodeOf(err error) (int, string, bool) {
	if err == nil {
		return 0, "", false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0, "", false
	}
	str := fmt.Sprint(oopsErr.Code())
	for _, code := range knownCodes {
		if codeToString(code) == str {
			return code, str, true
		}
	}
	return 0, str, false
}

// codeToString converts int error code to string
func codeToString(code int) string {
	switch code {
	case ErrCodeInvalidInput:
		return "INVALID_INPUT"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrCodeInvalidOperation:
		return "INVALID_OPERATION"
	case ErrCodeUnauthorized:
		return "UNAUTHORIZED"
	case ErrCodeInvalidStateTransition:
		return "INVALID_STATE_TRANSITION"
	case ErrCodeInvalidPosition:
		return "INVALID_POSITION"
	case ErrCodeNoPendingActivity:
		return "NO_PENDING_ACTIVITY"
	case ErrCodePersistenceFailed:
		return "PERSISTENCE_FAILED"
	case ErrCodeInvalidEmail:
		return "INVALID_EMAIL"
	case ErrCodeUserNotFound:
		return "USER_NOT_FOUND"
	case ErrCodeWrongPassword:
		return "WRONG_PASSWORD"
	case ErrCodeInvalidPassword:
		return "INVALID_PASSWORD"
	case ErrCodeEmailAlreadyUsed:
		return "EMAIL_ALREADY_USED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Common domain error builders
func ErrInvalidInput(msg string) error {
	return NewDomainError(ErrCodeInvalidInput, msg)
}

func ErrNotFound(resource string) error {
	return NewDomainErrorf(ErrCodeNotFound, "%s not found", resource)
}

func ErrAlreadyExists(resource string) error {
	return NewDomainErrorf(ErrCodeAlreadyExists, "%s already exists", resource)
}

func ErrInvalidOperation(operation string) error {
	return NewDomainErrorf(ErrCodeInvalidOperation, "Invalid operation: %s", operation)
}
