// Package apperr holds the client-facing error taxonomy. Every error that
// reaches a response body is an *Error with a stable code.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches on Code so that WithDetails copies still satisfy errors.Is
// against the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e carrying details for the response body.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// validation
var (
	ErrValidation = New(http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed")
	ErrBadRequest = New(http.StatusBadRequest, "BAD_REQUEST", "Malformed request body")
)

// authentication
var (
	ErrInvalidCredentials = New(http.StatusBadRequest, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountLocked      = New(http.StatusLocked, "ACCOUNT_LOCKED", "Account is temporarily locked due to too many failed login attempts")
	ErrAccountDeactivated = New(http.StatusUnauthorized, "ACCOUNT_DEACTIVATED", "Account has been deactivated")
	ErrTokenMissing       = New(http.StatusUnauthorized, "TOKEN_MISSING", "Access denied. No token provided.")
	ErrTokenExpired       = New(http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
	ErrInvalidToken       = New(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
	ErrUserNotFoundToken  = New(http.StatusUnauthorized, "USER_NOT_FOUND", "User not found")

	ErrInvalidVerificationToken = New(http.StatusBadRequest, "INVALID_VERIFICATION_TOKEN", "Invalid or expired verification token")
	ErrInvalidResetToken        = New(http.StatusBadRequest, "INVALID_RESET_TOKEN", "Invalid or expired reset token")
	ErrInvalidCurrentPassword   = New(http.StatusBadRequest, "INVALID_CURRENT_PASSWORD", "Current password is incorrect")
)

// authorization
var (
	ErrInsufficientPermissions = New(http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "Insufficient permissions")
	ErrResourceAccessDenied    = New(http.StatusForbidden, "RESOURCE_ACCESS_DENIED", "Access denied to this resource")
	ErrSelfModification        = New(http.StatusForbidden, "SELF_MODIFICATION_FORBIDDEN", "Administrators cannot change or delete their own account here")
)

// conflict and lookup
var (
	ErrUserExists    = New(http.StatusBadRequest, "USER_EXISTS", "User with this email already exists")
	ErrUserNotFound  = New(http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	ErrRouteNotFound = New(http.StatusNotFound, "ROUTE_NOT_FOUND", "Route not found")
)

// worker
var (
	ErrRecommendation  = New(http.StatusBadRequest, "RECOMMENDATION_ERROR", "The recommendation engine could not satisfy the request")
	ErrWorkerExit      = New(http.StatusBadRequest, "NONZERO_EXIT", "The recommendation engine rejected the request")
	ErrWorkerSpawn     = New(http.StatusInternalServerError, "SPAWN_ERROR", "The recommendation engine is unavailable")
	ErrMalformedOutput = New(http.StatusInternalServerError, "MALFORMED_OUTPUT", "The recommendation engine returned an invalid response")
	ErrWorkerTimeout   = New(http.StatusGatewayTimeout, "WORKER_TIMEOUT", "The recommendation engine took too long to respond")
	ErrWorkerBusy      = New(http.StatusServiceUnavailable, "WORKER_BUSY", "The recommendation engine is busy, try again shortly")
)

// infrastructure
var (
	ErrRateLimited = New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later")
	ErrDatabase    = New(http.StatusInternalServerError, "DATABASE_ERROR", "Could not save the request, please try again")
	ErrInternal    = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// From extracts the *Error in err's chain, falling back to ErrInternal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return ErrInternal
}
