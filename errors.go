package magicAuth

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited is returned when magic-link issuance is throttled.
	ErrRateLimited = errors.New("magic link rate limited")
	// ErrInvalidToken is returned when no stored token matches the presented value.
	ErrInvalidToken = errors.New("magic link token invalid")
	// ErrTokenUsed is returned for consumed or superseded tokens.
	ErrTokenUsed = errors.New("magic link token already used")
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("magic link token expired")
	// ErrUnauthenticated is returned when a request carries no acceptable session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConfiguration marks operational misconfiguration such as a missing signing secret.
	ErrConfiguration = errors.New("auth configuration error")
	// ErrEmailTaken is returned by UserStore.Create and Engine.UpdateUser on duplicate emails.
	ErrEmailTaken = errors.New("email address already in use")
	// ErrUserNotFound is returned by UserStore lookups.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound is returned by TokenStore.FindByHash.
	ErrTokenNotFound = errors.New("verification token not found")
	// ErrEngineNotReady is returned when required collaborators are missing.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrRateLimiterUnavailable wraps rate limiter backend failures.
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrEmailDelivery wraps EmailSender failures.
	ErrEmailDelivery = errors.New("email delivery failed")
)

// Messages returned to clients.
const (
	MessageInvalidEmail   = "Valid email address is required"
	MessageTokenRequired  = "Verification token is required"
	MessageInvalidName    = "Name must be between 2 and 100 characters"
	MessageNothingUpdated = "No valid fields to update"
	MessageRateLimited    = "Too many login attempts. Please try again later."
	MessageInvalidToken   = "Invalid or expired token"
	MessageUnauthorized   = "Unauthorized"
	MessageEmailTaken     = "Email address is already in use"
	MessageUserNotFound   = "User not found"
	MessageInternal       = "Internal server error"
)

// ValidationError reports malformed input. Message is safe to show to the
// client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed: " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsTokenError reports whether err is one of the three token failures that
// clients must not be able to tell apart.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenUsed) || errors.Is(err, ErrTokenExpired)
}

// HTTPStatus maps err onto the status code a handler should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case IsTokenError(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing message for err. Token failures
// share one message; validation failures keep their specific text.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrRateLimited):
		return MessageRateLimited
	case IsTokenError(err):
		return MessageInvalidToken
	case errors.Is(err, ErrUnauthenticated):
		return MessageUnauthorized
	case errors.Is(err, ErrEmailTaken):
		return MessageEmailTaken
	case errors.Is(err, ErrUserNotFound):
		return MessageUserNotFound
	default:
		return MessageInternal
	}
}
