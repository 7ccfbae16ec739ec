package magicAuth

import (
	"context"
	"errors"
)

const (
	auditEventMagicLinkRequest   = "magic_link_request"
	auditEventMagicLinkVerify    = "magic_link_verify"
	auditEventSessionRefresh     = "session_refresh"
	auditEventSessionRejected    = "session_rejected"
	auditEventLogout             = "logout"
	auditEventUserUpdate         = "user_update"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode is the stable error classification attached to failed
// audit events.
type AuditErrorCode string

const (
	auditErrValidation      AuditErrorCode = "validation"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrTokenUsed       AuditErrorCode = "token_used"
	auditErrTokenExpired    AuditErrorCode = "token_expired"
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrUserNotFound    AuditErrorCode = "user_not_found"
	auditErrDuplicate       AuditErrorCode = "duplicate"
	auditErrDelivery        AuditErrorCode = "delivery_failed"
	auditErrConfiguration   AuditErrorCode = "configuration"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	email string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", email, nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenUsed):
		return auditErrTokenUsed
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrEmailTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrEmailDelivery):
		return auditErrDelivery
	case errors.Is(err, ErrConfiguration):
		return auditErrConfiguration
	case errors.Is(err, ErrRateLimiterUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
