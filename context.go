package permkit

import (
	"context"
)

// Context keys for permkit values.
type contextKey string

const (
	contextKeyUserID    contextKey = "permkit:user_id"
	contextKeyActorID   contextKey = "permkit:actor_id"
	contextKeyIPAddress contextKey = "permkit:ip_address"
	contextKeyUserAgent contextKey = "permkit:user_agent"
	contextKeyRequestID contextKey = "permkit:request_id"
	contextKeyEvaluator contextKey = "permkit:evaluator"
)

func contextString(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithUserID adds a user ID to the context.
// This is the user being checked for permissions.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID retrieves the user ID from context.
// Returns empty string if not set.
func GetUserID(ctx context.Context) string {
	return contextString(ctx, contextKeyUserID)
}

// WithActorID adds an actor ID to the context.
// This is the user performing the action (for audit purposes).
// Often the same as user ID, but can be different for admin actions.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context.
// Falls back to user ID if actor ID is not explicitly set.
func GetActorID(ctx context.Context) string {
	if actorID := contextString(ctx, contextKeyActorID); actorID != "" {
		return actorID
	}
	return GetUserID(ctx)
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	return contextString(ctx, contextKeyIPAddress)
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	return contextString(ctx, contextKeyUserAgent)
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return contextString(ctx, contextKeyRequestID)
}

// WithEvaluator adds an Evaluator to the context.
// This is set by middleware and can be retrieved in handlers.
func WithEvaluator(ctx context.Context, evaluator *Evaluator) context.Context {
	return context.WithValue(ctx, contextKeyEvaluator, evaluator)
}

// GetEvaluator retrieves the Evaluator from context.
// Returns nil if not set.
func GetEvaluator(ctx context.Context) *Evaluator {
	e, _ := ctx.Value(contextKeyEvaluator).(*Evaluator)
	return e
}

// FromContext retrieves the Evaluator from context.
// Alias for GetEvaluator for convenience.
func FromContext(ctx context.Context) *Evaluator {
	return GetEvaluator(ctx)
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
