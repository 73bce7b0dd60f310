package permkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContextUserID tests user ID storage and retrieval
func TestContextUserID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetUserID(ctx))

	ctx = WithUserID(ctx, "user1")
	assert.Equal(t, "user1", GetUserID(ctx))

	// Overwriting
	ctx = WithUserID(ctx, "user2")
	assert.Equal(t, "user2", GetUserID(ctx))
}

// TestContextActorID tests actor ID with user ID fallback
func TestContextActorID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetActorID(ctx))

	// Falls back to user ID
	ctx = WithUserID(ctx, "user1")
	assert.Equal(t, "user1", GetActorID(ctx))

	// Explicit actor wins
	ctx = WithActorID(ctx, "admin1")
	assert.Equal(t, "admin1", GetActorID(ctx))
	assert.Equal(t, "user1", GetUserID(ctx))
}

// TestContextRequestMetadata tests IP, user agent and request ID
func TestContextRequestMetadata(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetIPAddress(ctx))
	assert.Empty(t, GetUserAgent(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithIPAddress(ctx, "192.168.1.1")
	ctx = WithUserAgent(ctx, "test-agent")
	ctx = WithRequestID(ctx, "req-123")

	assert.Equal(t, "192.168.1.1", GetIPAddress(ctx))
	assert.Equal(t, "test-agent", GetUserAgent(ctx))
	assert.Equal(t, "req-123", GetRequestID(ctx))
}

// TestContextEvaluator tests evaluator storage and retrieval
func TestContextEvaluator(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetEvaluator(ctx))
	assert.Nil(t, FromContext(ctx))

	evaluator := NewEvaluator(&ActorSnapshot{UserID: "user1"}, DefaultRegistry(), LevelRole)
	ctx = WithEvaluator(ctx, evaluator)

	require.NotNil(t, GetEvaluator(ctx))
	assert.Equal(t, "user1", GetEvaluator(ctx).UserID())
	assert.Equal(t, evaluator, FromContext(ctx))
}

// TestContextAuditContext tests bulk audit context handling
func TestContextAuditContext(t *testing.T) {
	ctx := context.Background()

	empty := GetAuditContext(ctx)
	assert.Empty(t, empty.ActorID)
	assert.Empty(t, empty.IPAddress)

	ac := AuditContext{
		ActorID:   "admin1",
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
		RequestID: "req-456",
	}
	ctx = WithAuditContext(ctx, ac)

	got := GetAuditContext(ctx)
	assert.Equal(t, ac, got)

	// Empty fields do not clobber existing values
	ctx = WithAuditContext(ctx, AuditContext{RequestID: "req-789"})
	got = GetAuditContext(ctx)
	assert.Equal(t, "admin1", got.ActorID)
	assert.Equal(t, "req-789", got.RequestID)
}

// TestContextTypedKeys tests that plain string keys do not collide
func TestContextTypedKeys(t *testing.T) {
	ctx := WithUserID(context.Background(), "user1")

	//nolint:staticcheck // Intentional string key to test isolation
	ctx = context.WithValue(ctx, "permkit:user_id", "intruder")
	assert.Equal(t, "user1", GetUserID(ctx))
}
