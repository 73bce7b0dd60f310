package permkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAuditLogFilterDefaults tests the filter constructor
func TestAuditLogFilterDefaults(t *testing.T) {
	filter := NewAuditLogFilter()

	assert.Equal(t, 100, filter.Limit)
	assert.Zero(t, filter.Offset)
	assert.Empty(t, filter.ActorID)
	assert.Empty(t, filter.Action)
	assert.True(t, filter.Since.IsZero())
	assert.True(t, filter.Until.IsZero())
}

// TestAuditLogFilterFluent tests the chained setters
func TestAuditLogFilterFluent(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	filter := NewAuditLogFilter().
		WithActor("admin1").
		WithHolder(GroupHolder("group1")).
		WithCapability(CapEditModule).
		WithModule("posts").
		WithAction(AuditActionGranted).
		WithTimeRange(since, until).
		WithPagination(50, 10)

	assert.Equal(t, "admin1", filter.ActorID)
	assert.Equal(t, "group", filter.HolderType)
	assert.Equal(t, "group1", filter.HolderID)
	assert.Equal(t, CapEditModule, filter.Capability)
	assert.Equal(t, "posts", filter.Module)
	assert.Equal(t, "granted", filter.Action)
	assert.Equal(t, since, filter.Since)
	assert.Equal(t, until, filter.Until)
	assert.Equal(t, 50, filter.Limit)
	assert.Equal(t, 10, filter.Offset)
}

// TestAuditLogFilterValueSemantics tests that chaining does not mutate the base
func TestAuditLogFilterValueSemantics(t *testing.T) {
	base := NewAuditLogFilter()
	derived := base.WithActor("admin1").WithLimit(5)

	assert.Empty(t, base.ActorID)
	assert.Equal(t, 100, base.Limit)
	assert.Equal(t, "admin1", derived.ActorID)
	assert.Equal(t, 5, derived.Limit)
}

// TestAuditLogFilterPartialTime tests the single-ended time setters
func TestAuditLogFilterPartialTime(t *testing.T) {
	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	filter := NewAuditLogFilter().WithSince(since)
	assert.Equal(t, since, filter.Since)
	assert.True(t, filter.Until.IsZero())

	filter = NewAuditLogFilter().WithUntil(since)
	assert.True(t, filter.Since.IsZero())
	assert.Equal(t, since, filter.Until)
}
