package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Service provides role, group, user and grant management plus permission
// evaluation over a dbkit-backed store.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Denials are plain false results,
// never errors; validation failures come back as FieldErrors.
//
// Example:
//
//	registry := permkit.DefaultRegistry()
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := permkit.NewService(registry, db, permkit.WithLevel(permkit.LevelRoleGroupModule))
type Service struct {
	db           dbkit.IDB
	registry     *Registry
	level        PermissionLevel
	guard        HierarchyGuard
	auditEnabled bool
	monitor      *mutationMonitor
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLevel sets the process-wide permission level.
func WithLevel(level PermissionLevel) ServiceOption {
	return func(s *Service) {
		s.level = level
	}
}

// WithAudit toggles audit logging of mutations.
func WithAudit(enabled bool) ServiceOption {
	return func(s *Service) {
		s.auditEnabled = enabled
	}
}

// NewService creates a new permission service. The default level is
// LevelRole with audit logging enabled.
func NewService(registry *Registry, db dbkit.IDB, opts ...ServiceOption) *Service {
	s := &Service{
		db:           db,
		registry:     registry,
		level:        LevelRole,
		auditEnabled: true,
		monitor:      newMutationMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromConfig creates a service using environment-derived Config.
func NewServiceFromConfig(registry *Registry, db dbkit.IDB, cfg *Config) *Service {
	return NewService(registry, db, WithLevel(cfg.Level), WithAudit(cfg.AuditEnabled))
}

// Registry returns the capability registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Level returns the configured permission level.
func (s *Service) Level() PermissionLevel {
	return s.level
}

// ============================================================================
// AUDIT LOG
// ============================================================================

func (s *Service) logAudit(ctx context.Context, entry *AuditEntry) error {
	if !s.auditEnabled {
		return nil
	}
	_, err := s.conn(ctx).NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// GetAuditLog retrieves audit log entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]PermissionAuditLog, error) {
	var logs []PermissionAuditLog
	q := s.conn(ctx).NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.HolderType != "" {
		q = q.Where("holder_type = ?", filter.HolderType)
	}
	if filter.HolderID != "" {
		q = q.Where("holder_id = ?", filter.HolderID)
	}
	if filter.Capability != "" {
		q = q.Where("capability = ?", filter.Capability)
	}
	if filter.Module != "" {
		q = q.Where("module = ?", filter.Module)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}

	return logs, nil
}
