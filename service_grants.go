package permkit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// GRANT OPERATIONS
// ============================================================================

// Grant adds a capability grant to a holder. Granting is idempotent: if the
// holder already carries the exact (scope, capability) pair the call is a
// no-op. The grant is visible to evaluations as soon as the call returns.
//
// Example:
//
//	err := service.Grant(ctx, permkit.RoleHolder(roleID), permkit.GlobalScope(), permkit.CapEditSettings)
func (s *Service) Grant(ctx context.Context, holder Holder, scope Scope, capability string) error {
	start := time.Now()
	err := s.grant(ctx, holder, scope, capability)
	s.monitor.record(mutationGrant, time.Since(start), err == nil)
	return err
}

func (s *Service) grant(ctx context.Context, holder Holder, scope Scope, capability string) error {
	if err := s.registry.Validate(capability, scope.Kind); err != nil {
		return err
	}

	grant := &Grant{
		ID:         uuid.NewString(),
		HolderType: string(holder.Type),
		HolderID:   holder.ID,
		Capability: capability,
		ScopeKind:  string(scope.Kind),
		Module:     scope.Module,
		ItemID:     scope.ItemID,
	}

	// Single-statement insert keeps concurrent grant/grant and grant/revoke
	// races deterministic: the row either exists afterwards or it does not.
	result, err := s.conn(ctx).NewInsert().
		Model(grant).
		On("CONFLICT (holder_type, holder_id, capability, scope_kind, module, item_id) DO NOTHING").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "CreateGrant").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to create grant").
			WithHolder(holder).
			WithCapability(capability).
			WithScope(scope)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Already granted; idempotent success, nothing to audit.
		return nil
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:    audit.ActorID,
		Action:     AuditActionGranted,
		Holder:     holder,
		Capability: capability,
		Scope:      scope,
		IPAddress:  audit.IPAddress,
		UserAgent:  audit.UserAgent,
		RequestID:  audit.RequestID,
	})

	return nil
}

// Revoke removes a capability grant from a holder. Revoking a grant that was
// never made is a no-op, not an error.
//
// Example:
//
//	err := service.Revoke(ctx, permkit.GroupHolder(groupID), permkit.ModuleScope("posts"), permkit.CapEditModule)
func (s *Service) Revoke(ctx context.Context, holder Holder, scope Scope, capability string) error {
	start := time.Now()
	err := s.revoke(ctx, holder, scope, capability)
	s.monitor.record(mutationRevoke, time.Since(start), err == nil)
	return err
}

func (s *Service) revoke(ctx context.Context, holder Holder, scope Scope, capability string) error {
	if err := s.registry.Validate(capability, scope.Kind); err != nil {
		return err
	}

	result, err := s.conn(ctx).NewDelete().Table("grants").
		Where("holder_type = ? AND holder_id = ? AND capability = ? AND scope_kind = ? AND module = ? AND item_id = ?",
			string(holder.Type), holder.ID, capability, string(scope.Kind), scope.Module, scope.ItemID).
		Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteGrant").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to revoke grant").
			WithHolder(holder).
			WithCapability(capability).
			WithScope(scope)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:    audit.ActorID,
		Action:     AuditActionRevoked,
		Holder:     holder,
		Capability: capability,
		Scope:      scope,
		IPAddress:  audit.IPAddress,
		UserAgent:  audit.UserAgent,
		RequestID:  audit.RequestID,
	})

	return nil
}

// ListGrants returns all grants held by a role, group or user, oldest first.
func (s *Service) ListGrants(ctx context.Context, holder Holder) ([]Grant, error) {
	var grants []Grant
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&grants).
		Where("holder_type = ? AND holder_id = ?", string(holder.Type), holder.ID).
		Order("created_at ASC").
		Scan(ctx), "ListGrants").Err()
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// HasGrant checks whether a holder carries an exact (scope, capability)
// grant. Subsumption is not applied here; use the Evaluator for effective
// permission checks.
func (s *Service) HasGrant(ctx context.Context, holder Holder, scope Scope, capability string) bool {
	exists, err := dbkit.Exists[Grant](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("holder_type = ? AND holder_id = ? AND capability = ? AND scope_kind = ? AND module = ? AND item_id = ?",
			string(holder.Type), holder.ID, capability, string(scope.Kind), scope.Module, scope.ItemID)
	})
	if err != nil {
		return false
	}
	return exists
}

// RevokeAll removes every grant a holder carries. Used when deleting roles,
// groups or users so no orphaned grants survive the holder.
func (s *Service) RevokeAll(ctx context.Context, holder Holder) error {
	result, err := s.conn(ctx).NewDelete().Table("grants").
		Where("holder_type = ? AND holder_id = ?", string(holder.Type), holder.ID).
		Exec(ctx)
	return dbkit.WithErr(result, err, "RevokeAllGrants").Err()
}

// CountGrants returns the number of grants a holder carries.
func (s *Service) CountGrants(ctx context.Context, holder Holder) (int, error) {
	return dbkit.Count[Grant](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("holder_type = ? AND holder_id = ?", string(holder.Type), holder.ID)
	})
}
