package permkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// EVERYONE GROUP SYNCHRONIZATION
// ============================================================================
//
// Invariant: a user is a member of the everyone group iff their current role
// has the enrollment flag set. Both sync paths run inside the transaction of
// the role or user mutation that triggered them, so callers never observe
// success before membership reflects the change, and immediately-subsequent
// evaluations see the new state. Both are idempotent and touch only the
// everyone group.

// syncEveryoneForRole reconciles the membership of every user holding the
// given role after its enrollment flag may have changed.
func (s *Service) syncEveryoneForRole(ctx context.Context, role *Role) error {
	start := time.Now()
	err := s.syncRoleMembers(ctx, role)
	s.monitor.record(mutationSync, time.Since(start), err == nil)
	return err
}

func (s *Service) syncRoleMembers(ctx context.Context, role *Role) error {
	everyone, err := s.EnsureEveryoneGroup(ctx)
	if err != nil {
		return err
	}

	if role.InEveryoneGroup {
		result, err := s.conn(ctx).NewRaw(
			`INSERT INTO group_users (group_id, user_id)
			 SELECT ?, id FROM users WHERE role_id = ?
			 ON CONFLICT (group_id, user_id) DO NOTHING`,
			everyone.ID, role.ID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "EveryoneSyncEnroll").Err(); err != nil {
			return err
		}
	} else {
		result, err := s.conn(ctx).NewRaw(
			`DELETE FROM group_users
			 WHERE group_id = ?
			   AND user_id IN (SELECT id FROM users WHERE role_id = ?)`,
			everyone.ID, role.ID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "EveryoneSyncWithdraw").Err(); err != nil {
			return err
		}
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:   audit.ActorID,
		Action:    AuditActionEveryoneSync,
		Holder:    RoleHolder(role.ID),
		IPAddress: audit.IPAddress,
		UserAgent: audit.UserAgent,
		RequestID: audit.RequestID,
	})
	return nil
}

// syncEveryoneForUser reconciles one user's membership after creation or a
// role reassignment.
func (s *Service) syncEveryoneForUser(ctx context.Context, user *User) error {
	start := time.Now()
	err := s.syncSingleUser(ctx, user)
	s.monitor.record(mutationSync, time.Since(start), err == nil)
	return err
}

func (s *Service) syncSingleUser(ctx context.Context, user *User) error {
	role, err := s.GetRole(ctx, user.RoleID)
	if err != nil {
		return err
	}

	everyone, err := s.EnsureEveryoneGroup(ctx)
	if err != nil {
		return err
	}

	if role.InEveryoneGroup {
		membership := &GroupMembership{GroupID: everyone.ID, UserID: user.ID}
		result, err := s.conn(ctx).NewInsert().Model(membership).
			On("CONFLICT (group_id, user_id) DO NOTHING").
			Exec(ctx)
		return dbkit.WithErr(result, err, "EveryoneSyncUserEnroll").Err()
	}

	result, err := s.conn(ctx).NewDelete().Table("group_users").
		Where("group_id = ? AND user_id = ?", everyone.ID, user.ID).
		Exec(ctx)
	return dbkit.WithErr(result, err, "EveryoneSyncUserWithdraw").Err()
}
