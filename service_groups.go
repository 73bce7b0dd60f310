package permkit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// GROUP LIFECYCLE
// ============================================================================

// EveryoneGroupName is the display name of the system-managed group.
const EveryoneGroupName = "Everyone"

// EnsureEveryoneGroup creates the singleton everyone group if it does not
// exist and returns it. Safe to call from concurrent bootstraps: a partial
// unique index on is_everyone guarantees at most one row ever exists.
func (s *Service) EnsureEveryoneGroup(ctx context.Context) (*Group, error) {
	group := &Group{
		ID:         uuid.NewString(),
		Name:       EveryoneGroupName,
		Published:  true,
		IsEveryone: true,
	}
	result, err := s.conn(ctx).NewInsert().Model(group).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "EnsureEveryoneGroup").Err(); err != nil {
		if !dbkit.IsDuplicate(err) {
			return nil, err
		}
	}
	return s.GetEveryoneGroup(ctx)
}

// GetEveryoneGroup returns the singleton everyone group.
func (s *Service) GetEveryoneGroup(ctx context.Context) (*Group, error) {
	var group Group
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&group).
		Where("is_everyone = TRUE").
		Limit(1).
		Scan(ctx), "GetEveryoneGroup").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "everyone group not initialized")
		}
		return nil, err
	}
	return &group, nil
}

// CreateGroup creates a regular group. The everyone group cannot be created
// through this path; use EnsureEveryoneGroup at bootstrap.
func (s *Service) CreateGroup(ctx context.Context, input GroupInput) (*Group, error) {
	if errs := validateStruct(input); errs != nil {
		return nil, errs
	}

	group := &Group{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Published: input.Published,
	}
	result, err := s.conn(ctx).NewInsert().Model(group).Exec(ctx)
	if err := dbkit.WithErr(result, err, "CreateGroup").Err(); err != nil {
		return nil, NewError(ErrDatabaseError, "failed to create group").WithHolder(GroupHolder(group.ID))
	}
	return group, nil
}

// UpdateGroup updates a group's name and published flag. The everyone group
// is exempt from direct edits.
func (s *Service) UpdateGroup(ctx context.Context, groupID string, input GroupInput) (*Group, error) {
	if errs := validateStruct(input); errs != nil {
		return nil, errs
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsEveryone {
		return nil, NewError(ErrEveryoneGroupImmutable, "cannot edit the everyone group").
			WithHolder(GroupHolder(groupID))
	}

	group.Name = input.Name
	group.Published = input.Published
	group.UpdatedAt = time.Now()

	result, err := s.conn(ctx).NewUpdate().Model(group).
		Column("name", "published", "updated_at").
		WherePK().
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "UpdateGroup").Err(); err != nil {
		return nil, NewError(ErrDatabaseError, "failed to update group").WithHolder(GroupHolder(groupID))
	}
	return group, nil
}

// DeleteGroup removes a group, its memberships and its grants. The everyone
// group cannot be deleted.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsEveryone {
		return NewError(ErrEveryoneGroupImmutable, "cannot delete the everyone group").
			WithHolder(GroupHolder(groupID))
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		result, err := s.conn(ctx).NewDelete().Table("group_users").Where("group_id = ?", groupID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteGroupMemberships").Err(); err != nil {
			return err
		}
		if err := s.RevokeAll(ctx, GroupHolder(groupID)); err != nil {
			return err
		}
		result, err = s.conn(ctx).NewDelete().Table("groups").Where("id = ?", groupID).Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteGroup").Err()
	})
}

// GetGroup returns a group by ID.
func (s *Service) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var group Group
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&group).
		Where("id = ?", groupID).
		Limit(1).
		Scan(ctx), "GetGroup").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "group not found").WithHolder(GroupHolder(groupID))
		}
		return nil, err
	}
	return &group, nil
}

// ListGroups returns all groups, the everyone group first.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&groups).
		Order("is_everyone DESC", "name ASC").
		Scan(ctx), "ListGroups").Err()
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// AuthorizeGroupAccess checks that an actor may view or edit a group:
// the edit-user-groups capability, which implies level roleGroup or above.
// The everyone group is never editable, regardless of grants.
func (s *Service) AuthorizeGroupAccess(ctx context.Context, actorID, groupID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsEveryone {
		return NewError(ErrForbidden, "the everyone group is not editable").
			WithActor(actorID).
			WithHolder(GroupHolder(groupID))
	}

	evaluator, err := s.GetActorEvaluator(ctx, actorID)
	if err != nil {
		return err
	}
	if !evaluator.Can(CapEditUserGroups) {
		return NewError(ErrForbidden, "actor may not manage groups").
			WithActor(actorID).
			WithHolder(GroupHolder(groupID))
	}
	return nil
}

// ============================================================================
// MEMBERSHIP
// ============================================================================

// AttachUser adds a user to a group. Idempotent. Direct membership changes
// on the everyone group are rejected: its membership is derived from role
// enrollment.
func (s *Service) AttachUser(ctx context.Context, groupID, userID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsEveryone {
		return NewError(ErrEveryoneGroupImmutable, "everyone membership is derived from roles").
			WithHolder(GroupHolder(groupID)).
			WithUser(userID)
	}

	membership := &GroupMembership{GroupID: groupID, UserID: userID}
	result, err := s.conn(ctx).NewInsert().Model(membership).
		On("CONFLICT (group_id, user_id) DO NOTHING").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "AttachUser").Err(); err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		audit := GetAuditContext(ctx)
		_ = s.logAudit(ctx, &AuditEntry{
			ActorID:   audit.ActorID,
			Action:    AuditActionMemberAdded,
			Holder:    GroupHolder(groupID),
			IPAddress: audit.IPAddress,
			UserAgent: audit.UserAgent,
			RequestID: audit.RequestID,
		})
	}
	return nil
}

// DetachUser removes a user from a group. A no-op when the user is not a
// member. Rejected for the everyone group.
func (s *Service) DetachUser(ctx context.Context, groupID, userID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsEveryone {
		return NewError(ErrEveryoneGroupImmutable, "everyone membership is derived from roles").
			WithHolder(GroupHolder(groupID)).
			WithUser(userID)
	}

	result, err := s.conn(ctx).NewDelete().Table("group_users").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "DetachUser").Err(); err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		audit := GetAuditContext(ctx)
		_ = s.logAudit(ctx, &AuditEntry{
			ActorID:   audit.ActorID,
			Action:    AuditActionMemberRemoved,
			Holder:    GroupHolder(groupID),
			IPAddress: audit.IPAddress,
			UserAgent: audit.UserAgent,
			RequestID: audit.RequestID,
		})
	}
	return nil
}

// CountGroupMembers returns the number of users in a group.
func (s *Service) CountGroupMembers(ctx context.Context, groupID string) (int, error) {
	return dbkit.Count[GroupMembership](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_id = ?", groupID)
	})
}

// ListGroupMembers returns the user IDs of a group's members.
func (s *Service) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	var userIDs []string
	err := dbkit.WithErr1(s.conn(ctx).NewRaw(
		"SELECT user_id FROM group_users WHERE group_id = ? ORDER BY created_at ASC", groupID).
		Scan(ctx, &userIDs), "ListGroupMembers").Err()
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
