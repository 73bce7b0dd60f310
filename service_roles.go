package permkit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ROLE LIFECYCLE
// ============================================================================

// CreateRole creates a new role. Rank changes and the enrollment flag take
// effect on hierarchy checks and everyone-group membership immediately.
//
// Example:
//
//	role, err := service.CreateRole(ctx, permkit.RoleInput{Name: "Tester", Published: true})
func (s *Service) CreateRole(ctx context.Context, input RoleInput) (*Role, error) {
	if errs := validateStruct(input); errs != nil {
		return nil, errs
	}

	role := &Role{
		ID:              uuid.NewString(),
		Name:            input.Name,
		Position:        input.Position,
		Published:       input.Published,
		InEveryoneGroup: input.InEveryoneGroup,
	}

	result, err := s.conn(ctx).NewInsert().Model(role).Exec(ctx)
	if err := dbkit.WithErr(result, err, "CreateRole").Err(); err != nil {
		return nil, NewError(ErrDatabaseError, "failed to create role").WithHolder(RoleHolder(role.ID))
	}
	return role, nil
}

// UpdateRole updates a role record. When the enrollment flag changes, every
// user holding the role is synchronously added to or removed from the
// everyone group before the call returns: there is no window during which an
// evaluation can observe stale membership.
func (s *Service) UpdateRole(ctx context.Context, roleID string, input RoleInput) (*Role, error) {
	if errs := validateStruct(input); errs != nil {
		return nil, errs
	}

	var updated *Role
	err := s.Transaction(ctx, func(ctx context.Context) error {
		role, err := s.GetRole(ctx, roleID)
		if err != nil {
			return err
		}

		role.Name = input.Name
		role.Position = input.Position
		role.Published = input.Published
		role.InEveryoneGroup = input.InEveryoneGroup
		role.UpdatedAt = time.Now()

		result, err := s.conn(ctx).NewUpdate().Model(role).
			Column("name", "position", "published", "in_everyone_group", "updated_at").
			WherePK().
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "UpdateRole").Err(); err != nil {
			return NewError(ErrDatabaseError, "failed to update role").WithHolder(RoleHolder(roleID))
		}

		if err := s.syncEveryoneForRole(ctx, role); err != nil {
			return err
		}

		updated = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetRole returns a role by ID.
func (s *Service) GetRole(ctx context.Context, roleID string) (*Role, error) {
	var role Role
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&role).
		Where("id = ?", roleID).
		Limit(1).
		Scan(ctx), "GetRole").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "role not found").WithHolder(RoleHolder(roleID))
		}
		return nil, err
	}
	return &role, nil
}

// ListRoles returns all roles ordered by rank, most senior first.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&roles).
		Order("position ASC", "name ASC").
		Scan(ctx), "ListRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// ListRolesForActor returns the roles an actor may see: those at or below
// the actor's own rank. Used by role-management listings.
func (s *Service) ListRolesForActor(ctx context.Context, actorID string) ([]Role, error) {
	evaluator, err := s.GetActorEvaluator(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !evaluator.Can(CapEditUserRoles) {
		return nil, NewError(ErrForbidden, "actor may not manage roles").WithActor(actorID)
	}

	var roles []Role
	err = dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&roles).
		Where("position >= ?", evaluator.snapshot.RoleRank()).
		Order("position ASC", "name ASC").
		Scan(ctx), "ListRolesForActor").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// DeleteRole removes a role and its grants. It fails while users still hold
// the role: a user's role is mandatory, so callers must reassign first.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		count, err := dbkit.Count[User](ctx, s.conn(ctx), userByRoleQuery(roleID))
		if err != nil {
			return err
		}
		if count > 0 {
			return NewError(ErrRoleRequired, "role still assigned to users").WithHolder(RoleHolder(roleID))
		}

		if err := s.RevokeAll(ctx, RoleHolder(roleID)); err != nil {
			return err
		}

		result, err := s.conn(ctx).NewDelete().Table("roles").Where("id = ?", roleID).Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteRole").Err()
	})
}

// AuthorizeRoleAccess checks that an actor may view or edit a role record:
// the edit-user-roles capability plus seniority over the target role's rank.
// Returns ErrForbidden on denial; this is the 403 path, distinct from the
// validation failure produced when assigning a too-senior role to a user.
func (s *Service) AuthorizeRoleAccess(ctx context.Context, actorID, roleID string) error {
	target, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	evaluator, err := s.GetActorEvaluator(ctx, actorID)
	if err != nil {
		return err
	}
	if !evaluator.CanAccessRole(target.Position) {
		return NewError(ErrForbidden, "actor may not act on this role").
			WithActor(actorID).
			WithHolder(RoleHolder(roleID))
	}
	return nil
}
