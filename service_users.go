package permkit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// USER LIFECYCLE
// ============================================================================

// CreateUser creates a user with its mandatory role and optional group
// memberships. When an actor is present in context, the assigned role must
// not outrank the actor's own role; a violation is reported as a validation
// failure on the role field, and nothing is persisted. Everyone-group
// membership is synchronized before the call returns.
//
// Example:
//
//	user, err := service.CreateUser(ctx, permkit.UserInput{
//	    Name:   "Bob",
//	    Email:  "bob@example.test",
//	    RoleID: roleID,
//	})
func (s *Service) CreateUser(ctx context.Context, input UserInput) (*User, error) {
	if err := s.validateUserInput(ctx, input); err != nil {
		return nil, err
	}

	user := &User{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		RoleID:    input.RoleID,
		Published: input.Published,
	}

	err := s.Transaction(ctx, func(ctx context.Context) error {
		result, err := s.conn(ctx).NewInsert().Model(user).Exec(ctx)
		if err := dbkit.WithErr(result, err, "CreateUser").Err(); err != nil {
			return NewError(ErrDatabaseError, "failed to create user").WithUser(user.ID)
		}

		for _, groupID := range input.GroupIDs {
			if err := s.AttachUser(ctx, groupID, user.ID); err != nil {
				return err
			}
		}

		return s.syncEveryoneForUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser updates a user record. Role reassignment is hierarchy-checked
// like CreateUser and re-synchronizes everyone-group membership in the same
// transaction.
func (s *Service) UpdateUser(ctx context.Context, userID string, input UserInput) (*User, error) {
	if err := s.validateUserInput(ctx, input); err != nil {
		return nil, err
	}

	var updated *User
	err := s.Transaction(ctx, func(ctx context.Context) error {
		user, err := s.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		user.Name = input.Name
		user.Email = input.Email
		user.RoleID = input.RoleID
		user.Published = input.Published
		user.UpdatedAt = time.Now()

		result, err := s.conn(ctx).NewUpdate().Model(user).
			Column("name", "email", "role_id", "published", "updated_at").
			WherePK().
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "UpdateUser").Err(); err != nil {
			return NewError(ErrDatabaseError, "failed to update user").WithUser(userID)
		}

		if err := s.syncEveryoneForUser(ctx, user); err != nil {
			return err
		}

		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user, their memberships and their own grants.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		result, err := s.conn(ctx).NewDelete().Table("group_users").Where("user_id = ?", userID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteUserMemberships").Err(); err != nil {
			return err
		}
		if err := s.RevokeAll(ctx, UserHolder(userID)); err != nil {
			return err
		}
		result, err = s.conn(ctx).NewDelete().Table("users").Where("id = ?", userID).Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteUser").Err()
	})
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&user).
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx), "GetUser").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "user not found").WithUser(userID)
		}
		return nil, err
	}
	return &user, nil
}

// ListUsersForActor returns the users an actor may see: those whose role is
// at or below the actor's own rank. The actor themself is always included.
func (s *Service) ListUsersForActor(ctx context.Context, actorID string) ([]User, error) {
	evaluator, err := s.GetActorEvaluator(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !evaluator.Can(CapEditUsers) {
		return nil, NewError(ErrForbidden, "actor may not manage users").WithActor(actorID)
	}

	var users []User
	err = dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&users).
		Join("JOIN roles AS ro ON ro.id = u.role_id").
		Where("ro.position >= ? OR u.id = ?", evaluator.snapshot.RoleRank(), actorID).
		Order("u.name ASC").
		Scan(ctx), "ListUsersForActor").Err()
	if err != nil {
		return nil, err
	}
	return users, nil
}

// AuthorizeUserAccess checks that an actor may view or edit a user profile.
// Self-access is always allowed; anything else requires edit-users and
// seniority over the target's role. Returns ErrForbidden on denial.
func (s *Service) AuthorizeUserAccess(ctx context.Context, actorID, targetUserID string) error {
	if actorID == targetUserID {
		return nil
	}

	target, err := s.GetUser(ctx, targetUserID)
	if err != nil {
		return err
	}
	targetRole, err := s.GetRole(ctx, target.RoleID)
	if err != nil {
		return err
	}

	evaluator, err := s.GetActorEvaluator(ctx, actorID)
	if err != nil {
		return err
	}
	if !evaluator.CanAccessUser(targetUserID, targetRole.Position) {
		return NewError(ErrForbidden, "actor may not act on this user").
			WithActor(actorID).
			WithUser(targetUserID)
	}
	return nil
}

// ============================================================================
// INTERNAL
// ============================================================================

// validateUserInput combines struct validation with the hierarchy check on
// the assigned role. The hierarchy check runs only when an actor is present
// in context; system bootstrap paths create users without one. Returns
// FieldErrors for validation failures; any other error is a database
// failure and is propagated as-is.
func (s *Service) validateUserInput(ctx context.Context, input UserInput) error {
	errs := validateStruct(input)
	if errs.Has(FieldRoleID) {
		return errs
	}

	assigned, err := s.GetRole(ctx, input.RoleID)
	if err != nil {
		if IsNotFound(err) {
			return append(errs, FieldError{Field: FieldRoleID, Message: MsgInvalidRoleSelected})
		}
		return err
	}

	actorID := GetActorID(ctx)
	if actorID != "" {
		snapshot, snapErr := s.GetActorSnapshot(ctx, actorID)
		if snapErr == nil && snapshot.HasRole() {
			errs = append(errs, s.guard.ValidateAssignment(snapshot.RoleRank(), assigned.Position)...)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func userByRoleQuery(roleID string) func(q *bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("role_id = ?", roleID)
	}
}
