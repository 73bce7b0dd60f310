package permkit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// EVALUATION
// ============================================================================

// GetActorSnapshot loads the consistent permission view for a user: role
// with grants, published group memberships with grants, own grants. Each
// call produces a fresh snapshot, so no decision outlives a grant mutation.
func (s *Service) GetActorSnapshot(ctx context.Context, userID string) (*ActorSnapshot, error) {
	snapshot := &ActorSnapshot{UserID: userID}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			// Unknown users evaluate as roleless: everything denies.
			return snapshot, nil
		}
		return nil, err
	}

	role, err := s.GetRole(ctx, user.RoleID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if role != nil {
		snapshot.Role = role
		snapshot.RoleGrants, err = s.ListGrants(ctx, RoleHolder(role.ID))
		if err != nil {
			return nil, err
		}
	}

	groupIDs, err := s.publishedGroupIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, groupID := range groupIDs {
		grants, err := s.ListGrants(ctx, GroupHolder(groupID))
		if err != nil {
			return nil, err
		}
		snapshot.Groups = append(snapshot.Groups, GroupGrants{GroupID: groupID, Grants: grants})
	}

	snapshot.OwnGrants, err = s.ListGrants(ctx, UserHolder(userID))
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// GetActorEvaluator creates an Evaluator for a user. This can be stored in
// context for efficient permission checking in handlers.
func (s *Service) GetActorEvaluator(ctx context.Context, userID string) (*Evaluator, error) {
	snapshot, err := s.GetActorSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(snapshot, s.registry, s.level), nil
}

// GetEvaluatorFromContext creates an Evaluator using the user ID from
// context.
func (s *Service) GetEvaluatorFromContext(ctx context.Context) (*Evaluator, error) {
	userID := GetUserID(ctx)
	if userID == "" {
		return nil, ErrNoUserID
	}
	return s.GetActorEvaluator(ctx, userID)
}

// CanPerform checks a global capability for a user. Denies on any load
// error: evaluation fails closed.
//
// Example:
//
//	if service.CanPerform(ctx, userID, permkit.CapEditSettings) {
//	    // User may change settings
//	}
func (s *Service) CanPerform(ctx context.Context, userID, capability string) bool {
	evaluator, err := s.GetActorEvaluator(ctx, userID)
	if err != nil {
		return false
	}
	return evaluator.Can(capability)
}

// CanPerformOnModule checks a module-scoped capability for a user.
func (s *Service) CanPerformOnModule(ctx context.Context, userID, capability, module string) bool {
	evaluator, err := s.GetActorEvaluator(ctx, userID)
	if err != nil {
		return false
	}
	return evaluator.CanModule(capability, module)
}

// CanPerformOnItem checks an item-scoped capability for a user.
func (s *Service) CanPerformOnItem(ctx context.Context, userID, capability, module, itemID string) bool {
	evaluator, err := s.GetActorEvaluator(ctx, userID)
	if err != nil {
		return false
	}
	return evaluator.CanItem(capability, module, itemID)
}

// CanBrowseModule checks whether a user may see a module's item listing.
func (s *Service) CanBrowseModule(ctx context.Context, userID, module string) bool {
	evaluator, err := s.GetActorEvaluator(ctx, userID)
	if err != nil {
		return false
	}
	return evaluator.CanBrowseModule(module)
}

// ============================================================================
// INTERNAL
// ============================================================================

func (s *Service) publishedGroupIDs(ctx context.Context, userID string) ([]string, error) {
	var groupIDs []string
	err := dbkit.WithErr1(s.conn(ctx).NewRaw(
		`SELECT gu.group_id FROM group_users gu
		 JOIN groups g ON g.id = gu.group_id
		 WHERE gu.user_id = ? AND g.published
		 ORDER BY gu.created_at ASC`, userID).
		Scan(ctx, &groupIDs), "PublishedGroupIDs").Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return groupIDs, nil
}
