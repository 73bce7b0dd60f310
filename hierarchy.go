package permkit

// HierarchyGuard enforces role rank ordering: a lower Position is more
// senior, and an actor may only act on roles and users at or below their own
// rank. Equal ranks may act on each other.
//
// Viewing or editing a senior role/user is a hard denial (ErrForbidden);
// assigning a too-senior role during user create/update is a validation
// failure on the role field instead, so callers can render it as invalid
// input rather than a forbidden action.
type HierarchyGuard struct{}

// CanActOn reports whether an actor at actorRank may view or edit a target
// at targetRank.
func (HierarchyGuard) CanActOn(actorRank, targetRank int) bool {
	return actorRank <= targetRank
}

// Authorize returns ErrForbidden when the actor rank is junior to the
// target rank.
func (h HierarchyGuard) Authorize(actorRank, targetRank int) error {
	if !h.CanActOn(actorRank, targetRank) {
		return NewError(ErrForbidden, "target outranks actor")
	}
	return nil
}

// ValidateAssignment checks that a role being assigned to a user is not more
// senior than the actor's own role. A violation is reported as a field
// error on the role selection field, not as ErrForbidden.
func (h HierarchyGuard) ValidateAssignment(actorRank, assignedRank int) FieldErrors {
	if h.CanActOn(actorRank, assignedRank) {
		return nil
	}
	return FieldErrors{{Field: FieldRoleID, Message: MsgInvalidRoleSelected}}
}
