package permkit

// Evaluator decides allow/deny for a single actor over an immutable
// snapshot. It is typically created by the Service per request and stored in
// context for use in handlers.
//
// Evaluation walks the holders in order: role, then each group membership,
// then the actor's own grants, and stops at the first matching grant
// (logical OR). Absence of a matching grant is the only deny signal; there
// is no explicit deny grant. Unknown capabilities always deny.
type Evaluator struct {
	snapshot *ActorSnapshot
	registry *Registry
	level    PermissionLevel
	guard    HierarchyGuard
}

// NewEvaluator creates a new Evaluator for an actor snapshot.
func NewEvaluator(snapshot *ActorSnapshot, registry *Registry, level PermissionLevel) *Evaluator {
	return &Evaluator{
		snapshot: snapshot,
		registry: registry,
		level:    level,
	}
}

// UserID returns the user ID this evaluator is for.
func (e *Evaluator) UserID() string {
	return e.snapshot.UserID
}

// Level returns the configured permission level.
func (e *Evaluator) Level() PermissionLevel {
	return e.level
}

// Can checks a global capability.
//
// Example:
//
//	if evaluator.Can(permkit.CapEditSettings) {
//	    // Actor may change settings
//	}
func (e *Evaluator) Can(capability string) bool {
	return e.CanScope(capability, GlobalScope())
}

// CanModule checks a module-scoped capability.
//
// Example:
//
//	if evaluator.CanModule(permkit.CapEditModule, "posts") {
//	    // Actor may edit and create posts
//	}
func (e *Evaluator) CanModule(capability, module string) bool {
	return e.CanScope(capability, ModuleScope(module))
}

// CanItem checks an item-scoped capability.
//
// Example:
//
//	if evaluator.CanItem(permkit.CapEditItem, "posts", postID) {
//	    // Actor may edit this post
//	}
func (e *Evaluator) CanItem(capability, module, itemID string) bool {
	return e.CanScope(capability, ItemScope(module, itemID))
}

// CanScope is the generic check backing Can/CanModule/CanItem.
func (e *Evaluator) CanScope(capability string, target Scope) bool {
	def := e.registry.Get(capability)
	if def == nil {
		return false
	}
	if e.level < def.minLevel {
		return false
	}

	// Own profile is always accessible, even with zero grants.
	if e.isSelfTarget(capability, target) {
		return true
	}

	if !e.snapshot.HasRole() {
		return false
	}

	if e.roleTierActive() && e.snapshot.Role.Published {
		if e.anyGrantMatches(e.snapshot.RoleGrants, e.roleScopeKinds(), capability, target) {
			return true
		}
	}

	if e.groupTierActive() {
		kinds := e.groupScopeKinds()
		for _, gg := range e.snapshot.Groups {
			if e.anyGrantMatches(gg.Grants, kinds, capability, target) {
				return true
			}
		}
	}

	if e.userTierActive() {
		if e.anyGrantMatches(e.snapshot.OwnGrants, e.userScopeKinds(), capability, target) {
			return true
		}
	}

	return false
}

// CanBrowseModule reports whether the actor may see the item listing of a
// module: either a module-wide view grant, or at least one item of the
// module the actor can view (in which case the listing is filtered down to
// those items by the caller).
func (e *Evaluator) CanBrowseModule(module string) bool {
	if e.CanModule(CapViewModule, module) {
		return true
	}

	if e.groupTierActive() && e.tierAllowsKind(e.groupScopeKinds(), KindItem) {
		for _, gg := range e.snapshot.Groups {
			if e.anyItemGrantInModule(gg.Grants, module) {
				return true
			}
		}
	}
	if e.userTierActive() {
		if e.anyItemGrantInModule(e.snapshot.OwnGrants, module) {
			return true
		}
	}
	return false
}

// CanAccessUser reports whether the actor may view or edit another user's
// profile: always for their own, otherwise edit-users plus seniority over
// the target's role rank.
func (e *Evaluator) CanAccessUser(targetUserID string, targetRoleRank int) bool {
	if targetUserID == e.snapshot.UserID {
		return true
	}
	if !e.Can(CapEditUsers) {
		return false
	}
	return e.guard.CanActOn(e.snapshot.RoleRank(), targetRoleRank)
}

// CanAccessRole reports whether the actor may view or edit a role record:
// edit-user-roles plus seniority over the target rank.
func (e *Evaluator) CanAccessRole(targetRank int) bool {
	if !e.Can(CapEditUserRoles) {
		return false
	}
	return e.guard.CanActOn(e.snapshot.RoleRank(), targetRank)
}

// IsRoleless reports whether the actor has no resolvable role. Roleless
// actors are denied everything except their own profile.
func (e *Evaluator) IsRoleless() bool {
	return !e.snapshot.HasRole()
}

// ============================================================================
// INTERNAL
// ============================================================================

func (e *Evaluator) isSelfTarget(capability string, target Scope) bool {
	if target.Kind != KindItem || target.Module != ModuleUsers {
		return false
	}
	if target.ItemID != e.snapshot.UserID {
		return false
	}
	return capability == CapEditUsers || capability == CapViewItem || capability == CapEditItem
}

func (e *Evaluator) roleTierActive() bool {
	return true
}

func (e *Evaluator) groupTierActive() bool {
	return e.level >= LevelRoleGroup
}

func (e *Evaluator) userTierActive() bool {
	return e.level >= LevelRoleGroupModule
}

// roleScopeKinds returns the grant scope kinds the role tier contributes at
// the configured level. Item grants on roles never participate.
func (e *Evaluator) roleScopeKinds() []ScopeKind {
	if e.level == LevelRoleGroup {
		return []ScopeKind{KindGlobal}
	}
	return []ScopeKind{KindGlobal, KindModule}
}

func (e *Evaluator) groupScopeKinds() []ScopeKind {
	if e.level >= LevelRoleGroupModule {
		return []ScopeKind{KindModule, KindItem}
	}
	return []ScopeKind{KindModule}
}

func (e *Evaluator) userScopeKinds() []ScopeKind {
	return []ScopeKind{KindItem}
}

func (e *Evaluator) tierAllowsKind(kinds []ScopeKind, kind ScopeKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (e *Evaluator) anyGrantMatches(grants []Grant, kinds []ScopeKind, capability string, target Scope) bool {
	for _, g := range grants {
		if !e.tierAllowsKind(kinds, ScopeKind(g.ScopeKind)) {
			continue
		}
		if !e.registry.Implies(g.Capability, capability) {
			continue
		}
		if g.Scope().Covers(target) {
			return true
		}
	}
	return false
}

func (e *Evaluator) anyItemGrantInModule(grants []Grant, module string) bool {
	for _, g := range grants {
		if ScopeKind(g.ScopeKind) != KindItem || g.Module != module {
			continue
		}
		if e.registry.Implies(g.Capability, CapViewItem) {
			return true
		}
	}
	return false
}
