// Package permkit provides a content-management permission system with
// role, group, and per-user access control.
//
// PermKit models the access rules of a typical CMS admin area: every user
// holds exactly one role, may belong to any number of groups, and can carry
// individual grants on single content items. How much of that machinery is
// consulted is controlled by a configurable permission level.
//
// # Core Concepts
//
// Capability: A named action like "edit-module" or "view-item". Capabilities
// form a subsumption graph: holding "manage-module" on a module implies
// "edit-module" and "view-module" on it, and module-wide capabilities imply
// their item-level counterparts on every item in the module.
//
// Scope: The target of a grant or a check. Global (site-wide actions like
// "edit-settings"), module ("posts"), or item ("posts", "post_123").
//
// Holder: The owner of a grant. Roles, groups, and users can all hold
// grants; which tier is consulted depends on the permission level.
//
// Permission level: Three modes of increasing granularity.
//
//   - LevelRole: only role grants are consulted.
//   - LevelRoleGroup: role grants answer global checks, group grants answer
//     module checks.
//   - LevelRoleGroupModule: roles answer global and module checks, groups
//     answer module and item checks, and users can hold item grants.
//
// # Key Features
//
//   - Capability registry with transitive subsumption
//   - Single role per user with a seniority hierarchy (lower position wins)
//   - Automatic "Everyone" group membership driven by role flags
//   - Idempotent grant and revoke operations
//   - Self-access exception: users can always reach their own account
//   - Detailed audit logging: who, what, when, request metadata
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Create the service with the built-in capability registry
//	service := permkit.NewService(permkit.DefaultRegistry(), db,
//	    permkit.WithLevel(permkit.LevelRoleGroupModule),
//	)
//
//	// 2. Run migrations
//	db.Migrate(ctx, service.Migrations())
//
//	// 3. Grant capabilities
//	service.Grant(ctx, permkit.RoleHolder(adminRoleID),
//	    permkit.ModuleScope("posts"), permkit.CapManageModule)
//	service.Grant(ctx, permkit.UserHolder(userID),
//	    permkit.ItemScope("posts", postID), permkit.CapEditItem)
//
//	// 4. Check permissions (service level)
//	if service.CanPerformOnModule(ctx, userID, permkit.CapEditModule, "posts") {
//	    // User can edit posts
//	}
//
//	// 5. Or load an evaluator once and check many times
//	evaluator, _ := service.GetActorEvaluator(ctx, userID)
//	if evaluator.CanItem(permkit.CapViewItem, "posts", postID) {
//	    // Item is visible to the user
//	}
//
// # Middleware Usage
//
//	mw := permkit.NewMiddleware(service)
//
//	router.With(mw.RequireCapability(permkit.CapEditModule, permkit.ModuleTarget("posts"))).
//	    Post("/admin/posts", createPostHandler)
//
//	router.With(mw.RequireCapability(permkit.CapEditItem, permkit.ItemTargetFromParam("posts", "id"))).
//	    Put("/admin/posts/{id}", updatePostHandler)
//
// # Role Hierarchy
//
// Roles carry a position; a smaller position means a more senior role. An
// actor can only manage users and roles at their own position or below, and
// cannot assign a role more senior than their own. Hierarchy violations on
// assignment surface as field validation errors rather than authorization
// failures.
//
// # Everyone Group
//
// One group per installation is flagged as the "Everyone" group. Membership
// is derived from each role's InEveryoneGroup flag and kept in sync inside
// the same transaction as the triggering role or user mutation. The group
// itself cannot be renamed, deleted, or have its membership edited directly.
//
// # Audit Log
//
// All grant changes are automatically logged with:
//   - Actor (who made the change)
//   - Holder, capability, and scope
//   - Action (granted, revoked, member_added, member_removed, everyone_synced)
//   - Timestamp
//   - Request metadata (IP, user agent, request ID)
package permkit
