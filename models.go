package permkit

import (
	"time"

	"github.com/uptrace/bun"
)

// ScopeKind is the breadth of a grant: global, a whole module, or one item.
type ScopeKind string

const (
	KindGlobal ScopeKind = "global"
	KindModule ScopeKind = "module"
	KindItem   ScopeKind = "item"
)

// String implements fmt.Stringer.
func (k ScopeKind) String() string {
	return string(k)
}

// Scope identifies the target of a grant or a permission check.
type Scope struct {
	Kind   ScopeKind
	Module string // set for KindModule and KindItem
	ItemID string // set for KindItem
}

// GlobalScope returns the global scope.
func GlobalScope() Scope {
	return Scope{Kind: KindGlobal}
}

// ModuleScope returns a scope covering one content module.
func ModuleScope(module string) Scope {
	return Scope{Kind: KindModule, Module: module}
}

// ItemScope returns a scope covering a single item of a module.
func ItemScope(module, itemID string) Scope {
	return Scope{Kind: KindItem, Module: module, ItemID: itemID}
}

// Covers reports whether a grant at this scope reaches the target scope.
// Global covers everything; a module covers itself and its items; an item
// covers only itself.
func (s Scope) Covers(target Scope) bool {
	switch s.Kind {
	case KindGlobal:
		return true
	case KindModule:
		return s.Module == target.Module &&
			(target.Kind == KindModule || target.Kind == KindItem)
	case KindItem:
		return target.Kind == KindItem && s.Module == target.Module && s.ItemID == target.ItemID
	}
	return false
}

// String returns a string representation of the scope.
func (s Scope) String() string {
	switch s.Kind {
	case KindModule:
		return string(KindModule) + ":" + s.Module
	case KindItem:
		return string(KindItem) + ":" + s.Module + ":" + s.ItemID
	}
	return string(KindGlobal)
}

// HolderType identifies what kind of entity holds a grant.
type HolderType string

const (
	HolderRole  HolderType = "role"
	HolderGroup HolderType = "group"
	HolderUser  HolderType = "user"
)

// Holder is a grant holder reference: a role, a group or a user.
type Holder struct {
	Type HolderType
	ID   string
}

// RoleHolder returns a Holder pointing at a role.
func RoleHolder(id string) Holder { return Holder{Type: HolderRole, ID: id} }

// GroupHolder returns a Holder pointing at a group.
func GroupHolder(id string) Holder { return Holder{Type: HolderGroup, ID: id} }

// UserHolder returns a Holder pointing at a user.
func UserHolder(id string) Holder { return Holder{Type: HolderUser, ID: id} }

// String returns a string representation of the holder.
func (h Holder) String() string {
	return string(h.Type) + ":" + h.ID
}

// Role is a named, ordered privilege tier. Position is the rank: a lower
// value is more senior. InEveryoneGroup auto-enrolls the role's users into
// the everyone group.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:ro"`

	ID              string    `bun:"id,pk,type:uuid"`
	Name            string    `bun:"name,notnull"`
	Position        int       `bun:"position,notnull,default:0"`
	Published       bool      `bun:"published,notnull,default:false"`
	InEveryoneGroup bool      `bun:"in_everyone_group,notnull,default:false"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Group is a named collection of users carrying module and item grants.
// The everyone group is system-managed: IsEveryone is true for it and direct
// edits and membership changes are rejected.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID         string    `bun:"id,pk,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Published  bool      `bun:"published,notnull,default:false"`
	IsEveryone bool      `bun:"is_everyone,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// GroupMembership links a user to a group (many-to-many).
type GroupMembership struct {
	bun.BaseModel `bun:"table:group_users,alias:gu"`

	GroupID   string    `bun:"group_id,pk,type:uuid"`
	UserID    string    `bun:"user_id,pk,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// User is an admin backend user. Every user has exactly one role; group
// memberships and per-user grants are optional.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	RoleID    string    `bun:"role_id,notnull,type:uuid"`
	Published bool      `bun:"published,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Grant is a single (holder, scope, capability) triple. Grants form a set:
// granting twice has no additional effect and revoking an absent grant is a
// no-op.
type Grant struct {
	bun.BaseModel `bun:"table:grants,alias:gr"`

	ID         string    `bun:"id,pk,type:uuid"`
	HolderType string    `bun:"holder_type,notnull"`
	HolderID   string    `bun:"holder_id,notnull,type:uuid"`
	Capability string    `bun:"capability,notnull"`
	ScopeKind  string    `bun:"scope_kind,notnull"`
	Module     string    `bun:"module,notnull,default:''"`
	ItemID     string    `bun:"item_id,notnull,default:''"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Holder returns the holder reference of the grant.
func (g Grant) Holder() Holder {
	return Holder{Type: HolderType(g.HolderType), ID: g.HolderID}
}

// Scope returns the scope of the grant.
func (g Grant) Scope() Scope {
	return Scope{Kind: ScopeKind(g.ScopeKind), Module: g.Module, ItemID: g.ItemID}
}

// GroupGrants carries one group's grants in the actor snapshot. Order
// follows membership creation order for deterministic evaluation.
type GroupGrants struct {
	GroupID string
	Grants  []Grant
}

// ActorSnapshot is the consistent per-call view of an actor's effective
// permission sources: role with its grants, published group memberships with
// their grants, and the actor's own grants. The evaluator is a pure function
// over this snapshot.
type ActorSnapshot struct {
	UserID     string
	Role       *Role // nil when the user has no resolvable role
	RoleGrants []Grant
	Groups     []GroupGrants
	OwnGrants  []Grant
}

// RoleRank returns the actor's role rank, or a most-junior sentinel when
// the actor has no role.
func (s *ActorSnapshot) RoleRank() int {
	if s.Role == nil {
		return int(^uint(0) >> 1)
	}
	return s.Role.Position
}

// HasRole reports whether the actor has a resolvable role.
func (s *ActorSnapshot) HasRole() bool {
	return s.Role != nil
}

// PermissionAuditLog records grant, revoke and membership changes for
// compliance and debugging.
type PermissionAuditLog struct {
	bun.BaseModel `bun:"table:permission_audit_log,alias:pal"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id,notnull"`

	// What action was performed
	Action string `bun:"action,notnull"`

	// Target of the action
	HolderType string `bun:"holder_type,notnull"`
	HolderID   string `bun:"holder_id,notnull"`
	Capability string `bun:"capability"`
	ScopeKind  string `bun:"scope_kind"`
	Module     string `bun:"module"`
	ItemID     string `bun:"item_id"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionGranted       AuditAction = "granted"
	AuditActionRevoked       AuditAction = "revoked"
	AuditActionMemberAdded   AuditAction = "member_added"
	AuditActionMemberRemoved AuditAction = "member_removed"
	AuditActionEveryoneSync  AuditAction = "everyone_synced"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID    string
	Action     AuditAction
	Holder     Holder
	Capability string
	Scope      Scope
	IPAddress  string
	UserAgent  string
	RequestID  string
}

// ToModel converts an AuditEntry to a PermissionAuditLog model.
func (e *AuditEntry) ToModel() *PermissionAuditLog {
	return &PermissionAuditLog{
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		HolderType: string(e.Holder.Type),
		HolderID:   e.Holder.ID,
		Capability: e.Capability,
		ScopeKind:  string(e.Scope.Kind),
		Module:     e.Scope.Module,
		ItemID:     e.Scope.ItemID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		RequestID:  e.RequestID,
		Timestamp:  time.Now(),
	}
}
