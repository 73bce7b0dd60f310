package permkit

import (
	"fmt"
	"sync"
)

// Well-known capability names. These match the capability identifiers used by
// the admin backend; custom capabilities can be added through the Registry.
const (
	CapEditSettings       = "edit-settings"
	CapAccessMediaLibrary = "access-media-library"
	CapEditMediaLibrary   = "edit-media-library"
	CapEditUsers          = "edit-users"
	CapEditUserRoles      = "edit-user-roles"
	CapEditUserGroups     = "edit-user-groups"
	CapManageModules      = "manage-modules"
	CapViewModule         = "view-module"
	CapEditModule         = "edit-module"
	CapManageModule       = "manage-module"
	CapViewItem           = "view-item"
	CapEditItem           = "edit-item"
)

// ModuleUsers is the reserved module name for user profiles. Item targets in
// this module get the self-access exception during evaluation.
const ModuleUsers = "users"

// Registry holds all capability definitions and the subsumption relation
// between them. It is created at startup and should be treated as immutable
// after initialization.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]*CapabilityDefinition
}

// CapabilityDefinition describes a single capability: the scope kind it
// targets, the minimum permission level at which it is evaluated at all, and
// the capabilities it subsumes.
type CapabilityDefinition struct {
	name     string
	kind     ScopeKind
	minLevel PermissionLevel
	subsumes []string
	registry *Registry
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		caps: make(map[string]*CapabilityDefinition),
	}
}

// DefaultRegistry returns a registry preloaded with the standard CMS
// capability set and subsumption table:
//
//	manage-modules      > manage-module (every module)
//	manage-module       > edit-module > view-module
//	edit-module         > edit-item
//	view-module         > view-item
//	edit-item           > view-item
//	edit-media-library  > access-media-library
//
// Group management (edit-user-groups) only exists from level roleGroup up.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Define(CapEditSettings).Global().
		Define(CapAccessMediaLibrary).Global().
		Define(CapEditMediaLibrary).Global().Subsumes(CapAccessMediaLibrary).
		Define(CapEditUsers).Global().
		Define(CapEditUserRoles).Global().
		Define(CapEditUserGroups).Global().MinLevel(LevelRoleGroup).
		Define(CapManageModules).Global().Subsumes(CapManageModule).
		Define(CapManageModule).ModuleScoped().Subsumes(CapEditModule, CapViewModule).
		Define(CapEditModule).ModuleScoped().Subsumes(CapViewModule, CapEditItem).
		Define(CapViewModule).ModuleScoped().Subsumes(CapViewItem).
		Define(CapEditItem).ItemScoped().Subsumes(CapViewItem).
		Define(CapViewItem).ItemScoped()
	return r
}

// Define starts defining a new capability.
// Returns a CapabilityDefinition builder for fluent configuration.
//
// Example:
//
//	registry.Define("publish-module").ModuleScoped().Subsumes("edit-module")
func (r *Registry) Define(name string) *CapabilityDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	def := &CapabilityDefinition{
		name:     name,
		kind:     KindGlobal,
		minLevel: LevelRole,
		registry: r,
	}
	r.caps[name] = def
	return def
}

// Get returns the definition for a capability, or nil if unknown.
func (r *Registry) Get(name string) *CapabilityDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps[name]
}

// Capabilities returns all defined capability names.
func (r *Registry) Capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	return names
}

// Validate checks that a capability is defined and that the given scope kind
// is valid for it. A global capability can only be granted globally, a
// module capability at module scope, an item capability at item scope.
func (r *Registry) Validate(name string, kind ScopeKind) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.caps[name]
	if !exists {
		return fmt.Errorf("%w: capability %q not defined", ErrUnknownCapability, name)
	}
	if def.kind != kind {
		return fmt.Errorf("%w: capability %q is %s-scoped, got %s grant",
			ErrScopeMismatch, name, def.kind, kind)
	}
	return nil
}

// Implies reports whether a granted capability satisfies a required one,
// either directly or through the transitive closure of the subsumption
// table. Unknown capabilities never imply anything (fail closed).
func (r *Registry) Implies(granted, required string) bool {
	if granted == required {
		return r.Get(granted) != nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{granted: true}
	queue := []string{granted}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		def, exists := r.caps[name]
		if !exists {
			continue
		}
		for _, sub := range def.subsumes {
			if sub == required {
				return true
			}
			if !seen[sub] {
				seen[sub] = true
				queue = append(queue, sub)
			}
		}
	}
	return false
}

// Global marks the capability as globally scoped.
func (d *CapabilityDefinition) Global() *CapabilityDefinition {
	d.kind = KindGlobal
	return d
}

// ModuleScoped marks the capability as scoped to a content module.
func (d *CapabilityDefinition) ModuleScoped() *CapabilityDefinition {
	d.kind = KindModule
	return d
}

// ItemScoped marks the capability as scoped to a single content item.
func (d *CapabilityDefinition) ItemScoped() *CapabilityDefinition {
	d.kind = KindItem
	return d
}

// Subsumes declares that holding this capability also satisfies checks for
// the listed capabilities, subject to scope coverage.
func (d *CapabilityDefinition) Subsumes(names ...string) *CapabilityDefinition {
	d.subsumes = append(d.subsumes, names...)
	return d
}

// MinLevel sets the minimum configured permission level at which this
// capability is evaluated. Below that level every check for it is denied.
func (d *CapabilityDefinition) MinLevel(level PermissionLevel) *CapabilityDefinition {
	d.minLevel = level
	return d
}

// Define continues defining capabilities on the registry (fluent API).
func (d *CapabilityDefinition) Define(name string) *CapabilityDefinition {
	return d.registry.Define(name)
}

// Name returns the capability name.
func (d *CapabilityDefinition) Name() string {
	return d.name
}

// Kind returns the scope kind this capability targets.
func (d *CapabilityDefinition) Kind() ScopeKind {
	return d.kind
}

// GetSubsumes returns the capabilities directly subsumed by this one.
func (d *CapabilityDefinition) GetSubsumes() []string {
	return d.subsumes
}
