package permkit

import "fmt"

// PermissionLevel selects which grant tiers the evaluator consults.
// It is configured process-wide.
type PermissionLevel int

const (
	// LevelRole consults only the actor's role grants. Group and per-user
	// grants are ignored entirely, and group management is disabled.
	LevelRole PermissionLevel = iota + 1

	// LevelRoleGroup consults role grants for global capabilities and group
	// grants for module-level capabilities. Item grants are not evaluated.
	LevelRoleGroup

	// LevelRoleGroupModule consults all three tiers: role (global + module),
	// group (module + item) and per-user (item) grants.
	LevelRoleGroupModule
)

const (
	levelRoleName            = "role"
	levelRoleGroupName       = "roleGroup"
	levelRoleGroupModuleName = "roleGroupModule"
)

// ParsePermissionLevel parses the textual level names used in configuration.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	switch s {
	case levelRoleName:
		return LevelRole, nil
	case levelRoleGroupName:
		return LevelRoleGroup, nil
	case levelRoleGroupModuleName:
		return LevelRoleGroupModule, nil
	}
	return 0, fmt.Errorf("%w: unknown permission level %q", ErrInvalidLevel, s)
}

// String returns the configuration name of the level.
func (l PermissionLevel) String() string {
	switch l {
	case LevelRole:
		return levelRoleName
	case LevelRoleGroup:
		return levelRoleGroupName
	case LevelRoleGroupModule:
		return levelRoleGroupModuleName
	}
	return fmt.Sprintf("PermissionLevel(%d)", int(l))
}

// Valid reports whether the level is one of the defined values.
func (l PermissionLevel) Valid() bool {
	return l >= LevelRole && l <= LevelRoleGroupModule
}

// Decode implements envconfig.Decoder so the level can be set directly from
// the environment.
func (l *PermissionLevel) Decode(value string) error {
	parsed, err := ParsePermissionLevel(value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
