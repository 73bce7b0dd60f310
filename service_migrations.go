package permkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for permkit.
// Use db.Migrate(ctx, service.Migrations()) to run them.
func (s *Service) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "permkit-001",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY,
                    name TEXT NOT NULL,
                    position INT NOT NULL DEFAULT 0,
                    published BOOLEAN NOT NULL DEFAULT FALSE,
                    in_everyone_group BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "permkit-002",
			Description: "Create groups table with everyone singleton guard",
			SQL: `
                CREATE TABLE IF NOT EXISTS groups (
                    id UUID PRIMARY KEY,
                    name TEXT NOT NULL,
                    published BOOLEAN NOT NULL DEFAULT FALSE,
                    is_everyone BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS groups_everyone_singleton
                    ON groups (is_everyone) WHERE is_everyone`,
		},
		{
			ID:          "permkit-003",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY,
                    name TEXT NOT NULL,
                    email TEXT NOT NULL,
                    role_id UUID NOT NULL REFERENCES roles (id),
                    published BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "permkit-004",
			Description: "Create group_users membership table",
			SQL: `
                CREATE TABLE IF NOT EXISTS group_users (
                    group_id UUID NOT NULL REFERENCES groups (id),
                    user_id UUID NOT NULL REFERENCES users (id),
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (group_id, user_id)
                )`,
		},
		{
			ID:          "permkit-005",
			Description: "Create grants table with idempotency constraint",
			SQL: `
                CREATE TABLE IF NOT EXISTS grants (
                    id UUID PRIMARY KEY,
                    holder_type TEXT NOT NULL,
                    holder_id UUID NOT NULL,
                    capability TEXT NOT NULL,
                    scope_kind TEXT NOT NULL,
                    module TEXT NOT NULL DEFAULT '',
                    item_id TEXT NOT NULL DEFAULT '',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (holder_type, holder_id, capability, scope_kind, module, item_id)
                );
                CREATE INDEX IF NOT EXISTS grants_holder_idx
                    ON grants (holder_type, holder_id)`,
		},
		{
			ID:          "permkit-006",
			Description: "Create permission_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permission_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    holder_type TEXT NOT NULL,
                    holder_id TEXT NOT NULL,
                    capability TEXT,
                    scope_kind TEXT,
                    module TEXT,
                    item_id TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                )`,
		},
	}
}
