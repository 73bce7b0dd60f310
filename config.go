package permkit

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the permission service.
type Config struct {
	// Level selects the evaluated grant tiers: "role", "roleGroup" or
	// "roleGroupModule".
	Level PermissionLevel `envconfig:"PERMKIT_LEVEL" default:"role"`

	// DatabaseURL is the Postgres connection string used when the caller
	// does not inject its own dbkit instance.
	DatabaseURL string `envconfig:"PERMKIT_DATABASE_URL"`

	// AuditEnabled controls whether grant and membership mutations are
	// recorded to the audit log.
	AuditEnabled bool `envconfig:"PERMKIT_AUDIT" default:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if !cfg.Level.Valid() {
		return nil, NewError(ErrInvalidLevel, "permission level out of range")
	}
	return &cfg, nil
}
