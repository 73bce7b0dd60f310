package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewService tests the service constructor and defaults
func TestNewService(t *testing.T) {
	registry := DefaultRegistry()

	service := NewService(registry, nil)
	require.NotNil(t, service)
	assert.Equal(t, registry, service.Registry())
	assert.Equal(t, LevelRole, service.Level())
	assert.True(t, service.auditEnabled)
	assert.NotNil(t, service.monitor)
}

// TestNewServiceOptions tests the functional options
func TestNewServiceOptions(t *testing.T) {
	service := NewService(DefaultRegistry(), nil,
		WithLevel(LevelRoleGroupModule),
		WithAudit(false),
	)

	assert.Equal(t, LevelRoleGroupModule, service.Level())
	assert.False(t, service.auditEnabled)
}

// TestNewServiceFromConfig tests construction from environment config
func TestNewServiceFromConfig(t *testing.T) {
	cfg := &Config{Level: LevelRoleGroup, AuditEnabled: false}
	service := NewServiceFromConfig(DefaultRegistry(), nil, cfg)

	assert.Equal(t, LevelRoleGroup, service.Level())
	assert.False(t, service.auditEnabled)
}

// TestServiceMigrations tests the migration set shape
func TestServiceMigrations(t *testing.T) {
	service := NewService(DefaultRegistry(), nil)
	migrations := service.Migrations()

	require.Len(t, migrations, 6)
	seen := map[string]bool{}
	for _, m := range migrations {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.SQL)
		assert.False(t, seen[m.ID], "duplicate migration ID %s", m.ID)
		seen[m.ID] = true
	}
}
