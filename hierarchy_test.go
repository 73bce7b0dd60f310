package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHierarchyCanActOn tests the rank ordering rule
func TestHierarchyCanActOn(t *testing.T) {
	var guard HierarchyGuard

	// Lower position is more senior
	assert.True(t, guard.CanActOn(0, 1))
	assert.True(t, guard.CanActOn(1, 5))

	// Equal ranks may act on each other
	assert.True(t, guard.CanActOn(2, 2))

	// Juniors cannot act on seniors
	assert.False(t, guard.CanActOn(1, 0))
	assert.False(t, guard.CanActOn(5, 1))
}

// TestHierarchyAuthorize tests the hard denial path
func TestHierarchyAuthorize(t *testing.T) {
	var guard HierarchyGuard

	assert.NoError(t, guard.Authorize(0, 1))
	assert.NoError(t, guard.Authorize(2, 2))

	err := guard.Authorize(3, 1)
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
}

// TestHierarchyValidateAssignment tests the validation path for assignments
func TestHierarchyValidateAssignment(t *testing.T) {
	var guard HierarchyGuard

	// Assigning at or below own rank is fine
	assert.Nil(t, guard.ValidateAssignment(1, 1))
	assert.Nil(t, guard.ValidateAssignment(1, 4))

	// Assigning a more senior role fails as invalid input, not as forbidden
	fieldErrs := guard.ValidateAssignment(2, 0)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, FieldRoleID, fieldErrs[0].Field)
	assert.Equal(t, MsgInvalidRoleSelected, fieldErrs[0].Message)
	assert.False(t, IsForbidden(fieldErrs))
}
