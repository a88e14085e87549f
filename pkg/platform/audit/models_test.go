package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventUserCreated.Category())
	assert.Equal(t, CategorySecurity, EventLoginFailed.Category())
	assert.Equal(t, CategoryOperations, EventVehicleRegistered.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_else").Category())
}
