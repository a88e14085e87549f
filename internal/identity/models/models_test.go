package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "smartgate/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" vigilante ")
	require.NoError(t, err)
	assert.Equal(t, RoleGuard, r)

	_, err = ParseRole("SUPERVISOR")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Administrador", RoleAdmin.Label())
	assert.Equal(t, "Residente", RoleResident.Label())
}

func TestUserHelpers(t *testing.T) {
	u := &User{Email: "ana@condominio.pe"}
	assert.Equal(t, "ana@condominio.pe", u.FullName())
	assert.False(t, u.HasUsablePassword())

	u.FirstName, u.LastName = "Ana", "Quispe"
	u.PasswordHash = "$2a$10$abc"
	assert.Equal(t, "Ana Quispe", u.FullName())
	assert.True(t, u.HasUsablePassword())

	u.PasswordHash = UnusablePasswordPrefix + "xyz"
	assert.False(t, u.HasUsablePassword())
}
