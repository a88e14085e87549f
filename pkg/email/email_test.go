package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Ana.Perez@Example.COM ", "Ana.Perez@example.com"},
		{"a@x.com", "a@x.com"},
		{"no-at-sign", "no-at-sign"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Normalize(tc.in), tc.in)
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	first, last := DeriveNameFromEmail("maria.lopez@condominio.pe")
	assert.Equal(t, "Maria", first)
	assert.Equal(t, "Lopez", last)

	first, last = DeriveNameFromEmail("admin@condominio.pe")
	assert.Equal(t, "Admin", first)
	assert.Equal(t, "", last)

	first, _ = DeriveNameFromEmail("..@x.com")
	assert.Equal(t, "Usuario", first)
}
