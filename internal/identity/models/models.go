package models

import (
	"strings"
	"time"

	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
)

// Role is the closed set of account kinds. Values are the stored codes.
type Role string

const (
	RoleAdmin    Role = "ADMINISTRADOR"
	RoleGuard    Role = "VIGILANTE"
	RoleResident Role = "RESIDENTE"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleGuard, RoleResident}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleGuard, RoleResident:
		return true
	}
	return false
}

// Label is the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleGuard:
		return "Vigilante"
	case RoleResident:
		return "Residente"
	}
	return string(r)
}

// ParseRole accepts a stored role code, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.NewField(dErrors.CodeValidation, "rol", "Rol inválido.")
	}
	return r, nil
}

// UnusablePasswordPrefix marks a hash that can never match, e.g. for accounts
// created without a password.
const UnusablePasswordPrefix = "!"

// User is an account that can log in.
type User struct {
	ID           id.UserID
	Email        string
	FirstName    string
	LastName     string
	Role         Role
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	IsGoogleUser bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, UnusablePasswordPrefix)
}
