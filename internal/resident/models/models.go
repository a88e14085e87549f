package models

import (
	"strings"
	"time"

	id "smartgate/pkg/domain"
)

// LocationStatus says whether a vehicle is inside the compound.
type LocationStatus string

const (
	LocationInside  LocationStatus = "DENTRO"
	LocationOutside LocationStatus = "FUERA"
)

func (l LocationStatus) Label() string {
	if l == LocationInside {
		return "Dentro"
	}
	return "Fuera"
}

// Profile holds resident-only data. One per user, created lazily.
type Profile struct {
	ID         id.ProfileID
	UserID     id.UserID
	NationalID string
	Address    string
	Phone      string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsComplete reports whether national ID, address and phone are all filled in.
func (p *Profile) IsComplete() bool {
	return strings.TrimSpace(p.NationalID) != "" &&
		strings.TrimSpace(p.Address) != "" &&
		strings.TrimSpace(p.Phone) != ""
}

// Vehicle is registered by a resident. Plates are unique system-wide.
type Vehicle struct {
	ID           id.VehicleID
	ProfileID    id.ProfileID
	Plate        string
	Make         string
	Model        string
	Color        string
	Image        string
	Location     LocationStatus
	RegisteredAt time.Time
}

// MaxPlateLength matches the stored column width.
const MaxPlateLength = 10

// NormalizePlate upper-cases a plate and strips surrounding spaces.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// ProfileUpdate is the single write model for both profile completion and
// profile editing. It spans the user account and the resident profile.
type ProfileUpdate struct {
	FirstName  string
	LastName   string
	Email      string
	NationalID string
	Address    string
	Phone      string
}

// VehicleRegistration is the input for registering a vehicle.
type VehicleRegistration struct {
	Plate string
	Make  string
	Model string
	Color string
	Image string
}

// RosterEntry is one row of the guard's resident list.
type RosterEntry struct {
	Profile   *Profile
	FirstName string
	LastName  string
	Email     string
}
