// Package domain holds the typed identifiers shared across SmartGate modules.
//
// Identifiers are database-assigned positive integers. Distinct named types
// keep a vehicle id from being passed where a user id is expected.
package domain

import (
	"strconv"
	"strings"

	dErrors "smartgate/pkg/domain-errors"
)

type (
	UserID    int64
	ProfileID int64
	VehicleID int64
)

func (id UserID) IsNil() bool       { return id <= 0 }
func (id UserID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id ProfileID) IsNil() bool    { return id <= 0 }
func (id ProfileID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id VehicleID) IsNil() bool    { return id <= 0 }
func (id VehicleID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID parses a decimal user id from an untrusted string.
func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive(s, "user ID")
	return UserID(v), err
}

// ParseProfileID parses a decimal profile id from an untrusted string.
func ParseProfileID(s string) (ProfileID, error) {
	v, err := parsePositive(s, "profile ID")
	return ProfileID(v), err
}

// ParseVehicleID parses a decimal vehicle id from an untrusted string.
func ParseVehicleID(s string) (VehicleID, error) {
	v, err := parsePositive(s, "vehicle ID")
	return VehicleID(v), err
}

func parsePositive(s, label string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" required")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return v, nil
}
