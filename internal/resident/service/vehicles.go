package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smartgate/internal/resident/models"
	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/requestcontext"
)

const msgPlateTaken = "Ya existe un vehículo con esta placa."

// RegisterVehicle registers a vehicle owned by the caller's profile. The
// owner is never taken from input. New vehicles start outside.
func (s *Service) RegisterVehicle(ctx context.Context, userID id.UserID, in models.VehicleRegistration) (vehicle *models.Vehicle, err error) {
	ctx, span := s.startSpan(ctx, "RegisterVehicle")
	defer func() { endSpan(span, err) }()

	plate := models.NormalizePlate(in.Plate)
	switch {
	case plate == "":
		return nil, dErrors.NewField(dErrors.CodeValidation, "placa", msgRequired)
	case len([]rune(plate)) > models.MaxPlateLength:
		return nil, dErrors.NewField(dErrors.CodeValidation, "placa",
			fmt.Sprintf("La placa no puede tener más de %d caracteres.", models.MaxPlateLength))
	}
	vehicle = &models.Vehicle{
		Plate:    plate,
		Make:     strings.TrimSpace(in.Make),
		Model:    strings.TrimSpace(in.Model),
		Color:    strings.TrimSpace(in.Color),
		Image:    strings.TrimSpace(in.Image),
		Location: models.LocationOutside,
	}
	for _, f := range [...]struct{ name, value string }{
		{"marca", vehicle.Make},
		{"modelo", vehicle.Model},
		{"color", vehicle.Color},
	} {
		if f.value == "" {
			return nil, dErrors.NewField(dErrors.CodeValidation, f.name, msgRequired)
		}
	}

	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	vehicle.ProfileID = profile.ID
	vehicle.RegisteredAt = requestcontext.Now(ctx)
	if err = s.vehicles.Create(ctx, vehicle); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.NewField(dErrors.CodeConflict, "placa", msgPlateTaken)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register vehicle")
	}

	if s.metrics != nil {
		s.metrics.IncrementVehiclesRegistered()
	}
	s.logAudit(ctx, audit.EventVehicleRegistered,
		"user_id", userID.String(),
		"vehicle_id", vehicle.ID.String(),
		"placa", vehicle.Plate,
	)
	return vehicle, nil
}

// ListVehicles returns only the vehicles of the caller's own profile.
func (s *Service) ListVehicles(ctx context.Context, userID id.UserID) ([]*models.Vehicle, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	vehicles, err := s.vehicles.ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vehicles")
	}
	return vehicles, nil
}

// CountVehicles returns how many vehicles are registered across all residents.
func (s *Service) CountVehicles(ctx context.Context) (int, error) {
	n, err := s.vehicles.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count vehicles")
	}
	return n, nil
}
