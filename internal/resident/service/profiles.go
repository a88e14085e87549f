package service

import (
	"context"
	"errors"
	"strings"

	"smartgate/internal/resident/models"
	profilestore "smartgate/internal/resident/store/profile"
	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/sentinel"
	txcontext "smartgate/pkg/platform/tx"
	"smartgate/pkg/requestcontext"
)

const (
	msgRequired       = "Este campo es obligatorio."
	msgNationalIDUsed = "Ya existe un residente con este DNI."
)

// EnsureProfile returns the user's profile, creating an empty active one on
// first use. A concurrent creation for the same user is resolved by reloading.
func (s *Service) EnsureProfile(ctx context.Context, userID id.UserID) (profile *models.Profile, err error) {
	ctx, span := s.startSpan(ctx, "EnsureProfile")
	defer func() { endSpan(span, err) }()

	profile, err = s.profiles.FindByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	now := requestcontext.Now(ctx)
	profile = &models.Profile{UserID: userID, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err = s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.GetProfile(ctx, userID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}
	s.logger.InfoContext(ctx, "resident profile created", "user_id", userID.String(), "profile_id", profile.ID.String())
	return profile, nil
}

// GetProfile loads the user's profile without creating one.
func (s *Service) GetProfile(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return profile, nil
}

// UpdateProfile writes the account's names and email together with the
// profile's national ID, address and phone. Either both records change or
// neither does.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, in models.ProfileUpdate) (profile *models.Profile, err error) {
	ctx, span := s.startSpan(ctx, "UpdateProfile")
	defer func() { endSpan(span, err) }()

	in = trimUpdate(in)
	if err = validateUpdate(in); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		before, err := s.accounts.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		previous := *before
		if _, err := s.accounts.UpdateContact(ctx, userID, in.FirstName, in.LastName, in.Email); err != nil {
			return err
		}
		txcontext.OnRollback(ctx, func() {
			undoCtx := context.WithoutCancel(ctx)
			if _, err := s.accounts.UpdateContact(undoCtx, userID, previous.FirstName, previous.LastName, previous.Email); err != nil {
				s.logger.ErrorContext(undoCtx, "failed to restore account contact after profile update rollback",
					"user_id", userID.String(),
					"error", err,
				)
			}
		})

		current, err := s.EnsureProfile(ctx, userID)
		if err != nil {
			return err
		}
		current.NationalID = in.NationalID
		current.Address = in.Address
		current.Phone = in.Phone
		current.UpdatedAt = requestcontext.Now(ctx)
		if err := s.profiles.Update(ctx, current); err != nil {
			if errors.Is(err, sentinel.ErrConflict) && sentinel.ConstraintOf(err) == profilestore.ConstraintNationalID {
				return dErrors.NewField(dErrors.CodeConflict, "dni", msgNationalIDUsed)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
		}
		profile = current
		return nil
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			s.logger.ErrorContext(ctx, "profile update failed", "user_id", userID.String(), "error", err)
		}
		return nil, err
	}

	s.logAudit(ctx, audit.EventProfileUpdated,
		"user_id", userID.String(),
		"profile_id", profile.ID.String(),
	)
	return profile, nil
}

func trimUpdate(in models.ProfileUpdate) models.ProfileUpdate {
	return models.ProfileUpdate{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.TrimSpace(in.Email),
		NationalID: strings.TrimSpace(in.NationalID),
		Address:    strings.TrimSpace(in.Address),
		Phone:      strings.TrimSpace(in.Phone),
	}
}

func validateUpdate(in models.ProfileUpdate) error {
	required := []struct {
		field string
		value string
	}{
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"email", in.Email},
		{"dni", in.NationalID},
		{"direccion", in.Address},
		{"telefono", in.Phone},
	}
	for _, r := range required {
		if r.value == "" {
			return dErrors.NewField(dErrors.CodeValidation, r.field, msgRequired)
		}
	}
	return nil
}

// Roster lists every profile with its owner's name and email, in store order.
func (s *Service) Roster(ctx context.Context) (entries []models.RosterEntry, err error) {
	ctx, span := s.startSpan(ctx, "Roster")
	defer func() { endSpan(span, err) }()

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	ids := make([]id.UserID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	users, err := s.accounts.FindUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries = make([]models.RosterEntry, 0, len(profiles))
	for _, p := range profiles {
		entry := models.RosterEntry{Profile: p}
		if u, ok := users[p.UserID]; ok {
			entry.FirstName = u.FirstName
			entry.LastName = u.LastName
			entry.Email = u.Email
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
