package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"smartgate/internal/identity/models"
	"smartgate/internal/platform/metrics"
	dErrors "smartgate/pkg/domain-errors"
	"smartgate/pkg/email"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/sentinel"
)

// Authenticate checks an email/password pair. A failed match is reported as
// ok=false with a nil error; only infrastructure failures return an error.
// Unknown email, wrong password, unusable password and inactive accounts all
// look the same to the caller.
func (s *Service) Authenticate(ctx context.Context, address, password string) (user *models.User, ok bool, err error) {
	ctx, span := s.startSpan(ctx, "Authenticate")
	defer func() { endSpan(span, err) }()

	normalized := email.Normalize(address)
	user, err = s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.loginFailed(ctx, normalized, "unknown_email")
		return nil, false, nil
	}

	if !user.HasUsablePassword() {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.loginFailed(ctx, normalized, "unusable_password", "user_id", user.ID.String())
		return nil, false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.loginFailed(ctx, normalized, "invalid_password", "user_id", user.ID.String())
		return nil, false, nil
	}
	if !user.IsActive {
		s.loginFailed(ctx, normalized, "inactive", "user_id", user.ID.String())
		return nil, false, nil
	}

	s.incrementLogins(metrics.LoginSucceeded)
	s.logAudit(ctx, audit.EventLoginSucceeded,
		"user_id", user.ID.String(),
		"email", user.Email,
		"role", string(user.Role),
	)
	return user, true, nil
}

func (s *Service) loginFailed(ctx context.Context, address, reason string, extra ...any) {
	s.incrementLogins(metrics.LoginFailed)
	s.logAudit(ctx, audit.EventLoginFailed, append([]any{"email", address, "reason", reason}, extra...)...)
}

// BootstrapAdmin ensures a superuser with the given email exists. It returns
// true when it created one. Empty credentials disable the bootstrap.
func (s *Service) BootstrapAdmin(ctx context.Context, address, password string) (bool, error) {
	if address == "" || password == "" {
		return false, nil
	}
	_, err := s.users.FindByEmail(ctx, email.Normalize(address))
	if err == nil {
		s.logger.InfoContext(ctx, "bootstrap admin already exists", "email", email.Normalize(address))
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up bootstrap admin")
	}
	first, last := email.DeriveNameFromEmail(email.Normalize(address))
	if _, err := s.CreateSuperuser(ctx, address, password, WithNames(first, last)); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "email", email.Normalize(address))
	return true, nil
}
