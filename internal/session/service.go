package session

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	identity "smartgate/internal/identity/models"
	"smartgate/internal/platform/metrics"
	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/middleware/auth"
	"smartgate/pkg/platform/middleware/device"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/requestcontext"
)

// Store keeps session records server-side. Find returns sentinel.ErrNotFound
// for unknown or expired sessions.
type Store interface {
	Save(ctx context.Context, sess *Session) error
	Find(ctx context.Context, sessionID string) (*Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues, resolves and revokes sessions.
type Service struct {
	store          Store
	signer         *TokenSigner
	ttl            time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store Store, signer *TokenSigner, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:  store,
		signer: signer,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue starts a session for user and returns the signed cookie token.
func (s *Service) Issue(ctx context.Context, user *identity.User) (string, *Session, error) {
	now := requestcontext.Now(ctx)
	sess := &Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Role:        string(user.Role),
		DeviceLabel: device.GetDeviceLabel(ctx),
		ClientIP:    requestcontext.ClientIP(ctx),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		LastSeenAt:  now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}
	token, err := s.signer.Sign(sess, now)
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	s.logger.InfoContext(ctx, "session issued",
		"user_id", user.ID.String(),
		"session_id", sess.ID,
		"device", sess.DeviceLabel,
	)
	return token, sess, nil
}

// Resolve validates token and checks its session is still live.
func (s *Service) Resolve(ctx context.Context, token string) (*auth.SessionClaims, error) {
	now := requestcontext.Now(ctx)
	claims, err := s.signer.Validate(token, now)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session revoked or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil || userID != sess.UserID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session does not match token")
	}
	if err := s.store.Touch(ctx, sess.ID, now); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to touch session", "session_id", sess.ID, "error", err)
	}
	return &auth.SessionClaims{UserID: sess.UserID, SessionID: sess.ID, Role: sess.Role}, nil
}

// Revoke deletes the session. Revoking an unknown session is not an error.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}
	if s.metrics != nil {
		s.metrics.IncrementSessionsRevoked()
	}
	userID := requestcontext.UserID(ctx)
	s.logger.InfoContext(ctx, string(audit.EventSessionRevoked),
		"user_id", userID.String(), "session_id", sessionID, "log_type", "audit")
	if s.auditPublisher != nil {
		err := s.auditPublisher.Emit(ctx, audit.Event{
			UserID:     userID,
			Action:     string(audit.EventSessionRevoked),
			RequestID:  requestcontext.RequestID(ctx),
			IP:         requestcontext.ClientIP(ctx),
			Attributes: map[string]string{"session_id": sessionID},
			Timestamp:  requestcontext.Now(ctx),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(audit.EventSessionRevoked), "error", err)
		}
	}
	return nil
}
