// Package service holds the credential rules: account creation, superuser
// creation and password authentication.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,AuditPublisher

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"smartgate/internal/identity/models"
	"smartgate/internal/platform/metrics"
	"smartgate/pkg/attrs"
	id "smartgate/pkg/domain"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*models.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages user accounts and credential checks.
type Service struct {
	users          UserStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	bcryptCost     int
	dummyHash      []byte
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

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// New constructs a Service.
func New(users UserStore, opts ...Option) *Service {
	s := &Service{
		users:      users,
		logger:     slog.Default(),
		tracer:     otel.Tracer("smartgate/identity"),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Compared against for unknown emails so response time does not reveal
	// whether an account exists.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("smartgate-dummy-password"), s.bcryptCost)
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	var userID id.UserID
	if raw := attrs.ExtractString(attributes, "user_id"); raw != "" {
		userID, _ = id.ParseUserID(raw)
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:     userID,
		Action:     string(event),
		Email:      attrs.ExtractString(attributes, "email"),
		RequestID:  requestcontext.RequestID(ctx),
		IP:         requestcontext.ClientIP(ctx),
		Reason:     attrs.ExtractString(attributes, "reason"),
		Attributes: attrs.ToMap(attributes, "user_id", "email", "reason", "request_id"),
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(event), "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "identity."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) incrementUsersCreated() {
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
}

func (s *Service) incrementLogins(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementLogins(outcome)
	}
}
