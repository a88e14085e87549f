// Package service owns resident data: lazily created profiles, the unified
// profile update, vehicle registration and the guard roster.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ProfileStore,VehicleStore,Accounts,TxRunner,AuditPublisher

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	identity "smartgate/internal/identity/models"
	"smartgate/internal/platform/metrics"
	"smartgate/internal/resident/models"
	"smartgate/pkg/attrs"
	id "smartgate/pkg/domain"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/requestcontext"
)

type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	List(ctx context.Context) ([]*models.Profile, error)
}

type VehicleStore interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Vehicle, error)
	Count(ctx context.Context) (int, error)
}

// Accounts is the slice of the identity service residents depend on.
type Accounts interface {
	GetUser(ctx context.Context, userID id.UserID) (*identity.User, error)
	UpdateContact(ctx context.Context, userID id.UserID, firstName, lastName, email string) (*identity.User, error)
	FindUsers(ctx context.Context, ids []id.UserID) (map[id.UserID]*identity.User, error)
}

// TxRunner runs fn in one unit of work. Both tx.Postgres and tx.Memory satisfy it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates the profile and vehicle stores with the owning accounts.
type Service struct {
	profiles       ProfileStore
	vehicles       VehicleStore
	accounts       Accounts
	tx             TxRunner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

func New(profiles ProfileStore, vehicles VehicleStore, accounts Accounts, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		vehicles: vehicles,
		accounts: accounts,
		tx:       tx,
		logger:   slog.Default(),
		tracer:   otel.Tracer("smartgate/resident"),
	}
	for _, opt := range opts {
		opt(s)
	}
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
	userID := requestcontext.UserID(ctx)
	if raw := attrs.ExtractString(attributes, "user_id"); raw != "" {
		userID, _ = id.ParseUserID(raw)
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:     userID,
		Action:     string(event),
		RequestID:  requestcontext.RequestID(ctx),
		IP:         requestcontext.ClientIP(ctx),
		Attributes: attrs.ToMap(attributes, "user_id", "request_id"),
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(event), "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "resident."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
