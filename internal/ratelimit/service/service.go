package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"smartgate/internal/platform/metrics"
	"smartgate/internal/ratelimit/models"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/requestcontext"
)

// Store holds lockout counters. Get returns sentinel.ErrNotFound for keys
// with no recorded failures. Update applies mutate atomically per key; mutate
// receives nil when nothing is stored and may run more than once.
type Store interface {
	Get(ctx context.Context, key string) (*models.Lockout, error)
	Update(ctx context.Context, key string, mutate func(*models.Lockout) *models.Lockout) (*models.Lockout, error)
	Delete(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config bounds failed logins per email and client IP.
type Config struct {
	MaxFailures  int
	Window       time.Duration
	LockDuration time.Duration
}

func DefaultConfig() Config {
	return Config{MaxFailures: 5, Window: 15 * time.Minute, LockDuration: 15 * time.Minute}
}

// Service decides whether a login attempt may proceed and counts failures.
type Service struct {
	store          Store
	cfg            Config
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

// WithConfig replaces the defaults. Non-positive fields keep their default.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxFailures > 0 {
			s.cfg.MaxFailures = cfg.MaxFailures
		}
		if cfg.Window > 0 {
			s.cfg.Window = cfg.Window
		}
		if cfg.LockDuration > 0 {
			s.cfg.LockDuration = cfg.LockDuration
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check reports whether email may attempt a login from clientIP.
func (s *Service) Check(ctx context.Context, email, clientIP string) (models.Decision, error) {
	record, err := s.load(ctx, models.LockoutKey(email, clientIP))
	if err != nil {
		return models.Decision{}, err
	}
	now := requestcontext.Now(ctx)
	if record == nil || !record.LockedAt(now) {
		return models.Decision{Allowed: true}, nil
	}
	return models.Decision{RetryAfter: record.LockedUntil.Sub(now)}, nil
}

// RecordFailure counts one failed login. Reaching the limit inside the
// window locks the pair and starts a fresh window.
func (s *Service) RecordFailure(ctx context.Context, email, clientIP string) (*models.Lockout, error) {
	key := models.LockoutKey(email, clientIP)
	now := requestcontext.Now(ctx)
	locked := false
	record, err := s.store.Update(ctx, key, func(current *models.Lockout) *models.Lockout {
		locked = false
		record := current
		if record == nil || record.WindowExpired(now, s.cfg.Window) {
			record = &models.Lockout{Key: key, WindowStart: now}
		}
		record.Failures++
		if record.Failures >= s.cfg.MaxFailures {
			until := now.Add(s.cfg.LockDuration)
			record.LockedUntil = &until
			record.Failures = 0
			record.WindowStart = now
			locked = true
		}
		return record
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if locked {
		if s.metrics != nil {
			s.metrics.IncrementLoginLockouts()
		}
		s.logAudit(ctx, email, clientIP, record.LockedUntil.Format(time.RFC3339))
	}
	return record, nil
}

// Clear forgets failures after a successful login.
func (s *Service) Clear(ctx context.Context, email, clientIP string) error {
	if err := s.store.Delete(ctx, models.LockoutKey(email, clientIP)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login failures")
	}
	return nil
}

func (s *Service) load(ctx context.Context, key string) (*models.Lockout, error) {
	record, err := s.store.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load login failures")
	}
	return record, nil
}

func (s *Service) logAudit(ctx context.Context, email, clientIP, lockedUntil string) {
	event := string(audit.EventLoginLocked)
	s.logger.WarnContext(ctx, event,
		"email", email,
		"ip", clientIP,
		"locked_until", lockedUntil,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:     event,
		Email:      email,
		RequestID:  requestcontext.RequestID(ctx),
		IP:         clientIP,
		Attributes: map[string]string{"locked_until": lockedUntil},
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", event, "error", err)
	}
}
