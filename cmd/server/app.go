package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	identityservice "smartgate/internal/identity/service"
	userstore "smartgate/internal/identity/store/user"
	"smartgate/internal/platform/config"
	"smartgate/internal/platform/database"
	"smartgate/internal/platform/metrics"
	redisclient "smartgate/internal/platform/redis"
	lockoutservice "smartgate/internal/ratelimit/service"
	lockoutstore "smartgate/internal/ratelimit/store"
	residentservice "smartgate/internal/resident/service"
	profilestore "smartgate/internal/resident/store/profile"
	vehiclestore "smartgate/internal/resident/store/vehicle"
	"smartgate/internal/session"
	sessionstore "smartgate/internal/session/store"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/audit/kafka"
	"smartgate/pkg/platform/audit/publisher"
	auditmemory "smartgate/pkg/platform/audit/store/memory"
	auditpostgres "smartgate/pkg/platform/audit/store/postgres"
	"smartgate/pkg/platform/tx"
)

const auditBufferSize = 256

// app holds every wired dependency. Without DATABASE_URL the stores are in
// memory; without REDIS_URL sessions are in memory.
type app struct {
	cfg       config.Server
	logger    *slog.Logger
	db        *sql.DB
	redis     *redisclient.Client
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	audit     *publisher.Publisher
	accounts  *identityservice.Service
	residents *residentservice.Service
	sessions  *session.Service
	lockout   *lockoutservice.Service
	flash     *session.Flash
}

func newApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewWithRegisterer(a.registry)

	if a.db, err = database.Open(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if a.redis, err = redisclient.New(cfg.Redis); err != nil {
		return nil, err
	}

	var (
		users     identityservice.UserStore
		profiles  residentservice.ProfileStore
		vehicles  residentservice.VehicleStore
		events    audit.Store
		txRunner  residentservice.TxRunner
		sessStore session.Store
		lockStore lockoutservice.Store
	)
	if a.db != nil {
		logger.InfoContext(ctx, "using postgres stores", "driver", cfg.Database.Driver)
		users = userstore.NewPostgres(a.db)
		profiles = profilestore.NewPostgres(a.db)
		vehicles = vehiclestore.NewPostgres(a.db)
		events = auditpostgres.New(a.db)
		txRunner = tx.NewPostgres(a.db, cfg.Database.TxTimeout)
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		users = userstore.New()
		profiles = profilestore.New()
		vehicles = vehiclestore.New()
		events = auditmemory.NewInMemoryStore()
		txRunner = tx.NewMemory()
	}
	if a.redis != nil {
		sessStore = sessionstore.NewRedis(a.redis.Client)
		lockStore = lockoutstore.NewRedis(a.redis.Client, max(cfg.Lockout.Window, cfg.Lockout.LockDuration))
	} else {
		sessStore = sessionstore.NewInMemory()
		lockStore = lockoutstore.NewInMemory()
	}

	pubOpts := []publisher.Option{publisher.WithLogger(logger), publisher.WithAsyncBuffer(auditBufferSize)}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink, err := kafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic, kafka.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("connect audit sink: %w", err)
		}
		pubOpts = append(pubOpts, publisher.WithSink(sink))
	}
	a.audit = publisher.NewPublisher(events, pubOpts...)

	a.accounts = identityservice.New(users,
		identityservice.WithLogger(logger),
		identityservice.WithAuditPublisher(a.audit),
		identityservice.WithMetrics(a.metrics),
	)
	a.residents = residentservice.New(profiles, vehicles, a.accounts, txRunner,
		residentservice.WithLogger(logger),
		residentservice.WithAuditPublisher(a.audit),
		residentservice.WithMetrics(a.metrics),
	)
	a.sessions = session.NewService(sessStore,
		session.NewTokenSigner(cfg.Session.SigningKey, cfg.Session.Issuer),
		cfg.Session.TTL,
		session.WithLogger(logger),
		session.WithAuditPublisher(a.audit),
		session.WithMetrics(a.metrics),
	)
	a.lockout = lockoutservice.New(lockStore,
		lockoutservice.WithLogger(logger),
		lockoutservice.WithAuditPublisher(a.audit),
		lockoutservice.WithMetrics(a.metrics),
		lockoutservice.WithConfig(lockoutservice.Config{
			MaxFailures:  cfg.Lockout.MaxFailures,
			Window:       cfg.Lockout.Window,
			LockDuration: cfg.Lockout.LockDuration,
		}),
	)
	a.flash = session.NewFlash(cfg.Session.CookieName+"_flash", cfg.Session.SigningKey, cfg.Session.SecureCookies)
	return a, nil
}

// Close releases connections. The audit publisher is drained first.
func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
