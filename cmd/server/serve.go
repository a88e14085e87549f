package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smartgate/internal/platform/config"
	"smartgate/internal/platform/database"
	"smartgate/internal/platform/httpserver"
	"smartgate/internal/platform/logger"
	httptransport "smartgate/internal/transport/http"
	"smartgate/pkg/platform/middleware/metadata"
)

const (
	addrFlag    = "addr"
	migrateFlag = "migrate"
)

var serveFlags = map[string]cobraflags.Flag{
	addrFlag: &cobraflags.StringFlag{
		Name:  addrFlag,
		Value: "",
		Usage: "Listen address (overrides SMARTGATE_ADDR)",
	},
	migrateFlag: &cobraflags.BoolFlag{
		Name:  migrateFlag,
		Value: true,
		Usage: "Apply pending migrations before serving",
	},
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE:  serveCommand,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if addr := serveFlags[addrFlag].GetString(); addr != "" {
		cfg.Addr = addr
	}
	log := logger.New(cfg.LogLevel)
	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db != nil && serveFlags[migrateFlag].GetBool() {
		migrator, err := database.NewMigrator(a.db, database.Migrations, log)
		if err != nil {
			return err
		}
		if _, err := migrator.Up(ctx); err != nil {
			return err
		}
	}
	if cfg.Bootstrap.Enabled() {
		if _, err := a.accounts.BootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	renderer, err := httptransport.NewRenderer()
	if err != nil {
		return err
	}
	opts := []httptransport.Option{
		httptransport.WithLogger(log),
		httptransport.WithMetrics(a.metrics),
		httptransport.WithLoginLimiter(a.lockout),
		httptransport.WithAuditReader(a.audit),
	}
	if a.db != nil {
		opts = append(opts, httptransport.WithHealthCheck("database", a.db.PingContext))
	}
	if a.redis != nil {
		opts = append(opts, httptransport.WithHealthCheck("redis", a.redis.Health))
	}
	handler := httptransport.New(a.accounts, a.residents, a.sessions, a.flash, renderer,
		httptransport.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.SecureCookies,
			TTL:    cfg.Session.TTL,
		}, opts...)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		MetricsHandler: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		TrustedProxies: trusted,
	})
	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting smartgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
