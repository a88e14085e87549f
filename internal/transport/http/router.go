package httptransport

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"smartgate/pkg/platform/middleware/auth"
	"smartgate/pkg/platform/middleware/device"
	"smartgate/pkg/platform/middleware/metadata"
	request "smartgate/pkg/platform/middleware/request"
	"smartgate/pkg/platform/middleware/requesttime"
)

// RouterConfig carries router-level settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	MetricsHandler http.Handler
	TrustedProxies []netip.Prefix
}

// NewRouter wires the middleware chain, the public pages and the role portals.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(h.logger))
	r.Use(request.Logger(h.logger))
	if h.metrics != nil {
		r.Use(request.Latency(h.metrics))
	}
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(metadata.ClientMetadata(cfg.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(device.Middleware)

	r.Get("/healthz", h.handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.LoadSession(h.sessions, h.cookie.Name, h.logger))

		r.Get(PathHome, h.handleHome)
		r.Get(PathRegister, h.handleRegisterForm)
		r.Post(PathRegister, h.handleRegister)
		r.Get(PathLogin, h.handleLoginForm)
		r.Post(PathLogin, h.handleLogin)
		r.Get(PathDenied, h.handleDenied)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(PathLogin))
			r.Get(PathLogout, h.handleLogout)
			r.Post(PathLogout, h.handleLogout)
		})

		for _, portal := range h.portals {
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(PathLogin, PathDenied, h.deniedRecorder(), h.logger, portal.Role().String()))
				portal.Mount(r)
			})
		}
	})
	return r
}

func (h *Handler) deniedRecorder() auth.DeniedRecorder {
	if h.metrics == nil {
		return nil
	}
	return h.metrics
}
