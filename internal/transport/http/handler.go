// Package httptransport serves the SmartGate web pages. Handlers bind and
// validate forms, call the domain services and render or redirect; they hold
// no business rules.
package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks AccountService,ResidentService,SessionService,FlashStore,LoginLimiter,AuditReader

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	identity "smartgate/internal/identity/models"
	identityservice "smartgate/internal/identity/service"
	"smartgate/internal/platform/metrics"
	ratelimit "smartgate/internal/ratelimit/models"
	"smartgate/internal/resident/models"
	"smartgate/internal/session"
	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/middleware/auth"
	request "smartgate/pkg/platform/middleware/request"
	"smartgate/pkg/requestcontext"
)

// Paths shared by redirects and gates.
const (
	PathHome       = "/"
	PathRegister   = "/registro/"
	PathLogin      = "/login/"
	PathLogout     = "/logout/"
	PathDenied     = "/acceso-denegado/"
	PathCompletion = "/completar-perfil/"
	PathVehicles   = "/mis-vehiculos/"
)

type AccountService interface {
	CreateUser(ctx context.Context, email, password string, opts ...identityservice.CreateOption) (*identity.User, error)
	Authenticate(ctx context.Context, email, password string) (*identity.User, bool, error)
	GetUser(ctx context.Context, userID id.UserID) (*identity.User, error)
	ListUsers(ctx context.Context) ([]*identity.User, error)
}

type ResidentService interface {
	EnsureProfile(ctx context.Context, userID id.UserID) (*models.Profile, error)
	GetProfile(ctx context.Context, userID id.UserID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID id.UserID, in models.ProfileUpdate) (*models.Profile, error)
	RegisterVehicle(ctx context.Context, userID id.UserID, in models.VehicleRegistration) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, userID id.UserID) ([]*models.Vehicle, error)
	Roster(ctx context.Context) ([]models.RosterEntry, error)
	CountVehicles(ctx context.Context) (int, error)
}

type SessionService interface {
	auth.SessionResolver
	Issue(ctx context.Context, user *identity.User) (string, *session.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

type FlashStore interface {
	Set(w http.ResponseWriter, msg string)
	Pop(w http.ResponseWriter, r *http.Request) string
}

// LoginLimiter throttles repeated failed logins per email and client IP.
type LoginLimiter interface {
	Check(ctx context.Context, email, clientIP string) (ratelimit.Decision, error)
	RecordFailure(ctx context.Context, email, clientIP string) (*ratelimit.Lockout, error)
	Clear(ctx context.Context, email, clientIP string) error
}

// AuditReader exposes the latest audit events to the admin dashboard.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Handler serves every page of the application.
type Handler struct {
	accounts  AccountService
	residents ResidentService
	sessions  SessionService
	flash     FlashStore
	limiter   LoginLimiter
	auditLog  AuditReader
	renderer  *Renderer
	validate  *validator.Validate
	portals   Portals
	cookie    CookieConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	checks    map[string]HealthCheck
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLoginLimiter enables failed-login lockout. Without it logins are not throttled.
func WithLoginLimiter(limiter LoginLimiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// WithAuditReader shows recent audit events on the admin dashboard.
func WithAuditReader(reader AuditReader) Option {
	return func(h *Handler) {
		h.auditLog = reader
	}
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// New constructs a Handler with the three role portals.
func New(
	accounts AccountService,
	residents ResidentService,
	sessions SessionService,
	flash FlashStore,
	renderer *Renderer,
	cookie CookieConfig,
	opts ...Option,
) *Handler {
	h := &Handler{
		accounts:  accounts,
		residents: residents,
		sessions:  sessions,
		flash:     flash,
		renderer:  renderer,
		validate:  newValidator(),
		cookie:    cookie,
		logger:    slog.Default(),
		checks:    make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.portals = Portals{
		&AdminPortal{h: h},
		&GuardPortal{h: h},
		&ResidentPortal{h: h},
	}
	return h
}

// page builds the view model for the current caller, consuming any flash message.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	data := PageData{Title: title, Flash: h.flash.Pop(w, r)}
	if userID := requestcontext.UserID(r.Context()); !userID.IsNil() {
		if user, err := h.accounts.GetUser(r.Context(), userID); err == nil {
			data.User = user
		}
	}
	return data
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	if err := h.renderer.Render(w, status, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			"page", name,
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail logs an unexpected error and renders the generic error page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"user_id", requestcontext.UserID(r.Context()).String(),
		"request_id", request.GetRequestID(r.Context()),
	)
	h.render(w, r, http.StatusInternalServerError, "error", PageData{Title: "Error"})
}

// applyDomainError folds a service error into data. It reports false when the
// error is not a user-correctable one.
func applyDomainError(data *PageData, err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeConflict, dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
	default:
		return false
	}
	if field := dErrors.FieldOf(err); field != "" {
		if data.Errors == nil {
			data.Errors = make(map[string]string)
		}
		data.Errors[field] = dErrors.MessageOf(err)
		data.NonFieldError = msgFixErrors
		return true
	}
	data.NonFieldError = dErrors.MessageOf(err)
	return true
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusFound)
}
