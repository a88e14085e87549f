package httptransport

import (
	"net/http"

	identity "smartgate/internal/identity/models"
	identityservice "smartgate/internal/identity/service"
	"smartgate/pkg/platform/middleware/auth"
	request "smartgate/pkg/platform/middleware/request"
	"smartgate/pkg/requestcontext"
)

const (
	msgRegistered = "Usuario registrado correctamente. Ahora puede iniciar sesión."
	msgLoggedOut  = "Sesión cerrada correctamente."
)

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", h.page(w, r, "Inicio"))
}

func (h *Handler) handleDenied(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "denied", h.page(w, r, "Acceso denegado"))
}

func (h *Handler) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Registro")
	data.Form = RegisterForm{}
	h.render(w, r, http.StatusOK, "register", data)
}

// handleRegister creates a resident account. Passwords are never echoed back.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.page(w, r, "Registro")

	var form RegisterForm
	if err := bindForm(r, &form); err != nil {
		data.Form = RegisterForm{}
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusBadRequest, "register", data)
		return
	}
	data.Form = RegisterForm{FirstName: form.FirstName, LastName: form.LastName, Email: form.Email}

	if err := h.validate.Struct(form); err != nil {
		data.Errors = fieldErrors(err)
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusOK, "register", data)
		return
	}
	if form.Password != form.ConfirmPassword {
		data.NonFieldError = msgPasswordMismatch
		h.render(w, r, http.StatusOK, "register", data)
		return
	}

	_, err := h.accounts.CreateUser(ctx, form.Email, form.Password,
		identityservice.WithNames(form.FirstName, form.LastName),
		identityservice.WithRole(identity.RoleResident),
	)
	if err != nil {
		if !applyDomainError(&data, err) {
			h.fail(w, r, err, "failed to register user")
			return
		}
		h.render(w, r, http.StatusOK, "register", data)
		return
	}
	h.flash.Set(w, msgRegistered)
	h.redirect(w, r, PathLogin)
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Iniciar sesión")
	data.Form = LoginForm{Next: auth.SafeNext(r.URL.Query().Get("next"), "")}
	h.render(w, r, http.StatusOK, "login", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.page(w, r, "Iniciar sesión")

	var form LoginForm
	bindErr := bindForm(r, &form)
	next := auth.SafeNext(form.Next, "")
	data.Form = LoginForm{Email: form.Email, Next: next}
	if bindErr != nil || h.validate.Struct(form) != nil {
		data.NonFieldError = msgInvalidLogin
		h.render(w, r, http.StatusOK, "login", data)
		return
	}

	clientIP := requestcontext.ClientIP(ctx)
	if h.limiter != nil {
		decision, err := h.limiter.Check(ctx, form.Email, clientIP)
		if err != nil {
			h.fail(w, r, err, "failed to check login lockout")
			return
		}
		if !decision.Allowed {
			data.NonFieldError = msgTooManyAttempts
			h.render(w, r, http.StatusTooManyRequests, "login", data)
			return
		}
	}

	user, ok, err := h.accounts.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		h.fail(w, r, err, "authentication failed")
		return
	}
	if !ok {
		if h.limiter != nil {
			if _, err := h.limiter.RecordFailure(ctx, form.Email, clientIP); err != nil {
				h.logger.WarnContext(ctx, "failed to record login failure",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
			}
		}
		data.NonFieldError = msgBadCredentials
		h.render(w, r, http.StatusOK, "login", data)
		return
	}
	if h.limiter != nil {
		if err := h.limiter.Clear(ctx, form.Email, clientIP); err != nil {
			h.logger.WarnContext(ctx, "failed to clear login failures",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
		}
	}

	token, sess, err := h.sessions.Issue(ctx, user)
	if err != nil {
		h.fail(w, r, err, "failed to issue session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	greeting := user.FirstName
	if greeting == "" {
		greeting = user.Email
	}
	h.flash.Set(w, "Bienvenido, "+greeting)
	h.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID.String(),
		"role", user.Role.String(),
		"request_id", request.GetRequestID(ctx),
	)
	h.redirect(w, r, auth.SafeNext(next, h.portals.HomeFor(user.Role)))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Revoke(ctx, requestcontext.SessionID(ctx)); err != nil {
		h.logger.WarnContext(ctx, "failed to revoke session",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.flash.Set(w, msgLoggedOut)
	h.redirect(w, r, PathLogin)
}
