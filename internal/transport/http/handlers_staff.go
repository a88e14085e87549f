package httptransport

import (
	"net/http"

	identity "smartgate/internal/identity/models"
	identityservice "smartgate/internal/identity/service"
	audit "smartgate/pkg/platform/audit"
	request "smartgate/pkg/platform/middleware/request"
)

func (h *Handler) handleGuardDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "guard_dashboard", h.page(w, r, "Panel de vigilancia"))
}

// handleRoster lists every resident profile with its owner's name.
func (h *Handler) handleRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.residents.Roster(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to load resident roster")
		return
	}
	data := h.page(w, r, "Residentes")
	data.Data = roster
	h.render(w, r, http.StatusOK, "guard_residents", data)
}

// recentAuditEvents bounds the activity list on the admin dashboard.
const recentAuditEvents = 20

// AdminDashboard is the admin home view.
type AdminDashboard struct {
	Users        []*identity.User
	VehicleCount int
	Events       []audit.Event
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.accounts.ListUsers(ctx)
	if err != nil {
		h.fail(w, r, err, "failed to list users")
		return
	}
	vehicles, err := h.residents.CountVehicles(ctx)
	if err != nil {
		h.fail(w, r, err, "failed to count vehicles")
		return
	}
	view := AdminDashboard{Users: users, VehicleCount: vehicles}
	if h.auditLog != nil {
		// A failing audit store only hides the activity list.
		if view.Events, err = h.auditLog.Recent(ctx, recentAuditEvents); err != nil {
			h.logger.WarnContext(ctx, "failed to load recent audit events",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
		}
	}
	data := h.page(w, r, "Panel de administración")
	data.Data = view
	h.render(w, r, http.StatusOK, "admin_dashboard", data)
}

func (h *Handler) handleNewUserForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Nuevo usuario")
	data.Form = StaffForm{Role: identity.RoleGuard.String()}
	data.Data = identity.Roles
	h.render(w, r, http.StatusOK, "admin_new_user", data)
}

// handleCreateUser lets an administrator create an account of any role.
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.page(w, r, "Nuevo usuario")
	data.Data = identity.Roles

	var form StaffForm
	if err := bindForm(r, &form); err != nil {
		data.Form = StaffForm{}
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusBadRequest, "admin_new_user", data)
		return
	}
	data.Form = StaffForm{FirstName: form.FirstName, LastName: form.LastName, Email: form.Email, Role: form.Role}
	if err := h.validate.Struct(form); err != nil {
		data.Errors = fieldErrors(err)
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusOK, "admin_new_user", data)
		return
	}
	role, err := identity.ParseRole(form.Role)
	if err != nil {
		applyDomainError(&data, err)
		h.render(w, r, http.StatusOK, "admin_new_user", data)
		return
	}

	opts := []identityservice.CreateOption{
		identityservice.WithNames(form.FirstName, form.LastName),
		identityservice.WithRole(role),
	}
	if role == identity.RoleAdmin {
		opts = append(opts, identityservice.WithStaff(true))
	}
	user, err := h.accounts.CreateUser(ctx, form.Email, form.Password, opts...)
	if err != nil {
		if !applyDomainError(&data, err) {
			h.fail(w, r, err, "failed to create user")
			return
		}
		h.render(w, r, http.StatusOK, "admin_new_user", data)
		return
	}
	h.flash.Set(w, "Usuario "+user.Email+" creado como "+role.Label()+".")
	h.redirect(w, r, AdminHome)
}
