package httptransport

import (
	"net/http"

	"smartgate/internal/resident/models"
	dErrors "smartgate/pkg/domain-errors"
	"smartgate/pkg/requestcontext"
)

const (
	msgProfileSaved      = "Tus datos se actualizaron correctamente."
	msgVehicleRegistered = "Vehículo registrado correctamente."
)

// handleResidentDashboard sends residents with an incomplete profile to the
// completion page before showing the dashboard.
func (h *Handler) handleResidentDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.residents.EnsureProfile(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, err, "failed to load resident profile")
		return
	}
	if !profile.IsComplete() {
		if h.metrics != nil {
			h.metrics.IncrementProfileGateRedirects()
		}
		h.redirect(w, r, PathCompletion)
		return
	}
	data := h.page(w, r, "Panel del residente")
	data.Data = profile
	h.render(w, r, http.StatusOK, "resident_dashboard", data)
}

func profileTitle(path string) string {
	if path == PathCompletion {
		return "Completar perfil"
	}
	return "Actualizar perfil"
}

func (h *Handler) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.residents.EnsureProfile(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, err, "failed to load resident profile")
		return
	}
	data := h.page(w, r, profileTitle(r.URL.Path))
	data.Action = r.URL.Path
	form := ProfileForm{NationalID: profile.NationalID, Address: profile.Address, Phone: profile.Phone}
	if data.User != nil {
		form.FirstName = data.User.FirstName
		form.LastName = data.User.LastName
		form.Email = data.User.Email
	}
	data.Form = form
	h.render(w, r, http.StatusOK, "profile_form", data)
}

// handleProfileSubmit serves both profile completion and profile update
// through the single UpdateProfile operation.
func (h *Handler) handleProfileSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.page(w, r, profileTitle(r.URL.Path))
	data.Action = r.URL.Path

	var form ProfileForm
	if err := bindForm(r, &form); err != nil {
		data.Form = form
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusBadRequest, "profile_form", data)
		return
	}
	data.Form = form
	if err := h.validate.Struct(form); err != nil {
		data.Errors = fieldErrors(err)
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusOK, "profile_form", data)
		return
	}

	_, err := h.residents.UpdateProfile(ctx, requestcontext.UserID(ctx), models.ProfileUpdate{
		FirstName:  form.FirstName,
		LastName:   form.LastName,
		Email:      form.Email,
		NationalID: form.NationalID,
		Address:    form.Address,
		Phone:      form.Phone,
	})
	if err != nil {
		if !applyDomainError(&data, err) {
			h.fail(w, r, err, "failed to update profile")
			return
		}
		h.render(w, r, http.StatusOK, "profile_form", data)
		return
	}
	h.flash.Set(w, msgProfileSaved)
	h.redirect(w, r, ResidentHome)
}

func (h *Handler) handlePersonalData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.page(w, r, "Datos personales")
	profile, err := h.residents.GetProfile(ctx, requestcontext.UserID(ctx))
	switch {
	case err == nil:
		data.Data = profile
	case !dErrors.HasCode(err, dErrors.CodeNotFound):
		h.fail(w, r, err, "failed to load resident profile")
		return
	}
	h.render(w, r, http.StatusOK, "personal_data", data)
}

func (h *Handler) handleVehicleForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "Registrar vehículo")
	data.Form = VehicleForm{}
	h.render(w, r, http.StatusOK, "vehicle_form", data)
}

// handleRegisterVehicle registers a vehicle for the caller. Any owner field in
// the body is ignored; the owner is always the caller's profile.
func (h *Handler) handleRegisterVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.page(w, r, "Registrar vehículo")

	var form VehicleForm
	if err := bindForm(r, &form); err != nil {
		data.Form = form
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusBadRequest, "vehicle_form", data)
		return
	}
	if form.Image == "" && r.MultipartForm != nil {
		if files := r.MultipartForm.File["imagen"]; len(files) > 0 {
			form.Image = "vehiculos/" + files[0].Filename
		}
	}
	data.Form = form
	if err := h.validate.Struct(form); err != nil {
		data.Errors = fieldErrors(err)
		data.NonFieldError = msgFixErrors
		h.render(w, r, http.StatusOK, "vehicle_form", data)
		return
	}

	_, err := h.residents.RegisterVehicle(ctx, requestcontext.UserID(ctx), models.VehicleRegistration{
		Plate: form.Plate,
		Make:  form.Make,
		Model: form.Model,
		Color: form.Color,
		Image: form.Image,
	})
	if err != nil {
		if !applyDomainError(&data, err) {
			h.fail(w, r, err, "failed to register vehicle")
			return
		}
		h.render(w, r, http.StatusOK, "vehicle_form", data)
		return
	}
	h.flash.Set(w, msgVehicleRegistered)
	h.redirect(w, r, PathVehicles)
}

func (h *Handler) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicles, err := h.residents.ListVehicles(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(w, r, err, "failed to list vehicles")
		return
	}
	data := h.page(w, r, "Mis vehículos")
	data.Data = vehicles
	h.render(w, r, http.StatusOK, "vehicles", data)
}
