package httptransport

import (
	"github.com/go-chi/chi/v5"

	identity "smartgate/internal/identity/models"
)

// Portal is the set of pages owned by one role. The router gates each
// portal's routes on its role.
type Portal interface {
	Role() identity.Role
	Home() string
	Mount(r chi.Router)
}

// Portals is the closed set of role portals.
type Portals []Portal

// HomeFor returns the landing page of role's portal. Unknown roles land on
// the resident portal.
func (p Portals) HomeFor(role identity.Role) string {
	for _, portal := range p {
		if portal.Role() == role {
			return portal.Home()
		}
	}
	return ResidentHome
}

// Portal home pages.
const (
	AdminHome    = "/administrador/dashboard/"
	GuardHome    = "/vigilante/dashboard/"
	ResidentHome = "/residente/dashboard/"
)

type AdminPortal struct{ h *Handler }

func (p *AdminPortal) Role() identity.Role { return identity.RoleAdmin }
func (p *AdminPortal) Home() string        { return AdminHome }

func (p *AdminPortal) Mount(r chi.Router) {
	r.Get(AdminHome, p.h.handleAdminDashboard)
	r.Get("/administrador/usuarios/nuevo/", p.h.handleNewUserForm)
	r.Post("/administrador/usuarios/nuevo/", p.h.handleCreateUser)
}

type GuardPortal struct{ h *Handler }

func (p *GuardPortal) Role() identity.Role { return identity.RoleGuard }
func (p *GuardPortal) Home() string        { return GuardHome }

func (p *GuardPortal) Mount(r chi.Router) {
	r.Get(GuardHome, p.h.handleGuardDashboard)
	r.Get("/vigilante/residentes/", p.h.handleRoster)
}

type ResidentPortal struct{ h *Handler }

func (p *ResidentPortal) Role() identity.Role { return identity.RoleResident }
func (p *ResidentPortal) Home() string        { return ResidentHome }

func (p *ResidentPortal) Mount(r chi.Router) {
	r.Get(ResidentHome, p.h.handleResidentDashboard)
	r.Get("/dashboard/", p.h.handleResidentDashboard)
	r.Get(PathCompletion, p.h.handleProfileForm)
	r.Post(PathCompletion, p.h.handleProfileSubmit)
	r.Get("/residente/actualizar-perfil/", p.h.handleProfileForm)
	r.Post("/residente/actualizar-perfil/", p.h.handleProfileSubmit)
	r.Get("/datos-personales/", p.h.handlePersonalData)
	r.Get("/registrar-vehiculo/", p.h.handleVehicleForm)
	r.Post("/registrar-vehiculo/", p.h.handleRegisterVehicle)
	r.Get(PathVehicles, p.h.handleListVehicles)
}
