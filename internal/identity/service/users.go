package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smartgate/internal/identity/models"
	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
	"smartgate/pkg/email"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/requestcontext"
)

const (
	msgEmailRequired  = "El correo electrónico es obligatorio."
	msgEmailTaken     = "Ya existe un usuario con este correo electrónico."
	msgStaffFalse     = "Un superusuario debe tener is_staff=True."
	msgSuperuserFalse = "Un superusuario debe tener is_superuser=True."
)

type createParams struct {
	firstName string
	lastName  string
	role      models.Role
	staff     *bool
	superuser *bool
	active    *bool
	google    bool
}

// CreateOption sets optional attributes on a new account.
type CreateOption func(*createParams)

func WithNames(first, last string) CreateOption {
	return func(p *createParams) {
		p.firstName = strings.TrimSpace(first)
		p.lastName = strings.TrimSpace(last)
	}
}

func WithRole(role models.Role) CreateOption {
	return func(p *createParams) {
		p.role = role
	}
}

func WithStaff(staff bool) CreateOption {
	return func(p *createParams) {
		p.staff = &staff
	}
}

func WithSuperuser(superuser bool) CreateOption {
	return func(p *createParams) {
		p.superuser = &superuser
	}
}

func WithActive(active bool) CreateOption {
	return func(p *createParams) {
		p.active = &active
	}
}

// WithGoogleAccount marks accounts provisioned through Google sign-in.
func WithGoogleAccount() CreateOption {
	return func(p *createParams) {
		p.google = true
	}
}

// CreateUser creates an account. An empty password stores an unusable hash,
// so the account exists but can never authenticate with a password.
func (s *Service) CreateUser(ctx context.Context, address, password string, opts ...CreateOption) (user *models.User, err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { endSpan(span, err) }()

	p := createParams{role: models.RoleResident}
	for _, opt := range opts {
		opt(&p)
	}
	return s.create(ctx, address, password, p)
}

// CreateSuperuser creates an administrator with staff and superuser flags.
// Explicitly passing WithStaff(false) or WithSuperuser(false) is rejected.
func (s *Service) CreateSuperuser(ctx context.Context, address, password string, opts ...CreateOption) (user *models.User, err error) {
	ctx, span := s.startSpan(ctx, "CreateSuperuser")
	defer func() { endSpan(span, err) }()

	p := createParams{}
	for _, opt := range opts {
		opt(&p)
	}
	if p.staff != nil && !*p.staff {
		return nil, dErrors.NewField(dErrors.CodeValidation, "is_staff", msgStaffFalse)
	}
	if p.superuser != nil && !*p.superuser {
		return nil, dErrors.NewField(dErrors.CodeValidation, "is_superuser", msgSuperuserFalse)
	}
	yes := true
	p.role = models.RoleAdmin
	p.staff, p.superuser, p.active = &yes, &yes, &yes
	return s.create(ctx, address, password, p)
}

func (s *Service) create(ctx context.Context, address, password string, p createParams) (*models.User, error) {
	normalized := email.Normalize(address)
	if normalized == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "email", msgEmailRequired)
	}
	if !p.role.IsValid() {
		return nil, dErrors.NewField(dErrors.CodeValidation, "rol", "Rol inválido.")
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		Email:        normalized,
		FirstName:    p.firstName,
		LastName:     p.lastName,
		Role:         p.role,
		PasswordHash: hash,
		IsActive:     boolOr(p.active, true),
		IsStaff:      boolOr(p.staff, false),
		IsSuperuser:  boolOr(p.superuser, false),
		IsGoogleUser: p.google,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.NewField(dErrors.CodeConflict, "email", msgEmailTaken)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	s.incrementUsersCreated()
	s.logAudit(ctx, audit.EventUserCreated,
		"user_id", user.ID.String(),
		"email", user.Email,
		"role", string(user.Role),
	)
	return user, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if password == "" {
		return models.UnusablePasswordPrefix + uuid.NewString(), nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.NewField(dErrors.CodeValidation, "password", "La contraseña es demasiado larga.")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(hash), nil
}

// GetUser loads an account by ID.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// ListUsers returns every account ordered by ID.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// FindUsers batch-loads accounts; missing IDs are absent from the map.
func (s *Service) FindUsers(ctx context.Context, ids []id.UserID) (map[id.UserID]*models.User, error) {
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load users")
	}
	return users, nil
}

// UpdateContact changes the name and email of an account. It joins the
// caller's transaction when one is in ctx.
func (s *Service) UpdateContact(ctx context.Context, userID id.UserID, firstName, lastName, address string) (*models.User, error) {
	normalized := email.Normalize(address)
	if normalized == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "email", msgEmailRequired)
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(firstName)
	user.LastName = strings.TrimSpace(lastName)
	user.Email = normalized
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.NewField(dErrors.CodeConflict, "email", msgEmailTaken)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return user, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
