package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"smartgate/internal/identity/models"
	"smartgate/internal/identity/service/mocks"
	userstore "smartgate/internal/identity/store/user"
	"smartgate/internal/platform/logger"
	"smartgate/internal/platform/metrics"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/audit/publisher"
	auditmemory "smartgate/pkg/platform/audit/store/memory"
	"smartgate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *userstore.InMemoryUserStore
	events  *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = userstore.New()
	s.events = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.service = New(s.store,
		WithLogger(logger.Discard()),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
		WithMetrics(s.metrics),
		WithBcryptCost(bcrypt.MinCost),
	)
}

func (s *ServiceSuite) actions() []string {
	recent, err := s.events.ListRecent(context.Background(), 0)
	s.Require().NoError(err)
	out := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		out = append(out, recent[i].Action)
	}
	return out
}

func (s *ServiceSuite) TestCreateUser() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	s.Run("defaults to resident and normalizes the email domain", func() {
		u, err := s.service.CreateUser(ctx, "  Ana@Condominio.PE ", "p1", WithNames("Ana", "Quispe"))
		s.Require().NoError(err)
		s.Equal("Ana@condominio.pe", u.Email)
		s.Equal(models.RoleResident, u.Role)
		s.True(u.IsActive)
		s.False(u.IsStaff)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("p1")))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.UsersCreated))
	})

	s.Run("missing email is a validation error on the email field", func() {
		_, err := s.service.CreateUser(ctx, "   ", "p1")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("email", dErrors.FieldOf(err))
	})

	s.Run("duplicate email is a conflict on the email field", func() {
		_, err := s.service.CreateUser(ctx, "Ana@condominio.pe", "other")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("email", dErrors.FieldOf(err))
	})

	s.Run("no password stores an unusable hash", func() {
		u, err := s.service.CreateUser(ctx, "nopass@x.com", "")
		s.Require().NoError(err)
		s.False(u.HasUsablePassword())
	})

	s.Run("explicit role is kept", func() {
		u, err := s.service.CreateUser(ctx, "guard@x.com", "p", WithRole(models.RoleGuard))
		s.Require().NoError(err)
		s.Equal(models.RoleGuard, u.Role)
	})

	s.Run("unknown role is rejected", func() {
		_, err := s.service.CreateUser(ctx, "weird@x.com", "p", WithRole("JARDINERO"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Contains(s.actions(), string(audit.EventUserCreated))
}

func (s *ServiceSuite) TestCreateSuperuser() {
	ctx := context.Background()

	s.Run("forces admin flags", func() {
		u, err := s.service.CreateSuperuser(ctx, "root@x.com", "secret")
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, u.Role)
		s.True(u.IsStaff)
		s.True(u.IsSuperuser)
		s.True(u.IsActive)
	})

	s.Run("explicit staff=false is rejected", func() {
		_, err := s.service.CreateSuperuser(ctx, "root2@x.com", "secret", WithStaff(false))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("is_staff", dErrors.FieldOf(err))
	})

	s.Run("explicit superuser=false is rejected", func() {
		_, err := s.service.CreateSuperuser(ctx, "root3@x.com", "secret", WithSuperuser(false))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("is_superuser", dErrors.FieldOf(err))
	})

	s.Run("role option cannot downgrade", func() {
		u, err := s.service.CreateSuperuser(ctx, "root4@x.com", "secret", WithRole(models.RoleResident))
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, u.Role)
	})
}

func (s *ServiceSuite) TestAuthenticate() {
	ctx := context.Background()
	created, err := s.service.CreateUser(ctx, "a@x.com", "p1")
	s.Require().NoError(err)

	s.Run("valid credentials", func() {
		u, ok, err := s.service.Authenticate(ctx, "a@X.COM", "p1")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(created.ID, u.ID)
	})

	s.Run("wrong password is no match, not an error", func() {
		u, ok, err := s.service.Authenticate(ctx, "a@x.com", "nope")
		s.Require().NoError(err)
		s.False(ok)
		s.Nil(u)
	})

	s.Run("unknown email is no match", func() {
		_, ok, err := s.service.Authenticate(ctx, "ghost@x.com", "p1")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("unusable password never matches", func() {
		_, err := s.service.CreateUser(ctx, "google@x.com", "", WithGoogleAccount())
		s.Require().NoError(err)
		_, ok, err := s.service.Authenticate(ctx, "google@x.com", "")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("inactive account is no match", func() {
		_, err := s.service.CreateUser(ctx, "off@x.com", "p1", WithActive(false))
		s.Require().NoError(err)
		_, ok, err := s.service.Authenticate(ctx, "off@x.com", "p1")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.LoginsTotal.WithLabelValues(metrics.LoginSucceeded)))
	s.Equal(float64(4), testutil.ToFloat64(s.metrics.LoginsTotal.WithLabelValues(metrics.LoginFailed)))
	s.Contains(s.actions(), string(audit.EventLoginFailed))
}

func (s *ServiceSuite) TestUpdateContact() {
	ctx := context.Background()
	a, err := s.service.CreateUser(ctx, "a@x.com", "p1")
	s.Require().NoError(err)
	_, err = s.service.CreateUser(ctx, "b@x.com", "p1")
	s.Require().NoError(err)

	s.Run("updates names and email", func() {
		u, err := s.service.UpdateContact(ctx, a.ID, " Ana ", "Quispe", "ana@X.com")
		s.Require().NoError(err)
		s.Equal("Ana", u.FirstName)
		s.Equal("ana@x.com", u.Email)
	})

	s.Run("email owned by someone else is a field conflict", func() {
		_, err := s.service.UpdateContact(ctx, a.ID, "Ana", "Quispe", "b@x.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("email", dErrors.FieldOf(err))
	})

	s.Run("unknown user", func() {
		_, err := s.service.UpdateContact(ctx, 404, "X", "Y", "z@x.com")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestBootstrapAdmin() {
	ctx := context.Background()

	created, err := s.service.BootstrapAdmin(ctx, "", "")
	s.Require().NoError(err)
	s.False(created)

	created, err = s.service.BootstrapAdmin(ctx, "admin@x.com", "admin123")
	s.Require().NoError(err)
	s.True(created)

	created, err = s.service.BootstrapAdmin(ctx, "admin@x.com", "admin123")
	s.Require().NoError(err)
	s.False(created)

	u, ok, err := s.service.Authenticate(ctx, "admin@x.com", "admin123")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(models.RoleAdmin, u.Role)
}

func (s *ServiceSuite) TestStoreFailures() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockUserStore(ctrl)
	auditor := mocks.NewMockAuditPublisher(ctrl)
	svc := New(store, WithLogger(logger.Discard()), WithAuditPublisher(auditor), WithBcryptCost(bcrypt.MinCost))
	boom := errors.New("connection reset")

	s.Run("authenticate surfaces infrastructure errors", func() {
		store.EXPECT().FindByEmail(gomock.Any(), "a@x.com").Return(nil, boom)
		_, ok, err := svc.Authenticate(context.Background(), "a@x.com", "p1")
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("create wraps unexpected store errors", func() {
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)
		_, err := svc.CreateUser(context.Background(), "a@x.com", "p1")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorIs(err, boom)
	})

	s.Run("audit failures do not fail the operation", func() {
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit down"))
		_, err := svc.CreateUser(context.Background(), "b@x.com", "p1")
		s.NoError(err)
	})
}
