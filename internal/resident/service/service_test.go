package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	identity "smartgate/internal/identity/models"
	identityservice "smartgate/internal/identity/service"
	userstore "smartgate/internal/identity/store/user"
	"smartgate/internal/platform/logger"
	"smartgate/internal/platform/metrics"
	"smartgate/internal/resident/models"
	"smartgate/internal/resident/service/mocks"
	profilestore "smartgate/internal/resident/store/profile"
	vehiclestore "smartgate/internal/resident/store/vehicle"
	id "smartgate/pkg/domain"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/audit/publisher"
	auditmemory "smartgate/pkg/platform/audit/store/memory"
	"smartgate/pkg/platform/tx"
)

type ServiceSuite struct {
	suite.Suite
	users    *userstore.InMemoryUserStore
	profiles *profilestore.InMemoryProfileStore
	vehicles *vehiclestore.InMemoryVehicleStore
	events   *auditmemory.InMemoryStore
	metrics  *metrics.Metrics
	accounts *identityservice.Service
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = userstore.New()
	s.profiles = profilestore.New()
	s.vehicles = vehiclestore.New()
	s.events = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.accounts = identityservice.New(s.users,
		identityservice.WithLogger(logger.Discard()),
		identityservice.WithBcryptCost(bcrypt.MinCost),
	)
	s.service = New(s.profiles, s.vehicles, s.accounts, tx.NewMemory(),
		WithLogger(logger.Discard()),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) resident(email string) id.UserID {
	u, err := s.accounts.CreateUser(context.Background(), email, "p1", identityservice.WithNames("Ana", "Quispe"))
	s.Require().NoError(err)
	return u.ID
}

func completeUpdate(email, dni string) models.ProfileUpdate {
	return models.ProfileUpdate{
		FirstName:  "Ana María",
		LastName:   "Quispe",
		Email:      email,
		NationalID: dni,
		Address:    "Av. Los Olivos 123",
		Phone:      "987654321",
	}
}

func (s *ServiceSuite) TestEnsureProfile() {
	ctx := context.Background()
	userID := s.resident("ana@x.com")

	first, err := s.service.EnsureProfile(ctx, userID)
	s.Require().NoError(err)
	s.True(first.IsActive)
	s.False(first.IsComplete())

	again, err := s.service.EnsureProfile(ctx, userID)
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)

	all, err := s.profiles.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ServiceSuite) TestGetProfileMissing() {
	_, err := s.service.GetProfile(context.Background(), 42)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdateProfile() {
	ctx := context.Background()

	s.Run("writes account and profile together", func() {
		userID := s.resident("ana@x.com")
		profile, err := s.service.UpdateProfile(ctx, userID, completeUpdate(" ana.q@X.com ", "12345678"))
		s.Require().NoError(err)
		s.True(profile.IsComplete())

		user, err := s.accounts.GetUser(ctx, userID)
		s.Require().NoError(err)
		s.Equal("Ana María", user.FirstName)
		s.Equal("ana.q@x.com", user.Email)

		recent, err := s.events.ListRecent(ctx, 1)
		s.Require().NoError(err)
		s.Require().Len(recent, 1)
		s.Equal(string(audit.EventProfileUpdated), recent[0].Action)
		s.Equal(userID, recent[0].UserID)
	})

	s.Run("national ID conflict rolls back the account change", func() {
		userID := s.resident("bruno@x.com")
		_, err := s.service.UpdateProfile(ctx, userID, completeUpdate("bruno.new@x.com", "12345678"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("dni", dErrors.FieldOf(err))

		user, err := s.accounts.GetUser(ctx, userID)
		s.Require().NoError(err)
		s.Equal("bruno@x.com", user.Email)
		s.Equal("Ana", user.FirstName)
	})

	s.Run("email conflict leaves the profile untouched", func() {
		userID := s.resident("carla@x.com")
		_, err := s.service.UpdateProfile(ctx, userID, completeUpdate("ana.q@x.com", "87654321"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("email", dErrors.FieldOf(err))

		profile, err := s.service.EnsureProfile(ctx, userID)
		s.Require().NoError(err)
		s.Empty(profile.NationalID)
	})

	s.Run("blank required field is a validation error", func() {
		userID := s.resident("dario@x.com")
		in := completeUpdate("dario@x.com", "11223344")
		in.Phone = "   "
		_, err := s.service.UpdateProfile(ctx, userID, in)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("telefono", dErrors.FieldOf(err))
	})
}

func (s *ServiceSuite) TestRegisterVehicle() {
	ctx := context.Background()
	owner := s.resident("ana@x.com")
	other := s.resident("bruno@x.com")
	reg := models.VehicleRegistration{Plate: " abc-123 ", Make: "Toyota", Model: "Yaris", Color: "Rojo"}

	s.Run("normalizes plate and starts outside", func() {
		v, err := s.service.RegisterVehicle(ctx, owner, reg)
		s.Require().NoError(err)
		s.Equal("ABC-123", v.Plate)
		s.Equal(models.LocationOutside, v.Location)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.VehiclesRegistered))
	})

	s.Run("duplicate plate is rejected for any owner", func() {
		dup := reg
		dup.Plate = "ABC-123"
		_, err := s.service.RegisterVehicle(ctx, other, dup)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("placa", dErrors.FieldOf(err))

		n, err := s.service.CountVehicles(ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("plate longer than the column is rejected", func() {
		long := reg
		long.Plate = "ABCDEFGHIJK"
		_, err := s.service.RegisterVehicle(ctx, owner, long)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("placa", dErrors.FieldOf(err))
	})

	s.Run("residents only see their own vehicles", func() {
		mine := reg
		mine.Plate = "XYZ-999"
		_, err := s.service.RegisterVehicle(ctx, other, mine)
		s.Require().NoError(err)

		ownerVehicles, err := s.service.ListVehicles(ctx, owner)
		s.Require().NoError(err)
		s.Require().Len(ownerVehicles, 1)
		s.Equal("ABC-123", ownerVehicles[0].Plate)

		otherVehicles, err := s.service.ListVehicles(ctx, other)
		s.Require().NoError(err)
		s.Require().Len(otherVehicles, 1)
		s.Equal("XYZ-999", otherVehicles[0].Plate)
	})

	s.Run("no profile means no vehicles", func() {
		vehicles, err := s.service.ListVehicles(ctx, s.resident("nuevo@x.com"))
		s.Require().NoError(err)
		s.Empty(vehicles)
	})
}

func (s *ServiceSuite) TestRoster() {
	ctx := context.Background()
	ana := s.resident("ana@x.com")
	bruno := s.resident("bruno@x.com")
	_, err := s.service.EnsureProfile(ctx, bruno)
	s.Require().NoError(err)
	_, err = s.service.UpdateProfile(ctx, ana, completeUpdate("ana@x.com", "12345678"))
	s.Require().NoError(err)

	roster, err := s.service.Roster(ctx)
	s.Require().NoError(err)
	s.Require().Len(roster, 2)
	s.Equal(bruno, roster[0].Profile.UserID)
	s.Equal("bruno@x.com", roster[0].Email)
	s.Equal("Ana María", roster[1].FirstName)
	s.Equal("12345678", roster[1].Profile.NationalID)
}

func TestRegisterVehicleStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiles := mocks.NewMockProfileStore(ctrl)
	vehicles := mocks.NewMockVehicleStore(ctrl)
	accounts := mocks.NewMockAccounts(ctrl)
	runner := mocks.NewMockTxRunner(ctrl)
	auditor := mocks.NewMockAuditPublisher(ctrl)

	profiles.EXPECT().FindByUserID(gomock.Any(), id.UserID(7)).Return(&models.Profile{ID: 3, UserID: 7}, nil)
	vehicles.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(0)

	svc := New(profiles, vehicles, accounts, runner, WithLogger(logger.Discard()), WithAuditPublisher(auditor))
	_, err := svc.RegisterVehicle(context.Background(), 7, models.VehicleRegistration{
		Plate: "ABC123", Make: "Kia", Model: "Rio", Color: "Azul",
	})
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestCountVehiclesStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	vehicles := mocks.NewMockVehicleStore(ctrl)
	vehicles.EXPECT().Count(gomock.Any()).Return(0, errors.New("connection reset"))

	svc := New(mocks.NewMockProfileStore(ctrl), vehicles, mocks.NewMockAccounts(ctrl), mocks.NewMockTxRunner(ctrl),
		WithLogger(logger.Discard()))
	_, err := svc.CountVehicles(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestUpdateProfileRunsInOneUnit(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockTxRunner(ctrl)
	runner.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(errors.New("tx begin failed"))

	svc := New(mocks.NewMockProfileStore(ctrl), mocks.NewMockVehicleStore(ctrl), mocks.NewMockAccounts(ctrl), runner,
		WithLogger(logger.Discard()))
	_, err := svc.UpdateProfile(context.Background(), 7, completeUpdate("a@x.com", "1"))
	if err == nil {
		t.Fatal("expected error from transaction runner")
	}
}

func TestUpdateProfileLogsFailedContactRestore(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiles := mocks.NewMockProfileStore(ctrl)
	accounts := mocks.NewMockAccounts(ctrl)

	before := &identity.User{ID: 7, FirstName: "Ana", LastName: "Q", Email: "old@x.com"}
	accounts.EXPECT().GetUser(gomock.Any(), id.UserID(7)).Return(before, nil)
	gomock.InOrder(
		accounts.EXPECT().UpdateContact(gomock.Any(), id.UserID(7), "Ana María", "Quispe", "new@x.com").Return(&identity.User{ID: 7}, nil),
		accounts.EXPECT().UpdateContact(gomock.Any(), id.UserID(7), "Ana", "Q", "old@x.com").Return(nil, errors.New("connection reset")),
	)
	profiles.EXPECT().FindByUserID(gomock.Any(), id.UserID(7)).Return(&models.Profile{ID: 3, UserID: 7}, nil)
	profiles.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := New(profiles, mocks.NewMockVehicleStore(ctrl), accounts, tx.NewMemory(), WithLogger(log))

	_, err := svc.UpdateProfile(context.Background(), 7, completeUpdate("new@x.com", "12345678"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	var restoreLogged bool
	for line := range strings.Lines(buf.String()) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "failed to restore account contact after profile update rollback" {
			restoreLogged = true
			assert.Equal(t, "ERROR", entry["level"])
			assert.Equal(t, "connection reset", entry["error"])
		}
	}
	assert.True(t, restoreLogged)
}
