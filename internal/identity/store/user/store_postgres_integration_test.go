//go:build integration

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"smartgate/internal/identity/models"
	"smartgate/internal/identity/store/user"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
	txcontext "smartgate/pkg/platform/tx"
	"smartgate/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func makeUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.User{
		Email:        email,
		PasswordHash: "!unusable",
		FirstName:    "Luis",
		LastName:     "Rojas",
		Role:         models.RoleGuard,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := makeUser("luis@x.com")
	s.Require().NoError(s.store.Create(ctx, u))
	s.False(u.ID.IsNil())

	found, err := s.store.FindByEmail(ctx, "luis@x.com")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal(models.RoleGuard, found.Role)

	_, err = s.store.FindByID(ctx, id.UserID(999999))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestDuplicateEmailMapsToConflict() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, makeUser("dup@x.com")))
	err := s.store.Create(ctx, makeUser("dup@x.com"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	s.Equal(user.ConstraintEmail, sentinel.ConstraintOf(err))
}

func (s *PostgresUserStoreSuite) TestUpdateInsideRolledBackTransaction() {
	ctx := context.Background()
	u := makeUser("tx@x.com")
	s.Require().NoError(s.store.Create(ctx, u))

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	u.FirstName = "Cambiado"
	s.Require().NoError(s.store.Update(txcontext.WithTx(ctx, tx), u))
	s.Require().NoError(tx.Rollback())

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Luis", found.FirstName)
}

func (s *PostgresUserStoreSuite) TestFindByIDs() {
	ctx := context.Background()
	a, b := makeUser("a@x.com"), makeUser("b@x.com")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	found, err := s.store.FindByIDs(ctx, []id.UserID{a.ID, b.ID})
	s.Require().NoError(err)
	s.Len(found, 2)

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}
