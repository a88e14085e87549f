package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"smartgate/internal/identity/models"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func newUser(email string) *models.User {
	return &models.User{Email: email, FirstName: "Ana", LastName: "Quispe", Role: models.RoleResident, IsActive: true}
}

func (s *InMemoryUserStoreSuite) TestCreate() {
	s.Run("assigns sequential ids", func() {
		a, b := newUser("a@x.com"), newUser("b@x.com")
		s.Require().NoError(s.store.Create(context.Background(), a))
		s.Require().NoError(s.store.Create(context.Background(), b))
		s.Equal(id.UserID(1), a.ID)
		s.Equal(id.UserID(2), b.ID)
	})

	s.Run("rejects duplicate email", func() {
		err := s.store.Create(context.Background(), newUser("a@x.com"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
		s.Equal(ConstraintEmail, sentinel.ConstraintOf(err))
	})
}

func (s *InMemoryUserStoreSuite) TestLookup() {
	u := newUser("lookup@x.com")
	s.Require().NoError(s.store.Create(context.Background(), u))

	s.Run("by id", func() {
		found, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal(u, found)
	})

	s.Run("by email", func() {
		found, err := s.store.FindByEmail(context.Background(), "lookup@x.com")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("returned copies do not alias the store", func() {
		found, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		found.FirstName = "Mutated"
		again, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal("Ana", again.FirstName)
	})

	s.Run("missing", func() {
		_, err := s.store.FindByID(context.Background(), 999)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByEmail(context.Background(), "missing@x.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestUpdate() {
	a, b := newUser("a@x.com"), newUser("b@x.com")
	s.Require().NoError(s.store.Create(context.Background(), a))
	s.Require().NoError(s.store.Create(context.Background(), b))

	s.Run("changing email moves the index", func() {
		a.Email = "new@x.com"
		s.Require().NoError(s.store.Update(context.Background(), a))
		_, err := s.store.FindByEmail(context.Background(), "a@x.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		found, err := s.store.FindByEmail(context.Background(), "new@x.com")
		s.Require().NoError(err)
		s.Equal(a.ID, found.ID)
	})

	s.Run("taking another user's email conflicts", func() {
		b.Email = "new@x.com"
		err := s.store.Update(context.Background(), b)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown user", func() {
		err := s.store.Update(context.Background(), &models.User{ID: 77, Email: "z@x.com"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestListAndFindByIDs() {
	for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		s.Require().NoError(s.store.Create(context.Background(), newUser(email)))
	}
	all, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("c@x.com", all[0].Email)

	found, err := s.store.FindByIDs(context.Background(), []id.UserID{1, 3, 42})
	s.Require().NoError(err)
	s.Len(found, 2)
	s.Equal("b@x.com", found[3].Email)
}
