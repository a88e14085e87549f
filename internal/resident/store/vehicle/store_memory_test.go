package vehicle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"smartgate/internal/resident/models"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
)

type InMemoryVehicleStoreSuite struct {
	suite.Suite
	store *InMemoryVehicleStore
}

func TestInMemoryVehicleStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryVehicleStoreSuite))
}

func (s *InMemoryVehicleStoreSuite) SetupTest() {
	s.store = New()
}

func car(profileID id.ProfileID, plate string) *models.Vehicle {
	return &models.Vehicle{ProfileID: profileID, Plate: plate, Make: "Toyota", Model: "Yaris", Color: "Rojo", Location: models.LocationOutside}
}

func (s *InMemoryVehicleStoreSuite) TestPlateUniqueness() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, car(1, "ABC123")))

	err := s.store.Create(ctx, car(2, "ABC123"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	s.Equal(ConstraintPlate, sentinel.ConstraintOf(err))

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *InMemoryVehicleStoreSuite) TestListByProfileIsScoped() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, car(1, "AAA111")))
	s.Require().NoError(s.store.Create(ctx, car(2, "BBB222")))
	s.Require().NoError(s.store.Create(ctx, car(1, "CCC333")))

	mine, err := s.store.ListByProfile(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal("AAA111", mine[0].Plate)
	s.Equal("CCC333", mine[1].Plate)

	none, err := s.store.ListByProfile(ctx, 9)
	s.Require().NoError(err)
	s.Empty(none)
}
