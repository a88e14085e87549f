package vehicle

import (
	"context"
	"sort"
	"sync"

	"smartgate/internal/resident/models"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
)

// ConstraintPlate is the unique index on vehicles.placa.
const ConstraintPlate = "vehicles_placa_key"

// InMemoryVehicleStore enforces system-wide plate uniqueness.
type InMemoryVehicleStore struct {
	mu      sync.RWMutex
	nextID  id.VehicleID
	byID    map[id.VehicleID]*models.Vehicle
	byPlate map[string]id.VehicleID
}

func New() *InMemoryVehicleStore {
	return &InMemoryVehicleStore{
		byID:    make(map[id.VehicleID]*models.Vehicle),
		byPlate: make(map[string]id.VehicleID),
	}
}

func (s *InMemoryVehicleStore) Create(_ context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byPlate[v.Plate]; taken {
		return sentinel.Conflict(ConstraintPlate)
	}
	s.nextID++
	v.ID = s.nextID
	stored := *v
	s.byID[v.ID] = &stored
	s.byPlate[v.Plate] = v.ID
	return nil
}

// ListByProfile returns the profile's vehicles in registration order.
func (s *InMemoryVehicleStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Vehicle
	for _, v := range s.byID {
		if v.ProfileID == profileID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of registered vehicles.
func (s *InMemoryVehicleStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
