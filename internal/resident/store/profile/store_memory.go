package profile

import (
	"context"
	"sort"
	"strings"
	"sync"

	"smartgate/internal/resident/models"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
)

// Unique indexes on resident_profiles.
const (
	ConstraintUser       = "resident_profiles_user_id_key"
	ConstraintNationalID = "resident_profiles_dni_key"
)

// InMemoryProfileStore keeps profiles with the same uniqueness rules as the
// SQL schema: one profile per user, national ID unique once set.
type InMemoryProfileStore struct {
	mu         sync.RWMutex
	nextID     id.ProfileID
	byID       map[id.ProfileID]*models.Profile
	byUser     map[id.UserID]id.ProfileID
	byNational map[string]id.ProfileID
}

func New() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		byID:       make(map[id.ProfileID]*models.Profile),
		byUser:     make(map[id.UserID]id.ProfileID),
		byNational: make(map[string]id.ProfileID),
	}
}

func nationalKey(nationalID string) string {
	return strings.TrimSpace(nationalID)
}

func (s *InMemoryProfileStore) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUser[p.UserID]; taken {
		return sentinel.Conflict(ConstraintUser)
	}
	key := nationalKey(p.NationalID)
	if key != "" {
		if _, taken := s.byNational[key]; taken {
			return sentinel.Conflict(ConstraintNationalID)
		}
	}
	s.nextID++
	p.ID = s.nextID
	stored := *p
	s.byID[p.ID] = &stored
	s.byUser[p.UserID] = p.ID
	if key != "" {
		s.byNational[key] = p.ID
	}
	return nil
}

func (s *InMemoryProfileStore) FindByUserID(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profileID, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.byID[profileID]
	return &out, nil
}

func (s *InMemoryProfileStore) Update(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := nationalKey(current.NationalID), nationalKey(p.NationalID)
	if newKey != "" && newKey != oldKey {
		if owner, taken := s.byNational[newKey]; taken && owner != p.ID {
			return sentinel.Conflict(ConstraintNationalID)
		}
	}
	if oldKey != "" {
		delete(s.byNational, oldKey)
	}
	if newKey != "" {
		s.byNational[newKey] = p.ID
	}
	stored := *p
	stored.UserID = current.UserID
	s.byID[p.ID] = &stored
	return nil
}

// List returns all profiles ordered by ID.
func (s *InMemoryProfileStore) List(_ context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, 0, len(s.byID))
	for _, p := range s.byID {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
