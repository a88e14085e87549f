package user

import (
	"context"
	"sort"
	"sync"

	"smartgate/internal/identity/models"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
)

// ConstraintEmail is the unique index on users.email.
const ConstraintEmail = "users_email_key"

// InMemoryUserStore is a thread-safe user store for tests and demos.
// Email uniqueness mirrors the PostgreSQL unique index.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	nextID  id.UserID
	byID    map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create assigns an ID and stores the user.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[user.Email]; taken {
		return sentinel.Conflict(ConstraintEmail)
	}
	s.nextID++
	user.ID = s.nextID
	stored := *user
	s.byID[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.byID[userID]
	return &out, nil
}

// Update replaces the stored user, keeping the email index consistent.
func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Email != user.Email {
		if owner, taken := s.byEmail[user.Email]; taken && owner != user.ID {
			return sentinel.Conflict(ConstraintEmail)
		}
		delete(s.byEmail, current.Email)
		s.byEmail[user.Email] = user.ID
	}
	stored := *user
	s.byID[user.ID] = &stored
	return nil
}

// List returns all users ordered by ID.
func (s *InMemoryUserStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.byID))
	for _, u := range s.byID {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByIDs returns the users with the given IDs; missing IDs are skipped.
func (s *InMemoryUserStore) FindByIDs(_ context.Context, ids []id.UserID) (map[id.UserID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.UserID]*models.User, len(ids))
	for _, userID := range ids {
		if u, ok := s.byID[userID]; ok {
			c := *u
			out[userID] = &c
		}
	}
	return out, nil
}
