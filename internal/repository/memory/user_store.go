// Package memory provides map-backed implementations of the repository
// interfaces for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"task_manager/internal/model"
	"task_manager/internal/repository"
)

// UserStore keeps users in memory keyed by id
type UserStore struct {
	mu     sync.RWMutex
	users  map[int64]model.User
	nextID int64
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]model.User)}
}

var _ repository.UserRepository = (*UserStore)(nil)

// Create holds the write lock across the uniqueness checks, the role
// decision and the insert, so the first admin is decided exactly once.
func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}

	user.Role = model.RoleUser
	if len(s.users) == 0 {
		user.Role = model.RoleAdmin
	}

	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u model.User) bool { return u.Email == email }), nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u model.User) bool { return u.Username == username }), nil
}

func (s *UserStore) FindByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) find(match func(model.User) bool) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *UserStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *UserStore) usernameOf(id int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id].Username
}
