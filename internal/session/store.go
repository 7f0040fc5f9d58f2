// Package session holds the single authenticated user of the running process.
package session

import (
	"sync"

	"github.com/sahilkamalny/flavorbot/internal/model"
)

// Store caches at most one user. All methods are safe for concurrent use and
// never block on anything but the store's own lock.
type Store struct {
	mu   sync.RWMutex
	user *model.User
}

// New returns an empty store.
func New() *Store { return &Store{} }

// Set replaces the cached user with a deep copy of u.
func (s *Store) Set(u model.User) {
	c := u.Clone()
	s.mu.Lock()
	s.user = &c
	s.mu.Unlock()
}

// Get returns a copy of the cached user and whether one is present.
func (s *Store) Get() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return s.user.Clone(), true
}

// Replace swaps in u only while the cached user still has the given id.
// It reports false when the session was cleared or switched meanwhile.
func (s *Store) Replace(id int64, u model.User) bool {
	c := u.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != id {
		return false
	}
	s.user = &c
	return true
}

// Clear drops the cached user. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// IsActive reports whether a user is cached.
func (s *Store) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}
