package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caasmo/farmgate/db"
)

// memStore is an in-memory credential store with the same
// compare-and-swap semantics as the sql stores.
type memStore struct {
	mu      sync.Mutex
	byID    map[string]*db.User
	byEmail map[string]string
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*db.User{}, byEmail: map[string]string{}}
}

func (m *memStore) CreateUser(_ context.Context, u db.User) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return nil, db.ErrConstraintUnique
	}
	m.nextID++
	u.ID = fmt.Sprintf("user-%d", m.nextID)
	m.byID[u.ID] = &u
	m.byEmail[u.Email] = u.ID
	cp := u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memStore) GetUserById(_ context.Context, id string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdateLoginState(_ context.Context, id string, expected int, next db.LoginState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.LoginAttempts != expected {
		return false, nil
	}
	u.LoginAttempts = next.Attempts
	u.LastFailedLogin = next.LastFailed
	u.LockUntil = next.LockUntil
	return true, nil
}

func (m *memStore) RecordLogin(_ context.Context, id string, at time.Time, devices []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return db.ErrUserNotFound
	}
	u.LastLogin = at
	u.Devices = devices
	return nil
}

func (m *memStore) attempts(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].LoginAttempts
}
