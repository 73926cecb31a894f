package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/ports"
)

// MemoryDirectory is an in-memory UserDirectory for tests and dev mode.
type MemoryDirectory struct {
	mu    sync.Mutex
	users map[string]core.User // keyed by id
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]core.User)}
}

func (d *MemoryDirectory) GetByWallet(_ context.Context, walletAddress string) (core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.WalletAddress == walletAddress && walletAddress != "" {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (d *MemoryDirectory) GetByEmail(_ context.Context, email string) (core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email && email != "" {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (d *MemoryDirectory) GetByID(_ context.Context, id string) (core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return core.User{}, core.ErrUserNotFound
}

func (d *MemoryDirectory) Create(_ context.Context, user core.User) (core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == user.Email && user.Email != "" {
			return core.User{}, core.ErrEmailTaken
		}
	}
	return d.insertLocked(user), nil
}

func (d *MemoryDirectory) CreateWalletUser(_ context.Context, user core.User) (core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.WalletAddress == user.WalletAddress {
			return u, nil
		}
	}
	return d.insertLocked(user), nil
}

// Count reports how many users exist. Tests only.
func (d *MemoryDirectory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

func (d *MemoryDirectory) insertLocked(user core.User) core.User {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	d.users[user.ID] = user
	return user
}

var _ ports.UserDirectory = (*MemoryDirectory)(nil)
