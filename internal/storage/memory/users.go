package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type UserRepository struct {
	store *Store
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, taken := r.store.emails[key]; taken {
		return user.ErrEmailExists
	}

	id, _, err := r.store.nextID()
	if err != nil {
		return fmt.Errorf("repository: failed to generate user id: %w", err)
	}
	now := r.store.now().UTC()
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	r.store.users[id] = *u
	r.store.emails[key] = id
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.emails[strings.ToLower(email)]
	if !ok {
		return nil, user.ErrNotFound
	}
	u := r.store.users[id]
	return &u, nil
}

func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.users)), nil
}
