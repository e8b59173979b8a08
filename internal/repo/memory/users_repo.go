package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is the DB-free twin of the postgres repo, used by tests and by
// dev mode when no database is reachable.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func cloneUser(u user.User) user.User {
	u.Tokens = slices.Clone(u.Tokens)
	u.Avatar = slices.Clone(u.Avatar)
	return u
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string, age int) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, email) {
			return user.User{}, user.ErrEmailTaken
		}
	}

	now := time.Now()
	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Age:          age,
		Tokens:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u

	return cloneUser(u), nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return cloneUser(u), nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		out = append(out, cloneUser(u))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if req.Email != nil {
		for otherID, other := range r.items {
			if otherID != id && strings.EqualFold(other.Email, *req.Email) {
				return user.User{}, user.ErrEmailTaken
			}
		}
		u.Email = *req.Email
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	if req.Age != nil {
		u.Age = *req.Age
	}

	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}

	u.UpdatedAt = time.Now()
	r.items[id] = u

	return cloneUser(u), nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)

	return nil
}

func (r *UsersRepo) AddToken(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	u.Tokens = append(u.Tokens, token)
	u.UpdatedAt = time.Now()
	r.items[userID] = u

	return nil
}

func (r *UsersRepo) RemoveToken(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	kept := u.Tokens[:0]

	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}

	u.Tokens = kept
	u.UpdatedAt = time.Now()
	r.items[userID] = u

	return nil
}

func (r *UsersRepo) ClearTokens(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	u.Tokens = []string{}
	u.UpdatedAt = time.Now()
	r.items[userID] = u

	return nil
}

func (r *UsersRepo) SetAvatar(ctx context.Context, userID string, avatar []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	u.Avatar = slices.Clone(avatar)
	u.UpdatedAt = time.Now()
	r.items[userID] = u

	return nil
}

func (r *UsersRepo) GetAvatar(ctx context.Context, userID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[userID]
	if !ok || len(u.Avatar) == 0 {
		return nil, user.ErrNotFound
	}

	return slices.Clone(u.Avatar), nil
}

func (r *UsersRepo) ClearAvatar(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	u.Avatar = nil
	u.UpdatedAt = time.Now()
	r.items[userID] = u

	return nil
}
