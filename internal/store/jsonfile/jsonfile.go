// Package jsonfile is the baseline credential store backend: a flat
// JSON document holding the whole user collection, read and rewritten
// as a whole on every mutation. Matches the original single-process
// design; writes go through a temp-file rename so a document is never
// observed half-written.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/filex"
	"github.com/vcompra/cartsync/internal/models"
)

type Repository struct {
	path string
	mu   sync.Mutex
}

// NewRepository binds the store to a JSON file path. The file is
// created lazily on first write; a missing file reads as an empty
// collection.
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

func (r *Repository) Create(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, common.ErrDuplicateIdentity
		}
	}

	users = append(users, user.Clone())
	if err := r.save(users); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.UserAccount, error) {
	return r.find(ctx, func(u *models.UserAccount) bool { return u.ID == id })
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	return r.find(ctx, func(u *models.UserAccount) bool { return u.Email == email })
}

func (r *Repository) UpdatePayload(ctx context.Context, id string, payload []byte, blobKey string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	users, err := r.load()
	if err != nil {
		return err
	}

	for _, u := range users {
		if u.ID == id {
			u.EncryptedPayload = append([]byte(nil), payload...)
			u.BlobKey = blobKey
			t := syncedAt
			u.LastSync = &t
			return r.save(users)
		}
	}
	return common.ErrNotFound
}

func (r *Repository) Close() error { return nil }

func (r *Repository) find(ctx context.Context, match func(*models.UserAccount) bool) (*models.UserAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *Repository) load() ([]*models.UserAccount, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading user collection: %w", err)
	}

	var users []*models.UserAccount
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decoding user collection: %w", err)
	}
	return users, nil
}

func (r *Repository) save(users []*models.UserAccount) error {
	if users == nil {
		users = []*models.UserAccount{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user collection: %w", err)
	}
	return filex.WriteFileAtomic(r.path, data, 0o600)
}
