// Package store defines the credential store boundary: a repository of
// user accounts keyed by id, with uniqueness enforced over username and
// email. Backends live in subpackages (jsonfile, bolt, postgres).
package store

import (
	"context"
	"time"

	"github.com/vcompra/cartsync/internal/models"
)

// Repository is implemented by every credential store backend.
//
// Contract:
//   - Create fails with common.ErrDuplicateIdentity when an account
//     with the same username OR email already exists (case-sensitive).
//   - FindByID / FindByEmail fail with common.ErrNotFound on a miss.
//   - UpdatePayload atomically replaces the stored payload blob (or
//     blob key) and stamps LastSync; it never partially writes.
type Repository interface {
	Create(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error)
	FindByID(ctx context.Context, id string) (*models.UserAccount, error)
	FindByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	UpdatePayload(ctx context.Context, id string, payload []byte, blobKey string, syncedAt time.Time) error
	Close() error
}
