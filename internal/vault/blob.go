// Package vault implements the encrypted-at-rest storage for a user's
// dataset: serialization and AES-GCM encryption in front of the
// credential store, with ciphertext held either inline in the account
// record or in an external blob store.
package vault

import (
	"context"

	"github.com/vcompra/cartsync/internal/models"
)

// BlobStore decides where ciphertext lives. Store returns either an
// inline blob to embed in the account record or an external key
// locating the blob elsewhere; exactly one of the two is set.
type BlobStore interface {
	Store(ctx context.Context, userID string, blob []byte) (inline []byte, blobKey string, err error)
	Load(ctx context.Context, user *models.UserAccount) ([]byte, error)
}

// InlineBlobStore keeps ciphertext inside the account record, the
// baseline single-document design.
type InlineBlobStore struct{}

func (InlineBlobStore) Store(ctx context.Context, userID string, blob []byte) ([]byte, string, error) {
	return blob, "", nil
}

func (InlineBlobStore) Load(ctx context.Context, user *models.UserAccount) ([]byte, error) {
	return user.EncryptedPayload, nil
}
