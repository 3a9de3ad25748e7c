package vault

import (
	"context"
	"time"

	"github.com/vcompra/cartsync/internal/account"
	"github.com/vcompra/cartsync/internal/cryptox"
	"github.com/vcompra/cartsync/internal/logging"
	"github.com/vcompra/cartsync/internal/models"
)

type Vault struct {
	accounts     *account.Service
	blobs        BlobStore
	masterSecret []byte
	log          logging.Logger
}

// New builds a vault over the credential service. The master secret
// comes from configuration; each account encrypts under its own key
// derived from the secret and the account id.
func New(accounts *account.Service, blobs BlobStore, masterSecret []byte, log logging.Logger) *Vault {
	return &Vault{
		accounts:     accounts,
		blobs:        blobs,
		masterSecret: masterSecret,
		log:          log,
	}
}

// Save serializes and encrypts the dataset, stores the ciphertext and
// stamps the account's LastSync. The write is a single UpdatePayload
// call, so from the caller's perspective the blob is replaced
// atomically or not at all.
func (v *Vault) Save(ctx context.Context, identity string, dataset models.Dataset) (time.Time, error) {
	if dataset == nil {
		dataset = models.Dataset{}
	}

	key := cryptox.DeriveUserKey(v.masterSecret, identity)
	blob, err := cryptox.EncryptPayload(dataset, key)
	if err != nil {
		return time.Time{}, err
	}

	inline, blobKey, err := v.blobs.Store(ctx, identity, blob)
	if err != nil {
		return time.Time{}, err
	}

	syncedAt, err := v.accounts.UpdatePayload(ctx, identity, inline, blobKey)
	if err != nil {
		return time.Time{}, err
	}

	v.log.Info(ctx, "vault write complete", "user", identity, "records", len(dataset))
	return syncedAt, nil
}

// Load fetches and decrypts the account's dataset. An absent payload
// yields an empty dataset, not an error; an unreadable one surfaces
// common.ErrDecryption so callers can tell "no data" from "unreadable
// data".
func (v *Vault) Load(ctx context.Context, identity string) (models.Dataset, error) {
	user, err := v.accounts.FindByID(ctx, identity)
	if err != nil {
		return nil, err
	}

	if len(user.EncryptedPayload) == 0 && user.BlobKey == "" {
		return models.Dataset{}, nil
	}

	blob, err := v.blobs.Load(ctx, user)
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveUserKey(v.masterSecret, identity)
	var dataset models.Dataset
	if err := cryptox.DecryptPayload(blob, key, &dataset); err != nil {
		return nil, err
	}
	return dataset, nil
}
