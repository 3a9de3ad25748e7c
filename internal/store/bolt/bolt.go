// Package bolt is a bbolt-backed credential store backend: one file,
// accounts keyed by id, with username/email uniqueness enforced through
// index buckets inside the same write transaction.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/models"
)

// Bucket names
var (
	usersBucket    = []byte("users")        // id -> JSON account
	usernameBucket = []byte("idx_username") // username -> id
	emailBucket    = []byte("idx_email")    // email -> id
)

type Repository struct {
	db *bbolt.DB
}

// Open opens or creates the store file and ensures the bucket layout.
func Open(path string) (*Repository, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{usersBucket, usernameBucket, emailBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) Create(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(usernameBucket).Get([]byte(user.Username)) != nil {
			return common.ErrDuplicateIdentity
		}
		if tx.Bucket(emailBucket).Get([]byte(user.Email)) != nil {
			return common.ErrDuplicateIdentity
		}

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encoding account: %w", err)
		}
		if err := tx.Bucket(usersBucket).Put([]byte(user.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(usernameBucket).Put([]byte(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return tx.Bucket(emailBucket).Put([]byte(user.Email), []byte(user.ID))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *models.UserAccount
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(usersBucket).Get([]byte(id))
		if data == nil {
			return common.ErrNotFound
		}
		user = &models.UserAccount{}
		return json.Unmarshal(data, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *models.UserAccount
	err := r.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(emailBucket).Get([]byte(email))
		if id == nil {
			return common.ErrNotFound
		}
		data := tx.Bucket(usersBucket).Get(id)
		if data == nil {
			return common.ErrNotFound
		}
		user = &models.UserAccount{}
		return json.Unmarshal(data, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) UpdatePayload(ctx context.Context, id string, payload []byte, blobKey string, syncedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return common.ErrNotFound
		}

		user := &models.UserAccount{}
		if err := json.Unmarshal(data, user); err != nil {
			return fmt.Errorf("decoding account: %w", err)
		}

		user.EncryptedPayload = payload
		user.BlobKey = blobKey
		t := syncedAt
		user.LastSync = &t

		updated, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encoding account: %w", err)
		}
		return b.Put([]byte(id), updated)
	})
}
