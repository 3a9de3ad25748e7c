// Package account implements the credential service on top of a store
// backend: registration with identity-uniqueness and format validation,
// password verification at login, and payload updates on behalf of the
// vault.
package account

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/cryptox"
	"github.com/vcompra/cartsync/internal/models"
	"github.com/vcompra/cartsync/internal/store"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

type Service struct {
	repo store.Repository
}

func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Register validates the identity fields, hashes the password and
// creates the account. The store reports common.ErrDuplicateIdentity
// when username or email is already taken; validation failures surface
// common.ErrValidation before the store is touched.
func (s *Service) Register(ctx context.Context, username, email string, password []byte) (*models.UserAccount, error) {
	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-20 alphanumeric or underscore characters", common.ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty password", common.ErrValidation)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.UserAccount{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login matches the identity by email and verifies the password.
// A store miss surfaces common.ErrNotFound and a failed verification
// common.ErrInvalidCredential; the session layer folds both into one
// uniform error before they reach callers.
func (s *Service) Login(ctx context.Context, email string, password []byte) (*models.UserAccount, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredential
	}
	return user, nil
}

// FindByID fetches an account on behalf of the vault.
func (s *Service) FindByID(ctx context.Context, id string) (*models.UserAccount, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdatePayload replaces the stored payload blob for the account and
// stamps LastSync with the current time. It returns the stamp so the
// caller can refresh its identity snapshot.
func (s *Service) UpdatePayload(ctx context.Context, id string, payload []byte, blobKey string) (time.Time, error) {
	syncedAt := time.Now().UTC()
	if err := s.repo.UpdatePayload(ctx, id, payload, blobKey, syncedAt); err != nil {
		return time.Time{}, err
	}
	return syncedAt, nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	return nil
}
