package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(filepath.Join(t.TempDir(), "users.json"))
}

func testAccount(id, username, email string) *models.UserAccount {
	return &models.UserAccount{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$12$fakefakefakefakefakefake",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestCreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount("u1", "alice", "a@x.com"))
	require.NoError(t, err)

	byID, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	assert.Nil(t, byEmail.LastSync)
}

func TestCreate_DuplicateUsernameOrEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount("u1", "alice", "a@x.com"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, testAccount("u2", "alice", "other@x.com"))
	assert.True(t, errors.Is(err, common.ErrDuplicateIdentity), "duplicate username")

	_, err = repo.Create(ctx, testAccount("u3", "bob", "a@x.com"))
	assert.True(t, errors.Is(err, common.ErrDuplicateIdentity), "duplicate email")

	// first account unaffected
	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestCreate_CaseSensitiveMatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount("u1", "alice", "a@x.com"))
	require.NoError(t, err)

	// baseline matches case-sensitively, so this is a distinct identity
	_, err = repo.Create(ctx, testAccount("u2", "Alice", "A@x.com"))
	require.NoError(t, err)
}

func TestFind_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = repo.FindByEmail(ctx, "nope@x.com")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestUpdatePayload(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount("u1", "alice", "a@x.com"))
	require.NoError(t, err)

	syncedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdatePayload(ctx, "u1", []byte("ciphertext"), "", syncedAt))

	u, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), u.EncryptedPayload)
	require.NotNil(t, u.LastSync)
	assert.True(t, u.LastSync.Equal(syncedAt))
}

func TestUpdatePayload_UnknownID(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdatePayload(context.Background(), "ghost", []byte("x"), "", time.Now())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	first := NewRepository(path)
	_, err := first.Create(ctx, testAccount("u1", "alice", "a@x.com"))
	require.NoError(t, err)

	second := NewRepository(path)
	u, err := second.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestCanceledContext(t *testing.T) {
	repo := newTestRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, testAccount("u1", "alice", "a@x.com"))
	assert.Error(t, err)
}
