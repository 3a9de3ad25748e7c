package syncer

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcompra/cartsync/internal/account"
	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/logging"
	"github.com/vcompra/cartsync/internal/models"
	"github.com/vcompra/cartsync/internal/session"
	"github.com/vcompra/cartsync/internal/store/jsonfile"
	"github.com/vcompra/cartsync/internal/vault"
)

// countingBlobStore wraps the inline store to observe vault traffic.
type countingBlobStore struct {
	vault.InlineBlobStore
	mu     sync.Mutex
	stores int
	loads  int
}

func (c *countingBlobStore) Store(ctx context.Context, userID string, blob []byte) ([]byte, string, error) {
	c.mu.Lock()
	c.stores++
	c.mu.Unlock()
	return c.InlineBlobStore.Store(ctx, userID, blob)
}

func (c *countingBlobStore) Load(ctx context.Context, user *models.UserAccount) ([]byte, error) {
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	return c.InlineBlobStore.Load(ctx, user)
}

type testEnv struct {
	engine   *Engine
	manager  *session.Manager
	accounts *account.Service
	cache    *MemoryCache
	blobs    *countingBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := jsonfile.NewRepository(filepath.Join(t.TempDir(), "users.json"))
	accounts := account.NewService(repo)
	log := logging.NewJSONLogger(io.Discard)
	blobs := &countingBlobStore{}
	v := vault.New(accounts, blobs, []byte("master-secret"), log)
	mgr := session.NewManager(accounts, session.NewMemoryStore(), []byte("token-secret"), time.Hour, log)
	cache := NewMemoryCache()
	return &testEnv{
		engine:   New(mgr, v, cache, log),
		manager:  mgr,
		accounts: accounts,
		cache:    cache,
		blobs:    blobs,
	}
}

func (e *testEnv) login(t *testing.T) *models.UserAccount {
	t.Helper()
	u, err := e.manager.Register(context.Background(), "alice", "a@x.com", []byte("pw1"))
	require.NoError(t, err)
	return u
}

func ds(pairs ...[2]string) models.Dataset {
	d := models.Dataset{}
	for _, p := range pairs {
		d = append(d, models.NewRecord(p[0], map[string]any{"v": p[1]}))
	}
	return d
}

func ids(d models.Dataset) []string {
	out := make([]string, 0, len(d))
	for _, r := range d {
		out = append(out, r.ID)
	}
	return out
}

func TestAuthGating_NoVaultTraffic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.UploadLocalData(ctx, ds([2]string{"1", "l"}))
	assert.True(t, errors.Is(err, common.ErrUnauthenticated))

	_, err = env.engine.DownloadRemoteData(ctx)
	assert.True(t, errors.Is(err, common.ErrUnauthenticated))

	_, err = env.engine.MergeLocalData(ctx, ds())
	assert.True(t, errors.Is(err, common.ErrUnauthenticated))

	assert.Zero(t, env.blobs.stores, "no vault write while anonymous")
	assert.Zero(t, env.blobs.loads, "no vault read while anonymous")
}

func TestUpload_ReplacesRemoteAndClearsLocal(t *testing.T) {
	env := newTestEnv(t)
	u := env.login(t)
	ctx := context.Background()

	require.NoError(t, env.cache.Replace(ctx, ds([2]string{"1", "l"})))

	res, err := env.engine.UploadLocalData(ctx, ds([2]string{"1", "l"}, [2]string{"2", "l"}))
	require.NoError(t, err)
	assert.True(t, res.ClearLocal)
	assert.False(t, res.SyncedAt.IsZero())

	// cache cleared
	has, err := env.engine.HasUnsyncedLocalData(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	// remote now holds the uploaded dataset
	dl, err := env.engine.DownloadRemoteData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(dl.Dataset))

	// identity snapshot advanced
	current, ok := env.manager.Current()
	require.True(t, ok)
	require.NotNil(t, current.LastSync)
	assert.Equal(t, u.ID, current.ID)
}

func TestDownload_EmptyRemoteGuard(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	local := ds([2]string{"1", "precious"})
	require.NoError(t, env.cache.Replace(ctx, local))

	_, err := env.engine.DownloadRemoteData(ctx)
	assert.True(t, errors.Is(err, common.ErrEmptyRemote))

	// local cache untouched
	got, err := env.cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestDownload_DoesNotAdvanceLastSync(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	res, err := env.engine.UploadLocalData(ctx, ds([2]string{"1", "r"}))
	require.NoError(t, err)
	uploadedAt := res.SyncedAt

	dl, err := env.engine.DownloadRemoteData(ctx)
	require.NoError(t, err)
	assert.True(t, dl.SyncedAt.IsZero())

	current, ok := env.manager.Current()
	require.True(t, ok)
	require.NotNil(t, current.LastSync)
	assert.True(t, current.LastSync.Equal(uploadedAt), "download must not move LastSync")
}

func TestMerge_TieBreakRemoteWins(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	_, err := env.engine.UploadLocalData(ctx, ds([2]string{"1", "r"}))
	require.NoError(t, err)

	res, err := env.engine.MergeLocalData(ctx, ds([2]string{"1", "l"}))
	require.NoError(t, err)

	require.Len(t, res.Dataset, 1)
	assert.Equal(t, "1", res.Dataset[0].ID)
	assert.Equal(t, "r", res.Dataset[0].Fields["v"], "remote record must win the collision")
}

func TestMerge_DedupAcrossSources(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	_, err := env.engine.UploadLocalData(ctx, ds([2]string{"1", "r"}, [2]string{"2", "r"}))
	require.NoError(t, err)

	res, err := env.engine.MergeLocalData(ctx, ds([2]string{"2", "l"}, [2]string{"3", "l"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(res.Dataset))
	assert.Equal(t, "r", res.Dataset[1].Fields["v"])
}

func TestMerge_WritesBackAndAdvancesLastSync(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	res, err := env.engine.MergeLocalData(ctx, ds([2]string{"1", "l"}))
	require.NoError(t, err)
	assert.False(t, res.SyncedAt.IsZero())

	dl, err := env.engine.DownloadRemoteData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(dl.Dataset))

	// cache adopted the merge product
	got, err := env.cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestMergeDatasets_Properties(t *testing.T) {
	remote := ds([2]string{"1", "r"}, [2]string{"2", "r"})
	local := ds([2]string{"2", "l"}, [2]string{"3", "l"})

	once := MergeDatasets(remote, local)
	assert.Equal(t, []string{"1", "2", "3"}, ids(once))

	// pure function of its inputs: applying twice changes nothing
	twice := MergeDatasets(once, local)
	assert.Equal(t, once, twice)
	assert.Equal(t, once, MergeDatasets(remote, local))
}

func TestMergeDatasets_DuplicateIDsWithinOneSource(t *testing.T) {
	local := ds([2]string{"1", "first"}, [2]string{"1", "second"})

	merged := MergeDatasets(nil, local)
	require.Len(t, merged, 1)
	assert.Equal(t, "first", merged[0].Fields["v"], "first occurrence must be kept")
}

func TestMergeDatasets_EmptySides(t *testing.T) {
	assert.Empty(t, MergeDatasets(nil, nil))
	assert.Equal(t, []string{"1"}, ids(MergeDatasets(ds([2]string{"1", "r"}), nil)))
	assert.Equal(t, []string{"1"}, ids(MergeDatasets(nil, ds([2]string{"1", "l"}))))
}

func TestConcurrentMerges_SameIdentityDoNotLoseRecords(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	_, err := env.engine.UploadLocalData(ctx, ds([2]string{"base", "r"}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	locals := []models.Dataset{
		ds([2]string{"a", "l"}),
		ds([2]string{"b", "l"}),
		ds([2]string{"c", "l"}),
	}
	for _, local := range locals {
		wg.Add(1)
		go func(d models.Dataset) {
			defer wg.Done()
			_, err := env.engine.MergeLocalData(ctx, d)
			assert.NoError(t, err)
		}(local)
	}
	wg.Wait()

	res, err := env.engine.DownloadRemoteData(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"base", "a", "b", "c"}, ids(res.Dataset),
		"serialized merges must not lose concurrent updates")
}

func TestSyncState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	st, err := env.engine.SyncState(ctx)
	require.NoError(t, err)
	assert.False(t, st.HasLocalData)
	assert.Nil(t, st.LastSync)

	require.NoError(t, env.cache.Replace(ctx, ds([2]string{"1", "l"})))
	env.login(t)

	st, err = env.engine.SyncState(ctx)
	require.NoError(t, err)
	assert.True(t, st.HasLocalData)
	assert.Nil(t, st.LastSync, "no sync happened yet")

	_, err = env.engine.UploadLocalData(ctx, ds([2]string{"1", "l"}))
	require.NoError(t, err)

	st, err = env.engine.SyncState(ctx)
	require.NoError(t, err)
	assert.False(t, st.HasLocalData)
	assert.NotNil(t, st.LastSync)
}

func TestMemoryCache_LoadedRecordsDoNotAliasCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Replace(ctx, ds([2]string{"1", "orig"})))

	got, err := cache.Load(ctx)
	require.NoError(t, err)
	got[0].Fields["v"] = "mutated"

	again, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orig", again[0].Fields["v"], "cache contents must not follow caller mutations")
}

func TestMemoryCache_ReplaceCopiesInput(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	in := ds([2]string{"1", "orig"})
	require.NoError(t, cache.Replace(ctx, in))
	in[0].Fields["v"] = "mutated"

	got, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orig", got[0].Fields["v"])
}

func TestFileCache(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "local.json"))
	ctx := context.Background()

	has, err := cache.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	got, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, cache.Replace(ctx, ds([2]string{"1", "x"})))

	has, err = cache.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	got, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))

	require.NoError(t, cache.Clear(ctx))
	has, err = cache.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}
