package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/logging"
	"github.com/vcompra/cartsync/internal/models"
	"github.com/vcompra/cartsync/internal/session"
	"github.com/vcompra/cartsync/internal/vault"
)

// Result reports the outcome of a reconciliation operation.
type Result struct {
	// Dataset is the dataset the local side should now hold: the
	// uploaded one, the downloaded remote, or the merge product.
	Dataset models.Dataset

	// SyncedAt is the LastSync stamp written by the operation; zero
	// for Download, which does not mutate the remote side.
	SyncedAt time.Time

	// ClearLocal signals that the caller-side cache should be dropped
	// because its contents now live remotely.
	ClearLocal bool
}

// Engine reconciles a local dataset with the vault for the
// authenticated identity. Writes are serialized per account id: the
// store performs whole-document read-modify-writes, so two racing
// syncs for one account would lose updates.
type Engine struct {
	session *session.Manager
	vault   *vault.Vault
	cache   LocalCache // may be nil
	log     logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds an engine. cache may be nil when the caller manages local
// storage itself; HasUnsyncedLocalData then always reports false.
func New(sess *session.Manager, v *vault.Vault, cache LocalCache, log logging.Logger) *Engine {
	return &Engine{
		session: sess,
		vault:   v,
		cache:   cache,
		log:     log,
		locks:   map[string]*sync.Mutex{},
	}
}

// UploadLocalData unconditionally replaces the remote dataset with
// local. On success the local cache is cleared (and ClearLocal set for
// callers holding their own copy).
func (e *Engine) UploadLocalData(ctx context.Context, local models.Dataset) (*Result, error) {
	id, err := e.session.RequireIdentity()
	if err != nil {
		return nil, err
	}

	unlock := e.lockIdentity(id)
	defer unlock()

	syncedAt, err := e.vault.Save(ctx, id, local)
	if err != nil {
		return nil, err
	}
	e.session.NoteSync(ctx, syncedAt)

	if e.cache != nil {
		if err := e.cache.Clear(ctx); err != nil {
			e.log.Warn(ctx, "clearing local cache after upload failed", "error", err.Error())
		}
	}

	e.log.Info(ctx, "upload complete", "user", id, "records", len(local))
	return &Result{Dataset: local, SyncedAt: syncedAt, ClearLocal: true}, nil
}

// DownloadRemoteData unconditionally replaces the local dataset with
// the remote one. Refuses with common.ErrEmptyRemote when the remote
// has zero records, so a caller cannot silently wipe local data with
// nothing; the local cache is left untouched in that case.
func (e *Engine) DownloadRemoteData(ctx context.Context) (*Result, error) {
	id, err := e.session.RequireIdentity()
	if err != nil {
		return nil, err
	}

	unlock := e.lockIdentity(id)
	defer unlock()

	remote, err := e.vault.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(remote) == 0 {
		return nil, common.ErrEmptyRemote
	}

	if e.cache != nil {
		if err := e.cache.Replace(ctx, remote); err != nil {
			return nil, err
		}
	}

	e.log.Info(ctx, "download complete", "user", id, "records", len(remote))
	return &Result{Dataset: remote}, nil
}

// MergeLocalData writes back the union of remote and local,
// de-duplicated by record id with the remote copy winning collisions,
// and returns the merge product so the caller can adopt it locally.
func (e *Engine) MergeLocalData(ctx context.Context, local models.Dataset) (*Result, error) {
	id, err := e.session.RequireIdentity()
	if err != nil {
		return nil, err
	}

	unlock := e.lockIdentity(id)
	defer unlock()

	remote, err := e.vault.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := MergeDatasets(remote, local)

	syncedAt, err := e.vault.Save(ctx, id, merged)
	if err != nil {
		return nil, err
	}
	e.session.NoteSync(ctx, syncedAt)

	if e.cache != nil {
		if err := e.cache.Replace(ctx, merged); err != nil {
			e.log.Warn(ctx, "updating local cache after merge failed", "error", err.Error())
		}
	}

	e.log.Info(ctx, "merge complete", "user", id,
		"remote", len(remote), "local", len(local), "merged", len(merged))
	return &Result{Dataset: merged, SyncedAt: syncedAt}, nil
}

// HasUnsyncedLocalData probes the local cache boundary.
func (e *Engine) HasUnsyncedLocalData(ctx context.Context) (bool, error) {
	if e.cache == nil {
		return false, nil
	}
	return e.cache.Exists(ctx)
}

// SyncState derives the current synchronization view for the UI layer.
func (e *Engine) SyncState(ctx context.Context) (models.SyncState, error) {
	has, err := e.HasUnsyncedLocalData(ctx)
	if err != nil {
		return models.SyncState{}, err
	}
	return e.session.SyncState(has), nil
}

// MergeDatasets is the merge strategy as a pure function: remote is
// concatenated first, local second, and the first occurrence of each id
// is kept. On an id collision the remote record therefore wins,
// favoring previously-synced state over possibly-stale local edits.
// Order is preserved; duplicate ids within one input also collapse to
// their first occurrence.
func MergeDatasets(remote, local models.Dataset) models.Dataset {
	merged := make(models.Dataset, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)+len(local))

	for _, r := range remote {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, l := range local {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		merged = append(merged, l)
	}
	return merged
}

// lockIdentity serializes vault operations for one account id.
func (e *Engine) lockIdentity(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}
