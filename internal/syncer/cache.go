// Package syncer implements the reconciliation engine: upload,
// download and merge strategies between a caller-supplied local dataset
// and the vault-held remote copy.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vcompra/cartsync/internal/filex"
	"github.com/vcompra/cartsync/internal/models"
)

// LocalCache is the boundary to the client-side dataset storage the
// core does not own. All methods are optional conveniences: the engine
// works without a cache, in which case callers move datasets in and
// out themselves. Load hands back an independent dataset: mutating a
// returned record must never alter what the cache holds.
type LocalCache interface {
	// Exists reports whether an unsynced local dataset is present.
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) (models.Dataset, error)
	Replace(ctx context.Context, dataset models.Dataset) error
	Clear(ctx context.Context) error
}

// FileCache stores the local dataset as a JSON array in a single file,
// the shape the original client kept in browser storage.
type FileCache struct {
	path string
	mu   sync.Mutex
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) Exists(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *FileCache) Load(ctx context.Context) (models.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Dataset{}, nil
		}
		return nil, fmt.Errorf("reading local cache: %w", err)
	}

	var dataset models.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("decoding local cache: %w", err)
	}
	return dataset, nil
}

func (c *FileCache) Replace(ctx context.Context, dataset models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if dataset == nil {
		dataset = models.Dataset{}
	}
	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("encoding local cache: %w", err)
	}
	return filex.WriteFileAtomic(c.path, data, 0o600)
}

func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing local cache: %w", err)
	}
	return nil
}

// MemoryCache is an in-process LocalCache for tests and embedded use.
type MemoryCache struct {
	mu      sync.Mutex
	dataset models.Dataset
	present bool
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Exists(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present, nil
}

func (c *MemoryCache) Load(ctx context.Context) (models.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.present {
		return models.Dataset{}, nil
	}
	// Deep copy: a caller mutating a returned record must not reach
	// back into the cached one.
	return c.dataset.Clone(), nil
}

func (c *MemoryCache) Replace(ctx context.Context, dataset models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dataset == nil {
		dataset = models.Dataset{}
	}
	c.dataset = dataset.Clone()
	c.present = true
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = nil
	c.present = false
	return nil
}
