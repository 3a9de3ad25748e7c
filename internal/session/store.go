// Package session implements the session manager: the
// anonymous/authenticating/authenticated state machine, token issuance
// on register/login, and bootstrap from a persisted session document.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/filex"
	"github.com/vcompra/cartsync/internal/models"
)

// Store persists the session document between process runs.
type Store interface {
	// Load returns the persisted document or common.ErrNotFound.
	Load(ctx context.Context) (*models.SessionDoc, error)
	Save(ctx context.Context, doc *models.SessionDoc) error
	Clear(ctx context.Context) error
}

// FileStore keeps the session document in a JSON file, written
// atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*models.SessionDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("reading session document: %w", err)
	}

	doc := &models.SessionDoc{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding session document: %w", err)
	}
	return doc, nil
}

func (s *FileStore) Save(ctx context.Context, doc *models.SessionDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding session document: %w", err)
	}
	return filex.WriteFileAtomic(s.path, data, 0o600)
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session document: %w", err)
	}
	return nil
}

// MemoryStore is an in-process session store for tests and embedded
// callers that do not want persistence.
type MemoryStore struct {
	mu  sync.Mutex
	doc *models.SessionDoc
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) (*models.SessionDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, common.ErrNotFound
	}
	c := *s.doc
	return &c, nil
}

func (s *MemoryStore) Save(ctx context.Context, doc *models.SessionDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *doc
	s.doc = &c
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	return nil
}
