// Package images persists drawing payloads. The engine only ever sees the
// opaque key a store returns; how bytes are kept is the store's business.
package images

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrImageNotFound means no image exists under the given key.
var ErrImageNotFound = errors.New("image not found")

// Store persists drawing payloads and returns retrievable references.
type Store interface {
	// Save persists the payload and returns its key.
	Save(data []byte) (string, error)
	// Load returns the payload for a key, or ErrImageNotFound.
	Load(key string) ([]byte, error)
	// Delete removes the payload. Missing keys are not an error.
	Delete(key string) error
}

// FileStore keeps payloads as flat files under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Save(data []byte) (string, error) {
	key := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(f.dir, key), data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

func (f *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.Base(key)))
	if os.IsNotExist(err) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *FileStore) Delete(key string) error {
	err := os.Remove(filepath.Join(f.dir, filepath.Base(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryStore keeps payloads in memory, for tests and storeless runs.
type MemoryStore struct {
	mu     sync.Mutex
	images map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: make(map[string][]byte)}
}

func (m *MemoryStore) Save(data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := uuid.NewString() + ".png"
	payload := make([]byte, len(data))
	copy(payload, data)
	m.images[key] = payload
	return key, nil
}

func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.images[key]
	if !ok {
		return nil, ErrImageNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, key)
	return nil
}
