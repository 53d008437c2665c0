package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/vnkhanh/podcastr-backend/apperrors"
)

// Memory is an in-process BlobStore for local runs and tests. It records
// every delete so callers can assert on the order of releases.
type Memory struct {
	baseURL string

	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	// FailDeleteOf makes Delete return an error for this ref.
	FailDeleteOf string
}

func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (m *Memory) Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = append([]byte(nil), data...)
	return objectPath, nil
}

func (m *Memory) URL(ref string) string {
	return m.baseURL + "/" + ref
}

func (m *Memory) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ref)
	if ref != "" && ref == m.FailDeleteOf {
		return apperrors.ExternalService("blob storage", nil)
	}
	delete(m.objects, ref)
	return nil
}

// Has reports whether ref is currently stored.
func (m *Memory) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ref]
	return ok
}

// Deleted returns the refs passed to Delete, in call order.
func (m *Memory) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
