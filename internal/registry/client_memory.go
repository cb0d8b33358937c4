package registry

import (
	"context"
	"sync"
	"time"

	"veriledger/internal/consent"
	"veriledger/pkg/platform/sentinel"
)

// InMemoryClient is a process-local ledger. The mutex makes RegisterIfAbsent
// an atomic create-if-absent, which is the single source of truth for "does
// this hash already exist" when no external ledger is configured.
type InMemoryClient struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{entries: make(map[string]*Entry)}
}

func (c *InMemoryClient) RegisterIfAbsent(_ context.Context, hash string, initialStatus consent.Status, ownerPrincipal string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[hash]; ok {
		e := *existing
		return &e, nil
	}
	entry := &Entry{
		ContentHash:    hash,
		Status:         initialStatus,
		OwnerPrincipal: ownerPrincipal,
		RegisteredAt:   time.Now().UTC(),
	}
	c.entries[hash] = entry
	e := *entry
	return &e, nil
}

func (c *InMemoryClient) Fetch(_ context.Context, hash string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[hash]; ok {
		e := *entry
		return &e, nil
	}
	return nil, sentinel.ErrNotFound
}

func (c *InMemoryClient) UpdateStatus(_ context.Context, hash string, next consent.Status) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := consent.Validate(entry.Status, next); err != nil {
		return nil, err
	}
	entry.Status = next
	e := *entry
	return &e, nil
}
