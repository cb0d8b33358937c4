package record

import (
	"context"
	"sort"
	"sync"

	"veriledger/internal/consent"
	"veriledger/pkg/platform/sentinel"
)

// InMemoryStore keeps records in process memory. It backs tests and
// single-node deployments without a database; use PostgresStore otherwise.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	byOwner map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		byOwner: make(map[string][]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, ownerID, ownerPrincipal string, kind Kind, payload map[string]any, initialConsent consent.Status) (*Record, error) {
	rec, err := New(ownerID, ownerPrincipal, kind, payload, initialConsent)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	s.byOwner[ownerID] = append(s.byOwner[ownerID], rec.ID)
	return copyOf(rec), nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[id]; ok {
		return copyOf(rec), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[ownerID]
	out := make([]*Record, 0, len(ids))
	// IDs are appended in creation order; walk backwards for newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, copyOf(s.records[ids[i]]))
	}
	return out, nil
}

func (s *InMemoryStore) ListByHash(_ context.Context, hash string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, rec := range s.records {
		if rec.ContentHash == hash {
			out = append(out, copyOf(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, rec := range s.records {
		if rec.RegistrationStatus == RegistrationPending {
			out = append(out, copyOf(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) MarkRegistered(_ context.Context, id, ledgerRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.RegistrationStatus = Registered
	rec.LedgerRef = ledgerRef
	rec.FailureReason = ""
	return nil
}

func (s *InMemoryStore) MarkRegistrationFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.RegistrationStatus = RegistrationFailed
	rec.FailureReason = reason
	return nil
}

func (s *InMemoryStore) SetConsentByHash(_ context.Context, hash string, status consent.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ContentHash == hash {
			rec.ConsentStatus = status
		}
	}
	return nil
}

// copyOf shields status fields from aliasing. The payload map is shared
// deliberately: payloads are immutable by contract, and sharing lets tests
// simulate the out-of-band mutation that tamper detection exists to catch.
func copyOf(rec *Record) *Record {
	c := *rec
	return &c
}
