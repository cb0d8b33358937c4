package record

import (
	"context"

	"veriledger/internal/consent"
)

// Store owns local records and their registration lifecycle. It knows nothing
// about the ledger; status transitions are driven by the reconciliation
// service. Implementations return pkg/platform/sentinel errors for
// infrastructure facts.
type Store interface {
	// Create validates, hashes and persists a new record in
	// PENDING_REGISTRATION.
	Create(ctx context.Context, ownerID, ownerPrincipal string, kind Kind, payload map[string]any, initialConsent consent.Status) (*Record, error)

	// Get returns a record by ID, or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Record, error)

	// ListByHash returns all records whose content hash equals hash.
	ListByHash(ctx context.Context, hash string) ([]*Record, error)

	// ListPending returns records stuck in PENDING_REGISTRATION, oldest
	// first, for the repair sweeper.
	ListPending(ctx context.Context) ([]*Record, error)

	// MarkRegistered transitions a record to REGISTERED. Status fields only;
	// payload and content hash are never touched.
	MarkRegistered(ctx context.Context, id, ledgerRef string) error

	// MarkRegistrationFailed transitions a record to REGISTRATION_FAILED
	// with the terminal reason.
	MarkRegistrationFailed(ctx context.Context, id, reason string) error

	// SetConsentByHash mirrors a ledger consent change onto every local
	// record sharing the hash. Zero matches is not an error; the ledger may
	// hold entries this node never stored locally.
	SetConsentByHash(ctx context.Context, hash string, status consent.Status) error
}
