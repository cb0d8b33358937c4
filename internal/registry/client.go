// Package registry wraps the external hash ledger behind a small client
// interface. The ledger is an opaque key-value registry: the core is agnostic
// to its transport and consensus mechanism.
package registry

import (
	"context"

	"veriledger/internal/consent"
)

// Client is the ledger boundary. Implementations return
// pkg/platform/sentinel errors:
//
//   - sentinel.ErrUnavailable for transient network/timeout failures; the
//     caller retries with backoff and the record stays pending.
//   - sentinel.ErrRejected when the ledger refused the write; terminal.
//   - sentinel.ErrNotFound from Fetch/UpdateStatus for unknown hashes.
//   - consent.ErrInvalidTransition (wrapped) from UpdateStatus for illegal
//     status changes.
type Client interface {
	// RegisterIfAbsent atomically creates an entry for hash unless one
	// already exists, in which case the existing entry is returned unchanged.
	// Idempotent: retried submissions after a timeout must never create
	// divergent entries.
	RegisterIfAbsent(ctx context.Context, hash string, initialStatus consent.Status, ownerPrincipal string) (*Entry, error)

	// Fetch returns the entry for hash, or sentinel.ErrNotFound.
	Fetch(ctx context.Context, hash string) (*Entry, error)

	// UpdateStatus moves the entry's status to next, validating the
	// transition against the consent state machine.
	UpdateStatus(ctx context.Context, hash string, next consent.Status) (*Entry, error)
}
