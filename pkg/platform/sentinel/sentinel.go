package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and ledger clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or ledger
// - ErrConflict: a uniqueness or kind constraint was violated
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: ledger or store temporarily unreachable; callers may retry
// - ErrRejected: the ledger refused the write; terminal, never retried
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrRejected     = errors.New("rejected")
)
