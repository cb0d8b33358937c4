package record

import (
	"time"

	"github.com/google/uuid"

	"veriledger/internal/consent"
	"veriledger/pkg/canonical"
	domainerrors "veriledger/pkg/domain-errors"
)

// Kind distinguishes the two record families. The content hash namespace is
// shared across kinds: the same hash claimed by both kinds is a conflict,
// never a merge.
type Kind string

const (
	KindHealth    Kind = "health"
	KindFinancial Kind = "financial"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindHealth || k == KindFinancial
}

// RegistrationStatus tracks where a record sits relative to the ledger.
type RegistrationStatus string

const (
	// RegistrationPending means the local record exists but its hash has not
	// been confirmed on the ledger. Safe to re-submit; repaired on a schedule.
	RegistrationPending RegistrationStatus = "PENDING_REGISTRATION"

	// Registered means the ledger holds an entry for the record's hash. Only
	// registered records are eligible for verification.
	Registered RegistrationStatus = "REGISTERED"

	// RegistrationFailed means the ledger rejected the write. Terminal.
	RegistrationFailed RegistrationStatus = "REGISTRATION_FAILED"
)

// Record is a locally persisted health or financial record. Payload and
// ContentHash are immutable after creation: edits require a new record with a
// new hash, otherwise ledger divergence would be undetectable.
type Record struct {
	ID                 string             `json:"id"`
	OwnerID            string             `json:"owner_id"`
	OwnerPrincipal     string             `json:"owner_principal"`
	Kind               Kind               `json:"kind"`
	Payload            map[string]any     `json:"payload"`
	ConsentStatus      consent.Status     `json:"consent_status"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
	ContentHash        string             `json:"content_hash"`
	LedgerRef          string             `json:"ledger_ref,omitempty"`
	FailureReason      string             `json:"failure_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// New validates inputs, computes the content hash and returns a record in
// PENDING_REGISTRATION. The hash covers exactly the payload; owner identity is
// carried alongside but not hashed. An empty ownerPrincipal defaults to
// ownerID so single-identity deployments need not distinguish the two.
func New(ownerID, ownerPrincipal string, kind Kind, payload map[string]any, initialConsent consent.Status) (*Record, error) {
	if ownerID == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "ownerID is required")
	}
	if ownerPrincipal == "" {
		ownerPrincipal = ownerID
	}
	if !kind.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "unknown record kind: "+string(kind))
	}
	if len(payload) == 0 {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "payload must not be empty")
	}
	if !initialConsent.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "invalid consent status: "+string(initialConsent))
	}

	hash, err := canonical.Hash(payload)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "payload cannot be canonicalized")
	}

	return &Record{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		OwnerPrincipal:     ownerPrincipal,
		Kind:               kind,
		Payload:            payload,
		ConsentStatus:      initialConsent,
		RegistrationStatus: RegistrationPending,
		ContentHash:        hash,
		CreatedAt:          time.Now().UTC(),
	}, nil
}
