package registry

import (
	"time"

	"veriledger/internal/consent"
)

// Entry is a ledger registration: one entry per unique content hash, created
// once and never deleted. After creation only Status may change, and only
// along the consent state machine's legal transitions.
type Entry struct {
	ContentHash    string         `json:"content_hash"`
	Status         consent.Status `json:"status"`
	OwnerPrincipal string         `json:"owner_principal"`
	RegisteredAt   time.Time      `json:"registered_at"`
}
