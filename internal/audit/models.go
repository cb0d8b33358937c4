package audit

import "time"

// EventType labels integrity anomalies worth an operator's attention.
type EventType string

const (
	// EventTamperDetected: a stored payload no longer matches its
	// registered content hash.
	EventTamperDetected EventType = "tamper_detected"

	// EventLedgerDivergence: the ledger holds an entry with no local record
	// backing it.
	EventLedgerDivergence EventType = "ledger_divergence"

	// EventRegistrationFailed: the ledger rejected a registration; terminal.
	EventRegistrationFailed EventType = "registration_failed"

	// EventKindConflict: the same content hash was claimed by records of
	// different kinds.
	EventKindConflict EventType = "kind_conflict"
)

// Event is emitted from domain logic to capture integrity anomalies. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	OwnerID     string    `json:"owner_id,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	ContentHash string    `json:"content_hash"`
	Detail      string    `json:"detail,omitempty"`
}
