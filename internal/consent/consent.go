// Package consent is the pure state machine governing a ledger entry's sharing
// status. It has no dependencies beyond the standard library and raises only
// transition errors; classifying those into domain errors is the caller's job.
package consent

import (
	"errors"
	"fmt"
)

// Status is the consent state attached to a hash registry entry.
type Status string

const (
	StatusPending Status = "PENDING"
	// StatusTransactionPending is the initial status of financial record
	// registrations. For transition purposes it behaves like PENDING.
	StatusTransactionPending Status = "TRANSACTION_PENDING"
	StatusGranted            Status = "GRANTED"
	StatusRevoked            Status = "REVOKED"
	StatusRejected           Status = "REJECTED"
)

// Action is a requested consent change.
type Action string

const (
	ActionGrant  Action = "grant"
	ActionReject Action = "reject"
	ActionRevoke Action = "revoke"
)

// ErrInvalidTransition is returned when an action is not legal from the
// current status. REJECTED and REVOKED are terminal.
var ErrInvalidTransition = errors.New("invalid consent transition")

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionGrant, ActionReject, ActionRevoke:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTransactionPending, StatusGranted, StatusRevoked, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusRevoked || s == StatusRejected
}

// Denies reports whether s blocks verification of the associated hash.
func (s Status) Denies() bool {
	return s == StatusRevoked || s == StatusRejected
}

// Next returns the status reached by applying action to current.
//
//	PENDING             -> grant  -> GRANTED
//	PENDING             -> reject -> REJECTED
//	GRANTED             -> revoke -> REVOKED
//	TRANSACTION_PENDING behaves like PENDING.
//
// Every other combination returns ErrInvalidTransition.
func Next(current Status, action Action) (Status, error) {
	switch current {
	case StatusPending, StatusTransactionPending:
		switch action {
		case ActionGrant:
			return StatusGranted, nil
		case ActionReject:
			return StatusRejected, nil
		}
	case StatusGranted:
		if action == ActionRevoke {
			return StatusRevoked, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, action)
}

// Validate reports whether next is reachable from current in a single legal
// transition. Ledger clients use it to guard status updates.
func Validate(current, next Status) error {
	for _, action := range []Action{ActionGrant, ActionReject, ActionRevoke} {
		if got, err := Next(current, action); err == nil && got == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}
