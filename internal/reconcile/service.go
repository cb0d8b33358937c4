// Package reconcile orchestrates the two ledgers: local record storage on one
// side and the external hash registry on the other. It owns submission,
// verification, consent changes and the repair of pending registrations.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"veriledger/internal/audit"
	"veriledger/internal/consent"
	"veriledger/internal/platform/metrics"
	"veriledger/internal/record"
	"veriledger/internal/registry"
	"veriledger/pkg/canonical"
	domainerrors "veriledger/pkg/domain-errors"
	"veriledger/pkg/platform/sentinel"
)

// Verification outcome reasons.
const (
	ReasonVerified      = "VERIFIED"
	ReasonUnknownHash   = "UNKNOWN_HASH"
	ReasonNoLocalRecord = "NO_LOCAL_RECORD"
	ReasonTamper        = "TAMPER_DETECTED"
	ReasonConsentDenied = "CONSENT_DENIED"
)

// Auditor receives integrity anomaly events. Emission must never fail the
// calling operation.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Config bounds the service's ledger interactions.
type Config struct {
	// LedgerTimeout caps each individual ledger call.
	LedgerTimeout time.Duration
	// LedgerMaxRetries is the total number of register attempts per
	// submission before the record is left pending for repair.
	LedgerMaxRetries uint64
}

// Service coordinates record stores and the ledger client.
type Service struct {
	store   record.Store
	ledger  registry.Client
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	cfg     Config

	// inflight collapses concurrent registrations of the same hash into one
	// ledger call. The ledger's create-if-absent remains the source of truth;
	// this only avoids redundant round trips.
	inflight singleflight.Group
}

func NewService(store record.Store, ledger registry.Client, auditor Auditor, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Service {
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}
	if cfg.LedgerMaxRetries == 0 {
		cfg.LedgerMaxRetries = 3
	}
	return &Service{
		store:   store,
		ledger:  ledger,
		auditor: auditor,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("veriledger/reconcile"),
		cfg:     cfg,
	}
}

// SubmitInput carries a record submission. OwnerID and OwnerPrincipal come
// from the authenticated token, never from the request body.
type SubmitInput struct {
	OwnerID           string
	OwnerPrincipal    string
	Kind              record.Kind
	Payload           map[string]any
	SharedForResearch bool
}

// Submit stores a record, then registers its content hash on the ledger. On a
// transient ledger failure the record is returned alongside a
// ledger_unavailable error so the transport layer can hand the caller
// something to poll; the repair sweeper finishes the job.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*record.Record, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.Submit")
	defer span.End()

	initial, err := initialConsent(in.Kind, in.SharedForResearch)
	if err != nil {
		return nil, err
	}

	hash, err := canonical.Hash(in.Payload)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "payload cannot be canonicalized")
	}
	if err := s.checkKindConflict(ctx, hash, in.Kind, in.OwnerID); err != nil {
		return nil, err
	}

	rec, err := s.store.Create(ctx, in.OwnerID, in.OwnerPrincipal, in.Kind, in.Payload, initial)
	if err != nil {
		var de *domainerrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "store record")
	}
	s.metrics.RecordSubmission(string(in.Kind))

	return s.registerRecord(ctx, rec)
}

// checkKindConflict enforces the shared hash namespace: a hash already claimed
// by records of another kind can never be re-registered under this one.
func (s *Service) checkKindConflict(ctx context.Context, hash string, kind record.Kind, ownerID string) error {
	existing, err := s.store.ListByHash(ctx, hash)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "list records by hash")
	}
	for _, prior := range existing {
		if prior.Kind != kind {
			s.audit(ctx, audit.Event{
				Type:        audit.EventKindConflict,
				OwnerID:     ownerID,
				ContentHash: hash,
				Detail:      "hash already claimed by a " + string(prior.Kind) + " record",
			})
			return domainerrors.New(domainerrors.CodeConflict,
				"content hash already registered under kind "+string(prior.Kind))
		}
	}
	return nil
}

// registerRecord drives one record through ledger registration and records
// the outcome locally. The returned record reflects the stored state.
func (s *Service) registerRecord(ctx context.Context, rec *record.Record) (*record.Record, error) {
	entry, err := s.registerEntry(ctx, rec.ContentHash, rec.ConsentStatus, rec.OwnerPrincipal)
	switch {
	case err == nil:
		if markErr := s.store.MarkRegistered(ctx, rec.ID, entry.ContentHash); markErr != nil {
			return rec, domainerrors.Wrap(markErr, domainerrors.CodeInternal, "mark record registered")
		}
		s.metrics.RecordRegistration("registered")

	case errors.Is(err, sentinel.ErrRejected):
		if markErr := s.store.MarkRegistrationFailed(ctx, rec.ID, "ledger rejected registration"); markErr != nil {
			s.logger.ErrorContext(ctx, "failed to persist registration failure",
				"record_id", rec.ID, "error", markErr)
		}
		s.metrics.RecordRegistration("failed")
		s.audit(ctx, audit.Event{
			Type:        audit.EventRegistrationFailed,
			OwnerID:     rec.OwnerID,
			RecordID:    rec.ID,
			ContentHash: rec.ContentHash,
			Detail:      err.Error(),
		})
		rec = s.refresh(ctx, rec)
		return rec, domainerrors.Wrap(err, domainerrors.CodeConflict, "ledger rejected registration")

	default:
		s.metrics.RecordRegistration("pending")
		s.logger.WarnContext(ctx, "ledger unreachable, record left pending",
			"record_id", rec.ID, "content_hash", rec.ContentHash, "error", err)
		return rec, domainerrors.Wrap(err, domainerrors.CodeLedgerUnavailable,
			"ledger unreachable; record remains pending")
	}
	return s.refresh(ctx, rec), nil
}

// registerEntry performs the idempotent ledger registration with bounded
// exponential backoff. Concurrent callers for the same hash share one flight.
func (s *Service) registerEntry(ctx context.Context, hash string, initial consent.Status, principal string) (*registry.Entry, error) {
	v, err, _ := s.inflight.Do(hash, func() (any, error) {
		attempt := func() (*registry.Entry, error) {
			opCtx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
			defer cancel()
			start := time.Now()
			entry, err := s.ledger.RegisterIfAbsent(opCtx, hash, initial, principal)
			s.metrics.ObserveLedgerOp("register", start)
			if err != nil {
				if errors.Is(err, sentinel.ErrRejected) {
					return nil, backoff.Permanent(err)
				}
				return nil, err
			}
			return entry, nil
		}

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 100 * time.Millisecond
		bo.MaxInterval = s.cfg.LedgerTimeout
		return backoff.RetryWithData(attempt,
			backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.LedgerMaxRetries-1), ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*registry.Entry), nil
}

// VerifyResult is the outcome of an integrity check.
type VerifyResult struct {
	Verified      bool           `json:"verified"`
	Reason        string         `json:"reason"`
	ContentHash   string         `json:"content_hash"`
	ConsentStatus consent.Status `json:"consent_status,omitempty"`
}

// Verify checks that hash is registered to principal, that a local payload
// still reproduces it, and that consent permits access. Failures are reported
// in the result, not as errors; only infrastructure trouble errors out.
func (s *Service) Verify(ctx context.Context, principal, hash string) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.Verify")
	defer span.End()

	entry, err := s.fetchEntry(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.verifyOutcome(hash, false, ReasonUnknownHash, ""), nil
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeLedgerUnavailable, "fetch ledger entry")
	}
	// A principal mismatch reads the same as an unknown hash so callers
	// cannot probe for other principals' registrations.
	if entry.OwnerPrincipal != principal {
		return s.verifyOutcome(hash, false, ReasonUnknownHash, ""), nil
	}

	locals, err := s.store.ListByHash(ctx, hash)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list records by hash")
	}
	if len(locals) == 0 {
		s.audit(ctx, audit.Event{
			Type:        audit.EventLedgerDivergence,
			ContentHash: hash,
			Detail:      "ledger entry has no local record",
		})
		return s.verifyOutcome(hash, false, ReasonNoLocalRecord, entry.Status), nil
	}

	for _, rec := range locals {
		current, hashErr := canonical.Hash(rec.Payload)
		if hashErr != nil || current != hash {
			s.metrics.RecordTamperDetected()
			s.audit(ctx, audit.Event{
				Type:        audit.EventTamperDetected,
				OwnerID:     rec.OwnerID,
				RecordID:    rec.ID,
				ContentHash: hash,
				Detail:      "stored payload no longer reproduces registered hash",
			})
			return s.verifyOutcome(hash, false, ReasonTamper, entry.Status), nil
		}
	}

	if entry.Status.Denies() {
		return s.verifyOutcome(hash, false, ReasonConsentDenied, entry.Status), nil
	}
	return s.verifyOutcome(hash, true, ReasonVerified, entry.Status), nil
}

func (s *Service) verifyOutcome(hash string, verified bool, reason string, status consent.Status) *VerifyResult {
	s.metrics.RecordVerification(reason)
	return &VerifyResult{Verified: verified, Reason: reason, ContentHash: hash, ConsentStatus: status}
}

// UpdateConsent applies a consent action to the ledger entry for hash and
// mirrors the new status onto local records. Only the registering principal
// may change consent; anyone else sees not-found.
func (s *Service) UpdateConsent(ctx context.Context, principal, hash string, action consent.Action) (*registry.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.UpdateConsent")
	defer span.End()

	if !action.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "unknown consent action: "+string(action))
	}

	entry, err := s.fetchEntry(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "hash not registered")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeLedgerUnavailable, "fetch ledger entry")
	}
	if entry.OwnerPrincipal != principal {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "hash not registered")
	}

	next, err := consent.Next(entry.Status, action)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeConflict, "consent transition not allowed")
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()
	start := time.Now()
	updated, err := s.ledger.UpdateStatus(opCtx, hash, next)
	s.metrics.ObserveLedgerOp("update_status", start)
	if err != nil {
		switch {
		case errors.Is(err, consent.ErrInvalidTransition):
			return nil, domainerrors.Wrap(err, domainerrors.CodeConflict, "consent transition not allowed")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "hash not registered")
		default:
			return nil, domainerrors.Wrap(err, domainerrors.CodeLedgerUnavailable, "update ledger status")
		}
	}

	if syncErr := s.store.SetConsentByHash(ctx, hash, updated.Status); syncErr != nil {
		// The ledger is the source of truth; a failed mirror only goes stale
		// until the next consent change.
		s.logger.ErrorContext(ctx, "failed to mirror consent status locally",
			"content_hash", hash, "error", syncErr)
	}
	return updated, nil
}

// Repair re-attempts ledger registration for every pending record. Idempotent:
// already-registered hashes resolve through the ledger's create-if-absent.
func (s *Service) Repair(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.Repair")
	defer span.End()

	s.metrics.RecordRepairRun()
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "list pending records")
	}

	recovered := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return recovered, ctx.Err()
		}
		entry, err := s.registerEntry(ctx, rec.ContentHash, rec.ConsentStatus, rec.OwnerPrincipal)
		switch {
		case err == nil:
			if markErr := s.store.MarkRegistered(ctx, rec.ID, entry.ContentHash); markErr != nil {
				s.logger.ErrorContext(ctx, "repair could not mark record registered",
					"record_id", rec.ID, "error", markErr)
				continue
			}
			recovered++
			s.metrics.RecordRepairRecovered()
			s.metrics.RecordRegistration("registered")

		case errors.Is(err, sentinel.ErrRejected):
			if markErr := s.store.MarkRegistrationFailed(ctx, rec.ID, "ledger rejected registration"); markErr != nil {
				s.logger.ErrorContext(ctx, "repair could not mark record failed",
					"record_id", rec.ID, "error", markErr)
				continue
			}
			s.metrics.RecordRegistration("failed")
			s.audit(ctx, audit.Event{
				Type:        audit.EventRegistrationFailed,
				OwnerID:     rec.OwnerID,
				RecordID:    rec.ID,
				ContentHash: rec.ContentHash,
				Detail:      err.Error(),
			})

		default:
			s.logger.WarnContext(ctx, "repair attempt failed, record stays pending",
				"record_id", rec.ID, "content_hash", rec.ContentHash, "error", err)
		}
	}
	return recovered, nil
}

// GetRecord returns a single record by ID.
func (s *Service) GetRecord(ctx context.Context, id string) (*record.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "record not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "get record")
	}
	return rec, nil
}

// ListRecords returns the owner's records, newest first.
func (s *Service) ListRecords(ctx context.Context, ownerID string) ([]*record.Record, error) {
	recs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list records")
	}
	return recs, nil
}

func (s *Service) fetchEntry(ctx context.Context, hash string) (*registry.Entry, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()
	start := time.Now()
	entry, err := s.ledger.Fetch(opCtx, hash)
	s.metrics.ObserveLedgerOp("fetch", start)
	return entry, err
}

func (s *Service) refresh(ctx context.Context, rec *record.Record) *record.Record {
	updated, err := s.store.Get(ctx, rec.ID)
	if err != nil {
		return rec
	}
	return updated
}

func (s *Service) audit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, event)
}

// initialConsent derives the status a new registration starts in. Health
// records shared for research start GRANTED, otherwise PENDING; financial
// records always start TRANSACTION_PENDING.
func initialConsent(kind record.Kind, sharedForResearch bool) (consent.Status, error) {
	switch kind {
	case record.KindHealth:
		if sharedForResearch {
			return consent.StatusGranted, nil
		}
		return consent.StatusPending, nil
	case record.KindFinancial:
		return consent.StatusTransactionPending, nil
	}
	return "", domainerrors.New(domainerrors.CodeBadRequest, "unknown record kind: "+string(kind))
}
