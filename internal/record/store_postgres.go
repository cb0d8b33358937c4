package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"veriledger/internal/consent"
	"veriledger/pkg/platform/sentinel"
)

// PostgresStore persists records in PostgreSQL. Schema in migrations/001_records.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, owner_id, owner_principal, kind, payload, consent_status, registration_status, content_hash, ledger_ref, failure_reason, created_at`

func (s *PostgresStore) Create(ctx context.Context, ownerID, ownerPrincipal string, kind Kind, payload map[string]any, initialConsent consent.Status) (*Record, error) {
	rec, err := New(ownerID, ownerPrincipal, kind, payload, initialConsent)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, owner_id, owner_principal, kind, payload, consent_status, registration_status, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.OwnerID, rec.OwnerPrincipal, rec.Kind, body, rec.ConsentStatus, rec.RegistrationStatus, rec.ContentHash, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list records by owner: %w", err)
	}
	return collectRecords(rows)
}

func (s *PostgresStore) ListByHash(ctx context.Context, hash string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE content_hash = $1 ORDER BY created_at ASC`, hash)
	if err != nil {
		return nil, fmt.Errorf("list records by hash: %w", err)
	}
	return collectRecords(rows)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE registration_status = $1 ORDER BY created_at ASC`,
		RegistrationPending)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	return collectRecords(rows)
}

func (s *PostgresStore) MarkRegistered(ctx context.Context, id, ledgerRef string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET registration_status = $2, ledger_ref = $3, failure_reason = ''
		WHERE id = $1`,
		id, Registered, ledgerRef)
	if err != nil {
		return fmt.Errorf("mark registered: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) MarkRegistrationFailed(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET registration_status = $2, failure_reason = $3
		WHERE id = $1`,
		id, RegistrationFailed, reason)
	if err != nil {
		return fmt.Errorf("mark registration failed: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SetConsentByHash(ctx context.Context, hash string, status consent.Status) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET consent_status = $2
		WHERE content_hash = $1`,
		hash, status)
	if err != nil {
		return fmt.Errorf("set consent by hash: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var body []byte
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.OwnerPrincipal, &rec.Kind, &body, &rec.ConsentStatus,
		&rec.RegistrationStatus, &rec.ContentHash, &rec.LedgerRef, &rec.FailureReason, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()
	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
