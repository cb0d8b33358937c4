package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore retains audit events durably. Schema in
// migrations/002_audit_events.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, event_type, owner_id, record_id, content_hash, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Timestamp, event.Type, event.OwnerID, event.RecordID, event.ContentHash, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByHash(ctx context.Context, contentHash string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, event_type, owner_id, record_id, content_hash, detail
		FROM audit_events
		WHERE content_hash = $1
		ORDER BY ts ASC`,
		contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Timestamp, &e.Type, &e.OwnerID, &e.RecordID, &e.ContentHash, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
