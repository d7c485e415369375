package uploads

import (
	"context"
	"database/sql"
	"sync"
)

// Journal is the append-only history of upload attempts.
// No Update/Delete methods are provided.
type Journal interface {
	Append(ctx context.Context, r UploadRecord) error
	// List returns the newest rows first.
	List(ctx context.Context, limit int) ([]UploadRecord, error)
}

const JournalSchema = `
CREATE TABLE IF NOT EXISTS upload_records (
  id           UUID PRIMARY KEY,
  upload_id    UUID NOT NULL,
  handle       TEXT NOT NULL,
  object_key   TEXT NOT NULL,
  phone_number TEXT,
  contact_name TEXT,
  attempt      TEXT NOT NULL,
  status       TEXT NOT NULL,
  url          TEXT,
  error        TEXT,
  principal    TEXT NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS upload_records_created_idx ON upload_records (created_at DESC);
CREATE INDEX IF NOT EXISTS upload_records_upload_idx ON upload_records (upload_id);
`

type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(db *sql.DB) *PostgresJournal { return &PostgresJournal{db: db} }

func (j *PostgresJournal) Append(ctx context.Context, r UploadRecord) error {
	const q = `
INSERT INTO upload_records (
  id, upload_id, handle, object_key, phone_number, contact_name, attempt, status, url, error, principal, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := j.db.ExecContext(ctx, q,
		r.ID,
		r.UploadID,
		r.Handle,
		r.ObjectKey,
		nullable(r.PhoneNumber),
		nullable(r.ContactName),
		r.Attempt,
		r.Status,
		nullable(r.URL),
		nullable(r.Error),
		r.Principal,
		r.CreatedAt,
	)
	return err
}

func (j *PostgresJournal) List(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, upload_id, handle, object_key, phone_number, contact_name, attempt, status, url, error, principal, created_at
FROM upload_records
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := j.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UploadRecord
	for rows.Next() {
		var (
			r                        UploadRecord
			phone, name, url, errMsg sql.NullString
		)
		if err := rows.Scan(
			&r.ID,
			&r.UploadID,
			&r.Handle,
			&r.ObjectKey,
			&phone,
			&name,
			&r.Attempt,
			&r.Status,
			&url,
			&errMsg,
			&r.Principal,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.PhoneNumber, r.ContactName, r.URL, r.Error = phone.String, name.String, url.String, errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MemoryJournal is an in-memory append-only journal useful for tests.
type MemoryJournal struct {
	mu      sync.Mutex
	records []UploadRecord
}

func NewMemoryJournal() *MemoryJournal { return &MemoryJournal{} }

func (m *MemoryJournal) Append(ctx context.Context, r UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *MemoryJournal) List(ctx context.Context, limit int) ([]UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]UploadRecord, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
