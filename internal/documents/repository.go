package documents

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"recording-relay/pkg/utils"
)

//go:embed schema.sql
var Schema string

// Repository is the persistence contract for both collections.
type Repository interface {
	// Append creates the parent if absent (name is only used then) and adds
	// the record. Both steps happen atomically.
	Append(ctx context.Context, p Parent, r Record) error
	Parent(ctx context.Context, c Collection, phoneNumber string) (Parent, error)
	Records(ctx context.Context, c Collection, phoneNumber string) ([]Record, error)
}

type tableSet struct {
	parent  string
	nameCol string
	records string
}

var tables = map[Collection]tableSet{
	CollectionAppointmentSuggestions: {parent: "appointment_suggestions", nameCol: "contact_name", records: "appointment_suggestion_records"},
	CollectionClients:                {parent: "clients", nameCol: "client_name", records: "client_records"},
}

// PostgresRepo writes documents with database/sql over the pgx driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, p Parent, rec Record) error {
	ts, ok := tables[p.Collection]
	if !ok {
		return ErrUnknownCollection
	}
	if p.PhoneNumber == "" || rec.URL == "" || rec.ID == "" {
		return ErrInvalidArgument
	}

	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Concurrent first writes race on the primary key; the loser does nothing.
		q := fmt.Sprintf(`
INSERT INTO %s (phone_number, %s, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (phone_number) DO NOTHING
`, ts.parent, ts.nameCol)
		if _, err := tx.ExecContext(ctx, q, p.PhoneNumber, nullString(p.Name), p.CreatedAt); err != nil {
			return fmt.Errorf("ensure %s parent: %w", ts.parent, err)
		}

		q = fmt.Sprintf(`
INSERT INTO %s (id, phone_number, url, "timestamp")
VALUES ($1, $2, $3, $4)
`, ts.records)
		if _, err := tx.ExecContext(ctx, q, rec.ID, p.PhoneNumber, rec.URL, rec.Timestamp); err != nil {
			return fmt.Errorf("append %s record: %w", ts.records, err)
		}
		return nil
	})
}

func (r *PostgresRepo) Parent(ctx context.Context, c Collection, phoneNumber string) (Parent, error) {
	ts, ok := tables[c]
	if !ok {
		return Parent{}, ErrUnknownCollection
	}
	q := fmt.Sprintf(`SELECT phone_number, %s, created_at FROM %s WHERE phone_number = $1`, ts.nameCol, ts.parent)

	var (
		p    = Parent{Collection: c}
		name sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q, phoneNumber).Scan(&p.PhoneNumber, &name, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Parent{}, ErrNotFound
		}
		return Parent{}, err
	}
	p.Name = name.String
	return p, nil
}

func (r *PostgresRepo) Records(ctx context.Context, c Collection, phoneNumber string) ([]Record, error) {
	ts, ok := tables[c]
	if !ok {
		return nil, ErrUnknownCollection
	}
	q := fmt.Sprintf(`
SELECT id, phone_number, url, "timestamp"
FROM %s
WHERE phone_number = $1
ORDER BY "timestamp" ASC
`, ts.records)

	rows, err := r.db.QueryContext(ctx, q, phoneNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{Collection: c}
		if err := rows.Scan(&rec.ID, &rec.PhoneNumber, &rec.URL, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
