package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists birthday records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS birthdays (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			day SMALLINT NOT NULL,
			month SMALLINT NOT NULL,
			year SMALLINT,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (owner_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_birthdays_day_month ON birthdays (month, day);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record Record) (Record, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO birthdays (id, owner_id, name, day, month, year, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, ''), $8)`,
		record.ID,
		record.OwnerID,
		record.Name,
		record.Day,
		record.Month,
		record.Year,
		record.Note,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicateName
		}
		return Record{}, fmt.Errorf("create birthday: %w", err)
	}
	return record, nil
}

const selectColumns = `id, owner_id, name, day, month, COALESCE(year, 0), COALESCE(note, ''), created_at`

func (s *PostgresStore) FindByOwnerAndName(ctx context.Context, ownerID, name string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM birthdays WHERE owner_id=$1 AND name=$2`,
		ownerID, name,
	)
	var r Record
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Day, &r.Month, &r.Year, &r.Note, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find birthday: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM birthdays WHERE owner_id=$1 ORDER BY month, day, created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list birthdays: %w", err)
	}
	return scanRecords(rows)
}

func (s *PostgresStore) UpdateNote(ctx context.Context, ownerID, name, note string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE birthdays SET note=$3 WHERE owner_id=$1 AND name=$2`,
		ownerID, name, note,
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByOwnerAndName(ctx context.Context, ownerID, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM birthdays WHERE owner_id=$1 AND name=$2`,
		ownerID, name,
	)
	if err != nil {
		return fmt.Errorf("delete birthday: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SelectByDayMonth(ctx context.Context, day, month int) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM birthdays WHERE day=$1 AND month=$2 ORDER BY created_at`,
		day, month,
	)
	if err != nil {
		return nil, fmt.Errorf("select birthdays by date: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Day, &r.Month, &r.Year, &r.Note, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan birthday row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate birthday rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
