// Package postgres implements store.Store on PostgreSQL via a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id           TEXT        NOT NULL,
	user_id      TEXT        NOT NULL,
	type         TEXT        NOT NULL,
	title        TEXT        NOT NULL DEFAULT '',
	body         TEXT        NOT NULL DEFAULT '',
	content_json JSONB,
	items        JSONB       NOT NULL DEFAULT '[]',
	tags         JSONB       NOT NULL DEFAULT '[]',
	status       TEXT        NOT NULL DEFAULT 'active',
	is_draft     BOOLEAN     NOT NULL DEFAULT FALSE,
	source       TEXT        NOT NULL DEFAULT 'store',
	meta         JSONB       NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_records_user_updated ON records(user_id, updated_at DESC);
`

const selectColumns = `id, user_id, type, title, body, COALESCE(content_json::text, ''), items::text, tags::text,
	status, is_draft, source, meta::text, created_at, updated_at`

// DB is a PostgreSQL-backed record store.
type DB struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*DB)(nil)

// Open creates a connection pool for databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection string: %w", err)
	}
	config.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	// 23505 = unique_violation
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts rec.
func (db *DB) Create(ctx context.Context, userID string, rec *models.Record) (string, error) {
	store.Prepare(userID, rec, store.Now())
	cols, err := store.EncodeColumns(rec)
	if err != nil {
		return "", fmt.Errorf("postgres: create: %w", err)
	}
	_, err = db.pool.Exec(ctx, `
		INSERT INTO records (id, user_id, type, title, body, content_json, items, tags, status, is_draft, source, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::jsonb, $7::jsonb, $8::jsonb, $9, $10, $11, $12::jsonb, $13, $14)
	`, rec.ID, userID, string(rec.Type), rec.Title, rec.Body, cols.ContentJSON, cols.Items, cols.Tags,
		string(rec.Status), rec.IsDraft, rec.Source, cols.Meta, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return "", fmt.Errorf("postgres: create %s: %w", rec.ID, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("postgres: create: %w", err)
	}
	return rec.ID, nil
}

// List returns the user's records matching f, most recently updated first.
func (db *DB) List(ctx context.Context, userID string, f models.Filter) ([]models.Record, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Source != "" {
		add("source = $%d", f.Source)
	}
	args = append(args, store.NormalizeLimit(f.Limit), max(f.Offset, 0))

	query := fmt.Sprintf(`
		SELECT %s FROM records
		WHERE %s
		ORDER BY updated_at DESC, created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		selectColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Get returns one record.
func (db *DB) Get(ctx context.Context, userID, id string) (*models.Record, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM records WHERE user_id = $1 AND id = $2`, userID, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	return rec, nil
}

// Update merges p into the record under a row lock.
func (db *DB) Update(ctx context.Context, userID, id string, p models.Patch) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	row := tx.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM records WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", id, err)
	}

	p.Apply(rec)
	cols, err := store.EncodeColumns(rec)
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", id, err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE records SET
			title        = $3,
			body         = $4,
			content_json = NULLIF($5, '')::jsonb,
			items        = $6::jsonb,
			tags         = $7::jsonb,
			status       = $8,
			is_draft     = $9,
			meta         = $10::jsonb,
			updated_at   = GREATEST(updated_at, $11)
		WHERE user_id = $1 AND id = $2
	`, userID, id, rec.Title, rec.Body, cols.ContentJSON, cols.Items, cols.Tags, string(rec.Status), rec.IsDraft,
		cols.Meta, store.Now())
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", id, err)
	}
	return tx.Commit(ctx)
}

// SoftDelete sets the record status to deleted.
func (db *DB) SoftDelete(ctx context.Context, userID, id string) error {
	deleted := models.StatusDeleted
	return db.Update(ctx, userID, id, models.Patch{Status: &deleted})
}

// Delete removes the record.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM records WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		rec    models.Record
		typ    string
		status string
		cols   store.Columns
	)
	err := row.Scan(&rec.ID, &rec.UserID, &typ, &rec.Title, &rec.Body, &cols.ContentJSON, &cols.Items, &cols.Tags,
		&status, &rec.IsDraft, &rec.Source, &cols.Meta, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Type = models.ItemType(typ)
	rec.Status = models.Status(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if err := store.DecodeColumns(cols, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
