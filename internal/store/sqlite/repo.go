package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store"
)

const recordColumns = `id, user_id, type, title, body, content_json, items, tags, status, is_draft, source, meta, created_at, updated_at`

// Create inserts rec. Reusing an id already owned by the user fails with apperr.ErrAlreadyExists.
func (db *DB) Create(ctx context.Context, userID string, rec *models.Record) (string, error) {
	store.Prepare(userID, rec, store.Now())
	cols, err := store.EncodeColumns(rec)
	if err != nil {
		return "", fmt.Errorf("sqlite: create: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, userID, string(rec.Type), rec.Title, rec.Body, cols.ContentJSON, cols.Items, cols.Tags,
		string(rec.Status), rec.IsDraft, rec.Source, cols.Meta,
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return "", fmt.Errorf("sqlite: create %s: %w", rec.ID, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("sqlite: create: %w", err)
	}
	return rec.ID, nil
}

// List returns the user's records matching f, most recently updated first.
func (db *DB) List(ctx context.Context, userID string, f models.Filter) ([]models.Record, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	args = append(args, store.NormalizeLimit(f.Limit), max(f.Offset, 0))

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY updated_at DESC, created_at DESC, id
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Get returns one record.
func (db *DB) Get(ctx context.Context, userID, id string) (*models.Record, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE user_id = ? AND id = ?`, userID, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", id, err)
	}
	return rec, nil
}

// Update merges p into the record inside a transaction.
func (db *DB) Update(ctx context.Context, userID, id string, p models.Patch) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE user_id = ? AND id = ?`, userID, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", id, err)
	}

	p.Apply(rec)
	cols, err := store.EncodeColumns(rec)
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET
			title        = ?,
			body         = ?,
			content_json = ?,
			items        = ?,
			tags         = ?,
			status       = ?,
			is_draft     = ?,
			meta         = ?,
			updated_at   = MAX(updated_at, ?)
		WHERE user_id = ? AND id = ?
	`, rec.Title, rec.Body, cols.ContentJSON, cols.Items, cols.Tags, string(rec.Status), rec.IsDraft, cols.Meta,
		store.Now().UnixMilli(), userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", id, err)
	}
	return tx.Commit()
}

// SoftDelete sets the record status to deleted.
func (db *DB) SoftDelete(ctx context.Context, userID, id string) error {
	deleted := models.StatusDeleted
	return db.Update(ctx, userID, id, models.Patch{Status: &deleted})
}

// Delete removes the record.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM records WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec       models.Record
		typ       string
		status    string
		cols      store.Columns
		createdAt int64
		updatedAt int64
	)
	err := s.Scan(&rec.ID, &rec.UserID, &typ, &rec.Title, &rec.Body, &cols.ContentJSON, &cols.Items, &cols.Tags,
		&status, &rec.IsDraft, &rec.Source, &cols.Meta, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.Type = models.ItemType(typ)
	rec.Status = models.Status(status)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if err := store.DecodeColumns(cols, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
