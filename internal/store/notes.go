package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/argument/internal/apperr"
	"github.com/starford/argument/internal/note"
)

const selectColumns = `id, title, content, has_image, image, created_at, modified_at`

// Insert stores a new note.
func (db *DB) Insert(ctx context.Context, n *note.Note) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, has_image, image, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Content, n.ImageData != nil, n.ImageData,
		n.CreatedAt.UnixNano(), n.ModifiedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", n.ID, err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing note.
func (db *DB) Update(ctx context.Context, n *note.Note) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, has_image = ?, image = ?, modified_at = ?
		WHERE id = ?
	`, n.Title, n.Content, n.ImageData != nil, n.ImageData, n.ModifiedAt.UnixNano(), n.ID)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", n.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("store: update %s: %w", n.ID, apperr.ErrNotFound)
	}
	return nil
}

// Delete removes the given notes in one transaction and returns the ids that
// existed. Unknown ids are ignored.
func (db *DB) Delete(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM notes WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare delete: %w", err)
	}
	defer stmt.Close()

	var deleted []string
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("store: delete %s: %w", id, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			deleted = append(deleted, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit delete: %w", err)
	}
	return deleted, nil
}

// Get returns a note by id.
func (db *DB) Get(ctx context.Context, id string) (*note.Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return n, nil
}

// QueryAll returns every note, most recently modified first. Ties are broken by id.
func (db *DB) QueryAll(ctx context.Context) ([]*note.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+selectColumns+` FROM notes ORDER BY modified_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: query all: %w", err)
	}
	defer rows.Close()

	var out []*note.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Count returns the number of stored notes.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*note.Note, error) {
	var (
		n                   note.Note
		hasImage            bool
		image               []byte
		createdNs, modified int64
	)
	if err := s.Scan(&n.ID, &n.Title, &n.Content, &hasImage, &image, &createdNs, &modified); err != nil {
		return nil, err
	}
	// has_image keeps an empty image distinct from no image.
	if hasImage {
		if image == nil {
			image = []byte{}
		}
		n.ImageData = image
	}
	n.CreatedAt = time.Unix(0, createdNs).UTC()
	n.ModifiedAt = time.Unix(0, modified).UTC()
	return &n, nil
}
