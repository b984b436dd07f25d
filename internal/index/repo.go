package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/kanboard/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path        string
	Title       string
	Description string
	Checksum    string
	Boards      int
	Notes       int
	Tags        []string
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

const selectColumns = `path, title, description, checksum, boards, notes, tags, updated_at`

// UpsertDocument inserts or replaces a document and its FTS entry within a
// transaction.
func (db *DB) UpsertDocument(r DocumentRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if r.Tags == nil {
		r.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(r.Tags)

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, description, checksum, boards, notes, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			checksum    = excluded.checksum,
			boards      = excluded.boards,
			notes       = excluded.notes,
			tags        = excluded.tags,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, r.Path, r.Title, r.Description, r.Checksum, r.Boards, r.Notes, string(tagsJSON), body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, r.Path, r.Title, body, r.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDocument removes a document and its FTS entry.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns one catalog row.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM documents WHERE path = ?`, path)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return r, nil
}

// ListDocuments returns a page of the catalog and the total number of rows
// matching tag. sort is one of "path" (default), "title", or "updated"
// (newest first).
func (db *DB) ListDocuments(limit, offset int, tag, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	where := ""
	var args []any
	if tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	order := " ORDER BY path"
	switch sort {
	case "title":
		order = " ORDER BY title COLLATE NOCASE, path"
	case "updated":
		order = " ORDER BY updated_at DESC, path"
	}
	rows, err := db.conn.Query(`SELECT `+selectColumns+` FROM documents`+where+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path→checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*DocumentRow, error) {
	var r DocumentRow
	var tags string
	if err := s.Scan(&r.Path, &r.Title, &r.Description, &r.Checksum, &r.Boards, &r.Notes, &tags, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		r.Tags = nil
	}
	return &r, nil
}
