/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Query describes an archive search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT)
// over title, raga, composer, and lyrics. The remaining filters are exact
// case-insensitive matches except Composer, which matches substrings.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type Query struct {
	Text     string
	Raga     string
	Tala     string
	Composer string
	Language string
	Type     string
	Limit    int
	Offset   int
}

// Result is a single composition match. Snippet is a highlighted excerpt
// using [ ] markers when full-text search was used, empty otherwise.
type Result struct {
	UUID     string
	Path     string
	Title    string
	Raga     string
	Tala     string
	Composer string
	Language string
	Type     string
	Tempo    int
	Sections int
	Phrases  int
	Snippet  string
}

// Search runs a full-text search with optional filters over the archive
// index. When q.Text is empty it falls back to a filtered scan.
func Search(ctx context.Context, root string, q Query) ([]Result, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("archive root is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q Query) ([]Result, error) {
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT c.uuid, c.path, c.title, c.raga, c.tala, COALESCE(c.composer,''), COALESCE(c.language,''), COALESCE(c.type,''), COALESCE(c.tempo,0), c.sections, c.phrases, snippet(fts_compositions, -1, '[', ']', '...', 10)\n")
		sb.WriteString("FROM fts_compositions JOIN compositions c ON fts_compositions.rowid = c.comp_id\n")
		sb.WriteString("WHERE fts_compositions MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT c.uuid, c.path, c.title, c.raga, c.tala, COALESCE(c.composer,''), COALESCE(c.language,''), COALESCE(c.type,''), COALESCE(c.tempo,0), c.sections, c.phrases, ''\n")
		sb.WriteString("FROM compositions c\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Raga); s != "" {
		sb.WriteString(" AND lower(c.raga) = lower(?)\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Tala); s != "" {
		sb.WriteString(" AND c.tala = ?\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Composer); s != "" {
		sb.WriteString(" AND lower(COALESCE(c.composer,'')) LIKE ?\n")
		args = append(args, likeContains(strings.ToLower(s)))
	}
	if s := strings.TrimSpace(q.Language); s != "" {
		sb.WriteString(" AND lower(COALESCE(c.language,'')) = lower(?)\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Type); s != "" {
		sb.WriteString(" AND lower(COALESCE(c.type,'')) = lower(?)\n")
		args = append(args, s)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if useFTS {
		sb.WriteString("ORDER BY rank, c.title, c.path\n")
	} else {
		sb.WriteString("ORDER BY c.title, c.path\n")
	}
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.UUID, &r.Path, &r.Title, &r.Raga, &r.Tala, &r.Composer, &r.Language, &r.Type, &r.Tempo, &r.Sections, &r.Phrases, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Lookup fetches a single composition by relative path.
func Lookup(ctx context.Context, root, path string) (Result, bool, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, false, errors.New("path is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return Result{}, false, err
	}
	defer db.Close()
	row := db.QueryRowContext(ctx, `SELECT c.uuid, c.path, c.title, c.raga, c.tala, COALESCE(c.composer,''), COALESCE(c.language,''), COALESCE(c.type,''), COALESCE(c.tempo,0), c.sections, c.phrases, ''
		FROM compositions c WHERE c.path = ?`, path)
	var r Result
	err = row.Scan(&r.UUID, &r.Path, &r.Title, &r.Raga, &r.Tala, &r.Composer, &r.Language, &r.Type, &r.Tempo, &r.Sections, &r.Phrases, &r.Snippet)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	return r, true, nil
}

func likeContains(s string) string { return "%" + s + "%" }
