/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vna/internal/archive"
)

// SearchPG executes a search over the Postgres compositions table using
// tsvector and filters, returning results mapped to archive.Result so the
// remote path can be parity-checked against the local SQLite index.
func SearchPG(ctx context.Context, db *sql.DB, q archive.Query) ([]archive.Result, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT c.stable_id, c.path, c.title, c.raga, c.tala, COALESCE(c.composer,''), COALESCE(c.language,''), COALESCE(c.comp_type,''), COALESCE(c.tempo,0), c.sections, c.phrases, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(c.lyrics,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') AS snippet ")
		b.WriteString("FROM compositions c WHERE c.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text)
	} else {
		b.WriteString("SELECT c.stable_id, c.path, c.title, c.raga, c.tala, COALESCE(c.composer,''), COALESCE(c.language,''), COALESCE(c.comp_type,''), COALESCE(c.tempo,0), c.sections, c.phrases, '' AS snippet ")
		b.WriteString("FROM compositions c WHERE TRUE ")
	}

	// Helper to add a parameter and return its placeholder like $n.
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(q.Raga); s != "" {
		b.WriteString(" AND lower(c.raga) = lower(" + place(s) + ") ")
	}
	if s := strings.TrimSpace(q.Tala); s != "" {
		b.WriteString(" AND c.tala = " + place(s) + " ")
	}
	if s := strings.TrimSpace(q.Composer); s != "" {
		b.WriteString(" AND lower(COALESCE(c.composer,'')) LIKE " + place("%"+strings.ToLower(s)+"%") + " ")
	}
	if s := strings.TrimSpace(q.Language); s != "" {
		b.WriteString(" AND lower(COALESCE(c.language,'')) = lower(" + place(s) + ") ")
	}
	if s := strings.TrimSpace(q.Type); s != "" {
		b.WriteString(" AND lower(COALESCE(c.comp_type,'')) = lower(" + place(s) + ") ")
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
		b.WriteString(" ORDER BY ts_rank(c.search_vector, plainto_tsquery('simple', $1)) DESC, c.title, c.path ")
	} else {
		b.WriteString(" ORDER BY c.title, c.path ")
	}
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []archive.Result
	for rows.Next() {
		var r archive.Result
		if err := rows.Scan(&r.UUID, &r.Path, &r.Title, &r.Raga, &r.Tala, &r.Composer, &r.Language, &r.Type, &r.Tempo, &r.Sections, &r.Phrases, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
