/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package archive maintains a per-archive SQLite index of .vna files so
// compositions can be searched by metadata and lyric text without
// re-parsing the whole tree.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	applog "vna/internal/log"
	"vna/internal/notation"
	"vna/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores per-archive index data under the archive root.
	IndexDirName  = ".vna"
	IndexFileName = "index.db"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the archive's index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures the archive index exists at .vna/index.db, opens
// the database, enables WAL mode, and brings the schema up to date. The
// returned *sql.DB is ready for use; callers close it when done.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("archive"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("archive root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .vna dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .vna dir: %w", err)
	}

	path := IndexPath(root)
	// URI with shared cache and a busy timeout; forward slashes for SQLite.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage; a single connection avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Never downgrade an index written by a newer build.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Composer/language lookups turned out to be common filters.
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_compositions_composer ON compositions(composer);`,
				`CREATE INDEX IF NOT EXISTS idx_compositions_language ON compositions(language);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx).
			if _, err := db.ExecContext(ctx, `INSERT INTO fts_compositions(fts_compositions) VALUES('optimize')`); err != nil {
				_ = err
			}
		default:
			// Unknown future step; nothing to do.
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the compositions table and FTS structures if
// they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS compositions (
			comp_id   INTEGER PRIMARY KEY,
			uuid      TEXT NOT NULL UNIQUE,
			path      TEXT NOT NULL UNIQUE,
			title     TEXT NOT NULL,
			raga      TEXT NOT NULL,
			tala      TEXT NOT NULL,
			composer  TEXT,
			language  TEXT,
			type      TEXT,
			tempo     INTEGER,
			sections  INTEGER NOT NULL,
			phrases   INTEGER NOT NULL,
			mtime     TEXT NOT NULL,
			lyrics    TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_compositions_raga ON compositions(raga);`,
		`CREATE INDEX IF NOT EXISTS idx_compositions_tala ON compositions(tala);`,

		// Contentless FTS5 index fed from compositions via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_compositions USING fts5(
			title,
			raga,
			composer,
			lyrics,
			content='',
			tokenize = 'unicode61'
		);`,

		// Files the last rebuild could not parse.
		`CREATE TABLE IF NOT EXISTS parse_failures (
			path    TEXT PRIMARY KEY,
			line    INTEGER NOT NULL,
			message TEXT NOT NULL,
			mtime   TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers keep the contentless FTS table in sync with compositions.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS compositions_ai AFTER INSERT ON compositions BEGIN
			INSERT INTO fts_compositions(rowid, title, raga, composer, lyrics)
			VALUES (new.comp_id, new.title, new.raga, COALESCE(new.composer,''), COALESCE(new.lyrics,''));
		END;`,
		`CREATE TRIGGER IF NOT EXISTS compositions_ad AFTER DELETE ON compositions BEGIN
			INSERT INTO fts_compositions(fts_compositions, rowid, title, raga, composer, lyrics)
			VALUES ('delete', old.comp_id, old.title, old.raga, COALESCE(old.composer,''), COALESCE(old.lyrics,''));
		END;`,
		`CREATE TRIGGER IF NOT EXISTS compositions_au AFTER UPDATE ON compositions BEGIN
			INSERT INTO fts_compositions(fts_compositions, rowid, title, raga, composer, lyrics)
			VALUES ('delete', old.comp_id, old.title, old.raga, COALESCE(old.composer,''), COALESCE(old.lyrics,''));
			INSERT INTO fts_compositions(rowid, title, raga, composer, lyrics)
			VALUES (new.comp_id, new.title, new.raga, COALESCE(new.composer,''), COALESCE(new.lyrics,''));
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// RebuildStats summarizes a Rebuild run.
type RebuildStats struct {
	Indexed int
	Failed  int
}

// ParseFailure is a file the last rebuild could not parse.
type ParseFailure struct {
	Path    string
	Line    int
	Message string
}

// Rebuild walks the archive for .vna files, parses each, and repopulates
// the index. Parse failures are recorded in the index, not fatal. Stable
// ids are preserved: a path already known keeps its uuid across rebuilds.
func Rebuild(ctx context.Context, root string) (RebuildStats, error) {
	l := applog.WithOperation(applog.WithComponent("archive"), "rebuild").With(
		slog.String("root", root),
	)
	var stats RebuildStats
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return stats, err
	}
	defer db.Close()

	known, err := knownIDs(ctx, db)
	if err != nil {
		return stats, err
	}

	paths, err := findNotationFiles(root)
	if err != nil {
		return stats, fmt.Errorf("walk archive: %w", err)
	}

	type compRow struct {
		id       string
		path     string
		title    string
		raga     string
		tala     string
		composer sql.NullString
		language sql.NullString
		ctype    sql.NullString
		tempo    sql.NullInt64
		sections int
		phrases  int
		mtime    string
		lyrics   string
	}
	type failRow struct {
		path    string
		line    int
		message string
		mtime   string
	}
	comps := make([]compRow, 0, len(paths))
	fails := make([]failRow, 0)

	for _, rel := range paths {
		full := filepath.Join(root, filepath.FromSlash(rel))
		data, err := os.ReadFile(full)
		if err != nil {
			l.Warn("skip unreadable file", slog.String("path", rel), slog.Any("err", err))
			continue
		}
		mtime := ""
		if st, err := os.Stat(full); err == nil {
			mtime = st.ModTime().UTC().Format(time.RFC3339)
		}
		doc, err := notation.Parse(string(data))
		if err != nil {
			fr := failRow{path: rel, mtime: mtime, message: err.Error()}
			if pe, ok := notation.AsParseError(err); ok {
				fr.line = pe.Line
				fr.message = pe.Message
			}
			fails = append(fails, fr)
			continue
		}

		id, ok := known[rel]
		if !ok {
			id = uuid.NewString()
		}
		md := doc.Metadata
		row := compRow{
			id:       id,
			path:     rel,
			title:    md.Title,
			raga:     md.Raga,
			tala:     md.Tala,
			sections: len(doc.Sections),
			mtime:    mtime,
			lyrics:   lyricsText(doc),
		}
		for _, sec := range doc.Sections {
			row.phrases += len(sec.Phrases)
		}
		if md.Composer != "" {
			row.composer = sql.NullString{String: md.Composer, Valid: true}
		}
		if md.Language != "" {
			row.language = sql.NullString{String: md.Language, Valid: true}
		}
		if md.CompositionType != "" {
			row.ctype = sql.NullString{String: md.CompositionType, Valid: true}
		}
		if md.Tempo != nil {
			row.tempo = sql.NullInt64{Int64: int64(*md.Tempo), Valid: true}
		}
		comps = append(comps, row)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM compositions;"); err != nil {
		_ = tx.Rollback()
		return stats, fmt.Errorf("clear compositions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM parse_failures;"); err != nil {
		_ = tx.Rollback()
		return stats, fmt.Errorf("clear parse_failures: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO compositions
		(uuid, path, title, raga, tala, composer, language, type, tempo, sections, phrases, mtime, lyrics)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		_ = tx.Rollback()
		return stats, fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range comps {
		if _, err := ins.ExecContext(ctx, r.id, r.path, r.title, r.raga, r.tala, r.composer, r.language, r.ctype, r.tempo, r.sections, r.phrases, r.mtime, r.lyrics); err != nil {
			_ = tx.Rollback()
			return stats, fmt.Errorf("insert composition %s: %w", r.path, err)
		}
	}
	insFail, err := tx.PrepareContext(ctx, `INSERT INTO parse_failures (path, line, message, mtime) VALUES(?,?,?,?);`)
	if err != nil {
		_ = tx.Rollback()
		return stats, fmt.Errorf("prepare failure insert: %w", err)
	}
	defer insFail.Close()
	for _, fr := range fails {
		if _, err := insFail.ExecContext(ctx, fr.path, fr.line, fr.message, fr.mtime); err != nil {
			_ = tx.Rollback()
			return stats, fmt.Errorf("insert parse failure %s: %w", fr.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}

	stats.Indexed = len(comps)
	stats.Failed = len(fails)
	l.Info("index rebuilt", slog.Int("indexed", stats.Indexed), slog.Int("failed", stats.Failed))
	return stats, nil
}

// Failures lists the files the last rebuild could not parse.
func Failures(ctx context.Context, root string) ([]ParseFailure, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT path, line, message FROM parse_failures ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query parse_failures: %w", err)
	}
	defer rows.Close()
	var out []ParseFailure
	for rows.Next() {
		var f ParseFailure
		if err := rows.Scan(&f.Path, &f.Line, &f.Message); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// knownIDs maps indexed paths to their stable uuids.
func knownIDs(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT path, uuid FROM compositions`)
	if err != nil {
		return nil, fmt.Errorf("query known ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[path] = id
	}
	return out, rows.Err()
}

// findNotationFiles returns slash-separated paths of .vna files relative
// to root. Hidden directories (including the index dir itself) are skipped.
func findNotationFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".vna") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

// lyricsText flattens sahitya tokens into one searchable string. Sustain
// characters and explicit syllable marks are stripped so FTS sees words.
func lyricsText(doc *notation.Document) string {
	var sb strings.Builder
	for _, sec := range doc.Sections {
		for _, ph := range sec.Phrases {
			for _, tok := range ph.Sahitya {
				word := strings.Map(func(r rune) rune {
					if r == '-' || r == '`' || r == ',' {
						return -1
					}
					return r
				}, tok)
				if word == "" {
					continue
				}
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word)
			}
		}
	}
	return sb.String()
}
