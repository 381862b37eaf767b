// Package store persists a point-in-time snapshot of the symbol index to a
// SQLite database. The live index never reads it back; it exists so the scan
// command can hand the results of an offline indexing run to other tools.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/fabls/internal/extract"
)

// Store is the SQLite data access layer for snapshot databases.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the snapshot tables. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id            INTEGER PRIMARY KEY,
  path          TEXT NOT NULL UNIQUE,
  symbol_count  INTEGER NOT NULL DEFAULT 0,
  scanned_at    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS symbols (
  id           INTEGER PRIMARY KEY,
  file_id      INTEGER NOT NULL REFERENCES files(id),
  name         TEXT NOT NULL,
  kind         TEXT NOT NULL,
  start_line   INTEGER,
  start_col    INTEGER,
  end_line     INTEGER,
  end_col      INTEGER,
  signature    TEXT,
  description  TEXT
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
`

// File is one scanned file record.
type File struct {
	ID          int64
	Path        string
	SymbolCount int
	ScannedAt   time.Time
}

// SymbolRow is one persisted symbol.
type SymbolRow struct {
	ID          int64
	FileID      int64
	Name        string
	Kind        string
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
	Signature   string
	Description string
}

// WriteFileSymbols replaces the snapshot for one file in a single
// transaction: the file record and every symbol of its table.
func (s *Store) WriteFileSymbols(path string, table *extract.SymbolTable) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM files WHERE path = ?`, path).Scan(&existingID)
	switch {
	case err == nil:
		if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, existingID); err != nil {
			return 0, fmt.Errorf("delete stale symbols: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM files WHERE id = ?`, existingID); err != nil {
			return 0, fmt.Errorf("delete stale file: %w", err)
		}
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("lookup file: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO files (path, symbol_count, scanned_at) VALUES (?, ?, ?)`,
		path, table.Len(), time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("file id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO symbols
		(file_id, name, kind, start_line, start_col, end_line, end_col, signature, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	insert := func(sym *extract.Symbol) error {
		_, err := stmt.Exec(
			fileID, sym.Name, sym.Kind.String(),
			sym.Range.Start.Row, sym.Range.Start.Column,
			sym.Range.End.Row, sym.Range.End.Column,
			sym.Signature, sym.Description,
		)
		return err
	}
	for _, sym := range table.Functions {
		if err := insert(sym); err != nil {
			return 0, fmt.Errorf("insert symbol %s: %w", sym.Name, err)
		}
	}
	for _, sym := range table.Variables {
		if err := insert(sym); err != nil {
			return 0, fmt.Errorf("insert symbol %s: %w", sym.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return fileID, nil
}

// SymbolsByFile returns the persisted symbols for one file, ordered by
// position.
func (s *Store) SymbolsByFile(fileID int64) ([]SymbolRow, error) {
	rows, err := s.db.Query(`SELECT id, file_id, name, kind,
			start_line, start_col, end_line, end_col, signature, description
		FROM symbols WHERE file_id = ? ORDER BY start_line, start_col`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolRow
	for rows.Next() {
		var r SymbolRow
		if err := rows.Scan(&r.ID, &r.FileID, &r.Name, &r.Kind,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol,
			&r.Signature, &r.Description); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Totals returns the file and symbol counts in the snapshot.
func (s *Store) Totals() (files int64, symbols int64, err error) {
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&files); err != nil {
		return 0, 0, fmt.Errorf("count files: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&symbols); err != nil {
		return 0, 0, fmt.Errorf("count symbols: %w", err)
	}
	return files, symbols, nil
}
