package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Export is one download of a rendered code. Only metadata is recorded; the
// encoded payload may hold credentials and is never stored.
type Export struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Kind      string    `json:"kind"`
	Format    string    `json:"format"`
	Bytes     int       `json:"bytes"`
	HasLogo   bool      `json:"has_logo"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportLog manages SQLite storage for export records.
type ExportLog struct {
	db *sql.DB
}

const createExportsTable = `
CREATE TABLE IF NOT EXISTS exports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    format TEXT NOT NULL,
    bytes INTEGER NOT NULL DEFAULT 0,
    has_logo INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);
`

// NewExportLog opens (or creates) the SQLite database at dbPath and
// initialises the schema.
func NewExportLog(dbPath string) (*ExportLog, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{createExportsTable, createIndexes} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &ExportLog{db: db}, nil
}

// Record inserts e and fills in its ID. A zero CreatedAt is set to now.
func (l *ExportLog) Record(e *Export) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO exports (session_id, kind, format, bytes, has_logo, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := l.db.Exec(query,
		e.SessionID,
		e.Kind,
		e.Format,
		e.Bytes,
		boolToInt(e.HasLogo),
		e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("record export id: %w", err)
	}
	e.ID = id
	return nil
}

// List returns the most recent exports, newest first.
func (l *ExportLog) List(limit int) ([]Export, error) {
	const query = `
		SELECT id, session_id, kind, format, bytes, has_logo, created_at
		FROM exports
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := l.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []Export
	for rows.Next() {
		var (
			e       Export
			hasLogo int
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Format, &e.Bytes, &hasLogo, &created); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		e.HasLogo = hasLogo != 0
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (l *ExportLog) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
