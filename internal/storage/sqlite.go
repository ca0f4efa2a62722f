package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/trace"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Summary is a trace without its steps.
type Summary struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Operation  trace.Operation `json:"operation"`
	Target     string          `json:"target,omitempty"`
	StepCount  int             `json:"steps"`
	ImportedAt time.Time       `json:"imported_at"`
}

// MessageHit is one step whose message matched a search.
type MessageHit struct {
	TraceID   string `json:"trace_id"`
	StepIndex int    `json:"step"`
	Message   string `json:"message"`
}

const selectSummaryFields = `id, name, operation, target, step_count, imported_at`

// timeLayout has fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			name TEXT,
			operation TEXT NOT NULL,
			target TEXT,
			start_at_end INTEGER NOT NULL DEFAULT 0,
			step_count INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			imported_at TEXT NOT NULL,
			steps_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_traces_fingerprint ON traces(fingerprint);

		-- Every key id that appears in any snapshot of a trace
		CREATE TABLE IF NOT EXISTS trace_keys (
			trace_id TEXT NOT NULL,
			key_id TEXT NOT NULL,
			PRIMARY KEY (trace_id, key_id)
		);

		CREATE INDEX IF NOT EXISTS idx_trace_keys_key ON trace_keys(key_id);

		-- Full-text search over step messages
		CREATE VIRTUAL TABLE IF NOT EXISTS steps_fts USING fts5(
			trace_id UNINDEXED,
			step_index UNINDEXED,
			message
		);
	`
	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and reloads it from a JSONL file.
// It returns the number of traces loaded.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	traces, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"traces", "trace_keys", "steps_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	traceStmt, err := tx.Prepare(`
		INSERT INTO traces (
			id, name, operation, target, start_at_end,
			step_count, fingerprint, imported_at, steps_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing traces insert: %w", err)
	}
	defer traceStmt.Close()

	keyStmt, err := tx.Prepare(`INSERT OR IGNORE INTO trace_keys (trace_id, key_id) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing keys insert: %w", err)
	}
	defer keyStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO steps_fts (trace_id, step_index, message) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, t := range traces {
		stepsJSON, err := json.Marshal(t.Steps)
		if err != nil {
			return 0, fmt.Errorf("marshaling steps for %s: %w", t.ID, err)
		}

		_, err = traceStmt.Exec(
			t.ID, t.Name, string(t.Operation), t.Target, t.StartAtEnd,
			len(t.Steps), t.Fingerprint, t.ImportedAt.UTC().Format(timeLayout), string(stepsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting trace %s: %w", t.ID, err)
		}

		for _, k := range t.Keys() {
			if _, err := keyStmt.Exec(t.ID, k); err != nil {
				return 0, fmt.Errorf("inserting key %s for %s: %w", k, t.ID, err)
			}
		}

		for i, s := range t.Steps {
			if s.Message == "" {
				continue
			}
			if _, err := ftsStmt.Exec(t.ID, i, s.Message); err != nil {
				return 0, fmt.Errorf("inserting fts for %s step %d: %w", t.ID, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(traces), nil
}

// Count returns the number of traces in the database.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM traces`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting traces: %w", err)
	}
	return n, nil
}

// ListTraces returns trace summaries, newest first. A limit of 0 means no
// limit.
func (d *DB) ListTraces(limit int) ([]Summary, error) {
	query := `SELECT ` + selectSummaryFields + ` FROM traces ORDER BY imported_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing traces: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// TracesTouchingKey returns the traces in which keyID appears in any snapshot.
func (d *DB) TracesTouchingKey(keyID string) ([]Summary, error) {
	rows, err := d.db.Query(`
		SELECT `+selectSummaryFields+` FROM traces
		WHERE id IN (SELECT trace_id FROM trace_keys WHERE key_id = ?)
		ORDER BY imported_at DESC, id
	`, keyID)
	if err != nil {
		return nil, fmt.Errorf("querying traces for key %s: %w", keyID, err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// GetTrace loads a full trace. It returns nil, nil when id is unknown.
func (d *DB) GetTrace(id string) (*trace.Trace, error) {
	var (
		t          trace.Trace
		name, tgt  sql.NullString
		op         string
		importedAt string
		stepsJSON  string
	)
	err := d.db.QueryRow(`
		SELECT id, name, operation, target, start_at_end, fingerprint, imported_at, steps_json
		FROM traces WHERE id = ?
	`, id).Scan(&t.ID, &name, &op, &tgt, &t.StartAtEnd, &t.Fingerprint, &importedAt, &stepsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading trace %s: %w", id, err)
	}

	t.Name = name.String
	t.Target = tgt.String
	t.Operation = trace.Operation(op)
	if t.ImportedAt, err = time.Parse(timeLayout, importedAt); err != nil {
		return nil, fmt.Errorf("parsing imported_at for %s: %w", id, err)
	}
	var steps []catalog.Step
	if err := json.Unmarshal([]byte(stepsJSON), &steps); err != nil {
		return nil, fmt.Errorf("parsing steps for %s: %w", id, err)
	}
	t.Steps = steps
	return &t, nil
}

// SearchMessages runs a full-text query over step messages.
func (d *DB) SearchMessages(query string, limit int) ([]MessageHit, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.Query(`
		SELECT trace_id, step_index, message FROM steps_fts
		WHERE steps_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	var hits []MessageHit
	for rows.Next() {
		var h MessageHit
		if err := rows.Scan(&h.TraceID, &h.StepIndex, &h.Message); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func scanSummaries(rows *sql.Rows) ([]Summary, error) {
	var out []Summary
	for rows.Next() {
		var (
			s          Summary
			name, tgt  sql.NullString
			op         string
			importedAt string
		)
		if err := rows.Scan(&s.ID, &name, &op, &tgt, &s.StepCount, &importedAt); err != nil {
			return nil, err
		}
		s.Name = name.String
		s.Target = tgt.String
		s.Operation = trace.Operation(op)
		t, err := time.Parse(timeLayout, importedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing imported_at for %s: %w", s.ID, err)
		}
		s.ImportedAt = t
		out = append(out, s)
	}
	return out, rows.Err()
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// Key ids such as BK-001 contain '-', which FTS5 reads as an operator.
	if strings.ContainsAny(query, "\"*+-:(){}[]^~<>/") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}
	return query
}
