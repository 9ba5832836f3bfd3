// ABOUTME: SQLite-backed ledger of tool executions using modernc.org/sqlite.
// ABOUTME: Append-only records plus the per-tool aggregates behind the stats endpoint.

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeFormat is RFC3339 with a fixed-width fraction so the created_at TEXT
// column sorts chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded tool execution.
type Entry struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	CallID         string         `json:"call_id"`
	Tool           string         `json:"tool"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ToolStat aggregates the recorded executions of one tool.
type ToolStat struct {
	Tool          string  `json:"tool"`
	Calls         int64   `json:"calls"`
	Errors        int64   `json:"errors"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Ledger persists tool executions to a SQLite file.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the ledger at the given path. The schema is created
// if it doesn't exist and parent directories are created as needed.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &Ledger{
		db:     db,
		logger: logger,
	}

	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("audit ledger initialized", "path", path)
	return l, nil
}

// createSchema creates the ledger table if it doesn't exist
func (l *Ledger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tool_executions (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			call_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			args_json TEXT,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tool_executions_created
			ON tool_executions(created_at);

		CREATE INDEX IF NOT EXISTS idx_tool_executions_tool
			ON tool_executions(tool);
	`

	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Record appends a new entry to the ledger.
// Generates ID and CreatedAt if not set.
func (l *Ledger) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var argsJSON *string
	if e.Arguments != nil {
		data, err := json.Marshal(e.Arguments)
		if err != nil {
			return fmt.Errorf("marshaling entry arguments: %w", err)
		}
		str := string(data)
		argsJSON = &str
	}

	var errMsg *string
	if e.Error != "" {
		errMsg = &e.Error
	}

	query := `
		INSERT INTO tool_executions (id, conversation_id, call_id, tool, status, error, args_json, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		e.ID,
		e.ConversationID,
		e.CallID,
		e.Tool,
		e.Status,
		errMsg,
		argsJSON,
		e.DurationMS,
		e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting ledger entry: %w", err)
	}

	l.logger.Debug("recorded tool execution",
		"id", e.ID,
		"conversation_id", e.ConversationID,
		"tool", e.Tool,
		"status", e.Status,
	)
	return nil
}

// normalizeLimit applies default (100) and cap (1000) to a list limit.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// scanEntry scans a row into an Entry.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var e Entry
	var errMsg, argsJSON sql.NullString
	var createdAt string

	if err := scanner.Scan(
		&e.ID,
		&e.ConversationID,
		&e.CallID,
		&e.Tool,
		&e.Status,
		&errMsg,
		&argsJSON,
		&e.DurationMS,
		&createdAt,
	); err != nil {
		return e, fmt.Errorf("scanning ledger entry: %w", err)
	}

	if errMsg.Valid {
		e.Error = errMsg.String
	}
	if argsJSON.Valid {
		if err := json.Unmarshal([]byte(argsJSON.String), &e.Arguments); err != nil {
			return e, fmt.Errorf("unmarshaling entry arguments: %w", err)
		}
	}

	var err error
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("parsing created_at: %w", err)
	}
	return e, nil
}

// ListRecent returns the most recent entries, newest first. The limit is
// normalized: zero or negative means 100, values above 1000 are capped.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, conversation_id, call_id, tool, status, error, args_json, duration_ms, created_at
		FROM tool_executions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// ToolStats returns aggregated statistics per tool, most-called first.
func (l *Ledger) ToolStats(ctx context.Context) ([]ToolStat, error) {
	query := `
		SELECT
			tool,
			COUNT(*) as calls,
			COALESCE(SUM(CASE WHEN status != 'ok' THEN 1 ELSE 0 END), 0) as errors,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		FROM tool_executions
		GROUP BY tool
		ORDER BY calls DESC, tool ASC
	`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tool stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []ToolStat
	for rows.Next() {
		var s ToolStat
		if err := rows.Scan(&s.Tool, &s.Calls, &s.Errors, &s.AvgDurationMS); err != nil {
			return nil, fmt.Errorf("scanning tool stat: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tool stats: %w", err)
	}

	if stats == nil {
		stats = []ToolStat{}
	}
	return stats, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
