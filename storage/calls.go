package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"toolcall/config"
	"toolcall/model"
)

// CallEntry is one row of the tool call log.
type CallEntry struct {
	ID           int64
	TranscriptID string
	Name         string
	Arguments    string
	Result       string
	Status       string
	Duration     time.Duration
	CreatedAt    time.Time
}

// CallLog is a SQLite audit log of every dispatched tool call.
type CallLog struct {
	db *sql.DB
}

func NewCallLog(dataDir string) (*CallLog, error) {
	dbPath := filepath.Join(dataDir, "calls.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log := &CallLog{db: db}

	if err := log.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return log, nil
}

func (l *CallLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transcript_id TEXT NOT NULL,
		name TEXT NOT NULL,
		arguments TEXT NOT NULL,
		result TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tool_calls_transcript ON tool_calls(transcript_id);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Recorder returns a model.CallRecorder that files calls under transcriptID.
func (l *CallLog) Recorder(transcriptID string) model.CallRecorder {
	return &transcriptRecorder{log: l, transcriptID: transcriptID}
}

type transcriptRecorder struct {
	log          *CallLog
	transcriptID string
}

func (r *transcriptRecorder) RecordCall(ctx context.Context, rec model.CallRecord) error {
	return r.log.Insert(ctx, r.transcriptID, rec)
}

// Insert stores one call record.
func (l *CallLog) Insert(ctx context.Context, transcriptID string, rec model.CallRecord) error {
	args, err := json.Marshal(rec.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	query := `
	INSERT INTO tool_calls (transcript_id, name, arguments, result, status, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = l.db.ExecContext(ctx, query,
		transcriptID,
		rec.Name,
		string(args),
		rec.Result,
		string(rec.Status),
		rec.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tool call: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[CallLog] %s %s (%s) for %s", rec.Name, rec.Status, rec.Duration, transcriptID)
	}
	return nil
}

// List returns the calls of one transcript in the order they were made.
func (l *CallLog) List(ctx context.Context, transcriptID string) ([]CallEntry, error) {
	query := `
	SELECT id, transcript_id, name, arguments, result, status, duration_ms, created_at
	FROM tool_calls
	WHERE transcript_id = ?
	ORDER BY id ASC
	`

	rows, err := l.db.QueryContext(ctx, query, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool calls: %w", err)
	}
	defer rows.Close()

	var entries []CallEntry
	for rows.Next() {
		var e CallEntry
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.TranscriptID, &e.Name, &e.Arguments, &e.Result, &e.Status, &durationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CountByStatus tallies all logged calls per status.
func (l *CallLog) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tool_calls GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tool calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// DeleteTranscript removes every call filed under transcriptID and reports
// how many were removed.
func (l *CallLog) DeleteTranscript(ctx context.Context, transcriptID string) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM tool_calls WHERE transcript_id = ?`, transcriptID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tool calls: %w", err)
	}
	return result.RowsAffected()
}

func (l *CallLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
