// Package audit persists an operation-level trail of pipeline activity to
// SQLite: one row per geocode, chart, or generation call, with timings and
// outcome. Writes are asynchronous and best-effort so a failing audit store
// never blocks a reading request.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/natal/dbopen"
	"github.com/hazyhaar/natal/idgen"
)

// Schema contains the DDL for the audit table. Idempotent; apply with
// dbopen.WithSchema(audit.Schema) at open time.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    component TEXT NOT NULL,
    operation TEXT NOT NULL,
    trace_id TEXT,
    client TEXT,
    parameters TEXT NOT NULL DEFAULT '{}',
    result TEXT,
    error_code TEXT,
    error_message TEXT,
    duration_ms INTEGER,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_component ON audit_log(component, operation);
CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
`

// Entry is a single operation record in the audit trail.
type Entry struct {
	EntryID   string    `json:"entryId"`
	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component"` // "gateway", "geocode", "chart", "reading"
	Operation string    `json:"operation"` // "resolve", "build", "generate", ...

	TraceID string `json:"traceId,omitempty"`
	Client  string `json:"client,omitempty"`

	Parameters   string `json:"parameters,omitempty"` // JSON
	Result       string `json:"result,omitempty"`     // JSON
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	DurationMs   int64  `json:"durationMs"`

	Status string `json:"status"` // "success", "error", "timeout"
}

// Filter controls query results from the audit log.
type Filter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Component *string
	Operation *string
	Status    *string
	Limit     int // default 100
	Offset    int
	OrderBy   string // "timestamp" or "duration_ms"
	OrderDir  string // "ASC" or "DESC"
}

// Logger persists audit entries asynchronously in batches.
type Logger struct {
	db    *sql.DB
	newID idgen.Generator
	ch    chan *Entry
	stop  chan struct{}
	done  chan struct{}
}

// Option configures a Logger.
type Option func(*Logger)

// WithIDGenerator sets a custom ID generator for entry IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *Logger) { l.newID = gen }
}

// NewLogger creates an async audit logger. Recommended bufferSize: 1000.
func NewLogger(db *sql.DB, bufferSize int, opts ...Option) *Logger {
	l := &Logger{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
		ch:    make(chan *Entry, bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// Log inserts an audit entry synchronously, retrying on SQLITE_BUSY.
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	l.fillDefaults(entry)
	return l.insert(ctx, entry)
}

// LogAsync queues an entry for async persistence.
// Falls back to synchronous insert if the buffer is full.
func (l *Logger) LogAsync(entry *Entry) {
	l.fillDefaults(entry)
	select {
	case l.ch <- entry:
	default:
		slog.Warn("audit: buffer full, sync fallback", "component", entry.Component)
		if err := l.insert(context.Background(), entry); err != nil {
			slog.Error("audit: sync fallback failed", "error", err)
		}
	}
}

// NewEntry is a convenience factory that builds an Entry from operation
// parameters, result and error. Params and result are marshalled to JSON.
func (l *Logger) NewEntry(component, operation string, params, result any, err error, duration time.Duration) *Entry {
	entry := &Entry{
		EntryID:    l.newID(),
		Timestamp:  time.Now(),
		Component:  component,
		Operation:  operation,
		DurationMs: duration.Milliseconds(),
	}

	if params != nil {
		if b, e := json.Marshal(params); e == nil {
			entry.Parameters = string(b)
		}
	}
	if err != nil {
		entry.Status = "error"
		entry.ErrorMessage = err.Error()
	} else {
		entry.Status = "success"
		if result != nil {
			if b, e := json.Marshal(result); e == nil {
				entry.Result = string(b)
			}
		}
	}
	return entry
}

// Query retrieves audit entries matching the given filter.
func (l *Logger) Query(ctx context.Context, f *Filter) ([]*Entry, error) {
	q := `SELECT entry_id, timestamp, component, operation,
		trace_id, client, parameters, result,
		error_code, error_message, duration_ms, status
		FROM audit_log WHERE 1=1`
	var args []any

	if f.StartTime != nil {
		q += " AND timestamp >= ?"
		args = append(args, f.StartTime.Unix())
	}
	if f.EndTime != nil {
		q += " AND timestamp <= ?"
		args = append(args, f.EndTime.Unix())
	}
	if f.Component != nil {
		q += " AND component = ?"
		args = append(args, *f.Component)
	}
	if f.Operation != nil {
		q += " AND operation = ?"
		args = append(args, *f.Operation)
	}
	if f.Status != nil {
		q += " AND status = ?"
		args = append(args, *f.Status)
	}

	orderBy := "timestamp"
	if f.OrderBy != "" {
		switch f.OrderBy {
		case "timestamp", "duration_ms", "component", "status":
			orderBy = f.OrderBy
		default:
			return nil, fmt.Errorf("invalid order_by column: %q", f.OrderBy)
		}
	}
	orderDir := "DESC"
	if f.OrderDir != "" {
		switch strings.ToUpper(f.OrderDir) {
		case "ASC", "DESC":
			orderDir = strings.ToUpper(f.OrderDir)
		default:
			return nil, fmt.Errorf("invalid order_dir: %q", f.OrderDir)
		}
	}
	q += fmt.Sprintf(" ORDER BY %s %s", orderBy, orderDir)

	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	q += " LIMIT ?"
	args = append(args, limit)
	if f.Offset > 0 {
		q += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var traceID, client sql.NullString
		var result, errorCode, errorMessage sql.NullString
		var durationMs sql.NullInt64

		if err := rows.Scan(
			&e.EntryID, &ts, &e.Component, &e.Operation,
			&traceID, &client,
			&e.Parameters, &result, &errorCode, &errorMessage,
			&durationMs, &e.Status,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		e.Timestamp = time.Unix(ts, 0)
		e.TraceID = traceID.String
		e.Client = client.String
		e.Result = result.String
		e.ErrorCode = errorCode.String
		e.ErrorMessage = errorMessage.String
		e.DurationMs = durationMs.Int64
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup deletes audit entries older than retentionDays.
func (l *Logger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	result, err := dbopen.Exec(ctx, l.db, "DELETE FROM audit_log WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup audit log: %w", err)
	}
	return result.RowsAffected()
}

// StartRetention starts a background goroutine that runs Cleanup every
// interval until done is closed. One cleanup runs immediately so a restart
// never carries stale rows for a full interval.
func (l *Logger) StartRetention(done <-chan struct{}, every time.Duration, retentionDays int) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := l.Cleanup(ctx, retentionDays)
		if err != nil {
			slog.Warn("audit: retention cleanup failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("audit: retention cleanup", "deleted", n, "retention_days", retentionDays)
		}
	}
	go func() {
		run()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}

// Close drains the buffer and stops the flush goroutine.
func (l *Logger) Close() error {
	close(l.stop)
	<-l.done
	return nil
}

func (l *Logger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Status == "" {
		if e.ErrorMessage != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (l *Logger) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	batch := make([]*Entry, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, insertSQL)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, e := range batch {
				if _, err := stmt.ExecContext(ctx,
					e.EntryID, e.Timestamp.Unix(), e.Component, e.Operation,
					e.TraceID, e.Client,
					e.Parameters, e.Result, e.ErrorCode, e.ErrorMessage, e.DurationMs,
					e.Status,
				); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			slog.Error("audit: batch flush failed", "error", err, "size", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-l.stop:
			// drain channel
			for {
				select {
				case e := <-l.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

const insertSQL = `INSERT INTO audit_log
	(entry_id, timestamp, component, operation,
	 trace_id, client,
	 parameters, result, error_code, error_message, duration_ms,
	 status)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`

func (l *Logger) insert(ctx context.Context, e *Entry) error {
	_, err := dbopen.Exec(ctx, l.db, insertSQL,
		e.EntryID, e.Timestamp.Unix(), e.Component, e.Operation,
		e.TraceID, e.Client,
		e.Parameters, e.Result, e.ErrorCode, e.ErrorMessage, e.DurationMs,
		e.Status)
	return err
}
