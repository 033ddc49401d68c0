package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ReadLogEntry records one mark-as-read attempt
type ReadLogEntry struct {
	ID       int64
	ThreadID string
	Subject  string
	Sender   string
	Success  bool
	Error    string
	MarkedAt time.Time
}

// ReadLogStore is the ledger of mark-as-read side effects
type ReadLogStore struct {
	db *sql.DB
}

// NewReadLogStore creates a read log store from a base store
func NewReadLogStore(store *Store) *ReadLogStore {
	if store == nil {
		return nil
	}
	return &ReadLogStore{db: store.DB()}
}

// Record appends an entry; a zero MarkedAt is replaced by the current time
func (rs *ReadLogStore) Record(ctx context.Context, entry ReadLogEntry) error {
	if rs == nil || rs.db == nil {
		return fmt.Errorf("read log store not initialized")
	}
	if strings.TrimSpace(entry.ThreadID) == "" {
		return fmt.Errorf("thread id required")
	}
	if entry.MarkedAt.IsZero() {
		entry.MarkedAt = time.Now()
	}
	_, err := rs.db.ExecContext(ctx, `INSERT INTO read_log(thread_id, subject, sender, success, error, marked_at)
VALUES(?,?,?,?,?,?)`,
		entry.ThreadID, entry.Subject, entry.Sender, entry.Success, entry.Error, entry.MarkedAt.UnixMilli())
	return err
}

// Recent returns up to limit entries, newest first
func (rs *ReadLogStore) Recent(ctx context.Context, limit int) ([]ReadLogEntry, error) {
	if rs == nil || rs.db == nil {
		return nil, fmt.Errorf("read log store not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := rs.db.QueryContext(ctx, `SELECT id, thread_id, subject, sender, success, error, marked_at
FROM read_log ORDER BY marked_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReadLogEntry
	for rows.Next() {
		var e ReadLogEntry
		var markedAt int64
		if err := rows.Scan(&e.ID, &e.ThreadID, &e.Subject, &e.Sender, &e.Success, &e.Error, &markedAt); err != nil {
			return nil, err
		}
		e.MarkedAt = time.UnixMilli(markedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// WasMarked reports whether a successful mark-as-read was recorded for threadID
func (rs *ReadLogStore) WasMarked(ctx context.Context, threadID string) (bool, error) {
	if rs == nil || rs.db == nil {
		return false, fmt.Errorf("read log store not initialized")
	}
	var n int
	err := rs.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM read_log WHERE thread_id=? AND success=1`, threadID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
