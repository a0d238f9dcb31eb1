package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// feedRepo implements the feed repository on an in-memory SQLite database.
// Nothing is written to disk; the feeds live as long as the process.
type feedRepo struct {
	db *sql.DB
}

// NewFeedRepo creates a new feed repository
func NewFeedRepo() (repo.FeedRepo, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Create messages table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			feed TEXT NOT NULL,
			id TEXT NOT NULL,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			origin TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE(feed, id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_feed ON messages(feed, seq)`)

	// Create activity log table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_log (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			message_text TEXT NOT NULL,
			sender TEXT NOT NULL,
			decision TEXT NOT NULL,
			reason TEXT NOT NULL,
			topic TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create activity_log table: %w", err)
	}

	return &feedRepo{db: db}, nil
}

// AddMessage implements repo.FeedRepo
func (r *feedRepo) AddMessage(ctx context.Context, feed repo.Feed, msg domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (feed, id, sender, text, timestamp, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(feed), msg.ID, msg.Sender, msg.Text, msg.Timestamp, string(msg.Origin), msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to add %s message: %w", feed, err)
	}
	return nil
}

// ListMessages implements repo.FeedRepo
func (r *feedRepo) ListMessages(ctx context.Context, feed repo.Feed, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender, text, timestamp, origin, created_at
		FROM messages
		WHERE feed = ?
		ORDER BY seq DESC
		LIMIT ?
	`, string(feed), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s messages: %w", feed, err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		var origin string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Text, &msg.Timestamp, &origin, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Origin = domain.Origin(origin)
		msg.CreatedAt = time.Unix(0, createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AddLogEntry implements repo.FeedRepo
func (r *feedRepo) AddLogEntry(ctx context.Context, entry domain.ActivityLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, message_text, sender, decision, reason, topic, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.MessageText, entry.Sender, string(entry.Decision), entry.Reason, entry.Topic, entry.Timestamp, entry.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to add log entry: %w", err)
	}
	return nil
}

// ListLogEntries implements repo.FeedRepo
func (r *feedRepo) ListLogEntries(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_text, sender, decision, reason, topic, timestamp, created_at
		FROM activity_log
		ORDER BY seq DESC
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityLogEntry, 0)
	for rows.Next() {
		var e domain.ActivityLogEntry
		var decision string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.MessageText, &e.Sender, &decision, &e.Reason, &e.Topic, &e.Timestamp, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Decision = domain.Decision(decision)
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts implements repo.FeedRepo
func (r *feedRepo) Counts(ctx context.Context) (domain.FeedCounts, error) {
	var counts domain.FeedCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM messages WHERE feed = ?),
			(SELECT COUNT(*) FROM messages WHERE feed = ?),
			(SELECT COUNT(*) FROM activity_log WHERE decision = ?)
	`, string(repo.FeedSource), string(repo.FeedForwarded), string(domain.DecisionBlocked)).
		Scan(&counts.Source, &counts.Forwarded, &counts.Blocked)
	if err != nil {
		return counts, fmt.Errorf("failed to count feeds: %w", err)
	}
	return counts, nil
}

// Close implements repo.FeedRepo
func (r *feedRepo) Close() error {
	return r.db.Close()
}

// normalizeLimit maps non-positive limits to "no limit"
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
