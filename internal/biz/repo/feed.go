package repo

import (
	"context"

	"github.com/devricklin/echo-relay/internal/biz/domain"
)

// Feed names a message list
type Feed string

const (
	FeedSource    Feed = "source"
	FeedForwarded Feed = "forwarded"
)

// FeedRepo stores the dashboard feeds for the lifetime of the process
type FeedRepo interface {
	// AddMessage appends a message to a feed
	AddMessage(ctx context.Context, feed Feed, msg domain.Message) error

	// ListMessages returns up to limit messages, most recent first
	ListMessages(ctx context.Context, feed Feed, limit int) ([]domain.Message, error)

	// AddLogEntry appends an activity log entry
	AddLogEntry(ctx context.Context, entry domain.ActivityLogEntry) error

	// ListLogEntries returns up to limit entries, most recent first
	ListLogEntries(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error)

	// Counts aggregates the feeds
	Counts(ctx context.Context) (domain.FeedCounts, error)

	Close() error
}
