package domain

import "time"

// Decision is the routing outcome recorded in the activity log
type Decision string

const (
	DecisionForwarded Decision = "Forwarded"
	DecisionBlocked   Decision = "Blocked"
)

// OperatorBypassReason is recorded for messages the operator sends directly
const OperatorBypassReason = "Sent by operator; classification bypassed."

// ActivityLogEntry records one routing decision for one source message.
// ID is shared with the triggering Message.
type ActivityLogEntry struct {
	ID          string    `json:"id"`
	MessageText string    `json:"message_text"`
	Sender      string    `json:"sender"`
	Decision    Decision  `json:"decision"`
	Reason      string    `json:"reason"`
	Topic       string    `json:"topic"`
	Timestamp   string    `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsForwarded reports whether the entry routed its message to the destination
func (e *ActivityLogEntry) IsForwarded() bool {
	return e.Decision == DecisionForwarded
}

// DecisionFor maps a relevance flag to a decision
func DecisionFor(isRelevant bool) Decision {
	if isRelevant {
		return DecisionForwarded
	}
	return DecisionBlocked
}

// NewLogEntry builds the log entry for a classification attempt.
// A non-nil err always yields Blocked with the error text as the reason.
func NewLogEntry(msg Message, topic string, result *ClassificationResult, err error, now time.Time) ActivityLogEntry {
	entry := ActivityLogEntry{
		ID:          msg.ID,
		MessageText: msg.Text,
		Sender:      msg.Sender,
		Decision:    DecisionBlocked,
		Topic:       topic,
		Timestamp:   now.Format(DisplayTimeLayout),
		CreatedAt:   now,
	}

	switch {
	case err != nil:
		entry.Reason = err.Error()
	case result == nil:
		entry.Reason = "classifier returned no result"
	default:
		entry.Decision = DecisionFor(result.IsRelevant)
		entry.Reason = result.Reason
	}
	return entry
}

// NewOperatorLogEntry builds the Forwarded entry for an operator message
func NewOperatorLogEntry(msg Message, topic string, now time.Time) ActivityLogEntry {
	return ActivityLogEntry{
		ID:          msg.ID,
		MessageText: msg.Text,
		Sender:      msg.Sender,
		Decision:    DecisionForwarded,
		Reason:      OperatorBypassReason,
		Topic:       topic,
		Timestamp:   now.Format(DisplayTimeLayout),
		CreatedAt:   now,
	}
}

// FeedCounts aggregates the dashboard feeds
type FeedCounts struct {
	Source    int `json:"source"`
	Forwarded int `json:"forwarded"`
	Blocked   int `json:"blocked"`
}
