package domain

import (
	"time"

	"github.com/google/uuid"
)

// DisplayTimeLayout is the short clock format shown next to feed items
const DisplayTimeLayout = "3:04 PM"

// Origin tells where a message entered the source feed
type Origin string

const (
	OriginSample   Origin = "sample"
	OriginOperator Origin = "operator"
)

// Message represents a message entity in the source or forwarded feed
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp string    `json:"timestamp"` // display string
	CreatedAt time.Time `json:"created_at"`
	Origin    Origin    `json:"origin"`
}

// SampleMessage is a message template from the fixed sample sequence
type SampleMessage struct {
	Sender string `json:"sender" yaml:"sender"`
	Text   string `json:"text" yaml:"text"`
}

// NewMessage creates a message stamped with a fresh ID and the given time
func NewMessage(sender, text string, origin Origin, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: now.Format(DisplayTimeLayout),
		CreatedAt: now,
		Origin:    origin,
	}
}

// IsFromOperator checks if the message was typed by the operator
func (m *Message) IsFromOperator() bool {
	return m.Origin == OriginOperator
}
