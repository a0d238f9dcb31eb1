package service

import (
	"sync"
	"time"
)

// EventType names a dashboard event
type EventType string

const (
	EventSourceMessage     EventType = "message.source"
	EventForwardedMessage  EventType = "message.forwarded"
	EventLogEntry          EventType = "log.entry"
	EventConnectionChanged EventType = "connection.changed"
	EventTopicChanged      EventType = "topic.changed"
	EventNotification      EventType = "notification"
	EventState             EventType = "state"
)

// Notification levels
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event is pushed to dashboard subscribers
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

// Notification is a transient operator message (toast)
type Notification struct {
	Level       string `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EventHub fans events out to subscribers.
// Slow subscribers drop events instead of blocking the publisher.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewEventHub creates a hub with the given per-subscriber buffer
func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventHub{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber; call the returned func to unsubscribe
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish sends an event to every subscriber without blocking
func (h *EventHub) Publish(eventType EventType, data interface{}) {
	if h == nil {
		return
	}
	ev := Event{Type: eventType, Data: data, At: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Notify publishes a notification event
func (h *EventHub) Notify(level, title, description string) {
	h.Publish(EventNotification, Notification{Level: level, Title: title, Description: description})
}

// SubscriberCount returns the number of live subscribers
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes all subscriber channels
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
