package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewLogEntry_Relevant(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
	msg := NewMessage("Alice", "Project Phoenix update: on track for Q3", OriginSample, now)

	entry := NewLogEntry(msg, "Project Phoenix Status Updates", &ClassificationResult{
		IsRelevant: true,
		Reason:     "Status update about Project Phoenix",
	}, nil, now)

	if entry.ID != msg.ID {
		t.Errorf("Expected entry ID %s, got %s", msg.ID, entry.ID)
	}
	if entry.Decision != DecisionForwarded {
		t.Errorf("Expected Forwarded, got %s", entry.Decision)
	}
	if entry.Reason != "Status update about Project Phoenix" {
		t.Errorf("Unexpected reason: %q", entry.Reason)
	}
	if entry.Timestamp != "2:30 PM" {
		t.Errorf("Expected timestamp 2:30 PM, got %s", entry.Timestamp)
	}
	if entry.Topic != "Project Phoenix Status Updates" {
		t.Errorf("Unexpected topic: %q", entry.Topic)
	}
}

func TestNewLogEntry_Irrelevant(t *testing.T) {
	now := time.Now()
	msg := NewMessage("Bob", "I found a great coffee shop downtown!", OriginSample, now)

	entry := NewLogEntry(msg, "Project Phoenix Status Updates", &ClassificationResult{
		IsRelevant: false,
		Reason:     "Social chatter",
	}, nil, now)

	if entry.Decision != DecisionBlocked {
		t.Errorf("Expected Blocked, got %s", entry.Decision)
	}
	if entry.Reason != "Social chatter" {
		t.Errorf("Expected reason to be kept for irrelevant messages, got %q", entry.Reason)
	}
}

func TestNewLogEntry_Error(t *testing.T) {
	now := time.Now()
	msg := NewMessage("Charlie", "Weekly report", OriginSample, now)
	err := NewClassificationError("chat completion", errors.New("network unreachable"))

	// A stale result must not override the error
	entry := NewLogEntry(msg, "topic", &ClassificationResult{IsRelevant: true, Reason: "x"}, err, now)

	if entry.Decision != DecisionBlocked {
		t.Errorf("Expected Blocked on error, got %s", entry.Decision)
	}
	if entry.Reason != err.Error() {
		t.Errorf("Expected reason %q, got %q", err.Error(), entry.Reason)
	}
}

func TestNewLogEntry_NilResult(t *testing.T) {
	msg := NewMessage("Diana", "charger?", OriginSample, time.Now())
	entry := NewLogEntry(msg, "topic", nil, nil, time.Now())
	if entry.Decision != DecisionBlocked {
		t.Errorf("Expected Blocked, got %s", entry.Decision)
	}
	if entry.Reason == "" {
		t.Error("Expected a reason for a missing result")
	}
}

func TestNewOperatorLogEntry(t *testing.T) {
	msg := NewMessage("Operator", "hello", OriginOperator, time.Now())
	entry := NewOperatorLogEntry(msg, "topic", time.Now())
	if !entry.IsForwarded() {
		t.Errorf("Expected operator entry to be forwarded, got %s", entry.Decision)
	}
	if entry.Reason != OperatorBypassReason {
		t.Errorf("Unexpected reason: %q", entry.Reason)
	}
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		m := NewMessage("Alice", "hi", OriginSample, time.Now())
		if seen[m.ID] {
			t.Fatalf("Duplicate message ID %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestClassificationError(t *testing.T) {
	base := errors.New("connection refused")
	err := NewClassificationError("chat completion", base)

	if !IsClassificationError(err) {
		t.Fatal("Expected a ClassificationError")
	}
	if !errors.Is(err, base) {
		t.Error("Expected error to unwrap to the cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Expected cause in message, got %q", err.Error())
	}

	// Wrapping twice keeps the original
	again := NewClassificationError("outer", err)
	if again != err {
		t.Error("Expected an existing ClassificationError to be returned as is")
	}

	if NewClassificationError("op", nil) != nil {
		t.Error("Expected nil for a nil cause")
	}
}

func TestClassificationRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ClassificationRequest
		wantErr bool
	}{
		{"valid", ClassificationRequest{Message: "hi", Topic: "greetings"}, false},
		{"empty message", ClassificationRequest{Message: "  ", Topic: "greetings"}, true},
		{"empty topic", ClassificationRequest{Message: "hi", Topic: ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
