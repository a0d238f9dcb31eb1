package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"
	"github.com/devricklin/echo-relay/internal/conf"
	"github.com/devricklin/echo-relay/internal/infra/openai"
)

// fakeModel emulates the chat-completions endpoint
type fakeModel struct {
	mu       sync.Mutex
	content  string
	status   int
	delay    time.Duration
	requests []map[string]interface{}
}

func (f *fakeModel) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		f.mu.Lock()
		f.requests = append(f.requests, body)
		f.mu.Unlock()

		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}

		if f.status != 0 && f.status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			fmt.Fprint(w, `{"error":{"message":"upstream unavailable","type":"server_error"}}`)
			return
		}

		resp := map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": f.content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClassifier(t *testing.T, fake *fakeModel, timeout time.Duration) repo.ClassifierRepo {
	t.Helper()
	ts := httptest.NewServer(fake.handler(t))
	t.Cleanup(ts.Close)

	client := openai.NewClient("sk-test", ts.URL, "test-model", nil)
	r, err := NewClassifierRepo(client, conf.DefaultRelayConfig().Classifier, timeout)
	if err != nil {
		t.Fatalf("NewClassifierRepo failed: %v", err)
	}
	return r
}

func TestClassifierRepo_Relevant(t *testing.T) {
	fake := &fakeModel{content: `{"isRelevant": true, "reason": "It is a Project Phoenix status update."}`}
	r := newTestClassifier(t, fake, time.Second)

	result, err := r.Classify(context.Background(), domain.ClassificationRequest{
		Message: "Project Phoenix update: on track for Q3",
		Topic:   "Project Phoenix Status Updates",
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !result.IsRelevant {
		t.Error("Expected relevant result")
	}
	if result.Reason == "" {
		t.Error("Expected a reason")
	}

	if len(fake.requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if req["model"] != "test-model" {
		t.Errorf("Unexpected model: %v", req["model"])
	}

	format, ok := req["response_format"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected response_format in request")
	}
	if format["type"] != "json_schema" {
		t.Errorf("Expected json_schema response format, got %v", format["type"])
	}

	messages := req["messages"].([]interface{})
	user := messages[len(messages)-1].(map[string]interface{})
	content := user["content"].(string)
	if !strings.Contains(content, "Message: Project Phoenix update: on track for Q3") ||
		!strings.Contains(content, "Group Topic: Project Phoenix Status Updates") {
		t.Errorf("Prompt does not embed message and topic: %s", content)
	}
}

func TestClassifierRepo_Irrelevant(t *testing.T) {
	fake := &fakeModel{content: "```json\n{\"isRelevant\": false, \"reason\": \"Social chatter about coffee.\"}\n```"}
	r := newTestClassifier(t, fake, time.Second)

	result, err := r.Classify(context.Background(), domain.ClassificationRequest{
		Message: "I found a great coffee shop downtown!",
		Topic:   "Project Phoenix Status Updates",
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.IsRelevant {
		t.Error("Expected irrelevant result")
	}
}

func TestClassifierRepo_Failures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeModel
	}{
		{"malformed output", &fakeModel{content: "Yes, this looks relevant."}},
		{"schema violation", &fakeModel{content: `{"relevant": true}`}},
		{"server error", &fakeModel{status: http.StatusServiceUnavailable}},
		{"timeout", &fakeModel{content: `{"isRelevant": true, "reason": "x"}`, delay: 500 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestClassifier(t, tt.fake, 50*time.Millisecond)

			_, err := r.Classify(context.Background(), domain.ClassificationRequest{Message: "hello", Topic: "topic"})
			if err == nil {
				t.Fatal("Expected error")
			}
			if !domain.IsClassificationError(err) {
				t.Errorf("Expected ClassificationError, got %T: %v", err, err)
			}
		})
	}
}

func TestNewClassifierRepo_NilClient(t *testing.T) {
	r, err := NewClassifierRepo(nil, conf.DefaultRelayConfig().Classifier, time.Second)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != nil {
		t.Error("Expected nil repo for nil client")
	}
}
