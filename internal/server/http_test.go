package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/usecase"
	"github.com/devricklin/echo-relay/internal/conf"
	"github.com/devricklin/echo-relay/internal/data"
	"github.com/devricklin/echo-relay/internal/service"
)

// MockClassifier implements service.Classifier for testing
type MockClassifier struct {
	result *domain.ClassificationResult
	err    error
}

func (m *MockClassifier) Classify(ctx context.Context, message, topic string) (*domain.ClassificationResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.NewClassificationError("validate request", domain.ErrEmptyMessage)
	}
	return m.result, m.err
}

func newTestServer(t *testing.T, classifier service.Classifier) (*Server, *service.Dashboard) {
	t.Helper()
	feeds, err := data.NewFeedRepo()
	if err != nil {
		t.Fatalf("NewFeedRepo failed: %v", err)
	}
	t.Cleanup(func() { feeds.Close() })

	hub := service.NewEventHub(64)
	t.Cleanup(hub.Close)

	dashboard := service.NewDashboard(
		classifier,
		usecase.NewSampleUsecase(conf.DefaultRelayConfig()),
		feeds,
		hub,
		service.DashboardConfig{
			TickInterval: time.Hour,
			DefaultTopic: "Project Phoenix Status Updates",
		},
		nil,
	)
	return NewServer("127.0.0.1:0", dashboard, classifier, hub, nil), dashboard
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &MockClassifier{})
	w := doRequest(t, s.Router(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestHandleState(t *testing.T) {
	s, _ := newTestServer(t, &MockClassifier{})
	w := doRequest(t, s.Router(), http.MethodGet, "/api/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if snap.Topic != "Project Phoenix Status Updates" {
		t.Errorf("Unexpected topic: %q", snap.Topic)
	}
	if snap.Source.State != domain.StateDisconnected || snap.Active {
		t.Errorf("Expected disconnected dashboard, got %+v", snap)
	}
}

func TestHandleToggle(t *testing.T) {
	s, _ := newTestServer(t, &MockClassifier{})
	router := s.Router()

	w := doRequest(t, router, http.MethodPost, "/api/connections/source/toggle", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var conn domain.Connection
	if err := json.Unmarshal(w.Body.Bytes(), &conn); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if conn.Name != domain.ConnectionSource {
		t.Errorf("Unexpected connection: %+v", conn)
	}

	w = doRequest(t, router, http.MethodPost, "/api/connections/sideways/toggle", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHandleToggle_Busy(t *testing.T) {
	feeds, err := data.NewFeedRepo()
	if err != nil {
		t.Fatalf("NewFeedRepo failed: %v", err)
	}
	defer feeds.Close()

	hub := service.NewEventHub(8)
	dashboard := service.NewDashboard(nil, usecase.NewSampleUsecase(conf.DefaultRelayConfig()), feeds, hub,
		service.DashboardConfig{TickInterval: time.Hour, ConnectDelay: time.Hour}, nil)
	defer dashboard.Stop()

	router := NewServer("", dashboard, nil, hub, nil).Router()

	if w := doRequest(t, router, http.MethodPost, "/api/connections/destination/toggle", nil); w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodPost, "/api/connections/destination/toggle", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestHandleSetTopic(t *testing.T) {
	s, dashboard := newTestServer(t, &MockClassifier{})
	router := s.Router()

	w := doRequest(t, router, http.MethodPut, "/api/topic", map[string]string{"topic": "Quarterly Budget"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if dashboard.Topic() != "Quarterly Budget" {
		t.Errorf("Topic not updated: %q", dashboard.Topic())
	}

	w = doRequest(t, router, http.MethodPut, "/api/topic", map[string]string{"topic": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleSendMessage(t *testing.T) {
	s, _ := newTestServer(t, &MockClassifier{})
	router := s.Router()

	w := doRequest(t, router, http.MethodPost, "/api/messages", map[string]string{"text": "Ship it"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/api/feeds/forwarded", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var feed struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(feed.Messages) != 1 || feed.Messages[0].Text != "Ship it" {
		t.Errorf("Unexpected forwarded feed: %+v", feed.Messages)
	}

	w = doRequest(t, router, http.MethodPost, "/api/messages", map[string]string{"text": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleFeedAndLog(t *testing.T) {
	s, dashboard := newTestServer(t, &MockClassifier{
		result: &domain.ClassificationResult{IsRelevant: false, Reason: "Off-topic"},
	})
	router := s.Router()

	dashboard.ToggleSource()
	dashboard.ToggleDestination()
	for i := 0; i < 3; i++ {
		if _, err := dashboard.Tick(context.Background()); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}

	w := doRequest(t, router, http.MethodGet, "/api/feeds/source?limit=2", nil)
	var feed struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(feed.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(feed.Messages))
	}

	w = doRequest(t, router, http.MethodGet, "/api/log", nil)
	var log struct {
		Entries []domain.ActivityLogEntry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &log); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(log.Entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(log.Entries))
	}
	for _, e := range log.Entries {
		if e.Decision != domain.DecisionBlocked {
			t.Errorf("Expected Blocked, got %s", e.Decision)
		}
	}

	if w := doRequest(t, router, http.MethodGet, "/api/feeds/elsewhere", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodGet, "/api/log?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleClassify(t *testing.T) {
	tests := []struct {
		name       string
		classifier *MockClassifier
		body       map[string]string
		wantStatus int
	}{
		{
			name:       "relevant",
			classifier: &MockClassifier{result: &domain.ClassificationResult{IsRelevant: true, Reason: "Status update"}},
			body:       map[string]string{"message": "Phoenix is on track", "topic": "Project Phoenix"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty message",
			classifier: &MockClassifier{},
			body:       map[string]string{"message": "", "topic": "Project Phoenix"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "model failure",
			classifier: &MockClassifier{err: domain.NewClassificationError("model call", errors.New("network error"))},
			body:       map[string]string{"message": "hello", "topic": "Project Phoenix"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "not configured",
			classifier: &MockClassifier{err: domain.NewClassificationError("", domain.ErrClassifierNotConfigured)},
			body:       map[string]string{"message": "hello", "topic": "Project Phoenix"},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.classifier)
			w := doRequest(t, s.Router(), http.MethodPost, "/api/classify", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleIndex(t *testing.T) {
	s, _ := newTestServer(t, &MockClassifier{})
	w := doRequest(t, s.Router(), http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Echo Relay") {
		t.Error("Expected dashboard page")
	}
}

func TestHandleEvents(t *testing.T) {
	s, dashboard := newTestServer(t, &MockClassifier{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/events", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ws.CloseNow()

	readEvent := func() service.Event {
		t.Helper()
		_, data, err := ws.Read(ctx)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		var ev service.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Failed to parse event: %v", err)
		}
		return ev
	}

	if ev := readEvent(); ev.Type != service.EventState {
		t.Fatalf("Expected state event first, got %s", ev.Type)
	}

	if err := dashboard.SetTopic("Launch Day"); err != nil {
		t.Fatalf("SetTopic failed: %v", err)
	}
	for {
		ev := readEvent()
		if ev.Type == service.EventTopicChanged {
			return
		}
	}
}
