package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"
	"github.com/devricklin/echo-relay/internal/service"
	"github.com/devricklin/echo-relay/web"
)

// Dashboard is the controller surface exposed over HTTP
type Dashboard interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Toggle(name string) (domain.Connection, error)
	SetTopic(topic string) error
	SendMessage(ctx context.Context, text string) (domain.Message, error)
	Messages(ctx context.Context, feed repo.Feed, limit int) ([]domain.Message, error)
	ActivityLog(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error)
}

// Server provides the dashboard HTTP API, the event stream and the page
type Server struct {
	dashboard  Dashboard
	classifier service.Classifier
	events     *service.EventHub
	log        *slog.Logger

	server *http.Server
	addr   string
}

// NewServer creates a new HTTP server
func NewServer(addr string, dashboard Dashboard, classifier service.Classifier, events *service.EventHub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dashboard:  dashboard,
		classifier: classifier,
		events:     events,
		log:        logger.With("component", "http"),
		addr:       addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/connections/{side}/toggle", s.handleToggle)
		r.Put("/topic", s.handleSetTopic)
		r.Post("/messages", s.handleSendMessage)
		r.Get("/feeds/{feed}", s.handleFeed)
		r.Get("/log", s.handleLog)
		r.Post("/classify", s.handleClassify)
	})

	r.Get("/ws/events", s.handleEvents)
	r.Handle("/*", web.Handler())

	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ============ Handlers ============

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.dashboard.Toggle(chi.URLParam(r, "side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, conn)
}

func (s *Server) handleSetTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.dashboard.SetTopic(req.Topic); err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"topic": snap.Topic})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg, err := s.dashboard.SendMessage(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	feed := repo.Feed(chi.URLParam(r, "feed"))
	if feed != repo.FeedSource && feed != repo.FeedForwarded {
		s.writeErrorStatus(w, http.StatusNotFound, "unknown feed: "+string(feed))
		return
	}
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}
	msgs, err := s.dashboard.Messages(r.Context(), feed, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}
	entries, err := s.dashboard.ActivityLog(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.ActivityLogEntry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req domain.ClassificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if s.classifier == nil {
		s.writeError(w, domain.NewClassificationError("", domain.ErrClassifierNotConfigured))
		return
	}
	result, err := s.classifier.Classify(r.Context(), req.Message, req.Topic)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// ============ Helpers ============

func (s *Server) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		s.writeErrorStatus(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Debug("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorStatus(w, statusFor(err), err.Error())
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrEmptyTopic):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConnectionBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownConnection):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrClassifierNotConfigured):
		return http.StatusServiceUnavailable
	case domain.IsClassificationError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger writes access logs through slog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}
