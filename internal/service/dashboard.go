package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/repo"
	"github.com/devricklin/echo-relay/internal/biz/usecase"
)

// Classifier is the relevance classification boundary used by the dashboard
type Classifier interface {
	Classify(ctx context.Context, message, topic string) (*domain.ClassificationResult, error)
}

// DashboardConfig contains controller timing and defaults
type DashboardConfig struct {
	TickInterval time.Duration
	ConnectDelay time.Duration
	DefaultTopic string
	OperatorName string
	FeedLimit    int
}

// Dashboard is the controller of the simulated relay: it owns the topic,
// the two simulated connections and the processing loop
type Dashboard struct {
	classifier Classifier
	samples    *usecase.SampleUsecase
	feedRepo   repo.FeedRepo
	events     *EventHub
	cfg        DashboardConfig
	log        *slog.Logger
	now        func() time.Time

	mu          sync.RWMutex
	topic       string
	source      domain.Connection
	destination domain.Connection
	timers      map[string]*time.Timer

	// Single-slot guard: at most one classification in flight
	processing atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDashboard creates a new dashboard controller
func NewDashboard(
	classifier Classifier,
	samples *usecase.SampleUsecase,
	feedRepo repo.FeedRepo,
	events *EventHub,
	cfg DashboardConfig,
	logger *slog.Logger,
) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OperatorName == "" {
		cfg.OperatorName = "Operator"
	}
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 200
	}
	return &Dashboard{
		classifier:  classifier,
		samples:     samples,
		feedRepo:    feedRepo,
		events:      events,
		cfg:         cfg,
		log:         logger.With("component", "dashboard"),
		now:         time.Now,
		topic:       strings.TrimSpace(cfg.DefaultTopic),
		source:      domain.Connection{Name: domain.ConnectionSource, State: domain.StateDisconnected},
		destination: domain.Connection{Name: domain.ConnectionDestination, State: domain.StateDisconnected},
		timers:      make(map[string]*time.Timer),
	}
}

// Start starts the processing loop
func (d *Dashboard) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.tickLoop()

	d.log.Info("Dashboard started", "interval", d.cfg.TickInterval, "topic", d.Topic())
}

// Stop stops the processing loop, pending connection switches and any
// in-flight classification
func (d *Dashboard) Stop() {
	if d.cancel != nil {
		d.cancel()
	}

	d.mu.Lock()
	for name, t := range d.timers {
		t.Stop()
		delete(d.timers, name)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("Dashboard stopped")
}

// tickLoop fires a tick every interval. Each tick runs on its own goroutine
// so a slow classification makes later ticks skip instead of queueing.
func (d *Dashboard) tickLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				if _, err := d.Tick(d.ctx); err != nil && !errors.Is(err, domain.ErrTickSkipped) {
					d.log.Error("Tick failed", "error", err)
				}
			}()
		}
	}
}

// Tick processes the next sample message if both connections are up and no
// classification is in flight. Classification failures do not surface as
// errors: they become Blocked log entries. The returned error is
// domain.ErrTickSkipped (wrapped) or a feed storage failure; once the source
// message is stored its log entry is written even when forwarding fails.
func (d *Dashboard) Tick(ctx context.Context) (*domain.ActivityLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTickSkipped, err)
	}
	if !d.Active() {
		return nil, fmt.Errorf("%w: connections not established", domain.ErrTickSkipped)
	}
	if !d.processing.CompareAndSwap(false, true) {
		d.log.Debug("Classification in flight, skipping tick")
		return nil, fmt.Errorf("%w: classification in flight", domain.ErrTickSkipped)
	}
	defer d.processing.Store(false)

	sample, ok := d.samples.Next()
	if !ok {
		return nil, fmt.Errorf("%w: no sample messages", domain.ErrTickSkipped)
	}

	// The decision is made against the topic current when the tick starts
	topic := d.Topic()

	// Feed writes must land even if ctx is cancelled mid-classification
	storeCtx := context.WithoutCancel(ctx)

	msg := domain.NewMessage(sample.Sender, sample.Text, domain.OriginSample, d.now())
	if err := d.feedRepo.AddMessage(storeCtx, repo.FeedSource, msg); err != nil {
		return nil, fmt.Errorf("record source message: %w", err)
	}
	d.events.Publish(EventSourceMessage, msg)

	result, err := d.classify(ctx, msg.Text, topic)
	entry := domain.NewLogEntry(msg, topic, result, err, d.now())

	if err != nil {
		d.log.Warn("Classification failed, message blocked", "id", msg.ID, "error", err)
		d.events.Notify(LevelError, "AI Error", entry.Reason)
	}

	entry, err = d.record(storeCtx, msg, entry)
	if err != nil {
		return &entry, err
	}

	d.log.Info("Message processed",
		"id", msg.ID,
		"sender", msg.Sender,
		"decision", entry.Decision,
		"reason", entry.Reason,
	)
	return &entry, nil
}

// record writes the decision for a message already on the source feed.
// The log entry is always written: a failed forwarded write downgrades it
// to Blocked with the store error as the reason.
func (d *Dashboard) record(ctx context.Context, msg domain.Message, entry domain.ActivityLogEntry) (domain.ActivityLogEntry, error) {
	var errs []error

	if entry.IsForwarded() {
		if err := d.feedRepo.AddMessage(ctx, repo.FeedForwarded, msg); err != nil {
			err = fmt.Errorf("record forwarded message: %w", err)
			d.log.Error("Forward failed, message blocked", "id", msg.ID, "error", err)
			entry.Decision = domain.DecisionBlocked
			entry.Reason = err.Error()
			errs = append(errs, err)
		} else {
			d.events.Publish(EventForwardedMessage, msg)
		}
	}

	if err := d.feedRepo.AddLogEntry(ctx, entry); err != nil {
		errs = append(errs, fmt.Errorf("record log entry: %w", err))
	} else {
		d.events.Publish(EventLogEntry, entry)
	}

	return entry, errors.Join(errs...)
}

func (d *Dashboard) classify(ctx context.Context, message, topic string) (*domain.ClassificationResult, error) {
	if d.classifier == nil {
		return nil, domain.NewClassificationError("", domain.ErrClassifierNotConfigured)
	}
	return d.classifier.Classify(ctx, message, topic)
}

// SendMessage puts an operator message on the source feed and forwards it
// unconditionally, without a classification call
func (d *Dashboard) SendMessage(ctx context.Context, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	now := d.now()
	msg := domain.NewMessage(d.cfg.OperatorName, text, domain.OriginOperator, now)

	if err := d.feedRepo.AddMessage(ctx, repo.FeedSource, msg); err != nil {
		return domain.Message{}, fmt.Errorf("record source message: %w", err)
	}
	d.events.Publish(EventSourceMessage, msg)

	entry := domain.NewOperatorLogEntry(msg, d.Topic(), now)
	if _, err := d.record(ctx, msg, entry); err != nil {
		return msg, err
	}

	d.log.Info("Operator message sent", "id", msg.ID)
	return msg, nil
}

// SetTopic changes the filter topic
func (d *Dashboard) SetTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.ErrEmptyTopic
	}

	d.mu.Lock()
	d.topic = topic
	d.mu.Unlock()

	d.events.Publish(EventTopicChanged, map[string]string{"topic": topic})
	d.events.Notify(LevelInfo, "AI Filter Updated", fmt.Sprintf("Now filtering for messages about: %q", topic))
	d.log.Info("Topic updated", "topic", topic)
	return nil
}

// Topic returns the current filter topic
func (d *Dashboard) Topic() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.topic
}

// Toggle starts switching the named connection. The connection sits in a
// transient state for the configured delay before it flips.
func (d *Dashboard) Toggle(name string) (domain.Connection, error) {
	d.mu.Lock()
	conn, err := d.connectionLocked(name)
	if err != nil {
		d.mu.Unlock()
		return domain.Connection{}, err
	}

	next, err := conn.BeginToggle()
	if err != nil {
		d.mu.Unlock()
		return *conn, err
	}
	*conn = next

	delay := d.cfg.ConnectDelay
	if delay > 0 {
		d.timers[name] = time.AfterFunc(delay, func() { d.completeToggle(name) })
	}
	d.mu.Unlock()

	d.events.Publish(EventConnectionChanged, next)
	d.log.Info("Connection switching", "connection", name, "state", next.State)

	if delay <= 0 {
		return d.completeToggle(name), nil
	}
	return next, nil
}

// ToggleSource toggles the source group connection
func (d *Dashboard) ToggleSource() (domain.Connection, error) {
	return d.Toggle(domain.ConnectionSource)
}

// ToggleDestination toggles the destination group connection
func (d *Dashboard) ToggleDestination() (domain.Connection, error) {
	return d.Toggle(domain.ConnectionDestination)
}

func (d *Dashboard) completeToggle(name string) domain.Connection {
	d.mu.Lock()
	conn, err := d.connectionLocked(name)
	if err != nil {
		d.mu.Unlock()
		return domain.Connection{}
	}
	*conn = conn.CompleteToggle()
	settled := *conn
	delete(d.timers, name)
	active := d.source.IsUp() && d.destination.IsUp()
	d.mu.Unlock()

	d.events.Publish(EventConnectionChanged, settled)
	d.log.Info("Connection switched", "connection", name, "state", settled.State, "active", active)
	return settled
}

func (d *Dashboard) connectionLocked(name string) (*domain.Connection, error) {
	switch name {
	case domain.ConnectionSource:
		return &d.source, nil
	case domain.ConnectionDestination:
		return &d.destination, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownConnection, name)
	}
}

// Active returns whether both connections are up
func (d *Dashboard) Active() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source.IsUp() && d.destination.IsUp()
}

// IsProcessing returns whether a classification is in flight
func (d *Dashboard) IsProcessing() bool {
	return d.processing.Load()
}

// Snapshot returns a copy of the dashboard state
func (d *Dashboard) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	d.mu.RLock()
	snap := domain.Snapshot{
		Topic:       d.topic,
		Source:      d.source,
		Destination: d.destination,
		Active:      d.source.IsUp() && d.destination.IsUp(),
	}
	d.mu.RUnlock()
	snap.Processing = d.processing.Load()

	counts, err := d.feedRepo.Counts(ctx)
	if err != nil {
		return snap, err
	}
	snap.Counts = counts
	return snap, nil
}

// Messages returns a feed, most recent first. A non-positive limit uses the
// configured feed limit.
func (d *Dashboard) Messages(ctx context.Context, feed repo.Feed, limit int) ([]domain.Message, error) {
	return d.feedRepo.ListMessages(ctx, feed, d.clampLimit(limit))
}

// ActivityLog returns the activity log, most recent first
func (d *Dashboard) ActivityLog(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	return d.feedRepo.ListLogEntries(ctx, d.clampLimit(limit))
}

func (d *Dashboard) clampLimit(limit int) int {
	if limit <= 0 || limit > d.cfg.FeedLimit {
		return d.cfg.FeedLimit
	}
	return limit
}
