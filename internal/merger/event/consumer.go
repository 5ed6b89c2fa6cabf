package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/FlavienRemy/csv-merger/internal/merger/entity"
)

type Handler interface {
	Handle(ctx context.Context, event entity.Event) error
}

type ConsumerConfig struct {
	Workers     int
	MaxRetries  int
	BaseBackoff time.Duration
}

// Consumer drains a Bus with a fixed pool of workers. Each event is handled at
// most once per event ID; failed attempts are retried with exponential backoff.
type Consumer struct {
	bus         *Bus
	handler     Handler
	workers     int
	maxRetries  int
	baseBackoff time.Duration
	seen        sync.Map
	wg          sync.WaitGroup
}

func NewConsumer(bus *Bus, handler Handler, cfg ConsumerConfig) *Consumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	return &Consumer{
		bus:         bus,
		handler:     handler,
		workers:     workers,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
	}
}

func (c *Consumer) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus and waits for in-flight events to finish.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		c.processEvent(event)
	}
}

func (c *Consumer) processEvent(event entity.Event) {
	if c.handler == nil {
		return
	}

	if event.EventID != "" {
		if _, loaded := c.seen.LoadOrStore(event.EventID, struct{}{}); loaded {
			slog.Info("skip duplicate event", "event_id", event.EventID, "workspace_id", event.WorkspaceID)
			return
		}
	}

	backoff := c.baseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := c.handler.Handle(context.Background(), event)
		if err == nil {
			return
		}

		if attempt == c.maxRetries {
			slog.Error("failed to handle event after retries", "event_id", event.EventID, "kind", event.Kind, "workspace_id", event.WorkspaceID, "error", err)
			return
		}

		if !sleepBackoff(backoff) {
			return
		}
		backoff *= 2
	}
}

func sleepBackoff(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	<-timer.C
	return true
}

// AuditLogger records every workspace event as one structured log line.
type AuditLogger struct{}

func (AuditLogger) Handle(ctx context.Context, event entity.Event) error {
	if event.EventID == "" {
		return errors.New("missing event id")
	}

	attrs := []any{
		"event_id", event.EventID,
		"kind", event.Kind,
		"workspace_id", event.WorkspaceID,
	}
	if event.Slot != "" {
		attrs = append(attrs, "slot", event.Slot)
	}
	if event.RunID != 0 {
		attrs = append(attrs, "run_id", event.RunID)
	}
	if event.Detail != "" {
		attrs = append(attrs, "detail", event.Detail)
	}

	switch event.Kind {
	case entity.EventTableFailed, entity.EventMergeFailed:
		slog.WarnContext(ctx, "workspace event", attrs...)
	default:
		slog.InfoContext(ctx, "workspace event", attrs...)
	}
	return nil
}
