package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Checkpointer snapshots a registry's window state to a backend on a cron
// schedule, and restores it at startup. A missed checkpoint costs at most
// one interval of usage history after a crash; the engine then under-counts
// until the next header reconciliation corrects it.
type Checkpointer struct {
	source   StateSource
	backend  Backend
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewCheckpointer creates a checkpointer. The schedule uses cron syntax,
// including descriptors:
//
//	"@every 30s"   - every 30 seconds
//	"*/5 * * * *"  - every 5 minutes
func NewCheckpointer(source StateSource, backend Backend, schedule string) *Checkpointer {
	return &Checkpointer{
		source:   source,
		backend:  backend,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "limits.checkpoint"),
	}
}

// Restore re-seeds the source's counters from the backend. Call before
// Start, before any traffic flows.
func (c *Checkpointer) Restore(ctx context.Context) error {
	states, err := c.backend.List(ctx, c.source.Venue())
	if err != nil {
		return fmt.Errorf("failed to restore window state: %w", err)
	}
	if len(states) == 0 {
		return nil
	}

	c.source.RestoreStates(states)
	c.logger.Info("window state restored", "venue", c.source.Venue(), "categories", len(states))
	return nil
}

// Start begins scheduled checkpointing. An empty schedule disables it.
func (c *Checkpointer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("checkpointer already running")
	}
	if c.schedule == "" {
		c.logger.Info("checkpoint schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid checkpoint schedule %q: %w", c.schedule, err)
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		c.Checkpoint(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule checkpoint: %w", err)
	}

	c.cron.Start()
	c.running = true
	c.logger.Info("checkpointer started", "schedule", c.schedule)
	return nil
}

// Checkpoint snapshots every category once, immediately.
func (c *Checkpointer) Checkpoint(ctx context.Context) {
	for _, state := range c.source.States() {
		if err := c.backend.Save(ctx, state); err != nil {
			c.logger.Error("checkpoint save failed",
				"venue", state.Venue,
				"category", state.Category,
				"error", err,
			)
		}
	}
}

// Stop halts scheduled checkpointing and waits for an in-flight run.
func (c *Checkpointer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	<-c.cron.Stop().Done()
	c.running = false
	c.logger.Info("checkpointer stopped")
}
