// Package outbox drains queued mutations to the remote system with
// at-least-once delivery and per-resource ordering.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/counterline/counterline/internal/remote"
	"github.com/counterline/counterline/internal/store"
)

// DeliverFunc attempts one remote delivery. Transient failures must
// wrap remote.ErrRemote; anything else is treated as a permanent
// rejection and still leaves the entry queued for operator attention.
type DeliverFunc func(ctx context.Context, action string, payload json.RawMessage) error

// Drainer retries pending outbox entries on interval or reconnect
// triggers. Entries sharing a resource key are delivered in enqueue
// order: a failure parks that resource for the rest of the cycle so a
// later entry can never overtake an earlier one.
type Drainer struct {
	DB      *sql.DB
	Deliver DeliverFunc
	Logger  *zap.Logger

	// MaxAttempts parks an entry after this many failed deliveries.
	// Parked entries surface via `counterline outbox list --parked`;
	// they are never silently dropped.
	MaxAttempts int64

	kick chan struct{}
}

// NewDrainer wires a drainer over the local store and a delivery call.
func NewDrainer(db *sql.DB, deliver DeliverFunc, logger *zap.Logger) *Drainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drainer{
		DB:          db,
		Deliver:     deliver,
		Logger:      logger,
		MaxAttempts: 10,
		kick:        make(chan struct{}, 1),
	}
}

// Kick requests an immediate drain cycle, coalescing bursts. Called on
// reconnect and after any mutation falls back to the queue.
func (d *Drainer) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run drains on the given interval until the context is cancelled. The
// ticker is stopped on teardown so a discarded drainer leaks no work.
func (d *Drainer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		if err := d.DrainOnce(ctx); err != nil {
			d.Logger.Warn("outbox drain cycle failed", zap.Error(err))
		}
	}
}

// DrainOnce walks the pending queue in enqueue order, delivering each
// entry at most once. Returns the first storage error; delivery
// failures are bookkept, not returned.
func (d *Drainer) DrainOnce(ctx context.Context) error {
	entries, err := store.PendingOutbox(ctx, d.DB)
	if err != nil {
		return err
	}

	// Resources that already failed this cycle: later entries for the
	// same resource must wait for the next cycle. A parked entry blocks
	// its resource too — parking removes it from the pending scan, but
	// its successors may not overtake it until an operator unparks.
	stalled := make(map[string]bool)
	parked, err := store.ListOutbox(ctx, d.DB, true)
	if err != nil {
		return err
	}
	for _, entry := range parked {
		if entry.Resource != "" {
			stalled[entry.Resource] = true
		}
	}

	for _, entry := range entries {
		if entry.Resource != "" && stalled[entry.Resource] {
			continue
		}

		err := d.Deliver(ctx, entry.Action, entry.Payload)
		if err == nil {
			if err := store.DeleteOutbox(ctx, d.DB, entry.ID); err != nil {
				return err
			}
			continue
		}

		if entry.Resource != "" {
			stalled[entry.Resource] = true
		}

		attempts, berr := store.BumpOutboxAttempt(ctx, d.DB, entry.ID)
		if berr != nil {
			return berr
		}

		if d.MaxAttempts > 0 && attempts >= d.MaxAttempts {
			if perr := store.ParkOutbox(ctx, d.DB, entry.ID); perr != nil {
				return perr
			}
			d.Logger.Error("outbox entry exhausted delivery attempts, parked",
				zap.Int64("id", entry.ID),
				zap.String("action", entry.Action),
				zap.String("resource", entry.Resource),
				zap.Int64("attempts", attempts),
				zap.Error(err))
			continue
		}

		d.Logger.Warn("outbox delivery failed",
			zap.Int64("id", entry.ID),
			zap.String("action", entry.Action),
			zap.Int64("attempts", attempts),
			zap.Error(err))
	}
	return nil
}

// TryThenQueue is the uniform mutation path: attempt direct delivery,
// and on a transient remote failure durably enqueue the same payload
// instead. Validation and rejection errors propagate to the caller;
// they are never queued.
func TryThenQueue(ctx context.Context, db *sql.DB, deliver DeliverFunc, action, resource string, payload any, ts int64) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", action, err)
	}

	err = deliver(ctx, action, encoded)
	if err == nil {
		return nil
	}
	if !errors.Is(err, remote.ErrRemote) {
		return err
	}

	if _, qerr := store.EnqueueOutbox(ctx, db, action, resource, encoded, ts); qerr != nil {
		return qerr
	}
	return nil
}
