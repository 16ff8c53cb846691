package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "courier/internal/adapters/email"
	"courier/internal/domain/mail"
	scheduleDomain "courier/internal/domain/schedule"
	sendlogDomain "courier/internal/domain/sendlog"
)

// ScheduleCycleStore is the schedule access a dispatch cycle needs.
type ScheduleCycleStore interface {
	ListDue(ctx context.Context, now time.Time) ([]scheduleDomain.Email, error)
	Save(ctx context.Context, e scheduleDomain.Email) error
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SendLogCycleStore is the send-log access a dispatch cycle needs.
type SendLogCycleStore interface {
	Append(ctx context.Context, rec sendlogDomain.Record) error
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CycleStores bundles the transaction-scoped stores handed to a unit of work.
type CycleStores struct {
	Schedules ScheduleCycleStore
	Logs      SendLogCycleStore
}

// UnitOfWork runs fn inside one atomic transaction: every mutation fn makes
// commits together, or none do. A polling cycle is exactly one Run; a failed
// Run leaves due items in scheduled status so the next cycle re-selects them
// (the at-least-once mechanism).
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, s CycleStores) error) error
}

// DispatcherConfig holds configuration for the scheduling engine.
type DispatcherConfig struct {
	Interval  time.Duration // time between polling cycles
	Retention time.Duration // how long sent records are kept before purge
}

// DefaultDispatcherConfig returns the defaults: 60s polling, 7 day retention.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Interval:  60 * time.Second,
		Retention: 7 * 24 * time.Hour,
	}
}

// Dispatcher is the scheduling engine: it polls for due scheduled emails,
// dispatches each at-least-once, records the outcome, and purges old records.
// Construct one per process and run Start in its own goroutine.
type Dispatcher struct {
	uow       UnitOfWork
	sender    emailAdapter.Sender
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher.
// PRE: uow and sender are non-nil; cfg durations are positive
// POST: Returns a dispatcher ready for Start or RunCycle
func NewDispatcher(uow UnitOfWork, sender emailAdapter.Sender, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		uow:       uow,
		sender:    sender,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the polling loop until ctx is cancelled. The first cycle runs
// immediately; any cycle error is logged and the loop continues.
// PRE: ctx carries the process lifetime
// POST: Returns only after ctx is done; an in-flight cycle finishes first
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("dispatcher_started", "interval", d.interval, "retention", d.retention)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher_stopped")
			return
		case <-ticker.C:
			d.RunCycle(ctx)
		}
	}
}

// RunCycle executes one polling cycle: select due items, dispatch each,
// record outcomes, commit as one unit, then purge old records best-effort.
// POST: Every item due at cycle start has been attempted, or the whole cycle
// rolled back and the items remain scheduled for the next cycle
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	cycleStart := d.now()
	var sent, failed int

	err := d.uow.Run(ctx, func(ctx context.Context, s CycleStores) error {
		due, err := s.Schedules.ListDue(ctx, cycleStart)
		if err != nil {
			return fmt.Errorf("list due schedules: %w", err)
		}
		if len(due) > 0 {
			slog.Info("dispatch_cycle", "due", len(due))
		}

		for i := range due {
			item := &due[i]
			res := d.dispatch(ctx, item)

			if err := s.Schedules.Save(ctx, *item); err != nil {
				return fmt.Errorf("save schedule %s: %w", item.ScheduleID, err)
			}
			rec := sendlogDomain.FromOutcome(item.ProgramKey, item.Recipients, item.Subject,
				item.Body, item.HTML, res.OK, res.StatusCode, d.now())
			if err := s.Logs.Append(ctx, rec); err != nil {
				return fmt.Errorf("append send log for %s: %w", item.ScheduleID, err)
			}

			if res.OK {
				sent++
			} else {
				failed++
				slog.Warn("scheduled_send_failed", "schedule_id", item.ScheduleID,
					"status_code", res.StatusCode, "message", res.Message)
			}
		}
		return nil
	})

	if err != nil {
		slog.Error("dispatch_cycle_failed", "error", err)
	} else if sent+failed > 0 {
		slog.Info("dispatch_cycle_complete", "sent", sent, "failed", failed)
	}

	d.purge(ctx)
	return err
}

// dispatch attempts delivery of one due item and applies the status
// transition. Malformed stored recipient data fails the item without a
// transport call.
func (d *Dispatcher) dispatch(ctx context.Context, item *scheduleDomain.Email) emailAdapter.SendResult {
	recipients := mail.Split(item.Recipients)
	if len(recipients) == 0 {
		res := emailAdapter.SendResult{
			StatusCode: emailAdapter.StatusTransportError,
			Message:    "stored recipient list is empty",
		}
		_ = item.MarkFailed(res.StatusCode)
		return res
	}

	res := d.sender.Send(ctx, emailAdapter.SendRequest{
		To:      recipients,
		Subject: item.Subject,
		Body:    item.Body,
		HTML:    item.HTML,
	})
	if res.OK {
		_ = item.MarkSent(d.now())
	} else {
		_ = item.MarkFailed(res.StatusCode)
	}
	return res
}

// purge deletes sent records older than the retention window. Runs every
// cycle in its own unit of work; failure is logged and never blocks dispatch.
func (d *Dispatcher) purge(ctx context.Context) {
	cutoff := d.now().Add(-d.retention)
	var logRows, scheduleRows int64

	err := d.uow.Run(ctx, func(ctx context.Context, s CycleStores) error {
		var err error
		if logRows, err = s.Logs.PurgeSentBefore(ctx, cutoff); err != nil {
			return fmt.Errorf("purge send log: %w", err)
		}
		if scheduleRows, err = s.Schedules.PurgeSentBefore(ctx, cutoff); err != nil {
			return fmt.Errorf("purge schedules: %w", err)
		}
		return nil
	})

	if err != nil {
		slog.Warn("purge_failed", "error", err)
		return
	}
	if logRows+scheduleRows > 0 {
		slog.Info("purge_complete", "log_rows", logRows, "schedule_rows", scheduleRows)
	}
}
