package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/metrics"
)

// Run outcomes reported in a RunSummary.
const (
	RunCompleted RunStatus = "completed"
	RunSkipped   RunStatus = "skipped_already_running"
	RunFailed    RunStatus = "failed"
)

// Reasons a commitment is retired by the engine.
const (
	RetireReasonOnce           = "one_time_executed"
	RetireReasonEndDate        = "end_date_reached"
	RetireReasonUnknownPattern = "unknown_pattern"
)

type (
	// RunStatus classifies the overall outcome of one sweep.
	RunStatus string

	// RunSummary is the caller-visible result of a sweep. Processed counts
	// commitments fully executed, Skipped counts occurrences whose ledger
	// entry already existed from an earlier interrupted run, Errored counts
	// commitments that failed and remain due for the next sweep.
	RunSummary struct {
		Status    RunStatus `json:"status"`
		Processed int       `json:"processed"`
		Skipped   int       `json:"skipped"`
		Errored   int       `json:"errored"`
	}

	// SweepStore is the persistence surface the engine needs.
	SweepStore interface {
		DueCommitmentReader
		CommitmentAdvancer
		SweepMarker
	}

	// Engine materializes due commitments into ledger entries and advances
	// or retires their schedules. One externally-triggered operation: Run.
	Engine struct {
		store   SweepStore
		ledger  EntryMaterializer
		events  EventPublisher // optional, may be nil
		running atomic.Bool
	}
)

// NewEngine creates an execution engine. events may be nil when no broker is
// configured; publishing is then skipped.
func NewEngine(store SweepStore, ledger EntryMaterializer, events EventPublisher) *Engine {
	return &Engine{
		store:  store,
		ledger: ledger,
		events: events,
	}
}

// Initialize records the one-time setup marker. It is idempotent and safe to
// call on every startup.
func (e *Engine) Initialize(ctx context.Context) error {
	created, err := e.store.EnsureInitialized(ctx)
	if err != nil {
		return fmt.Errorf("ensure initialized: %w", err)
	}
	if created {
		slog.InfoContext(ctx, "Execution engine initialized")
	}
	return nil
}

// Run executes one sweep: every active commitment due on or before asOf gets
// a ledger entry dated at its own due date, then its schedule is advanced or
// the commitment is retired.
//
// Overlapping invocations are rejected: the second caller gets RunSkipped
// with nothing processed. The guard is in-process only; deployments running
// more than one replica need a distributed lease in front of this.
//
// A failure fetching the due set aborts the run with zero items processed.
// A failure on a single commitment is logged and counted; its due date was
// never advanced, so the next sweep retries it.
func (e *Engine) Run(ctx context.Context, asOf core.Date) (RunSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		slog.WarnContext(ctx, "Sweep already in progress, skipping")
		metrics.SweepRuns.WithLabelValues(string(RunSkipped)).Inc()
		return RunSummary{Status: RunSkipped}, nil
	}
	defer e.running.Store(false)

	started := time.Now()

	due, err := e.store.GetAllDue(ctx, asOf)
	if err != nil {
		metrics.SweepRuns.WithLabelValues(string(RunFailed)).Inc()
		return RunSummary{Status: RunFailed}, fmt.Errorf("fetch due commitments: %w", err)
	}

	slog.InfoContext(ctx, "Sweep started",
		"as_of", asOf.String(),
		"due", len(due))

	summary := RunSummary{Status: RunCompleted}
	for _, c := range due {
		duplicate, err := e.executeOne(ctx, c)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to execute commitment",
				"commitment_id", c.ID,
				"owner_id", c.OwnerID,
				"due_date", c.NextDueDate.String(),
				"error", err)
			summary.Errored++
			metrics.CommitmentsErrored.Inc()
			continue
		}
		if duplicate {
			summary.Skipped++
			metrics.CommitmentsSkipped.Inc()
		} else {
			summary.Processed++
			metrics.CommitmentsProcessed.Inc()
		}
	}

	metrics.SweepRuns.WithLabelValues(string(RunCompleted)).Inc()
	metrics.SweepDuration.Observe(time.Since(started).Seconds())

	slog.InfoContext(ctx, "Sweep complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errored", summary.Errored)

	return summary, nil
}

// executeOne materializes one due occurrence and moves the commitment's
// state machine. The ledger entry is dated at the commitment's due date, not
// "now", so a late sweep still produces historically accurate records. The
// duplicate flag is true when the entry already existed from a previous
// interrupted run; the schedule is still advanced in that case so the
// commitment does not stay stuck.
func (e *Engine) executeOne(ctx context.Context, c core.Commitment) (duplicate bool, err error) {
	dueDate := c.NextDueDate

	entry := core.LedgerEntry{
		OwnerID:      c.OwnerID,
		Description:  c.Description,
		Category:     c.Category,
		Kind:         c.Kind,
		Amount:       c.Amount,
		Date:         dueDate,
		CommitmentID: c.ID,
	}

	entryID, created, err := e.ledger.CreateFromCommitment(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("materialize ledger entry: %w", err)
	}
	if !created {
		slog.WarnContext(ctx, "Ledger entry already materialized, advancing schedule only",
			"commitment_id", c.ID,
			"entry_id", entryID,
			"due_date", dueDate.String())
	}

	next, ok := NextOccurrence(dueDate, c.Pattern, c.Interval, c.EndDate)
	if ok {
		if err := e.store.Advance(ctx, c.ID, c.OwnerID, dueDate, next); err != nil {
			return false, fmt.Errorf("advance commitment: %w", err)
		}
	} else {
		if err := e.store.Deactivate(ctx, c.ID, c.OwnerID); err != nil {
			return false, fmt.Errorf("deactivate commitment: %w", err)
		}
	}

	if created {
		e.publishMaterialized(ctx, entryID, c, dueDate)
	}
	if !ok {
		e.publishRetired(ctx, c)
	}

	return !created, nil
}

func (e *Engine) publishMaterialized(ctx context.Context, entryID int64, c core.Commitment, date core.Date) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishEntryMaterialized(ctx, entryID, c.ID, c.OwnerID, date, c.Signed()); err != nil {
		// Events are best effort, the ledger write already committed.
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"entry_id", entryID,
			"commitment_id", c.ID,
			"error", err)
	}
}

func (e *Engine) publishRetired(ctx context.Context, c core.Commitment) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishCommitmentRetired(ctx, c.ID, c.OwnerID, retireReason(c)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish retirement event",
			"commitment_id", c.ID,
			"error", err)
	}
}

func retireReason(c core.Commitment) string {
	switch {
	case c.Pattern == core.Once:
		return RetireReasonOnce
	case !c.Pattern.Valid():
		return RetireReasonUnknownPattern
	default:
		return RetireReasonEndDate
	}
}
