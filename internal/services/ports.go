package services

import (
	"context"

	"scadenze/internal/core"
)

// Ports consumed by the services. The SQLite repository satisfies all of
// them; tests substitute in-memory fakes.
type (
	// CommitmentStore is the full persistence surface for commitments.
	CommitmentStore interface {
		Create(ctx context.Context, c core.Commitment) (int64, error)
		GetByID(ctx context.Context, id int64, ownerID string) (core.Commitment, error)
		GetAllActive(ctx context.Context, ownerID string) ([]core.Commitment, error)
		Update(ctx context.Context, c core.Commitment) error
		Delete(ctx context.Context, id int64, ownerID string) error

		DueCommitmentReader
		CommitmentAdvancer
		CommitmentRangeReader
	}

	// DueCommitmentReader returns every active commitment whose next due date
	// is on or before asOf, across all owners, ordered by due date then id.
	DueCommitmentReader interface {
		GetAllDue(ctx context.Context, asOf core.Date) ([]core.Commitment, error)
	}

	// CommitmentAdvancer applies the engine's two state transitions.
	CommitmentAdvancer interface {
		// Advance records an execution: LastExecutedDate becomes executed and
		// NextDueDate becomes next.
		Advance(ctx context.Context, id int64, ownerID string, executed, next core.Date) error
		// Deactivate retires a commitment, clearing its next due date.
		Deactivate(ctx context.Context, id int64, ownerID string) error
	}

	// CommitmentRangeReader returns an owner's commitments whose next due
	// date falls inside [start, end].
	CommitmentRangeReader interface {
		GetByDateRange(ctx context.Context, ownerID string, start, end core.Date) ([]core.Commitment, error)
	}

	// EntryMaterializer creates ledger entries from due commitments. The
	// created flag is false when an entry for the same commitment and date
	// already exists, in which case the stored entry's id is returned and
	// nothing is written.
	EntryMaterializer interface {
		CreateFromCommitment(ctx context.Context, e core.LedgerEntry) (id int64, created bool, err error)
	}

	// BalanceReader sums an owner's ledger, signed by kind, up to and
	// including a date.
	BalanceReader interface {
		SumByOwnerUpTo(ctx context.Context, ownerID string, upTo core.Date) (int64, error)
	}

	// SweepMarker records the engine's one-time setup marker. Calling it
	// again is a no-op; the flag reports whether this call created it.
	SweepMarker interface {
		EnsureInitialized(ctx context.Context) (bool, error)
	}

	// EventPublisher emits integration events for external collaborators
	// (notification and analytics services). Publishing is best effort.
	EventPublisher interface {
		PublishEntryMaterialized(ctx context.Context, entryID, commitmentID int64, ownerID string, date core.Date, signedCents int64) error
		PublishCommitmentRetired(ctx context.Context, commitmentID int64, ownerID, reason string) error
	}
)
