package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scadenze/internal/core"
)

// ErrCommitmentTerminal rejects edits to commitments that already reached
// their terminal state.
var ErrCommitmentTerminal = errors.New("commitment is terminal")

// CommitmentService handles owner-facing commitment management. The engine
// is the only other writer; both go through the same store.
type CommitmentService struct {
	store CommitmentStore
	now   func() time.Time
}

// NewCommitmentService creates a commitment service. nowFn may be nil, in
// which case time.Now is used; tests inject a fixed clock.
func NewCommitmentService(store CommitmentStore, nowFn func() time.Time) *CommitmentService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &CommitmentService{store: store, now: nowFn}
}

// Create validates and persists a new commitment. The initial due date must
// be strictly after today; same-day creation is rejected because the sweep
// for today may already have run.
func (s *CommitmentService) Create(ctx context.Context, c core.Commitment) (int64, error) {
	if c.Interval == 0 {
		c.Interval = 1
	}
	c.IsActive = true
	c.LastExecutedDate = core.Date{}

	if err := c.Validate(); err != nil {
		return 0, err
	}
	today := core.Truncate(s.now())
	if !c.NextDueDate.AfterDate(today) {
		return 0, fmt.Errorf("%w: due date must be after %s", core.ErrInvalidDate, today.String())
	}

	id, err := s.store.Create(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("create commitment: %w", err)
	}

	slog.InfoContext(ctx, "Commitment created",
		"commitment_id", id,
		"owner_id", c.OwnerID,
		"description", c.Description,
		"amount_cents", c.Amount.Cents,
		"pattern", string(c.Pattern),
		"next_due", c.NextDueDate.String())

	return id, nil
}

// Get returns a single commitment scoped to its owner.
func (s *CommitmentService) Get(ctx context.Context, id int64, ownerID string) (core.Commitment, error) {
	c, err := s.store.GetByID(ctx, id, ownerID)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment: %w", err)
	}
	return c, nil
}

// ListActive returns all of an owner's active commitments.
func (s *CommitmentService) ListActive(ctx context.Context, ownerID string) ([]core.Commitment, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}
	list, err := s.store.GetAllActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return list, nil
}

// Update replaces the owner-editable fields of a commitment. Terminal
// commitments cannot be updated; the owner must create a new one.
func (s *CommitmentService) Update(ctx context.Context, c core.Commitment) error {
	if c.Interval == 0 {
		c.Interval = 1
	}
	if err := c.Validate(); err != nil {
		return err
	}
	existing, err := s.store.GetByID(ctx, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("get commitment: %w", err)
	}
	if !existing.IsActive {
		return fmt.Errorf("commitment %d: %w", c.ID, ErrCommitmentTerminal)
	}
	c.IsActive = true
	c.LastExecutedDate = existing.LastExecutedDate
	if err := s.store.Update(ctx, c); err != nil {
		return fmt.Errorf("update commitment: %w", err)
	}

	slog.InfoContext(ctx, "Commitment updated",
		"commitment_id", c.ID,
		"owner_id", c.OwnerID,
		"next_due", c.NextDueDate.String())
	return nil
}

// Deactivate retires a commitment without removing it. The engine will never
// pick it up again.
func (s *CommitmentService) Deactivate(ctx context.Context, id int64, ownerID string) error {
	if err := s.store.Deactivate(ctx, id, ownerID); err != nil {
		return fmt.Errorf("deactivate commitment: %w", err)
	}
	slog.InfoContext(ctx, "Commitment deactivated",
		"commitment_id", id,
		"owner_id", ownerID)
	return nil
}

// Delete removes a commitment entirely. Ledger entries already materialized
// from it are untouched; the ledger is immutable history.
func (s *CommitmentService) Delete(ctx context.Context, id int64, ownerID string) error {
	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	slog.InfoContext(ctx, "Commitment deleted",
		"commitment_id", id,
		"owner_id", ownerID)
	return nil
}
