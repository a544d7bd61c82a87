package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scadenze/internal/core"
)

// MaxProjectionDays bounds a single projection request. The baseline read
// scans the owner's full ledger history up to the range end, so the range
// itself has to stay small.
const MaxProjectionDays = 366

var (
	ErrInvalidRange  = errors.New("start date must not be after end date")
	ErrRangeTooLarge = fmt.Errorf("projection range exceeds %d days", MaxProjectionDays)
)

type (
	// DayProjection is one day of a balance forecast. Income and Expenses
	// are the positive per-day magnitudes of that day's occurrences;
	// Balance is the historical baseline plus that day's own signed deltas.
	DayProjection struct {
		Date        core.Date
		Balance     int64
		Income      int64
		Expenses    int64
		Commitments []core.Commitment
	}

	// Projector produces per-day balance forecasts by blending the owner's
	// historical ledger total with the commitments due inside a date range.
	// It is read-only.
	Projector struct {
		commitments CommitmentRangeReader
		ledger      BalanceReader
	}
)

// NewProjector creates a calendar projector.
func NewProjector(commitments CommitmentRangeReader, ledger BalanceReader) *Projector {
	return &Projector{
		commitments: commitments,
		ledger:      ledger,
	}
}

// Project returns one DayProjection per calendar day in [start, end].
//
// Every day's balance is the baseline (the signed sum of all ledger entries
// dated on or before end) plus that day's own occurrences only. Occurrences
// from earlier days in the range are NOT carried forward into later days;
// the series is a per-day delta view, not a running forecast.
func (p *Projector) Project(ctx context.Context, ownerID string, start, end core.Date) ([]DayProjection, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}
	if start.IsEmpty() || end.IsEmpty() {
		return nil, core.ErrInvalidDate
	}
	if start.AfterDate(end) {
		return nil, ErrInvalidRange
	}
	days := int(end.Sub(start.Time).Hours()/24) + 1
	if days > MaxProjectionDays {
		return nil, ErrRangeTooLarge
	}

	baseline, err := p.ledger.SumByOwnerUpTo(ctx, ownerID, end)
	if err != nil {
		return nil, fmt.Errorf("sum ledger baseline: %w", err)
	}

	due, err := p.commitments.GetByDateRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch commitments in range: %w", err)
	}

	byDay := make(map[string][]core.Commitment, len(due))
	for _, c := range due {
		key := c.NextDueDate.String()
		byDay[key] = append(byDay[key], c)
	}

	series := make([]DayProjection, 0, days)
	for d := start; !d.AfterDate(end); d = d.AddDays(1) {
		day := DayProjection{Date: d, Commitments: byDay[d.String()]}
		for _, c := range day.Commitments {
			if c.Kind == core.Income {
				day.Income += c.Amount.Cents
			} else {
				day.Expenses += c.Amount.Cents
			}
		}
		day.Balance = baseline + day.Income - day.Expenses
		series = append(series, day)
	}

	slog.DebugContext(ctx, "Calendar projection computed",
		"owner_id", ownerID,
		"start", start.String(),
		"end", end.String(),
		"days", len(series),
		"occurrences", len(due))

	return series, nil
}
