// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence advancement. Each
// pattern (daily, weekly, monthly, quarterly, yearly) has its own advancer
// that encapsulates the date arithmetic for one step of that pattern.

package services

import (
	"time"

	"scadenze/internal/core"
)

// Advancer is the strategy interface for stepping a due date forward.
// Implementations return the next occurrence after current for the given
// interval multiplier.
type Advancer interface {
	Next(current core.Date, interval int) core.Date
}

// DailyAdvancer steps forward by interval days.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(current core.Date, interval int) core.Date {
	return current.AddDays(interval)
}

// WeeklyAdvancer steps forward by 7*interval days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(current core.Date, interval int) core.Date {
	return current.AddDays(7 * interval)
}

// MonthlyAdvancer steps forward by interval months, clamping the day of
// month to the last valid day of the target month (Jan 31 + 1 month is
// Feb 28, or Feb 29 in a leap year).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(current core.Date, interval int) core.Date {
	return addMonthsClamped(current, interval)
}

// QuarterlyAdvancer steps forward by 3*interval months with the same
// day-of-month clamping as MonthlyAdvancer.
type QuarterlyAdvancer struct{}

func (QuarterlyAdvancer) Next(current core.Date, interval int) core.Date {
	return addMonthsClamped(current, 3*interval)
}

// YearlyAdvancer steps forward by 12*interval months. Clamping only matters
// for Feb 29 start dates landing in non-leap years.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(current core.Date, interval int) core.Date {
	return addMonthsClamped(current, 12*interval)
}

// addMonthsClamped adds months to a date without the stdlib's rollover
// behavior: when the source day does not exist in the target month, the
// result is the last day of the target month.
func addMonthsClamped(d core.Date, months int) core.Date {
	year, month, day := d.Date()

	// First day of the target month, letting time.Date normalize the month
	// offset across year boundaries.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

// advancers maps recurrence patterns to their advancement strategies.
// core.Once is deliberately absent: a one-time commitment has no next
// occurrence. Unknown patterns are likewise absent and treated as terminal.
var advancers = map[core.RecurrencePattern]Advancer{
	core.Daily:     DailyAdvancer{},
	core.Weekly:    WeeklyAdvancer{},
	core.Monthly:   MonthlyAdvancer{},
	core.Quarterly: QuarterlyAdvancer{},
	core.Yearly:    YearlyAdvancer{},
}

// RegisterAdvancer registers a custom advancer for a new pattern. This
// supports extension without modifying the registry.
func RegisterAdvancer(pattern core.RecurrencePattern, adv Advancer) {
	advancers[pattern] = adv
}

// NextOccurrence computes the next due date after current for the given
// pattern and interval. It returns ok=false when the commitment is terminal:
// the pattern is core.Once, the pattern is unrecognized, or the computed
// date would fall strictly after endDate.
//
// The function is pure and never fails; bad input means "no further
// occurrences", so a malformed commitment can retire but can never abort a
// sweep.
func NextOccurrence(current core.Date, pattern core.RecurrencePattern, interval int, endDate core.Date) (core.Date, bool) {
	if pattern == core.Once {
		return core.Date{}, false
	}
	adv, ok := advancers[pattern]
	if !ok {
		return core.Date{}, false
	}
	if interval < 1 {
		interval = 1
	}
	next := adv.Next(current, interval)
	if !endDate.IsEmpty() && next.AfterDate(endDate) {
		return core.Date{}, false
	}
	return next, true
}
