// Package creditcycle computes billing closing and due dates for credit accounts.
//
// Days that do not exist in a month (29, 30, 31) clamp to the month's last day.
// Rolling forward is done on the (year, month) pair before clamping, so a
// closing day of 31 in January rolls to the end of February and never skips
// into March.
package creditcycle

import (
	"fmt"
	"time"

	"github.com/tinoosan/groupledger/internal/errs"
)

// Cycle is the closing/due date pair of the current billing period.
// Both dates are midnight in the location of the "today" they were computed from.
type Cycle struct {
	ClosingDate time.Time
	DueDate     time.Time
}

// Compute returns the cycle for today given the account's closing and due days.
func Compute(today time.Time, closingDay, dueDay int) (Cycle, error) {
	if closingDay < 1 || closingDay > 31 {
		return Cycle{}, fmt.Errorf("closing day %d out of range 1-31: %w", closingDay, errs.ErrInvalid)
	}
	if dueDay < 1 || dueDay > 31 {
		return Cycle{}, fmt.Errorf("due day %d out of range 1-31: %w", dueDay, errs.ErrInvalid)
	}
	y, m, d := today.Date()
	loc := today.Location()
	pastClosing := d > closingDay

	closingOffset := 0
	if pastClosing {
		closingOffset = 1
	}
	dueOffset := 0
	if dueDay <= closingDay {
		dueOffset++
	}
	if pastClosing {
		dueOffset++
	}
	return Cycle{
		ClosingDate: dateOn(y, m, closingOffset, closingDay, loc),
		DueDate:     dateOn(y, m, dueOffset, dueDay, loc),
	}, nil
}

// InClosingPeriod reports whether today falls on or after the closing date and
// on or before the due date, by calendar day.
func (c Cycle) InClosingPeriod(today time.Time) bool {
	t := midnight(today.In(c.ClosingDate.Location()))
	return !t.Before(c.ClosingDate) && !t.After(c.DueDate)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateOn returns day of the month that is offset months after (year, month), clamped.
func dateOn(year int, month time.Month, offset, day int, loc *time.Location) time.Time {
	first := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, loc)
	y, m, _ := first.Date()
	if last := DaysIn(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
