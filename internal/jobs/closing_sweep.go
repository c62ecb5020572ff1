// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tinoosan/groupledger/internal/creditcycle"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
)

// CreditAccounts lists every CREDIT account across users and groups.
type CreditAccounts interface {
	ListCreditAccounts(ctx context.Context) ([]ledger.Account, error)
}

// ClosingSweep publishes ACCOUNT_CLOSING_PERIOD for credit accounts whose
// statement has closed but is not yet due.
type ClosingSweep struct {
	Accounts  CreditAccounts
	Publisher events.Publisher
	Location  *time.Location
	Log       *slog.Logger
	Now       func() time.Time
}

// Run performs one sweep and returns how many accounts were flagged.
func (s *ClosingSweep) Run(ctx context.Context) (int, error) {
	accounts, err := s.Accounts.ListCreditAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list credit accounts: %w", err)
	}
	today := s.today()
	flagged := 0
	for _, a := range accounts {
		if a.CreditClosingDay == nil || a.CreditDueDay == nil {
			continue
		}
		c, err := creditcycle.Compute(today, *a.CreditClosingDay, *a.CreditDueDay)
		if err != nil {
			s.logger().WarnContext(ctx, "skipping account with invalid cycle", "account_id", a.ID, "err", err)
			continue
		}
		if !c.InClosingPeriod(today) {
			continue
		}
		e := events.New(events.AccountClosingPeriod).
			WithAccount(a.ID).
			WithActor(a.UserID).
			With("closingDate", c.ClosingDate.Format(time.DateOnly)).
			With("dueDate", c.DueDate.Format(time.DateOnly))
		if a.GroupID != nil && *a.GroupID != uuid.Nil {
			e = e.WithGroup(*a.GroupID)
		}
		events.Emit(ctx, s.Publisher, s.logger(), e)
		flagged++
	}
	return flagged, nil
}

// Schedule registers the sweep on a new cron scheduler in the sweep location.
// The caller starts and stops the returned scheduler.
func (s *ClosingSweep) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(s.location()))
	_, err := c.AddFunc(spec, func() {
		n, err := s.Run(ctx)
		if err != nil {
			s.logger().ErrorContext(ctx, "closing sweep failed", "err", err)
			return
		}
		s.logger().InfoContext(ctx, "closing sweep done", "flagged", n)
	})
	if err != nil {
		return nil, fmt.Errorf("closing sweep schedule %q: %w", spec, err)
	}
	return c, nil
}

func (s *ClosingSweep) today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().In(s.location())
}

func (s *ClosingSweep) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *ClosingSweep) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
