// Package balance keeps the append-only balance snapshots of accounts and derives
// current balances and per-type totals from them.
package balance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	// ListBalances returns every snapshot of the account in any order.
	ListBalances(ctx context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	AppendBalance(ctx context.Context, s ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error)
}

// Current is the resolved balance of one account. Snapshot is nil when none was recorded.
type Current struct {
	Amount   money.Amount
	Snapshot *ledger.BalanceSnapshot
}

// Service exposes snapshot recording and balance reporting.
type Service interface {
	AppendSnapshot(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, effectiveAt time.Time) (ledger.BalanceSnapshot, error)
	CurrentBalance(ctx context.Context, accountID uuid.UUID) (money.Amount, *ledger.BalanceSnapshot, error)
	CurrentBalances(ctx context.Context, accounts []ledger.Account) (map[uuid.UUID]Current, error)
	TotalByType(ctx context.Context, accounts []ledger.Account, t ledger.AccountType) (money.Amount, error)
	Totals(ctx context.Context, accounts []ledger.Account) (map[ledger.AccountType]money.Amount, error)
	History(ctx context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error)
}

// maxConcurrentLookups bounds CurrentBalances fan-out.
const maxConcurrentLookups = 8

type service struct {
	repo            Repo
	writer          Writer
	defaultCurrency string
	now             func() time.Time
}

func New(repo Repo, writer Writer, defaultCurrency string) Service {
	if defaultCurrency == "" {
		defaultCurrency = "BRL"
	}
	return &service{
		repo:            repo,
		writer:          writer,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Latest picks the snapshot with the greatest EffectiveAt, breaking ties by the later CreatedAt.
// It returns nil for an empty slice.
func Latest(snaps []ledger.BalanceSnapshot) *ledger.BalanceSnapshot {
	var best *ledger.BalanceSnapshot
	for i := range snaps {
		s := &snaps[i]
		if best == nil || newer(*s, *best) {
			best = s
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func newer(a, b ledger.BalanceSnapshot) bool {
	if !a.EffectiveAt.Equal(b.EffectiveAt) {
		return a.EffectiveAt.After(b.EffectiveAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// ToAmount converts a decimal to an amount in curr, rejecting more decimal places than the currency allows.
func ToAmount(curr string, d decimal.Decimal) (money.Amount, error) {
	amt, err := money.ParseAmount(curr, d.String())
	if err != nil {
		return money.Amount{}, fmt.Errorf("amount: %v: %w", err, errs.ErrInvalid)
	}
	if amt.Decimal().Scale() > amt.Curr().Scale() {
		return money.Amount{}, fmt.Errorf("amount has more than %d decimal places for %s: %w", amt.Curr().Scale(), curr, errs.ErrInvalid)
	}
	return amt, nil
}

func (s *service) AppendSnapshot(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, effectiveAt time.Time) (ledger.BalanceSnapshot, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return ledger.BalanceSnapshot{}, err
	}
	amt, err := ToAmount(acc.Currency, amount)
	if err != nil {
		return ledger.BalanceSnapshot{}, err
	}
	now := s.now()
	if effectiveAt.IsZero() {
		effectiveAt = now
	}
	return s.writer.AppendBalance(ctx, ledger.BalanceSnapshot{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		Amount:      amt,
		EffectiveAt: effectiveAt.UTC(),
		CreatedAt:   now,
	})
}

func (s *service) CurrentBalance(ctx context.Context, accountID uuid.UUID) (money.Amount, *ledger.BalanceSnapshot, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return money.Amount{}, nil, err
	}
	c, err := s.current(ctx, acc)
	if err != nil {
		return money.Amount{}, nil, err
	}
	return c.Amount, c.Snapshot, nil
}

func (s *service) current(ctx context.Context, acc ledger.Account) (Current, error) {
	snaps, err := s.repo.ListBalances(ctx, acc.ID)
	if err != nil {
		return Current{}, err
	}
	if latest := Latest(snaps); latest != nil {
		return Current{Amount: latest.Amount, Snapshot: latest}, nil
	}
	zero, err := money.NewAmountFromMinorUnits(acc.Currency, 0)
	if err != nil {
		return Current{}, fmt.Errorf("zero balance in %s: %w", acc.Currency, err)
	}
	return Current{Amount: zero}, nil
}

func (s *service) CurrentBalances(ctx context.Context, accounts []ledger.Account) (map[uuid.UUID]Current, error) {
	out := make(map[uuid.UUID]Current, len(accounts))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			c, err := s.current(gctx, acc)
			if err != nil {
				return fmt.Errorf("balance of %s: %w", acc.ID, err)
			}
			mu.Lock()
			out[acc.ID] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) TotalByType(ctx context.Context, accounts []ledger.Account, t ledger.AccountType) (money.Amount, error) {
	var matching []ledger.Account
	for _, a := range accounts {
		if a.Type == t {
			matching = append(matching, a)
		}
	}
	current, err := s.CurrentBalances(ctx, matching)
	if err != nil {
		return money.Amount{}, err
	}
	return s.sum(matching, current)
}

// Totals sums current balances for every account type present in accounts.
func (s *service) Totals(ctx context.Context, accounts []ledger.Account) (map[ledger.AccountType]money.Amount, error) {
	current, err := s.CurrentBalances(ctx, accounts)
	if err != nil {
		return nil, err
	}
	byType := make(map[ledger.AccountType][]ledger.Account)
	for _, a := range accounts {
		byType[a.Type] = append(byType[a.Type], a)
	}
	out := make(map[ledger.AccountType]money.Amount, len(ledger.AccountTypes()))
	for _, t := range ledger.AccountTypes() {
		total, err := s.sum(byType[t], current)
		if err != nil {
			return nil, fmt.Errorf("%s total: %w", t, err)
		}
		out[t] = total
	}
	return out, nil
}

func (s *service) sum(accounts []ledger.Account, current map[uuid.UUID]Current) (money.Amount, error) {
	curr := s.defaultCurrency
	if len(accounts) > 0 {
		curr = accounts[0].Currency
	}
	total, err := money.NewAmountFromMinorUnits(curr, 0)
	if err != nil {
		return money.Amount{}, err
	}
	for _, a := range accounts {
		if !strings.EqualFold(a.Currency, curr) {
			return money.Amount{}, errs.ErrMixedCurrency
		}
		total, err = total.Add(current[a.ID].Amount)
		if err != nil {
			return money.Amount{}, fmt.Errorf("add %s: %w", a.ID, err)
		}
	}
	return total, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	snaps, err := s.repo.ListBalances(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snaps, func(i, j int) bool { return newer(snaps[i], snaps[j]) })
	return snaps, nil
}
