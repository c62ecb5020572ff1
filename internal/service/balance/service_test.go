package balance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/storage/memory"
)

func setup(t *testing.T) (balance.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return balance.New(st, st, "BRL"), st
}

func newAccount(t *testing.T, st *memory.Store, typ ledger.AccountType, curr string) ledger.Account {
	t.Helper()
	a := ledger.Account{ID: uuid.New(), UserID: uuid.New(), Name: string(typ), Type: typ, Currency: curr, Version: 1}
	if typ == ledger.AccountTypeCredit {
		c, d := 10, 15
		a.CreditClosingDay, a.CreditDueDay = &c, &d
	}
	a, err := st.CreateAccount(context.Background(), a)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func minor(t *testing.T, a money.Amount) int64 {
	t.Helper()
	n, ok := a.MinorUnits()
	if !ok {
		t.Fatalf("minor units overflow for %s", a)
	}
	return n
}

func TestCurrentBalanceZeroWithoutSnapshots(t *testing.T) {
	svc, st := setup(t)
	a := newAccount(t, st, ledger.AccountTypeCash, "BRL")
	amt, snap, err := svc.CurrentBalance(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	if snap != nil {
		t.Errorf("snapshot = %+v, want nil", snap)
	}
	if minor(t, amt) != 0 || amt.Curr().Code() != "BRL" {
		t.Errorf("amount = %s", amt)
	}
}

func TestCurrentBalanceUsesLatestEffectiveDate(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	a := newAccount(t, st, ledger.AccountTypeCash, "BRL")
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Recorded out of order: the March snapshot first, a backdated January one after.
	if _, err := svc.AppendSnapshot(ctx, a.ID, dec(t, "500"), mar); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.AppendSnapshot(ctx, a.ID, dec(t, "100"), jan); err != nil {
		t.Fatalf("append: %v", err)
	}
	amt, snap, err := svc.CurrentBalance(ctx, a.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	if minor(t, amt) != 50000 || snap == nil || !snap.EffectiveAt.Equal(mar) {
		t.Errorf("got %s at %v, want 500.00 at March", amt, snap)
	}

	hist, _ := svc.History(ctx, a.ID)
	if len(hist) != 2 || !hist[0].EffectiveAt.Equal(mar) {
		t.Errorf("history not newest first: %+v", hist)
	}
}

func TestLatestBreaksTiesByCreation(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	first := ledger.BalanceSnapshot{ID: uuid.New(), EffectiveAt: day, CreatedAt: day.Add(time.Hour)}
	second := ledger.BalanceSnapshot{ID: uuid.New(), EffectiveAt: day, CreatedAt: day.Add(2 * time.Hour)}
	for _, order := range [][]ledger.BalanceSnapshot{{first, second}, {second, first}} {
		if got := balance.Latest(order); got == nil || got.ID != second.ID {
			t.Errorf("Latest picked %v, want the later created snapshot", got)
		}
	}
	if balance.Latest(nil) != nil {
		t.Errorf("Latest(nil) should be nil")
	}
}

func TestNegativeAndPrecision(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	a := newAccount(t, st, ledger.AccountTypeCredit, "BRL")
	s, err := svc.AppendSnapshot(ctx, a.ID, dec(t, "-1234.56"), time.Time{})
	if err != nil {
		t.Fatalf("negative snapshot: %v", err)
	}
	if minor(t, s.Amount) != -123456 {
		t.Errorf("amount = %s", s.Amount)
	}
	if s.EffectiveAt.IsZero() {
		t.Errorf("zero effective date was not defaulted")
	}
	if _, err := svc.AppendSnapshot(ctx, a.ID, dec(t, "1.005"), time.Time{}); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("three decimals: got %v, want ErrInvalid", err)
	}
	if _, err := svc.AppendSnapshot(ctx, uuid.New(), dec(t, "1"), time.Time{}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown account: got %v, want ErrNotFound", err)
	}
}

func TestTotalByType(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	cash1 := newAccount(t, st, ledger.AccountTypeCash, "BRL")
	cash2 := newAccount(t, st, ledger.AccountTypeCash, "BRL")
	credit := newAccount(t, st, ledger.AccountTypeCredit, "BRL")
	_, _ = svc.AppendSnapshot(ctx, cash1.ID, dec(t, "100.50"), time.Time{})
	_, _ = svc.AppendSnapshot(ctx, cash2.ID, dec(t, "-0.50"), time.Time{})
	_, _ = svc.AppendSnapshot(ctx, credit.ID, dec(t, "-900"), time.Time{})
	accounts := []ledger.Account{cash1, cash2, credit}

	total, err := svc.TotalByType(ctx, accounts, ledger.AccountTypeCash)
	if err != nil {
		t.Fatalf("TotalByType: %v", err)
	}
	if minor(t, total) != 10000 {
		t.Errorf("cash total = %s, want 100.00", total)
	}

	empty, err := svc.TotalByType(ctx, accounts, ledger.AccountTypePrepaid)
	if err != nil || minor(t, empty) != 0 || empty.Curr().Code() != "BRL" {
		t.Errorf("prepaid total = %s, %v; want 0 BRL", empty, err)
	}

	totals, err := svc.Totals(ctx, accounts)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if minor(t, totals[ledger.AccountTypeCredit]) != -90000 {
		t.Errorf("credit total = %s", totals[ledger.AccountTypeCredit])
	}

	usd := newAccount(t, st, ledger.AccountTypeCash, "USD")
	if _, err := svc.TotalByType(ctx, append(accounts, usd), ledger.AccountTypeCash); !errors.Is(err, errs.ErrMixedCurrency) {
		t.Errorf("mixed currency: got %v, want ErrMixedCurrency", err)
	}
}

func TestCurrentBalances(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	var accounts []ledger.Account
	for i := 0; i < 20; i++ {
		a := newAccount(t, st, ledger.AccountTypeCash, "BRL")
		if i%2 == 0 {
			_, _ = svc.AppendSnapshot(ctx, a.ID, dec(t, "1"), time.Time{})
		}
		accounts = append(accounts, a)
	}
	got, err := svc.CurrentBalances(ctx, accounts)
	if err != nil {
		t.Fatalf("CurrentBalances: %v", err)
	}
	if len(got) != len(accounts) {
		t.Fatalf("got %d balances, want %d", len(got), len(accounts))
	}
	for i, a := range accounts {
		want := int64(0)
		if i%2 == 0 {
			want = 100
		}
		if n := minor(t, got[a.ID].Amount); n != want {
			t.Errorf("account %d: got %d, want %d", i, n, want)
		}
	}
}
