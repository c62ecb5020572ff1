package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/service/lifecycle"
	"github.com/tinoosan/groupledger/internal/service/transaction"
	"github.com/tinoosan/groupledger/internal/storage/memory"
)

type fixture struct {
	st    *memory.Store
	coord lifecycle.Coordinator
	txs   transaction.Service
	bal   balance.Service
	rec   *events.Recorder
	user  uuid.UUID
}

func setup(t *testing.T) fixture {
	t.Helper()
	st := memory.New()
	rec := &events.Recorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{
		st:    st,
		coord: lifecycle.New(st, st, rec, log),
		txs:   transaction.New(st, st, nil, log),
		bal:   balance.New(st, st, "BRL"),
		rec:   rec,
		user:  uuid.New(),
	}
}

func (f fixture) account(t *testing.T, curr string) ledger.Account {
	t.Helper()
	a, err := f.st.CreateAccount(context.Background(), ledger.Account{ID: uuid.New(), UserID: f.user, Name: "A", Type: ledger.AccountTypeCash, Currency: curr, Version: 1})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (f fixture) expense(t *testing.T, accountID uuid.UUID) {
	t.Helper()
	_, err := f.txs.Create(context.Background(), transaction.Input{AccountID: accountID, UserID: f.user, Title: "x", Amount: decimal.MustNew(10, 0), Type: ledger.TransactionExpense})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func TestSimpleDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.account(t, "BRL")
	if _, err := f.bal.AppendSnapshot(ctx, a.ID, decimal.MustNew(5, 0), time.Time{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := f.coord.RequestDelete(ctx, a.ID)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if out.State != lifecycle.SimpleDeleted {
		t.Fatalf("state = %s, want simple_deleted", out.State)
	}
	if _, err := f.st.GetAccount(ctx, a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("account still present: %v", err)
	}
	if snaps, _ := f.st.ListBalances(ctx, a.ID); len(snaps) != 0 {
		t.Errorf("balances not removed: %d", len(snaps))
	}
}

func TestPendingResolutionDoesNotMutate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.account(t, "BRL")
	f.expense(t, a.ID)
	f.expense(t, a.ID)

	out, err := f.coord.RequestDelete(ctx, a.ID)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if out.State != lifecycle.PendingResolution || out.TransactionCount != 2 {
		t.Fatalf("got %+v, want pending with 2", out)
	}
	if _, err := f.st.GetAccount(ctx, a.ID); err != nil {
		t.Errorf("account was removed: %v", err)
	}
}

func TestForceDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.account(t, "BRL")
	b := f.account(t, "BRL")
	f.expense(t, a.ID)
	f.expense(t, b.ID)
	aid := a.ID
	if _, err := f.txs.Create(ctx, transaction.Input{AccountID: b.ID, ToAccountID: &aid, UserID: f.user, Title: "in", Amount: decimal.MustNew(1, 0), Type: ledger.TransactionTransfer}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	n, err := f.coord.ForceDelete(ctx, f.user, a.ID)
	if err != nil {
		t.Fatalf("ForceDelete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d transactions, want 2", n)
	}
	if c, _ := f.st.CountTransactions(ctx, b.ID); c != 1 {
		t.Errorf("unrelated transactions touched: b has %d", c)
	}
	if got := f.rec.Types(); len(got) != 1 || got[0] != events.TransactionDeleted {
		t.Errorf("events = %v", got)
	}
}

func TestMoveAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := f.account(t, "BRL")
	dst := f.account(t, "BRL")
	other := f.account(t, "BRL")
	f.expense(t, src.ID)
	srcID := src.ID
	if _, err := f.txs.Create(ctx, transaction.Input{AccountID: other.ID, ToAccountID: &srcID, UserID: f.user, Title: "in", Amount: decimal.MustNew(1, 0), Type: ledger.TransactionTransfer}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	dstID := dst.ID
	res, err := f.coord.MoveAndDelete(ctx, f.user, src.ID, &dstID)
	if err != nil {
		t.Fatalf("MoveAndDelete: %v", err)
	}
	if res.Moved != 2 || res.DroppedTransfers != 0 {
		t.Errorf("got %+v, want 2 moved", res)
	}
	if c, _ := f.st.CountTransactions(ctx, dst.ID); c != 2 {
		t.Errorf("destination has %d transactions, want 2", c)
	}
	list, _ := f.st.ListTransactions(ctx, other.ID)
	if len(list) != 1 || list[0].ToAccountID == nil || *list[0].ToAccountID != dst.ID {
		t.Errorf("transfer destination not repointed: %+v", list)
	}
	if _, err := f.st.GetAccount(ctx, src.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("source still present: %v", err)
	}
	if got := f.rec.Types(); len(got) != 1 || got[0] != events.TransactionUpdated {
		t.Errorf("events = %v", got)
	}
}

func TestMoveOntoTransferCounterparty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := f.account(t, "BRL")
	dst := f.account(t, "BRL")
	f.expense(t, src.ID)
	srcID, dstID := src.ID, dst.ID
	for _, in := range []transaction.Input{
		{AccountID: src.ID, ToAccountID: &dstID, UserID: f.user, Title: "out", Amount: decimal.MustNew(5, 0), Type: ledger.TransactionTransfer},
		{AccountID: dst.ID, ToAccountID: &srcID, UserID: f.user, Title: "back", Amount: decimal.MustNew(3, 0), Type: ledger.TransactionTransfer},
	} {
		if _, err := f.txs.Create(ctx, in); err != nil {
			t.Fatalf("transfer: %v", err)
		}
	}

	res, err := f.coord.MoveAndDelete(ctx, f.user, src.ID, &dstID)
	if err != nil {
		t.Fatalf("MoveAndDelete: %v", err)
	}
	if res.Moved != 1 || res.DroppedTransfers != 2 {
		t.Errorf("got %+v, want 1 moved and 2 dropped", res)
	}
	list, _ := f.st.ListTransactions(ctx, dst.ID)
	if len(list) != 1 {
		t.Fatalf("destination has %d transactions, want 1", len(list))
	}
	for _, tx := range list {
		if tx.ToAccountID != nil && *tx.ToAccountID == tx.AccountID {
			t.Errorf("self-transfer left behind: %+v", tx)
		}
	}
	if got := f.rec.Types(); len(got) != 2 || got[0] != events.TransactionUpdated || got[1] != events.TransactionDeleted {
		t.Errorf("events = %v", got)
	}
}

func TestMoveAndDeleteValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := f.account(t, "BRL")
	usd := f.account(t, "USD")
	f.expense(t, src.ID)

	nilID := uuid.Nil
	srcID, usdID, missing := src.ID, usd.ID, uuid.New()
	cases := []struct {
		name   string
		target *uuid.UUID
		want   error
	}{
		{"no target", nil, errs.ErrNoTargetSelected},
		{"zero target", &nilID, errs.ErrNoTargetSelected},
		{"same account", &srcID, errs.ErrInvalid},
		{"missing target", &missing, errs.ErrNotFound},
		{"currency mismatch", &usdID, errs.ErrUnprocessable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.coord.MoveAndDelete(ctx, f.user, src.ID, tc.target); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
	if c, _ := f.st.CountTransactions(ctx, src.ID); c != 1 {
		t.Errorf("failed moves mutated the source: %d", c)
	}
}

// racingStore reports zero references but fails the delete as if a transaction was inserted meanwhile.
type racingStore struct {
	*memory.Store
	count int
}

func (r *racingStore) CountTransactions(ctx context.Context, id uuid.UUID) (int, error) {
	r.count++
	if r.count == 1 {
		return 0, nil
	}
	return 1, nil
}

func (r *racingStore) DeleteAccount(context.Context, uuid.UUID) error { return errs.ErrHasTransactions }

func TestRequestDeleteRace(t *testing.T) {
	f := setup(t)
	a := f.account(t, "BRL")
	rs := &racingStore{Store: f.st}
	coord := lifecycle.New(rs, rs, nil, nil)
	out, err := coord.RequestDelete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if out.State != lifecycle.PendingResolution || out.TransactionCount != 1 {
		t.Errorf("got %+v, want pending with 1", out)
	}
}
