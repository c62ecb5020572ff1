package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/account"
	"github.com/tinoosan/groupledger/internal/storage/memory"
)

func day(d int) *int { return &d }

func setup(t *testing.T) (account.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return account.New(st, st, "BRL"), st
}

func TestValidateCreate(t *testing.T) {
	svc, _ := setup(t)
	user := uuid.New()
	cases := []struct {
		name string
		acc  ledger.Account
		ok   bool
	}{
		{"cash", ledger.Account{UserID: user, Name: "Nubank", Type: ledger.AccountTypeCash}, true},
		{"credit with days", ledger.Account{UserID: user, Name: "Visa", Type: ledger.AccountTypeCredit, CreditClosingDay: day(10), CreditDueDay: day(15)}, true},
		{"credit missing due", ledger.Account{UserID: user, Name: "Visa", Type: ledger.AccountTypeCredit, CreditClosingDay: day(10)}, false},
		{"credit day out of range", ledger.Account{UserID: user, Name: "Visa", Type: ledger.AccountTypeCredit, CreditClosingDay: day(32), CreditDueDay: day(1)}, false},
		{"cash with days", ledger.Account{UserID: user, Name: "Wallet", Type: ledger.AccountTypeCash, CreditDueDay: day(5)}, false},
		{"blank name", ledger.Account{UserID: user, Name: " ", Type: ledger.AccountTypePrepaid}, false},
		{"bad type", ledger.Account{UserID: user, Name: "X", Type: "SAVINGS"}, false},
		{"bad currency", ledger.Account{UserID: user, Name: "X", Type: ledger.AccountTypeCash, Currency: "ZZZ"}, false},
		{"no user", ledger.Account{Name: "X", Type: ledger.AccountTypeCash}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ValidateCreate(tc.acc)
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, errs.ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestCreateDefaultsCurrency(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, ledger.Account{UserID: uuid.New(), Name: "Conta", Type: ledger.AccountTypeCash})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Currency != "BRL" || a.Version != 1 || a.ID == uuid.Nil {
		t.Errorf("unexpected account: %+v", a)
	}
	b, err := svc.Create(ctx, ledger.Account{UserID: uuid.New(), Name: "Conta", Type: ledger.AccountTypeCash, Currency: "usd"})
	if err != nil {
		t.Fatalf("Create usd: %v", err)
	}
	if b.Currency != "USD" {
		t.Errorf("currency = %s, want USD", b.Currency)
	}
}

func TestListPersonalExcludesGroupAccounts(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	user := uuid.New()
	g := ledger.Group{ID: uuid.New(), OwnerID: user, Name: "Casa"}
	if err := st.CreateGroup(ctx, g, nil, ledger.Member{ID: uuid.New(), GroupID: g.ID, UserID: user}); err != nil {
		t.Fatalf("create group: %v", err)
	}
	gid := g.ID
	if _, err := svc.Create(ctx, ledger.Account{UserID: user, Name: "Pessoal", Type: ledger.AccountTypeCash}); err != nil {
		t.Fatalf("Create personal: %v", err)
	}
	if _, err := svc.Create(ctx, ledger.Account{UserID: user, GroupID: &gid, Name: "Conjunta", Type: ledger.AccountTypeCash}); err != nil {
		t.Fatalf("Create group account: %v", err)
	}
	personal, _ := svc.ListPersonal(ctx, user)
	if len(personal) != 1 || personal[0].Name != "Pessoal" {
		t.Errorf("personal = %+v", personal)
	}
	shared, _ := svc.ListGroup(ctx, g.ID)
	if len(shared) != 1 || shared[0].Name != "Conjunta" {
		t.Errorf("group = %+v", shared)
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, ledger.Account{UserID: uuid.New(), Name: "Visa", Type: ledger.AccountTypeCredit, CreditClosingDay: day(10), CreditDueDay: day(15)})

	changed := a
	changed.Name = "Visa Gold"
	changed.CreditDueDay = day(20)
	v := a.Version
	got, err := svc.Update(ctx, changed, &v)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "Visa Gold" || *got.CreditDueDay != 20 || got.Version != a.Version+1 {
		t.Errorf("unexpected update: %+v", got)
	}

	if _, err := svc.Update(ctx, changed, &v); !errors.Is(err, errs.ErrVersionMismatch) {
		t.Errorf("stale version: got %v, want ErrVersionMismatch", err)
	}

	bad := got
	bad.Type = ledger.AccountTypeCash
	if _, err := svc.Update(ctx, bad, nil); !errors.Is(err, errs.ErrImmutable) {
		t.Errorf("type change: got %v, want ErrImmutable", err)
	}
	bad = got
	bad.Currency = "USD"
	if _, err := svc.Update(ctx, bad, nil); !errors.Is(err, errs.ErrImmutable) {
		t.Errorf("currency change: got %v, want ErrImmutable", err)
	}
	bad = got
	bad.CreditClosingDay = nil
	if _, err := svc.Update(ctx, bad, nil); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("dropping credit day: got %v, want ErrInvalid", err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Get unknown: got %v, want ErrNotFound", err)
	}
}
