package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
)

type staticAccounts struct {
	accounts []ledger.Account
	err      error
}

func (s staticAccounts) ListCreditAccounts(context.Context) ([]ledger.Account, error) {
	return s.accounts, s.err
}

func credit(closing, due int) ledger.Account {
	return ledger.Account{ID: uuid.New(), UserID: uuid.New(), Type: ledger.AccountTypeCredit, Currency: "BRL", CreditClosingDay: &closing, CreditDueDay: &due}
}

func TestClosingSweepFlagsAccountsOnClosingDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	closingToday := credit(10, 15)
	notYet := credit(20, 28)
	gid := uuid.New()
	inGroup := credit(10, 5)
	inGroup.GroupID = &gid
	broken := credit(10, 15)
	bad := 40
	broken.CreditDueDay = &bad

	rec := &events.Recorder{}
	sweep := &ClosingSweep{
		Accounts:  staticAccounts{accounts: []ledger.Account{closingToday, notYet, inGroup, broken}},
		Publisher: rec,
		Location:  loc,
		Now:       func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, loc) },
	}
	n, err := sweep.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("flagged %d, want 2", n)
	}
	evs := rec.Events()
	if len(evs) != 2 {
		t.Fatalf("got %d events", len(evs))
	}
	if *evs[0].AccountID != closingToday.ID || evs[0].Metadata["dueDate"] != "2024-03-15" {
		t.Errorf("first event = %+v", evs[0])
	}
	if evs[1].GroupID == nil || *evs[1].GroupID != gid || evs[1].Metadata["dueDate"] != "2024-04-05" {
		t.Errorf("group event = %+v", evs[1])
	}
}

func TestClosingSweepListError(t *testing.T) {
	sweep := &ClosingSweep{Accounts: staticAccounts{err: errors.New("db down")}}
	if _, err := sweep.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSchedule(t *testing.T) {
	sweep := &ClosingSweep{Accounts: staticAccounts{}}
	c, err := sweep.Schedule(context.Background(), "0 6 * * *")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(c.Entries()))
	}
	if _, err := sweep.Schedule(context.Background(), "not a spec"); err == nil {
		t.Error("expected invalid spec error")
	}
}
