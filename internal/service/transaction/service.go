package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/balance"
)

type Repo interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	// ListTransactions returns transactions referencing the account on either side, newest date first.
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error)
	CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error)
}

type Writer interface {
	CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
}

// Input is a transaction as submitted by a user.
type Input struct {
	AccountID   uuid.UUID
	ToAccountID *uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Type        ledger.TransactionType
}

type Service interface {
	Create(ctx context.Context, in Input) (ledger.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error)
	Count(ctx context.Context, accountID uuid.UUID) (int, error)
}

type service struct {
	repo   Repo
	writer Writer
	pub    events.Publisher
	log    *slog.Logger
	now    func() time.Time
}

func New(repo Repo, writer Writer, pub events.Publisher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, writer: writer, pub: pub, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) Create(ctx context.Context, in Input) (ledger.Transaction, error) {
	if in.UserID == uuid.Nil || in.AccountID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	if strings.TrimSpace(in.Title) == "" {
		return ledger.Transaction{}, fmt.Errorf("title is required: %w", errs.ErrInvalid)
	}
	if !in.Type.Valid() {
		return ledger.Transaction{}, fmt.Errorf("invalid transaction type %q: %w", in.Type, errs.ErrInvalid)
	}
	if in.Amount.Sign() <= 0 {
		return ledger.Transaction{}, fmt.Errorf("amount must be > 0: %w", errs.ErrInvalid)
	}
	acc, err := s.repo.GetAccount(ctx, in.AccountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	switch {
	case in.Type == ledger.TransactionTransfer:
		if in.ToAccountID == nil || *in.ToAccountID == uuid.Nil {
			return ledger.Transaction{}, fmt.Errorf("toAccountId is required for transfers: %w", errs.ErrInvalid)
		}
		if *in.ToAccountID == in.AccountID {
			return ledger.Transaction{}, fmt.Errorf("cannot transfer to the same account: %w", errs.ErrInvalid)
		}
		to, err := s.repo.GetAccount(ctx, *in.ToAccountID)
		if err != nil {
			return ledger.Transaction{}, err
		}
		if !strings.EqualFold(to.Currency, acc.Currency) {
			return ledger.Transaction{}, errs.ErrMixedCurrency
		}
	case in.ToAccountID != nil:
		return ledger.Transaction{}, fmt.Errorf("toAccountId is only allowed on transfers: %w", errs.ErrInvalid)
	}
	amt, err := balance.ToAmount(acc.Currency, in.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	t, err := s.writer.CreateTransaction(ctx, ledger.Transaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		ToAccountID: in.ToAccountID,
		UserID:      in.UserID,
		GroupID:     acc.GroupID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Amount:      amt,
		Date:        date.UTC(),
		Type:        in.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	e := events.New(events.TransactionCreated).WithActor(in.UserID).WithAccount(acc.ID).With("transactionId", t.ID.String())
	if acc.GroupID != nil {
		e = e.WithGroup(*acc.GroupID)
	}
	events.Emit(ctx, s.pub, s.log, e)
	return t, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, accountID)
}

func (s *service) Count(ctx context.Context, accountID uuid.UUID) (int, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}
	return s.repo.CountTransactions(ctx, accountID)
}
