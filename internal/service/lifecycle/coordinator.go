// Package lifecycle coordinates account deletion. An account referenced by
// transactions is never removed silently: the caller must choose between
// deleting those transactions or moving them to another account.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
)

type Repo interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error)
}

// Writer holds the atomic deletion primitives. Each call runs in a single store transaction.
type Writer interface {
	// DeleteAccount removes an unreferenced account and its balances, or fails with ErrHasTransactions.
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
	// ForceDeleteAccount removes referencing transactions, balances and the account, returning the transaction count.
	ForceDeleteAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	// MoveTransactionsAndDeleteAccount repoints every reference from src to dst, then deletes src.
	// Transfers between src and dst are deleted instead, and moved rows take dst's group.
	MoveTransactionsAndDeleteAccount(ctx context.Context, src, dst uuid.UUID) (ledger.MoveResult, error)
}

// State is where a deletion request ended up.
type State int

const (
	Idle State = iota
	SimpleDeleted
	PendingResolution
	ForceDeleted
	MovedAndDeleted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SimpleDeleted:
		return "simple_deleted"
	case PendingResolution:
		return "pending_resolution"
	case ForceDeleted:
		return "force_deleted"
	case MovedAndDeleted:
		return "moved_and_deleted"
	}
	return "unknown"
}

// Outcome reports the result of RequestDelete.
type Outcome struct {
	State            State
	TransactionCount int
}

type Coordinator interface {
	TransactionCount(ctx context.Context, accountID uuid.UUID) (int, error)
	RequestDelete(ctx context.Context, accountID uuid.UUID) (Outcome, error)
	ForceDelete(ctx context.Context, actorID, accountID uuid.UUID) (int, error)
	MoveAndDelete(ctx context.Context, actorID, accountID uuid.UUID, target *uuid.UUID) (ledger.MoveResult, error)
}

type coordinator struct {
	repo   Repo
	writer Writer
	pub    events.Publisher
	log    *slog.Logger
}

func New(repo Repo, writer Writer, pub events.Publisher, log *slog.Logger) Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &coordinator{repo: repo, writer: writer, pub: pub, log: log}
}

func (c *coordinator) TransactionCount(ctx context.Context, accountID uuid.UUID) (int, error) {
	if _, err := c.repo.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}
	return c.repo.CountTransactions(ctx, accountID)
}

func (c *coordinator) RequestDelete(ctx context.Context, accountID uuid.UUID) (Outcome, error) {
	n, err := c.TransactionCount(ctx, accountID)
	if err != nil {
		return Outcome{State: Idle}, err
	}
	if n > 0 {
		return Outcome{State: PendingResolution, TransactionCount: n}, nil
	}
	if err := c.writer.DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, errs.ErrHasTransactions) {
			// A transaction was added between the count and the delete.
			n, cerr := c.repo.CountTransactions(ctx, accountID)
			if cerr != nil {
				return Outcome{State: Idle}, cerr
			}
			return Outcome{State: PendingResolution, TransactionCount: n}, nil
		}
		return Outcome{State: Idle}, err
	}
	return Outcome{State: SimpleDeleted}, nil
}

func (c *coordinator) ForceDelete(ctx context.Context, actorID, accountID uuid.UUID) (int, error) {
	acc, err := c.repo.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	n, err := c.writer.ForceDeleteAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.emit(ctx, events.TransactionDeleted, actorID, acc, "deletedTransactions", n)
	}
	return n, nil
}

// MoveAndDelete moves every transaction of accountID onto target and deletes the account.
// Transfers between the two accounts would become self-transfers, so they are deleted
// in the same write and reported as DroppedTransfers.
func (c *coordinator) MoveAndDelete(ctx context.Context, actorID, accountID uuid.UUID, target *uuid.UUID) (ledger.MoveResult, error) {
	if target == nil || *target == uuid.Nil {
		return ledger.MoveResult{}, errs.ErrNoTargetSelected
	}
	if *target == accountID {
		return ledger.MoveResult{}, fmt.Errorf("target must differ from the account being deleted: %w", errs.ErrInvalid)
	}
	src, err := c.repo.GetAccount(ctx, accountID)
	if err != nil {
		return ledger.MoveResult{}, err
	}
	dst, err := c.repo.GetAccount(ctx, *target)
	if err != nil {
		return ledger.MoveResult{}, err
	}
	if !strings.EqualFold(src.Currency, dst.Currency) {
		return ledger.MoveResult{}, fmt.Errorf("cannot move %s transactions to a %s account: %w", src.Currency, dst.Currency, errs.ErrUnprocessable)
	}
	res, err := c.writer.MoveTransactionsAndDeleteAccount(ctx, src.ID, dst.ID)
	if err != nil {
		return ledger.MoveResult{}, err
	}
	if res.Moved > 0 {
		c.emit(ctx, events.TransactionUpdated, actorID, src, "movedTransactions", res.Moved)
	}
	if res.DroppedTransfers > 0 {
		c.emit(ctx, events.TransactionDeleted, actorID, src, "deletedTransactions", res.DroppedTransfers)
	}
	return res, nil
}

func (c *coordinator) emit(ctx context.Context, t events.Type, actorID uuid.UUID, acc ledger.Account, key string, n int) {
	e := events.New(t).WithActor(actorID).WithAccount(acc.ID).With(key, strconv.Itoa(n))
	if acc.GroupID != nil {
		e = e.WithGroup(*acc.GroupID)
	}
	events.Emit(ctx, c.pub, c.log, e)
}
