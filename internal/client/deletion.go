package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/service/lifecycle"
)

// Deletion walks one account through the delete flow from the caller's side.
//
// Begin moves Idle to SimpleDeleted, or to PendingResolution when transactions
// reference the account. From there the caller picks Force or MoveTo. A
// Deletion is not safe for concurrent use.
type Deletion struct {
	c         *Client
	accountID uuid.UUID
	state     lifecycle.State
	count     int
}

func (c *Client) NewDeletion(accountID uuid.UUID) *Deletion {
	return &Deletion{c: c, accountID: accountID, state: lifecycle.Idle}
}

func (d *Deletion) State() lifecycle.State { return d.state }

// TransactionCount is the count reported when the delete went pending.
func (d *Deletion) TransactionCount() int { return d.count }

func (d *Deletion) Begin(ctx context.Context) (lifecycle.State, error) {
	if d.state != lifecycle.Idle {
		return d.state, fmt.Errorf("begin from %s: %w", d.state, errs.ErrUnprocessable)
	}
	err := d.c.DeleteAccount(ctx, d.accountID)
	if err == nil {
		d.state = lifecycle.SimpleDeleted
		return d.state, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && errors.Is(err, errs.ErrHasTransactions) {
		d.state = lifecycle.PendingResolution
		if apiErr.TransactionCount != nil {
			d.count = *apiErr.TransactionCount
		}
		return d.state, nil
	}
	return d.state, err
}

// Force deletes the account with every transaction touching it and returns how many went.
func (d *Deletion) Force(ctx context.Context) (int, error) {
	if !d.resolvable() {
		return 0, fmt.Errorf("force from %s: %w", d.state, errs.ErrUnprocessable)
	}
	n, err := d.c.ForceDeleteAccount(ctx, d.accountID)
	if err != nil {
		return 0, err
	}
	d.state = lifecycle.ForceDeleted
	return n, nil
}

// MoveTo repoints the account's transactions at target, then deletes it.
// A nil target fails with errs.ErrNoTargetSelected before any request is sent.
func (d *Deletion) MoveTo(ctx context.Context, target *uuid.UUID) (Moved, error) {
	if !d.resolvable() {
		return Moved{}, fmt.Errorf("move from %s: %w", d.state, errs.ErrUnprocessable)
	}
	if target == nil || *target == uuid.Nil {
		return Moved{}, errs.ErrNoTargetSelected
	}
	res, err := d.c.MoveTransactions(ctx, d.accountID, target)
	if err != nil {
		return Moved{}, err
	}
	d.state = lifecycle.MovedAndDeleted
	return res, nil
}

func (d *Deletion) resolvable() bool {
	return d.state == lifecycle.Idle || d.state == lifecycle.PendingResolution
}
