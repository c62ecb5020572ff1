package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
	"github.com/tinoosan/groupledger/internal/service/transaction"
	"github.com/tinoosan/groupledger/internal/session"
)

// transactionAccount checks access to an account's transactions. Personal accounts
// follow account visibility. Group accounts need ViewTransactions to read and either
// transaction management capability to record.
func (s *Server) transactionAccount(ctx context.Context, sess *session.Session, accountID uuid.UUID, write bool) (ledger.Account, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if !a.InGroup() {
		if a.UserID != sess.UserID {
			return ledger.Account{}, errs.ErrNotFound
		}
		return a, nil
	}
	if write {
		err = sess.RequireAny(ctx, *a.GroupID, permission.ManageOwnTransactions, permission.ManageGroupTransactions)
	} else {
		err = sess.Require(ctx, *a.GroupID, permission.ViewTransactions)
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	if _, err := s.transactionAccount(r.Context(), sess, req.AccountID, true); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	if req.ToAccountID != nil && *req.ToAccountID != uuid.Nil {
		if _, err := s.transactionAccount(r.Context(), sess, *req.ToAccountID, true); err != nil {
			s.writeDomainErr(w, r, fmt.Errorf("destination account: %w", err))
			return
		}
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	date, err := parseDate(req.Date, s.loc, s.now())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	t, err := s.transactions.Create(r.Context(), transaction.Input{
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		UserID:      sess.UserID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      amount,
		Date:        date,
		Type:        req.Type,
	})
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(t))
}

// listTransactions handles GET /v1/accounts/{accountID}/transactions, newest first.
// Transfers into the account are included.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "accountID")
	if !ok {
		return
	}
	if _, err := s.transactionAccount(r.Context(), sessionFrom(r), id, false); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	txs, err := s.transactions.ListByAccount(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}
