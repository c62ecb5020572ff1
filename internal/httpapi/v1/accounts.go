package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
	"github.com/tinoosan/groupledger/internal/session"
)

// loadAccount fetches the account in the path and checks the caller may see it,
// or change it when write is set.
//
// Personal accounts belong to their creator alone and read as missing to anyone else.
// Group accounts need ViewAccounts to read. Writes need ManageGroupAccounts, or
// ManageOwnAccounts when the caller created the account.
func (s *Server) loadAccount(w http.ResponseWriter, r *http.Request, write bool) (ledger.Account, bool) {
	id, ok := uuidParam(w, r, "accountID")
	if !ok {
		return ledger.Account{}, false
	}
	a, err := s.authorizeAccount(r.Context(), sessionFrom(r), id, write)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return ledger.Account{}, false
	}
	return a, true
}

func (s *Server) authorizeAccount(ctx context.Context, sess *session.Session, accountID uuid.UUID, write bool) (ledger.Account, error) {
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
	perms, err := sess.Permissions(ctx, *a.GroupID)
	if err != nil {
		return ledger.Account{}, err
	}
	if !write {
		if !perms.Has(permission.ViewAccounts) {
			return ledger.Account{}, fmt.Errorf("requires %s: %w", permission.ViewAccounts, errs.ErrForbidden)
		}
		return a, nil
	}
	if perms.Has(permission.ManageGroupAccounts) || (perms.Has(permission.ManageOwnAccounts) && a.UserID == sess.UserID) {
		return a, nil
	}
	return ledger.Account{}, fmt.Errorf("cannot manage this account: %w", errs.ErrForbidden)
}

// groupQuery reads the optional groupId query parameter. A nil result means personal scope.
func groupQuery(r *http.Request) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("groupId"))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid groupId: %w", errs.ErrInvalid)
	}
	return &id, nil
}

// scopedAccounts lists the caller's personal accounts, or a group's accounts when groupID is set.
func (s *Server) scopedAccounts(r *http.Request, groupID *uuid.UUID) ([]ledger.Account, error) {
	sess := sessionFrom(r)
	if groupID == nil {
		return s.accounts.ListPersonal(r.Context(), sess.UserID)
	}
	if err := sess.Require(r.Context(), *groupID, permission.ViewAccounts); err != nil {
		return nil, err
	}
	return s.accounts.ListGroup(r.Context(), *groupID)
}

// describe renders accounts with their current balance and, for CREDIT, the billing cycle.
func (s *Server) describe(ctx context.Context, accounts []ledger.Account) ([]accountResponse, error) {
	current, err := s.balances.CurrentBalances(ctx, accounts)
	if err != nil {
		return nil, err
	}
	today := s.now().In(s.loc)
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp := toAccountResponse(a)
		if c, ok := current[a.ID]; ok {
			n := number(c.Amount)
			resp.CurrentBalance = &n
		}
		resp.Cycle = cycleFor(a, today)
		out = append(out, resp)
	}
	return out, nil
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	if req.GroupID != nil && *req.GroupID != uuid.Nil {
		if err := sess.RequireAny(r.Context(), *req.GroupID, permission.ManageOwnAccounts, permission.ManageGroupAccounts); err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
	}
	a, err := s.accounts.Create(r.Context(), ledger.Account{
		UserID:           sess.UserID,
		GroupID:          req.GroupID,
		Name:             req.Name,
		Type:             req.Type,
		Currency:         req.Currency,
		CreditClosingDay: req.CreditClosingDay,
		CreditDueDay:     req.CreditDueDay,
	})
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	resp, err := s.describe(r.Context(), []ledger.Account{a})
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, resp[0])
}

// listAccounts handles GET /v1/accounts[?groupId=].
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupQuery(r)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	accounts, err := s.scopedAccounts(r, groupID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out, err := s.describe(r.Context(), accounts)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, out)
}

// accountTotals handles GET /v1/accounts/totals[?groupId=][&type=].
// Without a type it reports every account type.
func (s *Server) accountTotals(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupQuery(r)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	accounts, err := s.scopedAccounts(r, groupID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := ledger.AccountType(strings.ToUpper(raw))
		if !t.Valid() {
			badRequest(w, "invalid account type")
			return
		}
		total, err := s.balances.TotalByType(r.Context(), accounts, t)
		if err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, map[ledger.AccountType]amountResponse{t: toAmountResponse(total)})
		return
	}
	totals, err := s.balances.Totals(r.Context(), accounts)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := make(map[ledger.AccountType]amountResponse, len(totals))
	for t, amt := range totals {
		out[t] = toAmountResponse(amt)
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccount(w, r, false)
	if !ok {
		return
	}
	resp, err := s.describe(r.Context(), []ledger.Account{a})
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, resp[0])
}

// updateAccount handles PATCH /v1/accounts/{accountID}.
// Name and credit days may change; type, currency and group are fixed at creation.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, ok := s.loadAccount(w, r, true)
	if !ok {
		return
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.Currency != nil {
		a.Currency = *req.Currency
	}
	if req.GroupID != nil {
		a.GroupID = req.GroupID
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.CreditClosingDay != nil {
		a.CreditClosingDay = req.CreditClosingDay
	}
	if req.CreditDueDay != nil {
		a.CreditDueDay = req.CreditDueDay
	}
	updated, err := s.accounts.Update(r.Context(), a, req.Version)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	resp, err := s.describe(r.Context(), []ledger.Account{updated})
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, resp[0])
}

// accountCycle handles GET /v1/accounts/{accountID}/cycle for CREDIT accounts.
func (s *Server) accountCycle(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccount(w, r, false)
	if !ok {
		return
	}
	c := cycleFor(a, s.now().In(s.loc))
	if c == nil {
		writeErr(w, http.StatusUnprocessableEntity, "only CREDIT accounts have a billing cycle", "unprocessable")
		return
	}
	toJSON(w, http.StatusOK, c)
}
