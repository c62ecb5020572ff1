package v1

import (
	"net/http"

	"github.com/tinoosan/groupledger/internal/service/balance"
)

// currentBalance handles GET /v1/accounts/{accountID}/balance.
// Accounts without snapshots report zero and a null snapshot.
func (s *Server) currentBalance(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccount(w, r, false)
	if !ok {
		return
	}
	amt, snap, err := s.balances.CurrentBalance(r.Context(), a.ID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toCurrentBalance(a.ID, balance.Current{Amount: amt, Snapshot: snap}))
}

// balanceHistory lists snapshots newest first.
func (s *Server) balanceHistory(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccount(w, r, false)
	if !ok {
		return
	}
	snaps, err := s.balances.History(r.Context(), a.ID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := make([]snapshotResponse, 0, len(snaps))
	for _, b := range snaps {
		out = append(out, toSnapshotResponse(b))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) appendBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, ok := s.loadAccount(w, r, true)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	at, err := parseDate(req.Date, s.loc, s.now())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	snap, err := s.balances.AppendSnapshot(r.Context(), a.ID, amount, at)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toSnapshotResponse(snap))
}
