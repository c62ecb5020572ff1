package v1

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/service/lifecycle"
)

// countTransactions handles GET /v1/accounts/{accountID}/transactions/count.
// It counts rows on either side of a transfer, the same rows a deletion would touch.
func (s *Server) countTransactions(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccount(w, r, false)
	if !ok {
		return
	}
	n, err := s.lifecycle.TransactionCount(r.Context(), a.ID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, countResponse{Count: n})
}

// deleteAccount handles DELETE /v1/accounts/{accountID}[?force=true].
//
// Without force, an unreferenced account is deleted (204) and a referenced one
// answers 409 pending_resolution with the transaction count. With force, the
// account and every transaction touching it are deleted.
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccount(w, r, true)
	if !ok {
		return
	}
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "force must be a boolean")
			return
		}
		force = v
	}
	if force {
		n, err := s.lifecycle.ForceDelete(r.Context(), sessionFrom(r).UserID, a.ID)
		recordDeletion("force", err)
		if err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, forceDeleteResponse{DeletedTransactions: n})
		return
	}
	out, err := s.lifecycle.RequestDelete(r.Context(), a.ID)
	recordDeletion("simple", err)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	if out.State == lifecycle.PendingResolution {
		pendingResolution(w, out.TransactionCount)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveTransactions handles POST /v1/accounts/{accountID}/transactions/move: every
// transaction is repointed at targetAccountId and the account is deleted.
func (s *Server) moveTransactions(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, ok := s.loadAccount(w, r, true)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	if req.TargetAccountID != nil && *req.TargetAccountID != uuid.Nil {
		if _, err := s.authorizeAccount(r.Context(), sess, *req.TargetAccountID, true); err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
	}
	res, err := s.lifecycle.MoveAndDelete(r.Context(), sess.UserID, a.ID, req.TargetAccountID)
	recordDeletion("move", err)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, moveResponse{MovedTransactions: res.Moved, DroppedTransfers: res.DroppedTransfers})
}
