package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/groupledger/internal/auth"
	"github.com/tinoosan/groupledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error            string `json:"error"`
	Code             string `json:"code,omitempty"`
	TransactionCount *int   `json:"transactionCount,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "validation_error")
}

// decodeJSON enforces the content type and decodes the body into dst, rejecting unknown fields.
// It writes the error response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !requireJSON(w, r) {
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// domainStatus maps a service error to its HTTP status and wire code.
func domainStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, errs.ErrProtectedRole):
		return http.StatusForbidden, "protected_role"
	case errors.Is(err, errs.ErrNotAMember):
		return http.StatusForbidden, "not_a_member"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrVersionMismatch):
		return http.StatusConflict, "version_mismatch"
	case errors.Is(err, errs.ErrInUseByMembers):
		return http.StatusConflict, "in_use_by_members"
	case errors.Is(err, errs.ErrHasTransactions):
		return http.StatusConflict, "pending_resolution"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrNoTargetSelected):
		return http.StatusUnprocessableEntity, "no_target_selected"
	case errors.Is(err, errs.ErrImmutable):
		return http.StatusUnprocessableEntity, "immutable"
	case errors.Is(err, errs.ErrMixedCurrency):
		return http.StatusUnprocessableEntity, "mixed_currency"
	case errors.Is(err, errs.ErrUnprocessable):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "validation_error"
	}
	return http.StatusInternalServerError, "internal"
}

// writeDomainErr is the single place service errors become HTTP responses.
func (s *Server) writeDomainErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := domainStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	writeErr(w, status, msg, code)
}

// pendingResolution answers a delete that needs the caller to choose a strategy.
func pendingResolution(w http.ResponseWriter, n int) {
	toJSON(w, http.StatusConflict, errorResponse{
		Error:            fmt.Sprintf("account is referenced by %d transactions", n),
		Code:             "pending_resolution",
		TransactionCount: &n,
	})
}
