package v1

import (
	"net/http"
	"strings"

	"github.com/tinoosan/groupledger/internal/dictionary"
	"github.com/tinoosan/groupledger/internal/ledger"
)

// GET /v1/dictionary/account-types?type=
func (s *Server) accountTypesDictionary(w http.ResponseWriter, r *http.Request) {
	var t *ledger.AccountType
	if ts := r.URL.Query().Get("type"); ts != "" {
		tt := ledger.AccountType(strings.ToUpper(ts))
		t = &tt
	}
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.AccountTypeDef `json:"items"`
	}{Items: dictionary.AccountTypes(t)})
}

// GET /v1/dictionary/transaction-types
func (s *Server) transactionTypesDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.TransactionTypeDef `json:"items"`
	}{Items: dictionary.TransactionTypes()})
}
