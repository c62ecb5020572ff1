// Package dictionary holds the display catalogue for account and transaction types.
package dictionary

import "github.com/tinoosan/groupledger/internal/ledger"

type AccountTypeDef struct {
	Code        ledger.AccountType `json:"code"`
	Label       string             `json:"label"`
	Description string             `json:"description"`
	// Default marks the type preselected when creating an account.
	Default bool `json:"default"`
	// NeedsCreditDays is set for types that carry a closing and due day.
	NeedsCreditDays bool `json:"needsCreditDays"`
}

type TransactionTypeDef struct {
	Code  ledger.TransactionType `json:"code"`
	Label string                 `json:"label"`
}

var accountTypes = map[ledger.AccountType]AccountTypeDef{
	ledger.AccountTypeCash: {
		Code:        ledger.AccountTypeCash,
		Label:       "Dinheiro",
		Description: "Gastos e ganhos são descontados imediatamente.",
		Default:     true,
	},
	ledger.AccountTypeCredit: {
		Code:            ledger.AccountTypeCredit,
		Label:           "Crédito",
		Description:     "Os gastos podem ser contabilizados conforme as compras acontecem ou apenas quando a fatura for paga.",
		NeedsCreditDays: true,
	},
	ledger.AccountTypePrepaid: {
		Code:        ledger.AccountTypePrepaid,
		Label:       "Pré-pago",
		Description: "O valor é descontado ao transferir dinheiro para a conta.",
	},
}

var transactionTypes = []TransactionTypeDef{
	{Code: ledger.TransactionExpense, Label: "Gasto"},
	{Code: ledger.TransactionIncome, Label: "Ganho"},
	{Code: ledger.TransactionTransfer, Label: "Transferência"},
}

// AccountTypes returns the catalogue in display order. A non-nil t narrows it to that type;
// unknown types yield an empty slice.
func AccountTypes(t *ledger.AccountType) []AccountTypeDef {
	out := make([]AccountTypeDef, 0, len(accountTypes))
	for _, typ := range ledger.AccountTypes() {
		if t != nil && *t != typ {
			continue
		}
		out = append(out, accountTypes[typ])
	}
	return out
}

// Label returns the display label of t, or its code when t is unknown.
func Label(t ledger.AccountType) string {
	if def, ok := accountTypes[t]; ok {
		return def.Label
	}
	return string(t)
}

func TransactionTypes() []TransactionTypeDef {
	out := make([]TransactionTypeDef, len(transactionTypes))
	copy(out, transactionTypes)
	return out
}
