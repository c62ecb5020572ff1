package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/groupledger/internal/permission"
)

// AccountType enumerates the kinds of account a user or group can hold.
type AccountType string

const (
	// AccountTypeCash is a checking, savings or wallet account.
	AccountTypeCash AccountType = "CASH"
	// AccountTypeCredit is a credit card with a monthly closing and due day.
	AccountTypeCredit AccountType = "CREDIT"
	// AccountTypePrepaid is a prepaid card or voucher balance.
	AccountTypePrepaid AccountType = "PREPAID"
)

// AccountTypes lists every account type in display order.
func AccountTypes() []AccountType {
	return []AccountType{AccountTypeCash, AccountTypeCredit, AccountTypePrepaid}
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeCredit, AccountTypePrepaid:
		return true
	}
	return false
}

// TransactionType identifies the direction of a transaction.
type TransactionType string

const (
	TransactionExpense  TransactionType = "EXPENSE"
	TransactionIncome   TransactionType = "INCOME"
	TransactionTransfer TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionExpense, TransactionIncome, TransactionTransfer:
		return true
	}
	return false
}

// Built-in role names seeded into every group.
const (
	RoleOwner  = "Dono"
	RoleMember = "Membro"
	RoleReader = "Leitor"
)

// User is an authenticated person. Rows are refreshed from the session identity.
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

// Group is a shared workspace. Its owner implicitly holds every capability.
type Group struct {
	ID          uuid.UUID
	Name        string
	Description string
	OwnerID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role is a named set of capabilities scoped to one group.
type Role struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	Name        string
	Description string
	Permissions permission.Set
	// IsBuiltIn marks the seeded Dono/Membro/Leitor roles. Set at creation, never inferred from Name.
	IsBuiltIn bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member assigns a user to a group with exactly one role.
type Member struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	UserID    uuid.UUID
	RoleID    uuid.UUID
	Version   int64
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// MemberView is a member joined with its user and role for listings.
type MemberView struct {
	Member
	User User
	Role Role
}

// Account holds money for a user, optionally shared within a group.
type Account struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	GroupID  *uuid.UUID
	Name     string
	Type     AccountType
	Currency string
	// CreditClosingDay and CreditDueDay are set if and only if Type is CREDIT.
	CreditClosingDay *int
	CreditDueDay     *int
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InGroup reports whether the account belongs to a group.
func (a Account) InGroup() bool { return a.GroupID != nil && *a.GroupID != uuid.Nil }

// BalanceSnapshot records an account amount as of EffectiveAt. Snapshots are append-only.
type BalanceSnapshot struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Amount      money.Amount
	EffectiveAt time.Time
	CreatedAt   time.Time
}

// Transaction moves money on an account, or between two accounts for transfers.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	ToAccountID *uuid.UUID
	UserID      uuid.UUID
	GroupID     *uuid.UUID
	Title       string
	Description string
	Amount      money.Amount
	Date        time.Time
	Type        TransactionType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MoveResult reports what moving an account's transactions onto another account did.
// Transfers between the two accounts are deleted rather than moved, since they
// would end up pointing at the same account on both sides.
type MoveResult struct {
	Moved            int
	DroppedTransfers int
}

// Between reports whether the transaction is a transfer joining a and b, in either direction.
func (t Transaction) Between(a, b uuid.UUID) bool {
	if t.ToAccountID == nil {
		return false
	}
	return (t.AccountID == a && *t.ToAccountID == b) || (t.AccountID == b && *t.ToAccountID == a)
}

// References reports whether the transaction points at accountID on either side.
func (t Transaction) References(accountID uuid.UUID) bool {
	return t.AccountID == accountID || (t.ToAccountID != nil && *t.ToAccountID == accountID)
}
