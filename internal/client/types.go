package client

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GroupAccess is a group seen by the caller, with their role and effective permissions.
type GroupAccess struct {
	Group
	IsOwner     bool           `json:"isOwner"`
	RoleID      *uuid.UUID     `json:"roleId"`
	RoleName    string         `json:"roleName"`
	Permissions permission.Set `json:"permissions"`
}

type Me struct {
	User   User          `json:"user"`
	Groups []GroupAccess `json:"groups"`
}

type GroupPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Role struct {
	ID          uuid.UUID      `json:"id"`
	GroupID     uuid.UUID      `json:"groupId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IsBuiltIn   bool           `json:"isBuiltIn"`
	Version     int64          `json:"version"`
	Permissions permission.Set `json:"permissions"`
}

// RoleInput creates a role or replaces every editable field of one.
type RoleInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Permissions permission.Set `json:"permissions"`
	Version     *int64         `json:"version,omitempty"`
}

type Member struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"groupId"`
	UserID    uuid.UUID `json:"userId"`
	RoleID    uuid.UUID `json:"roleId"`
	Version   int64     `json:"version"`
	JoinedAt  time.Time `json:"joinedAt"`
	User      *User     `json:"user,omitempty"`
	Role      *Role     `json:"role,omitempty"`
	IsOwner   bool      `json:"isOwner"`
	CanManage bool      `json:"canManage"`
}

type Cycle struct {
	ClosingDate     string `json:"closingDate"`
	DueDate         string `json:"dueDate"`
	InClosingPeriod bool   `json:"inClosingPeriod"`
}

type Account struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"userId"`
	GroupID          *uuid.UUID         `json:"groupId"`
	Name             string             `json:"name"`
	Type             ledger.AccountType `json:"type"`
	TypeLabel        string             `json:"typeLabel"`
	Currency         string             `json:"currency"`
	CreditClosingDay *int               `json:"creditClosingDay,omitempty"`
	CreditDueDay     *int               `json:"creditDueDay,omitempty"`
	Version          int64              `json:"version"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	CurrentBalance   *json.Number       `json:"currentBalance,omitempty"`
	Cycle            *Cycle             `json:"cycle,omitempty"`
}

type NewAccount struct {
	GroupID          *uuid.UUID         `json:"groupId,omitempty"`
	Name             string             `json:"name"`
	Type             ledger.AccountType `json:"type"`
	Currency         string             `json:"currency,omitempty"`
	CreditClosingDay *int               `json:"creditClosingDay,omitempty"`
	CreditDueDay     *int               `json:"creditDueDay,omitempty"`
}

type AccountPatch struct {
	Name             *string `json:"name,omitempty"`
	CreditClosingDay *int    `json:"creditClosingDay,omitempty"`
	CreditDueDay     *int    `json:"creditDueDay,omitempty"`
	Version          *int64  `json:"version,omitempty"`
}

// Amount is a decimal amount in a currency as sent on the wire.
type Amount struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

// Decimal parses the amount.
func (a Amount) Decimal() (decimal.Decimal, error) { return decimal.Parse(a.Amount.String()) }

type Snapshot struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   uuid.UUID   `json:"accountId"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	EffectiveAt time.Time   `json:"effectiveAt"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type Balance struct {
	AccountID uuid.UUID `json:"accountId"`
	Amount
	Snapshot *Snapshot `json:"snapshot"`
}

type Transaction struct {
	ID          uuid.UUID              `json:"id"`
	AccountID   uuid.UUID              `json:"accountId"`
	ToAccountID *uuid.UUID             `json:"toAccountId,omitempty"`
	UserID      uuid.UUID              `json:"userId"`
	GroupID     *uuid.UUID             `json:"groupId,omitempty"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Amount      json.Number            `json:"amount"`
	Currency    string                 `json:"currency"`
	Date        time.Time              `json:"date"`
	Type        ledger.TransactionType `json:"type"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type NewTransaction struct {
	AccountID   uuid.UUID              `json:"accountId"`
	ToAccountID *uuid.UUID             `json:"toAccountId,omitempty"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Amount      decimal.Decimal        `json:"-"`
	Date        string                 `json:"date,omitempty"`
	Type        ledger.TransactionType `json:"type"`
}

// MarshalJSON sends the amount as a JSON number.
func (t NewTransaction) MarshalJSON() ([]byte, error) {
	type wire NewTransaction
	return json.Marshal(struct {
		wire
		Amount json.Number `json:"amount"`
	}{wire: wire(t), Amount: json.Number(t.Amount.String())})
}

// Moved reports a move-and-delete. DroppedTransfers counts transfers between
// the deleted account and the target, which are removed rather than moved.
type Moved struct {
	MovedTransactions int `json:"movedTransactions"`
	DroppedTransfers  int `json:"droppedTransfers"`
}
