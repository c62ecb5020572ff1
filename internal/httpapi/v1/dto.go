package v1

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/groupledger/internal/creditcycle"
	"github.com/tinoosan/groupledger/internal/dictionary"
	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/service/membership"
	"github.com/tinoosan/groupledger/internal/service/role"
)

// Users and groups

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

type meResponse struct {
	User   userResponse         `json:"user"`
	Groups []groupAccessResponse `json:"groups"`
}

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type groupPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type groupResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type groupAccessResponse struct {
	groupResponse
	IsOwner     bool           `json:"isOwner"`
	RoleID      *uuid.UUID     `json:"roleId"`
	RoleName    string         `json:"roleName"`
	Permissions permission.Set `json:"permissions"`
}

func toUserResponse(u ledger.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func toGroupResponse(g ledger.Group) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, Description: g.Description, OwnerID: g.OwnerID, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt}
}

func toGroupAccess(gp membership.GroupPermission) groupAccessResponse {
	return groupAccessResponse{
		groupResponse: toGroupResponse(gp.Group),
		IsOwner:       gp.IsOwner,
		RoleID:        gp.RoleID,
		RoleName:      gp.RoleName,
		Permissions:   gp.Permissions,
	}
}

// Members

type memberRequest struct {
	UserID uuid.UUID `json:"userId"`
	RoleID uuid.UUID `json:"roleId"`
}

type memberPatchRequest struct {
	RoleID  uuid.UUID `json:"roleId"`
	Version *int64    `json:"version"`
}

type memberResponse struct {
	ID       uuid.UUID     `json:"id"`
	GroupID  uuid.UUID     `json:"groupId"`
	UserID   uuid.UUID     `json:"userId"`
	RoleID   uuid.UUID     `json:"roleId"`
	Version  int64         `json:"version"`
	JoinedAt time.Time     `json:"joinedAt"`
	User     *userResponse `json:"user,omitempty"`
	Role     *roleResponse `json:"role,omitempty"`
	IsOwner  bool          `json:"isOwner"`
	// CanManage tells the caller whether they may change or remove this member.
	CanManage bool `json:"canManage"`
}

func toMemberResponse(m ledger.Member, g ledger.Group) memberResponse {
	return memberResponse{
		ID: m.ID, GroupID: m.GroupID, UserID: m.UserID, RoleID: m.RoleID,
		Version: m.Version, JoinedAt: m.JoinedAt, IsOwner: m.UserID == g.OwnerID,
	}
}

func toMemberViewResponse(v ledger.MemberView, g ledger.Group) memberResponse {
	resp := toMemberResponse(v.Member, g)
	u := toUserResponse(v.User)
	r := toRoleResponse(v.Role)
	resp.User, resp.Role = &u, &r
	return resp
}

// Roles

// roleRequest carries the role fields plus the thirteen capability flags at the top level,
// e.g. {"name": "Tesoureiro", "canViewAccounts": true}. A nested "permissions" object is
// accepted too. Only the flags that were sent are kept so PATCH can leave the rest alone.
type roleRequest struct {
	Name        *string
	Description *string
	Version     *int64
	Flags       map[string]bool
}

func (req *roleRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	req.Flags = make(map[string]bool)
	for k, v := range raw {
		var err error
		switch k {
		case "name":
			err = json.Unmarshal(v, &req.Name)
		case "description":
			err = json.Unmarshal(v, &req.Description)
		case "version":
			err = json.Unmarshal(v, &req.Version)
		case "permissions":
			var nested map[string]bool
			if err = json.Unmarshal(v, &nested); err == nil {
				for name, on := range nested {
					req.Flags[name] = on
				}
			}
		default:
			var on bool
			if err = json.Unmarshal(v, &on); err == nil {
				req.Flags[k] = on
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	_, err := permission.FromMap(req.Flags)
	return err
}

// apply overlays the fields that were sent onto current.
func (req roleRequest) apply(current ledger.Role) role.Input {
	in := role.Input{Name: current.Name, Description: current.Description, Permissions: current.Permissions}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	for name, on := range req.Flags {
		c, err := permission.Parse(name)
		if err != nil {
			continue
		}
		if on {
			in.Permissions = in.Permissions.With(c)
		} else {
			in.Permissions = in.Permissions.Without(c)
		}
	}
	return in
}

type roleResponse struct {
	ID          uuid.UUID      `json:"id"`
	GroupID     uuid.UUID      `json:"groupId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IsBuiltIn   bool           `json:"isBuiltIn"`
	Version     int64          `json:"version"`
	Permissions permission.Set `json:"permissions"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toRoleResponse(r ledger.Role) roleResponse {
	return roleResponse{
		ID: r.ID, GroupID: r.GroupID, Name: r.Name, Description: r.Description, IsBuiltIn: r.IsBuiltIn,
		Version: r.Version, Permissions: r.Permissions, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// Accounts

type accountRequest struct {
	GroupID          *uuid.UUID         `json:"groupId"`
	Name             string             `json:"name"`
	Type             ledger.AccountType `json:"type"`
	Currency         string             `json:"currency"`
	CreditClosingDay *int               `json:"creditClosingDay"`
	CreditDueDay     *int               `json:"creditDueDay"`
}

// accountPatchRequest lists every field a client may send. Type, currency and
// group are accepted only to report them as immutable.
type accountPatchRequest struct {
	Name             *string             `json:"name"`
	CreditClosingDay *int                `json:"creditClosingDay"`
	CreditDueDay     *int                `json:"creditDueDay"`
	Type             *ledger.AccountType `json:"type"`
	Currency         *string             `json:"currency"`
	GroupID          *uuid.UUID          `json:"groupId"`
	Version          *int64              `json:"version"`
}

type cycleResponse struct {
	ClosingDate     string `json:"closingDate"`
	DueDate         string `json:"dueDate"`
	InClosingPeriod bool   `json:"inClosingPeriod"`
}

type accountResponse struct {
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
	Cycle            *cycleResponse     `json:"cycle,omitempty"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID: a.ID, UserID: a.UserID, GroupID: a.GroupID, Name: a.Name, Type: a.Type, TypeLabel: dictionary.Label(a.Type), Currency: a.Currency,
		CreditClosingDay: a.CreditClosingDay, CreditDueDay: a.CreditDueDay, Version: a.Version,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

// cycleFor computes the billing cycle of a CREDIT account for today. Other types return nil.
func cycleFor(a ledger.Account, today time.Time) *cycleResponse {
	if a.Type != ledger.AccountTypeCredit || a.CreditClosingDay == nil || a.CreditDueDay == nil {
		return nil
	}
	c, err := creditcycle.Compute(today, *a.CreditClosingDay, *a.CreditDueDay)
	if err != nil {
		return nil
	}
	return &cycleResponse{
		ClosingDate:     c.ClosingDate.Format(time.DateOnly),
		DueDate:         c.DueDate.Format(time.DateOnly),
		InClosingPeriod: c.InClosingPeriod(today),
	}
}

type amountResponse struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

func toAmountResponse(a money.Amount) amountResponse {
	return amountResponse{Amount: number(a), Currency: a.Curr().Code()}
}

// Balances

type balanceRequest struct {
	Amount json.Number `json:"amount"`
	Date   string      `json:"date"`
}

type snapshotResponse struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   uuid.UUID   `json:"accountId"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	EffectiveAt time.Time   `json:"effectiveAt"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type currentBalanceResponse struct {
	AccountID uuid.UUID         `json:"accountId"`
	Amount    json.Number       `json:"amount"`
	Currency  string            `json:"currency"`
	Snapshot  *snapshotResponse `json:"snapshot"`
}

func toSnapshotResponse(b ledger.BalanceSnapshot) snapshotResponse {
	return snapshotResponse{
		ID: b.ID, AccountID: b.AccountID, Amount: number(b.Amount), Currency: b.Amount.Curr().Code(),
		EffectiveAt: b.EffectiveAt, CreatedAt: b.CreatedAt,
	}
}

func toCurrentBalance(accountID uuid.UUID, c balance.Current) currentBalanceResponse {
	resp := currentBalanceResponse{AccountID: accountID, Amount: number(c.Amount), Currency: c.Amount.Curr().Code()}
	if c.Snapshot != nil {
		s := toSnapshotResponse(*c.Snapshot)
		resp.Snapshot = &s
	}
	return resp
}

// Transactions

type transactionRequest struct {
	AccountID   uuid.UUID              `json:"accountId"`
	ToAccountID *uuid.UUID             `json:"toAccountId"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Amount      json.Number            `json:"amount"`
	Date        string                 `json:"date"`
	Type        ledger.TransactionType `json:"type"`
}

type transactionResponse struct {
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

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID: t.ID, AccountID: t.AccountID, ToAccountID: t.ToAccountID, UserID: t.UserID, GroupID: t.GroupID,
		Title: t.Title, Description: t.Description, Amount: number(t.Amount), Currency: t.Amount.Curr().Code(),
		Date: t.Date, Type: t.Type, CreatedAt: t.CreatedAt,
	}
}

// Deletion

type moveRequest struct {
	TargetAccountID *uuid.UUID `json:"targetAccountId"`
}

type countResponse struct {
	Count int `json:"count"`
}

type forceDeleteResponse struct {
	DeletedTransactions int `json:"deletedTransactions"`
}

type moveResponse struct {
	MovedTransactions int `json:"movedTransactions"`
	DroppedTransfers  int `json:"droppedTransfers"`
}

// number renders an amount as a JSON decimal number, keeping the currency scale.
func number(a money.Amount) json.Number {
	return json.Number(a.Decimal().String())
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Decimal{}, fmt.Errorf("amount is required: %w", errs.ErrInvalid)
	}
	d, err := decimal.Parse(n.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q is not a decimal: %w", n, errs.ErrInvalid)
	}
	return d, nil
}

// parseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates (midnight in loc).
// An empty value means now.
func parseDate(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("date %q must be RFC 3339 or YYYY-MM-DD: %w", raw, errs.ErrInvalid)
}
