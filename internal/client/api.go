package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

// Users and groups

func (c *Client) Me(ctx context.Context) (Me, error) {
	var out Me
	err := c.do(ctx, http.MethodGet, "/v1/users/me", nil, nil, &out)
	return out, err
}

func (c *Client) CreateGroup(ctx context.Context, name, description string) (Group, error) {
	var out Group
	err := c.do(ctx, http.MethodPost, "/v1/groups", nil, map[string]string{"name": name, "description": description}, &out)
	return out, err
}

func (c *Client) Groups(ctx context.Context) ([]GroupAccess, error) {
	var out []GroupAccess
	err := c.do(ctx, http.MethodGet, "/v1/groups", nil, nil, &out)
	return out, err
}

func (c *Client) Group(ctx context.Context, groupID uuid.UUID) (Group, error) {
	var out Group
	err := c.do(ctx, http.MethodGet, idPath("v1", "groups", groupID), nil, nil, &out)
	return out, err
}

func (c *Client) UpdateGroup(ctx context.Context, groupID uuid.UUID, patch GroupPatch) (Group, error) {
	var out Group
	err := c.do(ctx, http.MethodPatch, idPath("v1", "groups", groupID), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, idPath("v1", "groups", groupID), nil, nil, nil)
}

func (c *Client) LeaveGroup(ctx context.Context, groupID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, idPath("v1", "groups", groupID, "leave"), nil, nil, nil)
}

// Permissions returns the caller's effective permissions in groupID.
func (c *Client) Permissions(ctx context.Context, groupID uuid.UUID) (permission.Set, error) {
	var out struct {
		Permissions permission.Set `json:"permissions"`
	}
	err := c.do(ctx, http.MethodGet, idPath("v1", "groups", groupID, "permissions"), nil, nil, &out)
	return out.Permissions, err
}

// Members

func (c *Client) Members(ctx context.Context, groupID uuid.UUID) ([]Member, error) {
	var out []Member
	err := c.do(ctx, http.MethodGet, idPath("v1", "groups", groupID, "members"), nil, nil, &out)
	return out, err
}

func (c *Client) AddMember(ctx context.Context, groupID, userID, roleID uuid.UUID) (Member, error) {
	var out Member
	err := c.do(ctx, http.MethodPost, idPath("v1", "groups", groupID, "members"), nil,
		map[string]uuid.UUID{"userId": userID, "roleId": roleID}, &out)
	return out, err
}

func (c *Client) ChangeMemberRole(ctx context.Context, groupID, memberID, roleID uuid.UUID, version *int64) (Member, error) {
	var out Member
	body := struct {
		RoleID  uuid.UUID `json:"roleId"`
		Version *int64    `json:"version,omitempty"`
	}{roleID, version}
	err := c.do(ctx, http.MethodPatch, idPath("v1", "groups", groupID, "members", memberID), nil, body, &out)
	return out, err
}

func (c *Client) RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, idPath("v1", "groups", groupID, "members", memberID), nil, nil, nil)
}

// Roles

func (c *Client) Roles(ctx context.Context, groupID uuid.UUID) ([]Role, error) {
	var out []Role
	err := c.do(ctx, http.MethodGet, idPath("v1", "groups", groupID, "roles"), nil, nil, &out)
	return out, err
}

func (c *Client) CreateRole(ctx context.Context, groupID uuid.UUID, in RoleInput) (Role, error) {
	var out Role
	err := c.do(ctx, http.MethodPost, idPath("v1", "groups", groupID, "roles"), nil, in, &out)
	return out, err
}

func (c *Client) UpdateRole(ctx context.Context, groupID, roleID uuid.UUID, in RoleInput) (Role, error) {
	var out Role
	err := c.do(ctx, http.MethodPatch, idPath("v1", "groups", groupID, "roles", roleID), nil, in, &out)
	return out, err
}

func (c *Client) DeleteRole(ctx context.Context, groupID, roleID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, idPath("v1", "groups", groupID, "roles", roleID), nil, nil, nil)
}

// Accounts

func scope(groupID *uuid.UUID) url.Values {
	if groupID == nil {
		return nil
	}
	return url.Values{"groupId": {groupID.String()}}
}

func (c *Client) CreateAccount(ctx context.Context, in NewAccount) (Account, error) {
	var out Account
	err := c.do(ctx, http.MethodPost, "/v1/accounts", nil, in, &out)
	return out, err
}

// Accounts lists the caller's personal accounts, or a group's when groupID is set.
func (c *Client) Accounts(ctx context.Context, groupID *uuid.UUID) ([]Account, error) {
	var out []Account
	err := c.do(ctx, http.MethodGet, "/v1/accounts", scope(groupID), nil, &out)
	return out, err
}

func (c *Client) Account(ctx context.Context, accountID uuid.UUID) (Account, error) {
	var out Account
	err := c.do(ctx, http.MethodGet, idPath("v1", "accounts", accountID), nil, nil, &out)
	return out, err
}

func (c *Client) UpdateAccount(ctx context.Context, accountID uuid.UUID, patch AccountPatch) (Account, error) {
	var out Account
	err := c.do(ctx, http.MethodPatch, idPath("v1", "accounts", accountID), nil, patch, &out)
	return out, err
}

func (c *Client) Cycle(ctx context.Context, accountID uuid.UUID) (Cycle, error) {
	var out Cycle
	err := c.do(ctx, http.MethodGet, idPath("v1", "accounts", accountID, "cycle"), nil, nil, &out)
	return out, err
}

// Totals sums current balances per account type.
func (c *Client) Totals(ctx context.Context, groupID *uuid.UUID) (map[ledger.AccountType]Amount, error) {
	var out map[ledger.AccountType]Amount
	err := c.do(ctx, http.MethodGet, "/v1/accounts/totals", scope(groupID), nil, &out)
	return out, err
}

// Balances

func (c *Client) Balance(ctx context.Context, accountID uuid.UUID) (Balance, error) {
	var out Balance
	err := c.do(ctx, http.MethodGet, idPath("v1", "accounts", accountID, "balance"), nil, nil, &out)
	return out, err
}

func (c *Client) BalanceHistory(ctx context.Context, accountID uuid.UUID) ([]Snapshot, error) {
	var out []Snapshot
	err := c.do(ctx, http.MethodGet, idPath("v1", "accounts", accountID, "balances"), nil, nil, &out)
	return out, err
}

// AppendBalance records amount as of date (RFC 3339 or YYYY-MM-DD; empty means now).
func (c *Client) AppendBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, date string) (Snapshot, error) {
	var out Snapshot
	body := struct {
		Amount json.Number `json:"amount"`
		Date   string      `json:"date,omitempty"`
	}{json.Number(amount.String()), date}
	err := c.do(ctx, http.MethodPost, idPath("v1", "accounts", accountID, "balances"), nil, body, &out)
	return out, err
}

// Transactions

func (c *Client) CreateTransaction(ctx context.Context, in NewTransaction) (Transaction, error) {
	var out Transaction
	err := c.do(ctx, http.MethodPost, "/v1/transactions", nil, in, &out)
	return out, err
}

func (c *Client) Transactions(ctx context.Context, accountID uuid.UUID) ([]Transaction, error) {
	var out []Transaction
	err := c.do(ctx, http.MethodGet, idPath("v1", "accounts", accountID, "transactions"), nil, nil, &out)
	return out, err
}

// Deletion

func (c *Client) TransactionCount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, idPath("v1", "accounts", accountID, "transactions", "count"), nil, nil, &out)
	return out.Count, err
}

// DeleteAccount asks for a simple delete. A referenced account fails with an
// *APIError wrapping errs.ErrHasTransactions and carrying TransactionCount.
func (c *Client) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, idPath("v1", "accounts", accountID), nil, nil, nil)
}

// ForceDeleteAccount deletes the account and every transaction touching it.
func (c *Client) ForceDeleteAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var out struct {
		DeletedTransactions int `json:"deletedTransactions"`
	}
	err := c.do(ctx, http.MethodDelete, idPath("v1", "accounts", accountID), url.Values{"force": {"true"}}, nil, &out)
	return out.DeletedTransactions, err
}

// MoveTransactions repoints every transaction at target and deletes the account.
// Transfers between the account and target are dropped and counted apart.
func (c *Client) MoveTransactions(ctx context.Context, accountID uuid.UUID, target *uuid.UUID) (Moved, error) {
	var out Moved
	body := struct {
		TargetAccountID *uuid.UUID `json:"targetAccountId"`
	}{target}
	err := c.do(ctx, http.MethodPost, idPath("v1", "accounts", accountID, "transactions", "move"), nil, body, &out)
	return out, err
}
