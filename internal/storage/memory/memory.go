// Package memory provides an in-memory store used for development and tests.
// Every operation runs under one RWMutex, so multi-step writes are atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
)

// Store is an in-memory implementation of every repository and writer used by the services.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]ledger.User
	groups       map[uuid.UUID]ledger.Group
	roles        map[uuid.UUID]ledger.Role
	members      map[uuid.UUID]ledger.Member
	accounts     map[uuid.UUID]ledger.Account
	balances     map[uuid.UUID][]ledger.BalanceSnapshot
	transactions map[uuid.UUID]ledger.Transaction
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]ledger.User),
		groups:       make(map[uuid.UUID]ledger.Group),
		roles:        make(map[uuid.UUID]ledger.Role),
		members:      make(map[uuid.UUID]ledger.Member),
		accounts:     make(map[uuid.UUID]ledger.Account),
		balances:     make(map[uuid.UUID][]ledger.BalanceSnapshot),
		transactions: make(map[uuid.UUID]ledger.Transaction),
	}
}

// Ready always succeeds.
func (s *Store) Ready(context.Context) error { return nil }

// Users

func (s *Store) UpsertUser(_ context.Context, u ledger.User) (ledger.User, error) {
	if u.ID == uuid.Nil {
		return ledger.User{}, errs.ErrInvalid
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return u, nil
}

func (s *Store) GetUser(_ context.Context, userID uuid.UUID) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return ledger.User{}, errs.ErrNotFound
	}
	return u, nil
}

// Groups

func (s *Store) CreateGroup(_ context.Context, g ledger.Group, roles []ledger.Role, owner ledger.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; ok {
		return errs.ErrConflict
	}
	s.groups[g.ID] = g
	for _, r := range roles {
		s.roles[r.ID] = r
	}
	s.members[owner.ID] = owner
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID uuid.UUID) (ledger.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return ledger.Group{}, errs.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGroupsForUser(_ context.Context, userID uuid.UUID) ([]ledger.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	out := make([]ledger.Group, 0)
	for _, g := range s.groups {
		if g.OwnerID == userID {
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}
	}
	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		if _, ok := seen[m.GroupID]; ok {
			continue
		}
		if g, ok := s.groups[m.GroupID]; ok {
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) UpdateGroup(_ context.Context, g ledger.Group) (ledger.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.groups[g.ID]
	if !ok {
		return ledger.Group{}, errs.ErrNotFound
	}
	current.Name = g.Name
	current.Description = g.Description
	current.UpdatedAt = g.UpdatedAt
	s.groups[g.ID] = current
	return current, nil
}

func (s *Store) DeleteGroup(_ context.Context, groupID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return errs.ErrNotFound
	}
	for id, r := range s.roles {
		if r.GroupID == groupID {
			delete(s.roles, id)
		}
	}
	for id, m := range s.members {
		if m.GroupID == groupID {
			delete(s.members, id)
		}
	}
	for id, a := range s.accounts {
		if a.GroupID != nil && *a.GroupID == groupID {
			a.GroupID = nil
			s.accounts[id] = a
		}
	}
	for id, t := range s.transactions {
		if t.GroupID != nil && *t.GroupID == groupID {
			t.GroupID = nil
			s.transactions[id] = t
		}
	}
	delete(s.groups, groupID)
	return nil
}

// Roles

func (s *Store) CreateRole(_ context.Context, r ledger.Role) (ledger.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[r.GroupID]; !ok {
		return ledger.Role{}, errs.ErrNotFound
	}
	s.roles[r.ID] = r
	return r, nil
}

func (s *Store) GetRole(_ context.Context, groupID, roleID uuid.UUID) (ledger.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID]
	if !ok || r.GroupID != groupID {
		return ledger.Role{}, errs.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRoles(_ context.Context, groupID uuid.UUID) ([]ledger.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Role, 0)
	for _, r := range s.roles {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateRole(_ context.Context, r ledger.Role) (ledger.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.roles[r.ID]
	if !ok || current.GroupID != r.GroupID {
		return ledger.Role{}, errs.ErrNotFound
	}
	if current.IsBuiltIn {
		return ledger.Role{}, errs.ErrProtectedRole
	}
	if current.Version != r.Version {
		return ledger.Role{}, errs.ErrVersionMismatch
	}
	current.Name = r.Name
	current.Description = r.Description
	current.Permissions = r.Permissions
	current.UpdatedAt = r.UpdatedAt
	current.Version++
	s.roles[r.ID] = current
	return current, nil
}

func (s *Store) DeleteRole(_ context.Context, groupID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID]
	if !ok || r.GroupID != groupID {
		return errs.ErrNotFound
	}
	if r.IsBuiltIn {
		return errs.ErrProtectedRole
	}
	for _, m := range s.members {
		if m.RoleID == roleID {
			return errs.ErrInUseByMembers
		}
	}
	delete(s.roles, roleID)
	return nil
}

// Members

func (s *Store) AddMember(_ context.Context, m ledger.Member) (ledger.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[m.GroupID]; !ok {
		return ledger.Member{}, errs.ErrNotFound
	}
	if r, ok := s.roles[m.RoleID]; !ok || r.GroupID != m.GroupID {
		return ledger.Member{}, errs.ErrInvalid
	}
	for _, other := range s.members {
		if other.GroupID == m.GroupID && other.UserID == m.UserID {
			return ledger.Member{}, errs.ErrConflict
		}
	}
	s.members[m.ID] = m
	return m, nil
}

func (s *Store) GetMember(_ context.Context, groupID, memberID uuid.UUID) (ledger.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok || m.GroupID != groupID {
		return ledger.Member{}, errs.ErrNotFound
	}
	return m, nil
}

func (s *Store) FindMember(_ context.Context, groupID, userID uuid.UUID) (ledger.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.GroupID == groupID && m.UserID == userID {
			return m, nil
		}
	}
	return ledger.Member{}, errs.ErrNotFound
}

func (s *Store) ListMembers(_ context.Context, groupID uuid.UUID) ([]ledger.MemberView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.MemberView, 0)
	for _, m := range s.members {
		if m.GroupID != groupID {
			continue
		}
		u, ok := s.users[m.UserID]
		if !ok {
			u = ledger.User{ID: m.UserID}
		}
		out = append(out, ledger.MemberView{Member: m, User: u, Role: s.roles[m.RoleID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) UpdateMember(_ context.Context, m ledger.Member) (ledger.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.members[m.ID]
	if !ok || current.GroupID != m.GroupID {
		return ledger.Member{}, errs.ErrNotFound
	}
	if current.Version != m.Version {
		return ledger.Member{}, errs.ErrVersionMismatch
	}
	if r, ok := s.roles[m.RoleID]; !ok || r.GroupID != m.GroupID {
		return ledger.Member{}, errs.ErrInvalid
	}
	current.RoleID = m.RoleID
	current.UpdatedAt = m.UpdatedAt
	current.Version++
	s.members[m.ID] = current
	return current, nil
}

func (s *Store) RemoveMember(_ context.Context, groupID, memberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok || m.GroupID != groupID {
		return errs.ErrNotFound
	}
	delete(s.members, memberID)
	return nil
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.GroupID != nil {
		if _, ok := s.groups[*a.GroupID]; !ok {
			return ledger.Account{}, errs.ErrNotFound
		}
	}
	a = cloneAccount(a)
	s.accounts[a.ID] = a
	return cloneAccount(a), nil
}

func (s *Store) GetAccount(_ context.Context, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *Store) ListPersonalAccounts(_ context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	return s.listAccounts(func(a ledger.Account) bool { return a.UserID == userID && a.GroupID == nil }), nil
}

func (s *Store) ListGroupAccounts(_ context.Context, groupID uuid.UUID) ([]ledger.Account, error) {
	return s.listAccounts(func(a ledger.Account) bool { return a.GroupID != nil && *a.GroupID == groupID }), nil
}

func (s *Store) ListCreditAccounts(context.Context) ([]ledger.Account, error) {
	return s.listAccounts(func(a ledger.Account) bool { return a.Type == ledger.AccountTypeCredit }), nil
}

func (s *Store) listAccounts(keep func(ledger.Account) bool) []ledger.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[a.ID]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	if current.Version != a.Version {
		return ledger.Account{}, errs.ErrVersionMismatch
	}
	a = cloneAccount(a)
	a.Version = current.Version + 1
	s.accounts[a.ID] = a
	return cloneAccount(a), nil
}

// Balances

func (s *Store) AppendBalance(_ context.Context, b ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[b.AccountID]; !ok {
		return ledger.BalanceSnapshot{}, errs.ErrNotFound
	}
	s.balances[b.AccountID] = append(s.balances[b.AccountID], b)
	return b, nil
}

func (s *Store) ListBalances(_ context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.balances[accountID]
	out := make([]ledger.BalanceSnapshot, len(src))
	copy(out, src)
	return out, nil
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[t.AccountID]; !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if t.ToAccountID != nil {
		if _, ok := s.accounts[*t.ToAccountID]; !ok {
			return ledger.Transaction{}, errs.ErrNotFound
		}
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0)
	for _, t := range s.transactions {
		if t.References(accountID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, accountID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countRefs(accountID), nil
}

func (s *Store) countRefs(accountID uuid.UUID) int {
	n := 0
	for _, t := range s.transactions {
		if t.References(accountID) {
			n++
		}
	}
	return n
}

// Account lifecycle

func (s *Store) DeleteAccount(_ context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return errs.ErrNotFound
	}
	if s.countRefs(accountID) > 0 {
		return errs.ErrHasTransactions
	}
	s.removeAccount(accountID)
	return nil
}

func (s *Store) ForceDeleteAccount(_ context.Context, accountID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return 0, errs.ErrNotFound
	}
	n := 0
	for id, t := range s.transactions {
		if t.References(accountID) {
			delete(s.transactions, id)
			n++
		}
	}
	s.removeAccount(accountID)
	return n, nil
}

func (s *Store) MoveTransactionsAndDeleteAccount(_ context.Context, src, dst uuid.UUID) (ledger.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[src]; !ok {
		return ledger.MoveResult{}, errs.ErrNotFound
	}
	target, ok := s.accounts[dst]
	if !ok {
		return ledger.MoveResult{}, errs.ErrNotFound
	}
	var res ledger.MoveResult
	for id, t := range s.transactions {
		if !t.References(src) {
			continue
		}
		if t.Between(src, dst) {
			delete(s.transactions, id)
			res.DroppedTransfers++
			continue
		}
		if t.AccountID == src {
			t.AccountID = dst
			t.GroupID = nil
			if target.GroupID != nil {
				g := *target.GroupID
				t.GroupID = &g
			}
		}
		if t.ToAccountID != nil && *t.ToAccountID == src {
			to := dst
			t.ToAccountID = &to
		}
		s.transactions[id] = t
		res.Moved++
	}
	s.removeAccount(src)
	return res, nil
}

// removeAccount drops the account and its balances. Callers hold the write lock.
func (s *Store) removeAccount(accountID uuid.UUID) {
	delete(s.balances, accountID)
	delete(s.accounts, accountID)
}

func cloneAccount(a ledger.Account) ledger.Account {
	if a.GroupID != nil {
		g := *a.GroupID
		a.GroupID = &g
	}
	if a.CreditClosingDay != nil {
		d := *a.CreditClosingDay
		a.CreditClosingDay = &d
	}
	if a.CreditDueDay != nil {
		d := *a.CreditDueDay
		a.CreditDueDay = &d
	}
	return a
}
