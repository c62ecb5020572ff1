// Package storetest holds a behavioural suite every storage backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

// Store is the full method set shared by the memory, sqlite and postgres stores.
type Store interface {
	Ready(ctx context.Context) error

	UpsertUser(ctx context.Context, u ledger.User) (ledger.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error)

	CreateGroup(ctx context.Context, g ledger.Group, roles []ledger.Role, owner ledger.Member) error
	GetGroup(ctx context.Context, groupID uuid.UUID) (ledger.Group, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error)
	UpdateGroup(ctx context.Context, g ledger.Group) (ledger.Group, error)
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error

	CreateRole(ctx context.Context, r ledger.Role) (ledger.Role, error)
	GetRole(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error)
	ListRoles(ctx context.Context, groupID uuid.UUID) ([]ledger.Role, error)
	UpdateRole(ctx context.Context, r ledger.Role) (ledger.Role, error)
	DeleteRole(ctx context.Context, groupID, roleID uuid.UUID) error

	AddMember(ctx context.Context, m ledger.Member) (ledger.Member, error)
	GetMember(ctx context.Context, groupID, memberID uuid.UUID) (ledger.Member, error)
	FindMember(ctx context.Context, groupID, userID uuid.UUID) (ledger.Member, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]ledger.MemberView, error)
	UpdateMember(ctx context.Context, m ledger.Member) (ledger.Member, error)
	RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error

	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	ListPersonalAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
	ListGroupAccounts(ctx context.Context, groupID uuid.UUID) ([]ledger.Account, error)
	ListCreditAccounts(ctx context.Context) ([]ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)

	AppendBalance(ctx context.Context, b ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error)
	ListBalances(ctx context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error)

	CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error)
	CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error)

	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
	ForceDeleteAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	MoveTransactionsAndDeleteAccount(ctx context.Context, src, dst uuid.UUID) (ledger.MoveResult, error)
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	owner, other ledger.User
	group        ledger.Group
	roles        []ledger.Role
	ownerMember  ledger.Member
}

func seed(t *testing.T, ctx context.Context, s Store) fixture {
	t.Helper()
	f := fixture{
		owner: ledger.User{ID: uuid.New(), Email: "ana@example.com", FirstName: "Ana"},
		other: ledger.User{ID: uuid.New(), Email: "bia@example.com", FirstName: "Bia"},
	}
	for _, u := range []ledger.User{f.owner, f.other} {
		if _, err := s.UpsertUser(ctx, u); err != nil {
			t.Fatalf("upsert user: %v", err)
		}
	}
	f.group = ledger.Group{ID: uuid.New(), Name: "Casa", OwnerID: f.owner.ID, CreatedAt: base, UpdatedAt: base}
	for i, name := range []string{ledger.RoleOwner, ledger.RoleMember, ledger.RoleReader} {
		ts := base.Add(time.Duration(i) * time.Millisecond)
		f.roles = append(f.roles, ledger.Role{
			ID: uuid.New(), GroupID: f.group.ID, Name: name, Permissions: permission.All(),
			IsBuiltIn: true, Version: 1, CreatedAt: ts, UpdatedAt: ts,
		})
	}
	f.ownerMember = ledger.Member{ID: uuid.New(), GroupID: f.group.ID, UserID: f.owner.ID, RoleID: f.roles[0].ID, Version: 1, JoinedAt: base, UpdatedAt: base}
	if err := s.CreateGroup(ctx, f.group, f.roles, f.ownerMember); err != nil {
		t.Fatalf("create group: %v", err)
	}
	return f
}

func account(userID uuid.UUID, groupID *uuid.UUID, name string, typ ledger.AccountType) ledger.Account {
	a := ledger.Account{
		ID: uuid.New(), UserID: userID, GroupID: groupID, Name: name, Type: typ, Currency: "BRL",
		Version: 1, CreatedAt: base, UpdatedAt: base,
	}
	if typ == ledger.AccountTypeCredit {
		c, d := 10, 17
		a.CreditClosingDay, a.CreditDueDay = &c, &d
	}
	return a
}

func brl(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("BRL", minor)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func mustCreateAccount(t *testing.T, ctx context.Context, s Store, a ledger.Account) ledger.Account {
	t.Helper()
	created, err := s.CreateAccount(ctx, a)
	if err != nil {
		t.Fatalf("create account %s: %v", a.Name, err)
	}
	return created
}

func mustCreateTx(t *testing.T, ctx context.Context, s Store, tx ledger.Transaction) {
	t.Helper()
	if _, err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func transaction(t *testing.T, userID, from uuid.UUID, to *uuid.UUID, typ ledger.TransactionType, minor int64, day int) ledger.Transaction {
	d := base.AddDate(0, 0, day)
	return ledger.Transaction{
		ID: uuid.New(), AccountID: from, ToAccountID: to, UserID: userID, Title: "tx",
		Amount: brl(t, minor), Date: d, Type: typ, CreatedAt: d, UpdatedAt: d,
	}
}

// Run exercises s against the shared storage contract. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("groups", func(t *testing.T) { testGroups(t, open(t)) })
	t.Run("roles", func(t *testing.T) { testRoles(t, open(t)) })
	t.Run("members", func(t *testing.T) { testMembers(t, open(t)) })
	t.Run("accounts", func(t *testing.T) { testAccounts(t, open(t)) })
	t.Run("balances", func(t *testing.T) { testBalances(t, open(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, open(t)) })
	t.Run("lifecycle", func(t *testing.T) { testLifecycle(t, open(t)) })
	t.Run("move retargets group", func(t *testing.T) { testMoveRetargetsGroup(t, open(t)) })
	t.Run("delete group", func(t *testing.T) { testDeleteGroup(t, open(t)) })
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
	u := ledger.User{ID: uuid.New(), Email: "a@example.com", FirstName: "A"}
	if _, err := s.UpsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	u.LastName = "Silva"
	if _, err := s.UpsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetUser(ctx, u.ID)
	if err != nil || got.LastName != "Silva" {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := s.GetUser(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
	if _, err := s.UpsertUser(ctx, ledger.User{}); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("nil id err = %v", err)
	}
}

func testGroups(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)

	got, err := s.GetGroup(ctx, f.group.ID)
	if err != nil || got.Name != "Casa" || got.OwnerID != f.owner.ID {
		t.Fatalf("get group = %+v, %v", got, err)
	}
	owned, err := s.ListGroupsForUser(ctx, f.owner.ID)
	if err != nil || len(owned) != 1 {
		t.Fatalf("owner groups = %v, %v", owned, err)
	}
	none, err := s.ListGroupsForUser(ctx, f.other.ID)
	if err != nil || len(none) != 0 {
		t.Fatalf("other groups = %v, %v", none, err)
	}

	got.Name = "Casa nova"
	got.UpdatedAt = base.Add(time.Hour)
	upd, err := s.UpdateGroup(ctx, got)
	if err != nil || upd.Name != "Casa nova" {
		t.Fatalf("update = %+v, %v", upd, err)
	}
	if _, err := s.UpdateGroup(ctx, ledger.Group{ID: uuid.New(), Name: "x"}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func testRoles(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)

	custom := ledger.Role{
		ID: uuid.New(), GroupID: f.group.ID, Name: "Tesoureiro",
		Permissions: permission.Of(permission.ViewAccounts), Version: 1,
		CreatedAt: base.Add(time.Second), UpdatedAt: base.Add(time.Second),
	}
	if _, err := s.CreateRole(ctx, custom); err != nil {
		t.Fatalf("create role: %v", err)
	}
	roles, err := s.ListRoles(ctx, f.group.ID)
	if err != nil || len(roles) != 4 {
		t.Fatalf("roles = %d, %v", len(roles), err)
	}
	got, err := s.GetRole(ctx, f.group.ID, custom.ID)
	if err != nil || !got.Permissions.Has(permission.ViewAccounts) || got.IsBuiltIn {
		t.Fatalf("get role = %+v, %v", got, err)
	}
	if _, err := s.GetRole(ctx, uuid.New(), custom.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("role from wrong group err = %v", err)
	}

	got.Name = "Tesouraria"
	upd, err := s.UpdateRole(ctx, got)
	if err != nil || upd.Version != 2 || upd.Name != "Tesouraria" {
		t.Fatalf("update = %+v, %v", upd, err)
	}
	if _, err := s.UpdateRole(ctx, got); !errors.Is(err, errs.ErrVersionMismatch) {
		t.Errorf("stale update err = %v", err)
	}
	builtin := f.roles[1]
	builtin.Name = "Outro"
	if _, err := s.UpdateRole(ctx, builtin); !errors.Is(err, errs.ErrProtectedRole) {
		t.Errorf("builtin update err = %v", err)
	}
	if err := s.DeleteRole(ctx, f.group.ID, f.roles[2].ID); !errors.Is(err, errs.ErrProtectedRole) {
		t.Errorf("builtin delete err = %v", err)
	}

	m := ledger.Member{ID: uuid.New(), GroupID: f.group.ID, UserID: f.other.ID, RoleID: custom.ID, Version: 1, JoinedAt: base, UpdatedAt: base}
	if _, err := s.AddMember(ctx, m); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := s.DeleteRole(ctx, f.group.ID, custom.ID); !errors.Is(err, errs.ErrInUseByMembers) {
		t.Errorf("in-use delete err = %v", err)
	}
	if err := s.RemoveMember(ctx, f.group.ID, m.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRole(ctx, f.group.ID, custom.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	if err := s.DeleteRole(ctx, f.group.ID, custom.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func testMembers(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)

	m := ledger.Member{ID: uuid.New(), GroupID: f.group.ID, UserID: f.other.ID, RoleID: f.roles[2].ID, Version: 1, JoinedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)}
	if _, err := s.AddMember(ctx, m); err != nil {
		t.Fatalf("add: %v", err)
	}
	dup := m
	dup.ID = uuid.New()
	if _, err := s.AddMember(ctx, dup); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("duplicate err = %v", err)
	}
	foreign := m
	foreign.ID, foreign.UserID, foreign.RoleID = uuid.New(), uuid.New(), uuid.New()
	if _, err := s.AddMember(ctx, foreign); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("foreign role err = %v", err)
	}

	found, err := s.FindMember(ctx, f.group.ID, f.other.ID)
	if err != nil || found.ID != m.ID {
		t.Fatalf("find = %+v, %v", found, err)
	}
	views, err := s.ListMembers(ctx, f.group.ID)
	if err != nil || len(views) != 2 {
		t.Fatalf("list = %d, %v", len(views), err)
	}
	if views[1].User.Email != "bia@example.com" || views[1].Role.Name != ledger.RoleReader {
		t.Errorf("view = %+v", views[1])
	}
	groups, err := s.ListGroupsForUser(ctx, f.other.ID)
	if err != nil || len(groups) != 1 {
		t.Errorf("member groups = %v, %v", groups, err)
	}

	found.RoleID = f.roles[1].ID
	upd, err := s.UpdateMember(ctx, found)
	if err != nil || upd.Version != 2 || upd.RoleID != f.roles[1].ID {
		t.Fatalf("update = %+v, %v", upd, err)
	}
	if _, err := s.UpdateMember(ctx, found); !errors.Is(err, errs.ErrVersionMismatch) {
		t.Errorf("stale err = %v", err)
	}

	if err := s.RemoveMember(ctx, f.group.ID, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMember(ctx, f.group.ID, m.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("removed member err = %v", err)
	}
	if err := s.RemoveMember(ctx, f.group.ID, m.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func testAccounts(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)
	gid := f.group.ID

	personal := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Nubank", ledger.AccountTypeCredit))
	mustCreateAccount(t, ctx, s, account(f.owner.ID, &gid, "Conta da casa", ledger.AccountTypeCash))

	if personal.CreditClosingDay == nil || *personal.CreditClosingDay != 10 {
		t.Fatalf("credit days lost: %+v", personal)
	}
	mine, err := s.ListPersonalAccounts(ctx, f.owner.ID)
	if err != nil || len(mine) != 1 || mine[0].ID != personal.ID {
		t.Fatalf("personal = %v, %v", mine, err)
	}
	shared, err := s.ListGroupAccounts(ctx, gid)
	if err != nil || len(shared) != 1 || shared[0].GroupID == nil || *shared[0].GroupID != gid {
		t.Fatalf("group = %v, %v", shared, err)
	}
	credit, err := s.ListCreditAccounts(ctx)
	if err != nil || len(credit) != 1 {
		t.Fatalf("credit = %v, %v", credit, err)
	}

	personal.Name = "Nubank Ultravioleta"
	upd, err := s.UpdateAccount(ctx, personal)
	if err != nil || upd.Version != 2 || upd.Name != "Nubank Ultravioleta" {
		t.Fatalf("update = %+v, %v", upd, err)
	}
	if _, err := s.UpdateAccount(ctx, personal); !errors.Is(err, errs.ErrVersionMismatch) {
		t.Errorf("stale err = %v", err)
	}
	if _, err := s.GetAccount(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func testBalances(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)
	acc := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Itaú", ledger.AccountTypeCash))

	for i, minor := range []int64{1000, 2550} {
		ts := base.Add(time.Duration(i) * time.Hour)
		b := ledger.BalanceSnapshot{ID: uuid.New(), AccountID: acc.ID, Amount: brl(t, minor), EffectiveAt: ts, CreatedAt: ts}
		if _, err := s.AppendBalance(ctx, b); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	snaps, err := s.ListBalances(ctx, acc.ID)
	if err != nil || len(snaps) != 2 {
		t.Fatalf("list = %v, %v", snaps, err)
	}
	var sawLatest bool
	for _, b := range snaps {
		if n, _ := b.Amount.MinorUnits(); n == 2550 && b.Amount.Curr().Code() == "BRL" {
			sawLatest = true
		}
	}
	if !sawLatest {
		t.Errorf("amount did not round-trip: %v", snaps)
	}
	bad := ledger.BalanceSnapshot{ID: uuid.New(), AccountID: uuid.New(), Amount: brl(t, 1), EffectiveAt: base, CreatedAt: base}
	if _, err := s.AppendBalance(ctx, bad); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown account err = %v", err)
	}
}

func testTransactions(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)
	a := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "A", ledger.AccountTypeCash))
	b := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "B", ledger.AccountTypeCash))

	mustCreateTx(t, ctx, s, transaction(t, f.owner.ID, a.ID, nil, ledger.TransactionExpense, 500, 0))
	mustCreateTx(t, ctx, s, transaction(t, f.owner.ID, b.ID, &a.ID, ledger.TransactionTransfer, 700, 2))

	list, err := s.ListTransactions(ctx, a.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %d, %v", len(list), err)
	}
	if list[0].Type != ledger.TransactionTransfer {
		t.Errorf("want newest first, got %s", list[0].Type)
	}
	if list[0].ToAccountID == nil || *list[0].ToAccountID != a.ID {
		t.Errorf("to account lost: %+v", list[0])
	}
	if n, err := s.CountTransactions(ctx, b.ID); err != nil || n != 1 {
		t.Errorf("count b = %d, %v", n, err)
	}
	orphan := transaction(t, f.owner.ID, uuid.New(), nil, ledger.TransactionIncome, 1, 0)
	if _, err := s.CreateTransaction(ctx, orphan); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("orphan err = %v", err)
	}
}

func testLifecycle(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)
	empty := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Vazia", ledger.AccountTypeCash))
	src := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Origem", ledger.AccountTypeCash))
	dst := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Destino", ledger.AccountTypeCash))
	doomed := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Apagar", ledger.AccountTypeCash))

	if err := s.DeleteAccount(ctx, empty.ID); err != nil {
		t.Fatalf("delete empty: %v", err)
	}
	if err := s.DeleteAccount(ctx, empty.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("delete twice err = %v", err)
	}

	mustCreateTx(t, ctx, s, transaction(t, f.owner.ID, src.ID, nil, ledger.TransactionExpense, 100, 0))
	mustCreateTx(t, ctx, s, transaction(t, f.owner.ID, doomed.ID, &src.ID, ledger.TransactionTransfer, 200, 1))
	mustCreateTx(t, ctx, s, transaction(t, f.owner.ID, src.ID, &dst.ID, ledger.TransactionTransfer, 300, 2))
	if err := s.DeleteAccount(ctx, src.ID); !errors.Is(err, errs.ErrHasTransactions) {
		t.Fatalf("delete with refs err = %v", err)
	}

	// the src->dst transfer would point at dst on both sides, so it goes
	res, err := s.MoveTransactionsAndDeleteAccount(ctx, src.ID, dst.ID)
	if err != nil || res.Moved != 2 || res.DroppedTransfers != 1 {
		t.Fatalf("move = %+v, %v", res, err)
	}
	moved, err := s.ListTransactions(ctx, dst.ID)
	if err != nil {
		t.Fatalf("list dst: %v", err)
	}
	for _, tx := range moved {
		if tx.ToAccountID != nil && *tx.ToAccountID == tx.AccountID {
			t.Errorf("self-transfer after move: %+v", tx)
		}
	}
	if _, err := s.GetAccount(ctx, src.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("source still present: %v", err)
	}
	if n, _ := s.CountTransactions(ctx, dst.ID); n != 2 {
		t.Errorf("dst count = %d, want 2", n)
	}

	deleted, err := s.ForceDeleteAccount(ctx, doomed.ID)
	if err != nil || deleted != 1 {
		t.Fatalf("force = %d, %v", deleted, err)
	}
	if n, _ := s.CountTransactions(ctx, dst.ID); n != 1 {
		t.Errorf("dst count after force = %d, want 1", n)
	}
	if _, err := s.ForceDeleteAccount(ctx, doomed.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("force twice err = %v", err)
	}
}

func testMoveRetargetsGroup(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)
	gid := f.group.ID
	shared := mustCreateAccount(t, ctx, s, account(f.owner.ID, &gid, "Casa", ledger.AccountTypeCash))
	wallet := mustCreateAccount(t, ctx, s, account(f.owner.ID, nil, "Carteira", ledger.AccountTypeCash))
	spare := mustCreateAccount(t, ctx, s, account(f.owner.ID, &gid, "Reserva", ledger.AccountTypeCash))

	tx := transaction(t, f.owner.ID, shared.ID, nil, ledger.TransactionExpense, 100, 0)
	tx.GroupID = &gid
	mustCreateTx(t, ctx, s, tx)
	if _, err := s.MoveTransactionsAndDeleteAccount(ctx, shared.ID, wallet.ID); err != nil {
		t.Fatalf("move to personal: %v", err)
	}
	list, err := s.ListTransactions(ctx, wallet.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("wallet list = %d, %v", len(list), err)
	}
	if list[0].GroupID != nil {
		t.Errorf("moved into a personal account but group = %v", *list[0].GroupID)
	}

	if _, err := s.MoveTransactionsAndDeleteAccount(ctx, wallet.ID, spare.ID); err != nil {
		t.Fatalf("move to group: %v", err)
	}
	list, err = s.ListTransactions(ctx, spare.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("spare list = %d, %v", len(list), err)
	}
	if list[0].GroupID == nil || *list[0].GroupID != gid {
		t.Errorf("moved into a group account but group = %v", list[0].GroupID)
	}
}

func testDeleteGroup(t *testing.T, s Store) {
	ctx := context.Background()
	f := seed(t, ctx, s)
	gid := f.group.ID
	shared := mustCreateAccount(t, ctx, s, account(f.owner.ID, &gid, "Casa", ledger.AccountTypeCash))
	tx := transaction(t, f.owner.ID, shared.ID, nil, ledger.TransactionExpense, 100, 0)
	tx.GroupID = &gid
	mustCreateTx(t, ctx, s, tx)

	if err := s.DeleteGroup(ctx, gid); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if _, err := s.GetGroup(ctx, gid); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("group still present: %v", err)
	}
	if _, err := s.FindMember(ctx, gid, f.owner.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("owner membership survived: %v", err)
	}
	acc, err := s.GetAccount(ctx, shared.ID)
	if err != nil || acc.GroupID != nil {
		t.Errorf("account after group delete = %+v, %v", acc, err)
	}
	txs, err := s.ListTransactions(ctx, shared.ID)
	if err != nil || len(txs) != 1 || txs[0].GroupID != nil {
		t.Errorf("transactions after group delete = %+v, %v", txs, err)
	}
	if err := s.DeleteGroup(ctx, gid); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
