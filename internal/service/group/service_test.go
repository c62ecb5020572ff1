package group_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
	"github.com/tinoosan/groupledger/internal/service/group"
	"github.com/tinoosan/groupledger/internal/service/membership"
	"github.com/tinoosan/groupledger/internal/storage/memory"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setup(t *testing.T) (group.Service, *memory.Store, *events.Recorder) {
	t.Helper()
	st := memory.New()
	rec := &events.Recorder{}
	return group.New(st, st, rec, testLogger()), st, rec
}

func TestCreateSeedsRolesAndOwner(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()
	owner := uuid.New()

	g, err := svc.Create(ctx, owner, " Viagem ", "praia")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Name != "Viagem" || g.OwnerID != owner {
		t.Errorf("unexpected group: %+v", g)
	}
	roles, _ := st.ListRoles(ctx, g.ID)
	if len(roles) != 3 {
		t.Fatalf("got %d roles, want 3 built-ins", len(roles))
	}
	m, err := st.FindMember(ctx, g.ID, owner)
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	r, _ := st.GetRole(ctx, g.ID, m.RoleID)
	if r.Name != ledger.RoleOwner || !r.IsBuiltIn {
		t.Errorf("owner bound to %s", r.Name)
	}

	if _, err := svc.Create(ctx, owner, "  ", ""); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("blank name: got %v, want ErrInvalid", err)
	}
}

func TestUpdateEmitsEvent(t *testing.T) {
	svc, _, rec := setup(t)
	ctx := context.Background()
	owner := uuid.New()
	g, _ := svc.Create(ctx, owner, "Casa", "")

	g.Name = "Casa nova"
	updated, err := svc.Update(ctx, owner, g)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Casa nova" {
		t.Errorf("name = %q", updated.Name)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != events.GroupUpdated {
		t.Errorf("events = %v", got)
	}

	g.OwnerID = uuid.New()
	if _, err := svc.Update(ctx, owner, g); !errors.Is(err, errs.ErrImmutable) {
		t.Errorf("owner change: got %v, want ErrImmutable", err)
	}
}

func TestDeleteDetachesAccounts(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()
	owner := uuid.New()
	g, _ := svc.Create(ctx, owner, "Casa", "")
	gid := g.ID
	acc, err := st.CreateAccount(ctx, ledger.Account{ID: uuid.New(), UserID: owner, GroupID: &gid, Name: "Conjunta", Type: ledger.AccountTypeCash, Currency: "BRL", Version: 1})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	if err := svc.Delete(ctx, uuid.New(), g.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("non-owner delete: got %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, owner, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("group still present: %v", err)
	}
	roles, _ := st.ListRoles(ctx, g.ID)
	if len(roles) != 0 {
		t.Errorf("roles not cascaded: %d left", len(roles))
	}
	got, err := st.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("account removed with group: %v", err)
	}
	if got.GroupID != nil {
		t.Errorf("account still in group %v", *got.GroupID)
	}
}

func TestLeave(t *testing.T) {
	svc, st, rec := setup(t)
	ctx := context.Background()
	owner := uuid.New()
	g, _ := svc.Create(ctx, owner, "Casa", "")

	if err := svc.Leave(ctx, owner, g.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("owner leave: got %v, want ErrForbidden", err)
	}
	stranger := uuid.New()
	if err := svc.Leave(ctx, stranger, g.ID); !errors.Is(err, errs.ErrNotAMember) {
		t.Errorf("stranger leave: got %v, want ErrNotAMember", err)
	}

	u, _ := st.UpsertUser(ctx, ledger.User{ID: uuid.New()})
	roles, _ := st.ListRoles(ctx, g.ID)
	var reader ledger.Role
	for _, r := range roles {
		if r.Name == ledger.RoleReader {
			reader = r
		}
	}
	ms := membership.New(st, st, nil, testLogger())
	if _, err := ms.Add(ctx, owner, g.ID, u.ID, reader.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if set, _ := ms.Resolve(ctx, u.ID, g.ID); set != reader.Permissions || set.Has(permission.ManageGroup) {
		t.Fatalf("unexpected permissions %s", set)
	}
	if err := svc.Leave(ctx, u.ID, g.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, err := ms.Resolve(ctx, u.ID, g.ID); !errors.Is(err, errs.ErrNotAMember) {
		t.Errorf("after leave: got %v, want ErrNotAMember", err)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != events.GroupMemberLeft {
		t.Errorf("events = %v", got)
	}
}

func TestListForUser(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	owner := uuid.New()
	_, _ = svc.Create(ctx, owner, "A", "")
	_, _ = svc.Create(ctx, owner, "B", "")
	_, _ = svc.Create(ctx, uuid.New(), "C", "")
	gs, err := svc.ListForUser(ctx, owner)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(gs) != 2 {
		t.Errorf("got %d groups, want 2", len(gs))
	}
}
