package membership_test

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
	"github.com/tinoosan/groupledger/internal/service/role"
	"github.com/tinoosan/groupledger/internal/storage/memory"
)

type fixture struct {
	st      *memory.Store
	svc     membership.Service
	roles   role.Service
	rec     *events.Recorder
	group   ledger.Group
	owner   ledger.User
	builtin map[string]ledger.Role
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	rec := &events.Recorder{}
	owner, _ := st.UpsertUser(ctx, ledger.User{ID: uuid.New(), Email: "owner@example.com"})
	g, err := group.New(st, st, rec, testLogger()).Create(ctx, owner.ID, "Casa", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	roles := role.New(st, st)
	list, _ := roles.List(ctx, g.ID)
	byName := make(map[string]ledger.Role)
	for _, r := range list {
		byName[r.Name] = r
	}
	return fixture{
		st:      st,
		svc:     membership.New(st, st, rec, testLogger()),
		roles:   roles,
		rec:     rec,
		group:   g,
		owner:   owner,
		builtin: byName,
	}
}

func (f fixture) user(t *testing.T) ledger.User {
	t.Helper()
	u, err := f.st.UpsertUser(context.Background(), ledger.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return u
}

func TestResolve(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	set, err := f.svc.Resolve(ctx, f.owner.ID, f.group.ID)
	if err != nil || set != permission.All() {
		t.Fatalf("owner: got %s, %v; want all", set, err)
	}

	u := f.user(t)
	if _, err := f.svc.Resolve(ctx, u.ID, f.group.ID); !errors.Is(err, errs.ErrNotAMember) {
		t.Errorf("non-member: got %v, want ErrNotAMember", err)
	}
	if _, err := f.svc.Resolve(ctx, u.ID, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown group: got %v, want ErrNotFound", err)
	}

	reader := f.builtin[ledger.RoleReader]
	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, u.ID, reader.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	set, err = f.svc.Resolve(ctx, u.ID, f.group.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if set != reader.Permissions {
		t.Errorf("member: got %s, want %s", set, reader.Permissions)
	}
}

func TestOwnerOverridesRoleRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	// Demote the owner's own membership row directly in the store; resolution still grants everything.
	m, err := f.st.FindMember(ctx, f.group.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("find owner member: %v", err)
	}
	m.RoleID = f.builtin[ledger.RoleReader].ID
	if _, err := f.st.UpdateMember(ctx, m); err != nil {
		t.Fatalf("update: %v", err)
	}
	set, _ := f.svc.Resolve(ctx, f.owner.ID, f.group.ID)
	if set != permission.All() {
		t.Errorf("got %s, want all", set)
	}
}

func TestAddMemberRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t)
	memberRole := f.builtin[ledger.RoleMember]

	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, uuid.New(), memberRole.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, u.ID, uuid.New()); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("foreign role: got %v, want ErrInvalid", err)
	}
	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, f.owner.ID, memberRole.ID); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("owner: got %v, want ErrConflict", err)
	}
	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, u.ID, memberRole.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, u.ID, memberRole.ID); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("duplicate: got %v, want ErrConflict", err)
	}
	if got := f.rec.Types(); len(got) != 1 || got[0] != events.GroupMemberJoined {
		t.Errorf("events = %v", got)
	}
}

func TestChangeRoleAndRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t)
	m, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, u.ID, f.builtin[ledger.RoleReader].ID)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	stale := m.Version + 3
	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, m.ID, f.builtin[ledger.RoleMember].ID, &stale); !errors.Is(err, errs.ErrVersionMismatch) {
		t.Errorf("stale: got %v, want ErrVersionMismatch", err)
	}
	v := m.Version
	changed, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, m.ID, f.builtin[ledger.RoleMember].ID, &v)
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if changed.RoleID != f.builtin[ledger.RoleMember].ID || changed.Version != m.Version+1 {
		t.Errorf("unexpected member: %+v", changed)
	}

	ownerRow, _ := f.st.FindMember(ctx, f.group.ID, f.owner.ID)
	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, ownerRow.ID, f.builtin[ledger.RoleReader].ID, nil); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("owner role change: got %v, want ErrForbidden", err)
	}
	if err := f.svc.Remove(ctx, f.owner.ID, f.group.ID, ownerRow.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("owner removal: got %v, want ErrForbidden", err)
	}

	if err := f.svc.Remove(ctx, f.owner.ID, f.group.ID, m.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, u.ID, f.group.ID); !errors.Is(err, errs.ErrNotAMember) {
		t.Errorf("removed member: got %v, want ErrNotAMember", err)
	}
}

func TestMutationsRequireManageGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	reader, target, stranger := f.user(t), f.user(t), f.user(t)
	readerRow, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, reader.ID, f.builtin[ledger.RoleReader].ID)
	if err != nil {
		t.Fatalf("Add reader: %v", err)
	}

	if _, err := f.svc.Add(ctx, reader.ID, f.group.ID, target.ID, f.builtin[ledger.RoleReader].ID); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("reader add: got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Add(ctx, stranger.ID, f.group.ID, target.ID, f.builtin[ledger.RoleReader].ID); !errors.Is(err, errs.ErrNotAMember) {
		t.Errorf("stranger add: got %v, want ErrNotAMember", err)
	}
	if _, err := f.svc.ChangeRole(ctx, reader.ID, f.group.ID, readerRow.ID, f.builtin[ledger.RoleMember].ID, nil); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("reader change role: got %v, want ErrForbidden", err)
	}
	if err := f.svc.Remove(ctx, reader.ID, f.group.ID, readerRow.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("reader remove: got %v, want ErrForbidden", err)
	}

	manager, err := f.roles.Create(ctx, f.group.ID, role.Input{Name: "Gestor", Permissions: permission.Of(permission.ManageGroup)})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, readerRow.ID, manager.ID, nil); err != nil {
		t.Fatalf("promote: %v", err)
	}
	added, err := f.svc.Add(ctx, reader.ID, f.group.ID, target.ID, f.builtin[ledger.RoleReader].ID)
	if err != nil {
		t.Fatalf("manager add: %v", err)
	}
	if err := f.svc.Remove(ctx, reader.ID, f.group.ID, added.ID); err != nil {
		t.Fatalf("manager remove: %v", err)
	}
}

func TestCanManageMember(t *testing.T) {
	g := ledger.Group{ID: uuid.New(), OwnerID: uuid.New()}
	other := ledger.Member{UserID: uuid.New()}
	ownerRow := ledger.Member{UserID: g.OwnerID}
	cases := []struct {
		name   string
		actor  permission.Set
		target ledger.Member
		want   bool
	}{
		{"manager edits member", permission.Of(permission.ManageGroup), other, true},
		{"manager cannot edit owner", permission.All(), ownerRow, false},
		{"viewer cannot edit", permission.Of(permission.ViewAccounts), other, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := membership.CanManageMember(tc.actor, g, tc.target); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGroupsForUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t)
	if _, err := f.svc.Add(ctx, f.owner.ID, f.group.ID, u.ID, f.builtin[ledger.RoleReader].ID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	owned, err := f.svc.GroupsForUser(ctx, f.owner.ID)
	if err != nil || len(owned) != 1 {
		t.Fatalf("owner groups: %v, %v", owned, err)
	}
	if !owned[0].IsOwner || owned[0].Permissions != permission.All() || owned[0].RoleName != ledger.RoleOwner {
		t.Errorf("owner view: %+v", owned[0])
	}

	joined, err := f.svc.GroupsForUser(ctx, u.ID)
	if err != nil || len(joined) != 1 {
		t.Fatalf("member groups: %v, %v", joined, err)
	}
	if joined[0].IsOwner || joined[0].RoleName != ledger.RoleReader {
		t.Errorf("member view: %+v", joined[0])
	}

	none, _ := f.svc.GroupsForUser(ctx, uuid.New())
	if len(none) != 0 {
		t.Errorf("stranger sees %d groups", len(none))
	}
}
