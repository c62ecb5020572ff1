// Package membership resolves effective permissions and manages the members of a group.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

type Repo interface {
	GetGroup(ctx context.Context, groupID uuid.UUID) (ledger.Group, error)
	GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error)
	GetRole(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error)
	GetMember(ctx context.Context, groupID, memberID uuid.UUID) (ledger.Member, error)
	// FindMember looks a member up by user, returning ErrNotFound when the user is not in the group.
	FindMember(ctx context.Context, groupID, userID uuid.UUID) (ledger.Member, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]ledger.MemberView, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error)
}

type Writer interface {
	AddMember(ctx context.Context, m ledger.Member) (ledger.Member, error)
	UpdateMember(ctx context.Context, m ledger.Member) (ledger.Member, error)
	RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error
}

type Service interface {
	Resolve(ctx context.Context, userID, groupID uuid.UUID) (permission.Set, error)
	List(ctx context.Context, groupID uuid.UUID) ([]ledger.MemberView, error)
	Add(ctx context.Context, actorID, groupID, userID, roleID uuid.UUID) (ledger.Member, error)
	ChangeRole(ctx context.Context, actorID, groupID, memberID, roleID uuid.UUID, version *int64) (ledger.Member, error)
	Remove(ctx context.Context, actorID, groupID, memberID uuid.UUID) error
	GroupsForUser(ctx context.Context, userID uuid.UUID) ([]GroupPermission, error)
}

// GroupPermission is a group as seen by one user.
type GroupPermission struct {
	Group       ledger.Group
	IsOwner     bool
	RoleID      *uuid.UUID
	RoleName    string
	Permissions permission.Set
}

type service struct {
	repo   Repo
	writer Writer
	pub    events.Publisher
	log    *slog.Logger
	now    func() time.Time
}

func New(repo Repo, writer Writer, pub events.Publisher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, writer: writer, pub: pub, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// CanManageMember reports whether an actor holding actor may edit or remove target.
// The group owner is never editable.
func CanManageMember(actor permission.Set, g ledger.Group, target ledger.Member) bool {
	return actor.Has(permission.ManageGroup) && target.UserID != g.OwnerID
}

func (s *service) Resolve(ctx context.Context, userID, groupID uuid.UUID) (permission.Set, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return permission.None(), err
	}
	if userID == g.OwnerID {
		return permission.All(), nil
	}
	m, err := s.repo.FindMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return permission.None(), errs.ErrNotAMember
		}
		return permission.None(), err
	}
	r, err := s.repo.GetRole(ctx, groupID, m.RoleID)
	if err != nil {
		return permission.None(), err
	}
	return r.Permissions, nil
}

func (s *service) List(ctx context.Context, groupID uuid.UUID) ([]ledger.MemberView, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, groupID)
}

func (s *service) Add(ctx context.Context, actorID, groupID, userID, roleID uuid.UUID) (ledger.Member, error) {
	if userID == uuid.Nil || roleID == uuid.Nil {
		return ledger.Member{}, errs.ErrInvalid
	}
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return ledger.Member{}, err
	}
	if err := s.authorize(ctx, actorID, groupID); err != nil {
		return ledger.Member{}, err
	}
	if userID == g.OwnerID {
		return ledger.Member{}, errs.ErrConflict
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return ledger.Member{}, err
	}
	r, err := s.role(ctx, groupID, roleID)
	if err != nil {
		return ledger.Member{}, err
	}
	now := s.now()
	m, err := s.writer.AddMember(ctx, ledger.Member{
		ID:        uuid.New(),
		GroupID:   groupID,
		UserID:    u.ID,
		RoleID:    r.ID,
		Version:   1,
		JoinedAt:  now,
		UpdatedAt: now,
	})
	if err != nil {
		return ledger.Member{}, err
	}
	events.Emit(ctx, s.pub, s.log, events.New(events.GroupMemberJoined).
		WithGroup(groupID).
		WithActor(actorID).
		With("userId", u.ID.String()).
		With("role", r.Name))
	return m, nil
}

func (s *service) ChangeRole(ctx context.Context, actorID, groupID, memberID, roleID uuid.UUID, version *int64) (ledger.Member, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return ledger.Member{}, err
	}
	if err := s.authorize(ctx, actorID, groupID); err != nil {
		return ledger.Member{}, err
	}
	m, err := s.repo.GetMember(ctx, groupID, memberID)
	if err != nil {
		return ledger.Member{}, err
	}
	if m.UserID == g.OwnerID {
		return ledger.Member{}, errs.ErrForbidden
	}
	r, err := s.role(ctx, groupID, roleID)
	if err != nil {
		return ledger.Member{}, err
	}
	if version != nil && *version != m.Version {
		return ledger.Member{}, errs.ErrVersionMismatch
	}
	m.RoleID = r.ID
	m.UpdatedAt = s.now()
	return s.writer.UpdateMember(ctx, m)
}

func (s *service) Remove(ctx context.Context, actorID, groupID, memberID uuid.UUID) error {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, groupID); err != nil {
		return err
	}
	m, err := s.repo.GetMember(ctx, groupID, memberID)
	if err != nil {
		return err
	}
	if m.UserID == g.OwnerID {
		return errs.ErrForbidden
	}
	if err := s.writer.RemoveMember(ctx, groupID, memberID); err != nil {
		return err
	}
	events.Emit(ctx, s.pub, s.log, events.New(events.GroupMemberLeft).
		WithGroup(groupID).
		WithActor(actorID).
		With("userId", m.UserID.String()))
	return nil
}

func (s *service) GroupsForUser(ctx context.Context, userID uuid.UUID) ([]GroupPermission, error) {
	groups, err := s.repo.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]GroupPermission, 0, len(groups))
	for _, g := range groups {
		gp := GroupPermission{Group: g, IsOwner: g.OwnerID == userID}
		if gp.IsOwner {
			gp.RoleName = ledger.RoleOwner
			gp.Permissions = permission.All()
		}
		m, err := s.repo.FindMember(ctx, g.ID, userID)
		switch {
		case err == nil:
			r, err := s.repo.GetRole(ctx, g.ID, m.RoleID)
			if err != nil {
				return nil, err
			}
			id := r.ID
			gp.RoleID = &id
			if !gp.IsOwner {
				gp.RoleName = r.Name
				gp.Permissions = r.Permissions
			}
		case errors.Is(err, errs.ErrNotFound):
			if !gp.IsOwner {
				continue
			}
		default:
			return nil, err
		}
		out = append(out, gp)
	}
	return out, nil
}

// authorize insists the actor holds ManageGroup. Outsiders get ErrNotAMember.
func (s *service) authorize(ctx context.Context, actorID, groupID uuid.UUID) error {
	perms, err := s.Resolve(ctx, actorID, groupID)
	if err != nil {
		return err
	}
	if !perms.Has(permission.ManageGroup) {
		return fmt.Errorf("requires %s: %w", permission.ManageGroup, errs.ErrForbidden)
	}
	return nil
}

// role loads roleID and insists it belongs to groupID.
func (s *service) role(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error) {
	r, err := s.repo.GetRole(ctx, groupID, roleID)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Role{}, fmt.Errorf("role is not part of the group: %w", errs.ErrInvalid)
	}
	return r, err
}
