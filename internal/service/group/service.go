package group

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/role"
)

type Repo interface {
	GetGroup(ctx context.Context, groupID uuid.UUID) (ledger.Group, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error)
	FindMember(ctx context.Context, groupID, userID uuid.UUID) (ledger.Member, error)
}

type Writer interface {
	// CreateGroup stores the group, its seeded roles and the owner membership atomically.
	CreateGroup(ctx context.Context, g ledger.Group, roles []ledger.Role, owner ledger.Member) error
	UpdateGroup(ctx context.Context, g ledger.Group) (ledger.Group, error)
	// DeleteGroup removes the group with its roles and members. Group accounts become personal.
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, description string) (ledger.Group, error)
	Get(ctx context.Context, groupID uuid.UUID) (ledger.Group, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error)
	Update(ctx context.Context, actorID uuid.UUID, g ledger.Group) (ledger.Group, error)
	Delete(ctx context.Context, actorID, groupID uuid.UUID) error
	Leave(ctx context.Context, actorID, groupID uuid.UUID) error
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

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (ledger.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Group{}, fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if ownerID == uuid.Nil {
		return ledger.Group{}, fmt.Errorf("owner is required: %w", errs.ErrInvalid)
	}
	now := s.now()
	g := ledger.Group{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	roles := role.BuiltIns(g.ID, now)
	owner := ledger.Member{
		ID:        uuid.New(),
		GroupID:   g.ID,
		UserID:    ownerID,
		RoleID:    roles[0].ID,
		Version:   1,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := s.writer.CreateGroup(ctx, g, roles, owner); err != nil {
		return ledger.Group{}, err
	}
	return g, nil
}

func (s *service) Get(ctx context.Context, groupID uuid.UUID) (ledger.Group, error) {
	return s.repo.GetGroup(ctx, groupID)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error) {
	return s.repo.ListGroupsForUser(ctx, userID)
}

// Update changes name and description. Ownership is not transferable here.
func (s *service) Update(ctx context.Context, actorID uuid.UUID, g ledger.Group) (ledger.Group, error) {
	current, err := s.repo.GetGroup(ctx, g.ID)
	if err != nil {
		return ledger.Group{}, err
	}
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ledger.Group{}, fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if g.OwnerID != uuid.Nil && g.OwnerID != current.OwnerID {
		return ledger.Group{}, fmt.Errorf("owner cannot be changed: %w", errs.ErrImmutable)
	}
	current.Name = name
	current.Description = strings.TrimSpace(g.Description)
	current.UpdatedAt = s.now()
	updated, err := s.writer.UpdateGroup(ctx, current)
	if err != nil {
		return ledger.Group{}, err
	}
	events.Emit(ctx, s.pub, s.log, events.New(events.GroupUpdated).WithGroup(updated.ID).WithActor(actorID))
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actorID, groupID uuid.UUID) error {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.OwnerID != actorID {
		return fmt.Errorf("only the owner can delete a group: %w", errs.ErrForbidden)
	}
	return s.writer.DeleteGroup(ctx, groupID)
}

func (s *service) Leave(ctx context.Context, actorID, groupID uuid.UUID) error {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.OwnerID == actorID {
		return fmt.Errorf("the owner cannot leave the group: %w", errs.ErrForbidden)
	}
	m, err := s.repo.FindMember(ctx, groupID, actorID)
	if err != nil {
		return errs.ErrNotAMember
	}
	if err := s.writer.RemoveMember(ctx, groupID, m.ID); err != nil {
		return err
	}
	events.Emit(ctx, s.pub, s.log, events.New(events.GroupMemberLeft).
		WithGroup(groupID).
		WithActor(actorID).
		With("userId", actorID.String()))
	return nil
}
