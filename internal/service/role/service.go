// Package role implements the role rules of a group: built-in roles are
// immutable, names are required, and roles still assigned to members cannot
// be deleted.
package role

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

type Repo interface {
	GetGroup(ctx context.Context, groupID uuid.UUID) (ledger.Group, error)
	GetRole(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error)
	ListRoles(ctx context.Context, groupID uuid.UUID) ([]ledger.Role, error)
}

type Writer interface {
	CreateRole(ctx context.Context, r ledger.Role) (ledger.Role, error)
	// UpdateRole persists r if the stored version still equals r.Version and returns it with the next version.
	UpdateRole(ctx context.Context, r ledger.Role) (ledger.Role, error)
	// DeleteRole removes a non built-in role, failing with ErrInUseByMembers while members reference it.
	DeleteRole(ctx context.Context, groupID, roleID uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, groupID uuid.UUID, in Input) (ledger.Role, error)
	Update(ctx context.Context, groupID, roleID uuid.UUID, in Input, version *int64) (ledger.Role, error)
	Delete(ctx context.Context, groupID, roleID uuid.UUID) error
	Get(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error)
	List(ctx context.Context, groupID uuid.UUID) ([]ledger.Role, error)
}

// Input is the editable part of a role.
type Input struct {
	Name        string
	Description string
	Permissions permission.Set
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: func() time.Time { return time.Now().UTC() }}
}

// BuiltIns returns the three protected roles seeded into a new group.
func BuiltIns(groupID uuid.UUID, now time.Time) []ledger.Role {
	views := permission.Of(
		permission.ViewTransactions,
		permission.ViewCategories,
		permission.ViewSubcategories,
		permission.ViewBudgets,
		permission.ViewAccounts,
	)
	member := views.
		With(permission.ManageOwnTransactions).
		With(permission.ManageCategories).
		With(permission.ManageSubcategories).
		With(permission.ManageBudgets).
		With(permission.ManageOwnAccounts)
	mk := func(name, desc string, set permission.Set) ledger.Role {
		return ledger.Role{
			ID:          uuid.New(),
			GroupID:     groupID,
			Name:        name,
			Description: desc,
			Permissions: set,
			IsBuiltIn:   true,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return []ledger.Role{
		mk(ledger.RoleOwner, "Full access to the group", permission.All()),
		mk(ledger.RoleMember, "Manages own transactions and accounts", member),
		mk(ledger.RoleReader, "Read-only access", views),
	}
}

// ValidateInput checks the editable fields of a role.
func ValidateInput(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if in.Permissions != permission.FromBits(in.Permissions.Bits()) {
		return fmt.Errorf("unknown permission bits: %w", errs.ErrInvalid)
	}
	return nil
}

func (s *service) Create(ctx context.Context, groupID uuid.UUID, in Input) (ledger.Role, error) {
	if groupID == uuid.Nil {
		return ledger.Role{}, errs.ErrInvalid
	}
	if err := ValidateInput(in); err != nil {
		return ledger.Role{}, err
	}
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return ledger.Role{}, err
	}
	now := s.now()
	r := ledger.Role{
		ID:          uuid.New(),
		GroupID:     groupID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Permissions: in.Permissions,
		IsBuiltIn:   false,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.writer.CreateRole(ctx, r)
}

func (s *service) Update(ctx context.Context, groupID, roleID uuid.UUID, in Input, version *int64) (ledger.Role, error) {
	current, err := s.repo.GetRole(ctx, groupID, roleID)
	if err != nil {
		return ledger.Role{}, err
	}
	if current.IsBuiltIn {
		return ledger.Role{}, errs.ErrProtectedRole
	}
	if err := ValidateInput(in); err != nil {
		return ledger.Role{}, err
	}
	if version != nil && *version != current.Version {
		return ledger.Role{}, errs.ErrVersionMismatch
	}
	current.Name = strings.TrimSpace(in.Name)
	current.Description = strings.TrimSpace(in.Description)
	current.Permissions = in.Permissions
	current.UpdatedAt = s.now()
	return s.writer.UpdateRole(ctx, current)
}

func (s *service) Delete(ctx context.Context, groupID, roleID uuid.UUID) error {
	current, err := s.repo.GetRole(ctx, groupID, roleID)
	if err != nil {
		return err
	}
	if current.IsBuiltIn {
		return errs.ErrProtectedRole
	}
	return s.writer.DeleteRole(ctx, groupID, roleID)
}

func (s *service) Get(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error) {
	return s.repo.GetRole(ctx, groupID, roleID)
}

func (s *service) List(ctx context.Context, groupID uuid.UUID) ([]ledger.Role, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx, groupID)
	if err != nil {
		return nil, err
	}
	Sort(roles)
	return roles, nil
}

var builtInRank = map[string]int{ledger.RoleOwner: 0, ledger.RoleMember: 1, ledger.RoleReader: 2}

// Sort orders built-in roles first (Dono, Membro, Leitor), then custom roles by creation time.
func Sort(roles []ledger.Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		a, b := roles[i], roles[j]
		if a.IsBuiltIn != b.IsBuiltIn {
			return a.IsBuiltIn
		}
		if a.IsBuiltIn && builtInRank[a.Name] != builtInRank[b.Name] {
			return builtInRank[a.Name] < builtInRank[b.Name]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Name < b.Name
	})
}
