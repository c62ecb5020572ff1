// Package account implements the account service rules: immutable type and currency,
// editable name and credit days, and credit days present only on CREDIT accounts.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
)

type Repo interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	ListPersonalAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
	ListGroupAccounts(ctx context.Context, groupID uuid.UUID) ([]ledger.Account, error)
}

type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	// UpdateAccount persists a if the stored version still equals a.Version and returns it with the next version.
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

type Service interface {
	ValidateCreate(a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Get(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	ListPersonal(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
	ListGroup(ctx context.Context, groupID uuid.UUID) ([]ledger.Account, error)
	Update(ctx context.Context, a ledger.Account, version *int64) (ledger.Account, error)
}

type service struct {
	repo            Repo
	writer          Writer
	defaultCurrency string
	now             func() time.Time
}

// New returns an account service. Accounts created without a currency get defaultCurrency.
func New(repo Repo, writer Writer, defaultCurrency string) Service {
	if defaultCurrency == "" {
		defaultCurrency = "BRL"
	}
	return &service{
		repo:            repo,
		writer:          writer,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) ValidateCreate(a ledger.Account) error {
	if a.UserID == uuid.Nil {
		return errs.ErrInvalid
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("invalid account type %q: %w", a.Type, errs.ErrInvalid)
	}
	curr := a.Currency
	if curr == "" {
		curr = s.defaultCurrency
	}
	if _, err := money.ParseCurr(curr); err != nil {
		return fmt.Errorf("invalid currency %q: %w", curr, errs.ErrInvalid)
	}
	return validateCreditDays(a)
}

// validateCreditDays enforces that closing and due days exist, within 1..31, exactly for CREDIT accounts.
func validateCreditDays(a ledger.Account) error {
	hasDays := a.CreditClosingDay != nil || a.CreditDueDay != nil
	if a.Type != ledger.AccountTypeCredit {
		if hasDays {
			return fmt.Errorf("credit days are only allowed on CREDIT accounts: %w", errs.ErrInvalid)
		}
		return nil
	}
	if a.CreditClosingDay == nil || a.CreditDueDay == nil {
		return fmt.Errorf("creditClosingDay and creditDueDay are required for CREDIT accounts: %w", errs.ErrInvalid)
	}
	for name, d := range map[string]int{"creditClosingDay": *a.CreditClosingDay, "creditDueDay": *a.CreditDueDay} {
		if d < 1 || d > 31 {
			return fmt.Errorf("%s must be between 1 and 31: %w", name, errs.ErrInvalid)
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if a.Currency == "" {
		a.Currency = s.defaultCurrency
	}
	if err := s.ValidateCreate(a); err != nil {
		return ledger.Account{}, err
	}
	now := s.now()
	acc := ledger.Account{
		ID:               uuid.New(),
		UserID:           a.UserID,
		GroupID:          a.GroupID,
		Name:             strings.TrimSpace(a.Name),
		Type:             a.Type,
		Currency:         a.Currency,
		CreditClosingDay: a.CreditClosingDay,
		CreditDueDay:     a.CreditDueDay,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if acc.GroupID != nil && *acc.GroupID == uuid.Nil {
		acc.GroupID = nil
	}
	return s.writer.CreateAccount(ctx, acc)
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (ledger.Account, error) {
	if accountID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, accountID)
}

func (s *service) ListPersonal(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListPersonalAccounts(ctx, userID)
}

func (s *service) ListGroup(ctx context.Context, groupID uuid.UUID) ([]ledger.Account, error) {
	if groupID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListGroupAccounts(ctx, groupID)
}

// Update applies name and credit day changes from a complete domain account.
func (s *service) Update(ctx context.Context, a ledger.Account, version *int64) (ledger.Account, error) {
	if a.ID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	current, err := s.repo.GetAccount(ctx, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	// Type, currency, owner and group are fixed at creation.
	if a.Type != current.Type || !strings.EqualFold(a.Currency, current.Currency) {
		return ledger.Account{}, errs.ErrImmutable
	}
	if a.UserID != uuid.Nil && a.UserID != current.UserID {
		return ledger.Account{}, errs.ErrImmutable
	}
	if !sameGroup(a.GroupID, current.GroupID) {
		return ledger.Account{}, errs.ErrImmutable
	}
	if strings.TrimSpace(a.Name) == "" {
		return ledger.Account{}, fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if version != nil && *version != current.Version {
		return ledger.Account{}, errs.ErrVersionMismatch
	}
	current.Name = strings.TrimSpace(a.Name)
	current.CreditClosingDay = a.CreditClosingDay
	current.CreditDueDay = a.CreditDueDay
	if err := validateCreditDays(current); err != nil {
		return ledger.Account{}, err
	}
	current.UpdatedAt = s.now()
	return s.writer.UpdateAccount(ctx, current)
}

func sameGroup(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
