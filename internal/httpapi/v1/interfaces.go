package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/jobs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/account"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/service/group"
	"github.com/tinoosan/groupledger/internal/service/lifecycle"
	"github.com/tinoosan/groupledger/internal/service/membership"
	"github.com/tinoosan/groupledger/internal/service/role"
	"github.com/tinoosan/groupledger/internal/service/transaction"
)

// UserStore keeps user rows in sync with the authenticated identity.
type UserStore interface {
	UpsertUser(ctx context.Context, u ledger.User) (ledger.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error)
}

// ReadyChecker is implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Store is the union of every repository and writer the API composes services from.
// The memory, sqlite and postgres stores all satisfy it.
type Store interface {
	UserStore
	ReadyChecker
	jobs.CreditAccounts

	role.Repo
	role.Writer
	membership.Repo
	membership.Writer
	group.Repo
	group.Writer
	account.Repo
	account.Writer
	balance.Repo
	balance.Writer
	transaction.Repo
	transaction.Writer
	lifecycle.Repo
	lifecycle.Writer
}
