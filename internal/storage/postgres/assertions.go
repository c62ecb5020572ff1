package postgres

import (
	"github.com/tinoosan/groupledger/internal/jobs"
	"github.com/tinoosan/groupledger/internal/service/account"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/service/group"
	"github.com/tinoosan/groupledger/internal/service/lifecycle"
	"github.com/tinoosan/groupledger/internal/service/membership"
	"github.com/tinoosan/groupledger/internal/service/role"
	"github.com/tinoosan/groupledger/internal/service/transaction"
)

var (
	_ role.Repo           = (*Store)(nil)
	_ role.Writer         = (*Store)(nil)
	_ membership.Repo     = (*Store)(nil)
	_ membership.Writer   = (*Store)(nil)
	_ group.Repo          = (*Store)(nil)
	_ group.Writer        = (*Store)(nil)
	_ account.Repo        = (*Store)(nil)
	_ account.Writer      = (*Store)(nil)
	_ balance.Repo        = (*Store)(nil)
	_ balance.Writer      = (*Store)(nil)
	_ transaction.Repo    = (*Store)(nil)
	_ transaction.Writer  = (*Store)(nil)
	_ lifecycle.Repo      = (*Store)(nil)
	_ lifecycle.Writer    = (*Store)(nil)
	_ jobs.CreditAccounts = (*Store)(nil)
)
