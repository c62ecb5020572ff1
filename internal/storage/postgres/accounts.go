package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
)

// --- Accounts ---

const accountColumns = `a.id, a.user_id, a.group_id, a.name, a.type, a.currency,
    a.credit_closing_day, a.credit_due_day, a.version, a.created_at, a.updated_at`

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	var typ, curr string
	if err := row.Scan(&a.ID, &a.UserID, &a.GroupID, &a.Name, &typ, &curr,
		&a.CreditClosingDay, &a.CreditDueDay, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	a.Currency = strings.TrimSpace(curr)
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	created, err := scanAccount(s.pool.QueryRow(ctx, `
        insert into accounts as a (id, user_id, group_id, name, type, currency,
            credit_closing_day, credit_due_day, version, created_at, updated_at)
        values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        returning `+accountColumns,
		a.ID, a.UserID, a.GroupID, a.Name, string(a.Type), a.Currency,
		a.CreditClosingDay, a.CreditDueDay, a.Version, a.CreatedAt, a.UpdatedAt))
	if err != nil {
		return ledger.Account{}, mapErr("insert account", err)
	}
	return created, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `select `+accountColumns+` from accounts a where a.id = $1`, accountID))
	if err != nil {
		return ledger.Account{}, mapErr("get account", err)
	}
	return a, nil
}

func (s *Store) ListPersonalAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `where a.user_id = $1 and a.group_id is null`, userID)
}

func (s *Store) ListGroupAccounts(ctx context.Context, groupID uuid.UUID) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `where a.group_id = $1`, groupID)
}

func (s *Store) ListCreditAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `where a.type = 'CREDIT'`)
}

func (s *Store) listAccounts(ctx context.Context, where string, args ...any) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `select `+accountColumns+` from accounts a `+where+
		` order by a.created_at, lower(a.name)`, args...)
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapErr("scan account", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	updated, err := scanAccount(s.pool.QueryRow(ctx, `
        update accounts a
        set name = $3, credit_closing_day = $4, credit_due_day = $5, updated_at = $6, version = a.version + 1
        where a.id = $1 and a.version = $2
        returning `+accountColumns,
		a.ID, a.Version, a.Name, a.CreditClosingDay, a.CreditDueDay, a.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := s.GetAccount(ctx, a.ID); gerr != nil {
			return ledger.Account{}, gerr
		}
		return ledger.Account{}, errs.ErrVersionMismatch
	}
	if err != nil {
		return ledger.Account{}, mapErr("update account", err)
	}
	return updated, nil
}

// --- Balances ---

func minorUnits(a money.Amount) (int64, error) {
	n, ok := a.MinorUnits()
	if !ok {
		return 0, fmt.Errorf("amount %s out of range: %w", a, errs.ErrInvalid)
	}
	return n, nil
}

func (s *Store) AppendBalance(ctx context.Context, b ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error) {
	n, err := minorUnits(b.Amount)
	if err != nil {
		return ledger.BalanceSnapshot{}, err
	}
	_, err = s.pool.Exec(ctx, `
        insert into account_balances (id, account_id, amount_minor, currency, effective_at, created_at)
        values ($1, $2, $3, $4, $5, $6)
    `, b.ID, b.AccountID, n, b.Amount.Curr().Code(), b.EffectiveAt, b.CreatedAt)
	if err != nil {
		return ledger.BalanceSnapshot{}, mapErr("insert balance", err)
	}
	return b, nil
}

func (s *Store) ListBalances(ctx context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
        select id, account_id, amount_minor, currency, effective_at, created_at
        from account_balances where account_id = $1
        order by effective_at desc, created_at desc
    `, accountID)
	if err != nil {
		return nil, mapErr("list balances", err)
	}
	defer rows.Close()
	out := make([]ledger.BalanceSnapshot, 0)
	for rows.Next() {
		var b ledger.BalanceSnapshot
		var n int64
		var curr string
		if err := rows.Scan(&b.ID, &b.AccountID, &n, &curr, &b.EffectiveAt, &b.CreatedAt); err != nil {
			return nil, mapErr("scan balance", err)
		}
		if b.Amount, err = money.NewAmountFromMinorUnits(strings.TrimSpace(curr), n); err != nil {
			return nil, fmt.Errorf("balance %s: %w", b.ID, err)
		}
		b.EffectiveAt, b.CreatedAt = b.EffectiveAt.UTC(), b.CreatedAt.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Transactions ---

const transactionColumns = `t.id, t.account_id, t.to_account_id, t.user_id, t.group_id, t.title, t.description,
    t.amount_minor, t.currency, t.date, t.type, t.created_at, t.updated_at`

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	var n int64
	var curr, typ string
	if err := row.Scan(&t.ID, &t.AccountID, &t.ToAccountID, &t.UserID, &t.GroupID, &t.Title, &t.Description,
		&n, &curr, &t.Date, &typ, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return ledger.Transaction{}, err
	}
	amt, err := money.NewAmountFromMinorUnits(strings.TrimSpace(curr), n)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Amount = amt
	t.Type = ledger.TransactionType(typ)
	t.Date, t.CreatedAt, t.UpdatedAt = t.Date.UTC(), t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	n, err := minorUnits(t.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	_, err = s.pool.Exec(ctx, `
        insert into transactions (id, account_id, to_account_id, user_id, group_id, title, description,
            amount_minor, currency, date, type, created_at, updated_at)
        values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, t.ID, t.AccountID, t.ToAccountID, t.UserID, t.GroupID, t.Title, t.Description,
		n, t.Amount.Curr().Code(), t.Date, string(t.Type), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return ledger.Transaction{}, mapErr("insert transaction", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        select `+transactionColumns+` from transactions t
        where t.account_id = $1 or t.to_account_id = $1
        order by t.date desc, t.created_at desc
    `, accountID)
	if err != nil {
		return nil, mapErr("list transactions", err)
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, mapErr("scan transaction", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error) {
	return countRefs(ctx, s.pool, accountID)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countRefs(ctx context.Context, q queryRower, accountID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
        select count(*) from transactions where account_id = $1 or to_account_id = $1
    `, accountID).Scan(&n)
	if err != nil {
		return 0, mapErr("count transactions", err)
	}
	return n, nil
}

// --- Account lifecycle ---

// lockAccount takes a row lock so concurrent transaction inserts against the account wait for us.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `select id from accounts where id = $1 for update`, accountID).Scan(&id)
	return mapErr("lock account", err)
}

func deleteAccountRow(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `delete from account_balances where account_id = $1`, accountID); err != nil {
		return mapErr("delete balances", err)
	}
	if _, err := tx.Exec(ctx, `delete from accounts where id = $1`, accountID); err != nil {
		if errors.Is(mapErr("", err), errs.ErrNotFound) {
			// a transaction referencing the account committed after our count
			return errs.ErrHasTransactions
		}
		return mapErr("delete account", err)
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		n, err := countRefs(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrHasTransactions
		}
		return deleteAccountRow(ctx, tx, accountID)
	})
}

func (s *Store) ForceDeleteAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var n int
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, `delete from transactions where account_id = $1 or to_account_id = $1`, accountID)
		if err != nil {
			return mapErr("delete transactions", err)
		}
		n = int(ct.RowsAffected())
		return deleteAccountRow(ctx, tx, accountID)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) MoveTransactionsAndDeleteAccount(ctx context.Context, src, dst uuid.UUID) (ledger.MoveResult, error) {
	var res ledger.MoveResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockAccount(ctx, tx, src); err != nil {
			return err
		}
		if err := lockAccount(ctx, tx, dst); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, `
            delete from transactions
            where (account_id = $1 and to_account_id = $2) or (account_id = $2 and to_account_id = $1)
        `, src, dst)
		if err != nil {
			return mapErr("drop transfers", err)
		}
		res.DroppedTransfers = int(ct.RowsAffected())
		ct, err = tx.Exec(ctx, `
            update transactions
            set account_id = case when account_id = $1 then $2 else account_id end,
                to_account_id = case when to_account_id = $1 then $2 else to_account_id end,
                group_id = case when account_id = $1 then (select group_id from accounts where id = $2) else group_id end
            where account_id = $1 or to_account_id = $1
        `, src, dst)
		if err != nil {
			return mapErr("move transactions", err)
		}
		res.Moved = int(ct.RowsAffected())
		return deleteAccountRow(ctx, tx, src)
	})
	if err != nil {
		return ledger.MoveResult{}, err
	}
	return res, nil
}
