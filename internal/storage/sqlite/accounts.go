package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
)

// Accounts

const accountColumns = `a.id, a.user_id, a.group_id, a.name, a.type, a.currency,
    a.credit_closing_day, a.credit_due_day, a.version, a.created_at, a.updated_at`

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	var gid uuid.NullUUID
	var closing, due sql.NullInt64
	var typ string
	if err := row.Scan(&a.ID, &a.UserID, &gid, &a.Name, &typ, &a.Currency,
		&closing, &due, &a.Version, at(&a.CreatedAt), at(&a.UpdatedAt)); err != nil {
		return ledger.Account{}, err
	}
	a.GroupID = idPtr(gid)
	a.Type = ledger.AccountType(typ)
	a.CreditClosingDay, a.CreditDueDay = intPtr(closing), intPtr(due)
	return a, nil
}

func getAccount(ctx context.Context, q querier, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = ?`, accountID))
	if err != nil {
		return ledger.Account{}, mapErr("get account", err)
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO accounts (id, user_id, group_id, name, type, currency,
            credit_closing_day, credit_due_day, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, a.ID, a.UserID, nullID(a.GroupID), a.Name, string(a.Type), a.Currency,
		nullInt(a.CreditClosingDay), nullInt(a.CreditDueDay), a.Version, ts(a.CreatedAt), ts(a.UpdatedAt))
	if err != nil {
		return ledger.Account{}, mapErr("insert account", err)
	}
	return getAccount(ctx, s.db, a.ID)
}

func (s *Store) GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, s.db, accountID)
}

func (s *Store) ListPersonalAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `WHERE a.user_id = ? AND a.group_id IS NULL`, userID)
}

func (s *Store) ListGroupAccounts(ctx context.Context, groupID uuid.UUID) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `WHERE a.group_id = ?`, groupID)
}

func (s *Store) ListCreditAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.listAccounts(ctx, `WHERE a.type = 'CREDIT'`)
}

func (s *Store) listAccounts(ctx context.Context, where string, args ...any) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts a `+where+
		` ORDER BY a.created_at, lower(a.name)`, args...)
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
	var out ledger.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getAccount(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if current.Version != a.Version {
			return errs.ErrVersionMismatch
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE accounts SET name = ?, credit_closing_day = ?, credit_due_day = ?, updated_at = ?, version = version + 1
            WHERE id = ?
        `, a.Name, nullInt(a.CreditClosingDay), nullInt(a.CreditDueDay), ts(a.UpdatedAt), a.ID); err != nil {
			return mapErr("update account", err)
		}
		out, err = getAccount(ctx, tx, a.ID)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	return out, nil
}

// Balances

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
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO account_balances (id, account_id, amount_minor, currency, effective_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, b.ID, b.AccountID, n, b.Amount.Curr().Code(), ts(b.EffectiveAt), ts(b.CreatedAt))
	if err != nil {
		return ledger.BalanceSnapshot{}, mapErr("insert balance", err)
	}
	return b, nil
}

func (s *Store) ListBalances(ctx context.Context, accountID uuid.UUID) ([]ledger.BalanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, account_id, amount_minor, currency, effective_at, created_at
        FROM account_balances WHERE account_id = ?
        ORDER BY effective_at DESC, created_at DESC
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
		if err := rows.Scan(&b.ID, &b.AccountID, &n, &curr, at(&b.EffectiveAt), at(&b.CreatedAt)); err != nil {
			return nil, mapErr("scan balance", err)
		}
		if b.Amount, err = money.NewAmountFromMinorUnits(curr, n); err != nil {
			return nil, fmt.Errorf("balance %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Transactions

const transactionColumns = `t.id, t.account_id, t.to_account_id, t.user_id, t.group_id, t.title, t.description,
    t.amount_minor, t.currency, t.date, t.type, t.created_at, t.updated_at`

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	var to, gid uuid.NullUUID
	var n int64
	var curr, typ string
	if err := row.Scan(&t.ID, &t.AccountID, &to, &t.UserID, &gid, &t.Title, &t.Description,
		&n, &curr, at(&t.Date), &typ, at(&t.CreatedAt), at(&t.UpdatedAt)); err != nil {
		return ledger.Transaction{}, err
	}
	amt, err := money.NewAmountFromMinorUnits(curr, n)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Amount = amt
	t.ToAccountID, t.GroupID = idPtr(to), idPtr(gid)
	t.Type = ledger.TransactionType(typ)
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	n, err := minorUnits(t.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO transactions (id, account_id, to_account_id, user_id, group_id, title, description,
            amount_minor, currency, date, type, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, t.ID, t.AccountID, nullID(t.ToAccountID), t.UserID, nullID(t.GroupID), t.Title, t.Description,
		n, t.Amount.Curr().Code(), ts(t.Date), string(t.Type), ts(t.CreatedAt), ts(t.UpdatedAt))
	if err != nil {
		return ledger.Transaction{}, mapErr("insert transaction", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+transactionColumns+` FROM transactions t
        WHERE t.account_id = ?1 OR t.to_account_id = ?1
        ORDER BY t.date DESC, t.created_at DESC
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

func countRefs(ctx context.Context, q querier, accountID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
        SELECT count(*) FROM transactions WHERE account_id = ?1 OR to_account_id = ?1
    `, accountID).Scan(&n)
	if err != nil {
		return 0, mapErr("count transactions", err)
	}
	return n, nil
}

func (s *Store) CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error) {
	return countRefs(ctx, s.db, accountID)
}

// Account lifecycle

func deleteAccountRow(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM account_balances WHERE account_id = ?`, accountID); err != nil {
		return mapErr("delete balances", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID); err != nil {
		if errors.Is(mapErr("", err), errs.ErrNotFound) {
			return errs.ErrHasTransactions
		}
		return mapErr("delete account", err)
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, accountID); err != nil {
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
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, accountID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?1 OR to_account_id = ?1`, accountID)
		if err != nil {
			return mapErr("delete transactions", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return deleteAccountRow(ctx, tx, accountID)
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) MoveTransactionsAndDeleteAccount(ctx context.Context, src, dst uuid.UUID) (ledger.MoveResult, error) {
	var out ledger.MoveResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAccount(ctx, tx, src); err != nil {
			return err
		}
		target, err := getAccount(ctx, tx, dst)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
            DELETE FROM transactions
            WHERE (account_id = ?1 AND to_account_id = ?2) OR (account_id = ?2 AND to_account_id = ?1)
        `, src, dst)
		if err != nil {
			return mapErr("drop transfers", err)
		}
		dropped, err := res.RowsAffected()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `
            UPDATE transactions
            SET account_id = CASE WHEN account_id = ?1 THEN ?2 ELSE account_id END,
                to_account_id = CASE WHEN to_account_id = ?1 THEN ?2 ELSE to_account_id END,
                group_id = CASE WHEN account_id = ?1 THEN ?3 ELSE group_id END
            WHERE account_id = ?1 OR to_account_id = ?1
        `, src, dst, nullID(target.GroupID))
		if err != nil {
			return mapErr("move transactions", err)
		}
		moved, err := res.RowsAffected()
		if err != nil {
			return err
		}
		out = ledger.MoveResult{Moved: int(moved), DroppedTransfers: int(dropped)}
		return deleteAccountRow(ctx, tx, src)
	})
	if err != nil {
		return ledger.MoveResult{}, err
	}
	return out, nil
}
