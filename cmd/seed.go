package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/groupledger/internal/auth"
	"github.com/tinoosan/groupledger/internal/events"
	httpapi "github.com/tinoosan/groupledger/internal/httpapi/v1"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/service/account"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/service/group"
	"github.com/tinoosan/groupledger/internal/session"
)

// seedDev creates a demo user owning a group, a personal wallet and a shared credit card.
func seedDev(ctx context.Context, store httpapi.Store, verifier *auth.Verifier, pub events.Publisher, currency string, logger *slog.Logger) error {
	user, err := store.UpsertUser(ctx, ledger.User{ID: uuid.New(), Email: "dev@example.com", FirstName: "Dev", LastName: "User"})
	if err != nil {
		return fmt.Errorf("user: %w", err)
	}
	g, err := group.New(store, store, pub, logger).Create(ctx, user.ID, "Casa", "Demo group")
	if err != nil {
		return fmt.Errorf("group: %w", err)
	}
	accounts := account.New(store, store, currency)
	wallet, err := accounts.Create(ctx, ledger.Account{UserID: user.ID, Name: "Carteira", Type: ledger.AccountTypeCash})
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	closing, due := 10, 20
	card, err := accounts.Create(ctx, ledger.Account{
		UserID: user.ID, GroupID: &g.ID, Name: "Cartão da casa", Type: ledger.AccountTypeCredit,
		CreditClosingDay: &closing, CreditDueDay: &due,
	})
	if err != nil {
		return fmt.Errorf("card: %w", err)
	}
	if _, err := balance.New(store, store, currency).AppendSnapshot(ctx, wallet.ID, decimal.MustNew(25000, 2), time.Now()); err != nil {
		return fmt.Errorf("opening balance: %w", err)
	}

	logger.Info("DEV seed", "user_id", user.ID, "group_id", g.ID, "wallet_account_id", wallet.ID, "card_account_id", card.ID)
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID)
	fmt.Printf("group_id: %s\n", g.ID)
	fmt.Printf("wallet_account_id: %s\n", wallet.ID)
	fmt.Printf("card_account_id: %s\n", card.ID)
	if verifier != nil {
		tok, err := verifier.Issue(session.Identity{UserID: user.ID, Email: user.Email, FirstName: user.FirstName, LastName: user.LastName}, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		fmt.Printf("bearer_token: %s\n", tok)
	} else {
		fmt.Printf("header: X-User-ID: %s\n", user.ID)
	}
	fmt.Println("==================================================")
	return nil
}
