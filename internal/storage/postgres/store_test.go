package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tinoosan/groupledger/internal/storage/storetest"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

// openClean opens the store and empties every table so each subtest starts fresh.
func openClean(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	_, err = s.pool.Exec(ctx, `truncate table transactions, account_balances, accounts, group_members, group_roles, user_groups, users cascade`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestStoreContract(t *testing.T) {
	dsn := getTestDSN(t)
	storetest.Run(t, func(t *testing.T) storetest.Store { return openClean(t, dsn) })
}

func TestOpenIsIdempotent(t *testing.T) {
	dsn := getTestDSN(t)
	openClean(t, dsn)
	// a second Open re-runs goose against an already migrated schema
	openClean(t, dsn)
}
