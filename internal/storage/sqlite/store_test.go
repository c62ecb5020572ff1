package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinoosan/groupledger/internal/storage/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return openTemp(t) })
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES ('00000000-0000-0000-0000-000000000001', 'x@example.com')`); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("users after reopen = %d, %v", n, err)
	}
}

func TestTimestampsSortAsText(t *testing.T) {
	a := ts(mustParse(t, "2024-01-02T03:04:05Z"))
	b := ts(mustParse(t, "2024-01-02T03:04:05.5Z"))
	if !(a < b) || len(a) != len(b) {
		t.Errorf("%q should sort before %q with equal width", a, b)
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
