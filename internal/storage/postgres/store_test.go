package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for init: %v", err)
	}
	defer s.Close()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for truncate: %v", err)
	}
	defer s.Close()
	_, _ = s.pool.Exec(ctx, `truncate table budgets, scheduled_transactions, transactions, sub_categories, categories, accounts, vendors, ledgers cascade`)
}

func pgAmount(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("USD", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func TestStore_VendorRenameCascade(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	ledgerID := uuid.New()
	now := time.Now().UTC()
	if _, err := s.CreateLedger(ctx, ledger.Ledger{ID: ledgerID, Name: "Home", Currency: "USD", CreatedAt: now, LastAccessed: now}); err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	v, err := s.CreateVendor(ctx, ledger.Vendor{ID: uuid.New(), LedgerID: ledgerID, Name: "Tesco"}, nil)
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.CreateTransaction(ctx, ledger.Transaction{
			ID: uuid.New(), LedgerID: ledgerID, Date: now.AddDate(0, 0, i),
			Amount: pgAmount(t, -100), Currency: "USD",
			Account: "Checking", Vendor: "Tesco", Category: "Groceries", CreatedAt: now,
		}); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	n, err := s.RenameVendor(ctx, v.ID, "Tesco Express")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if n != 3 {
		t.Errorf("rewritten = %d, want 3", n)
	}
	txns, err := s.ListTransactions(ctx, ledgerID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tx := range txns {
		if tx.Vendor != "Tesco Express" {
			t.Errorf("transaction %s vendor = %q", tx.ID, tx.Vendor)
		}
	}
	if _, found, _ := s.VendorByName(ctx, ledgerID, "Tesco"); found {
		t.Error("old name still resolvable")
	}
}

func TestStore_TransferLinkUnlink(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	ledgerID := uuid.New()
	now := time.Now().UTC()
	a, err := s.CreateTransaction(ctx, ledger.Transaction{
		ID: uuid.New(), LedgerID: ledgerID, Date: now,
		Amount: pgAmount(t, -500), Currency: "USD",
		Account: "Checking", Vendor: "Savings", Category: "Misc", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := s.CreateTransaction(ctx, ledger.Transaction{
		ID: uuid.New(), LedgerID: ledgerID, Date: now,
		Amount: pgAmount(t, 500), Currency: "USD",
		Account: "Savings", Vendor: "Checking", Category: "Misc", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	transferID := uuid.New()
	if err := s.LinkTransfer(ctx, a.ID, b.ID, transferID, "Transfer"); err != nil {
		t.Fatalf("link: %v", err)
	}
	members, err := s.TransactionsByTransfer(ctx, transferID)
	if err != nil {
		t.Fatalf("by transfer: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	for _, m := range members {
		if m.Category != "Transfer" {
			t.Errorf("member %s category = %q", m.ID, m.Category)
		}
	}

	n, err := s.UnlinkTransfer(ctx, transferID)
	if err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if n != 2 {
		t.Errorf("unlinked = %d, want 2", n)
	}
	if _, err := s.UnlinkTransfer(ctx, transferID); !errors.Is(err, errs.ErrNotTransfer) {
		t.Errorf("second unlink err = %v, want ErrNotTransfer", err)
	}
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	ledgerID := uuid.New()
	now := time.Now().UTC()
	if _, err := s.CreateLedger(ctx, ledger.Ledger{ID: ledgerID, Name: "Home", Currency: "USD", CreatedAt: now, LastAccessed: now}); err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	tx, err := s.CreateTransaction(ctx, ledger.Transaction{
		ID: uuid.New(), LedgerID: ledgerID, Date: now,
		Amount: pgAmount(t, -1250), Currency: "USD",
		Account: "Checking", Vendor: "Tesco", Category: "Groceries", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	snap, err := s.ExportSnapshot(ctx, &ledgerID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snap.Ledgers) != 1 || len(snap.Transactions) != 1 {
		t.Fatalf("snapshot = %d ledgers %d transactions", len(snap.Ledgers), len(snap.Transactions))
	}

	truncateAll(t, dsn)
	if err := s.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get after import: %v", err)
	}
	units, _ := got.Amount.MinorUnits()
	if units != -1250 {
		t.Errorf("amount = %d, want -1250", units)
	}
}
