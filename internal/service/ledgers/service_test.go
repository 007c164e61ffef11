package ledgers_test

import (
	"context"
	"encoding/json"
	"errors"
	. "github.com/nrajesh/budget-it-sub000/internal/service/ledgers"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/storage/memory"
)

func newService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, store), store
}

func amount(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("USD", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func seedLedger(t *testing.T, svc Service, name string) ledger.Ledger {
	t.Helper()
	l, err := svc.CreateLedger(context.Background(), ledger.Ledger{Name: name, Currency: "usd"})
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return l
}

func TestCreateLedgerDefaults(t *testing.T) {
	svc, _ := newService(t)
	l := seedLedger(t, svc, "  Household Ledger  ")
	if l.Name != "Household Ledger" {
		t.Errorf("name = %q, want trimmed", l.Name)
	}
	if l.ShortName != "household_ledger" {
		t.Errorf("short name = %q, want household_ledger", l.ShortName)
	}
	if l.Currency != "USD" {
		t.Errorf("currency = %q, want USD", l.Currency)
	}
	if l.ID == uuid.Nil || l.CreatedAt.IsZero() {
		t.Error("id and created_at must be populated")
	}
}

func TestCreateLedgerRejectsBadShortName(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateLedger(context.Background(), ledger.Ledger{Name: "Home", ShortName: "Not A Slug!"})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestDeleteLedgerCascades(t *testing.T) {
	svc, store := newService(t)
	l := seedLedger(t, svc, "Home")
	other := seedLedger(t, svc, "Side")

	ctx := context.Background()
	if _, err := store.CreateCategory(ctx, ledger.Category{ID: uuid.New(), LedgerID: l.ID, Name: "Groceries"}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := store.CreateTransaction(ctx, ledger.Transaction{
		ID: uuid.New(), LedgerID: l.ID, Date: time.Now().UTC(),
		Amount: amount(t, -100), Currency: "USD",
		Account: "Checking", Vendor: "Tesco", Category: "Groceries",
	}); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	keep, err := store.CreateTransaction(ctx, ledger.Transaction{
		ID: uuid.New(), LedgerID: other.ID, Date: time.Now().UTC(),
		Amount: amount(t, -100), Currency: "USD",
		Account: "Checking", Vendor: "Tesco", Category: "Groceries",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	removed, err := svc.DeleteLedger(ctx, l.ID)
	if err != nil {
		t.Fatalf("delete ledger: %v", err)
	}
	if removed < 2 {
		t.Errorf("removed = %d, want at least the category and transaction", removed)
	}
	if _, err := svc.GetLedger(ctx, l.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("deleted ledger still readable: %v", err)
	}
	if _, err := store.GetTransaction(ctx, keep.ID); err != nil {
		t.Errorf("other ledger's transaction lost: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, store := newService(t)
	l := seedLedger(t, svc, "Home")

	ctx := context.Background()
	tx, err := store.CreateTransaction(ctx, ledger.Transaction{
		ID: uuid.New(), LedgerID: l.ID,
		Date:   time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		Amount: amount(t, -1250), Currency: "USD",
		Account: "Checking", Vendor: "Tesco", Category: "Groceries",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	data, err := svc.ExportData(ctx, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(data), `"ledger_id"`) {
		t.Error("export must use the ledger_id field name")
	}
	if strings.Contains(string(data), `"user_id"`) {
		t.Error("export must not emit the legacy user_id field")
	}
	if strings.Contains(string(data), `"transfer_id"`) || strings.Contains(string(data), `"recurrence_id"`) {
		t.Error("unlinked transaction must not emit transfer_id or recurrence_id")
	}
	if strings.Contains(string(data), uuid.Nil.String()) {
		t.Error("export must not emit zero UUIDs")
	}

	store.Reset()
	stats, err := svc.ImportData(ctx, data, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Transactions != 1 || stats.Ledgers != 1 {
		t.Errorf("stats = %+v, want 1 ledger and 1 transaction", stats)
	}
	got, err := store.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("transaction missing after import: %v", err)
	}
	if got.LedgerID != l.ID || got.Category != "Groceries" {
		t.Errorf("reimported transaction = %+v", got)
	}
	units, _ := got.Amount.MinorUnits()
	if units != -1250 {
		t.Errorf("amount = %d, want -1250", units)
	}
}

func TestImportAcceptsLegacyUserID(t *testing.T) {
	svc, store := newService(t)
	ledgerID := uuid.New()
	legacy := map[string]any{
		"version":     1,
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"vendors": []map[string]any{
			{"id": uuid.New().String(), "user_id": ledgerID.String(), "name": "Tesco"},
		},
		"accounts":               []any{},
		"categories":             []any{},
		"sub_categories":         []any{},
		"transactions":           []any{},
		"scheduled_transactions": []any{},
		"budgets":                []any{},
	}
	data, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := svc.ImportData(context.Background(), data, nil); err != nil {
		t.Fatalf("import: %v", err)
	}
	v, found, err := store.VendorByName(context.Background(), ledgerID, "Tesco")
	if err != nil || !found {
		t.Fatalf("vendor not bound to user_id ledger: found=%v err=%v", found, err)
	}
	if v.Name != "Tesco" {
		t.Errorf("vendor = %+v", v)
	}
}

func TestImportRebindsToTargetLedger(t *testing.T) {
	svc, store := newService(t)
	src := seedLedger(t, svc, "Source")
	ctx := context.Background()
	if _, err := store.CreateCategory(ctx, ledger.Category{ID: uuid.New(), LedgerID: src.ID, Name: "Groceries"}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	data, err := svc.ExportData(ctx, &src.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := seedLedger(t, svc, "Destination")
	if _, err := svc.ImportData(ctx, data, &dst.ID); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, found, err := store.CategoryByName(ctx, dst.ID, "Groceries"); err != nil || !found {
		t.Fatalf("category not rebound to target ledger: found=%v err=%v", found, err)
	}
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.ImportData(context.Background(), []byte("{not json"), nil); !errors.Is(err, errs.ErrUnprocessable) {
		t.Fatalf("err = %v, want ErrUnprocessable", err)
	}
}
