package catalog_test

import (
	"context"
	"errors"
	. "github.com/nrajesh/budget-it-sub000/internal/service/catalog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/storage/memory"
)

func newService(t *testing.T) (Service, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.New()
	ledgerID := uuid.New()
	if _, err := store.CreateLedger(context.Background(), ledger.Ledger{ID: ledgerID, Name: "Home", Currency: "USD"}); err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return New(store, store), store, ledgerID
}

func usd(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("USD", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func seedTx(t *testing.T, store *memory.Store, ledgerID uuid.UUID, account, vendor, category, sub string) ledger.Transaction {
	t.Helper()
	tx, err := store.CreateTransaction(context.Background(), ledger.Transaction{
		ID: uuid.New(), LedgerID: ledgerID, Date: time.Now().UTC(),
		Amount: usd(t, -100), Currency: "USD",
		Account: account, Vendor: vendor, Category: category, SubCategory: sub,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestEnsurePayeeExistsIdempotent(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	first, err := svc.EnsurePayeeExists(ctx, ledgerID, "Tesco", false, nil)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for i := 0; i < 5; i++ {
		id, err := svc.EnsurePayeeExists(ctx, ledgerID, "  Tesco  ", false, nil)
		if err != nil {
			t.Fatalf("ensure #%d: %v", i, err)
		}
		if id != first {
			t.Fatalf("ensure #%d returned %s, want %s", i, id, first)
		}
	}
	vendors, _ := store.ListVendors(ctx, ledgerID)
	if len(vendors) != 1 {
		t.Errorf("vendors = %d, want exactly one row", len(vendors))
	}
}

func TestEnsurePayeePromotesButNeverDemotes(t *testing.T) {
	svc, _, ledgerID := newService(t)
	ctx := context.Background()

	id, err := svc.EnsurePayeeExists(ctx, ledgerID, "Monzo", false, nil)
	if err != nil {
		t.Fatalf("ensure payee: %v", err)
	}
	isAcct, _ := svc.CheckIfPayeeIsAccount(ctx, ledgerID, "Monzo")
	if isAcct {
		t.Fatal("fresh payee must not be an account")
	}

	promoted, err := svc.EnsurePayeeExists(ctx, ledgerID, "Monzo", true, &AccountOptions{Currency: "gbp", Type: ledger.AccountTypeChecking})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted != id {
		t.Errorf("promotion changed id: %s != %s", promoted, id)
	}
	isAcct, _ = svc.CheckIfPayeeIsAccount(ctx, ledgerID, "Monzo")
	if !isAcct {
		t.Fatal("payee not promoted to account")
	}
	currency, err := svc.GetAccountCurrency(ctx, ledgerID, "Monzo")
	if err != nil {
		t.Fatalf("currency: %v", err)
	}
	if currency != "GBP" {
		t.Errorf("currency = %q, want GBP", currency)
	}

	// asking for the plain payee again must not undo the promotion
	if _, err := svc.EnsurePayeeExists(ctx, ledgerID, "Monzo", false, nil); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}
	isAcct, _ = svc.CheckIfPayeeIsAccount(ctx, ledgerID, "Monzo")
	if !isAcct {
		t.Error("account demoted by a plain ensure call")
	}
}

func TestRenamePayeeCompleteness(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	id, err := svc.EnsurePayeeExists(ctx, ledgerID, "Tesco", false, nil)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	seedTx(t, store, ledgerID, "Checking", "Tesco", "Groceries", "")
	seedTx(t, store, ledgerID, "Tesco", "Refund", "Groceries", "")

	if _, err := svc.RenamePayee(ctx, id, "Tesco Express"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	txns, _ := store.ListTransactions(ctx, ledgerID)
	for _, tx := range txns {
		if tx.Vendor == "Tesco" || tx.Account == "Tesco" {
			t.Errorf("transaction %s still references the old name", tx.ID)
		}
	}
}

func TestMergePayeesCompletenessAndCleanup(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	if _, err := svc.EnsurePayeeExists(ctx, ledgerID, "Tesco", false, nil); err != nil {
		t.Fatalf("ensure target: %v", err)
	}
	aID, _ := svc.EnsurePayeeExists(ctx, ledgerID, "Tesco Metro", true, &AccountOptions{Currency: "USD"})
	bID, _ := svc.EnsurePayeeExists(ctx, ledgerID, "Tesco Extra", false, nil)
	seedTx(t, store, ledgerID, "Checking", "Tesco Metro", "Groceries", "")
	seedTx(t, store, ledgerID, "Checking", "Tesco Extra", "Groceries", "")

	if _, err := svc.MergePayees(ctx, ledgerID, "Tesco", []string{"Tesco Metro", "Tesco Extra"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	txns, _ := store.ListTransactions(ctx, ledgerID)
	for _, tx := range txns {
		if tx.Vendor != "Tesco" {
			t.Errorf("transaction %s vendor = %q, want Tesco", tx.ID, tx.Vendor)
		}
	}
	if _, err := store.GetVendor(ctx, aID); !errors.Is(err, errs.ErrNotFound) {
		t.Error("source vendor a still exists")
	}
	if _, err := store.GetVendor(ctx, bID); !errors.Is(err, errs.ErrNotFound) {
		t.Error("source vendor b still exists")
	}
	if _, found, _ := store.VendorByName(ctx, ledgerID, "Tesco Metro"); found {
		t.Error("source name still resolvable")
	}
}

func TestMergePayeesMissingSource(t *testing.T) {
	svc, _, ledgerID := newService(t)
	_, err := svc.MergePayees(context.Background(), ledgerID, "Tesco", []string{"Nobody"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeletePayeeKeepsHistory(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	id, _ := svc.EnsurePayeeExists(ctx, ledgerID, "Tesco", false, nil)
	tx := seedTx(t, store, ledgerID, "Checking", "Tesco", "Groceries", "")

	if err := svc.DeletePayee(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := store.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("transaction deleted with payee: %v", err)
	}
	if got.Vendor != "Tesco" {
		t.Errorf("vendor = %q, want historical text kept", got.Vendor)
	}
}

func TestRenameSubCategoryRewritesMirrors(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	catID, err := svc.EnsureCategoryExists(ctx, ledgerID, "Groceries")
	if err != nil {
		t.Fatalf("ensure category: %v", err)
	}
	if _, err := svc.EnsureSubCategoryExists(ctx, ledgerID, catID, "Snacks"); err != nil {
		t.Fatalf("ensure sub: %v", err)
	}
	hit := seedTx(t, store, ledgerID, "Checking", "Tesco", "Groceries", "Snacks")
	miss := seedTx(t, store, ledgerID, "Checking", "Tesco", "Leisure", "Snacks")

	if _, err := svc.RenameSubCategory(ctx, ledgerID, catID, "Snacks", "Treats"); err != nil {
		t.Fatalf("rename sub: %v", err)
	}
	got, _ := store.GetTransaction(ctx, hit.ID)
	if got.SubCategory != "Treats" {
		t.Errorf("matching row sub = %q, want Treats", got.SubCategory)
	}
	got, _ = store.GetTransaction(ctx, miss.ID)
	if got.SubCategory != "Snacks" {
		t.Errorf("other category's row rewritten: sub = %q", got.SubCategory)
	}
}

func TestMergeCategoriesMovesSubCategories(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	targetID, _ := svc.EnsureCategoryExists(ctx, ledgerID, "Food")
	sourceID, _ := svc.EnsureCategoryExists(ctx, ledgerID, "Groceries")
	if _, err := svc.EnsureSubCategoryExists(ctx, ledgerID, sourceID, "Snacks"); err != nil {
		t.Fatalf("ensure sub: %v", err)
	}
	seedTx(t, store, ledgerID, "Checking", "Tesco", "Groceries", "Snacks")

	if _, err := svc.MergeCategories(ctx, ledgerID, "Food", []string{"Groceries"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	txns, _ := store.ListTransactions(ctx, ledgerID)
	for _, tx := range txns {
		if tx.Category != "Food" {
			t.Errorf("transaction %s category = %q, want Food", tx.ID, tx.Category)
		}
	}
	if _, err := store.GetCategory(ctx, sourceID); !errors.Is(err, errs.ErrNotFound) {
		t.Error("source category still exists")
	}
	subs, _ := svc.ListSubCategories(ctx, targetID)
	if len(subs) != 1 || subs[0].Name != "Snacks" {
		t.Errorf("sub-categories under target = %+v, want moved Snacks", subs)
	}
}

func TestDeleteCategoryCascadesOnlySubCategories(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	catID, _ := svc.EnsureCategoryExists(ctx, ledgerID, "Groceries")
	subID, err := svc.EnsureSubCategoryExists(ctx, ledgerID, catID, "Snacks")
	if err != nil {
		t.Fatalf("ensure sub: %v", err)
	}
	tx := seedTx(t, store, ledgerID, "Checking", "Tesco", "Groceries", "Snacks")

	if err := svc.DeleteCategory(ctx, catID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetSubCategory(ctx, subID); !errors.Is(err, errs.ErrNotFound) {
		t.Error("sub-category survived category delete")
	}
	if _, err := store.GetTransaction(ctx, tx.ID); err != nil {
		t.Error("transaction deleted with category")
	}
}

func TestUpdateAccountRejectsCurrencyChange(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	if _, err := svc.EnsurePayeeExists(ctx, ledgerID, "Checking", true, &AccountOptions{Currency: "USD"}); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	v, _, _ := store.VendorByName(ctx, ledgerID, "Checking")
	a, _ := store.GetAccount(ctx, v.AccountID)

	a.Currency = "EUR"
	if _, err := svc.UpdateAccount(ctx, a); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("err = %v, want ErrImmutable", err)
	}

	a.Currency = "USD"
	a.Remarks = "joint account"
	if _, err := svc.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestSetAccountCurrencyPropagates(t *testing.T) {
	svc, store, ledgerID := newService(t)
	ctx := context.Background()

	id, err := svc.EnsurePayeeExists(ctx, ledgerID, "Checking", true, &AccountOptions{Currency: "USD"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	tx := seedTx(t, store, ledgerID, "Checking", "Tesco", "Groceries", "")

	n, err := svc.SetAccountCurrency(ctx, id, "eur")
	if err != nil {
		t.Fatalf("set currency: %v", err)
	}
	if n != 1 {
		t.Errorf("rewritten = %d, want 1", n)
	}
	got, _ := store.GetTransaction(ctx, tx.ID)
	if got.Currency != "EUR" {
		t.Errorf("transaction currency = %q, want EUR", got.Currency)
	}
	currency, _ := svc.GetAccountCurrency(ctx, ledgerID, "Checking")
	if currency != "EUR" {
		t.Errorf("account currency = %q, want EUR", currency)
	}
}
