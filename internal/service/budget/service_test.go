package budget_test

import (
	"context"
	. "github.com/nrajesh/budget-it-sub000/internal/service/budget"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/storage/memory"
)

func amount(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("USD", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store    *memory.Store
	svc      Service
	ledgerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	l, err := store.CreateLedger(context.Background(), ledger.Ledger{ID: uuid.New(), Name: "Home", Currency: "USD"})
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return &fixture{store: store, svc: New(store, store), ledgerID: l.ID}
}

func (f *fixture) addAccount(t *testing.T, name string, typ ledger.AccountType) {
	t.Helper()
	acctID := uuid.New()
	_, err := f.store.CreateVendor(context.Background(),
		ledger.Vendor{ID: uuid.New(), LedgerID: f.ledgerID, Name: name, IsAccount: true, AccountID: acctID},
		&ledger.Account{ID: acctID, LedgerID: f.ledgerID, Currency: "USD", Type: typ})
	if err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
}

func (f *fixture) addTx(t *testing.T, date time.Time, minor int64, account, vendor, category, sub string) {
	t.Helper()
	_, err := f.store.CreateTransaction(context.Background(), ledger.Transaction{
		ID:          uuid.New(),
		LedgerID:    f.ledgerID,
		Date:        date,
		Amount:      amount(t, minor),
		Currency:    "USD",
		Account:     account,
		Vendor:      vendor,
		Category:    category,
		SubCategory: sub,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func (f *fixture) addBudget(t *testing.T, b ledger.Budget) ledger.Budget {
	t.Helper()
	b.LedgerID = f.ledgerID
	if b.Currency == "" {
		b.Currency = "USD"
	}
	b.TargetAmount = amount(t, 100_000)
	out, err := f.svc.AddBudget(context.Background(), b)
	if err != nil {
		t.Fatalf("add budget: %v", err)
	}
	return out
}

func spentMinorOf(t *testing.T, budgets []ledger.Budget, id uuid.UUID) int64 {
	t.Helper()
	for _, b := range budgets {
		if b.ID == id {
			units, ok := b.SpentAmount.MinorUnits()
			if !ok {
				t.Fatalf("spent amount of %s not representable in minor units", id)
			}
			return units
		}
	}
	t.Fatalf("budget %s not in result", id)
	return 0
}

func TestSpendingSumsOutflowsOnly(t *testing.T) {
	f := newFixture(t)
	f.addTx(t, day(2026, 1, 5), -200, "Checking", "Tesco", "Groceries", "")
	f.addTx(t, day(2026, 1, 12), -300, "Checking", "Aldi", "Groceries", "")
	f.addTx(t, day(2026, 1, 20), 1500, "Checking", "Employer", "Groceries", "")
	f.addTx(t, day(2025, 12, 31), -999, "Checking", "Tesco", "Groceries", "")
	f.addTx(t, day(2026, 1, 8), -50, "Checking", "Cinema", "Leisure", "")

	b := f.addBudget(t, ledger.Budget{
		CategoryName: "Groceries",
		Scope:        ledger.ScopeCategory,
		StartDate:    day(2026, 1, 1),
	})

	got, err := f.svc.GetBudgetsWithSpending(context.Background(), f.ledgerID)
	if err != nil {
		t.Fatalf("GetBudgetsWithSpending: %v", err)
	}
	if spent := spentMinorOf(t, got, b.ID); spent != 500 {
		t.Errorf("spent = %d, want 500", spent)
	}
}

func TestSpendingEndDateInclusive(t *testing.T) {
	f := newFixture(t)
	f.addTx(t, day(2026, 1, 31), -100, "Checking", "Tesco", "Groceries", "")
	f.addTx(t, day(2026, 2, 1), -100, "Checking", "Tesco", "Groceries", "")

	end := day(2026, 1, 31)
	b := f.addBudget(t, ledger.Budget{
		CategoryName: "Groceries",
		Scope:        ledger.ScopeCategory,
		StartDate:    day(2026, 1, 1),
		EndDate:      &end,
	})

	got, err := f.svc.GetBudgetsWithSpending(context.Background(), f.ledgerID)
	if err != nil {
		t.Fatalf("GetBudgetsWithSpending: %v", err)
	}
	if spent := spentMinorOf(t, got, b.ID); spent != 100 {
		t.Errorf("spent = %d, want 100", spent)
	}
}

func TestSpendingCategoryWithSubCategory(t *testing.T) {
	f := newFixture(t)
	f.addTx(t, day(2026, 3, 2), -40, "Checking", "Tesco", "Groceries", "Snacks")
	f.addTx(t, day(2026, 3, 3), -60, "Checking", "Tesco", "Groceries", "Produce")

	b := f.addBudget(t, ledger.Budget{
		CategoryName:    "Groceries",
		SubCategoryName: "Snacks",
		Scope:           ledger.ScopeCategory,
		StartDate:       day(2026, 3, 1),
	})

	got, err := f.svc.GetBudgetsWithSpending(context.Background(), f.ledgerID)
	if err != nil {
		t.Fatalf("GetBudgetsWithSpending: %v", err)
	}
	if spent := spentMinorOf(t, got, b.ID); spent != 40 {
		t.Errorf("spent = %d, want 40", spent)
	}
}

func TestSpendingScopeNameCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.addTx(t, day(2026, 4, 1), -75, "Checking", "Tesco", "Groceries", "")
	f.addTx(t, day(2026, 4, 2), -25, "Savings", "Tesco", "Groceries", "")

	b := f.addBudget(t, ledger.Budget{
		Scope:     ledger.ScopeVendor,
		ScopeName: " tesco ",
		StartDate: day(2026, 4, 1),
	})
	acct := f.addBudget(t, ledger.Budget{
		Scope:     ledger.ScopeAccount,
		ScopeName: "checking",
		StartDate: day(2026, 4, 1),
	})

	got, err := f.svc.GetBudgetsWithSpending(context.Background(), f.ledgerID)
	if err != nil {
		t.Fatalf("GetBudgetsWithSpending: %v", err)
	}
	if spent := spentMinorOf(t, got, b.ID); spent != 100 {
		t.Errorf("vendor scope spent = %d, want 100", spent)
	}
	if spent := spentMinorOf(t, got, acct.ID); spent != 75 {
		t.Errorf("account scope spent = %d, want 75", spent)
	}
}

func TestSpendingAccountGroupFilter(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "Visa", ledger.AccountTypeCreditCard)
	f.addAccount(t, "Checking", ledger.AccountTypeChecking)
	f.addTx(t, day(2026, 5, 3), -120, "Visa", "Tesco", "Groceries", "")
	f.addTx(t, day(2026, 5, 4), -80, "Checking", "Tesco", "Groceries", "")
	f.addTx(t, day(2026, 5, 5), -30, "Cash Wallet", "Tesco", "Groceries", "")

	b := f.addBudget(t, ledger.Budget{
		CategoryName:       "Groceries",
		Scope:              ledger.ScopeCategory,
		StartDate:          day(2026, 5, 1),
		AccountScope:       ledger.AccountScopeGroup,
		AccountScopeValues: []ledger.AccountType{ledger.AccountTypeCreditCard},
	})

	got, err := f.svc.GetBudgetsWithSpending(context.Background(), f.ledgerID)
	if err != nil {
		t.Fatalf("GetBudgetsWithSpending: %v", err)
	}
	if spent := spentMinorOf(t, got, b.ID); spent != 120 {
		t.Errorf("spent = %d, want 120", spent)
	}
}

func TestSpendingDoesNotMutateStoredBudget(t *testing.T) {
	f := newFixture(t)
	f.addTx(t, day(2026, 6, 1), -500, "Checking", "Tesco", "Groceries", "")

	b := f.addBudget(t, ledger.Budget{
		CategoryName: "Groceries",
		Scope:        ledger.ScopeCategory,
		StartDate:    day(2026, 6, 1),
	})

	if _, err := f.svc.GetBudgetsWithSpending(context.Background(), f.ledgerID); err != nil {
		t.Fatalf("GetBudgetsWithSpending: %v", err)
	}
	stored, err := f.store.GetBudget(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if units, _ := stored.SpentAmount.MinorUnits(); units != 0 {
		t.Errorf("stored spent = %d, want 0", units)
	}
}

func TestUpdateBudgetRejectsLedgerMove(t *testing.T) {
	f := newFixture(t)
	b := f.addBudget(t, ledger.Budget{
		CategoryName: "Groceries",
		Scope:        ledger.ScopeCategory,
		StartDate:    day(2026, 1, 1),
	})
	b.LedgerID = uuid.New()
	if _, err := f.svc.UpdateBudget(context.Background(), b); err == nil {
		t.Fatal("expected error moving budget between ledgers")
	}
}
