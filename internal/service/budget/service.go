// Package budget implements budget CRUD and the spend aggregator. Spent
// amounts are always recomputed from transactions at read time; stored
// rows are never trusted and never mutated by a read.
package budget

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

// Repo defines read operations needed by the service. Vendor and account
// lookups resolve the GROUP account-type scope.
type Repo interface {
	GetBudget(ctx context.Context, id uuid.UUID) (ledger.Budget, error)
	ListBudgets(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Budget, error)
	ListTransactions(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Transaction, error)
	VendorByName(ctx context.Context, ledgerID uuid.UUID, name string) (ledger.Vendor, bool, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	DeleteBudget(ctx context.Context, id uuid.UUID) error
}

// Service exposes budget CRUD and scoped spend aggregation.
type Service interface {
	AddBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	DeleteBudget(ctx context.Context, id uuid.UUID) error
	GetBudget(ctx context.Context, id uuid.UUID) (ledger.Budget, error)
	GetBudgetsWithSpending(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Budget, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) AddBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	if b.LedgerID == uuid.Nil || b.StartDate.IsZero() {
		return ledger.Budget{}, errs.ErrInvalid
	}
	if b.Scope == "" {
		// legacy rows carry no scope; category is the historic default
		b.Scope = ledger.ScopeCategory
	}
	if b.Scope == ledger.ScopeCategory && strings.TrimSpace(b.CategoryName) == "" {
		return ledger.Budget{}, errs.ErrInvalid
	}
	if b.Scope != ledger.ScopeCategory && strings.TrimSpace(b.ScopeName) == "" {
		return ledger.Budget{}, errs.ErrInvalid
	}
	if b.AccountScope == "" {
		b.AccountScope = ledger.AccountScopeAll
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	// freshly created budgets start at zero spend; every later read
	// recomputes
	b.SpentAmount, _ = money.NewAmountFromMinorUnits(currencyOf(b), 0)
	b.CreatedAt = time.Now().UTC()
	return s.writer.CreateBudget(ctx, b)
}

func (s *service) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	if b.ID == uuid.Nil {
		return ledger.Budget{}, errs.ErrInvalid
	}
	current, err := s.repo.GetBudget(ctx, b.ID)
	if err != nil {
		return ledger.Budget{}, err
	}
	if current.LedgerID != b.LedgerID {
		return ledger.Budget{}, errs.ErrImmutable
	}
	if b.Scope == "" {
		b.Scope = ledger.ScopeCategory
	}
	b.CreatedAt = current.CreatedAt
	return s.writer.UpdateBudget(ctx, b)
}

func (s *service) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteBudget(ctx, id)
}

func (s *service) GetBudget(ctx context.Context, id uuid.UUID) (ledger.Budget, error) {
	return s.repo.GetBudget(ctx, id)
}

// GetBudgetsWithSpending returns every budget of the ledger with
// SpentAmount freshly computed from the transaction snapshot. Stored rows
// are not touched.
func (s *service) GetBudgetsWithSpending(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Budget, error) {
	if ledgerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	budgets, err := s.repo.ListBudgets(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return budgets, nil
	}
	txns, err := s.repo.ListTransactions(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	// Account types are resolved once per distinct account name, not per
	// (budget, transaction) pair.
	types := s.accountTypes(ctx, ledgerID, txns)
	for i := range budgets {
		spent := s.spentMinor(budgets[i], txns, types)
		budgets[i].SpentAmount, _ = money.NewAmountFromMinorUnits(currencyOf(budgets[i]), spent)
	}
	return budgets, nil
}

func (s *service) accountTypes(ctx context.Context, ledgerID uuid.UUID, txns []ledger.Transaction) map[string]ledger.AccountType {
	out := make(map[string]ledger.AccountType)
	for _, t := range txns {
		key := strings.ToLower(ledger.NameKey(t.Account))
		if _, seen := out[key]; seen {
			continue
		}
		v, found, err := s.repo.VendorByName(ctx, ledgerID, t.Account)
		if err != nil || !found || !v.IsAccount {
			out[key] = ""
			continue
		}
		a, err := s.repo.GetAccount(ctx, v.AccountID)
		if err != nil {
			out[key] = ""
			continue
		}
		out[key] = a.Type
	}
	return out
}

// spentMinor sums abs(amount) over matching outflows in minor units.
// Inflows in the scope never count as spend.
func (s *service) spentMinor(b ledger.Budget, txns []ledger.Transaction, types map[string]ledger.AccountType) int64 {
	var spent int64
	for _, t := range txns {
		if !inWindow(t.Date, b.StartDate, b.EndDate) {
			continue
		}
		if !matchesScope(b, t) {
			continue
		}
		if b.AccountScope == ledger.AccountScopeGroup {
			at := types[strings.ToLower(ledger.NameKey(t.Account))]
			if at == "" || !containsType(b.AccountScopeValues, at) {
				continue
			}
		}
		units, ok := t.Amount.MinorUnits()
		if !ok || units >= 0 {
			continue
		}
		spent += -units
	}
	return spent
}

func inWindow(d, start time.Time, end *time.Time) bool {
	day := dayOf(d)
	if day.Before(dayOf(start)) {
		return false
	}
	if end != nil && day.After(dayOf(*end)) {
		return false
	}
	return true
}

func matchesScope(b ledger.Budget, t ledger.Transaction) bool {
	switch b.Scope {
	case ledger.ScopeSubCategory:
		return nameEqual(t.SubCategory, b.ScopeName)
	case ledger.ScopeAccount:
		return nameEqual(t.Account, b.ScopeName)
	case ledger.ScopeVendor:
		return nameEqual(t.Vendor, b.ScopeName)
	default:
		// category scope, also the legacy default
		if !nameEqual(t.Category, b.CategoryName) {
			return false
		}
		if strings.TrimSpace(b.SubCategoryName) != "" {
			return nameEqual(t.SubCategory, b.SubCategoryName)
		}
		return true
	}
}

func nameEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsType(values []ledger.AccountType, t ledger.AccountType) bool {
	for _, v := range values {
		if v == t {
			return true
		}
	}
	return false
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func currencyOf(b ledger.Budget) string {
	if b.Currency != "" {
		return b.Currency
	}
	return "USD"
}
