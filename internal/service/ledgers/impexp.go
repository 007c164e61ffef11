package ledgers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/meta"
)

// rowScope carries the ledger binding of a persisted row. Version 2
// snapshots write ledger_id; version 1 files carried the same value under
// user_id, which import still accepts. Pointer fields keep the legacy
// key out of exported files: omitempty never fires on a uuid.UUID array.
type rowScope struct {
	LedgerID *uuid.UUID `json:"ledger_id,omitempty"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
}

func scopeOf(id uuid.UUID) rowScope { return rowScope{LedgerID: &id} }

func (r rowScope) ledger() uuid.UUID {
	if r.LedgerID != nil && *r.LedgerID != uuid.Nil {
		return *r.LedgerID
	}
	if r.UserID != nil {
		return *r.UserID
	}
	return uuid.Nil
}

func idPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func idVal(p *uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

type snapshotDTO struct {
	Ledgers               []ledgerDTO      `json:"ledgers,omitempty"`
	Vendors               []vendorDTO      `json:"vendors"`
	Accounts              []accountDTO     `json:"accounts"`
	Categories            []categoryDTO    `json:"categories"`
	SubCategories         []subCategoryDTO `json:"sub_categories"`
	Transactions          []transactionDTO `json:"transactions"`
	ScheduledTransactions []scheduledDTO   `json:"scheduled_transactions"`
	Budgets               []budgetDTO      `json:"budgets"`
	Version               int              `json:"version"`
	ExportedAt            time.Time        `json:"exported_at"`
}

type ledgerDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ShortName    string    `json:"short_name,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

type vendorDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	Name      string     `json:"name"`
	IsAccount bool       `json:"is_account"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
}

type accountDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	Currency             string             `json:"currency"`
	StartingBalanceMinor int64              `json:"starting_balance_minor"`
	Remarks              string             `json:"remarks,omitempty"`
	Type                 ledger.AccountType `json:"type"`
	CreditLimitMinor     *int64             `json:"credit_limit_minor,omitempty"`
	Metadata             meta.Metadata      `json:"metadata,omitempty"`
}

type categoryDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type subCategoryDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

type transactionDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	Date                time.Time         `json:"date"`
	AmountMinor         int64             `json:"amount_minor"`
	Currency            string            `json:"currency"`
	Account             string            `json:"account"`
	Vendor              string            `json:"vendor"`
	Category            string            `json:"category"`
	SubCategory         string            `json:"sub_category,omitempty"`
	Remarks             string            `json:"remarks,omitempty"`
	TransferID          *uuid.UUID        `json:"transfer_id,omitempty"`
	RecurrenceID        *uuid.UUID        `json:"recurrence_id,omitempty"`
	RecurrenceFrequency ledger.Frequency  `json:"recurrence_frequency,omitempty"`
	RecurrenceEndDate   *time.Time        `json:"recurrence_end_date,omitempty"`
	IsScheduledOrigin   bool              `json:"is_scheduled_origin,omitempty"`
	Metadata            meta.Metadata     `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

type scheduledDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	Date        time.Time        `json:"date"`
	AmountMinor int64            `json:"amount_minor"`
	Currency    string           `json:"currency"`
	Account     string           `json:"account"`
	Vendor      string           `json:"vendor"`
	Category    string           `json:"category"`
	SubCategory string           `json:"sub_category,omitempty"`
	Remarks     string           `json:"remarks,omitempty"`
	Frequency   ledger.Frequency `json:"frequency"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type budgetDTO struct {
	ID uuid.UUID `json:"id"`
	rowScope
	CategoryID         *uuid.UUID           `json:"category_id,omitempty"`
	CategoryName       string               `json:"category_name,omitempty"`
	SubCategoryID      *uuid.UUID           `json:"sub_category_id,omitempty"`
	SubCategoryName    string               `json:"sub_category_name,omitempty"`
	TargetAmountMinor  int64                `json:"target_amount_minor"`
	Currency           string               `json:"currency"`
	StartDate          time.Time            `json:"start_date"`
	EndDate            *time.Time           `json:"end_date,omitempty"`
	Frequency          ledger.Frequency     `json:"frequency,omitempty"`
	Scope              ledger.BudgetScope   `json:"scope,omitempty"`
	ScopeName          string               `json:"scope_name,omitempty"`
	AccountScope       ledger.AccountScope  `json:"account_scope,omitempty"`
	AccountScopeValues []ledger.AccountType `json:"account_scope_values,omitempty"`
	IsActive           bool                 `json:"is_active"`
	IsGoal             bool                 `json:"is_goal,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

func (s *service) ExportData(ctx context.Context, ledgerID *uuid.UUID) ([]byte, error) {
	snap, err := s.repo.ExportSnapshot(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	dto, err := toSnapshotDTO(snap)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto)
}

func (s *service) ImportData(ctx context.Context, data []byte, target *uuid.UUID) (ImportStats, error) {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ImportStats{}, fmt.Errorf("%w: %v", errs.ErrUnprocessable, err)
	}
	snap, err := fromSnapshotDTO(dto, target)
	if err != nil {
		return ImportStats{}, err
	}
	if err := s.writer.ImportSnapshot(ctx, snap); err != nil {
		return ImportStats{}, err
	}
	return ImportStats{
		Ledgers:               len(snap.Ledgers),
		Vendors:               len(snap.Vendors),
		Accounts:              len(snap.Accounts),
		Categories:            len(snap.Categories),
		SubCategories:         len(snap.SubCategories),
		Transactions:          len(snap.Transactions),
		ScheduledTransactions: len(snap.ScheduledTransactions),
		Budgets:               len(snap.Budgets),
	}, nil
}

func toSnapshotDTO(snap ledger.Snapshot) (snapshotDTO, error) {
	out := snapshotDTO{
		Vendors:               make([]vendorDTO, 0, len(snap.Vendors)),
		Accounts:              make([]accountDTO, 0, len(snap.Accounts)),
		Categories:            make([]categoryDTO, 0, len(snap.Categories)),
		SubCategories:         make([]subCategoryDTO, 0, len(snap.SubCategories)),
		Transactions:          make([]transactionDTO, 0, len(snap.Transactions)),
		ScheduledTransactions: make([]scheduledDTO, 0, len(snap.ScheduledTransactions)),
		Budgets:               make([]budgetDTO, 0, len(snap.Budgets)),
		Version:               ledger.SnapshotVersion,
		ExportedAt:            snap.ExportedAt,
	}
	for _, l := range snap.Ledgers {
		out.Ledgers = append(out.Ledgers, ledgerDTO{
			ID: l.ID, Name: l.Name, ShortName: l.ShortName, Icon: l.Icon,
			Currency: l.Currency, CreatedAt: l.CreatedAt, LastAccessed: l.LastAccessed,
		})
	}
	for _, v := range snap.Vendors {
		out.Vendors = append(out.Vendors, vendorDTO{
			ID: v.ID, rowScope: scopeOf(v.LedgerID),
			Name: v.Name, IsAccount: v.IsAccount, AccountID: idPtr(v.AccountID),
		})
	}
	for _, a := range snap.Accounts {
		bal, ok := a.StartingBalance.MinorUnits()
		if !ok {
			return snapshotDTO{}, fmt.Errorf("%w: account %s balance not representable", errs.ErrUnprocessable, a.ID)
		}
		d := accountDTO{
			ID: a.ID, rowScope: scopeOf(a.LedgerID),
			Currency: a.Currency, StartingBalanceMinor: bal,
			Remarks: a.Remarks, Type: a.Type, Metadata: a.Metadata,
		}
		if a.CreditLimit != nil {
			if limit, ok := a.CreditLimit.MinorUnits(); ok {
				d.CreditLimitMinor = &limit
			}
		}
		out.Accounts = append(out.Accounts, d)
	}
	for _, c := range snap.Categories {
		out.Categories = append(out.Categories, categoryDTO{
			ID: c.ID, rowScope: scopeOf(c.LedgerID), Name: c.Name, CreatedAt: c.CreatedAt,
		})
	}
	for _, sc := range snap.SubCategories {
		out.SubCategories = append(out.SubCategories, subCategoryDTO{
			ID: sc.ID, rowScope: scopeOf(sc.LedgerID),
			CategoryID: sc.CategoryID, Name: sc.Name, CreatedAt: sc.CreatedAt,
		})
	}
	for _, t := range snap.Transactions {
		units, ok := t.Amount.MinorUnits()
		if !ok {
			return snapshotDTO{}, fmt.Errorf("%w: transaction %s amount not representable", errs.ErrUnprocessable, t.ID)
		}
		out.Transactions = append(out.Transactions, transactionDTO{
			ID: t.ID, rowScope: scopeOf(t.LedgerID),
			Date: t.Date, AmountMinor: units, Currency: t.Currency,
			Account: t.Account, Vendor: t.Vendor,
			Category: t.Category, SubCategory: t.SubCategory, Remarks: t.Remarks,
			TransferID: idPtr(t.TransferID), RecurrenceID: idPtr(t.RecurrenceID),
			RecurrenceFrequency: t.RecurrenceFrequency, RecurrenceEndDate: t.RecurrenceEndDate,
			IsScheduledOrigin: t.IsScheduledOrigin, Metadata: t.Metadata, CreatedAt: t.CreatedAt,
		})
	}
	for _, st := range snap.ScheduledTransactions {
		units, ok := st.Amount.MinorUnits()
		if !ok {
			return snapshotDTO{}, fmt.Errorf("%w: scheduled %s amount not representable", errs.ErrUnprocessable, st.ID)
		}
		out.ScheduledTransactions = append(out.ScheduledTransactions, scheduledDTO{
			ID: st.ID, rowScope: scopeOf(st.LedgerID),
			Date: st.Date, AmountMinor: units, Currency: st.Currency,
			Account: st.Account, Vendor: st.Vendor,
			Category: st.Category, SubCategory: st.SubCategory, Remarks: st.Remarks,
			Frequency: st.Frequency, EndDate: st.EndDate, CreatedAt: st.CreatedAt,
		})
	}
	for _, b := range snap.Budgets {
		target, ok := b.TargetAmount.MinorUnits()
		if !ok {
			return snapshotDTO{}, fmt.Errorf("%w: budget %s target not representable", errs.ErrUnprocessable, b.ID)
		}
		// SpentAmount is derived; it is recomputed after import, not persisted.
		out.Budgets = append(out.Budgets, budgetDTO{
			ID: b.ID, rowScope: scopeOf(b.LedgerID),
			CategoryID: idPtr(b.CategoryID), CategoryName: b.CategoryName,
			SubCategoryID: idPtr(b.SubCategoryID), SubCategoryName: b.SubCategoryName,
			TargetAmountMinor: target, Currency: b.Currency,
			StartDate: b.StartDate, EndDate: b.EndDate, Frequency: b.Frequency,
			Scope: b.Scope, ScopeName: b.ScopeName,
			AccountScope: b.AccountScope, AccountScopeValues: b.AccountScopeValues,
			IsActive: b.IsActive, IsGoal: b.IsGoal, CreatedAt: b.CreatedAt,
		})
	}
	return out, nil
}

func fromSnapshotDTO(dto snapshotDTO, target *uuid.UUID) (ledger.Snapshot, error) {
	rebind := func(id uuid.UUID) uuid.UUID {
		if target != nil {
			return *target
		}
		return id
	}
	snap := ledger.Snapshot{Version: dto.Version, ExportedAt: dto.ExportedAt}
	if target == nil {
		for _, l := range dto.Ledgers {
			snap.Ledgers = append(snap.Ledgers, ledger.Ledger{
				ID: l.ID, Name: l.Name, ShortName: l.ShortName, Icon: l.Icon,
				Currency: l.Currency, CreatedAt: l.CreatedAt, LastAccessed: l.LastAccessed,
			})
		}
	}
	for _, v := range dto.Vendors {
		snap.Vendors = append(snap.Vendors, ledger.Vendor{
			ID: v.ID, LedgerID: rebind(v.ledger()),
			Name: v.Name, IsAccount: v.IsAccount, AccountID: idVal(v.AccountID),
		})
	}
	for _, a := range dto.Accounts {
		bal, err := money.NewAmountFromMinorUnits(a.Currency, a.StartingBalanceMinor)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: account %s: %v", errs.ErrUnprocessable, a.ID, err)
		}
		row := ledger.Account{
			ID: a.ID, LedgerID: rebind(a.ledger()),
			Currency: a.Currency, StartingBalance: bal,
			Remarks: a.Remarks, Type: a.Type, Metadata: a.Metadata,
		}
		if a.CreditLimitMinor != nil {
			limit, err := money.NewAmountFromMinorUnits(a.Currency, *a.CreditLimitMinor)
			if err != nil {
				return ledger.Snapshot{}, fmt.Errorf("%w: account %s: %v", errs.ErrUnprocessable, a.ID, err)
			}
			row.CreditLimit = &limit
		}
		snap.Accounts = append(snap.Accounts, row)
	}
	for _, c := range dto.Categories {
		snap.Categories = append(snap.Categories, ledger.Category{
			ID: c.ID, LedgerID: rebind(c.ledger()), Name: c.Name, CreatedAt: c.CreatedAt,
		})
	}
	for _, sc := range dto.SubCategories {
		snap.SubCategories = append(snap.SubCategories, ledger.SubCategory{
			ID: sc.ID, LedgerID: rebind(sc.ledger()),
			CategoryID: sc.CategoryID, Name: sc.Name, CreatedAt: sc.CreatedAt,
		})
	}
	for _, t := range dto.Transactions {
		amt, err := money.NewAmountFromMinorUnits(t.Currency, t.AmountMinor)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: transaction %s: %v", errs.ErrUnprocessable, t.ID, err)
		}
		snap.Transactions = append(snap.Transactions, ledger.Transaction{
			ID: t.ID, LedgerID: rebind(t.ledger()),
			Date: t.Date, Amount: amt, Currency: t.Currency,
			Account: t.Account, Vendor: t.Vendor,
			Category: t.Category, SubCategory: t.SubCategory, Remarks: t.Remarks,
			TransferID: idVal(t.TransferID), RecurrenceID: idVal(t.RecurrenceID),
			RecurrenceFrequency: t.RecurrenceFrequency, RecurrenceEndDate: t.RecurrenceEndDate,
			IsScheduledOrigin: t.IsScheduledOrigin, Metadata: t.Metadata, CreatedAt: t.CreatedAt,
		})
	}
	for _, st := range dto.ScheduledTransactions {
		amt, err := money.NewAmountFromMinorUnits(st.Currency, st.AmountMinor)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: scheduled %s: %v", errs.ErrUnprocessable, st.ID, err)
		}
		snap.ScheduledTransactions = append(snap.ScheduledTransactions, ledger.ScheduledTransaction{
			ID: st.ID, LedgerID: rebind(st.ledger()),
			Date: st.Date, Amount: amt, Currency: st.Currency,
			Account: st.Account, Vendor: st.Vendor,
			Category: st.Category, SubCategory: st.SubCategory, Remarks: st.Remarks,
			Frequency: st.Frequency, EndDate: st.EndDate, CreatedAt: st.CreatedAt,
		})
	}
	for _, b := range dto.Budgets {
		targetAmt, err := money.NewAmountFromMinorUnits(b.Currency, b.TargetAmountMinor)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("%w: budget %s: %v", errs.ErrUnprocessable, b.ID, err)
		}
		zero, _ := money.NewAmountFromMinorUnits(b.Currency, 0)
		scope := b.Scope
		if scope == "" {
			scope = ledger.ScopeCategory
		}
		snap.Budgets = append(snap.Budgets, ledger.Budget{
			ID: b.ID, LedgerID: rebind(b.ledger()),
			CategoryID: idVal(b.CategoryID), CategoryName: b.CategoryName,
			SubCategoryID: idVal(b.SubCategoryID), SubCategoryName: b.SubCategoryName,
			TargetAmount: targetAmt, SpentAmount: zero, Currency: b.Currency,
			StartDate: b.StartDate, EndDate: b.EndDate, Frequency: b.Frequency,
			Scope: scope, ScopeName: b.ScopeName,
			AccountScope: b.AccountScope, AccountScopeValues: b.AccountScopeValues,
			IsActive: b.IsActive, IsGoal: b.IsGoal, CreatedAt: b.CreatedAt,
		})
	}
	return snap, nil
}
