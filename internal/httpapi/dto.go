package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/meta"
)

func minorOf(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

func amountOf(currency string, minor int64) money.Amount {
	a, err := money.NewAmountFromMinorUnits(currency, minor)
	if err != nil {
		a, _ = money.NewAmountFromMinorUnits("USD", minor)
	}
	return a
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Ledgers

type postLedgerRequest struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Icon      string `json:"icon"`
	Currency  string `json:"currency"`
}

type ledgerResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ShortName    string    `json:"short_name"`
	Icon         string    `json:"icon"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

func toLedgerResponse(l ledger.Ledger) ledgerResponse {
	return ledgerResponse{
		ID:           l.ID,
		Name:         l.Name,
		ShortName:    l.ShortName,
		Icon:         l.Icon,
		Currency:     l.Currency,
		CreatedAt:    l.CreatedAt,
		LastAccessed: l.LastAccessed,
	}
}

// Transactions

type postTransactionRequest struct {
	LedgerID            uuid.UUID        `json:"ledger_id"`
	Date                time.Time        `json:"date"`
	AmountMinor         int64            `json:"amount_minor"`
	Currency            string           `json:"currency"`
	Account             string           `json:"account"`
	Vendor              string           `json:"vendor"`
	Category            string           `json:"category"`
	SubCategory         string           `json:"sub_category"`
	Remarks             string           `json:"remarks"`
	RecurrenceFrequency ledger.Frequency `json:"recurrence_frequency,omitempty"`
	RecurrenceEndDate   *time.Time       `json:"recurrence_end_date,omitempty"`
	Metadata            meta.Metadata    `json:"metadata,omitempty"`
}

type transactionResponse struct {
	ID                  uuid.UUID        `json:"id"`
	LedgerID            uuid.UUID        `json:"ledger_id"`
	Date                time.Time        `json:"date"`
	AmountMinor         int64            `json:"amount_minor"`
	Currency            string           `json:"currency"`
	Account             string           `json:"account"`
	Vendor              string           `json:"vendor"`
	Category            string           `json:"category"`
	SubCategory         string           `json:"sub_category,omitempty"`
	Remarks             string           `json:"remarks,omitempty"`
	TransferID          *uuid.UUID       `json:"transfer_id,omitempty"`
	RecurrenceID        *uuid.UUID       `json:"recurrence_id,omitempty"`
	RecurrenceFrequency ledger.Frequency `json:"recurrence_frequency,omitempty"`
	RecurrenceEndDate   *time.Time       `json:"recurrence_end_date,omitempty"`
	IsProjected         bool             `json:"is_projected,omitempty"`
	Metadata            meta.Metadata    `json:"metadata,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

func toTransaction(req postTransactionRequest) ledger.Transaction {
	return ledger.Transaction{
		LedgerID:            req.LedgerID,
		Date:                req.Date,
		Amount:              amountOf(req.Currency, req.AmountMinor),
		Currency:            req.Currency,
		Account:             req.Account,
		Vendor:              req.Vendor,
		Category:            req.Category,
		SubCategory:         req.SubCategory,
		Remarks:             req.Remarks,
		RecurrenceFrequency: req.RecurrenceFrequency,
		RecurrenceEndDate:   req.RecurrenceEndDate,
		Metadata:            req.Metadata,
	}
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                  t.ID,
		LedgerID:            t.LedgerID,
		Date:                t.Date,
		AmountMinor:         minorOf(t.Amount),
		Currency:            t.Currency,
		Account:             t.Account,
		Vendor:              t.Vendor,
		Category:            t.Category,
		SubCategory:         t.SubCategory,
		Remarks:             t.Remarks,
		TransferID:          uuidPtr(t.TransferID),
		RecurrenceID:        uuidPtr(t.RecurrenceID),
		RecurrenceFrequency: t.RecurrenceFrequency,
		RecurrenceEndDate:   t.RecurrenceEndDate,
		IsProjected:         t.IsProjected,
		Metadata:            t.Metadata,
		CreatedAt:           t.CreatedAt,
	}
}

func toTransactionResponses(txs []ledger.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type deleteTransactionsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// Transfers

type linkTransferRequest struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

type transferResponse struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

type rowsResponse struct {
	RowsAffected int `json:"rows_affected"`
}

// Scheduled transactions

type postScheduledRequest struct {
	LedgerID    uuid.UUID        `json:"ledger_id"`
	Date        time.Time        `json:"date"`
	AmountMinor int64            `json:"amount_minor"`
	Currency    string           `json:"currency"`
	Account     string           `json:"account"`
	Vendor      string           `json:"vendor"`
	Category    string           `json:"category"`
	SubCategory string           `json:"sub_category"`
	Remarks     string           `json:"remarks"`
	Frequency   ledger.Frequency `json:"frequency"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
}

type scheduledResponse struct {
	ID          uuid.UUID        `json:"id"`
	LedgerID    uuid.UUID        `json:"ledger_id"`
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

func toScheduled(req postScheduledRequest) ledger.ScheduledTransaction {
	return ledger.ScheduledTransaction{
		LedgerID:    req.LedgerID,
		Date:        req.Date,
		Amount:      amountOf(req.Currency, req.AmountMinor),
		Currency:    req.Currency,
		Account:     req.Account,
		Vendor:      req.Vendor,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Remarks:     req.Remarks,
		Frequency:   req.Frequency,
		EndDate:     req.EndDate,
	}
}

func toScheduledResponse(st ledger.ScheduledTransaction) scheduledResponse {
	return scheduledResponse{
		ID:          st.ID,
		LedgerID:    st.LedgerID,
		Date:        st.Date,
		AmountMinor: minorOf(st.Amount),
		Currency:    st.Currency,
		Account:     st.Account,
		Vendor:      st.Vendor,
		Category:    st.Category,
		SubCategory: st.SubCategory,
		Remarks:     st.Remarks,
		Frequency:   st.Frequency,
		EndDate:     st.EndDate,
		CreatedAt:   st.CreatedAt,
	}
}

// Budgets

type postBudgetRequest struct {
	LedgerID           uuid.UUID            `json:"ledger_id"`
	CategoryName       string               `json:"category_name"`
	SubCategoryName    string               `json:"sub_category_name"`
	TargetAmountMinor  int64                `json:"target_amount_minor"`
	Currency           string               `json:"currency"`
	StartDate          time.Time            `json:"start_date"`
	EndDate            *time.Time           `json:"end_date,omitempty"`
	Frequency          ledger.Frequency     `json:"frequency"`
	Scope              ledger.BudgetScope   `json:"scope"`
	ScopeName          string               `json:"scope_name"`
	AccountScope       ledger.AccountScope  `json:"account_scope"`
	AccountScopeValues []ledger.AccountType `json:"account_scope_values,omitempty"`
	IsActive           bool                 `json:"is_active"`
	IsGoal             bool                 `json:"is_goal"`
}

type budgetResponse struct {
	ID                 uuid.UUID            `json:"id"`
	LedgerID           uuid.UUID            `json:"ledger_id"`
	CategoryName       string               `json:"category_name,omitempty"`
	SubCategoryName    string               `json:"sub_category_name,omitempty"`
	TargetAmountMinor  int64                `json:"target_amount_minor"`
	SpentAmountMinor   int64                `json:"spent_amount_minor"`
	Currency           string               `json:"currency"`
	StartDate          time.Time            `json:"start_date"`
	EndDate            *time.Time           `json:"end_date,omitempty"`
	Frequency          ledger.Frequency     `json:"frequency,omitempty"`
	Scope              ledger.BudgetScope   `json:"scope"`
	ScopeName          string               `json:"scope_name,omitempty"`
	AccountScope       ledger.AccountScope  `json:"account_scope"`
	AccountScopeValues []ledger.AccountType `json:"account_scope_values,omitempty"`
	IsActive           bool                 `json:"is_active"`
	IsGoal             bool                 `json:"is_goal"`
	CreatedAt          time.Time            `json:"created_at"`
}

func toBudget(req postBudgetRequest) ledger.Budget {
	return ledger.Budget{
		LedgerID:           req.LedgerID,
		CategoryName:       req.CategoryName,
		SubCategoryName:    req.SubCategoryName,
		TargetAmount:       amountOf(req.Currency, req.TargetAmountMinor),
		Currency:           req.Currency,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Frequency:          req.Frequency,
		Scope:              req.Scope,
		ScopeName:          req.ScopeName,
		AccountScope:       req.AccountScope,
		AccountScopeValues: req.AccountScopeValues,
		IsActive:           req.IsActive,
		IsGoal:             req.IsGoal,
	}
}

func toBudgetResponse(b ledger.Budget) budgetResponse {
	return budgetResponse{
		ID:                 b.ID,
		LedgerID:           b.LedgerID,
		CategoryName:       b.CategoryName,
		SubCategoryName:    b.SubCategoryName,
		TargetAmountMinor:  minorOf(b.TargetAmount),
		SpentAmountMinor:   minorOf(b.SpentAmount),
		Currency:           b.Currency,
		StartDate:          b.StartDate,
		EndDate:            b.EndDate,
		Frequency:          b.Frequency,
		Scope:              b.Scope,
		ScopeName:          b.ScopeName,
		AccountScope:       b.AccountScope,
		AccountScopeValues: b.AccountScopeValues,
		IsActive:           b.IsActive,
		IsGoal:             b.IsGoal,
		CreatedAt:          b.CreatedAt,
	}
}

// Payees

type ensurePayeeRequest struct {
	LedgerID             uuid.UUID          `json:"ledger_id"`
	Name                 string             `json:"name"`
	IsAccount            bool               `json:"is_account"`
	Currency             string             `json:"currency,omitempty"`
	Type                 ledger.AccountType `json:"type,omitempty"`
	StartingBalanceMinor int64              `json:"starting_balance_minor,omitempty"`
	CreditLimitMinor     *int64             `json:"credit_limit_minor,omitempty"`
	Remarks              string             `json:"remarks,omitempty"`
}

type updateAccountRequest struct {
	Currency             string              `json:"currency,omitempty"`
	Type                 *ledger.AccountType `json:"type,omitempty"`
	StartingBalanceMinor *int64              `json:"starting_balance_minor,omitempty"`
	CreditLimitMinor     *int64              `json:"credit_limit_minor,omitempty"`
	Remarks              *string             `json:"remarks,omitempty"`
	Metadata             meta.Metadata       `json:"metadata,omitempty"`
}

type payeeResponse struct {
	ID        uuid.UUID        `json:"id"`
	LedgerID  uuid.UUID        `json:"ledger_id"`
	Name      string           `json:"name"`
	IsAccount bool             `json:"is_account"`
	Account   *accountResponse `json:"account,omitempty"`
}

type accountResponse struct {
	ID                   uuid.UUID          `json:"id"`
	Currency             string             `json:"currency"`
	Type                 ledger.AccountType `json:"type"`
	StartingBalanceMinor int64              `json:"starting_balance_minor"`
	CreditLimitMinor     *int64             `json:"credit_limit_minor,omitempty"`
	Remarks              string             `json:"remarks,omitempty"`
	Metadata             meta.Metadata      `json:"metadata,omitempty"`
}

func toAccountResponse(a ledger.Account) *accountResponse {
	resp := &accountResponse{
		ID:                   a.ID,
		Currency:             a.Currency,
		Type:                 a.Type,
		StartingBalanceMinor: minorOf(a.StartingBalance),
		Remarks:              a.Remarks,
		Metadata:             a.Metadata,
	}
	if a.CreditLimit != nil {
		limit := minorOf(*a.CreditLimit)
		resp.CreditLimitMinor = &limit
	}
	return resp
}

type mergeRequest struct {
	LedgerID    uuid.UUID `json:"ledger_id"`
	TargetName  string    `json:"target_name"`
	SourceNames []string  `json:"source_names"`
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

type checkPayeeResponse struct {
	Name      string `json:"name"`
	IsAccount bool   `json:"is_account"`
	Currency  string `json:"currency,omitempty"`
}

// Categories

type ensureCategoryRequest struct {
	LedgerID uuid.UUID `json:"ledger_id"`
	Name     string    `json:"name"`
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	LedgerID  uuid.UUID `json:"ledger_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ensureSubCategoryRequest struct {
	LedgerID uuid.UUID `json:"ledger_id"`
	Name     string    `json:"name"`
}

type renameSubCategoryRequest struct {
	LedgerID uuid.UUID `json:"ledger_id"`
	OldName  string    `json:"old_name"`
	NewName  string    `json:"new_name"`
}

type subCategoryResponse struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Import

type importStatsResponse struct {
	Ledgers               int `json:"ledgers"`
	Vendors               int `json:"vendors"`
	Accounts              int `json:"accounts"`
	Categories            int `json:"categories"`
	SubCategories         int `json:"sub_categories"`
	Transactions          int `json:"transactions"`
	ScheduledTransactions int `json:"scheduled_transactions"`
	Budgets               int `json:"budgets"`
}
