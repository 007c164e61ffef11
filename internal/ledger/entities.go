package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/meta"
)

// AccountType enumerates the broad classification of a value-holding account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeOther      AccountType = "other"
)

// ValidAccountType reports whether t is one of the known account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard, AccountTypeInvestment, AccountTypeOther:
		return true
	}
	return false
}

// Frequency names a recurrence step for scheduled transactions and budgets.
// Besides the named values, a shorthand pattern "{n}{unit}" with unit in
// d/w/m/y is accepted wherever a Frequency is parsed.
type Frequency string

const (
	FrequencyDaily       Frequency = "Daily"
	FrequencyWeekly      Frequency = "Weekly"
	FrequencyBiWeekly    Frequency = "Bi-Weekly"
	FrequencyFortnightly Frequency = "Fortnightly"
	FrequencyMonthly     Frequency = "Monthly"
	FrequencyQuarterly   Frequency = "Quarterly"
	FrequencyYearly      Frequency = "Yearly"
)

// BudgetScope selects the transaction dimension a budget filters by.
type BudgetScope string

const (
	ScopeCategory    BudgetScope = "category"
	ScopeSubCategory BudgetScope = "sub_category"
	ScopeAccount     BudgetScope = "account"
	ScopeVendor      BudgetScope = "vendor"
)

// AccountScope narrows a budget to a group of account types.
type AccountScope string

const (
	AccountScopeAll   AccountScope = "ALL"
	AccountScopeGroup AccountScope = "GROUP"
)

// Ledger is an isolated namespace: its own vendors, categories and
// transactions. Deleting a ledger cascades to every scoped row.
type Ledger struct {
	ID           uuid.UUID
	Name         string
	ShortName    string
	Icon         string
	Currency     string
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Vendor is the counterparty of spending. A vendor may be promoted to an
// account, in which case IsAccount is true and AccountID points at the
// owned Account row. The same name is never two rows.
type Vendor struct {
	ID        uuid.UUID
	LedgerID  uuid.UUID
	Name      string
	IsAccount bool
	// AccountID is set iff IsAccount.
	AccountID uuid.UUID
}

// Account holds the value-side details of a vendor promoted to an account.
// Exactly one Vendor row owns each Account row.
type Account struct {
	ID              uuid.UUID
	LedgerID        uuid.UUID
	Currency        string
	StartingBalance money.Amount
	Remarks         string
	Type            AccountType
	// CreditLimit is optional and only meaningful for credit-card accounts.
	CreditLimit *money.Amount
	Metadata    meta.Metadata `json:"metadata,omitempty"`
}

// Category groups transactions. Name is unique per ledger.
type Category struct {
	ID        uuid.UUID
	LedgerID  uuid.UUID
	Name      string
	CreatedAt time.Time
}

// SubCategory is owned by exactly one Category and cascade-deleted with it.
// Name is unique per category.
type SubCategory struct {
	ID         uuid.UUID
	LedgerID   uuid.UUID
	CategoryID uuid.UUID
	Name       string
	CreatedAt  time.Time
}

// Transaction is a ledger entry. Account, Vendor, Category and SubCategory
// are denormalized vendor/category names; the catalog service keeps every
// mirror in sync on rename and merge.
type Transaction struct {
	ID       uuid.UUID
	LedgerID uuid.UUID
	Date     time.Time
	// Amount is signed; negative is an outflow.
	Amount   money.Amount
	Currency string
	Account  string
	Vendor   string
	Category string
	// SubCategory is optional free text mirroring the SubCategory table.
	SubCategory string
	Remarks     string
	// TransferID links the paired legs of a transfer; uuid.Nil when unset.
	TransferID uuid.UUID
	// RecurrenceID points back at the originating scheduled transaction.
	RecurrenceID uuid.UUID
	// RecurrenceFrequency and RecurrenceEndDate are set only when this row
	// is itself the anchor of a recurring series.
	RecurrenceFrequency Frequency
	RecurrenceEndDate   *time.Time
	IsScheduledOrigin   bool
	// IsProjected marks a virtual instance emitted by the recurrence
	// projector. Projected rows are never persisted.
	IsProjected bool
	Metadata    meta.Metadata `json:"metadata,omitempty"`
	CreatedAt   time.Time
}

// ScheduledTransaction is a recurrence rule, not a ledger entry. Its date is
// the anchor of the series.
type ScheduledTransaction struct {
	ID          uuid.UUID
	LedgerID    uuid.UUID
	Date        time.Time
	Amount      money.Amount
	Currency    string
	Account     string
	Vendor      string
	Category    string
	SubCategory string
	Remarks     string
	Frequency   Frequency
	// EndDate terminates the recurrence; nil means open-ended.
	EndDate   *time.Time
	CreatedAt time.Time
}

// Budget tracks a spending target over a scope and date window.
// SpentAmount is derived at read time and never trusted as stored state.
type Budget struct {
	ID              uuid.UUID
	LedgerID        uuid.UUID
	CategoryID      uuid.UUID
	CategoryName    string
	SubCategoryID   uuid.UUID
	SubCategoryName string
	TargetAmount    money.Amount
	SpentAmount     money.Amount
	Currency        string
	StartDate       time.Time
	EndDate         *time.Time
	Frequency       Frequency
	// Scope defaults to category for rows imported from older snapshots.
	Scope     BudgetScope
	ScopeName string
	// AccountScope / AccountScopeValues narrow matches to account types
	// when AccountScope is GROUP.
	AccountScope       AccountScope
	AccountScopeValues []AccountType
	IsActive           bool
	IsGoal             bool
	CreatedAt          time.Time
}

// Snapshot is the plain nested structure used by export and import. The
// persisted form is version 2 (ledger_id field convention).
type Snapshot struct {
	Ledgers               []Ledger
	Vendors               []Vendor
	Accounts              []Account
	Categories            []Category
	SubCategories         []SubCategory
	Transactions          []Transaction
	ScheduledTransactions []ScheduledTransaction
	Budgets               []Budget
	Version               int
	ExportedAt            time.Time
}

// SnapshotVersion is the current persisted snapshot convention.
const SnapshotVersion = 2

// NameKey normalizes a vendor/category name for lookup: exact match after
// trimming, case preserved.
func NameKey(name string) string { return strings.TrimSpace(name) }
