package dictionary

import "github.com/nrajesh/budget-it-sub000/internal/ledger"

// CategoryDef describes a curated category label offered to clients.
// Reserved categories are created on demand and cannot be deleted.
type CategoryDef struct {
	Name     string `json:"name"`
	Reserved bool   `json:"reserved"`
}

// TransferCategory is the reserved category applied to both legs when two
// transactions are linked as a transfer.
const TransferCategory = "Transfer"

var curated = []CategoryDef{
	{Name: TransferCategory, Reserved: true},
	{Name: "Groceries"},
	{Name: "Eating Out"},
	{Name: "Rent"},
	{Name: "Utilities"},
	{Name: "Transport"},
	{Name: "Shopping"},
	{Name: "Entertainment"},
	{Name: "Travel"},
	{Name: "Savings"},
	{Name: "Salary"},
	{Name: "General"},
}

// AccountTypeDef pairs an account type with a display label.
type AccountTypeDef struct {
	Type  ledger.AccountType `json:"type"`
	Label string             `json:"label"`
}

var accountTypes = []AccountTypeDef{
	{Type: ledger.AccountTypeChecking, Label: "Checking"},
	{Type: ledger.AccountTypeSavings, Label: "Savings"},
	{Type: ledger.AccountTypeCreditCard, Label: "Credit Card"},
	{Type: ledger.AccountTypeInvestment, Label: "Investment"},
	{Type: ledger.AccountTypeOther, Label: "Other"},
}

// Categories returns the curated category seed list.
func Categories() []CategoryDef {
	out := make([]CategoryDef, len(curated))
	copy(out, curated)
	return out
}

// AccountTypes returns the supported account types with labels.
func AccountTypes() []AccountTypeDef {
	out := make([]AccountTypeDef, len(accountTypes))
	copy(out, accountTypes)
	return out
}

// IsReserved reports whether name is a reserved category.
func IsReserved(name string) bool {
	for _, c := range curated {
		if c.Reserved && c.Name == name {
			return true
		}
	}
	return false
}
