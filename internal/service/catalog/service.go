// Package catalog implements the integrity operations over names: the
// idempotent ensure-* upserts, payee-to-account promotion, and the
// rename/merge/delete cascades that keep every denormalized name mirror in
// sync. Names are the stable public identifier; the store carries the
// secondary indexes that make rewrites proportional to matches.
package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	VendorByName(ctx context.Context, ledgerID uuid.UUID, name string) (ledger.Vendor, bool, error)
	GetVendor(ctx context.Context, id uuid.UUID) (ledger.Vendor, error)
	ListVendors(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Vendor, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	CategoryByName(ctx context.Context, ledgerID uuid.UUID, name string) (ledger.Category, bool, error)
	GetCategory(ctx context.Context, id uuid.UUID) (ledger.Category, error)
	ListCategories(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Category, error)
	SubCategoryByName(ctx context.Context, categoryID uuid.UUID, name string) (ledger.SubCategory, bool, error)
	GetSubCategory(ctx context.Context, id uuid.UUID) (ledger.SubCategory, error)
	ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]ledger.SubCategory, error)
}

// Writer defines the write operations needed by the service. Cascade
// methods are atomic in every backend.
type Writer interface {
	CreateVendor(ctx context.Context, v ledger.Vendor, acct *ledger.Account) (ledger.Vendor, error)
	PromoteVendor(ctx context.Context, vendorID uuid.UUID, acct ledger.Account) (ledger.Vendor, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	RenameVendor(ctx context.Context, vendorID uuid.UUID, newName string) (int, error)
	SetAccountCurrency(ctx context.Context, vendorID uuid.UUID, currency string) (int, error)
	MergeVendors(ctx context.Context, ledgerID, targetID uuid.UUID, sourceIDs []uuid.UUID) (int, error)
	DeleteVendor(ctx context.Context, id uuid.UUID) error
	CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error)
	CreateSubCategory(ctx context.Context, sc ledger.SubCategory) (ledger.SubCategory, error)
	RenameCategory(ctx context.Context, categoryID uuid.UUID, newName string) (int, error)
	RenameSubCategory(ctx context.Context, subID uuid.UUID, newName string) (int, error)
	MergeCategories(ctx context.Context, ledgerID, targetID uuid.UUID, sourceIDs []uuid.UUID) (int, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// AccountOptions carries the optional account details applied when a payee
// is created as, or promoted to, an account.
type AccountOptions struct {
	Currency        string
	Type            ledger.AccountType
	StartingBalance money.Amount
	CreditLimit     *money.Amount
	Remarks         string
}

// Service exposes the name-integrity operations consumed by the facade.
type Service interface {
	EnsurePayeeExists(ctx context.Context, ledgerID uuid.UUID, name string, isAccount bool, opts *AccountOptions) (uuid.UUID, error)
	EnsureCategoryExists(ctx context.Context, ledgerID uuid.UUID, name string) (uuid.UUID, error)
	EnsureSubCategoryExists(ctx context.Context, ledgerID, categoryID uuid.UUID, name string) (uuid.UUID, error)
	RenamePayee(ctx context.Context, vendorID uuid.UUID, newName string) (int, error)
	SetAccountCurrency(ctx context.Context, vendorID uuid.UUID, currency string) (int, error)
	MergePayees(ctx context.Context, ledgerID uuid.UUID, targetName string, sourceNames []string) (int, error)
	DeletePayee(ctx context.Context, id uuid.UUID) error
	RenameCategory(ctx context.Context, categoryID uuid.UUID, newName string) (int, error)
	RenameSubCategory(ctx context.Context, ledgerID, categoryID uuid.UUID, oldName, newName string) (int, error)
	MergeCategories(ctx context.Context, ledgerID uuid.UUID, targetName string, sourceNames []string) (int, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CheckIfPayeeIsAccount(ctx context.Context, ledgerID uuid.UUID, name string) (bool, error)
	GetAccountCurrency(ctx context.Context, ledgerID uuid.UUID, name string) (string, error)
	ListPayees(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Vendor, error)
	ListCategories(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Category, error)
	ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]ledger.SubCategory, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

type service struct {
	repo   Repo
	writer Writer
	newID  func() uuid.UUID // id generator, swappable in tests
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, newID: uuid.New}
}

// EnsurePayeeExists looks the trimmed name up in the ledger and creates the
// vendor row if missing. When isAccount is requested and the row is not yet
// an account it is promoted in place: an account row is created and linked.
// A payee can be promoted but is never demoted by this call. Safe to call
// redundantly; repeated identical calls return the same id.
func (s *service) EnsurePayeeExists(ctx context.Context, ledgerID uuid.UUID, name string, isAccount bool, opts *AccountOptions) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if ledgerID == uuid.Nil || name == "" {
		return uuid.Nil, errs.ErrInvalid
	}
	existing, found, err := s.repo.VendorByName(ctx, ledgerID, name)
	if err != nil {
		return uuid.Nil, err
	}
	if found {
		if isAccount && !existing.IsAccount {
			acct := s.accountRow(ledgerID, opts)
			if _, err := s.writer.PromoteVendor(ctx, existing.ID, acct); err != nil {
				return uuid.Nil, err
			}
		}
		return existing.ID, nil
	}
	v := ledger.Vendor{ID: s.newID(), LedgerID: ledgerID, Name: name}
	var acct *ledger.Account
	if isAccount {
		a := s.accountRow(ledgerID, opts)
		acct = &a
	}
	created, err := s.writer.CreateVendor(ctx, v, acct)
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (s *service) accountRow(ledgerID uuid.UUID, opts *AccountOptions) ledger.Account {
	a := ledger.Account{ID: s.newID(), LedgerID: ledgerID, Type: ledger.AccountTypeChecking}
	if opts != nil {
		if opts.Currency != "" {
			a.Currency = strings.ToUpper(opts.Currency)
		}
		if ledger.ValidAccountType(opts.Type) {
			a.Type = opts.Type
		}
		a.StartingBalance = opts.StartingBalance
		a.CreditLimit = opts.CreditLimit
		a.Remarks = opts.Remarks
	}
	return a
}

// EnsureCategoryExists is the idempotent upsert for categories, scoped by
// (ledger, name).
func (s *service) EnsureCategoryExists(ctx context.Context, ledgerID uuid.UUID, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if ledgerID == uuid.Nil || name == "" {
		return uuid.Nil, errs.ErrInvalid
	}
	existing, found, err := s.repo.CategoryByName(ctx, ledgerID, name)
	if err != nil {
		return uuid.Nil, err
	}
	if found {
		return existing.ID, nil
	}
	c := ledger.Category{ID: s.newID(), LedgerID: ledgerID, Name: name, CreatedAt: nowUTC()}
	created, err := s.writer.CreateCategory(ctx, c)
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

// EnsureSubCategoryExists is the idempotent upsert for sub-categories,
// scoped by (category, name).
func (s *service) EnsureSubCategoryExists(ctx context.Context, ledgerID, categoryID uuid.UUID, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if ledgerID == uuid.Nil || categoryID == uuid.Nil || name == "" {
		return uuid.Nil, errs.ErrInvalid
	}
	existing, found, err := s.repo.SubCategoryByName(ctx, categoryID, name)
	if err != nil {
		return uuid.Nil, err
	}
	if found {
		return existing.ID, nil
	}
	sc := ledger.SubCategory{ID: s.newID(), LedgerID: ledgerID, CategoryID: categoryID, Name: name, CreatedAt: nowUTC()}
	created, err := s.writer.CreateSubCategory(ctx, sc)
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (s *service) RenamePayee(ctx context.Context, vendorID uuid.UUID, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if vendorID == uuid.Nil || newName == "" {
		return 0, errs.ErrInvalid
	}
	return s.writer.RenameVendor(ctx, vendorID, newName)
}

func (s *service) SetAccountCurrency(ctx context.Context, vendorID uuid.UUID, currency string) (int, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if vendorID == uuid.Nil || currency == "" {
		return 0, errs.ErrInvalid
	}
	return s.writer.SetAccountCurrency(ctx, vendorID, currency)
}

// MergePayees resolves the target and source names, then delegates the
// atomic rewrite-and-delete to the store. The target is created on the fly
// if it does not exist yet.
func (s *service) MergePayees(ctx context.Context, ledgerID uuid.UUID, targetName string, sourceNames []string) (int, error) {
	if ledgerID == uuid.Nil || strings.TrimSpace(targetName) == "" || len(sourceNames) == 0 {
		return 0, errs.ErrInvalid
	}
	targetID, err := s.EnsurePayeeExists(ctx, ledgerID, targetName, false, nil)
	if err != nil {
		return 0, err
	}
	sourceIDs := make([]uuid.UUID, 0, len(sourceNames))
	for _, name := range sourceNames {
		v, found, err := s.repo.VendorByName(ctx, ledgerID, name)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, errs.ErrNotFound
		}
		if v.ID == targetID {
			continue
		}
		sourceIDs = append(sourceIDs, v.ID)
	}
	if len(sourceIDs) == 0 {
		return 0, nil
	}
	return s.writer.MergeVendors(ctx, ledgerID, targetID, sourceIDs)
}

// DeletePayee removes the vendor row and its owned account. It does not
// cascade to transactions: deleting a payee never deletes history.
func (s *service) DeletePayee(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteVendor(ctx, id)
}

func (s *service) RenameCategory(ctx context.Context, categoryID uuid.UUID, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if categoryID == uuid.Nil || newName == "" {
		return 0, errs.ErrInvalid
	}
	return s.writer.RenameCategory(ctx, categoryID, newName)
}

// RenameSubCategory renames (categoryID, oldName) to newName and rewrites
// every matching category+sub_category mirror.
func (s *service) RenameSubCategory(ctx context.Context, ledgerID, categoryID uuid.UUID, oldName, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if ledgerID == uuid.Nil || categoryID == uuid.Nil || newName == "" {
		return 0, errs.ErrInvalid
	}
	sc, found, err := s.repo.SubCategoryByName(ctx, categoryID, oldName)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errs.ErrNotFound
	}
	return s.writer.RenameSubCategory(ctx, sc.ID, newName)
}

// MergeCategories reassigns every reference from the source categories to
// the target, moves sub-categories across, and deletes the sources.
func (s *service) MergeCategories(ctx context.Context, ledgerID uuid.UUID, targetName string, sourceNames []string) (int, error) {
	if ledgerID == uuid.Nil || strings.TrimSpace(targetName) == "" || len(sourceNames) == 0 {
		return 0, errs.ErrInvalid
	}
	targetID, err := s.EnsureCategoryExists(ctx, ledgerID, targetName)
	if err != nil {
		return 0, err
	}
	sourceIDs := make([]uuid.UUID, 0, len(sourceNames))
	for _, name := range sourceNames {
		c, found, err := s.repo.CategoryByName(ctx, ledgerID, name)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, errs.ErrNotFound
		}
		if c.ID == targetID {
			continue
		}
		sourceIDs = append(sourceIDs, c.ID)
	}
	if len(sourceIDs) == 0 {
		return 0, nil
	}
	return s.writer.MergeCategories(ctx, ledgerID, targetID, sourceIDs)
}

// DeleteCategory removes the category and cascades to its sub-categories
// only; transactions keep their text references.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteCategory(ctx, id)
}

func (s *service) CheckIfPayeeIsAccount(ctx context.Context, ledgerID uuid.UUID, name string) (bool, error) {
	v, found, err := s.repo.VendorByName(ctx, ledgerID, name)
	if err != nil {
		return false, err
	}
	return found && v.IsAccount, nil
}

// GetAccountCurrency resolves a name to its account row's currency.
func (s *service) GetAccountCurrency(ctx context.Context, ledgerID uuid.UUID, name string) (string, error) {
	v, found, err := s.repo.VendorByName(ctx, ledgerID, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errs.ErrNotFound
	}
	if !v.IsAccount {
		return "", errs.ErrNotAnAccount
	}
	a, err := s.repo.GetAccount(ctx, v.AccountID)
	if err != nil {
		return "", err
	}
	return a.Currency, nil
}

func (s *service) ListPayees(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Vendor, error) {
	if ledgerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListVendors(ctx, ledgerID)
}

func (s *service) ListCategories(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Category, error) {
	if ledgerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListCategories(ctx, ledgerID)
}

func (s *service) ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]ledger.SubCategory, error) {
	if categoryID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListSubCategories(ctx, categoryID)
}

func (s *service) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// UpdateAccount applies editable account fields. Currency changes go
// through SetAccountCurrency so mirrors stay in sync; attempting to change
// it here is rejected.
func (s *service) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if a.ID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	current, err := s.repo.GetAccount(ctx, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if a.Currency != "" && !strings.EqualFold(a.Currency, current.Currency) {
		return ledger.Account{}, errs.ErrImmutable
	}
	a.Currency = current.Currency
	a.LedgerID = current.LedgerID
	if !ledger.ValidAccountType(a.Type) {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.writer.UpdateAccount(ctx, a)
}
