// Package postgres provides a pgx-backed storage implementation satisfying
// the repository and writer interfaces used by the services.
//
// Migrations creating the expected schema live under db/migrations. Every
// cascade runs as bulk UPDATE statements inside a single transaction, so a
// failure rolls the whole operation back.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/meta"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func uuidPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func uuidVal(p *uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

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

func metaBytes(m meta.Metadata) []byte {
	if len(m) == 0 {
		return nil
	}
	b, _ := m.MarshalStableJSON()
	return b
}

func metaFrom(b []byte) meta.Metadata {
	if len(b) == 0 {
		return nil
	}
	var m meta.Metadata
	if err := m.UnmarshalJSON(b); err != nil {
		return nil
	}
	return m
}

// --- Ledgers ---

func (s *Store) CreateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error) {
	_, err := s.pool.Exec(ctx, `
		insert into ledgers (id, name, short_name, icon, currency, created_at, last_accessed)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, l.ID, l.Name, l.ShortName, l.Icon, strings.ToUpper(l.Currency), l.CreatedAt, l.LastAccessed)
	if err != nil {
		return ledger.Ledger{}, err
	}
	return l, nil
}

func (s *Store) UpdateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error) {
	ct, err := s.pool.Exec(ctx, `
		update ledgers set name=$1, short_name=$2, icon=$3, currency=$4, last_accessed=$5
		where id=$6
	`, l.Name, l.ShortName, l.Icon, strings.ToUpper(l.Currency), l.LastAccessed, l.ID)
	if err != nil {
		return ledger.Ledger{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Ledger{}, errs.ErrNotFound
	}
	return l, nil
}

func (s *Store) GetLedger(ctx context.Context, id uuid.UUID) (ledger.Ledger, error) {
	var l ledger.Ledger
	err := s.pool.QueryRow(ctx, `
		select id, name, short_name, icon, currency, created_at, last_accessed
		from ledgers where id = $1
	`, id).Scan(&l.ID, &l.Name, &l.ShortName, &l.Icon, &l.Currency, &l.CreatedAt, &l.LastAccessed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Ledger{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Ledger{}, err
	}
	return l, nil
}

func (s *Store) ListLedgers(ctx context.Context) ([]ledger.Ledger, error) {
	rows, err := s.pool.Query(ctx, `
		select id, name, short_name, icon, currency, created_at, last_accessed
		from ledgers order by name asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Ledger, 0)
	for rows.Next() {
		var l ledger.Ledger
		if err := rows.Scan(&l.ID, &l.Name, &l.ShortName, &l.Icon, &l.Currency, &l.CreatedAt, &l.LastAccessed); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLedgerCascade removes the ledger row and every scoped row in one
// transaction. Returns the number of scoped rows removed.
func (s *Store) DeleteLedgerCascade(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `delete from ledgers where id=$1`, id)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, errs.ErrNotFound
	}
	removed := 0
	for _, table := range []string{
		"vendors", "accounts", "categories", "sub_categories",
		"transactions", "scheduled_transactions", "budgets",
	} {
		ct, err := tx.Exec(ctx, `delete from `+table+` where ledger_id=$1`, id)
		if err != nil {
			return 0, err
		}
		removed += int(ct.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

// --- Vendors and accounts ---

func (s *Store) VendorByName(ctx context.Context, ledgerID uuid.UUID, name string) (ledger.Vendor, bool, error) {
	var v ledger.Vendor
	var accountID *uuid.UUID
	err := s.pool.QueryRow(ctx, `
		select id, ledger_id, name, is_account, account_id
		from vendors where ledger_id=$1 and btrim(name)=$2
	`, ledgerID, ledger.NameKey(name)).Scan(&v.ID, &v.LedgerID, &v.Name, &v.IsAccount, &accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Vendor{}, false, nil
	}
	if err != nil {
		return ledger.Vendor{}, false, err
	}
	v.AccountID = uuidVal(accountID)
	return v, true, nil
}

func (s *Store) GetVendor(ctx context.Context, id uuid.UUID) (ledger.Vendor, error) {
	var v ledger.Vendor
	var accountID *uuid.UUID
	err := s.pool.QueryRow(ctx, `
		select id, ledger_id, name, is_account, account_id from vendors where id=$1
	`, id).Scan(&v.ID, &v.LedgerID, &v.Name, &v.IsAccount, &accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Vendor{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Vendor{}, err
	}
	v.AccountID = uuidVal(accountID)
	return v, nil
}

func (s *Store) ListVendors(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Vendor, error) {
	rows, err := s.pool.Query(ctx, `
		select id, ledger_id, name, is_account, account_id
		from vendors where ledger_id=$1 order by name asc
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Vendor, 0)
	for rows.Next() {
		var v ledger.Vendor
		var accountID *uuid.UUID
		if err := rows.Scan(&v.ID, &v.LedgerID, &v.Name, &v.IsAccount, &accountID); err != nil {
			return nil, err
		}
		v.AccountID = uuidVal(accountID)
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var balanceMinor int64
	var creditMinor *int64
	var mdBytes []byte
	err := row.Scan(&a.ID, &a.LedgerID, &a.Currency, &balanceMinor, &a.Remarks, &a.Type, &creditMinor, &mdBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Account{}, err
	}
	a.StartingBalance = amountOf(a.Currency, balanceMinor)
	if creditMinor != nil {
		limit := amountOf(a.Currency, *creditMinor)
		a.CreditLimit = &limit
	}
	a.Metadata = metaFrom(mdBytes)
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		select id, ledger_id, currency, starting_balance_minor, remarks, type, credit_limit_minor, metadata
		from accounts where id=$1
	`, id))
}

func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := a.Metadata.Validate(); err != nil {
		return ledger.Account{}, err
	}
	var creditMinor *int64
	if a.CreditLimit != nil {
		limit := minorOf(*a.CreditLimit)
		creditMinor = &limit
	}
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set starting_balance_minor=$1, remarks=$2, type=$3, credit_limit_minor=$4, metadata=$5
		where id=$6
	`, minorOf(a.StartingBalance), a.Remarks, a.Type, creditMinor, metaBytes(a.Metadata), a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func insertAccount(ctx context.Context, tx pgx.Tx, a ledger.Account) error {
	var creditMinor *int64
	if a.CreditLimit != nil {
		limit := minorOf(*a.CreditLimit)
		creditMinor = &limit
	}
	_, err := tx.Exec(ctx, `
		insert into accounts (id, ledger_id, currency, starting_balance_minor, remarks, type, credit_limit_minor, metadata)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.LedgerID, strings.ToUpper(a.Currency), minorOf(a.StartingBalance), a.Remarks, a.Type, creditMinor, metaBytes(a.Metadata))
	return err
}

// CreateVendor inserts the vendor row and, when acct is non-nil, its owned
// account row in the same transaction.
func (s *Store) CreateVendor(ctx context.Context, v ledger.Vendor, acct *ledger.Account) (ledger.Vendor, error) {
	if _, found, err := s.VendorByName(ctx, v.LedgerID, v.Name); err != nil {
		return ledger.Vendor{}, err
	} else if found {
		return ledger.Vendor{}, errs.ErrConflict
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Vendor{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if acct != nil {
		v.IsAccount = true
		v.AccountID = acct.ID
		if err := insertAccount(ctx, tx, *acct); err != nil {
			return ledger.Vendor{}, err
		}
	}
	if _, err := tx.Exec(ctx, `
		insert into vendors (id, ledger_id, name, is_account, account_id)
		values ($1,$2,$3,$4,$5)
	`, v.ID, v.LedgerID, v.Name, v.IsAccount, uuidPtr(v.AccountID)); err != nil {
		return ledger.Vendor{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Vendor{}, err
	}
	return v, nil
}

// PromoteVendor flips a payee to an account, creating the owned account row.
// Promoting an existing account is a no-op.
func (s *Store) PromoteVendor(ctx context.Context, vendorID uuid.UUID, acct ledger.Account) (ledger.Vendor, error) {
	v, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return ledger.Vendor{}, err
	}
	if v.IsAccount {
		return v, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Vendor{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	acct.LedgerID = v.LedgerID
	if err := insertAccount(ctx, tx, acct); err != nil {
		return ledger.Vendor{}, err
	}
	if _, err := tx.Exec(ctx, `
		update vendors set is_account=true, account_id=$1 where id=$2
	`, acct.ID, vendorID); err != nil {
		return ledger.Vendor{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Vendor{}, err
	}
	v.IsAccount = true
	v.AccountID = acct.ID
	return v, nil
}

// RenameVendor renames the row and rewrites every name mirror in bulk:
// transaction account/vendor columns, scheduled rows, and account- or
// vendor-scoped budgets.
func (s *Store) RenameVendor(ctx context.Context, vendorID uuid.UUID, newName string) (int, error) {
	v, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return 0, err
	}
	oldKey := ledger.NameKey(v.Name)
	newKey := ledger.NameKey(newName)
	if other, found, err := s.VendorByName(ctx, v.LedgerID, newKey); err != nil {
		return 0, err
	} else if found && other.ID != vendorID {
		return 0, errs.ErrConflict
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	rewritten := 0
	ct, err := tx.Exec(ctx, `
		update transactions
		set account = case when btrim(account)=$1 then $2 else account end,
		    vendor  = case when btrim(vendor)=$1 then $2 else vendor end
		where ledger_id=$3 and (btrim(account)=$1 or btrim(vendor)=$1)
	`, oldKey, newName, v.LedgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update scheduled_transactions
		set account = case when btrim(account)=$1 then $2 else account end,
		    vendor  = case when btrim(vendor)=$1 then $2 else vendor end
		where ledger_id=$3 and (btrim(account)=$1 or btrim(vendor)=$1)
	`, oldKey, newName, v.LedgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update budgets set scope_name=$2
		where ledger_id=$3 and scope in ('account','vendor') and btrim(scope_name)=$1
	`, oldKey, newName, v.LedgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	if _, err := tx.Exec(ctx, `update vendors set name=$1 where id=$2`, newName, vendorID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// SetAccountCurrency updates the account row's currency and propagates it to
// every transaction and scheduled transaction using that account name.
func (s *Store) SetAccountCurrency(ctx context.Context, vendorID uuid.UUID, currency string) (int, error) {
	v, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return 0, err
	}
	if !v.IsAccount {
		return 0, errs.ErrNotAnAccount
	}
	nameKey := ledger.NameKey(v.Name)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `update accounts set currency=$1 where id=$2`, currency, v.AccountID); err != nil {
		return 0, err
	}
	rewritten := 0
	ct, err := tx.Exec(ctx, `
		update transactions set currency=$1 where ledger_id=$2 and btrim(account)=$3
	`, currency, v.LedgerID, nameKey)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update scheduled_transactions set currency=$1 where ledger_id=$2 and btrim(account)=$3
	`, currency, v.LedgerID, nameKey)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// MergeVendors reassigns every reference from the source names to the target
// name in bulk, then deletes the source vendors and their owned accounts.
func (s *Store) MergeVendors(ctx context.Context, ledgerID, targetID uuid.UUID, sourceIDs []uuid.UUID) (int, error) {
	target, err := s.GetVendor(ctx, targetID)
	if err != nil || target.LedgerID != ledgerID {
		return 0, errs.ErrNotFound
	}
	sourceKeys := make([]string, 0, len(sourceIDs))
	ids := make([]uuid.UUID, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		if sid == targetID {
			continue
		}
		sv, err := s.GetVendor(ctx, sid)
		if err != nil || sv.LedgerID != ledgerID {
			return 0, errs.ErrNotFound
		}
		sourceKeys = append(sourceKeys, ledger.NameKey(sv.Name))
		ids = append(ids, sid)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	rewritten := 0
	ct, err := tx.Exec(ctx, `
		update transactions
		set account = case when btrim(account) = any($1) then $2 else account end,
		    vendor  = case when btrim(vendor)  = any($1) then $2 else vendor end
		where ledger_id=$3 and (btrim(account) = any($1) or btrim(vendor) = any($1))
	`, sourceKeys, target.Name, ledgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update scheduled_transactions
		set account = case when btrim(account) = any($1) then $2 else account end,
		    vendor  = case when btrim(vendor)  = any($1) then $2 else vendor end
		where ledger_id=$3 and (btrim(account) = any($1) or btrim(vendor) = any($1))
	`, sourceKeys, target.Name, ledgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update budgets set scope_name=$2
		where ledger_id=$3 and scope in ('account','vendor') and btrim(scope_name) = any($1)
	`, sourceKeys, target.Name, ledgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	if _, err := tx.Exec(ctx, `
		delete from accounts where id in (select account_id from vendors where id = any($1) and account_id is not null)
	`, ids); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `delete from vendors where id = any($1)`, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// DeleteVendor removes the vendor row and its owned account, if any.
// Historical transactions keep their text references.
func (s *Store) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	v, err := s.GetVendor(ctx, id)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if v.IsAccount {
		if _, err := tx.Exec(ctx, `delete from accounts where id=$1`, v.AccountID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `delete from vendors where id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Categories and sub-categories ---

func (s *Store) CategoryByName(ctx context.Context, ledgerID uuid.UUID, name string) (ledger.Category, bool, error) {
	var c ledger.Category
	err := s.pool.QueryRow(ctx, `
		select id, ledger_id, name, created_at from categories
		where ledger_id=$1 and btrim(name)=$2
	`, ledgerID, ledger.NameKey(name)).Scan(&c.ID, &c.LedgerID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Category{}, false, nil
	}
	if err != nil {
		return ledger.Category{}, false, err
	}
	return c, true, nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (ledger.Category, error) {
	var c ledger.Category
	err := s.pool.QueryRow(ctx, `
		select id, ledger_id, name, created_at from categories where id=$1
	`, id).Scan(&c.ID, &c.LedgerID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Category{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Category{}, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Category, error) {
	rows, err := s.pool.Query(ctx, `
		select id, ledger_id, name, created_at from categories
		where ledger_id=$1 order by name asc
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Category, 0)
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.LedgerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error) {
	if _, found, err := s.CategoryByName(ctx, c.LedgerID, c.Name); err != nil {
		return ledger.Category{}, err
	} else if found {
		return ledger.Category{}, errs.ErrConflict
	}
	_, err := s.pool.Exec(ctx, `
		insert into categories (id, ledger_id, name, created_at) values ($1,$2,$3,$4)
	`, c.ID, c.LedgerID, c.Name, c.CreatedAt)
	if err != nil {
		return ledger.Category{}, err
	}
	return c, nil
}

func (s *Store) SubCategoryByName(ctx context.Context, categoryID uuid.UUID, name string) (ledger.SubCategory, bool, error) {
	var sc ledger.SubCategory
	err := s.pool.QueryRow(ctx, `
		select id, ledger_id, category_id, name, created_at from sub_categories
		where category_id=$1 and btrim(name)=$2
	`, categoryID, ledger.NameKey(name)).Scan(&sc.ID, &sc.LedgerID, &sc.CategoryID, &sc.Name, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.SubCategory{}, false, nil
	}
	if err != nil {
		return ledger.SubCategory{}, false, err
	}
	return sc, true, nil
}

func (s *Store) GetSubCategory(ctx context.Context, id uuid.UUID) (ledger.SubCategory, error) {
	var sc ledger.SubCategory
	err := s.pool.QueryRow(ctx, `
		select id, ledger_id, category_id, name, created_at from sub_categories where id=$1
	`, id).Scan(&sc.ID, &sc.LedgerID, &sc.CategoryID, &sc.Name, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.SubCategory{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.SubCategory{}, err
	}
	return sc, nil
}

func (s *Store) ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]ledger.SubCategory, error) {
	rows, err := s.pool.Query(ctx, `
		select id, ledger_id, category_id, name, created_at from sub_categories
		where category_id=$1 order by name asc
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.SubCategory, 0)
	for rows.Next() {
		var sc ledger.SubCategory
		if err := rows.Scan(&sc.ID, &sc.LedgerID, &sc.CategoryID, &sc.Name, &sc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) CreateSubCategory(ctx context.Context, sc ledger.SubCategory) (ledger.SubCategory, error) {
	if _, found, err := s.SubCategoryByName(ctx, sc.CategoryID, sc.Name); err != nil {
		return ledger.SubCategory{}, err
	} else if found {
		return ledger.SubCategory{}, errs.ErrConflict
	}
	_, err := s.pool.Exec(ctx, `
		insert into sub_categories (id, ledger_id, category_id, name, created_at)
		values ($1,$2,$3,$4,$5)
	`, sc.ID, sc.LedgerID, sc.CategoryID, sc.Name, sc.CreatedAt)
	if err != nil {
		return ledger.SubCategory{}, err
	}
	return sc, nil
}

// RenameCategory renames the row and rewrites transaction/scheduled category
// mirrors plus category-scoped budget names in bulk.
func (s *Store) RenameCategory(ctx context.Context, categoryID uuid.UUID, newName string) (int, error) {
	c, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	oldKey := ledger.NameKey(c.Name)
	if other, found, err := s.CategoryByName(ctx, c.LedgerID, newName); err != nil {
		return 0, err
	} else if found && other.ID != categoryID {
		return 0, errs.ErrConflict
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	rewritten := 0
	ct, err := tx.Exec(ctx, `
		update transactions set category=$2 where ledger_id=$3 and btrim(category)=$1
	`, oldKey, newName, c.LedgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update scheduled_transactions set category=$2 where ledger_id=$3 and btrim(category)=$1
	`, oldKey, newName, c.LedgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update budgets
		set category_name = case when category_id=$1 then $2 else category_name end,
		    scope_name    = case when scope='category' and btrim(scope_name)=$3 then $2 else scope_name end
		where ledger_id=$4 and (category_id=$1 or (scope='category' and btrim(scope_name)=$3))
	`, categoryID, newName, oldKey, c.LedgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	if _, err := tx.Exec(ctx, `update categories set name=$1 where id=$2`, newName, categoryID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// RenameSubCategory renames the row and rewrites rows matching the parent
// category name plus the old sub-category name.
func (s *Store) RenameSubCategory(ctx context.Context, subID uuid.UUID, newName string) (int, error) {
	sc, err := s.GetSubCategory(ctx, subID)
	if err != nil {
		return 0, err
	}
	parent, err := s.GetCategory(ctx, sc.CategoryID)
	if err != nil {
		return 0, err
	}
	oldKey := ledger.NameKey(sc.Name)
	catKey := ledger.NameKey(parent.Name)
	if other, found, err := s.SubCategoryByName(ctx, sc.CategoryID, newName); err != nil {
		return 0, err
	} else if found && other.ID != subID {
		return 0, errs.ErrConflict
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	rewritten := 0
	ct, err := tx.Exec(ctx, `
		update transactions set sub_category=$2
		where ledger_id=$3 and btrim(category)=$4 and btrim(sub_category)=$1
	`, oldKey, newName, sc.LedgerID, catKey)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update scheduled_transactions set sub_category=$2
		where ledger_id=$3 and btrim(category)=$4 and btrim(sub_category)=$1
	`, oldKey, newName, sc.LedgerID, catKey)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update budgets set sub_category_name=$1 where sub_category_id=$2
	`, newName, subID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	if _, err := tx.Exec(ctx, `update sub_categories set name=$1 where id=$2`, newName, subID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// MergeCategories reassigns references to the target, moves sub-categories
// across (collapsing same-name duplicates), then deletes the sources.
func (s *Store) MergeCategories(ctx context.Context, ledgerID, targetID uuid.UUID, sourceIDs []uuid.UUID) (int, error) {
	target, err := s.GetCategory(ctx, targetID)
	if err != nil || target.LedgerID != ledgerID {
		return 0, errs.ErrNotFound
	}
	sourceKeys := make([]string, 0, len(sourceIDs))
	ids := make([]uuid.UUID, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		if sid == targetID {
			continue
		}
		sc, err := s.GetCategory(ctx, sid)
		if err != nil || sc.LedgerID != ledgerID {
			return 0, errs.ErrNotFound
		}
		sourceKeys = append(sourceKeys, ledger.NameKey(sc.Name))
		ids = append(ids, sid)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	rewritten := 0
	ct, err := tx.Exec(ctx, `
		update transactions set category=$2 where ledger_id=$3 and btrim(category) = any($1)
	`, sourceKeys, target.Name, ledgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update scheduled_transactions set category=$2 where ledger_id=$3 and btrim(category) = any($1)
	`, sourceKeys, target.Name, ledgerID)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	ct, err = tx.Exec(ctx, `
		update budgets
		set category_id=$2, category_name=$3,
		    scope_name = case when scope='category' and btrim(scope_name) = any($1) then $3 else scope_name end
		where ledger_id=$4 and (category_id = any($5) or (scope='category' and btrim(scope_name) = any($1)))
	`, sourceKeys, targetID, target.Name, ledgerID, ids)
	if err != nil {
		return 0, err
	}
	rewritten += int(ct.RowsAffected())
	// duplicate sub-category names collapse into the target's existing row
	if _, err := tx.Exec(ctx, `
		delete from sub_categories src
		where src.category_id = any($1)
		  and exists (
			select 1 from sub_categories dst
			where dst.category_id=$2 and btrim(dst.name)=btrim(src.name)
		  )
	`, ids, targetID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
		update sub_categories set category_id=$1 where category_id = any($2)
	`, targetID, ids); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `delete from categories where id = any($1)`, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rewritten, nil
}

// DeleteCategory removes the category and its sub-categories. Transactions
// keep their text references.
func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from sub_categories where category_id=$1`, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `delete from categories where id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return tx.Commit(ctx)
}

// SeedDev inserts a demo ledger with a couple of accounts and categories for
// quick local testing.
func (s *Store) SeedDev(ctx context.Context) (ledger.Ledger, error) {
	now := time.Now().UTC()
	l := ledger.Ledger{ID: uuid.New(), Name: "Demo Ledger", ShortName: "demo", Currency: "USD", CreatedAt: now, LastAccessed: now}
	if _, err := s.CreateLedger(ctx, l); err != nil {
		return ledger.Ledger{}, err
	}
	for _, name := range []string{"Checking", "Savings"} {
		acctID := uuid.New()
		zero, _ := money.NewAmountFromMinorUnits("USD", 0)
		_, err := s.CreateVendor(ctx,
			ledger.Vendor{ID: uuid.New(), LedgerID: l.ID, Name: name, IsAccount: true, AccountID: acctID},
			&ledger.Account{ID: acctID, LedgerID: l.ID, Currency: "USD", StartingBalance: zero, Type: ledger.AccountTypeChecking})
		if err != nil {
			return ledger.Ledger{}, err
		}
	}
	for _, name := range []string{"Groceries", "Rent", "Transfer"} {
		if _, err := s.CreateCategory(ctx, ledger.Category{ID: uuid.New(), LedgerID: l.ID, Name: name, CreatedAt: now}); err != nil {
			return ledger.Ledger{}, err
		}
	}
	return l, nil
}
