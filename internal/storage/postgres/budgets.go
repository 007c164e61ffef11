package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

const budgetColumns = `id, ledger_id, category_id, category_name, sub_category_id, sub_category_name,
	target_amount_minor, currency, start_date, end_date, frequency, scope, scope_name,
	account_scope, account_scope_values, is_active, is_goal, created_at`

func scanBudget(row pgx.Row) (ledger.Budget, error) {
	var b ledger.Budget
	var categoryID, subCategoryID *uuid.UUID
	var targetMinor int64
	var scopeValues []string
	err := row.Scan(&b.ID, &b.LedgerID, &categoryID, &b.CategoryName, &subCategoryID, &b.SubCategoryName,
		&targetMinor, &b.Currency, &b.StartDate, &b.EndDate, &b.Frequency, &b.Scope, &b.ScopeName,
		&b.AccountScope, &scopeValues, &b.IsActive, &b.IsGoal, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Budget{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Budget{}, err
	}
	b.CategoryID = uuidVal(categoryID)
	b.SubCategoryID = uuidVal(subCategoryID)
	b.TargetAmount = amountOf(b.Currency, targetMinor)
	b.SpentAmount = amountOf(b.Currency, 0)
	for _, v := range scopeValues {
		b.AccountScopeValues = append(b.AccountScopeValues, ledger.AccountType(v))
	}
	return b, nil
}

func scopeValuesOf(b ledger.Budget) []string {
	out := make([]string, 0, len(b.AccountScopeValues))
	for _, v := range b.AccountScopeValues {
		out = append(out, string(v))
	}
	return out
}

func (s *Store) CreateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	_, err := s.pool.Exec(ctx, `
		insert into budgets (`+budgetColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, b.ID, b.LedgerID, uuidPtr(b.CategoryID), b.CategoryName, uuidPtr(b.SubCategoryID), b.SubCategoryName,
		minorOf(b.TargetAmount), b.Currency, b.StartDate, b.EndDate, string(b.Frequency),
		string(b.Scope), b.ScopeName, string(b.AccountScope), scopeValuesOf(b), b.IsActive, b.IsGoal, b.CreatedAt)
	if err != nil {
		return ledger.Budget{}, err
	}
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	ct, err := s.pool.Exec(ctx, `
		update budgets
		set category_id=$1, category_name=$2, sub_category_id=$3, sub_category_name=$4,
		    target_amount_minor=$5, currency=$6, start_date=$7, end_date=$8, frequency=$9,
		    scope=$10, scope_name=$11, account_scope=$12, account_scope_values=$13,
		    is_active=$14, is_goal=$15
		where id=$16
	`, uuidPtr(b.CategoryID), b.CategoryName, uuidPtr(b.SubCategoryID), b.SubCategoryName,
		minorOf(b.TargetAmount), b.Currency, b.StartDate, b.EndDate, string(b.Frequency),
		string(b.Scope), b.ScopeName, string(b.AccountScope), scopeValuesOf(b), b.IsActive, b.IsGoal, b.ID)
	if err != nil {
		return ledger.Budget{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBudget(ctx context.Context, id uuid.UUID) (ledger.Budget, error) {
	return scanBudget(s.pool.QueryRow(ctx, `
		select `+budgetColumns+` from budgets where id=$1
	`, id))
}

func (s *Store) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from budgets where id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListBudgets(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Budget, error) {
	rows, err := s.pool.Query(ctx, `
		select `+budgetColumns+` from budgets
		where ledger_id=$1 order by created_at asc, id asc
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Snapshot export/import ---

// ExportSnapshot reads every collection (optionally scoped to one ledger)
// inside a single repeatable-read transaction so the snapshot is
// point-in-time consistent.
func (s *Store) ExportSnapshot(ctx context.Context, ledgerID *uuid.UUID) (ledger.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return ledger.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap := ledger.Snapshot{Version: ledger.SnapshotVersion, ExportedAt: time.Now().UTC()}
	scope := func(clause string) (string, []any) {
		if ledgerID == nil {
			return "", nil
		}
		return " where " + clause + "=$1", []any{*ledgerID}
	}

	q, args := scope("id")
	rows, err := tx.Query(ctx, `select id, name, short_name, icon, currency, created_at, last_accessed from ledgers`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		var l ledger.Ledger
		if err := rows.Scan(&l.ID, &l.Name, &l.ShortName, &l.Icon, &l.Currency, &l.CreatedAt, &l.LastAccessed); err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.Ledgers = append(snap.Ledgers, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	q, args = scope("ledger_id")
	rows, err = tx.Query(ctx, `select id, ledger_id, name, is_account, account_id from vendors`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		var v ledger.Vendor
		var accountID *uuid.UUID
		if err := rows.Scan(&v.ID, &v.LedgerID, &v.Name, &v.IsAccount, &accountID); err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		v.AccountID = uuidVal(accountID)
		snap.Vendors = append(snap.Vendors, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, `select id, ledger_id, currency, starting_balance_minor, remarks, type, credit_limit_minor, metadata from accounts`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.Accounts = append(snap.Accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, `select id, ledger_id, name, created_at from categories`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.LedgerID, &c.Name, &c.CreatedAt); err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.Categories = append(snap.Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, `select id, ledger_id, category_id, name, created_at from sub_categories`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		var sc ledger.SubCategory
		if err := rows.Scan(&sc.ID, &sc.LedgerID, &sc.CategoryID, &sc.Name, &sc.CreatedAt); err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.SubCategories = append(snap.SubCategories, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, `select `+txColumns+` from transactions`+q+` order by date asc, id asc`, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, `select `+schedColumns+` from scheduled_transactions`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.ScheduledTransactions = append(snap.ScheduledTransactions, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, `select `+budgetColumns+` from budgets`+q, args...)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return ledger.Snapshot{}, err
		}
		snap.Budgets = append(snap.Budgets, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

// ImportSnapshot upserts every row of the snapshot in a single transaction.
func (s *Store) ImportSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, l := range snap.Ledgers {
		if _, err := tx.Exec(ctx, `
			insert into ledgers (id, name, short_name, icon, currency, created_at, last_accessed)
			values ($1,$2,$3,$4,$5,$6,$7)
			on conflict (id) do update
			set name=excluded.name, short_name=excluded.short_name, icon=excluded.icon,
			    currency=excluded.currency, last_accessed=excluded.last_accessed
		`, l.ID, l.Name, l.ShortName, l.Icon, l.Currency, l.CreatedAt, l.LastAccessed); err != nil {
			return err
		}
	}
	for _, v := range snap.Vendors {
		if _, err := tx.Exec(ctx, `
			insert into vendors (id, ledger_id, name, is_account, account_id)
			values ($1,$2,$3,$4,$5)
			on conflict (id) do update
			set ledger_id=excluded.ledger_id, name=excluded.name,
			    is_account=excluded.is_account, account_id=excluded.account_id
		`, v.ID, v.LedgerID, v.Name, v.IsAccount, uuidPtr(v.AccountID)); err != nil {
			return err
		}
	}
	for _, a := range snap.Accounts {
		var creditMinor *int64
		if a.CreditLimit != nil {
			limit := minorOf(*a.CreditLimit)
			creditMinor = &limit
		}
		if _, err := tx.Exec(ctx, `
			insert into accounts (id, ledger_id, currency, starting_balance_minor, remarks, type, credit_limit_minor, metadata)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
			on conflict (id) do update
			set ledger_id=excluded.ledger_id, currency=excluded.currency,
			    starting_balance_minor=excluded.starting_balance_minor, remarks=excluded.remarks,
			    type=excluded.type, credit_limit_minor=excluded.credit_limit_minor, metadata=excluded.metadata
		`, a.ID, a.LedgerID, a.Currency, minorOf(a.StartingBalance), a.Remarks, a.Type, creditMinor, metaBytes(a.Metadata)); err != nil {
			return err
		}
	}
	for _, c := range snap.Categories {
		if _, err := tx.Exec(ctx, `
			insert into categories (id, ledger_id, name, created_at)
			values ($1,$2,$3,$4)
			on conflict (id) do update set ledger_id=excluded.ledger_id, name=excluded.name
		`, c.ID, c.LedgerID, c.Name, c.CreatedAt); err != nil {
			return err
		}
	}
	for _, sc := range snap.SubCategories {
		if _, err := tx.Exec(ctx, `
			insert into sub_categories (id, ledger_id, category_id, name, created_at)
			values ($1,$2,$3,$4,$5)
			on conflict (id) do update
			set ledger_id=excluded.ledger_id, category_id=excluded.category_id, name=excluded.name
		`, sc.ID, sc.LedgerID, sc.CategoryID, sc.Name, sc.CreatedAt); err != nil {
			return err
		}
	}
	for _, t := range snap.Transactions {
		if _, err := tx.Exec(ctx, `
			insert into transactions (`+txColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			on conflict (id) do update
			set ledger_id=excluded.ledger_id, date=excluded.date, amount_minor=excluded.amount_minor,
			    currency=excluded.currency, account=excluded.account, vendor=excluded.vendor,
			    category=excluded.category, sub_category=excluded.sub_category, remarks=excluded.remarks,
			    transfer_id=excluded.transfer_id, recurrence_id=excluded.recurrence_id,
			    recurrence_frequency=excluded.recurrence_frequency, recurrence_end_date=excluded.recurrence_end_date,
			    is_scheduled_origin=excluded.is_scheduled_origin, metadata=excluded.metadata
		`, t.ID, t.LedgerID, t.Date, minorOf(t.Amount), t.Currency, t.Account, t.Vendor,
			t.Category, t.SubCategory, t.Remarks, uuidPtr(t.TransferID), uuidPtr(t.RecurrenceID),
			string(t.RecurrenceFrequency), t.RecurrenceEndDate, t.IsScheduledOrigin, metaBytes(t.Metadata), t.CreatedAt); err != nil {
			return err
		}
	}
	for _, st := range snap.ScheduledTransactions {
		if _, err := tx.Exec(ctx, `
			insert into scheduled_transactions (`+schedColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			on conflict (id) do update
			set ledger_id=excluded.ledger_id, date=excluded.date, amount_minor=excluded.amount_minor,
			    currency=excluded.currency, account=excluded.account, vendor=excluded.vendor,
			    category=excluded.category, sub_category=excluded.sub_category, remarks=excluded.remarks,
			    frequency=excluded.frequency, end_date=excluded.end_date
		`, st.ID, st.LedgerID, st.Date, minorOf(st.Amount), st.Currency, st.Account, st.Vendor,
			st.Category, st.SubCategory, st.Remarks, string(st.Frequency), st.EndDate, st.CreatedAt); err != nil {
			return err
		}
	}
	for _, b := range snap.Budgets {
		if _, err := tx.Exec(ctx, `
			insert into budgets (`+budgetColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			on conflict (id) do update
			set ledger_id=excluded.ledger_id, category_id=excluded.category_id, category_name=excluded.category_name,
			    sub_category_id=excluded.sub_category_id, sub_category_name=excluded.sub_category_name,
			    target_amount_minor=excluded.target_amount_minor, currency=excluded.currency,
			    start_date=excluded.start_date, end_date=excluded.end_date, frequency=excluded.frequency,
			    scope=excluded.scope, scope_name=excluded.scope_name, account_scope=excluded.account_scope,
			    account_scope_values=excluded.account_scope_values, is_active=excluded.is_active, is_goal=excluded.is_goal
		`, b.ID, b.LedgerID, uuidPtr(b.CategoryID), b.CategoryName, uuidPtr(b.SubCategoryID), b.SubCategoryName,
			minorOf(b.TargetAmount), b.Currency, b.StartDate, b.EndDate, string(b.Frequency),
			string(b.Scope), b.ScopeName, string(b.AccountScope), scopeValuesOf(b), b.IsActive, b.IsGoal, b.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
