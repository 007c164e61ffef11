package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

const txColumns = `id, ledger_id, date, amount_minor, currency, account, vendor, category,
	sub_category, remarks, transfer_id, recurrence_id, recurrence_frequency,
	recurrence_end_date, is_scheduled_origin, metadata, created_at`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var t ledger.Transaction
	var minor int64
	var transferID, recurrenceID *uuid.UUID
	var mdBytes []byte
	err := row.Scan(&t.ID, &t.LedgerID, &t.Date, &minor, &t.Currency, &t.Account, &t.Vendor,
		&t.Category, &t.SubCategory, &t.Remarks, &transferID, &recurrenceID,
		&t.RecurrenceFrequency, &t.RecurrenceEndDate, &t.IsScheduledOrigin, &mdBytes, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	t.Amount = amountOf(t.Currency, minor)
	t.TransferID = uuidVal(transferID)
	t.RecurrenceID = uuidVal(recurrenceID)
	t.Metadata = metaFrom(mdBytes)
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if err := t.Metadata.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	_, err := s.pool.Exec(ctx, `
		insert into transactions (`+txColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, t.ID, t.LedgerID, t.Date, minorOf(t.Amount), strings.ToUpper(t.Currency),
		t.Account, t.Vendor, t.Category, t.SubCategory, t.Remarks,
		uuidPtr(t.TransferID), uuidPtr(t.RecurrenceID), string(t.RecurrenceFrequency),
		t.RecurrenceEndDate, t.IsScheduledOrigin, metaBytes(t.Metadata), t.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if err := t.Metadata.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	ct, err := s.pool.Exec(ctx, `
		update transactions
		set date=$1, amount_minor=$2, currency=$3, account=$4, vendor=$5, category=$6,
		    sub_category=$7, remarks=$8, transfer_id=$9, recurrence_id=$10,
		    recurrence_frequency=$11, recurrence_end_date=$12, is_scheduled_origin=$13, metadata=$14
		where id=$15
	`, t.Date, minorOf(t.Amount), strings.ToUpper(t.Currency), t.Account, t.Vendor, t.Category,
		t.SubCategory, t.Remarks, uuidPtr(t.TransferID), uuidPtr(t.RecurrenceID),
		string(t.RecurrenceFrequency), t.RecurrenceEndDate, t.IsScheduledOrigin, metaBytes(t.Metadata), t.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, `
		select `+txColumns+` from transactions where id=$1
	`, id))
}

func (s *Store) ListTransactions(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+txColumns+` from transactions
		where ledger_id=$1 order by date asc, id asc
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from transactions where id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteTransactions removes all ids in one transaction; any unknown id
// aborts the whole delete.
func (s *Store) DeleteTransactions(ctx context.Context, ids []uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `delete from transactions where id = any($1)`, ids)
	if err != nil {
		return err
	}
	if int(ct.RowsAffected()) != len(ids) {
		return errs.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) TransactionsByTransfer(ctx context.Context, transferID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+txColumns+` from transactions
		where transfer_id=$1 order by date asc, id asc
	`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTransactionsByTransfer(ctx context.Context, transferID uuid.UUID) (int, error) {
	ct, err := s.pool.Exec(ctx, `delete from transactions where transfer_id=$1`, transferID)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, errs.ErrNotTransfer
	}
	return int(ct.RowsAffected()), nil
}

// LinkTransfer stamps both rows with the transfer id and category in one
// statement.
func (s *Store) LinkTransfer(ctx context.Context, id1, id2, transferID uuid.UUID, category string) error {
	ct, err := s.pool.Exec(ctx, `
		update transactions set transfer_id=$1, category=$2, sub_category=''
		where id = any($3)
	`, transferID, category, []uuid.UUID{id1, id2})
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 2 {
		return errs.ErrNotFound
	}
	return nil
}

// UnlinkTransfer clears the transfer id on every member with one bulk
// predicate-based update.
func (s *Store) UnlinkTransfer(ctx context.Context, transferID uuid.UUID) (int, error) {
	ct, err := s.pool.Exec(ctx, `
		update transactions set transfer_id=null where transfer_id=$1
	`, transferID)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, errs.ErrNotTransfer
	}
	return int(ct.RowsAffected()), nil
}

// --- Scheduled transactions ---

const schedColumns = `id, ledger_id, date, amount_minor, currency, account, vendor, category,
	sub_category, remarks, frequency, end_date, created_at`

func scanScheduled(row pgx.Row) (ledger.ScheduledTransaction, error) {
	var st ledger.ScheduledTransaction
	var minor int64
	err := row.Scan(&st.ID, &st.LedgerID, &st.Date, &minor, &st.Currency, &st.Account,
		&st.Vendor, &st.Category, &st.SubCategory, &st.Remarks, &st.Frequency, &st.EndDate, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ScheduledTransaction{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.ScheduledTransaction{}, err
	}
	st.Amount = amountOf(st.Currency, minor)
	return st, nil
}

func (s *Store) CreateScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error) {
	_, err := s.pool.Exec(ctx, `
		insert into scheduled_transactions (`+schedColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, st.ID, st.LedgerID, st.Date, minorOf(st.Amount), strings.ToUpper(st.Currency),
		st.Account, st.Vendor, st.Category, st.SubCategory, st.Remarks,
		string(st.Frequency), st.EndDate, st.CreatedAt)
	if err != nil {
		return ledger.ScheduledTransaction{}, err
	}
	return st, nil
}

func (s *Store) UpdateScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error) {
	ct, err := s.pool.Exec(ctx, `
		update scheduled_transactions
		set date=$1, amount_minor=$2, currency=$3, account=$4, vendor=$5, category=$6,
		    sub_category=$7, remarks=$8, frequency=$9, end_date=$10
		where id=$11
	`, st.Date, minorOf(st.Amount), strings.ToUpper(st.Currency), st.Account, st.Vendor,
		st.Category, st.SubCategory, st.Remarks, string(st.Frequency), st.EndDate, st.ID)
	if err != nil {
		return ledger.ScheduledTransaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ScheduledTransaction{}, errs.ErrNotFound
	}
	return st, nil
}

func (s *Store) GetScheduled(ctx context.Context, id uuid.UUID) (ledger.ScheduledTransaction, error) {
	return scanScheduled(s.pool.QueryRow(ctx, `
		select `+schedColumns+` from scheduled_transactions where id=$1
	`, id))
}

func (s *Store) DeleteScheduled(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from scheduled_transactions where id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ListScheduled(ctx context.Context, ledgerID uuid.UUID) ([]ledger.ScheduledTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+schedColumns+` from scheduled_transactions
		where ledger_id=$1 order by date asc, id asc
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.ScheduledTransaction, 0)
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
