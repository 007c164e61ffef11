// Package book implements the transaction-side facade: creating, updating
// and deleting transactions and scheduled transactions, and linking and
// unlinking transfer pairs. Every write path runs the ensure-* operations
// first so no row ever references a nonexistent vendor or category name.
package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrajesh/budget-it-sub000/internal/dictionary"
	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/recurrence"
	"github.com/nrajesh/budget-it-sub000/internal/service/catalog"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error)
	ListTransactions(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Transaction, error)
	TransactionsByTransfer(ctx context.Context, transferID uuid.UUID) ([]ledger.Transaction, error)
	GetScheduled(ctx context.Context, id uuid.UUID) (ledger.ScheduledTransaction, error)
	ListScheduled(ctx context.Context, ledgerID uuid.UUID) ([]ledger.ScheduledTransaction, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	DeleteTransactions(ctx context.Context, ids []uuid.UUID) error
	DeleteTransactionsByTransfer(ctx context.Context, transferID uuid.UUID) (int, error)
	LinkTransfer(ctx context.Context, id1, id2, transferID uuid.UUID, category string) error
	UnlinkTransfer(ctx context.Context, transferID uuid.UUID) (int, error)
	CreateScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error)
	UpdateScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error)
	DeleteScheduled(ctx context.Context, id uuid.UUID) error
}

// Service exposes the transaction facade.
type Service interface {
	AddTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	DeleteTransactions(ctx context.Context, ids []uuid.UUID) error
	DeleteByTransferID(ctx context.Context, transferID uuid.UUID) (int, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error)
	ListTransactions(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Transaction, error)
	LinkTransactionsAsTransfer(ctx context.Context, id1, id2 uuid.UUID) (uuid.UUID, error)
	UnlinkTransactions(ctx context.Context, transferID uuid.UUID) (int, error)
	AddScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error)
	UpdateScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error)
	DeleteScheduled(ctx context.Context, id uuid.UUID) error
	GetScheduled(ctx context.Context, id uuid.UUID) (ledger.ScheduledTransaction, error)
	ListScheduled(ctx context.Context, ledgerID uuid.UUID) ([]ledger.ScheduledTransaction, error)
	ProjectScheduled(ctx context.Context, ledgerID uuid.UUID, windowStart, windowEnd time.Time) ([]ledger.Transaction, error)
}

type service struct {
	repo    Repo
	writer  Writer
	catalog catalog.Service
}

func New(repo Repo, writer Writer, cat catalog.Service) Service {
	return &service{repo: repo, writer: writer, catalog: cat}
}

// ensureNames runs the existence guarantees for one row: category,
// optional sub-category, vendor, and account (as an account-flavored
// payee). Called on every add/update path.
func (s *service) ensureNames(ctx context.Context, ledgerID uuid.UUID, account, vendor, category, subCategory, currency string) error {
	catID, err := s.catalog.EnsureCategoryExists(ctx, ledgerID, category)
	if err != nil {
		return err
	}
	if strings.TrimSpace(subCategory) != "" {
		if _, err := s.catalog.EnsureSubCategoryExists(ctx, ledgerID, catID, subCategory); err != nil {
			return err
		}
	}
	if _, err := s.catalog.EnsurePayeeExists(ctx, ledgerID, vendor, false, nil); err != nil {
		return err
	}
	opts := &catalog.AccountOptions{Currency: currency}
	if _, err := s.catalog.EnsurePayeeExists(ctx, ledgerID, account, true, opts); err != nil {
		return err
	}
	return nil
}

func (s *service) validate(t ledger.Transaction) error {
	if t.LedgerID == uuid.Nil || t.Date.IsZero() {
		return errs.ErrInvalid
	}
	if strings.TrimSpace(t.Account) == "" || strings.TrimSpace(t.Vendor) == "" || strings.TrimSpace(t.Category) == "" {
		return errs.ErrInvalid
	}
	if t.Currency == "" {
		return errs.ErrInvalid
	}
	if err := t.Metadata.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalid, err)
	}
	return nil
}

func (s *service) AddTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if err := s.validate(t); err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.ensureNames(ctx, t.LedgerID, t.Account, t.Vendor, t.Category, t.SubCategory, t.Currency); err != nil {
		return ledger.Transaction{}, err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.IsProjected = false
	t.CreatedAt = time.Now().UTC()
	return s.writer.CreateTransaction(ctx, t)
}

func (s *service) UpdateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if t.ID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	if err := s.validate(t); err != nil {
		return ledger.Transaction{}, err
	}
	current, err := s.repo.GetTransaction(ctx, t.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if current.LedgerID != t.LedgerID {
		return ledger.Transaction{}, errs.ErrImmutable
	}
	if err := s.ensureNames(ctx, t.LedgerID, t.Account, t.Vendor, t.Category, t.SubCategory, t.Currency); err != nil {
		return ledger.Transaction{}, err
	}
	t.CreatedAt = current.CreatedAt
	t.IsProjected = false
	return s.writer.UpdateTransaction(ctx, t)
}

func (s *service) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteTransaction(ctx, id)
}

func (s *service) DeleteTransactions(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return errs.ErrInvalid
	}
	return s.writer.DeleteTransactions(ctx, ids)
}

func (s *service) DeleteByTransferID(ctx context.Context, transferID uuid.UUID) (int, error) {
	if transferID == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	return s.writer.DeleteTransactionsByTransfer(ctx, transferID)
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *service) ListTransactions(ctx context.Context, ledgerID uuid.UUID) ([]ledger.Transaction, error) {
	if ledgerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListTransactions(ctx, ledgerID)
}

// LinkTransactionsAsTransfer pairs two transactions under a fresh transfer
// id and recategorizes both as transfers. The reserved Transfer category is
// created on demand.
func (s *service) LinkTransactionsAsTransfer(ctx context.Context, id1, id2 uuid.UUID) (uuid.UUID, error) {
	if id1 == uuid.Nil || id2 == uuid.Nil || id1 == id2 {
		return uuid.Nil, errs.ErrInvalid
	}
	t1, err := s.repo.GetTransaction(ctx, id1)
	if err != nil {
		return uuid.Nil, err
	}
	t2, err := s.repo.GetTransaction(ctx, id2)
	if err != nil {
		return uuid.Nil, err
	}
	if t1.LedgerID != t2.LedgerID {
		return uuid.Nil, errs.ErrInvalid
	}
	// Relinking a member would strand its old partner with a transfer id
	// no other row carries. Callers must unlink first.
	if t1.TransferID != uuid.Nil || t2.TransferID != uuid.Nil {
		return uuid.Nil, errs.ErrConflict
	}
	if _, err := s.catalog.EnsureCategoryExists(ctx, t1.LedgerID, dictionary.TransferCategory); err != nil {
		return uuid.Nil, err
	}
	transferID := uuid.New()
	if err := s.writer.LinkTransfer(ctx, id1, id2, transferID, dictionary.TransferCategory); err != nil {
		return uuid.Nil, err
	}
	return transferID, nil
}

// UnlinkTransactions clears the transfer id on every member in one bulk
// modify. Members keep their Transfer category; re-categorizing is the
// caller's decision.
func (s *service) UnlinkTransactions(ctx context.Context, transferID uuid.UUID) (int, error) {
	if transferID == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	return s.writer.UnlinkTransfer(ctx, transferID)
}

func (s *service) AddScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error) {
	if st.LedgerID == uuid.Nil || st.Date.IsZero() || st.Currency == "" {
		return ledger.ScheduledTransaction{}, errs.ErrInvalid
	}
	if strings.TrimSpace(st.Account) == "" || strings.TrimSpace(st.Vendor) == "" || strings.TrimSpace(st.Category) == "" {
		return ledger.ScheduledTransaction{}, errs.ErrInvalid
	}
	if err := s.ensureNames(ctx, st.LedgerID, st.Account, st.Vendor, st.Category, st.SubCategory, st.Currency); err != nil {
		return ledger.ScheduledTransaction{}, err
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if st.Frequency == "" {
		st.Frequency = ledger.FrequencyMonthly
	}
	st.CreatedAt = time.Now().UTC()
	return s.writer.CreateScheduled(ctx, st)
}

func (s *service) UpdateScheduled(ctx context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error) {
	if st.ID == uuid.Nil {
		return ledger.ScheduledTransaction{}, errs.ErrInvalid
	}
	current, err := s.repo.GetScheduled(ctx, st.ID)
	if err != nil {
		return ledger.ScheduledTransaction{}, err
	}
	if current.LedgerID != st.LedgerID {
		return ledger.ScheduledTransaction{}, errs.ErrImmutable
	}
	if err := s.ensureNames(ctx, st.LedgerID, st.Account, st.Vendor, st.Category, st.SubCategory, st.Currency); err != nil {
		return ledger.ScheduledTransaction{}, err
	}
	st.CreatedAt = current.CreatedAt
	return s.writer.UpdateScheduled(ctx, st)
}

func (s *service) DeleteScheduled(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteScheduled(ctx, id)
}

func (s *service) GetScheduled(ctx context.Context, id uuid.UUID) (ledger.ScheduledTransaction, error) {
	return s.repo.GetScheduled(ctx, id)
}

func (s *service) ListScheduled(ctx context.Context, ledgerID uuid.UUID) ([]ledger.ScheduledTransaction, error) {
	if ledgerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListScheduled(ctx, ledgerID)
}

// ProjectScheduled reads a point-in-time snapshot of the ledger's rules
// and expands them over the window. Read-only; nothing is persisted.
func (s *service) ProjectScheduled(ctx context.Context, ledgerID uuid.UUID, windowStart, windowEnd time.Time) ([]ledger.Transaction, error) {
	if ledgerID == uuid.Nil || windowEnd.Before(windowStart) {
		return nil, errs.ErrInvalid
	}
	rules, err := s.repo.ListScheduled(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	return recurrence.Project(rules, windowStart, windowEnd), nil
}
