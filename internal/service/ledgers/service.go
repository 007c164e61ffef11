// Package ledgers manages the ledger namespaces themselves: lifecycle,
// cascading delete, and the snapshot export/import boundary.
package ledgers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/slug"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetLedger(ctx context.Context, id uuid.UUID) (ledger.Ledger, error)
	ListLedgers(ctx context.Context) ([]ledger.Ledger, error)
	ExportSnapshot(ctx context.Context, ledgerID *uuid.UUID) (ledger.Snapshot, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error)
	UpdateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error)
	DeleteLedgerCascade(ctx context.Context, id uuid.UUID) (int, error)
	ImportSnapshot(ctx context.Context, snap ledger.Snapshot) error
}

// Service manages ledgers and the export/import surface.
type Service interface {
	CreateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error)
	UpdateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error)
	GetLedger(ctx context.Context, id uuid.UUID) (ledger.Ledger, error)
	ListLedgers(ctx context.Context) ([]ledger.Ledger, error)
	// DeleteLedger removes the ledger and every scoped row in one atomic
	// cascade. It returns the number of rows removed alongside the ledger.
	DeleteLedger(ctx context.Context, id uuid.UUID) (int, error)
	TouchLedger(ctx context.Context, id uuid.UUID) error

	// ExportData serializes the whole store, or a single ledger when
	// ledgerID is non-nil, to the persisted snapshot form.
	ExportData(ctx context.Context, ledgerID *uuid.UUID) ([]byte, error)
	// ImportData parses a snapshot and upserts its rows atomically. When
	// target is non-nil every imported row is rebound to that ledger.
	ImportData(ctx context.Context, data []byte, target *uuid.UUID) (ImportStats, error)
}

// ImportStats summarizes an applied import.
type ImportStats struct {
	Ledgers               int
	Vendors               int
	Accounts              int
	Categories            int
	SubCategories         int
	Transactions          int
	ScheduledTransactions int
	Budgets               int
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) CreateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return ledger.Ledger{}, errs.ErrInvalid
	}
	if l.ShortName == "" {
		l.ShortName = slug.Slugify(l.Name)
	} else if !slug.IsSlug(l.ShortName) {
		return ledger.Ledger{}, errs.ErrInvalid
	}
	l.Currency = strings.ToUpper(strings.TrimSpace(l.Currency))
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.LastAccessed = now
	return s.writer.CreateLedger(ctx, l)
}

func (s *service) UpdateLedger(ctx context.Context, l ledger.Ledger) (ledger.Ledger, error) {
	current, err := s.repo.GetLedger(ctx, l.ID)
	if err != nil {
		return ledger.Ledger{}, err
	}
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return ledger.Ledger{}, errs.ErrInvalid
	}
	if l.ShortName != "" && !slug.IsSlug(l.ShortName) {
		return ledger.Ledger{}, errs.ErrInvalid
	}
	if l.ShortName == "" {
		l.ShortName = current.ShortName
	}
	l.CreatedAt = current.CreatedAt
	return s.writer.UpdateLedger(ctx, l)
}

func (s *service) GetLedger(ctx context.Context, id uuid.UUID) (ledger.Ledger, error) {
	return s.repo.GetLedger(ctx, id)
}

func (s *service) ListLedgers(ctx context.Context) ([]ledger.Ledger, error) {
	return s.repo.ListLedgers(ctx)
}

func (s *service) DeleteLedger(ctx context.Context, id uuid.UUID) (int, error) {
	if id == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	return s.writer.DeleteLedgerCascade(ctx, id)
}

func (s *service) TouchLedger(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.GetLedger(ctx, id)
	if err != nil {
		return err
	}
	current.LastAccessed = time.Now().UTC()
	_, err = s.writer.UpdateLedger(ctx, current)
	return err
}
