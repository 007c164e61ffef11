// Package memory provides the embedded in-memory entity store. It is the
// default backend: a single-process, single-writer store guarded by an
// RWMutex, with secondary (ledger, name) indexes so cascade rewrites touch
// only matching rows.
//
// Every cascade operation computes its full change set first and applies it
// under one write lock; the apply phase cannot fail, so a cascade either
// lands in full or not at all.
package memory

import (
	"context"
	"sort"
	"time"

	"sync"

	"github.com/google/uuid"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

// txKey orders transactions per ledger: asc by (Date, ID).
type txKey struct {
	Date time.Time
	ID   uuid.UUID
}

// Store is the in-memory implementation of the repository and writer
// interfaces used by the services. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	ledgers       map[uuid.UUID]ledger.Ledger
	vendors       map[uuid.UUID]ledger.Vendor
	accounts      map[uuid.UUID]ledger.Account
	categories    map[uuid.UUID]ledger.Category
	subCategories map[uuid.UUID]ledger.SubCategory
	txns          map[uuid.UUID]*ledger.Transaction
	scheduled     map[uuid.UUID]ledger.ScheduledTransaction
	budgets       map[uuid.UUID]ledger.Budget

	// Secondary indexes: trimmed name -> id, scoped per ledger (vendors,
	// categories) or per category (sub-categories).
	vendorNames   map[uuid.UUID]map[string]uuid.UUID
	categoryNames map[uuid.UUID]map[string]uuid.UUID
	subNames      map[uuid.UUID]map[string]uuid.UUID

	// Per-ledger sorted transaction index for ordered scans.
	txKeysByLedger map[uuid.UUID][]txKey
	// Transfer index: transfer id -> member transaction ids.
	txByTransfer map[uuid.UUID][]uuid.UUID

	// failpoint, when set, runs between the compute and apply phases of
	// cascade operations. Tests use it to prove atomicity under failure.
	failpoint func(op string) error
}

// New constructs an empty store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.ledgers = make(map[uuid.UUID]ledger.Ledger)
	s.vendors = make(map[uuid.UUID]ledger.Vendor)
	s.accounts = make(map[uuid.UUID]ledger.Account)
	s.categories = make(map[uuid.UUID]ledger.Category)
	s.subCategories = make(map[uuid.UUID]ledger.SubCategory)
	s.txns = make(map[uuid.UUID]*ledger.Transaction)
	s.scheduled = make(map[uuid.UUID]ledger.ScheduledTransaction)
	s.budgets = make(map[uuid.UUID]ledger.Budget)
	s.vendorNames = make(map[uuid.UUID]map[string]uuid.UUID)
	s.categoryNames = make(map[uuid.UUID]map[string]uuid.UUID)
	s.subNames = make(map[uuid.UUID]map[string]uuid.UUID)
	s.txKeysByLedger = make(map[uuid.UUID][]txKey)
	s.txByTransfer = make(map[uuid.UUID][]uuid.UUID)
}

// Reset clears all collections (tests and dev only).
func (s *Store) Reset() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
}

// --- Ledgers ---

func (s *Store) CreateLedger(_ context.Context, l ledger.Ledger) (ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLedger(_ context.Context, l ledger.Ledger) (ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[l.ID]; !ok {
		return ledger.Ledger{}, errs.ErrNotFound
	}
	s.ledgers[l.ID] = l
	return l, nil
}

func (s *Store) GetLedger(_ context.Context, id uuid.UUID) (ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[id]
	if !ok {
		return ledger.Ledger{}, errs.ErrNotFound
	}
	return l, nil
}

func (s *Store) ListLedgers(_ context.Context) ([]ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Ledger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteLedgerCascade removes the ledger row and every scoped row in every
// collection. Runs as one atomic multi-collection operation.
func (s *Store) DeleteLedgerCascade(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[id]; !ok {
		return 0, errs.ErrNotFound
	}
	// compute
	vendorIDs := make([]uuid.UUID, 0)
	accountIDs := make([]uuid.UUID, 0)
	for vid, v := range s.vendors {
		if v.LedgerID == id {
			vendorIDs = append(vendorIDs, vid)
			if v.IsAccount {
				accountIDs = append(accountIDs, v.AccountID)
			}
		}
	}
	categoryIDs := make([]uuid.UUID, 0)
	for cid, c := range s.categories {
		if c.LedgerID == id {
			categoryIDs = append(categoryIDs, cid)
		}
	}
	subIDs := make([]uuid.UUID, 0)
	for sid, sc := range s.subCategories {
		if sc.LedgerID == id {
			subIDs = append(subIDs, sid)
		}
	}
	txIDs := make([]uuid.UUID, 0)
	transferIDs := make(map[uuid.UUID]struct{})
	for tid, t := range s.txns {
		if t.LedgerID == id {
			txIDs = append(txIDs, tid)
			if t.TransferID != uuid.Nil {
				transferIDs[t.TransferID] = struct{}{}
			}
		}
	}
	schedIDs := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID == id {
			schedIDs = append(schedIDs, sid)
		}
	}
	budgetIDs := make([]uuid.UUID, 0)
	for bid, b := range s.budgets {
		if b.LedgerID == id {
			budgetIDs = append(budgetIDs, bid)
		}
	}
	if err := s.fail("delete_ledger"); err != nil {
		return 0, err
	}
	// apply
	removed := 1
	for _, vid := range vendorIDs {
		delete(s.vendors, vid)
		removed++
	}
	for _, aid := range accountIDs {
		delete(s.accounts, aid)
		removed++
	}
	for _, cid := range categoryIDs {
		delete(s.categories, cid)
		delete(s.subNames, cid)
		removed++
	}
	for _, sid := range subIDs {
		delete(s.subCategories, sid)
		removed++
	}
	for _, tid := range txIDs {
		delete(s.txns, tid)
		removed++
	}
	for tfid := range transferIDs {
		delete(s.txByTransfer, tfid)
	}
	for _, sid := range schedIDs {
		delete(s.scheduled, sid)
		removed++
	}
	for _, bid := range budgetIDs {
		delete(s.budgets, bid)
		removed++
	}
	delete(s.vendorNames, id)
	delete(s.categoryNames, id)
	delete(s.txKeysByLedger, id)
	delete(s.ledgers, id)
	return removed, nil
}

// --- Vendors and accounts ---

func (s *Store) VendorByName(_ context.Context, ledgerID uuid.UUID, name string) (ledger.Vendor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.vendorNames[ledgerID]; ok {
		if vid, ok := idx[ledger.NameKey(name)]; ok {
			return s.vendors[vid], true, nil
		}
	}
	return ledger.Vendor{}, false, nil
}

func (s *Store) GetVendor(_ context.Context, id uuid.UUID) (ledger.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[id]
	if !ok {
		return ledger.Vendor{}, errs.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVendors(_ context.Context, ledgerID uuid.UUID) ([]ledger.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Vendor, 0)
	for _, v := range s.vendors {
		if v.LedgerID == ledgerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	s.accounts[a.ID] = a
	return a, nil
}

// CreateVendor inserts a vendor row and, when acct is non-nil, its owned
// account row in the same operation.
func (s *Store) CreateVendor(_ context.Context, v ledger.Vendor, acct *ledger.Account) (ledger.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledger.NameKey(v.Name)
	idx := s.vendorNames[v.LedgerID]
	if idx == nil {
		idx = make(map[string]uuid.UUID)
		s.vendorNames[v.LedgerID] = idx
	}
	if _, exists := idx[key]; exists {
		return ledger.Vendor{}, errs.ErrConflict
	}
	if acct != nil {
		v.IsAccount = true
		v.AccountID = acct.ID
		s.accounts[acct.ID] = *acct
	}
	s.vendors[v.ID] = v
	idx[key] = v.ID
	return v, nil
}

// PromoteVendor marks an existing vendor as an account and inserts the
// owned account row atomically. Promoting an already promoted vendor is a
// no-op returning the current row.
func (s *Store) PromoteVendor(_ context.Context, vendorID uuid.UUID, acct ledger.Account) (ledger.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return ledger.Vendor{}, errs.ErrNotFound
	}
	if v.IsAccount {
		return v, nil
	}
	v.IsAccount = true
	v.AccountID = acct.ID
	s.accounts[acct.ID] = acct
	s.vendors[vendorID] = v
	return v, nil
}

// RenameVendor renames the vendor row and rewrites every transaction and
// scheduled-transaction mirror of the old name in the same ledger. Returns
// the number of rewritten rows.
func (s *Store) RenameVendor(_ context.Context, vendorID uuid.UUID, newName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	oldKey := ledger.NameKey(v.Name)
	newKey := ledger.NameKey(newName)
	idx := s.vendorNames[v.LedgerID]
	if other, exists := idx[newKey]; exists && other != vendorID {
		return 0, errs.ErrConflict
	}
	// compute
	txHits := make([]*ledger.Transaction, 0)
	accountHits := make([]bool, 0)
	vendorHits := make([]bool, 0)
	for _, k := range s.txKeysByLedger[v.LedgerID] {
		t := s.txns[k.ID]
		accHit := ledger.NameKey(t.Account) == oldKey
		venHit := ledger.NameKey(t.Vendor) == oldKey
		if accHit || venHit {
			txHits = append(txHits, t)
			accountHits = append(accountHits, accHit)
			vendorHits = append(vendorHits, venHit)
		}
	}
	schedHits := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID == v.LedgerID && (ledger.NameKey(st.Account) == oldKey || ledger.NameKey(st.Vendor) == oldKey) {
			schedHits = append(schedHits, sid)
		}
	}
	budgetHits := make([]uuid.UUID, 0)
	for bid, b := range s.budgets {
		if b.LedgerID == v.LedgerID && (b.Scope == ledger.ScopeAccount || b.Scope == ledger.ScopeVendor) && ledger.NameKey(b.ScopeName) == oldKey {
			budgetHits = append(budgetHits, bid)
		}
	}
	if err := s.fail("rename_vendor"); err != nil {
		return 0, err
	}
	// apply
	rewritten := 0
	for i, t := range txHits {
		if accountHits[i] {
			t.Account = newName
		}
		if vendorHits[i] {
			t.Vendor = newName
		}
		rewritten++
	}
	for _, sid := range schedHits {
		st := s.scheduled[sid]
		if ledger.NameKey(st.Account) == oldKey {
			st.Account = newName
		}
		if ledger.NameKey(st.Vendor) == oldKey {
			st.Vendor = newName
		}
		s.scheduled[sid] = st
		rewritten++
	}
	for _, bid := range budgetHits {
		b := s.budgets[bid]
		b.ScopeName = newName
		s.budgets[bid] = b
		rewritten++
	}
	v.Name = newName
	s.vendors[vendorID] = v
	delete(idx, oldKey)
	idx[newKey] = vendorID
	return rewritten, nil
}

// SetAccountCurrency updates the owned account row's currency and
// propagates it to every transaction and scheduled transaction using that
// account name in the ledger.
func (s *Store) SetAccountCurrency(_ context.Context, vendorID uuid.UUID, currency string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	if !v.IsAccount {
		return 0, errs.ErrNotAnAccount
	}
	a, ok := s.accounts[v.AccountID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	nameKey := ledger.NameKey(v.Name)
	txHits := make([]*ledger.Transaction, 0)
	for _, k := range s.txKeysByLedger[v.LedgerID] {
		t := s.txns[k.ID]
		if ledger.NameKey(t.Account) == nameKey {
			txHits = append(txHits, t)
		}
	}
	schedHits := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID == v.LedgerID && ledger.NameKey(st.Account) == nameKey {
			schedHits = append(schedHits, sid)
		}
	}
	if err := s.fail("set_account_currency"); err != nil {
		return 0, err
	}
	a.Currency = currency
	s.accounts[a.ID] = a
	rewritten := 0
	for _, t := range txHits {
		t.Currency = currency
		rewritten++
	}
	for _, sid := range schedHits {
		st := s.scheduled[sid]
		st.Currency = currency
		s.scheduled[sid] = st
		rewritten++
	}
	return rewritten, nil
}

// MergeVendors reassigns every transaction, scheduled-transaction and
// budget reference from the source vendor names to the target name, then
// deletes the source vendor rows and their owned accounts. Atomic.
func (s *Store) MergeVendors(_ context.Context, ledgerID, targetID uuid.UUID, sourceIDs []uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.vendors[targetID]
	if !ok || target.LedgerID != ledgerID {
		return 0, errs.ErrNotFound
	}
	sourceKeys := make(map[string]struct{}, len(sourceIDs))
	sources := make([]ledger.Vendor, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		sv, ok := s.vendors[sid]
		if !ok || sv.LedgerID != ledgerID {
			return 0, errs.ErrNotFound
		}
		if sid == targetID {
			continue
		}
		sources = append(sources, sv)
		sourceKeys[ledger.NameKey(sv.Name)] = struct{}{}
	}
	// compute
	txHits := make([]*ledger.Transaction, 0)
	for _, k := range s.txKeysByLedger[ledgerID] {
		t := s.txns[k.ID]
		if _, hit := sourceKeys[ledger.NameKey(t.Account)]; hit {
			txHits = append(txHits, t)
			continue
		}
		if _, hit := sourceKeys[ledger.NameKey(t.Vendor)]; hit {
			txHits = append(txHits, t)
		}
	}
	schedHits := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID != ledgerID {
			continue
		}
		_, accHit := sourceKeys[ledger.NameKey(st.Account)]
		_, venHit := sourceKeys[ledger.NameKey(st.Vendor)]
		if accHit || venHit {
			schedHits = append(schedHits, sid)
		}
	}
	budgetHits := make([]uuid.UUID, 0)
	for bid, b := range s.budgets {
		if b.LedgerID != ledgerID || (b.Scope != ledger.ScopeAccount && b.Scope != ledger.ScopeVendor) {
			continue
		}
		if _, hit := sourceKeys[ledger.NameKey(b.ScopeName)]; hit {
			budgetHits = append(budgetHits, bid)
		}
	}
	if err := s.fail("merge_vendors"); err != nil {
		return 0, err
	}
	// apply
	rewritten := 0
	for _, t := range txHits {
		if _, hit := sourceKeys[ledger.NameKey(t.Account)]; hit {
			t.Account = target.Name
		}
		if _, hit := sourceKeys[ledger.NameKey(t.Vendor)]; hit {
			t.Vendor = target.Name
		}
		rewritten++
	}
	for _, sid := range schedHits {
		st := s.scheduled[sid]
		if _, hit := sourceKeys[ledger.NameKey(st.Account)]; hit {
			st.Account = target.Name
		}
		if _, hit := sourceKeys[ledger.NameKey(st.Vendor)]; hit {
			st.Vendor = target.Name
		}
		s.scheduled[sid] = st
		rewritten++
	}
	for _, bid := range budgetHits {
		b := s.budgets[bid]
		b.ScopeName = target.Name
		s.budgets[bid] = b
		rewritten++
	}
	idx := s.vendorNames[ledgerID]
	for _, sv := range sources {
		if sv.IsAccount {
			delete(s.accounts, sv.AccountID)
		}
		delete(s.vendors, sv.ID)
		delete(idx, ledger.NameKey(sv.Name))
	}
	return rewritten, nil
}

// DeleteVendor removes the vendor row and its owned account, if any.
// Historical transactions keep their text references.
func (s *Store) DeleteVendor(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[id]
	if !ok {
		return errs.ErrNotFound
	}
	if v.IsAccount {
		delete(s.accounts, v.AccountID)
	}
	delete(s.vendors, id)
	if idx, ok := s.vendorNames[v.LedgerID]; ok {
		delete(idx, ledger.NameKey(v.Name))
	}
	return nil
}

// --- Categories and sub-categories ---

func (s *Store) CategoryByName(_ context.Context, ledgerID uuid.UUID, name string) (ledger.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.categoryNames[ledgerID]; ok {
		if cid, ok := idx[ledger.NameKey(name)]; ok {
			return s.categories[cid], true, nil
		}
	}
	return ledger.Category{}, false, nil
}

func (s *Store) GetCategory(_ context.Context, id uuid.UUID) (ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return ledger.Category{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, ledgerID uuid.UUID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Category, 0)
	for _, c := range s.categories {
		if c.LedgerID == ledgerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c ledger.Category) (ledger.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledger.NameKey(c.Name)
	idx := s.categoryNames[c.LedgerID]
	if idx == nil {
		idx = make(map[string]uuid.UUID)
		s.categoryNames[c.LedgerID] = idx
	}
	if _, exists := idx[key]; exists {
		return ledger.Category{}, errs.ErrConflict
	}
	s.categories[c.ID] = c
	idx[key] = c.ID
	return c, nil
}

func (s *Store) SubCategoryByName(_ context.Context, categoryID uuid.UUID, name string) (ledger.SubCategory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.subNames[categoryID]; ok {
		if sid, ok := idx[ledger.NameKey(name)]; ok {
			return s.subCategories[sid], true, nil
		}
	}
	return ledger.SubCategory{}, false, nil
}

func (s *Store) GetSubCategory(_ context.Context, id uuid.UUID) (ledger.SubCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.subCategories[id]
	if !ok {
		return ledger.SubCategory{}, errs.ErrNotFound
	}
	return sc, nil
}

func (s *Store) ListSubCategories(_ context.Context, categoryID uuid.UUID) ([]ledger.SubCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.SubCategory, 0)
	for _, sc := range s.subCategories {
		if sc.CategoryID == categoryID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateSubCategory(_ context.Context, sc ledger.SubCategory) (ledger.SubCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledger.NameKey(sc.Name)
	idx := s.subNames[sc.CategoryID]
	if idx == nil {
		idx = make(map[string]uuid.UUID)
		s.subNames[sc.CategoryID] = idx
	}
	if _, exists := idx[key]; exists {
		return ledger.SubCategory{}, errs.ErrConflict
	}
	s.subCategories[sc.ID] = sc
	idx[key] = sc.ID
	return sc, nil
}

// RenameCategory renames the category row and rewrites every transaction,
// scheduled-transaction and budget mirror of the old name.
func (s *Store) RenameCategory(_ context.Context, categoryID uuid.UUID, newName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	oldKey := ledger.NameKey(c.Name)
	newKey := ledger.NameKey(newName)
	idx := s.categoryNames[c.LedgerID]
	if other, exists := idx[newKey]; exists && other != categoryID {
		return 0, errs.ErrConflict
	}
	txHits := make([]*ledger.Transaction, 0)
	for _, k := range s.txKeysByLedger[c.LedgerID] {
		t := s.txns[k.ID]
		if ledger.NameKey(t.Category) == oldKey {
			txHits = append(txHits, t)
		}
	}
	schedHits := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID == c.LedgerID && ledger.NameKey(st.Category) == oldKey {
			schedHits = append(schedHits, sid)
		}
	}
	budgetHits := make([]uuid.UUID, 0)
	for bid, b := range s.budgets {
		if b.LedgerID == c.LedgerID && b.CategoryID == categoryID {
			budgetHits = append(budgetHits, bid)
		}
	}
	if err := s.fail("rename_category"); err != nil {
		return 0, err
	}
	rewritten := 0
	for _, t := range txHits {
		t.Category = newName
		rewritten++
	}
	for _, sid := range schedHits {
		st := s.scheduled[sid]
		st.Category = newName
		s.scheduled[sid] = st
		rewritten++
	}
	for _, bid := range budgetHits {
		b := s.budgets[bid]
		b.CategoryName = newName
		if b.Scope == ledger.ScopeCategory && ledger.NameKey(b.ScopeName) == oldKey {
			b.ScopeName = newName
		}
		s.budgets[bid] = b
		rewritten++
	}
	c.Name = newName
	s.categories[categoryID] = c
	delete(idx, oldKey)
	idx[newKey] = categoryID
	return rewritten, nil
}

// RenameSubCategory renames the sub-category row and rewrites every
// transaction/scheduled-transaction carrying the owning category name plus
// the old sub-category name, and budget sub-category mirrors.
func (s *Store) RenameSubCategory(_ context.Context, subID uuid.UUID, newName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subCategories[subID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	parent, ok := s.categories[sc.CategoryID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	oldKey := ledger.NameKey(sc.Name)
	newKey := ledger.NameKey(newName)
	idx := s.subNames[sc.CategoryID]
	if other, exists := idx[newKey]; exists && other != subID {
		return 0, errs.ErrConflict
	}
	catKey := ledger.NameKey(parent.Name)
	txHits := make([]*ledger.Transaction, 0)
	for _, k := range s.txKeysByLedger[sc.LedgerID] {
		t := s.txns[k.ID]
		if ledger.NameKey(t.Category) == catKey && ledger.NameKey(t.SubCategory) == oldKey {
			txHits = append(txHits, t)
		}
	}
	schedHits := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID == sc.LedgerID && ledger.NameKey(st.Category) == catKey && ledger.NameKey(st.SubCategory) == oldKey {
			schedHits = append(schedHits, sid)
		}
	}
	budgetHits := make([]uuid.UUID, 0)
	for bid, b := range s.budgets {
		if b.LedgerID == sc.LedgerID && b.SubCategoryID == subID {
			budgetHits = append(budgetHits, bid)
		}
	}
	if err := s.fail("rename_sub_category"); err != nil {
		return 0, err
	}
	rewritten := 0
	for _, t := range txHits {
		t.SubCategory = newName
		rewritten++
	}
	for _, sid := range schedHits {
		st := s.scheduled[sid]
		st.SubCategory = newName
		s.scheduled[sid] = st
		rewritten++
	}
	for _, bid := range budgetHits {
		b := s.budgets[bid]
		b.SubCategoryName = newName
		if b.Scope == ledger.ScopeSubCategory && ledger.NameKey(b.ScopeName) == oldKey {
			b.ScopeName = newName
		}
		s.budgets[bid] = b
		rewritten++
	}
	sc.Name = newName
	s.subCategories[subID] = sc
	delete(idx, oldKey)
	idx[newKey] = subID
	return rewritten, nil
}

// MergeCategories reassigns transaction/scheduled/budget references from
// the source category names to the target, moves sub-categories under the
// target (same-name sub-categories collapse into the existing row), then
// deletes the source categories. Atomic.
func (s *Store) MergeCategories(_ context.Context, ledgerID, targetID uuid.UUID, sourceIDs []uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.categories[targetID]
	if !ok || target.LedgerID != ledgerID {
		return 0, errs.ErrNotFound
	}
	sourceKeys := make(map[string]struct{}, len(sourceIDs))
	sourceSet := make(map[uuid.UUID]struct{}, len(sourceIDs))
	sources := make([]ledger.Category, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		sc, ok := s.categories[sid]
		if !ok || sc.LedgerID != ledgerID {
			return 0, errs.ErrNotFound
		}
		if sid == targetID {
			continue
		}
		sources = append(sources, sc)
		sourceKeys[ledger.NameKey(sc.Name)] = struct{}{}
		sourceSet[sid] = struct{}{}
	}
	txHits := make([]*ledger.Transaction, 0)
	for _, k := range s.txKeysByLedger[ledgerID] {
		t := s.txns[k.ID]
		if _, hit := sourceKeys[ledger.NameKey(t.Category)]; hit {
			txHits = append(txHits, t)
		}
	}
	schedHits := make([]uuid.UUID, 0)
	for sid, st := range s.scheduled {
		if st.LedgerID != ledgerID {
			continue
		}
		if _, hit := sourceKeys[ledger.NameKey(st.Category)]; hit {
			schedHits = append(schedHits, sid)
		}
	}
	budgetHits := make([]uuid.UUID, 0)
	for bid, b := range s.budgets {
		if b.LedgerID != ledgerID {
			continue
		}
		_, byID := sourceSet[b.CategoryID]
		_, byScope := sourceKeys[ledger.NameKey(b.ScopeName)]
		if byID || (b.Scope == ledger.ScopeCategory && byScope) {
			budgetHits = append(budgetHits, bid)
		}
	}
	moveSubs := make([]uuid.UUID, 0)
	for sid, sub := range s.subCategories {
		if _, hit := sourceSet[sub.CategoryID]; hit {
			moveSubs = append(moveSubs, sid)
		}
	}
	if err := s.fail("merge_categories"); err != nil {
		return 0, err
	}
	rewritten := 0
	for _, t := range txHits {
		t.Category = target.Name
		rewritten++
	}
	for _, sid := range schedHits {
		st := s.scheduled[sid]
		st.Category = target.Name
		s.scheduled[sid] = st
		rewritten++
	}
	for _, bid := range budgetHits {
		b := s.budgets[bid]
		b.CategoryID = targetID
		b.CategoryName = target.Name
		if b.Scope == ledger.ScopeCategory {
			b.ScopeName = target.Name
		}
		s.budgets[bid] = b
		rewritten++
	}
	targetSubs := s.subNames[targetID]
	if targetSubs == nil {
		targetSubs = make(map[string]uuid.UUID)
		s.subNames[targetID] = targetSubs
	}
	for _, sid := range moveSubs {
		sub := s.subCategories[sid]
		key := ledger.NameKey(sub.Name)
		if _, exists := targetSubs[key]; exists {
			// target already has a sub-category by this name: collapse
			delete(s.subCategories, sid)
			continue
		}
		sub.CategoryID = targetID
		s.subCategories[sid] = sub
		targetSubs[key] = sid
	}
	catIdx := s.categoryNames[ledgerID]
	for _, src := range sources {
		delete(s.categories, src.ID)
		delete(s.subNames, src.ID)
		delete(catIdx, ledger.NameKey(src.Name))
	}
	return rewritten, nil
}

// DeleteCategory removes the category row and cascades to its
// sub-categories only; transactions keep their text references.
func (s *Store) DeleteCategory(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return errs.ErrNotFound
	}
	for sid, sc := range s.subCategories {
		if sc.CategoryID == id {
			delete(s.subCategories, sid)
		}
	}
	delete(s.subNames, id)
	delete(s.categories, id)
	if idx, ok := s.categoryNames[c.LedgerID]; ok {
		delete(idx, ledger.NameKey(c.Name))
	}
	return nil
}

// --- Transactions ---

func (s *Store) CreateTransaction(_ context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.txns[cp.ID] = &cp
	s.insertTxKeyLocked(cp.LedgerID, txKey{Date: cp.Date, ID: cp.ID})
	if cp.TransferID != uuid.Nil {
		s.txByTransfer[cp.TransferID] = append(s.txByTransfer[cp.TransferID], cp.ID)
	}
	return cp, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.txns[t.ID]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if !old.Date.Equal(t.Date) {
		s.removeTxKeyLocked(old.LedgerID, txKey{Date: old.Date, ID: old.ID})
		s.insertTxKeyLocked(t.LedgerID, txKey{Date: t.Date, ID: t.ID})
	}
	if old.TransferID != t.TransferID {
		if old.TransferID != uuid.Nil {
			s.dropTransferMemberLocked(old.TransferID, t.ID)
		}
		if t.TransferID != uuid.Nil {
			s.txByTransfer[t.TransferID] = append(s.txByTransfer[t.TransferID], t.ID)
		}
	}
	cp := t
	s.txns[t.ID] = &cp
	return cp, nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return *t, nil
}

// ListTransactions returns the ledger's transactions ordered asc by
// (Date, ID) via the sorted index.
func (s *Store) ListTransactions(_ context.Context, ledgerID uuid.UUID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.txKeysByLedger[ledgerID]
	out := make([]ledger.Transaction, 0, len(keys))
	for _, k := range keys {
		if t, ok := s.txns[k.ID]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTxLocked(id)
}

// DeleteTransactions removes all ids atomically; unknown ids abort before
// anything is removed.
func (s *Store) DeleteTransactions(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.txns[id]; !ok {
			return errs.ErrNotFound
		}
	}
	if err := s.fail("delete_transactions"); err != nil {
		return err
	}
	for _, id := range ids {
		_ = s.deleteTxLocked(id)
	}
	return nil
}

func (s *Store) TransactionsByTransfer(_ context.Context, transferID uuid.UUID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.txByTransfer[transferID]
	out := make([]ledger.Transaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.txns[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

// DeleteTransactionsByTransfer removes every member of a transfer in one
// bulk operation.
func (s *Store) DeleteTransactionsByTransfer(_ context.Context, transferID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.txByTransfer[transferID]
	if len(ids) == 0 {
		return 0, errs.ErrNotTransfer
	}
	n := 0
	for _, id := range append([]uuid.UUID(nil), ids...) {
		if s.deleteTxLocked(id) == nil {
			n++
		}
	}
	return n, nil
}

// LinkTransfer atomically stamps both transactions with the transfer id
// and the transfer category.
func (s *Store) LinkTransfer(_ context.Context, id1, id2, transferID uuid.UUID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t1, ok1 := s.txns[id1]
	t2, ok2 := s.txns[id2]
	if !ok1 || !ok2 {
		return errs.ErrNotFound
	}
	if err := s.fail("link_transfer"); err != nil {
		return err
	}
	for _, t := range []*ledger.Transaction{t1, t2} {
		if t.TransferID != uuid.Nil {
			s.dropTransferMemberLocked(t.TransferID, t.ID)
		}
		t.TransferID = transferID
		t.Category = category
		t.SubCategory = ""
	}
	s.txByTransfer[transferID] = []uuid.UUID{id1, id2}
	return nil
}

// UnlinkTransfer clears the transfer id on every member in a single bulk
// predicate-based modify resolved through the transfer index, not a
// per-row loop of individual updates. Category is left untouched.
func (s *Store) UnlinkTransfer(_ context.Context, transferID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.txByTransfer[transferID]
	if !ok || len(ids) == 0 {
		return 0, errs.ErrNotTransfer
	}
	n := 0
	for _, id := range ids {
		if t, ok := s.txns[id]; ok {
			t.TransferID = uuid.Nil
			n++
		}
	}
	delete(s.txByTransfer, transferID)
	return n, nil
}

// --- Scheduled transactions ---

func (s *Store) CreateScheduled(_ context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[st.ID] = st
	return st, nil
}

func (s *Store) UpdateScheduled(_ context.Context, st ledger.ScheduledTransaction) (ledger.ScheduledTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scheduled[st.ID]; !ok {
		return ledger.ScheduledTransaction{}, errs.ErrNotFound
	}
	s.scheduled[st.ID] = st
	return st, nil
}

func (s *Store) GetScheduled(_ context.Context, id uuid.UUID) (ledger.ScheduledTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scheduled[id]
	if !ok {
		return ledger.ScheduledTransaction{}, errs.ErrNotFound
	}
	return st, nil
}

func (s *Store) DeleteScheduled(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scheduled[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.scheduled, id)
	return nil
}

func (s *Store) ListScheduled(_ context.Context, ledgerID uuid.UUID) ([]ledger.ScheduledTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.ScheduledTransaction, 0)
	for _, st := range s.scheduled {
		if st.LedgerID == ledgerID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// --- Budgets ---

func (s *Store) CreateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id uuid.UUID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, ledgerID uuid.UUID) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Budget, 0)
	for _, b := range s.budgets {
		if b.LedgerID == ledgerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Snapshots ---

// ExportSnapshot copies the store (or a single ledger's slice of it) as a
// point-in-time snapshot under the read lock.
func (s *Store) ExportSnapshot(_ context.Context, ledgerID *uuid.UUID) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in := func(id uuid.UUID) bool { return ledgerID == nil || *ledgerID == id }
	snap := ledger.Snapshot{Version: ledger.SnapshotVersion, ExportedAt: time.Now().UTC()}
	for _, l := range s.ledgers {
		if in(l.ID) {
			snap.Ledgers = append(snap.Ledgers, l)
		}
	}
	for _, v := range s.vendors {
		if in(v.LedgerID) {
			snap.Vendors = append(snap.Vendors, v)
		}
	}
	for _, a := range s.accounts {
		if in(a.LedgerID) {
			snap.Accounts = append(snap.Accounts, a)
		}
	}
	for _, c := range s.categories {
		if in(c.LedgerID) {
			snap.Categories = append(snap.Categories, c)
		}
	}
	for _, sc := range s.subCategories {
		if in(sc.LedgerID) {
			snap.SubCategories = append(snap.SubCategories, sc)
		}
	}
	for lid, keys := range s.txKeysByLedger {
		if !in(lid) {
			continue
		}
		for _, k := range keys {
			if t, ok := s.txns[k.ID]; ok {
				snap.Transactions = append(snap.Transactions, *t)
			}
		}
	}
	for _, st := range s.scheduled {
		if in(st.LedgerID) {
			snap.ScheduledTransactions = append(snap.ScheduledTransactions, st)
		}
	}
	for _, b := range s.budgets {
		if in(b.LedgerID) {
			snap.Budgets = append(snap.Budgets, b)
		}
	}
	return snap, nil
}

// ImportSnapshot upserts every row of the snapshot in one atomic
// multi-collection operation.
func (s *Store) ImportSnapshot(_ context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("import_snapshot"); err != nil {
		return err
	}
	for _, l := range snap.Ledgers {
		s.ledgers[l.ID] = l
	}
	for _, v := range snap.Vendors {
		s.vendors[v.ID] = v
		idx := s.vendorNames[v.LedgerID]
		if idx == nil {
			idx = make(map[string]uuid.UUID)
			s.vendorNames[v.LedgerID] = idx
		}
		idx[ledger.NameKey(v.Name)] = v.ID
	}
	for _, a := range snap.Accounts {
		s.accounts[a.ID] = a
	}
	for _, c := range snap.Categories {
		s.categories[c.ID] = c
		idx := s.categoryNames[c.LedgerID]
		if idx == nil {
			idx = make(map[string]uuid.UUID)
			s.categoryNames[c.LedgerID] = idx
		}
		idx[ledger.NameKey(c.Name)] = c.ID
	}
	for _, sc := range snap.SubCategories {
		s.subCategories[sc.ID] = sc
		idx := s.subNames[sc.CategoryID]
		if idx == nil {
			idx = make(map[string]uuid.UUID)
			s.subNames[sc.CategoryID] = idx
		}
		idx[ledger.NameKey(sc.Name)] = sc.ID
	}
	for _, t := range snap.Transactions {
		if _, exists := s.txns[t.ID]; !exists {
			s.insertTxKeyLocked(t.LedgerID, txKey{Date: t.Date, ID: t.ID})
			if t.TransferID != uuid.Nil {
				s.txByTransfer[t.TransferID] = append(s.txByTransfer[t.TransferID], t.ID)
			}
		}
		cp := t
		s.txns[t.ID] = &cp
	}
	for _, st := range snap.ScheduledTransactions {
		s.scheduled[st.ID] = st
	}
	for _, b := range snap.Budgets {
		s.budgets[b.ID] = b
	}
	return nil
}

// --- internals ---

func (s *Store) fail(op string) error {
	if s.failpoint != nil {
		return s.failpoint(op)
	}
	return nil
}

func (s *Store) deleteTxLocked(id uuid.UUID) error {
	t, ok := s.txns[id]
	if !ok {
		return errs.ErrNotFound
	}
	s.removeTxKeyLocked(t.LedgerID, txKey{Date: t.Date, ID: t.ID})
	if t.TransferID != uuid.Nil {
		s.dropTransferMemberLocked(t.TransferID, id)
	}
	delete(s.txns, id)
	return nil
}

func (s *Store) dropTransferMemberLocked(transferID, txID uuid.UUID) {
	members := s.txByTransfer[transferID]
	out := members[:0]
	for _, id := range members {
		if id != txID {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		delete(s.txByTransfer, transferID)
		return
	}
	s.txByTransfer[transferID] = out
}

// insertTxKeyLocked inserts k into the per-ledger sorted index, keeping
// order asc by (Date, ID). Caller holds the write lock.
func (s *Store) insertTxKeyLocked(ledgerID uuid.UUID, k txKey) {
	keys := s.txKeysByLedger[ledgerID]
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].Date.After(k.Date) {
			return true
		}
		if keys[i].Date.Equal(k.Date) {
			return keys[i].ID.String() > k.ID.String()
		}
		return false
	})
	if i == len(keys) {
		s.txKeysByLedger[ledgerID] = append(keys, k)
		return
	}
	keys = append(keys, txKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.txKeysByLedger[ledgerID] = keys
}

func (s *Store) removeTxKeyLocked(ledgerID uuid.UUID, k txKey) {
	keys := s.txKeysByLedger[ledgerID]
	for i := range keys {
		if keys[i].ID == k.ID {
			s.txKeysByLedger[ledgerID] = append(keys[:i], keys[i+1:]...)
			return
		}
	}
}
