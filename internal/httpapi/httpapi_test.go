package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nrajesh/budget-it-sub000/internal/dictionary"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/meta"
	"github.com/nrajesh/budget-it-sub000/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(memory.New(), logger)
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func createLedger(t *testing.T, srv *Server) ledgerResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/v1/ledgers", postLedgerRequest{Name: "Household", Currency: "USD"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ledger: %d %s", rec.Code, rec.Body.String())
	}
	return decode[ledgerResponse](t, rec)
}

func postTx(t *testing.T, srv *Server, ledgerID uuid.UUID, date time.Time, minor int64, vendor, category string) transactionResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/v1/transactions", postTransactionRequest{
		LedgerID:    ledgerID,
		Date:        date,
		AmountMinor: minor,
		Currency:    "USD",
		Account:     "Checking",
		Vendor:      vendor,
		Category:    category,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: %d %s", rec.Code, rec.Body.String())
	}
	return decode[transactionResponse](t, rec)
}

func TestTransactionFlow(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tx := postTx(t, srv, l.ID, day, -1250, "Tesco", "Groceries")
	if tx.AmountMinor != -1250 || tx.Vendor != "Tesco" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	// the write must have ensured the vendor, account and category rows
	rec := do(t, srv, http.MethodGet, "/v1/payees?ledger_id="+l.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list payees: %d", rec.Code)
	}
	payees := decode[[]payeeResponse](t, rec)
	names := map[string]bool{}
	for _, p := range payees {
		names[p.Name] = p.IsAccount
	}
	if isAcct, ok := names["Checking"]; !ok || !isAcct {
		t.Fatalf("expected Checking to be an account payee: %+v", payees)
	}
	if _, ok := names["Tesco"]; !ok {
		t.Fatalf("expected Tesco payee: %+v", payees)
	}

	rec = do(t, srv, http.MethodGet, "/v1/transactions?ledger_id="+l.ID.String(), nil)
	txs := decode[[]transactionResponse](t, rec)
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Fatalf("unexpected list: %+v", txs)
	}
}

func TestTransactionMetadataRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)

	rec := do(t, srv, http.MethodPost, "/v1/transactions", postTransactionRequest{
		LedgerID:    l.ID,
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		AmountMinor: -1250,
		Currency:    "USD",
		Account:     "Checking",
		Vendor:      "Tesco",
		Category:    "Groceries",
		Metadata:    meta.New(map[string]string{"source": "csv-import"}),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[transactionResponse](t, rec)
	if v, ok := created.Metadata.Get("source"); !ok || v != "csv-import" {
		t.Fatalf("metadata dropped on create: %+v", created.Metadata)
	}

	rec = do(t, srv, http.MethodGet, "/v1/transactions/"+created.ID.String(), nil)
	stored := decode[transactionResponse](t, rec)
	if v, ok := stored.Metadata.Get("source"); !ok || v != "csv-import" {
		t.Fatalf("metadata not persisted: %+v", stored.Metadata)
	}

	// invalid metadata is rejected before the row lands
	rec = do(t, srv, http.MethodPost, "/v1/transactions", postTransactionRequest{
		LedgerID:    l.ID,
		Date:        time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		AmountMinor: -100,
		Currency:    "USD",
		Account:     "Checking",
		Vendor:      "Tesco",
		Category:    "Groceries",
		Metadata:    meta.New(map[string]string{"k": strings.Repeat("v", meta.MaxValLen+1)}),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized metadata should 400, got %d", rec.Code)
	}
}

func TestRenamePayeeCascadesOverWire(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	postTx(t, srv, l.ID, day, -500, "Tesco", "Groceries")
	postTx(t, srv, l.ID, day.AddDate(0, 0, 1), -700, "Tesco", "Groceries")

	rec := do(t, srv, http.MethodGet, "/v1/payees?ledger_id="+l.ID.String(), nil)
	var tescoID uuid.UUID
	for _, p := range decode[[]payeeResponse](t, rec) {
		if p.Name == "Tesco" {
			tescoID = p.ID
		}
	}
	if tescoID == uuid.Nil {
		t.Fatalf("Tesco payee not found")
	}

	rec = do(t, srv, http.MethodPost, "/v1/payees/"+tescoID.String()+"/rename", renameRequest{NewName: "Tesco Extra"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: %d %s", rec.Code, rec.Body.String())
	}
	if n := decode[rowsResponse](t, rec).RowsAffected; n != 2 {
		t.Fatalf("expected 2 rewritten rows, got %d", n)
	}

	rec = do(t, srv, http.MethodGet, "/v1/transactions?ledger_id="+l.ID.String(), nil)
	for _, tx := range decode[[]transactionResponse](t, rec) {
		if tx.Vendor != "Tesco Extra" {
			t.Fatalf("stale vendor name on %s: %q", tx.ID, tx.Vendor)
		}
	}
}

func TestUpdateAccountOverWire(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)

	rec := do(t, srv, http.MethodPost, "/v1/payees/ensure", ensurePayeeRequest{
		LedgerID:  l.ID,
		Name:      "Savings",
		IsAccount: true,
		Currency:  "USD",
		Type:      ledger.AccountTypeSavings,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ensure account: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/v1/payees?ledger_id="+l.ID.String(), nil)
	var accountID uuid.UUID
	for _, p := range decode[[]payeeResponse](t, rec) {
		if p.Name == "Savings" && p.Account != nil {
			accountID = p.Account.ID
		}
	}
	if accountID == uuid.Nil {
		t.Fatalf("account row not found")
	}

	remarks := "emergency fund"
	rec = do(t, srv, http.MethodPatch, "/v1/accounts/"+accountID.String(), updateAccountRequest{Remarks: &remarks})
	if rec.Code != http.StatusOK {
		t.Fatalf("update account: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[accountResponse](t, rec); got.Remarks != remarks || got.Currency != "USD" {
		t.Fatalf("updated account = %+v", got)
	}

	rec = do(t, srv, http.MethodPatch, "/v1/accounts/"+accountID.String(), updateAccountRequest{Currency: "EUR"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("currency change should 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestTransferLinkUnlink(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	out := postTx(t, srv, l.ID, day, -10000, "Savings", "General")
	in := postTx(t, srv, l.ID, day, 10000, "Checking", "General")

	rec := do(t, srv, http.MethodPost, "/v1/transfers/link", linkTransferRequest{TransactionIDs: []uuid.UUID{out.ID, in.ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("link: %d %s", rec.Code, rec.Body.String())
	}
	transferID := decode[transferResponse](t, rec).TransferID

	rec = do(t, srv, http.MethodGet, "/v1/transactions?ledger_id="+l.ID.String(), nil)
	for _, tx := range decode[[]transactionResponse](t, rec) {
		if tx.TransferID == nil || *tx.TransferID != transferID {
			t.Fatalf("leg %s not linked", tx.ID)
		}
		if tx.Category != dictionary.TransferCategory {
			t.Fatalf("leg %s category = %q", tx.ID, tx.Category)
		}
	}

	rec = do(t, srv, http.MethodPost, "/v1/transfers/"+transferID.String()+"/unlink", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlink: %d %s", rec.Code, rec.Body.String())
	}
	if n := decode[rowsResponse](t, rec).RowsAffected; n != 2 {
		t.Fatalf("expected 2 unlinked rows, got %d", n)
	}

	rec = do(t, srv, http.MethodPost, "/v1/transfers/"+transferID.String()+"/unlink", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second unlink should 422, got %d", rec.Code)
	}
}

func TestBudgetSpendingOverWire(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)
	day := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	postTx(t, srv, l.ID, day, -2000, "Tesco", "Groceries")
	postTx(t, srv, l.ID, day, -1500, "Aldi", "Groceries")
	postTx(t, srv, l.ID, day, 99999, "Employer", "Salary")

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	rec := do(t, srv, http.MethodPost, "/v1/budgets", postBudgetRequest{
		LedgerID:          l.ID,
		CategoryName:      "Groceries",
		TargetAmountMinor: 10000,
		Currency:          "USD",
		StartDate:         start,
		EndDate:           &end,
		IsActive:          true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/v1/budgets?ledger_id="+l.ID.String(), nil)
	budgets := decode[[]budgetResponse](t, rec)
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(budgets))
	}
	if budgets[0].SpentAmountMinor != 3500 {
		t.Fatalf("spent = %d, want 3500", budgets[0].SpentAmountMinor)
	}
}

func TestExportImportOverWire(t *testing.T) {
	srv := newTestServer(t)
	l := createLedger(t, srv)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	postTx(t, srv, l.ID, day, -4200, "Tesco", "Groceries")

	rec := do(t, srv, http.MethodGet, "/v1/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	snapshot := rec.Body.Bytes()

	fresh := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/import", bytes.NewReader(snapshot))
	rec2 := httptest.NewRecorder()
	fresh.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec2.Code, rec2.Body.String())
	}
	stats := decode[importStatsResponse](t, rec2)
	if stats.Ledgers != 1 || stats.Transactions != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rec3 := do(t, fresh, http.MethodGet, "/v1/transactions?ledger_id="+l.ID.String(), nil)
	txs := decode[[]transactionResponse](t, rec3)
	if len(txs) != 1 || txs[0].AmountMinor != -4200 {
		t.Fatalf("round trip lost data: %+v", txs)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/v1/ledgers/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing ledger should 404, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/v1/ledgers/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id should 400, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/v1/ledgers", map[string]any{"unknown_field": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field should 400, got %d", rec.Code)
	}
}

func TestHealthAndDictionary(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := do(t, srv, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rec.Code)
		}
	}
	rec := do(t, srv, http.MethodGet, "/v1/dictionary/categories", nil)
	cats := decode[[]dictionary.CategoryDef](t, rec)
	if len(cats) == 0 {
		t.Fatalf("expected curated categories")
	}
	rec = do(t, srv, http.MethodGet, "/v1/dictionary/account-types", nil)
	types := decode[[]dictionary.AccountTypeDef](t, rec)
	if len(types) == 0 {
		t.Fatalf("expected account types")
	}
}
