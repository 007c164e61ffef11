// Export and import endpoints over the snapshot form.
package httpapi

import (
	"io"
	"net/http"

	"github.com/google/uuid"
)

// exportData handles GET /v1/export. An optional ledger_id query scopes the
// snapshot to a single ledger.
func (s *Server) exportData(w http.ResponseWriter, r *http.Request) {
	var target *uuid.UUID
	if raw := r.URL.Query().Get("ledger_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid ledger_id")
			return
		}
		target = &id
	}
	data, err := s.ledgerSvc.ExportData(r.Context(), target)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// importData handles POST /v1/import. An optional ledger_id query rebinds
// every imported row to that ledger.
func (s *Server) importData(w http.ResponseWriter, r *http.Request) {
	var target *uuid.UUID
	if raw := r.URL.Query().Get("ledger_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid ledger_id")
			return
		}
		target = &id
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "could not read body")
		return
	}
	stats, err := s.ledgerSvc.ImportData(r.Context(), body, target)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, importStatsResponse{
		Ledgers:               stats.Ledgers,
		Vendors:               stats.Vendors,
		Accounts:              stats.Accounts,
		Categories:            stats.Categories,
		SubCategories:         stats.SubCategories,
		Transactions:          stats.Transactions,
		ScheduledTransactions: stats.ScheduledTransactions,
		Budgets:               stats.Budgets,
	})
}
