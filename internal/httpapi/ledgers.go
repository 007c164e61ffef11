// Ledger handlers: lifecycle plus the cascading delete.
package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

func (s *Server) postLedger(w http.ResponseWriter, r *http.Request) {
	var req postLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	l, err := s.ledgerSvc.CreateLedger(r.Context(), ledger.Ledger{
		Name:      req.Name,
		ShortName: req.ShortName,
		Icon:      req.Icon,
		Currency:  req.Currency,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toLedgerResponse(l))
}

func (s *Server) listLedgers(w http.ResponseWriter, r *http.Request) {
	ls, err := s.ledgerSvc.ListLedgers(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]ledgerResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLedgerResponse(l))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid ledger id")
		return
	}
	l, err := s.ledgerSvc.GetLedger(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	// opening a ledger counts as access
	if err := s.ledgerSvc.TouchLedger(r.Context(), id); err != nil {
		s.log.Warn("touch ledger failed", "ledger_id", id, "err", err)
	}
	toJSON(w, http.StatusOK, toLedgerResponse(l))
}

func (s *Server) updateLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid ledger id")
		return
	}
	var req postLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	l, err := s.ledgerSvc.UpdateLedger(r.Context(), ledger.Ledger{
		ID:        id,
		Name:      req.Name,
		ShortName: req.ShortName,
		Icon:      req.Icon,
		Currency:  req.Currency,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toLedgerResponse(l))
}

func (s *Server) deleteLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid ledger id")
		return
	}
	n, err := s.ledgerSvc.DeleteLedger(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("delete_ledger", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}
