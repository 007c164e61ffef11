// Scheduled transaction handlers plus the projection window endpoint.
package httpapi

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) postScheduled(w http.ResponseWriter, r *http.Request) {
	var req postScheduledRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	st, err := s.bookSvc.AddScheduled(r.Context(), toScheduled(req))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toScheduledResponse(st))
}

func (s *Server) listScheduled(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := uuid.Parse(r.URL.Query().Get("ledger_id"))
	if err != nil {
		badRequest(w, "ledger_id is required")
		return
	}
	sts, err := s.bookSvc.ListScheduled(r.Context(), ledgerID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]scheduledResponse, 0, len(sts))
	for _, st := range sts {
		out = append(out, toScheduledResponse(st))
	}
	toJSON(w, http.StatusOK, out)
}

// projectScheduled handles GET /v1/scheduled/projection?ledger_id=...&from=...&to=...
// Dates use the 2006-01-02 form. Instances are virtual and never persisted.
func (s *Server) projectScheduled(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := uuid.Parse(r.URL.Query().Get("ledger_id"))
	if err != nil {
		badRequest(w, "ledger_id is required")
		return
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		badRequest(w, "from must be a YYYY-MM-DD date")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		badRequest(w, "to must be a YYYY-MM-DD date")
		return
	}
	txs, err := s.bookSvc.ProjectScheduled(r.Context(), ledgerID, from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) getScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid scheduled transaction id")
		return
	}
	st, err := s.bookSvc.GetScheduled(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toScheduledResponse(st))
}

func (s *Server) updateScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid scheduled transaction id")
		return
	}
	var req postScheduledRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	st := toScheduled(req)
	st.ID = id
	updated, err := s.bookSvc.UpdateScheduled(r.Context(), st)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toScheduledResponse(updated))
}

func (s *Server) deleteScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid scheduled transaction id")
		return
	}
	if err := s.bookSvc.DeleteScheduled(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
