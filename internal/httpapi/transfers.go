// Transfer handlers: link two rows, unlink a pair, delete both legs.
package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) linkTransfer(w http.ResponseWriter, r *http.Request) {
	var req linkTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if len(req.TransactionIDs) != 2 {
		badRequest(w, "exactly two transaction ids are required")
		return
	}
	transferID, err := s.bookSvc.LinkTransactionsAsTransfer(r.Context(), req.TransactionIDs[0], req.TransactionIDs[1])
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, transferResponse{TransferID: transferID})
}

func (s *Server) unlinkTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid transfer id")
		return
	}
	n, err := s.bookSvc.UnlinkTransactions(r.Context(), transferID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("unlink_transfer", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}

func (s *Server) deleteTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid transfer id")
		return
	}
	n, err := s.bookSvc.DeleteByTransferID(r.Context(), transferID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("delete_transfer", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}
