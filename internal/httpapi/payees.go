// Payee handlers: ensure, check, rename, merge, currency, delete. Rename and
// merge report the number of rows rewritten across every name mirror.
package httpapi

import (
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/errs"
	"github.com/nrajesh/budget-it-sub000/internal/service/catalog"
)

func (s *Server) listPayees(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := uuid.Parse(r.URL.Query().Get("ledger_id"))
	if err != nil {
		badRequest(w, "ledger_id is required")
		return
	}
	vs, err := s.catalogSvc.ListPayees(r.Context(), ledgerID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]payeeResponse, 0, len(vs))
	for _, v := range vs {
		resp := payeeResponse{ID: v.ID, LedgerID: v.LedgerID, Name: v.Name, IsAccount: v.IsAccount}
		if v.IsAccount {
			if a, err := s.catalogSvc.GetAccount(r.Context(), v.AccountID); err == nil {
				resp.Account = toAccountResponse(a)
			}
		}
		out = append(out, resp)
	}
	toJSON(w, http.StatusOK, out)
}

// checkPayee handles GET /v1/payees/check?ledger_id=...&name=...
func (s *Server) checkPayee(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := uuid.Parse(r.URL.Query().Get("ledger_id"))
	if err != nil {
		badRequest(w, "ledger_id is required")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	isAccount, err := s.catalogSvc.CheckIfPayeeIsAccount(r.Context(), ledgerID, name)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp := checkPayeeResponse{Name: name, IsAccount: isAccount}
	if isAccount {
		currency, err := s.catalogSvc.GetAccountCurrency(r.Context(), ledgerID, name)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			writeDomainErr(w, err)
			return
		}
		resp.Currency = currency
	}
	toJSON(w, http.StatusOK, resp)
}

func (s *Server) ensurePayee(w http.ResponseWriter, r *http.Request) {
	var req ensurePayeeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	var opts *catalog.AccountOptions
	if req.IsAccount {
		opts = &catalog.AccountOptions{
			Currency:        req.Currency,
			Type:            req.Type,
			StartingBalance: amountOf(req.Currency, req.StartingBalanceMinor),
			Remarks:         req.Remarks,
		}
		if req.CreditLimitMinor != nil {
			limit := amountOf(req.Currency, *req.CreditLimitMinor)
			opts.CreditLimit = &limit
		}
	}
	id, err := s.catalogSvc.EnsurePayeeExists(r.Context(), req.LedgerID, req.Name, req.IsAccount, opts)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, payeeResponse{ID: id, LedgerID: req.LedgerID, Name: req.Name, IsAccount: req.IsAccount})
}

func (s *Server) mergePayees(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.TargetName == "" || len(req.SourceNames) == 0 {
		badRequest(w, "target_name and source_names are required")
		return
	}
	n, err := s.catalogSvc.MergePayees(r.Context(), req.LedgerID, req.TargetName, req.SourceNames)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("merge_payees", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}

func (s *Server) renamePayee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid payee id")
		return
	}
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	n, err := s.catalogSvc.RenamePayee(r.Context(), id, req.NewName)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("rename_payee", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}

func (s *Server) setPayeeCurrency(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid payee id")
		return
	}
	var req currencyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if _, err := money.NewAmountFromMinorUnits(req.Currency, 0); err != nil {
		badRequest(w, "invalid currency code")
		return
	}
	n, err := s.catalogSvc.SetAccountCurrency(r.Context(), id, req.Currency)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("set_currency", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}

// updateAccount patches the editable account fields. Currency is immutable
// here; SetAccountCurrency owns that cascade.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a, err := s.catalogSvc.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.Currency != "" {
		a.Currency = req.Currency
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.StartingBalanceMinor != nil {
		a.StartingBalance = amountOf(a.Currency, *req.StartingBalanceMinor)
	}
	if req.CreditLimitMinor != nil {
		limit := amountOf(a.Currency, *req.CreditLimitMinor)
		a.CreditLimit = &limit
	}
	if req.Remarks != nil {
		a.Remarks = *req.Remarks
	}
	if req.Metadata != nil {
		a.Metadata = req.Metadata
	}
	updated, err := s.catalogSvc.UpdateAccount(r.Context(), a)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(updated))
}

func (s *Server) deletePayee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid payee id")
		return
	}
	if err := s.catalogSvc.DeletePayee(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
