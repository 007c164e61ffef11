// Category and sub-category handlers. Cascade totals come back from the
// catalog service so callers can see how many rows a rename touched.
package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	ledgerID, err := uuid.Parse(r.URL.Query().Get("ledger_id"))
	if err != nil {
		badRequest(w, "ledger_id is required")
		return
	}
	cs, err := s.catalogSvc.ListCategories(r.Context(), ledgerID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryResponse{ID: c.ID, LedgerID: c.LedgerID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) ensureCategory(w http.ResponseWriter, r *http.Request) {
	var req ensureCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	id, err := s.catalogSvc.EnsureCategoryExists(r.Context(), req.LedgerID, req.Name)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, categoryResponse{ID: id, LedgerID: req.LedgerID, Name: req.Name})
}

func (s *Server) mergeCategories(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.TargetName == "" || len(req.SourceNames) == 0 {
		badRequest(w, "target_name and source_names are required")
		return
	}
	n, err := s.catalogSvc.MergeCategories(r.Context(), req.LedgerID, req.TargetName, req.SourceNames)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("merge_categories", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}

func (s *Server) renameCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid category id")
		return
	}
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	n, err := s.catalogSvc.RenameCategory(r.Context(), id, req.NewName)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("rename_category", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid category id")
		return
	}
	if err := s.catalogSvc.DeleteCategory(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSubCategories(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid category id")
		return
	}
	scs, err := s.catalogSvc.ListSubCategories(r.Context(), categoryID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]subCategoryResponse, 0, len(scs))
	for _, sc := range scs {
		out = append(out, subCategoryResponse{ID: sc.ID, CategoryID: sc.CategoryID, Name: sc.Name, CreatedAt: sc.CreatedAt})
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) ensureSubCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid category id")
		return
	}
	var req ensureSubCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	id, err := s.catalogSvc.EnsureSubCategoryExists(r.Context(), req.LedgerID, categoryID, req.Name)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, subCategoryResponse{ID: id, CategoryID: categoryID, Name: req.Name})
}

// renameSubCategory rewrites transaction mirrors only where both the
// category and the sub-category names match.
func (s *Server) renameSubCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid category id")
		return
	}
	var req renameSubCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	n, err := s.catalogSvc.RenameSubCategory(r.Context(), req.LedgerID, categoryID, req.OldName, req.NewName)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observeCascade("rename_sub_category", n)
	toJSON(w, http.StatusOK, rowsResponse{RowsAffected: n})
}
