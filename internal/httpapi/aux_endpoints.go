package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/nrajesh/budget-it-sub000/internal/dictionary"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz verifies backend connectivity when the store supports it; the
// memory backend is always ready.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if rc, ok := s.store.(ReadyChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		if err := rc.Ready(ctx); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "store not ready", "not_ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getCategoriesDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, dictionary.Categories())
}

func (s *Server) getAccountTypesDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, dictionary.AccountTypes())
}
