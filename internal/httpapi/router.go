// Package httpapi wires the HTTP surface of the data provider. Handlers stay
// thin and delegate every rule to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nrajesh/budget-it-sub000/internal/service/book"
	"github.com/nrajesh/budget-it-sub000/internal/service/budget"
	"github.com/nrajesh/budget-it-sub000/internal/service/catalog"
	"github.com/nrajesh/budget-it-sub000/internal/service/ledgers"
)

// Server composes the services over one storage backend using Chi.
type Server struct {
	ledgerSvc  ledgers.Service
	catalogSvc catalog.Service
	bookSvc    book.Service
	budgetSvc  budget.Service
	store      Store
	log        *slog.Logger
	rt         *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(store Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	cat := catalog.New(store, store)
	s := &Server{
		ledgerSvc:  ledgers.New(store, store),
		catalogSvc: cat,
		bookSvc:    book.New(store, store, cat),
		budgetSvc:  budget.New(store, store),
		store:      store,
		log:        logger,
		rt:         r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	// Ledgers
	s.rt.Post("/v1/ledgers", s.postLedger)
	s.rt.Get("/v1/ledgers", s.listLedgers)
	s.rt.Get("/v1/ledgers/{id}", s.getLedger)
	s.rt.Patch("/v1/ledgers/{id}", s.updateLedger)
	s.rt.Delete("/v1/ledgers/{id}", s.deleteLedger)

	// Transactions
	s.rt.Post("/v1/transactions", s.postTransaction)
	s.rt.Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.Patch("/v1/transactions/{id}", s.updateTransaction)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	s.rt.Post("/v1/transactions/delete", s.deleteTransactions)

	// Transfers
	s.rt.Post("/v1/transfers/link", s.linkTransfer)
	s.rt.Post("/v1/transfers/{id}/unlink", s.unlinkTransfer)
	s.rt.Delete("/v1/transfers/{id}", s.deleteTransfer)

	// Scheduled transactions and projection
	s.rt.Post("/v1/scheduled", s.postScheduled)
	s.rt.Get("/v1/scheduled", s.listScheduled)
	s.rt.Get("/v1/scheduled/projection", s.projectScheduled)
	s.rt.Get("/v1/scheduled/{id}", s.getScheduled)
	s.rt.Patch("/v1/scheduled/{id}", s.updateScheduled)
	s.rt.Delete("/v1/scheduled/{id}", s.deleteScheduled)

	// Budgets
	s.rt.Post("/v1/budgets", s.postBudget)
	s.rt.Get("/v1/budgets", s.listBudgetsWithSpending)
	s.rt.Patch("/v1/budgets/{id}", s.updateBudget)
	s.rt.Delete("/v1/budgets/{id}", s.deleteBudget)

	// Payees
	s.rt.Get("/v1/payees", s.listPayees)
	s.rt.Get("/v1/payees/check", s.checkPayee)
	s.rt.Post("/v1/payees/ensure", s.ensurePayee)
	s.rt.Post("/v1/payees/merge", s.mergePayees)
	s.rt.Post("/v1/payees/{id}/rename", s.renamePayee)
	s.rt.Post("/v1/payees/{id}/currency", s.setPayeeCurrency)
	s.rt.Delete("/v1/payees/{id}", s.deletePayee)

	// Accounts
	s.rt.Patch("/v1/accounts/{id}", s.updateAccount)

	// Categories and sub-categories
	s.rt.Get("/v1/categories", s.listCategories)
	s.rt.Post("/v1/categories/ensure", s.ensureCategory)
	s.rt.Post("/v1/categories/merge", s.mergeCategories)
	s.rt.Post("/v1/categories/{id}/rename", s.renameCategory)
	s.rt.Delete("/v1/categories/{id}", s.deleteCategory)
	s.rt.Get("/v1/categories/{id}/sub-categories", s.listSubCategories)
	s.rt.Post("/v1/categories/{id}/sub-categories/ensure", s.ensureSubCategory)
	s.rt.Post("/v1/categories/{id}/sub-categories/rename", s.renameSubCategory)

	// Export / import
	s.rt.Get("/v1/export", s.exportData)
	s.rt.Post("/v1/import", s.importData)

	// Dictionary
	s.rt.Get("/v1/dictionary/categories", s.getCategoriesDictionary)
	s.rt.Get("/v1/dictionary/account-types", s.getAccountTypesDictionary)

	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
