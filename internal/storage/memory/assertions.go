package memory

import (
	"github.com/nrajesh/budget-it-sub000/internal/service/book"
	"github.com/nrajesh/budget-it-sub000/internal/service/budget"
	"github.com/nrajesh/budget-it-sub000/internal/service/catalog"
	"github.com/nrajesh/budget-it-sub000/internal/service/ledgers"
)

// The store backs every service; keep the contracts honest at compile time.
var (
	_ catalog.Repo   = (*Store)(nil)
	_ catalog.Writer = (*Store)(nil)
	_ book.Repo      = (*Store)(nil)
	_ book.Writer    = (*Store)(nil)
	_ budget.Repo    = (*Store)(nil)
	_ budget.Writer  = (*Store)(nil)
	_ ledgers.Repo   = (*Store)(nil)
	_ ledgers.Writer = (*Store)(nil)
)
