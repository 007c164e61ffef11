package httpapi

import (
	"context"

	"github.com/nrajesh/budget-it-sub000/internal/service/book"
	"github.com/nrajesh/budget-it-sub000/internal/service/budget"
	"github.com/nrajesh/budget-it-sub000/internal/service/catalog"
	"github.com/nrajesh/budget-it-sub000/internal/service/ledgers"
)

// Store is the full storage surface the server wires its services onto.
// Both the memory and postgres backends satisfy it.
type Store interface {
	catalog.Repo
	catalog.Writer
	book.Repo
	book.Writer
	budget.Repo
	budget.Writer
	ledgers.Repo
	ledgers.Writer
}

// ReadyChecker is implemented by backends that can verify connectivity.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
