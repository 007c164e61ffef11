package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nrajesh/budget-it-sub000/internal/httpapi"
	"github.com/nrajesh/budget-it-sub000/internal/ledger"
	"github.com/nrajesh/budget-it-sub000/internal/service/catalog"
	"github.com/nrajesh/budget-it-sub000/internal/service/ledgers"
	"github.com/nrajesh/budget-it-sub000/internal/storage/memory"
	pgstore "github.com/nrajesh/budget-it-sub000/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var handler http.Handler
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		if devSeedEnabled() {
			l, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", l)
				printDevSeedBanner(l)
			}
		}
		handler = httpapi.New(pg, logger).Handler()
		logger.Info("storage backend: postgres")
	} else {
		store := memory.New()
		if devSeedEnabled() {
			l, err := seedMemory(ctx, store)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "memory", l)
				printDevSeedBanner(l)
			}
		}
		handler = httpapi.New(store, logger).Handler()
		logger.Info("storage backend: memory")
	}

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("budget-it data service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func devSeedEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// seedMemory creates a demo ledger with a couple of accounts and categories
// through the service layer so the same invariants apply as in production.
func seedMemory(ctx context.Context, store *memory.Store) (ledger.Ledger, error) {
	ledgerSvc := ledgers.New(store, store)
	catalogSvc := catalog.New(store, store)

	l, err := ledgerSvc.CreateLedger(ctx, ledger.Ledger{Name: "Demo Ledger", Currency: "USD"})
	if err != nil {
		return ledger.Ledger{}, err
	}
	for _, acct := range []struct {
		name string
		typ  ledger.AccountType
	}{
		{"Checking", ledger.AccountTypeChecking},
		{"Savings", ledger.AccountTypeSavings},
	} {
		opts := &catalog.AccountOptions{Currency: "USD", Type: acct.typ}
		if _, err := catalogSvc.EnsurePayeeExists(ctx, l.ID, acct.name, true, opts); err != nil {
			return ledger.Ledger{}, err
		}
	}
	for _, name := range []string{"Groceries", "Rent", "Transfer"} {
		if _, err := catalogSvc.EnsureCategoryExists(ctx, l.ID, name); err != nil {
			return ledger.Ledger{}, err
		}
	}
	return l, nil
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, seeded ledger.Ledger) {
	l.Info("DEV seed ("+backend+")", "ledger_id", seeded.ID.String(), "short_name", seeded.ShortName)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(seeded ledger.Ledger) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("ledger_id: %s\n", seeded.ID.String())
	fmt.Printf("short_name: %s\n", seeded.ShortName)
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
