package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/credfile"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/csvfile"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/hubspot"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/sheets"
	sqliteadapter "github.com/ericfisherdev/sheetsync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driving/web"
	"github.com/ericfisherdev/sheetsync/internal/application"
	"github.com/ericfisherdev/sheetsync/internal/config"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"redirect_uri", cfg.RedirectURI,
		"token_path", cfg.TokenPath,
		"db_path", cfg.DBPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	runStore := sqliteadapter.NewRunRepo(db)
	credStore := credfile.NewStore(cfg.TokenPath)
	authenticator := hubspot.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, cfg.Scopes)
	tokenSvc := application.NewTokenService(credStore, authenticator)

	source, err := recordSource(ctx, cfg)
	if err != nil {
		return err
	}

	var syncSvc web.SyncRunner
	if source != nil {
		upsertSvc := application.NewUpsertService(hubspot.NewClient(), application.UpsertOptions{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Dedupe:            cfg.DedupeEnabled,
			CompanyLink:       cfg.CompanyLink,
			StrictDedupe:      cfg.StrictDedupe,
		})
		syncSvc = application.NewSyncService(source, tokenSvc, upsertSvc, runStore)
	} else {
		slog.Info("no record source configured, sync disabled until SHEETSYNC_SPREADSHEET_ID or SHEETSYNC_CSV_PATH is set")
	}

	handler := web.NewHandler(authenticator, tokenSvc, syncSvc, runStore, slog.Default())
	mux := http.NewServeMux()
	web.RegisterRoutes(mux, handler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.ApplyMiddleware(mux, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute, // a sync run renders its result in the response
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	if cfg.OpenBrowser && !tokenSvc.Authorized(ctx) {
		installURL := "http://" + cfg.ListenAddr + "/install"
		if err := browser.OpenURL(installURL); err != nil {
			slog.Warn("could not open browser", "url", installURL, "error", err)
		}
	}

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// recordSource picks the configured record source: a CSV file when set,
// otherwise the Google Sheet, otherwise nil (OAuth-only mode).
func recordSource(ctx context.Context, cfg *config.Config) (driven.RecordSource, error) {
	if cfg.CSVPath != "" {
		slog.Info("record source: csv", "path", cfg.CSVPath)
		return csvfile.NewSource(cfg.CSVPath), nil
	}
	if cfg.SpreadsheetID != "" {
		slog.Info("record source: google sheet", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
		return sheets.NewSource(ctx, cfg.SpreadsheetID, cfg.SheetName, cfg.GoogleCredentials)
	}
	return nil, nil
}
