// Command syncrun performs a single sync from the configured record source
// to HubSpot and prints the run summary. It exits non-zero when the run could
// not start (no source, not authenticated, source unreadable).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/credfile"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/csvfile"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/hubspot"
	"github.com/ericfisherdev/sheetsync/internal/adapter/driven/sheets"
	sqliteadapter "github.com/ericfisherdev/sheetsync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/sheetsync/internal/application"
	"github.com/ericfisherdev/sheetsync/internal/config"
	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sync failed", "error", err)
		if errors.Is(err, driven.ErrNotAuthenticated) || errors.Is(err, driven.ErrTokenRefresh) {
			fmt.Fprintln(os.Stderr, "Not authenticated: start the sheetsync server and visit /install to connect HubSpot.")
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source driven.RecordSource
	switch {
	case cfg.CSVPath != "":
		source = csvfile.NewSource(cfg.CSVPath)
	case cfg.SpreadsheetID != "":
		source, err = sheets.NewSource(ctx, cfg.SpreadsheetID, cfg.SheetName, cfg.GoogleCredentials)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("no record source configured: set SHEETSYNC_SPREADSHEET_ID or SHEETSYNC_CSV_PATH")
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	credStore := credfile.NewStore(cfg.TokenPath)
	authenticator := hubspot.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, cfg.Scopes)
	tokenSvc := application.NewTokenService(credStore, authenticator)

	upsertSvc := application.NewUpsertService(hubspot.NewClient(), application.UpsertOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Dedupe:            cfg.DedupeEnabled,
		CompanyLink:       cfg.CompanyLink,
		StrictDedupe:      cfg.StrictDedupe,
	})
	syncSvc := application.NewSyncService(source, tokenSvc, upsertSvc, sqliteadapter.NewRunRepo(db))

	summary, err := syncSvc.SyncAll(ctx)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *model.RunSummary) {
	if s.NoRecords {
		fmt.Println("No records found in the source.")
		return
	}

	fmt.Printf("Sync complete: %d succeeded, %d failed (%d duplicates skipped, %d without email).\n",
		s.Succeeded, s.Failed, s.SkippedDuplicate, s.SkippedNoEmail)

	for _, o := range s.Outcomes {
		line := fmt.Sprintf("  %3d. %s %s <%s> %s", o.Position+1, o.FirstName, o.LastName, o.Email, o.Outcome)
		if o.Detail != "" {
			line += " (" + o.Detail + ")"
		}
		fmt.Println(line)
	}
}
