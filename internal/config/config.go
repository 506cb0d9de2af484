// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default OAuth scopes requested during install. Override with
// SHEETSYNC_SCOPES (space or comma separated).
var defaultScopes = []string{"crm.objects.contacts.read", "crm.objects.contacts.write"}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURI  string
	ListenAddr   string
	TokenPath    string
	DBPath       string

	// Record source. When CSVPath is set it takes priority over the sheet.
	SpreadsheetID     string
	SheetName         string
	GoogleCredentials string
	CSVPath           string

	// Upload pipeline policy.
	RequestsPerSecond float64
	DedupeEnabled     bool
	CompanyLink       bool
	StrictDedupe      bool

	OpenBrowser bool
}

// HasRecordSource reports whether any record source is configured. The server
// can run without one (OAuth flow only); a sync attempt will fail with a
// clear message instead.
func (c *Config) HasRecordSource() bool {
	return c.CSVPath != "" || c.SpreadsheetID != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is loaded first when present.
// SHEETSYNC_CLIENT_ID and SHEETSYNC_CLIENT_SECRET are required; everything
// else has a default. Optional variables: SHEETSYNC_LISTEN_ADDR
// (127.0.0.1:3000), SHEETSYNC_REDIRECT_URI (http://localhost:3000/oauth-callback),
// SHEETSYNC_TOKEN_PATH (token.json), SHEETSYNC_DB_PATH (sheetsync.db),
// SHEETSYNC_REQUESTS_PER_SECOND (2), SHEETSYNC_DEDUPE (true),
// SHEETSYNC_COMPANY_LINK (true), SHEETSYNC_STRICT_DEDUPE (false),
// SHEETSYNC_OPEN_BROWSER (false).
func Load() (*Config, error) {
	_ = godotenv.Load()

	clientID := os.Getenv("SHEETSYNC_CLIENT_ID")
	clientSecret := os.Getenv("SHEETSYNC_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("SHEETSYNC_CLIENT_ID and SHEETSYNC_CLIENT_SECRET are required")
	}

	listenAddr := getDefault("SHEETSYNC_LISTEN_ADDR", "127.0.0.1:3000")
	redirectURI := getDefault("SHEETSYNC_REDIRECT_URI", "http://localhost:3000/oauth-callback")

	scopes := defaultScopes
	if v, ok := os.LookupEnv("SHEETSYNC_SCOPES"); ok && v != "" {
		scopes = splitList(v)
	}

	rps := 2.0
	if v, ok := os.LookupEnv("SHEETSYNC_REQUESTS_PER_SECOND"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("SHEETSYNC_REQUESTS_PER_SECOND has invalid value %q", v)
		}
		rps = parsed
	}

	dedupe, err := boolDefault("SHEETSYNC_DEDUPE", true)
	if err != nil {
		return nil, err
	}
	companyLink, err := boolDefault("SHEETSYNC_COMPANY_LINK", true)
	if err != nil {
		return nil, err
	}
	strictDedupe, err := boolDefault("SHEETSYNC_STRICT_DEDUPE", false)
	if err != nil {
		return nil, err
	}
	openBrowser, err := boolDefault("SHEETSYNC_OPEN_BROWSER", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		Scopes:            scopes,
		RedirectURI:       redirectURI,
		ListenAddr:        listenAddr,
		TokenPath:         getDefault("SHEETSYNC_TOKEN_PATH", "token.json"),
		DBPath:            getDefault("SHEETSYNC_DB_PATH", "sheetsync.db"),
		SpreadsheetID:     os.Getenv("SHEETSYNC_SPREADSHEET_ID"),
		SheetName:         getDefault("SHEETSYNC_SHEET_NAME", "Hubspot Upload"),
		GoogleCredentials: os.Getenv("SHEETSYNC_GOOGLE_CREDENTIALS"),
		CSVPath:           os.Getenv("SHEETSYNC_CSV_PATH"),
		RequestsPerSecond: rps,
		DedupeEnabled:     dedupe,
		CompanyLink:       companyLink,
		StrictDedupe:      strictDedupe,
		OpenBrowser:       openBrowser,
	}, nil
}

// getDefault returns the env value or the fallback when unset.
func getDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// boolDefault parses an optional boolean env var.
func boolDefault(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	return parsed, nil
}

// splitList splits a space- or comma-separated scope list.
func splitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
