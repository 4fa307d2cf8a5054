// Package google exports logged activities to a Google Sheets spreadsheet,
// one worksheet per year ("2025 Activities").
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ecotrack/internal/config"
	"ecotrack/internal/core"
	"ecotrack/internal/ports"
)

const (
	defaultSheetBase   = "Activities"
	defaultIDCacheTTL  = 10 * time.Minute
	headerRowFirstCell = "Date"
)

// Header is written to an empty worksheet before the first row.
var Header = []any{"Date", "Time", "User", "Category", "Subtype", "Secondary", "Quantity", "CO2 (kg)", "Source", "ID"}

// Options configures a Client. Exactly one of each File/JSON pair is needed.
type Options struct {
	SpreadsheetID string
	SheetBase     string
	ClientFile    string
	ClientJSON    string
	TokenFile     string
	TokenJSON     string
}

// OptionsFromConfig maps the application config onto exporter options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetBase:     cfg.GoogleSheetName,
		ClientFile:    cfg.GoogleOAuthClientFile,
		ClientJSON:    cfg.GoogleOAuthClientJSON,
		TokenFile:     cfg.GoogleOAuthTokenFile,
		TokenJSON:     cfg.GoogleOAuthTokenJSON,
	}
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	// exported activity ids per worksheet, refreshed after cacheValidDuration
	mu                 sync.Mutex
	cacheValidDuration time.Duration
	exportedIDs        map[string]map[string]struct{}
	cacheExpiresAt     map[string]time.Time
}

var _ ports.ActivityExporter = (*Client)(nil)

// New creates a Sheets client authorised with a stored OAuth token.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, opts.SheetBase), nil
}

func newClient(svc *gsheet.Service, spreadsheetID, base string) *Client {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultSheetBase
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          base,
		cacheValidDuration: defaultIDCacheTTL,
		exportedIDs:        map[string]map[string]struct{}{},
		cacheExpiresAt:     map[string]time.Time{},
	}
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	clientJSON, err := readCredential(opts.ClientJSON, opts.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if clientJSON == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	tokenJSON, err := readCredential(opts.TokenJSON, opts.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var token oauth2.Token
	if err := jsonUnmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	// the token source refreshes through the pooled transport
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := cfg.Client(ctx, &token)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func readCredential(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if f := strings.TrimSpace(file); f != "" {
		return os.ReadFile(f)
	}
	return nil, nil
}

var jsonUnmarshal = json.Unmarshal

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// SheetName returns the worksheet an activity from the given year goes to.
func (c *Client) SheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// ExportActivity appends rec as one row. Records already present in the
// worksheet (matched by id) are skipped and reported with their sheet name,
// so redelivered messages do not duplicate rows.
func (c *Client) ExportActivity(ctx context.Context, userID string, rec core.ActivityRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if rec.ID == "" {
		return "", errors.New("activity without id cannot be exported")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.SheetName(rec.Timestamp.Year())
	ids, err := c.exportedIn(ctx, sheet)
	if err != nil {
		return "", err
	}
	if _, dup := ids[rec.ID]; dup {
		slog.InfoContext(ctx, "Activity already exported", "activity_id", rec.ID, "sheet", sheet)
		return sheet + "!" + rec.ID, nil
	}

	rows := [][]any{activityRow(userID, rec)}
	if len(ids) == 0 {
		rows = append([][]any{Header}, rows...)
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:J", &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.invalidate(sheet)
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	c.remember(sheet, rec.ID)

	ref := sheet
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// ListActivities reads every exported activity of the given year.
func (c *Client) ListActivities(ctx context.Context, year int) ([]ExportedActivity, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.SheetName(year) + "!A:J"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseActivityRows(resp.Values), nil
}

func (c *Client) exportedIn(ctx context.Context, sheet string) (map[string]struct{}, error) {
	c.mu.Lock()
	ids, ok := c.exportedIDs[sheet]
	valid := ok && time.Now().Before(c.cacheExpiresAt[sheet])
	c.mu.Unlock()
	if valid {
		return ids, nil
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!J:J").Context(ctx).Do()
	if err != nil && !isMissingSheet(err) {
		return nil, fmt.Errorf("read exported ids from %s: %w", sheet, err)
	}
	fresh := map[string]struct{}{}
	if resp != nil {
		for _, row := range resp.Values {
			if len(row) == 0 {
				continue
			}
			if id := strings.TrimSpace(fmt.Sprint(row[0])); id != "" {
				fresh[id] = struct{}{}
			}
		}
	}

	c.mu.Lock()
	c.exportedIDs[sheet] = fresh
	c.cacheExpiresAt[sheet] = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return fresh, nil
}

func (c *Client) remember(sheet, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exportedIDs[sheet] == nil {
		c.exportedIDs[sheet] = map[string]struct{}{}
	}
	c.exportedIDs[sheet][id] = struct{}{}
}

func (c *Client) invalidate(sheet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cacheExpiresAt, sheet)
}

func isMissingSheet(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Unable to parse range")
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
