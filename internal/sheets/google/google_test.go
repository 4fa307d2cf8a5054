package google

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"ecotrack/internal/config"
	"ecotrack/internal/core"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_InvalidClientJSON(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID: "test-id",
		ClientJSON:    "invalid-json",
		TokenJSON:     `{"access_token":"test"}`,
	})
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantMsg string
	}{
		{
			name:    "missing client",
			opts:    Options{},
			wantMsg: "missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)",
		},
		{
			name:    "missing token",
			opts:    Options{ClientJSON: testClientJSON},
			wantMsg: "missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSheetsService(context.Background(), tt.opts)
			if err == nil || err.Error() != tt.wantMsg {
				t.Errorf("expected %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestNewSheetsService_MissingTokenFile(t *testing.T) {
	_, err := newSheetsService(context.Background(), Options{ClientJSON: testClientJSON, TokenFile: "/non/existent/token.json"})
	if err == nil || !strings.Contains(err.Error(), "read oauth token") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestJsonUnmarshalIndirection(t *testing.T) {
	var token oauth2.Token
	if err := jsonUnmarshal([]byte(`{"access_token":"test-token","token_type":"Bearer"}`), &token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "test-token" {
		t.Errorf("expected access token 'test-token', got %q", token.AccessToken)
	}
	if err := jsonUnmarshal([]byte(`{invalid json}`), &token); err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Activities", 2025, "2025 Activities"},
		{"2024 Activities", 2025, "2024 Activities"},
		{"  Activities  ", 2026, "2026 Activities"},
		{"", 2025, ""},
		{"123 Activities", 2025, "2025 123 Activities"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.baseName, tt.year); got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestDefaultSheetBase(t *testing.T) {
	c := newClient(nil, "id", "")
	if got := c.SheetName(2025); got != "2025 Activities" {
		t.Errorf("SheetName() = %q, want %q", got, "2025 Activities")
	}
	c = newClient(nil, "id", "Footprint")
	if got := c.SheetName(2024); got != "2024 Footprint" {
		t.Errorf("SheetName() = %q, want %q", got, "2024 Footprint")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{
		GoogleSpreadsheetID:  "sheet",
		GoogleSheetName:      "Activities",
		GoogleOAuthTokenFile: "token.json",
	})
	if opts.SpreadsheetID != "sheet" || opts.SheetBase != "Activities" || opts.TokenFile != "token.json" {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
}

func TestExportActivity_Validation(t *testing.T) {
	c := newClient(nil, "test", "")
	ctx := context.Background()

	_, err := c.ExportActivity(ctx, "u1", core.ActivityRecord{Category: "travel", Timestamp: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("expected validation error, got %v", err)
	}

	rec := core.ActivityRecord{Category: core.Energy, Subtype: "gas", Quantity: 2, ComputedCO2: 0.4, Timestamp: time.Now()}
	if _, err := c.ExportActivity(ctx, "u1", rec); err == nil || !strings.Contains(err.Error(), "without id") {
		t.Errorf("expected missing id error, got %v", err)
	}

	rec.ID = "a1"
	if _, err := c.ExportActivity(ctx, "u1", rec); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected uninitialised service error, got %v", err)
	}
}

func TestExportedIDCache(t *testing.T) {
	c := newClient(nil, "test", "")
	c.cacheValidDuration = 50 * time.Millisecond

	c.remember("2025 Activities", "a1")
	c.mu.Lock()
	c.cacheExpiresAt["2025 Activities"] = time.Now().Add(c.cacheValidDuration)
	_, ok := c.exportedIDs["2025 Activities"]["a1"]
	c.mu.Unlock()
	if !ok {
		t.Fatal("remembered id should be cached")
	}

	ids, err := c.exportedIn(context.Background(), "2025 Activities")
	if err != nil {
		t.Fatalf("exportedIn() with a valid cache should not hit the API: %v", err)
	}
	if _, ok := ids["a1"]; !ok {
		t.Error("cached ids should include a1")
	}

	c.invalidate("2025 Activities")
	c.mu.Lock()
	_, valid := c.cacheExpiresAt["2025 Activities"]
	c.mu.Unlock()
	if valid {
		t.Error("invalidate should drop the expiry")
	}
}
