package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecotrack/internal/core"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse(%q) error = %v", body, err)
	}
	return p
}

func TestRequestBodyParser_JSONAndForm(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
	}{
		{"json", `{"type":"food","subtype":" beef ","quantity":2}`, true},
		{"form", "type=food&subtype=+beef+&quantity=2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body)
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			if got := p.Get("subtype"); got != "beef" {
				t.Errorf("Get(subtype) = %q, want beef", got)
			}
			if got := p.Get("quantity"); got != "2" {
				t.Errorf("Get(quantity) = %q, want 2", got)
			}
			if !p.Has("type") || p.Has("missing") {
				t.Errorf("Has() mismatch")
			}
		})
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"broken":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("expected error for malformed JSON")
	}

	big := strings.Repeat("a", maxBodyBytes+10)
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("message="+big))
	if err := NewRequestBodyParser(req).Parse(); !errors.Is(err, errBodyTooLarge) {
		t.Errorf("expected errBodyTooLarge, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Errorf("empty body should parse, got %v", err)
	}
	if p.Get("anything") != "" {
		t.Error("empty body should yield empty values")
	}
}

func TestParseActivityIntent(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    core.ActivityIntent
		wantErr error
	}{
		{
			name: "json transport",
			body: `{"type":"transport","subtype":"car","secondary":"diesel","quantity":"12,5"}`,
			want: core.ActivityIntent{Category: core.Transport, Subtype: "car", Secondary: "diesel", Quantity: 12.5},
		},
		{
			name: "form aliases",
			body: "category=transport&mode=bus&fuel=&quantity=4",
			want: core.ActivityIntent{Category: core.Transport, Subtype: "bus", Quantity: 4},
		},
		{
			name: "blank quantity is omitted",
			body: "type=food&subtype=vegan",
			want: core.ActivityIntent{Category: core.Food, Subtype: "vegan", QuantityOmitted: true},
		},
		{
			name: "explicit zero is kept",
			body: `{"type":"transport","subtype":"bicycle","quantity":"0"}`,
			want: core.ActivityIntent{Category: core.Transport, Subtype: "bicycle"},
		},
		{
			name:    "negative quantity",
			body:    "type=waste&subtype=general&quantity=-2",
			wantErr: core.ErrInvalidQuantity,
		},
		{
			name:    "garbage quantity",
			body:    `{"type":"energy","subtype":"gas","quantity":"lots"}`,
			wantErr: core.ErrInvalidQuantity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseActivityIntent(newParser(t, tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseGoal(t *testing.T) {
	tests := []struct {
		body string
		want float64
		ok   bool
	}{
		{"goal=40", 40, true},
		{`{"goal":12.5}`, 12.5, true},
		{"goal=7,5", 7.5, true},
		{"goal=0", 0, false},
		{"goal=", 0, false},
		{"goal=-1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, err := ParseGoal(newParser(t, tt.body))
			if tt.ok != (err == nil) {
				t.Fatalf("ParseGoal error = %v, want ok=%v", err, tt.ok)
			}
			if !tt.ok && !errors.Is(err, core.ErrInvalidGoal) {
				t.Errorf("error = %v, want ErrInvalidGoal", err)
			}
			if got != tt.want {
				t.Errorf("ParseGoal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseVoiceRequest(t *testing.T) {
	v, err := ParseVoiceRequest(newParser(t, `{"transcript":"I ate a meal","final":true}`))
	if err != nil || !v.Final || v.Transcript != "I ate a meal" {
		t.Errorf("got %+v, %v", v, err)
	}
	v, err = ParseVoiceRequest(newParser(t, "transcript=I+drove&final=on"))
	if err != nil || !v.Final {
		t.Errorf("form final=on should be final, got %+v, %v", v, err)
	}
	if _, err := ParseVoiceRequest(newParser(t, `{"final":false}`)); err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\ttab", "line1\nline2\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
