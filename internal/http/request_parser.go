// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Handlers accept either JSON bodies (API clients) or form-encoded bodies
// (htmx forms) through the same parser.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ecotrack/internal/core"
)

// maxBodyBytes bounds every request body read by the parser.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for later parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// GetBool accepts JSON booleans and the usual form spellings.
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseQuantityField reads an optional quantity. present is false for a
// blank value, which intent validation then judges per category.
func parseQuantityField(p *RequestBodyParser, key string) (q float64, present bool, err error) {
	raw := p.Get(key)
	if raw == "" {
		return 0, false, nil
	}
	q, err = core.ParseQuantity(raw)
	return q, true, err
}

// ParseActivityIntent maps {type, subtype, secondary, quantity} to an intent.
// "category" and "mode" are accepted as aliases used by the dashboard form.
func ParseActivityIntent(p *RequestBodyParser) (core.ActivityIntent, error) {
	in := core.ActivityIntent{
		Category:  core.Category(firstNonEmpty(p.Get("type"), p.Get("category"))),
		Subtype:   firstNonEmpty(p.Get("subtype"), p.Get("mode")),
		Secondary: firstNonEmpty(p.Get("secondary"), p.Get("fuel")),
	}
	q, present, err := parseQuantityField(p, "quantity")
	if err != nil {
		return in, err
	}
	in.Quantity, in.QuantityOmitted = q, !present
	return in, nil
}

// ParseGoal reads the weekly goal in kg CO2.
func ParseGoal(p *RequestBodyParser) (float64, error) {
	g, err := core.ParseQuantity(p.Get("goal"))
	if err != nil || g <= 0 {
		return 0, core.ErrInvalidGoal
	}
	return g, nil
}

// VoiceRequest is one transcript fragment from the browser recognizer.
type VoiceRequest struct {
	Transcript string
	Final      bool
}

func ParseVoiceRequest(p *RequestBodyParser) (VoiceRequest, error) {
	v := VoiceRequest{Transcript: p.Get("transcript"), Final: p.GetBool("final")}
	if v.Transcript == "" {
		return v, errors.New("transcript is required")
	}
	return v, nil
}

func ParseInquiry(p *RequestBodyParser) core.BusinessInquiry {
	return core.BusinessInquiry{
		CompanyName: p.Get("companyName"),
		ContactName: p.Get("contactName"),
		Email:       p.Get("email"),
		Phone:       p.Get("phone"),
		Message:     p.Get("message"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
