// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// dashboard selections from the query string and import requests from JSON
// or form bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"salesdash/internal/core"
	"salesdash/internal/report"
)

// maxBodyBytes caps request bodies; imports only carry a path.
const maxBodyBytes = 64 << 10

// errBadParam marks query parsing failures so handlers can answer 400.
var errBadParam = errors.New("bad parameter")

// YearPair holds the two years a comparison is made between.
type YearPair struct {
	Base    int
	Compare int
}

// RangeParams holds the current window and an optional baseline.
type RangeParams struct {
	Current  report.MonthRange
	Baseline report.MonthRange
}

// ParseIntParam reads key from query. An absent key yields def; a present but
// non-numeric value is an error.
func ParseIntParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", errBadParam, key, v)
	}
	return n, nil
}

// ParseYear validates a year taken from a path segment or query value.
func ParseYear(v string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || year < 1 || year > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", errBadParam, v)
	}
	return year, nil
}

// ParseYearPair extracts base and current years, falling back to the
// configured defaults.
func ParseYearPair(query url.Values, defaults YearPair) (YearPair, error) {
	base, err := ParseIntParam(query, "base", defaults.Base)
	if err != nil {
		return YearPair{}, err
	}
	current, err := ParseIntParam(query, "current", defaults.Compare)
	if err != nil {
		return YearPair{}, err
	}
	if base < 1 || current < 1 {
		return YearPair{}, fmt.Errorf("%w: years must be positive", errBadParam)
	}
	return YearPair{Base: base, Compare: current}, nil
}

// ParseMonthParam reads an optional calendar month; 0 means unset.
func ParseMonthParam(query url.Values) (int, error) {
	month, err := ParseIntParam(query, "month", 0)
	if err != nil {
		return 0, err
	}
	if month < 0 || month > 12 {
		return 0, fmt.Errorf("%w: month %d out of range", errBadParam, month)
	}
	return month, nil
}

// ParseRangeParams reads from/to (required) and baseline_from/baseline_to
// (optional, both or neither), all as "2006-01".
func ParseRangeParams(query url.Values) (RangeParams, error) {
	current, err := parseRange(query.Get("from"), query.Get("to"))
	if err != nil {
		return RangeParams{}, err
	}
	p := RangeParams{Current: current}

	bf, bt := strings.TrimSpace(query.Get("baseline_from")), strings.TrimSpace(query.Get("baseline_to"))
	if bf == "" && bt == "" {
		return p, nil
	}
	if p.Baseline, err = parseRange(bf, bt); err != nil {
		return RangeParams{}, fmt.Errorf("baseline: %w", err)
	}
	return p, nil
}

func parseRange(from, to string) (report.MonthRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return report.MonthRange{}, fmt.Errorf("%w: from and to are required", errBadParam)
	}
	f, err := core.ParseYearMonth(from)
	if err != nil {
		return report.MonthRange{}, fmt.Errorf("%w: %v", errBadParam, err)
	}
	t, err := core.ParseYearMonth(to)
	if err != nil {
		return report.MonthRange{}, fmt.Errorf("%w: %v", errBadParam, err)
	}
	r, err := report.NewMonthRange(f, t)
	if err != nil {
		return report.MonthRange{}, fmt.Errorf("%w: %v", errBadParam, err)
	}
	return r, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing. Callers bound
// the body with http.MaxBytesReader; its error is returned by Parse.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
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

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body", errBadParam)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body", errBadParam)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
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

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response if it doesn't.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET accepts GET and HEAD.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
