package httpx

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

// ParsePage reads limit_start and limit_page_length from the query string.
func ParsePage(q url.Values) (db.Page, error) {
	var page db.Page
	var err error
	if page.Start, err = nonNegative(q, "limit_start"); err != nil {
		return db.Page{}, err
	}
	if page.Length, err = nonNegative(q, "limit_page_length"); err != nil {
		return db.Page{}, err
	}
	return page.Normalize(), nil
}

func nonNegative(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrValidation, key)
	}
	return v, nil
}

var timeLayouts = []string{time.RFC3339, time.DateTime, "2006-01-02 15:04", time.DateOnly}

// ParseTime accepts RFC3339, date-time and date-only values. Values without an
// offset are read in UTC.
func ParseTime(key, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s must be a date or datetime", ErrValidation, key)
}

// OptionalTime is ParseTime that returns the zero time for an absent value.
func OptionalTime(q url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	return ParseTime(key, raw)
}
