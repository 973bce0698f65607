package db

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSort reports a sort column or direction outside the allowed set.
var ErrInvalidSort = errors.New("platform/db: invalid sort")

// OrderBy builds an ORDER BY fragment from user input. sortBy must be one of
// fields; sortOrder defaults to asc. An empty sortBy yields an empty fragment.
func OrderBy(sortBy, sortOrder string, fields []string) (string, error) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		return "", nil
	}
	order := strings.ToLower(strings.TrimSpace(sortOrder))
	if order == "" {
		order = "asc"
	}
	if order != "asc" && order != "desc" {
		return "", fmt.Errorf("%w: sort_order must be either 'asc' or 'desc'", ErrInvalidSort)
	}
	for _, f := range fields {
		if f == sortBy {
			return fmt.Sprintf(" ORDER BY %s %s", sortBy, order), nil
		}
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = "'" + f + "'"
	}
	return "", fmt.Errorf("%w: sort_by must be one of %s", ErrInvalidSort, strings.Join(quoted, ", "))
}

// Page carries offset pagination input shared by list endpoints.
type Page struct {
	Start  int `json:"limit_start"`
	Length int `json:"limit_page_length"`
}

// DefaultPageLength applies when a list request omits limit_page_length.
const DefaultPageLength = 20

// Normalize clamps the page to non-negative values and applies the default length.
func (p Page) Normalize() Page {
	if p.Start < 0 {
		p.Start = 0
	}
	if p.Length <= 0 {
		p.Length = DefaultPageLength
	}
	return p
}

// Pagination is the metadata block returned next to paged data.
type Pagination struct {
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	Start      int `json:"limit_start"`
	Length     int `json:"limit_page_length"`
}
