// Package utils provides small helpers shared by the HTTP layer that carry
// no domain logic of their own.
package utils

import "strconv"

// Paging limits for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 250
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid int. Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows before the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// ParsePage turns raw page / page_size values into a Page. Unparsable
// values fall back to the defaults; the page is at least 1 and the size is
// clamped to [1, MaxPageSize].
func ParsePage(page, size string) Page {
	p := Page{
		Number: AtoiDefault(page, DefaultPage),
		Size:   AtoiDefault(size, DefaultPageSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	p.Size = min(max(p.Size, 1), MaxPageSize)
	return p
}
