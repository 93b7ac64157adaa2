package params

import (
	"net/url"
	"strconv"
	"strings"
)

// URL: /products?page=2&limit=30
// → ParsePagination() → Pagination{Limit:30, Page:2, Offset:30}
// → SQL: SELECT ... LIMIT 30 OFFSET 30
// → DB returns data + total count
// → Envelope(requestURL, total, results) → {count, next, previous, results}
// Pagination holds pagination info parsed from the query string.
type Pagination struct {
	Limit  int `json:"limit"`  // items per page
	Offset int `json:"offset"` // SQL OFFSET value
	Page   int `json:"page"`   // Current Page number
}

// Page is the list response shape: a fixed envelope with absolute-ish next
// and previous page links (null at the edges).
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// ParsePagination parses ?limit=...&page=... safely.  Careful key are case sensitive
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Limit: 15, // default
		Page:  1,
	}

	// --- Parse limit ---
	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			switch {
			case limit <= 0:
				p.Limit = 15
			case limit > 50:
				p.Limit = 50
			default:
				p.Limit = limit
			}
		}
	}

	// --- Parse page ---
	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.Page = page
		}
	}

	// --- Calculate offset ---
	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// Envelope builds the page envelope for a request URL. results must never be
// nil so an empty page serializes as an empty array, not null.
func (p Pagination) Envelope(requestURL *url.URL, total int, results any) Page {
	page := Page{
		Count:   total,
		Results: results,
	}
	if p.Page > 1 {
		page.Previous = pageLink(requestURL, p.Page-1)
	}
	if p.Page*p.Limit < total {
		page.Next = pageLink(requestURL, p.Page+1)
	}
	return page
}

func pageLink(requestURL *url.URL, page int) *string {
	u := *requestURL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
