// Package pagination implements page-number pagination for list endpoints:
// a default page size, a hard maximum that larger requests are clamped to,
// and the {count, next, previous, results} response envelope.
package pagination

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 1000

	PageParam     = "page"
	PageSizeParam = "page_size"
)

// Policy holds the page size limits.
type Policy struct {
	DefaultSize int
	MaxSize     int
}

// DefaultPolicy returns the stock limits.
func DefaultPolicy() Policy {
	return Policy{DefaultSize: DefaultPageSize, MaxSize: MaxPageSize}
}

// Window is a resolved page request.
type Window struct {
	Page int
	Size int
}

// Limit is the number of rows to fetch.
func (w Window) Limit() int { return w.Size }

// Offset is the number of rows to skip.
func (w Window) Offset() int { return (w.Page - 1) * w.Size }

// Resolve applies defaults and clamps the requested size. Zero values mean
// "not supplied". The page is capped so that page*size fits in an int; any
// page that high is already past the end of the collection.
func (p Policy) Resolve(page, size int) Window {
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = p.DefaultSize
	case size > p.MaxSize:
		size = p.MaxSize
	}
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return Window{Page: page, Size: size}
}

// Envelope is the list response body.
type Envelope[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewEnvelope builds the envelope for one page. requestURL is the absolute
// URL of the current request; next and previous keep its other parameters.
func NewEnvelope[T any](results []T, count int64, w Window, requestURL *url.URL) Envelope[T] {
	if results == nil {
		results = []T{}
	}

	env := Envelope[T]{Count: count, Results: results}

	if int64(w.Page)*int64(w.Size) < count {
		next := withPage(requestURL, w.Page+1)
		env.Next = &next
	}

	// Pages past the end still link back to the last real page.
	if w.Page > 1 && count > 0 {
		prev := w.Page - 1
		if last := lastPage(count, w.Size); prev > last {
			prev = last
		}
		p := withPage(requestURL, prev)
		env.Previous = &p
	}

	return env
}

func lastPage(count int64, size int) int {
	return int((count + int64(size) - 1) / int64(size))
}

func withPage(u *url.URL, page int) string {
	next := *u
	q := next.Query()
	if page <= 1 {
		q.Del(PageParam)
	} else {
		q.Set(PageParam, strconv.Itoa(page))
	}
	next.RawQuery = q.Encode()
	return next.String()
}
