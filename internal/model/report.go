package model

import (
	"net/url"
	"strings"
)

// Row is a single opaque record returned by the filtered-data endpoint.
type Row map[string]any

// ResultPage is one page of filtered rows plus server-side pagination cursors.
type ResultPage struct {
	Rows         []Row `json:"data"`
	TotalRecords int   `json:"total_records"`
	Page         int   `json:"page"` // 1-indexed
}

// Param is a single query key/value pair.
type Param struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Query is an ordered list of query parameters. Order is significant so that
// the same criteria always encode to the same string.
type Query []Param

// Get returns the value for key and whether it was present.
func (q Query) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	_, ok := q.Get(key)
	return ok
}

// Encode renders the query as a URL query string, preserving parameter order.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
