package ehealth

import "encoding/json"

// Paging is the pagination metadata of an eHealth list response. Page
// numbers are 1-based.
type Paging struct {
	PageNumber   int `json:"page_number"`
	PageSize     int `json:"page_size"`
	TotalPages   int `json:"total_pages"`
	TotalEntries int `json:"total_entries"`
}

// PagedResponse wraps one page of API results plus pagination metadata.
// Records stay raw; each entity type's persist step decodes them.
type PagedResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging *Paging           `json:"paging"`
}

// IsNotLast reports whether more pages remain. Absent paging metadata is
// treated as the last page so a malformed response can never drive an
// endless pagination loop.
func (r *PagedResponse) IsNotLast() bool {
	if r == nil || r.Paging == nil {
		return false
	}
	return r.Paging.PageNumber < r.Paging.TotalPages
}
