package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// pagination reads ?page and ?limit, ignoring malformed values.
func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, defaultPageLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, maxPageLimit)
		}
	}
	return page, limit
}

func newMeta(page, limit int, total int64) *response.Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &response.Meta{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
