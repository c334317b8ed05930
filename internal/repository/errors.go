package repository

import "errors"

var (
	// ErrFetchTimeout is returned when page navigation exceeds the hard
	// per-fetch timeout.
	ErrFetchTimeout = errors.New("page fetch timed out")

	// ErrNavigationFailed is returned on any non-timeout navigation or
	// network failure while fetching a pricing page.
	ErrNavigationFailed = errors.New("page navigation failed")

	// ErrNotFound is returned by store lookups when no matching record
	// exists. Callers must translate it to an explicit not-found response,
	// never to zero-valued pricing.
	ErrNotFound = errors.New("record not found")
)
