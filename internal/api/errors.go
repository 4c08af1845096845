package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a remote failure for the retry and rollback policies.
type Kind int

const (
	// KindUnknown is any failure the taxonomy cannot place. Widgets treat
	// it as non-authoritative: render a fallback, never crash.
	KindUnknown Kind = iota
	// KindTransient covers connectivity loss and "service initializing"
	// responses. Policy: one automatic retry after a fixed delay.
	KindTransient
	// KindValidation is missing or malformed user input. Validation
	// failures are blocked locally and never reach the wire.
	KindValidation
	// KindConflict is a definitive 409 rejection (e.g. session full).
	KindConflict
	// KindForbidden is a definitive 403 rejection.
	KindForbidden
	// KindNotFound is a definitive 404 rejection.
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindTransient:  "transient",
	KindValidation: "validation",
	KindConflict:   "conflict",
	KindForbidden:  "forbidden",
	KindNotFound:   "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Authoritative reports whether the failure is a definitive rejection that
// must roll back an optimistic mutation. Transient and unknown failures
// are non-authoritative: the optimistic state stands.
func (k Kind) Authoritative() bool {
	return k == KindConflict || k == KindForbidden || k == KindNotFound || k == KindValidation
}

// Error is a typed remote failure.
type Error struct {
	Op     string // e.g. "attend session"
	Kind   Kind
	Status int // HTTP status, 0 for network-level failures
	Msg    string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// KindOf extracts the failure kind from any error. Non-API errors (raw
// network failures and the like) classify as transient when they look like
// connectivity problems, otherwise unknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

// Retryable reports whether err warrants the single automatic retry.
func Retryable(err error) bool {
	return KindOf(err) == KindTransient
}
