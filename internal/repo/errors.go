package repo

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed HubSpot API call so analyzers can decide
// whether a failure taints visibility or is retryable.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindPermission ErrorKind = "permission"
	KindRateLimit  ErrorKind = "rate_limit"
	KindTransport  ErrorKind = "transport"
)

// APIError is returned for any non-success response from HubSpot.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("hubspot api: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("hubspot api: %s: %s", e.Kind, e.Message)
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindAuth
	case status == 403:
		return KindPermission
	case status == 429:
		return KindRateLimit
	default:
		return KindTransport
	}
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsVisibilityError reports whether err should mark a module as having
// limited visibility rather than failing the scan outright. Every API
// failure qualifies since the data behind it could not be inspected.
func IsVisibilityError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
