package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLookupFailed means the secret store could not produce a blob.
	ErrLookupFailed = errors.New("credential lookup failed")
	// ErrMalformed means the blob was not JSON or carried no access token.
	ErrMalformed = errors.New("malformed credentials")

	// ErrUnauthorized is matched by a StatusError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport wraps connection-level failures (DNS, timeout, reset).
	ErrTransport = errors.New("transport failure")
)

// StatusError is returned when the usage endpoint answers with a status the
// client cannot use.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned %d", e.Status)
	}
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether err means the token was rejected.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
