package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError is the uniform failure signal for anything network-shaped:
// non-2xx responses, timeouts, connection resets. Status is zero when no
// HTTP response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Permanent reports whether retrying can possibly help. Explicit
// forbidden/not-found style responses are permanent; everything else
// (timeouts, 5xx, rate limiting) is treated as transient.
func (e *FetchError) Permanent() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

// IsPermanent reports whether err is a permanent fetch failure.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Permanent()
}
