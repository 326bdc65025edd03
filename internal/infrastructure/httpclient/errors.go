package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx answer from a downstream service.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Body is the start of the response body, truncated to 4 KiB.
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// AsStatusError extracts a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsClientError reports a 4xx answer.
func IsClientError(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.StatusCode >= 400 && se.StatusCode < 500
}

// IsServerError reports a 5xx answer.
func IsServerError(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.StatusCode >= 500 && se.StatusCode < 600
}
