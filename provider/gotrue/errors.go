package gotrue

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoSession is returned by operations that need a signed-in session.
var ErrNoSession = errors.New("gotrue: no session")

// APIError is a non-2xx response from the auth backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("gotrue: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("gotrue: %d: %s", e.Status, msg)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusRequestTimeout || e.Status >= 500
}

// errorBody covers the shapes GoTrue uses for error payloads.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (b errorBody) apiError(status int) *APIError {
	e := &APIError{Status: status, Code: b.ErrorCode}
	if e.Code == "" {
		if s, ok := b.Code.(string); ok {
			e.Code = s
		} else if b.Error != "" {
			e.Code = b.Error
		}
	}
	for _, m := range []string{b.ErrorDescription, b.Msg, b.Message} {
		if m != "" {
			e.Message = m
			break
		}
	}
	return e
}

// transportError marks a failure so callers retry it.
func transportError(op string, err error) error {
	return fmt.Errorf("fetch %s: network error: %w", op, err)
}

// IsTerminal reports whether err is a backend rejection that a retry
// cannot fix.
func IsTerminal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Temporary()
}
