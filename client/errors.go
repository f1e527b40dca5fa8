package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoRefreshToken   = errors.New("no refresh token available")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrSessionEnded     = errors.New("session ended during token refresh")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is returned for every non-2xx response. Endpoint is the path of the
// request that produced it, so callers can tell a failed login from a failed
// resource call.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
	Body     []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.Status, msg)
}

// StatusCode extracts the HTTP status from an *APIError anywhere in the chain,
// or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		Status: resp.StatusCode,
		Body:   body,
	}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.Endpoint = resp.Request.URL.Path
	}

	// DRF answers with {"detail": ...}, the dev server with {"error": ...}.
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			e.Message = payload.Detail
		} else {
			e.Message = payload.Error
		}
	}
	return e
}
