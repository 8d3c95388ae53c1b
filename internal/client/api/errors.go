package api

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// ErrUnauthorized: the server rejected the api key or client id.
	// Fatal for the current operation, surfaced to the user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransient: timeout, connection failure, or a 5xx. Worth retrying;
	// the next reconcile cycle will pick up whatever was dropped.
	ErrTransient = errors.New("transient error")

	// ErrRejected: the server refused the request (bad path, bad body).
	// Retrying the same request cannot succeed.
	ErrRejected = errors.New("request rejected")

	// ErrNotFound: no manifest entry for the path or file id.
	ErrNotFound = errors.New("not found")
)

// APIError mirrors the server's error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// handleAPIError folds the request error and error-state response into a
// single classified error.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("%s: %w: %w", operation, ErrTransient, requestErr)
	}

	if !resp.IsErrorState() {
		return nil
	}

	detail := error(nil)
	if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
		detail = apiErr
	} else {
		detail = fmt.Errorf("status %d", resp.GetStatusCode())
	}

	var kind error
	switch code := resp.GetStatusCode(); {
	case code == 401 || code == 403:
		kind = ErrUnauthorized
	case code == 404:
		kind = ErrNotFound
	case code >= 500:
		kind = ErrTransient
	default:
		kind = ErrRejected
	}

	return fmt.Errorf("%s: %w: %w", operation, kind, detail)
}
