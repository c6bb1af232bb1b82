package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/vzero/pkg/api"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into
// an APIError. A structured error body supplies the message when present.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	var apiErr *api.APIError
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request"
		}
		apiErr = api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized:
		if message == "" {
			message = "authentication failed"
		}
		apiErr = api.NewUnauthorizedError(message)

	case resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "access denied"
		}
		apiErr = api.NewForbiddenError(message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		apiErr = api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusConflict:
		if message == "" {
			message = "conflicting request"
		}
		apiErr = api.NewConflictError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "rate limit exceeded"
		}
		apiErr = api.NewTooManyRequestsError(message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("server error (HTTP %d)", resp.StatusCode)
		}
		apiErr = api.NewServerError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected API error (HTTP %d)", resp.StatusCode)
		}
		apiErr = api.NewServerError(message)
	}

	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into an APIError with a descriptive message.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("API connection error: %s", err.Error()))
}

// ExtractErrorMessage tries to parse the response body as an
// api.ErrorResponse and returns the error message if found.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return ""
}
